package config

import (
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// varResolver substitutes ${name} references in stage file strings
type varResolver struct {
	vars   map[string]string
	lookup func(string) (string, bool)
}

func newVarResolver(vars map[string]string) *varResolver {
	return &varResolver{vars: vars, lookup: os.LookupEnv}
}

// value finds name in the stage file vars, then in STAGER_VAR_<NAME>
func (v *varResolver) value(name string) (string, bool) {
	if val, ok := v.vars[name]; ok {
		return val, true
	}
	return v.lookup(VarEnvPrefix + strings.ToUpper(name))
}

// expand replaces every ${name} (and $name) in s. Unknown names are an
// error; "$$" is a literal "$".
func (v *varResolver) expand(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	out := os.Expand(s, func(name string) string {
		if name == "$" {
			return "$"
		}
		val, ok := v.value(name)
		if !ok {
			missing = append(missing, name)
		}
		return val
	})

	if len(missing) > 0 {
		return s, pkgerrors.Errorf("undefined variable %q in %q", missing[0], s)
	}
	return out, nil
}
