package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/glob"
	"github.com/arthur-debert/stager/pkg/logging"
	"github.com/arthur-debert/stager/pkg/resolver"
	"github.com/arthur-debert/stager/pkg/types"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	pkgerrors "github.com/pkg/errors"
)

// VarEnvPrefix prefixes environment variables that supply stage file
// variables not set in the file itself
const VarEnvPrefix = "STAGER_VAR_"

// StageFile is the on-disk form of a stage
type StageFile struct {
	Vars   map[string]string `koanf:"vars"`
	Strict bool              `koanf:"strict"`
	Rules  []RuleSpec        `koanf:"rules"`
}

// RuleSpec is one rule as written in a stage file
type RuleSpec struct {
	Name           string       `koanf:"name"`
	Source         string       `koanf:"source"`
	Include        []string     `koanf:"include"`
	Exclude        []string     `koanf:"exclude"`
	Target         string       `koanf:"target"`
	Mode           string       `koanf:"mode"`
	Permissions    *fs.FileMode `koanf:"permissions"`
	Precedence     *int         `koanf:"precedence"`
	FollowSymlinks bool         `koanf:"follow_symlinks"`
	Optional       bool         `koanf:"optional"`
	AllowEmpty     bool         `koanf:"allow_empty"`
	Link           string       `koanf:"link"`
	Aliases        []string     `koanf:"aliases"`
}

// Stage is a loaded, validated stage file
type Stage struct {
	// Path is the absolute path of the stage file
	Path string

	// Strict asks the planner to fail on conflicting targets
	Strict bool

	// Rules are in declaration order with sources made absolute
	Rules []types.Rule
}

// ParserFor picks the koanf parser for a stage file from its extension
func ParserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, errors.Newf(errors.ErrConfigLoad,
			"unsupported stage file extension %q (want .yaml, .yml, .toml or .json)", filepath.Ext(path)).
			WithDetail("path", path)
	}
}

// LoadStage reads, parses and validates the stage file at path
func LoadStage(path string) (*Stage, error) {
	logger := logging.GetLogger("config")

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot resolve %s", path)
	}

	parser, err := ParserFor(abs)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(abs); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot open stage file %s", path).
			WithDetail("path", abs)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(abs), parser); err != nil {
		return nil, errors.Wrap(pkgerrors.Wrapf(err, "couldn't parse stage file %s", path),
			errors.ErrConfigLoad, "failed to load stage file").
			WithDetail("path", abs)
	}

	stage, err := decodeStage(k, filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	stage.Path = abs

	logger.Debug().
		Str("path", abs).
		Int("rules", len(stage.Rules)).
		Bool("strict", stage.Strict).
		Msg("Stage file loaded")

	return stage, nil
}

// decodeStage turns loaded stage data into rules. Relative sources are
// resolved against baseDir.
func decodeStage(k *koanf.Koanf, baseDir string) (*Stage, error) {
	var sf StageFile
	if err := k.UnmarshalWithConf("", &sf, koanf.UnmarshalConf{
		Tag:           "koanf",
		DecoderConfig: decoderConfig(&sf),
	}); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigValid, "invalid stage file")
	}

	if len(sf.Rules) == 0 {
		return nil, errors.New(errors.ErrConfigValid, "stage file declares no rules")
	}

	vars := newVarResolver(sf.Vars)
	rules := make([]types.Rule, 0, len(sf.Rules))
	var errs []error

	for i, spec := range sf.Rules {
		rule, ruleErrs := buildRule(spec, vars, baseDir)
		for _, err := range ruleErrs {
			errs = append(errs, pkgerrors.Wrapf(err, "rule %s", rule.Label(i)))
		}
		rules = append(rules, rule)
	}

	if len(errs) > 0 {
		return nil, errors.Wrap(stderrors.Join(errs...), errors.ErrConfigValid, "invalid stage file")
	}

	rules = types.AssignPrecedence(rules)
	for i, spec := range sf.Rules {
		if spec.Precedence != nil {
			rules[i].Precedence = *spec.Precedence
		}
	}

	return &Stage{Strict: sf.Strict, Rules: rules}, nil
}

// buildRule converts one RuleSpec, collecting every problem with it
func buildRule(spec RuleSpec, vars *varResolver, baseDir string) (rule types.Rule, errs []error) {
	rule = types.Rule{
		Name:           spec.Name,
		Permissions:    spec.Permissions,
		FollowSymlinks: spec.FollowSymlinks,
		Optional:       spec.Optional,
		AllowEmpty:     spec.AllowEmpty,
	}

	expand := func(field, s string) string {
		out, err := vars.expand(s)
		if err != nil {
			errs = append(errs, pkgerrors.Wrapf(err, "field %s", field))
		}
		return out
	}

	rule.TargetTemplate = expand("target", spec.Target)

	if spec.Link != "" {
		rule.LinkTarget = expand("link", spec.Link)
		rule.Mode = types.ModeSymlink
		rule.Permissions = nil
		return rule, append(errs, linkRuleErrors(spec)...)
	}

	rule.SourceRoot = expand("source", spec.Source)
	if rule.SourceRoot == "" {
		errs = append(errs, pkgerrors.New("missing source"))
	} else if !filepath.IsAbs(rule.SourceRoot) {
		rule.SourceRoot = filepath.Join(baseDir, rule.SourceRoot)
	}

	for _, p := range spec.Include {
		p = expand("include", p)
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, err)
		}
		rule.Include = append(rule.Include, p)
	}
	for _, p := range spec.Exclude {
		p = expand("exclude", p)
		if _, err := glob.Compile(p); err != nil {
			errs = append(errs, err)
		}
		rule.Exclude = append(rule.Exclude, p)
	}

	for _, a := range spec.Aliases {
		a = expand("aliases", a)
		if err := resolver.ValidateAlias(a); err != nil {
			errs = append(errs, err)
		}
		rule.Aliases = append(rule.Aliases, a)
	}

	mode, err := types.ParsePlacementMode(spec.Mode)
	if err != nil {
		errs = append(errs, err)
	}
	rule.Mode = mode

	return rule, errs
}

// linkRuleErrors reports the fields a link rule cannot use. The link text
// is kept as written, relative or not.
func linkRuleErrors(spec RuleSpec) (errs []error) {
	unused := []struct {
		field string
		set   bool
	}{
		{"source", spec.Source != ""},
		{"include", len(spec.Include) > 0},
		{"exclude", len(spec.Exclude) > 0},
		{"permissions", spec.Permissions != nil},
		{"follow_symlinks", spec.FollowSymlinks},
		{"aliases", len(spec.Aliases) > 0},
	}
	for _, u := range unused {
		if u.set {
			errs = append(errs, pkgerrors.Errorf("%s cannot be used with link", u.field))
		}
	}

	if mode, err := types.ParsePlacementMode(spec.Mode); err != nil {
		errs = append(errs, err)
	} else if mode != types.ModeSymlink && spec.Mode != "" {
		errs = append(errs, pkgerrors.Errorf("link rules are always symlinks, got mode %q", spec.Mode))
	}
	return errs
}
