package resolver

import (
	"path"
	"strings"
)

// Target template placeholders
const (
	PlaceholderRelativePath = "{relative_path}"
	PlaceholderFileName     = "{file_name}"
	PlaceholderStem         = "{stem}"
	PlaceholderExt          = "{ext}"
	PlaceholderDir          = "{dir}"
)

var placeholders = []string{
	PlaceholderRelativePath,
	PlaceholderFileName,
	PlaceholderStem,
	PlaceholderExt,
	PlaceholderDir,
}

// ExpandTarget computes the target path of a file from a rule's target
// template and the file's slash separated path relative to the source root.
//
// Templates without placeholders are either a directory (empty or ending in
// "/"), which receives the relative path, or a fixed file path shared by
// every match.
func ExpandTarget(template, rel string) string {
	if !hasPlaceholder(template) {
		if template == "" || strings.HasSuffix(template, "/") {
			return template + rel
		}
		return template
	}

	name := path.Base(rel)
	ext := path.Ext(name)
	r := strings.NewReplacer(
		PlaceholderRelativePath, rel,
		PlaceholderFileName, name,
		PlaceholderStem, strings.TrimSuffix(name, ext),
		PlaceholderExt, ext,
		PlaceholderDir, path.Dir(rel),
	)
	return r.Replace(template)
}

func hasPlaceholder(template string) bool {
	for _, p := range placeholders {
		if strings.Contains(template, p) {
			return true
		}
	}
	return false
}
