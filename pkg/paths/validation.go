package paths

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/stager/pkg/errors"
)

// ValidatePath performs basic sanity checks on a path.
// It checks for:
// - Empty paths
// - Null bytes
// - Excessive path length
func ValidatePath(path string) error {
	if path == "" {
		return errors.New(errors.ErrInvalidInput, "path cannot be empty")
	}

	if strings.Contains(path, "\x00") {
		return errors.New(errors.ErrInvalidInput, "path contains null bytes")
	}

	// Check path length (common filesystem limit)
	if len(path) > 4096 {
		return errors.New(errors.ErrInvalidInput, "path exceeds maximum length")
	}

	return nil
}

// Normalize turns a target path into its canonical form below the output
// root: slash separated, relative, with no empty, "." or ".." segments.
//
// A leading "/" denotes the output root itself, so "/docs/a.md" and
// "docs/a.md" are the same target. A ".." segment removes the previous
// segment; one with nothing left to remove would leave the output root and
// fails with ErrPathEscape, as does a path naming the root itself.
func Normalize(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	segments := make([]string, 0, strings.Count(path, "/")+1)
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return "", errors.Newf(errors.ErrPathEscape,
					"path %q resolves outside the output root", path).
					WithDetail("path", path)
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		return "", errors.Newf(errors.ErrPathEscape,
			"path %q resolves to the output root itself", path).
			WithDetail("path", path)
	}

	return strings.Join(segments, "/"), nil
}

// Ancestors returns the ancestor directories of a normalized path, outermost
// first. "a/b/c" yields ["a", "a/b"].
func Ancestors(normalized string) []string {
	var dirs []string
	for i := 0; i < len(normalized); i++ {
		if normalized[i] == '/' {
			dirs = append(dirs, normalized[:i])
		}
	}
	return dirs
}

// JoinRoot normalizes rel and joins it below root, guaranteeing the result
// stays inside root.
func JoinRoot(root, rel string) (string, error) {
	clean, err := Normalize(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
