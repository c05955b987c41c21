package types

import (
	"fmt"
	"io/fs"
	"strings"
)

// PlacementMode defines how a resolved file lands in the output tree
type PlacementMode string

const (
	// ModeCopy copies the source file byte for byte
	ModeCopy PlacementMode = "copy"

	// ModeSymlink creates a symbolic link pointing at the source file
	ModeSymlink PlacementMode = "symlink"
)

// ParsePlacementMode converts a user supplied mode name into a PlacementMode.
// An empty string selects ModeCopy.
func ParsePlacementMode(s string) (PlacementMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "copy":
		return ModeCopy, nil
	case "symlink", "link":
		return ModeSymlink, nil
	default:
		return "", fmt.Errorf("unknown placement mode %q (want copy or symlink)", s)
	}
}

// Rule is one declarative staging instruction. Rules are plain values: the
// resolver and planner only ever read them.
type Rule struct {
	// Name identifies the rule in logs and errors (optional)
	Name string

	// SourceRoot is the directory the include patterns are evaluated in
	SourceRoot string

	// Include lists glob patterns, relative to SourceRoot. Empty means "**".
	Include []string

	// Exclude lists glob patterns evaluated after Include
	Exclude []string

	// TargetTemplate is the output path, relative to the output root, with
	// {relative_path}, {file_name}, {stem}, {ext} and {dir} placeholders
	TargetTemplate string

	// Mode selects copy or symlink placement
	Mode PlacementMode

	// Permissions are explicit mode bits for placed files (nil = mirror source)
	Permissions *fs.FileMode

	// Precedence ranks the rule on target collisions (higher wins)
	Precedence int

	// FollowSymlinks descends into symlinked directories while walking
	FollowSymlinks bool

	// Optional makes a missing SourceRoot resolve to nothing instead of failing
	Optional bool

	// AllowEmpty accepts a rule whose patterns match no file
	AllowEmpty bool

	// LinkTarget turns the rule into a single symlink: TargetTemplate is the
	// link's path and LinkTarget its literal content. A TargetTemplate
	// ending in "/" receives the base name of LinkTarget. SourceRoot and
	// the patterns are unused.
	LinkTarget string

	// Aliases are extra symlinks placed next to every staged file, pointing
	// at it by its base name. Each alias is a single path segment and may
	// use the target placeholders.
	Aliases []string
}

// IsLink reports whether the rule places a literal symlink
func (r Rule) IsLink() bool {
	return r.LinkTarget != ""
}

// Label returns a human readable identifier for the rule at index i
func (r Rule) Label(i int) string {
	if r.Name != "" {
		return r.Name
	}
	return fmt.Sprintf("rule[%d]", i)
}

// AssignPrecedence returns a copy of rules where each rule's precedence is
// its declaration index, so later rules override earlier ones
func AssignPrecedence(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		r.Precedence = i
		out[i] = r
	}
	return out
}

// Perm is a convenience for building the optional Permissions field
func Perm(bits fs.FileMode) *fs.FileMode {
	p := bits.Perm()
	return &p
}

// ResolvedEntry is one concrete (source, target) pair produced by expanding a
// rule against the source tree
type ResolvedEntry struct {
	// RuleIndex is the position of the producing rule in the rule list
	RuleIndex int

	// SourcePath is the path of the matched file (SourceRoot joined with RelativePath)
	SourcePath string

	// RelativePath is the slash separated path of the file below SourceRoot
	RelativePath string

	// TargetPath is the expanded target template, not yet normalized
	TargetPath string

	// Mode is copied from the rule
	Mode PlacementMode

	// Permissions is copied from the rule
	Permissions *fs.FileMode

	// Literal marks a symlink whose SourcePath is the link text itself,
	// written verbatim instead of being made absolute
	Literal bool
}
