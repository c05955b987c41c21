// Package glob compiles the include/exclude patterns of a staging rule.
//
// Patterns are matched against slash separated paths relative to a rule's
// source root:
//
//	a*b     "*" is any run of characters except "/"
//	a/**/b  "**" is any run of whole path segments, including none
//	a?b     "?" is exactly one character except "/"
//	[abc]   a character class ([!abc] or [^abc] negates)
//	{a,b}   alternation
//
// Compilation validates the pattern up front so malformed patterns are
// reported before any directory walk starts.
package glob

import (
	"strings"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a compiled glob pattern
type Pattern struct {
	raw string

	// literal is set when the pattern has no meta characters and can be
	// compared as a plain string
	literal bool
}

// Compile validates and compiles a single pattern
func Compile(pattern string) (Pattern, error) {
	if pattern == "" {
		return Pattern{}, errors.New(errors.ErrInvalidPattern, "pattern cannot be empty").
			WithDetail("pattern", pattern)
	}

	// Patterns are relative to the source root; "./" and a leading "/" add nothing
	clean := strings.TrimPrefix(pattern, "./")
	clean = strings.TrimLeft(clean, "/")
	if clean == "" {
		return Pattern{}, errors.Newf(errors.ErrInvalidPattern,
			"pattern %q matches nothing below the source root", pattern).
			WithDetail("pattern", pattern)
	}

	if !doublestar.ValidatePattern(clean) {
		return Pattern{}, errors.Newf(errors.ErrInvalidPattern, "malformed glob pattern %q", pattern).
			WithDetail("pattern", pattern)
	}

	return Pattern{
		raw:     clean,
		literal: !strings.ContainsAny(clean, `*?[{\`),
	}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package level defaults.
func MustCompile(pattern string) Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern text
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the slash separated relative path matches
func (p Pattern) Match(rel string) bool {
	if p.literal {
		return p.raw == rel
	}
	// The pattern was validated in Compile, so the error can only be
	// ErrBadPattern, which cannot happen here.
	ok, _ := doublestar.Match(p.raw, rel)
	return ok
}

// Set is an ordered list of compiled patterns
type Set []Pattern

// CompileAll compiles every pattern, failing on the first malformed one
func CompileAll(patterns []string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, raw := range patterns {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	return set, nil
}

// MatchAny reports whether any pattern in the set matches rel
func (s Set) MatchAny(rel string) bool {
	for _, p := range s {
		if p.Match(rel) {
			return true
		}
	}
	return false
}

// Strings returns the pattern texts
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = p.raw
	}
	return out
}
