package resolver

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/filesystem"
	"github.com/arthur-debert/stager/pkg/glob"
	"github.com/arthur-debert/stager/pkg/logging"
	"github.com/arthur-debert/stager/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxLinkDepth bounds how many followed directory symlinks may be nested
// on one walk path. It catches cycles the SameFile check cannot see, such
// as those on filesystems without inode identity.
const maxLinkDepth = 40

// Resolver expands rules into resolved entries
type Resolver struct {
	fs     types.FS
	logger zerolog.Logger
}

// New creates a resolver reading from fsys (the OS filesystem when nil)
func New(fsys types.FS) *Resolver {
	if fsys == nil {
		fsys = filesystem.NewOS()
	}
	return &Resolver{
		fs:     fsys,
		logger: logging.GetLogger("resolver"),
	}
}

// compiledRule holds a rule with its patterns compiled
type compiledRule struct {
	types.Rule
	include glob.Set
	exclude glob.Set
}

func compile(rule types.Rule) (*compiledRule, error) {
	for _, alias := range rule.Aliases {
		if err := ValidateAlias(alias); err != nil {
			return nil, err
		}
	}
	includes := rule.Include
	if len(includes) == 0 {
		includes = []string{"**"}
	}
	include, err := glob.CompileAll(includes)
	if err != nil {
		return nil, err
	}
	exclude, err := glob.CompileAll(rule.Exclude)
	if err != nil {
		return nil, err
	}
	return &compiledRule{Rule: rule, include: include, exclude: exclude}, nil
}

// Resolve walks the rule's source root and returns the matching entries
// sorted by relative path. RuleIndex is left at zero; ResolveAll fills it.
func (r *Resolver) Resolve(rule types.Rule) ([]types.ResolvedEntry, error) {
	if rule.IsLink() {
		return []types.ResolvedEntry{linkEntry(rule)}, nil
	}

	cr, err := compile(rule)
	if err != nil {
		return nil, errors.Wrapf(err, errors.GetErrorCode(err),
			"rule %q is invalid", rule.Name).
			WithDetail("rule", rule.Name)
	}

	logger := r.logger.With().
		Str("rule", rule.Name).
		Str("source", rule.SourceRoot).
		Logger()

	if rule.SourceRoot == "" {
		return nil, errors.Newf(errors.ErrNotFound, "rule %q has no source root", rule.Name).
			WithDetail("rule", rule.Name)
	}

	info, err := r.fs.Stat(rule.SourceRoot)
	if err != nil {
		if os.IsNotExist(err) {
			if rule.Optional {
				logger.Info().Msg("Optional source root is missing, skipping rule")
				return nil, nil
			}
			return nil, errors.Wrapf(err, errors.ErrNotFound,
				"source root %s of rule %q does not exist", rule.SourceRoot, rule.Name).
				WithDetail("rule", rule.Name).
				WithDetail("path", rule.SourceRoot)
		}
		return nil, errors.Wrapf(err, errors.ErrIOFailure,
			"cannot stat source root %s", rule.SourceRoot).
			WithDetail("path", rule.SourceRoot)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrNotADirectory,
			"source root %s of rule %q is not a directory", rule.SourceRoot, rule.Name).
			WithDetail("rule", rule.Name).
			WithDetail("path", rule.SourceRoot)
	}

	w := &walker{
		fs:     r.fs,
		rule:   cr,
		logger: logger,
	}
	if err := w.walk(rule.SourceRoot, "", []fs.FileInfo{info}, 0); err != nil {
		return nil, err
	}

	if len(w.entries) == 0 && !rule.AllowEmpty && !rule.Optional {
		return nil, errors.Newf(errors.ErrNotFound,
			"no files found under %s with patterns %v", rule.SourceRoot, cr.include.Strings()).
			WithDetail("rule", rule.Name).
			WithDetail("path", rule.SourceRoot)
	}

	sortEntries(w.entries)

	logger.Debug().
		Int("entries", len(w.entries)).
		Msg("Resolved rule")

	return w.entries, nil
}

// ResolveAll resolves every rule, running up to jobs walks at a time
// (GOMAXPROCS when jobs <= 0). The result is indexed like rules and is
// identical to resolving the rules one after another. When several rules
// fail, the error of the first failing rule in declaration order is
// returned.
func (r *Resolver) ResolveAll(ctx context.Context, rules []types.Rule, jobs int) ([][]types.ResolvedEntry, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([][]types.ResolvedEntry, len(rules))
	errs := make([]error, len(rules))

	var g errgroup.Group
	g.SetLimit(jobs)
	for i, rule := range rules {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			entries, err := r.Resolve(rule)
			if err != nil {
				errs[i] = err
				return nil
			}
			for j := range entries {
				entries[j].RuleIndex = i
			}
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// walker accumulates the entries of one rule
type walker struct {
	fs      types.FS
	rule    *compiledRule
	logger  zerolog.Logger
	entries []types.ResolvedEntry
}

// walk visits dir, whose path relative to the source root is rel. chain
// holds the directories on the current path for cycle detection.
func (w *walker) walk(dir, rel string, chain []fs.FileInfo, linkDepth int) error {
	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "cannot read directory %s", dir).
			WithDetail("path", dir)
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		childRel := path.Join(rel, entry.Name())

		switch {
		case entry.IsDir():
			if w.excluded(childRel) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				return errors.Wrapf(err, errors.ErrIOFailure, "cannot stat %s", full)
			}
			if err := w.walk(full, childRel, append(chain, info), linkDepth); err != nil {
				return err
			}

		case entry.Type()&fs.ModeSymlink != 0:
			info, err := w.fs.Stat(full)
			if err != nil {
				w.logger.Warn().Err(err).Str("path", full).Msg("Skipping broken symlink")
				continue
			}
			if !info.IsDir() {
				w.consider(full, childRel)
				continue
			}
			if w.excluded(childRel) {
				continue
			}
			if !w.rule.FollowSymlinks {
				w.logger.Debug().Str("path", full).Msg("Not following symlinked directory")
				continue
			}
			if onChain(chain, info) || linkDepth >= maxLinkDepth {
				w.logger.Warn().Str("path", full).Msg("Symlink cycle detected, not descending")
				continue
			}
			if err := w.walk(full, childRel, append(chain, info), linkDepth+1); err != nil {
				return err
			}

		default:
			w.consider(full, childRel)
		}
	}
	return nil
}

// consider records the file if the rule's patterns select it
func (w *walker) consider(full, rel string) {
	if !w.rule.include.MatchAny(rel) {
		return
	}
	if w.excluded(rel) {
		return
	}

	target := ExpandTarget(w.rule.TargetTemplate, rel)
	w.entries = append(w.entries, types.ResolvedEntry{
		SourcePath:   full,
		RelativePath: rel,
		TargetPath:   target,
		Mode:         modeOrDefault(w.rule.Mode),
		Permissions:  w.rule.Permissions,
	})

	for _, alias := range w.rule.Aliases {
		name := ExpandTarget(alias, rel)
		if name == path.Base(target) {
			w.logger.Warn().Str("path", rel).Str("alias", alias).Msg("Alias names the staged file itself, skipping")
			continue
		}
		w.entries = append(w.entries, types.ResolvedEntry{
			SourcePath:   path.Base(target),
			RelativePath: rel,
			TargetPath:   path.Join(path.Dir(target), name),
			Mode:         types.ModeSymlink,
			Literal:      true,
		})
	}
}

// excluded reports whether rel, a file or a directory, matches an exclude
// pattern. Excluded directories are not descended into.
func (w *walker) excluded(rel string) bool {
	if !w.rule.exclude.MatchAny(rel) {
		return false
	}
	w.logger.Trace().Str("path", rel).Msg("Excluded")
	return true
}

// linkEntry resolves a link rule to its single symlink
func linkEntry(rule types.Rule) types.ResolvedEntry {
	name := path.Base(filepath.ToSlash(rule.LinkTarget))
	target := rule.TargetTemplate
	if target == "" || strings.HasSuffix(target, "/") {
		target += name
	}
	return types.ResolvedEntry{
		SourcePath:   rule.LinkTarget,
		RelativePath: name,
		TargetPath:   target,
		Mode:         types.ModeSymlink,
		Literal:      true,
	}
}

// ValidateAlias requires an alias to name a sibling of the staged file
func ValidateAlias(alias string) error {
	switch {
	case alias == "", alias == ".", alias == "..",
		strings.ContainsAny(alias, `/\`),
		strings.Contains(alias, PlaceholderRelativePath),
		strings.Contains(alias, PlaceholderDir):
		return errors.Newf(errors.ErrInvalidInput,
			"alias %q must be a single file name", alias).
			WithDetail("alias", alias)
	}
	return nil
}

func onChain(chain []fs.FileInfo, info fs.FileInfo) bool {
	for _, seen := range chain {
		if os.SameFile(seen, info) {
			return true
		}
	}
	return false
}

func modeOrDefault(mode types.PlacementMode) types.PlacementMode {
	if mode == "" {
		return types.ModeCopy
	}
	return mode
}

func sortEntries(entries []types.ResolvedEntry) {
	// byte-wise, independent of locale and of enumeration order
	slices.SortFunc(entries, func(a, b types.ResolvedEntry) int {
		if c := strings.Compare(a.RelativePath, b.RelativePath); c != 0 {
			return c
		}
		return strings.Compare(a.TargetPath, b.TargetPath)
	})
}
