package planner

import (
	"slices"
	"strings"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/logging"
	"github.com/arthur-debert/stager/pkg/paths"
	"github.com/arthur-debert/stager/pkg/types"
)

// Options tune planning
type Options struct {
	// Strict turns any collision between entries placing different content
	// into an ErrConflict instead of letting the higher precedence win
	Strict bool
}

// Override records an entry discarded because another entry with higher
// precedence targets the same path
type Override struct {
	Target string
	Winner types.ResolvedEntry
	Loser  types.ResolvedEntry
}

// Result is a computed plan
type Result struct {
	// Actions is the ordered sequence handed to the executor
	Actions []types.Action

	// Overrides lists the collisions settled by precedence, in the order
	// they were found
	Overrides []Override
}

// Plan merges resolved (indexed like rules) into an action sequence. Any
// error aborts planning and no action is returned.
func Plan(rules []types.Rule, resolved [][]types.ResolvedEntry, opts Options) (*Result, error) {
	logger := logging.GetLogger("planner")

	if len(resolved) != len(rules) {
		return nil, errors.Newf(errors.ErrInternal,
			"got resolved entries for %d rules, expected %d", len(resolved), len(rules))
	}

	winners := make(map[string]types.ResolvedEntry)
	var overrides []Override

	for i, entries := range resolved {
		for _, entry := range entries {
			entry.RuleIndex = i

			target, err := paths.Normalize(entry.TargetPath)
			if err != nil {
				return nil, errors.Wrapf(err, errors.GetErrorCode(err),
					"rule %s maps %s to an invalid target", rules[i].Label(i), entry.RelativePath).
					WithDetail("rule", rules[i].Label(i)).
					WithDetail("target", entry.TargetPath)
			}
			entry.TargetPath = target

			current, exists := winners[target]
			if !exists {
				winners[target] = entry
				continue
			}
			if samePlacement(current, entry) {
				continue
			}
			if opts.Strict {
				return nil, errors.Newf(errors.ErrConflict,
					"rules %s and %s both target %s",
					rules[current.RuleIndex].Label(current.RuleIndex), rules[i].Label(i), target).
					WithDetail("target", target).
					WithDetail("sources", []string{current.SourcePath, entry.SourcePath})
			}

			winner, loser := current, entry
			if beats(rules, entry, current) {
				winner, loser = entry, current
			}
			winners[target] = winner
			overrides = append(overrides, Override{Target: target, Winner: winner, Loser: loser})

			logger.Debug().
				Str("target", target).
				Str("winner", winner.SourcePath).
				Str("discarded", loser.SourcePath).
				Msg("Target overridden")
		}
	}

	targets := make([]string, 0, len(winners))
	for target := range winners {
		targets = append(targets, target)
	}
	slices.SortFunc(targets, strings.Compare)

	actions := make([]types.Action, 0, len(targets)*2)
	seenDirs := make(map[string]bool)

	for _, target := range targets {
		entry := winners[target]

		for _, dir := range paths.Ancestors(target) {
			if other, isFile := winners[dir]; isFile {
				return nil, errors.Newf(errors.ErrNotADirectory,
					"%s is placed as a file but %s needs it to be a directory", dir, target).
					WithDetail("file", other.SourcePath).
					WithDetail("target", target)
			}
			if !seenDirs[dir] {
				seenDirs[dir] = true
				actions = append(actions, types.EnsureDir(dir))
			}
		}

		if entry.Literal {
			actions = append(actions, types.PlaceLink(entry.SourcePath, target))
		} else {
			actions = append(actions, types.PlaceFile(entry.SourcePath, target, entry.Mode, entry.Permissions))
		}

		// chmod through a symlink would change the source file
		if entry.Permissions != nil && entry.Mode != types.ModeSymlink {
			actions = append(actions, types.SetPermissions(target, *entry.Permissions))
		}
	}

	logger.Debug().
		Int("targets", len(targets)).
		Int("actions", len(actions)).
		Int("overrides", len(overrides)).
		Msg("Plan computed")

	return &Result{Actions: actions, Overrides: overrides}, nil
}

// beats reports whether a takes a target from b: higher rule precedence
// first, then later declaration, then later relative path.
func beats(rules []types.Rule, a, b types.ResolvedEntry) bool {
	pa, pb := rules[a.RuleIndex].Precedence, rules[b.RuleIndex].Precedence
	if pa != pb {
		return pa > pb
	}
	if a.RuleIndex != b.RuleIndex {
		return a.RuleIndex > b.RuleIndex
	}
	return a.RelativePath > b.RelativePath
}

// samePlacement reports whether two entries would produce the same target
func samePlacement(a, b types.ResolvedEntry) bool {
	if a.SourcePath != b.SourcePath || a.Mode != b.Mode || a.Literal != b.Literal {
		return false
	}
	if a.Permissions == nil || b.Permissions == nil {
		return a.Permissions == b.Permissions
	}
	return *a.Permissions == *b.Permissions
}
