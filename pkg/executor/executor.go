package executor

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/filesystem"
	"github.com/arthur-debert/stager/pkg/logging"
	"github.com/arthur-debert/stager/pkg/paths"
	"github.com/arthur-debert/stager/pkg/types"
	"github.com/rs/zerolog"
)

// dirPerm is used for every directory the executor creates
const dirPerm fs.FileMode = 0755

// Options contains configuration for the executor
type Options struct {
	// DryRun reports every action as applied without touching the filesystem
	DryRun bool

	// Logger overrides the component logger
	Logger *zerolog.Logger

	// Filesystem operations interface for testing
	FS types.FS
}

// Executor applies actions to a filesystem
type Executor struct {
	dryRun bool
	logger zerolog.Logger
	fs     types.FS
}

// New creates a new executor instance
func New(opts Options) *Executor {
	logger := logging.GetLogger("executor")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = filesystem.NewOS()
	}

	return &Executor{
		dryRun: opts.DryRun,
		logger: logger,
		fs:     fsys,
	}
}

// Apply runs actions below outputRoot and reports how far it got
func (e *Executor) Apply(actions []types.Action, outputRoot string) types.ExecutionReport {
	return e.ApplyContext(context.Background(), actions, outputRoot)
}

// ApplyContext is Apply with cancellation checked between actions. A
// cancelled run reports the first action that was not started as failed.
func (e *Executor) ApplyContext(ctx context.Context, actions []types.Action, outputRoot string) types.ExecutionReport {
	report := types.ExecutionReport{
		Applied:     make([]types.Action, 0, len(actions)),
		FailedIndex: -1,
		DryRun:      e.dryRun,
	}

	defer logging.LogOperationStart(e.logger, "apply")()

	for i, action := range actions {
		err := ctx.Err()
		if err == nil {
			err = e.executeAction(action, outputRoot)
		}
		if err != nil {
			failed := action
			report.Failed = &failed
			report.FailedIndex = i
			report.Error = err

			e.logger.Error().
				Err(err).
				Int("index", i).
				Str("action", action.String()).
				Int("applied", len(report.Applied)).
				Msg("Action failed, stopping")
			return report
		}
		report.Applied = append(report.Applied, action)
	}

	e.logger.Info().
		Int("actions", len(report.Applied)).
		Str("output", outputRoot).
		Bool("dry_run", e.dryRun).
		Msg("Plan applied")

	return report
}

// executeAction executes a single action
func (e *Executor) executeAction(action types.Action, root string) error {
	logger := e.logger.With().Str("path", action.Path).Bool("dry_run", e.dryRun).Logger()
	defer logging.LogOperationStart(logger, string(action.Kind))()

	target, err := paths.JoinRoot(root, action.Path)
	if err != nil {
		return err
	}
	if err := e.rejectLinkedDirs(root, action); err != nil {
		return err
	}

	if e.dryRun {
		return nil
	}

	switch action.Kind {
	case types.ActionEnsureDir:
		err = e.ensureDir(target)
	case types.ActionPlaceFile:
		if action.Mode == types.ModeSymlink {
			err = e.placeSymlink(action.Source, target, action.Literal)
		} else {
			err = e.placeCopy(action.Source, target, action.Permissions)
		}
	case types.ActionSetPermissions:
		err = e.setPermissions(target, action.Permissions)
	default:
		err = errors.Newf(errors.ErrInternal, "unknown action kind %q", action.Kind)
	}
	return err
}

// rejectLinkedDirs fails when a directory the action writes into, or the
// directory EnsureDir names, is a symlink below root. Writing through it
// would land outside the output root.
func (e *Executor) rejectLinkedDirs(root string, action types.Action) error {
	rel, err := paths.Normalize(action.Path)
	if err != nil {
		return err
	}

	dirs := paths.Ancestors(rel)
	if action.Kind == types.ActionEnsureDir {
		dirs = append(dirs, rel)
	}

	for _, dir := range dirs {
		full := filepath.Join(root, filepath.FromSlash(dir))
		info, err := e.fs.Lstat(full)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return ioFailure(err, "cannot stat %s", full)
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return errors.Newf(errors.ErrPathEscape,
				"%s is a symlink, refusing to write through it", full).
				WithDetail("path", full)
		}
		if !info.IsDir() {
			// the action itself reports the file in the way
			return nil
		}
	}
	return nil
}

func (e *Executor) ensureDir(path string) error {
	info, err := e.fs.Stat(path)
	if err == nil {
		if info.IsDir() {
			return nil
		}
		return notADirectory(path)
	}
	if !os.IsNotExist(err) {
		return ioFailure(err, "cannot stat %s", path)
	}

	if err := e.fs.MkdirAll(path, dirPerm); err != nil {
		if stderrors.Is(err, syscall.ENOTDIR) {
			return errors.Wrapf(err, errors.ErrNotADirectory,
				"cannot create %s: an ancestor is not a directory", path).
				WithDetail("path", path)
		}
		return ioFailure(err, "cannot create directory %s", path)
	}
	return nil
}

// requireParent checks that the directory holding path exists
func (e *Executor) requireParent(path string) error {
	parent := filepath.Dir(path)
	info, err := e.fs.Stat(parent)
	if err != nil {
		return ioFailure(err, "parent directory of %s is missing", path)
	}
	if !info.IsDir() {
		return notADirectory(parent)
	}
	return nil
}

// clearTarget removes whatever is at path unless it is a writable regular
// file, which is overwritten in place. A file without the owner write bit
// cannot be opened for writing and is removed. Directories are never
// removed.
func (e *Executor) clearTarget(path string, removeFiles bool) error {
	info, err := e.fs.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ioFailure(err, "cannot stat %s", path)
	}

	switch {
	case info.IsDir():
		return errors.Newf(errors.ErrIOFailure, "a directory is in the way at %s", path).
			WithDetail("path", path)
	case info.Mode()&fs.ModeSymlink != 0, removeFiles, info.Mode().Perm()&0200 == 0:
		if err := e.fs.Remove(path); err != nil {
			return ioFailure(err, "cannot remove %s", path)
		}
	}
	return nil
}

func (e *Executor) placeCopy(source, target string, perm *fs.FileMode) error {
	if err := e.requireParent(target); err != nil {
		return err
	}

	srcInfo, err := e.fs.Stat(source)
	if err != nil {
		return ioFailure(err, "cannot stat source %s", source)
	}
	if srcInfo.IsDir() {
		return errors.Newf(errors.ErrIOFailure, "source %s is a directory", source).
			WithDetail("path", source)
	}

	data, err := e.fs.ReadFile(source)
	if err != nil {
		return ioFailure(err, "cannot read %s", source)
	}

	// never write through a link left by an earlier symlink run
	if err := e.clearTarget(target, false); err != nil {
		return err
	}

	mode := srcInfo.Mode().Perm()
	if perm != nil {
		mode = perm.Perm()
	}

	if err := e.fs.WriteFile(target, data, mode); err != nil {
		return ioFailure(err, "cannot write %s", target)
	}
	// WriteFile keeps the mode of an existing file
	if err := e.fs.Chmod(target, mode); err != nil {
		return ioFailure(err, "cannot set permissions on %s", target)
	}
	return nil
}

// placeSymlink links target to source. A literal source is the link text
// and is written as given.
func (e *Executor) placeSymlink(source, target string, literal bool) error {
	if err := e.requireParent(target); err != nil {
		return err
	}

	if !literal && !filepath.IsAbs(source) {
		abs, err := filepath.Abs(source)
		if err != nil {
			return ioFailure(err, "cannot make %s absolute", source)
		}
		source = abs
	}

	if current, err := e.fs.Readlink(target); err == nil && current == source {
		return nil
	}

	if err := e.clearTarget(target, true); err != nil {
		return err
	}

	if err := e.fs.Symlink(source, target); err != nil {
		return ioFailure(err, "cannot link %s to %s", target, source)
	}
	return nil
}

func (e *Executor) setPermissions(path string, perm *fs.FileMode) error {
	if perm == nil {
		return errors.Newf(errors.ErrInvalidInput, "no permission bits given for %s", path)
	}

	info, err := e.fs.Lstat(path)
	if err != nil {
		return ioFailure(err, "cannot stat %s", path)
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return errors.Newf(errors.ErrIOFailure,
			"refusing to change permissions through symlink %s", path).
			WithDetail("path", path)
	}

	if err := e.fs.Chmod(path, perm.Perm()); err != nil {
		return ioFailure(err, "cannot set permissions on %s", path)
	}
	return nil
}

func notADirectory(path string) error {
	return errors.Newf(errors.ErrNotADirectory, "%s exists and is not a directory", path).
		WithDetail("path", path)
}

func ioFailure(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, errors.ErrIOFailure, format, args...)
}
