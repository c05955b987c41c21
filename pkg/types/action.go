package types

import (
	"fmt"
	"io/fs"
)

// ActionKind defines the type of filesystem action
type ActionKind string

const (
	// ActionEnsureDir creates a directory (and missing ancestors)
	ActionEnsureDir ActionKind = "ensure_dir"

	// ActionPlaceFile copies or links a source file to its target
	ActionPlaceFile ActionKind = "place_file"

	// ActionSetPermissions changes the permission bits of a placed file
	ActionSetPermissions ActionKind = "set_permissions"
)

// Action is one atomic filesystem operation of a staging plan. Paths are
// relative to the output root, slash separated and normalized.
type Action struct {
	// Kind is the type of action
	Kind ActionKind

	// Path is the directory for EnsureDir and the target for PlaceFile and SetPermissions
	Path string

	// Source is the file being placed (PlaceFile only)
	Source string

	// Mode selects copy or symlink (PlaceFile only)
	Mode PlacementMode

	// Permissions holds explicit bits (SetPermissions, and PlaceFile when the rule set them)
	Permissions *fs.FileMode

	// Literal keeps Source as the exact link text of a symlink
	Literal bool
}

// EnsureDir builds a directory creation action
func EnsureDir(path string) Action {
	return Action{Kind: ActionEnsureDir, Path: path}
}

// PlaceFile builds a file placement action
func PlaceFile(source, target string, mode PlacementMode, perm *fs.FileMode) Action {
	return Action{Kind: ActionPlaceFile, Path: target, Source: source, Mode: mode, Permissions: perm}
}

// PlaceLink builds a symlink placement whose content is text, verbatim
func PlaceLink(text, target string) Action {
	return Action{Kind: ActionPlaceFile, Path: target, Source: text, Mode: ModeSymlink, Literal: true}
}

// SetPermissions builds a permission change action
func SetPermissions(path string, bits fs.FileMode) Action {
	return Action{Kind: ActionSetPermissions, Path: path, Permissions: Perm(bits)}
}

// String renders the action the way a shell transcript would, for dry runs
func (a Action) String() string {
	switch a.Kind {
	case ActionEnsureDir:
		return fmt.Sprintf("mkdir -p %s", a.Path)
	case ActionPlaceFile:
		if a.Mode == ModeSymlink {
			return fmt.Sprintf("ln -sf %s %s", a.Source, a.Path)
		}
		return fmt.Sprintf("cp %s %s", a.Source, a.Path)
	case ActionSetPermissions:
		if a.Permissions == nil {
			return fmt.Sprintf("chmod ? %s", a.Path)
		}
		return fmt.Sprintf("chmod %04o %s", uint32(*a.Permissions), a.Path)
	default:
		return fmt.Sprintf("%s %s", a.Kind, a.Path)
	}
}
