package testutil

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/stager/pkg/filesystem"
	"github.com/arthur-debert/stager/pkg/types"
)

// EnvType defines the type of test environment
type EnvType int

const (
	EnvMemoryOnly EnvType = iota // Pure in-memory, no real filesystem
	EnvIsolated                  // Real filesystem in temp directory
)

// TestEnvironment holds a source tree and an output root on one filesystem
type TestEnvironment struct {
	// Root contains both trees
	Root string

	// SourceRoot is where SetupSource and WithFileTree create files
	SourceRoot string

	// OutputRoot is the staging destination; it is not created up front
	OutputRoot string

	FS   types.FS
	Type EnvType

	t *testing.T
}

// NewTestEnvironment creates a new test environment
func NewTestEnvironment(t *testing.T, envType EnvType) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{t: t, Type: envType}

	switch envType {
	case EnvMemoryOnly:
		env.Root = "/virtual"
		env.FS = filesystem.NewMemory()
	case EnvIsolated:
		env.Root = t.TempDir()
		env.FS = filesystem.NewOS()
	}

	env.SourceRoot = filepath.Join(env.Root, "src")
	env.OutputRoot = filepath.Join(env.Root, "out")

	if err := env.FS.MkdirAll(env.SourceRoot, 0755); err != nil {
		t.Fatalf("Failed to create source root: %v", err)
	}

	return env
}

// Path joins slash separated elements onto the environment root
func (env *TestEnvironment) Path(elem ...string) string {
	return filepath.Join(append([]string{env.Root}, elem...)...)
}

// SetupSource writes files (relative path -> content) under
// SourceRoot/name and returns that directory. An empty name writes
// directly into SourceRoot.
func (env *TestEnvironment) SetupSource(name string, files map[string]string) string {
	env.t.Helper()

	dir := filepath.Join(env.SourceRoot, name)
	if err := env.FS.MkdirAll(dir, 0755); err != nil {
		env.t.Fatalf("Failed to create source directory: %v", err)
	}

	for rel, content := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(rel))
		if err := env.FS.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			env.t.Fatalf("Failed to create directory for %s: %v", rel, err)
		}
		if err := env.FS.WriteFile(fullPath, []byte(content), 0644); err != nil {
			env.t.Fatalf("Failed to write file %s: %v", rel, err)
		}
	}

	return dir
}

// WithFileTree creates a complete file tree structure under SourceRoot
func (env *TestEnvironment) WithFileTree(tree FileTree) {
	env.t.Helper()
	createFileTree(env.t, env.FS, env.SourceRoot, tree)
}

// Symlink creates a link at path pointing to target, failing the test on
// error
func (env *TestEnvironment) Symlink(target, path string) {
	env.t.Helper()
	if err := env.FS.Symlink(target, path); err != nil {
		env.t.Fatalf("Failed to create symlink %s: %v", path, err)
	}
}

// FileTree represents a directory structure for testing. Values are either
// file contents (string) or nested trees.
type FileTree map[string]interface{}

// createFileTree recursively creates a file tree
func createFileTree(t *testing.T, fs types.FS, basePath string, tree FileTree) {
	t.Helper()

	for name, content := range tree {
		fullPath := filepath.Join(basePath, name)

		switch v := content.(type) {
		case string:
			if err := fs.WriteFile(fullPath, []byte(v), 0644); err != nil {
				t.Fatalf("Failed to write file %s: %v", fullPath, err)
			}
		case FileTree:
			if err := fs.MkdirAll(fullPath, 0755); err != nil {
				t.Fatalf("Failed to create directory %s: %v", fullPath, err)
			}
			createFileTree(t, fs, fullPath, v)
		default:
			t.Fatalf("Invalid file tree content type for %s: %T", name, content)
		}
	}
}
