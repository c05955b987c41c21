package testutil

import (
	"io/fs"
	"path/filepath"
	"sort"
	"testing"

	"github.com/arthur-debert/stager/pkg/types"
)

// AssertFileContent checks that path is a regular file holding content
func AssertFileContent(t *testing.T, fsys types.FS, path, content string) {
	t.Helper()

	info, err := fsys.Lstat(path)
	if err != nil {
		t.Errorf("Expected file %s: %v", path, err)
		return
	}
	if !info.Mode().IsRegular() {
		t.Errorf("Expected %s to be a regular file, got mode %v", path, info.Mode())
		return
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		t.Errorf("Failed to read %s: %v", path, err)
		return
	}
	if string(data) != content {
		t.Errorf("File %s content = %q, want %q", path, string(data), content)
	}
}

// AssertSymlink checks that path is a symlink pointing at target
func AssertSymlink(t *testing.T, fsys types.FS, path, target string) {
	t.Helper()

	info, err := fsys.Lstat(path)
	if err != nil {
		t.Errorf("Expected symlink %s: %v", path, err)
		return
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		t.Errorf("Expected %s to be a symlink, got mode %v", path, info.Mode())
		return
	}
	got, err := fsys.Readlink(path)
	if err != nil {
		t.Errorf("Failed to read link %s: %v", path, err)
		return
	}
	if got != target {
		t.Errorf("Symlink %s points to %q, want %q", path, got, target)
	}
}

// AssertDir checks that path is a directory
func AssertDir(t *testing.T, fsys types.FS, path string) {
	t.Helper()

	info, err := fsys.Stat(path)
	if err != nil {
		t.Errorf("Expected directory %s: %v", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("Expected %s to be a directory", path)
	}
}

// AssertPerm checks the permission bits of path (following symlinks)
func AssertPerm(t *testing.T, fsys types.FS, path string, perm fs.FileMode) {
	t.Helper()

	info, err := fsys.Stat(path)
	if err != nil {
		t.Errorf("Expected %s to exist: %v", path, err)
		return
	}
	if got := info.Mode().Perm(); got != perm {
		t.Errorf("Permissions of %s = %04o, want %04o", path, got, perm)
	}
}

// AssertNotExists checks that nothing (not even a dangling link) is at path
func AssertNotExists(t *testing.T, fsys types.FS, path string) {
	t.Helper()

	if _, err := fsys.Lstat(path); err == nil {
		t.Errorf("Expected %s not to exist", path)
	}
}

// Snapshot lists every entry below root as slash separated relative paths,
// with a trailing "/" for directories and " -> target" for symlinks. It
// makes whole-tree comparisons (idempotence, dry runs) one assertion.
func Snapshot(t *testing.T, fsys types.FS, root string) []string {
	t.Helper()

	var out []string
	var walk func(dir, rel string)
	walk = func(dir, rel string) {
		entries, err := fsys.ReadDir(dir)
		if err != nil {
			t.Fatalf("Failed to read %s: %v", dir, err)
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			childRel := entry.Name()
			if rel != "" {
				childRel = rel + "/" + entry.Name()
			}
			switch {
			case entry.Type()&fs.ModeSymlink != 0:
				target, err := fsys.Readlink(full)
				if err != nil {
					t.Fatalf("Failed to read link %s: %v", full, err)
				}
				out = append(out, childRel+" -> "+target)
			case entry.IsDir():
				out = append(out, childRel+"/")
				walk(full, childRel)
			default:
				data, err := fsys.ReadFile(full)
				if err != nil {
					t.Fatalf("Failed to read %s: %v", full, err)
				}
				out = append(out, childRel+" = "+string(data))
			}
		}
	}
	walk(root, "")
	sort.Strings(out)
	return out
}
