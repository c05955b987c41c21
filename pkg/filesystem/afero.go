package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/stager/pkg/types"
	"github.com/spf13/afero"
)

// aferoFS implements types.FS using afero
type aferoFS struct {
	fs afero.Fs

	// afero's MemMapFs has no symlinks, so links are tracked here and
	// backed by a placeholder file holding the link target.
	mu    sync.RWMutex
	links map[string]string
}

// NewAferoFS creates a new afero filesystem implementation
func NewAferoFS(fs afero.Fs) types.FS {
	return &aferoFS{fs: fs, links: make(map[string]string)}
}

// NewMemory creates an empty in-memory filesystem
func NewMemory() types.FS {
	return NewAferoFS(afero.NewMemMapFs())
}

// NewOverlay reads through to the OS filesystem and keeps every write in
// memory, so a full apply can be rehearsed without touching the disk.
func NewOverlay() types.FS {
	base := afero.NewReadOnlyFs(afero.NewOsFs())
	return NewAferoFS(afero.NewCopyOnWriteFs(base, afero.NewMemMapFs()))
}

func (a *aferoFS) linkTarget(name string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	target, ok := a.links[filepath.Clean(name)]
	return target, ok
}

// follow resolves every emulated link along name, giving up after a few
// hops the way the kernel does with ELOOP.
func (a *aferoFS) follow(name string) string {
	name = filepath.Clean(name)
	for i := 0; i < 40; i++ {
		resolved, ok := a.resolveOnce(name)
		if !ok {
			return name
		}
		name = resolved
	}
	return name
}

// followParent resolves the links leading to name but not name itself
func (a *aferoFS) followParent(name string) string {
	name = filepath.Clean(name)
	return filepath.Join(a.follow(filepath.Dir(name)), filepath.Base(name))
}

// resolveOnce replaces the outermost linked prefix of name with the link
// target
func (a *aferoFS) resolveOnce(name string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.links) == 0 {
		return name, false
	}
	parts := strings.Split(name, string(filepath.Separator))
	for i := range parts {
		prefix := strings.Join(parts[:i+1], string(filepath.Separator))
		if prefix == "" {
			continue
		}
		target, ok := a.links[prefix]
		if !ok {
			continue
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(prefix), target)
		}
		return filepath.Join(append([]string{target}, parts[i+1:]...)...), true
	}
	return name, false
}

func (a *aferoFS) Stat(name string) (fs.FileInfo, error) {
	return a.fs.Stat(a.follow(name))
}

func (a *aferoFS) ReadFile(name string) ([]byte, error) {
	name = a.follow(name)
	info, err := a.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return afero.ReadFile(a.fs, name)
}

func (a *aferoFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(a.fs, a.follow(name), data, perm)
}

func (a *aferoFS) Chmod(name string, mode fs.FileMode) error {
	return a.fs.Chmod(a.follow(name), mode)
}

func (a *aferoFS) MkdirAll(path string, perm fs.FileMode) error {
	return a.fs.MkdirAll(a.follow(path), perm)
}

func (a *aferoFS) ReadDir(name string) ([]fs.DirEntry, error) {
	dir := a.follow(name)
	entries, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		return nil, err
	}
	dirEntries := make([]fs.DirEntry, len(entries))
	for i, entry := range entries {
		if target, ok := a.linkTarget(filepath.Join(dir, entry.Name())); ok {
			entry = &linkInfo{name: entry.Name(), target: target}
		}
		dirEntries[i] = fs.FileInfoToDirEntry(entry)
	}
	return dirEntries, nil
}

func (a *aferoFS) Symlink(oldname, newname string) error {
	newname = a.followParent(newname)
	if _, err := a.Lstat(newname); err == nil {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: fs.ErrExist}
	}
	if err := afero.WriteFile(a.fs, newname, []byte(oldname), 0777); err != nil {
		return err
	}
	a.mu.Lock()
	a.links[filepath.Clean(newname)] = oldname
	a.mu.Unlock()
	return nil
}

func (a *aferoFS) Readlink(name string) (string, error) {
	name = a.followParent(name)
	if target, ok := a.linkTarget(name); ok {
		return target, nil
	}
	if reader, ok := a.fs.(afero.LinkReader); ok {
		return reader.ReadlinkIfPossible(name)
	}
	if _, err := a.fs.Stat(name); err != nil {
		return "", err
	}
	return "", &fs.PathError{Op: "readlink", Path: name, Err: fs.ErrInvalid}
}

func (a *aferoFS) Remove(name string) error {
	name = a.followParent(name)
	if err := a.fs.Remove(name); err != nil {
		return err
	}
	a.mu.Lock()
	delete(a.links, filepath.Clean(name))
	a.mu.Unlock()
	return nil
}

func (a *aferoFS) Lstat(name string) (fs.FileInfo, error) {
	name = a.followParent(name)
	if target, ok := a.linkTarget(name); ok {
		return &linkInfo{name: filepath.Base(name), target: target}, nil
	}
	if lstater, ok := a.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(name)
		return info, err
	}
	return a.fs.Stat(name)
}

// linkInfo describes an emulated symlink
type linkInfo struct {
	name   string
	target string
}

func (l *linkInfo) Name() string       { return l.name }
func (l *linkInfo) Size() int64        { return int64(len(l.target)) }
func (l *linkInfo) Mode() fs.FileMode  { return fs.ModeSymlink | 0777 }
func (l *linkInfo) ModTime() time.Time { return time.Time{} }
func (l *linkInfo) IsDir() bool        { return false }
func (l *linkInfo) Sys() interface{}   { return nil }
