// Package scratch tracks temporary files written for artifact images and
// previews so they can be released when the owner is done with them.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Dir is a private temporary directory with a set of live files.
type Dir struct {
	mu     sync.Mutex
	root   string
	files  map[string]struct{}
	closed bool
}

// New creates the backing directory under the system temp dir.
func New(prefix string) (*Dir, error) {
	root, err := os.MkdirTemp("", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Dir{
		root:  root,
		files: make(map[string]struct{}),
	}, nil
}

// Root returns the backing directory.
func (d *Dir) Root() string {
	return d.root
}

// Write stores data in a new file whose name is derived from name and
// returns its path. Calling Write after ReleaseAll is an error.
func (d *Dir) Write(name string, data []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", errors.New("scratch directory already released")
	}

	f, err := os.CreateTemp(d.root, pattern(name))
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close scratch file: %w", err)
	}

	d.files[f.Name()] = struct{}{}
	return f.Name(), nil
}

// Release removes one file. Releasing an unknown or already released path is a no-op.
func (d *Dir) Release(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.files[path]; !ok {
		return nil
	}
	delete(d.files, path)

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove scratch file: %w", err)
	}
	return nil
}

// Files returns the live paths in sorted order.
func (d *Dir) Files() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, len(d.files))
	for p := range d.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ReleaseAll removes every file and the directory itself. It is safe to call twice.
func (d *Dir) ReleaseAll() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.files = make(map[string]struct{})

	if err := os.RemoveAll(d.root); err != nil {
		return fmt.Errorf("failed to remove scratch directory: %w", err)
	}
	return nil
}

// pattern turns "chart.png" into "chart-*.png" for os.CreateTemp.
func pattern(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "file"
	}
	name = strings.ReplaceAll(name, "*", "")
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-*" + ext
}
