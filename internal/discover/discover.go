// Package discover enumerates candidate image files beneath an input path.
//
// Directory entries are visited in lexical order within each directory, so
// two runs over an unchanged tree yield the same sequence. Candidates are
// handed to a callback as they are found; the tree is never buffered.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound   = errors.New("input path not found")
	ErrUnreadable = errors.New("input path unreadable")
)

// Candidate is one discovered file.
type Candidate struct {
	// Path is absolute and rooted at the path the walker was created with.
	Path string
	// RelPath is relative to the discovery root; empty when the root is a file.
	RelPath string
}

// ErrorHandler receives entries that could not be read below the root.
type ErrorHandler func(path string, err error)

// Walker discovers candidates under a single root.
type Walker struct {
	root     string
	walkRoot string
	isDir    bool
	prune    []string
	onError  ErrorHandler
}

// Option configures a Walker.
type Option func(*Walker)

// WithPrune skips the directory subtree at dir, typically an output root
// nested inside the input tree.
func WithPrune(dir string) Option {
	return func(w *Walker) {
		if dir == "" {
			return
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		w.prune = append(w.prune, abs)
	}
}

// WithErrorHandler reports unreadable entries below the root. Without a
// handler they are skipped silently.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Walker) {
		w.onError = h
	}
}

// Locate resolves root to an absolute path and reports whether it is a
// directory.
func Locate(root string) (string, bool, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", false, fmt.Errorf("%w: %s: %v", ErrUnreadable, root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return "", false, fmt.Errorf("%w: %s: %v", ErrUnreadable, root, err)
	}
	return abs, info.IsDir(), nil
}

// New checks root and prepares a walker for it.
func New(root string, opts ...Option) (*Walker, error) {
	abs, isDir, err := Locate(root)
	if err != nil {
		return nil, err
	}

	w := &Walker{root: abs, walkRoot: abs, isDir: isDir}
	for _, opt := range opts {
		opt(w)
	}

	if !w.isDir {
		return w, nil
	}

	// filepath.WalkDir does not descend into a symlinked root.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		w.walkRoot = resolved
	}
	if err := checkListable(w.walkRoot); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, root, err)
	}

	// Only subtrees strictly inside the walked tree can be pruned.
	kept := w.prune[:0]
	for _, p := range w.prune {
		if p != w.walkRoot && isWithin(p, w.walkRoot) {
			kept = append(kept, p)
		}
	}
	w.prune = kept
	return w, nil
}

// Root returns the absolute discovery root.
func (w *Walker) Root() string { return w.root }

// IsDir reports whether the root is a directory.
func (w *Walker) IsDir() bool { return w.isDir }

// Walk calls visit for every candidate. It stops early when ctx is done or
// visit returns an error, and returns that error.
func (w *Walker) Walk(ctx context.Context, visit func(Candidate) error) error {
	if !w.isDir {
		return visit(Candidate{Path: w.root})
	}

	return filepath.WalkDir(w.walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == w.walkRoot {
				return fmt.Errorf("%w: %s: %v", ErrUnreadable, w.root, walkErr)
			}
			w.report(path, walkErr)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != w.walkRoot && w.pruned(path) {
				return fs.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			// Links are followed only to regular files.
			info, err := os.Stat(path)
			if err != nil {
				w.report(path, err)
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(w.walkRoot, path)
		if err != nil {
			return err
		}
		return visit(Candidate{
			Path:    filepath.Join(w.root, rel),
			RelPath: rel,
		})
	})
}

func (w *Walker) pruned(dir string) bool {
	for _, p := range w.prune {
		if isWithin(dir, p) {
			return true
		}
	}
	return false
}

func (w *Walker) report(path string, err error) {
	if w.onError != nil {
		w.onError(path, err)
	}
}

func checkListable(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func isWithin(path string, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return true
}
