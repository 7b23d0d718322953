package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func collect(t *testing.T, w *Walker) []Candidate {
	t.Helper()
	var out []Candidate
	require.NoError(t, w.Walk(context.Background(), func(c Candidate) error {
		out = append(out, c)
		return nil
	}))
	return out
}

func relPaths(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, filepath.ToSlash(c.RelPath))
	}
	return out
}

func TestWalkDirectoryIsSortedAndRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.png"))
	writeFile(t, filepath.Join(root, "a.jpg"))
	writeFile(t, filepath.Join(root, "sub", "z.gif"))
	writeFile(t, filepath.Join(root, "sub", "deeper", "c.jpg"))
	writeFile(t, filepath.Join(root, "c.txt"))

	w, err := New(root)
	require.NoError(t, err)
	assert.True(t, w.IsDir())

	cands := collect(t, w)
	assert.Equal(t, []string{
		"a.jpg",
		"b.png",
		"c.txt",
		"sub/deeper/c.jpg",
		"sub/z.gif",
	}, relPaths(cands))

	for _, c := range cands {
		assert.True(t, filepath.IsAbs(c.Path))
		assert.Equal(t, filepath.Join(w.Root(), c.RelPath), c.Path)
	}

	// a second pass yields the identical sequence
	assert.Equal(t, cands, collect(t, w))
}

func TestWalkSingleFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "photo.jpg")
	writeFile(t, path)

	w, err := New(path)
	require.NoError(t, err)
	assert.False(t, w.IsDir())

	cands := collect(t, w)
	require.Len(t, cands, 1)
	assert.Equal(t, path, cands[0].Path)
	assert.Empty(t, cands[0].RelPath)
}

func TestNewNotFound(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewUnreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := New(locked)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestWalkSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "target.png"))
	writeFile(t, filepath.Join(outside, "dir", "inner.png"))

	require.NoError(t, os.Symlink(filepath.Join(outside, "target.png"), filepath.Join(root, "link.png")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "linkdir")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "gone.png"), filepath.Join(root, "dangling.png")))

	var reported []string
	w, err := New(root, WithErrorHandler(func(path string, err error) {
		reported = append(reported, filepath.Base(path))
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"link.png"}, relPaths(collect(t, w)))
	assert.Equal(t, []string{"dangling.png"}, reported)
}

func TestWalkPrunesNestedOutput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))
	writeFile(t, filepath.Join(root, "out", "a.jpg"))

	w, err := New(root, WithPrune(filepath.Join(root, "out")))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, relPaths(collect(t, w)))

	// pruning the root itself or a parent of it is ignored
	w, err = New(root, WithPrune(root), WithPrune(filepath.Dir(root)))
	require.NoError(t, err)
	assert.Len(t, collect(t, w), 2)
}

func TestWalkStopsOnVisitError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))
	writeFile(t, filepath.Join(root, "b.jpg"))

	w, err := New(root)
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	err = w.Walk(context.Background(), func(Candidate) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestWalkHonoursContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"))

	w, err := New(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = w.Walk(ctx, func(Candidate) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithinRoot(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "data")
	assert.True(t, isWithin(base, base))
	assert.True(t, isWithin(filepath.Join(base, "x", "y"), base))
	assert.False(t, isWithin(filepath.Join(string(filepath.Separator), "database"), base))
	assert.False(t, isWithin(string(filepath.Separator), base))
	assert.True(t, isWithin(filepath.Join(base, "..hidden"), base))
}
