package options

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	p := Defaults()
	p.SideMaximum = 1920

	opts, err := Build(p)
	require.NoError(t, err)

	assert.Equal(t, 1920, opts.SideMaximum)
	assert.Equal(t, DefaultQuality, opts.Quality)
	assert.True(t, opts.Sharpen)
	assert.False(t, opts.ForceOverwrite)
	assert.Zero(t, opts.PPI)
	assert.Equal(t, runtime.NumCPU(), opts.Threads)
}

func TestBuildThreads(t *testing.T) {
	p := Defaults()
	p.SideMaximum = 100
	p.Threads = 3

	opts, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Threads)

	p.SingleThread = true
	opts, err = Build(p)
	require.NoError(t, err)
	assert.Equal(t, 1, opts.Threads)
}

func TestBuildRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"missing side maximum", func(p *Params) { p.SideMaximum = 0 }},
		{"negative side maximum", func(p *Params) { p.SideMaximum = -5 }},
		{"side maximum too large", func(p *Params) { p.SideMaximum = MaxSide + 1 }},
		{"quality zero", func(p *Params) { p.Quality = 0 }},
		{"quality above 100", func(p *Params) { p.Quality = 101 }},
		{"negative ppi", func(p *Params) { p.PPI = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Defaults()
			p.SideMaximum = 800
			tt.mutate(&p)

			_, err := Build(p)
			assert.ErrorIs(t, err, ErrInvalidOption)
		})
	}
}

func TestLoadFileAndApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
side_maximum: 1280
quality: 80
ppi: 150
only_shrink: true
no_sharpen: true
threads: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)

	p := Defaults()
	p.Force = true
	f.Apply(&p)

	assert.Equal(t, 1280, p.SideMaximum)
	assert.Equal(t, 80, p.Quality)
	assert.Equal(t, 150, p.PPI)
	assert.True(t, p.ShrinkOnly)
	assert.True(t, p.NoSharpen)
	assert.Equal(t, 2, p.Threads)
	// unset keys leave existing values alone
	assert.True(t, p.Force)
	assert.False(t, p.AllowGIF)

	opts, err := Build(p)
	require.NoError(t, err)
	assert.False(t, opts.Sharpen)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("quality: [not, a, number]\n"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestApplyNilFile(t *testing.T) {
	var f *File
	p := Defaults()
	f.Apply(&p)
	assert.Equal(t, Defaults(), p)
}

func TestDiscoverFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(home, "none"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	f, path, err := DiscoverFile()
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Empty(t, path)

	want := filepath.Join(home, ConfigRelPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(want), 0o755))
	require.NoError(t, os.WriteFile(want, []byte("side_maximum: 512\n"), 0o644))

	f, path, err = DiscoverFile()
	require.NoError(t, err)
	assert.Equal(t, want, path)
	require.NotNil(t, f.SideMaximum)
	assert.Equal(t, 512, *f.SideMaximum)
}
