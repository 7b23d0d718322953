package options

import (
	"errors"
	"fmt"
	"os"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// ConfigRelPath is the config file location relative to the XDG config dirs.
const ConfigRelPath = "resizer/config.yaml"

// File holds defaults read from a YAML config file. Nil fields were not set.
type File struct {
	SideMaximum     *int  `yaml:"side_maximum"`
	Quality         *int  `yaml:"quality"`
	PPI             *int  `yaml:"ppi"`
	Force           *bool `yaml:"force"`
	AllowGIF        *bool `yaml:"allow_gif"`
	RemainProfile   *bool `yaml:"remain_profile"`
	OnlyShrink      *bool `yaml:"only_shrink"`
	NoSharpen       *bool `yaml:"no_sharpen"`
	ChromaQuartered *bool `yaml:"chroma_quartered"`
	Threads         *int  `yaml:"threads"`
}

// LoadFile reads and parses a config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config %s: %v", ErrInvalidOption, path, err)
	}
	return &f, nil
}

// DiscoverFile loads the config from the XDG search path. It returns a nil
// File and no error when no config file exists.
func DiscoverFile() (*File, string, error) {
	path, err := xdg.SearchConfigFile(ConfigRelPath)
	if err != nil {
		return nil, "", nil
	}
	f, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", nil
		}
		return nil, path, err
	}
	return f, path, nil
}

// Apply copies every value set in f onto p.
func (f *File) Apply(p *Params) {
	if f == nil {
		return
	}
	setInt(&p.SideMaximum, f.SideMaximum)
	setInt(&p.Quality, f.Quality)
	setInt(&p.PPI, f.PPI)
	setInt(&p.Threads, f.Threads)
	setBool(&p.Force, f.Force)
	setBool(&p.AllowGIF, f.AllowGIF)
	setBool(&p.RemainProfile, f.RemainProfile)
	setBool(&p.ShrinkOnly, f.OnlyShrink)
	setBool(&p.NoSharpen, f.NoSharpen)
	setBool(&p.ChromaQuartered, f.ChromaQuartered)
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
