package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"

	"github.com/CodeLikeCrazE/functi/compiler/load"
)

type (
	// Config is the functi.yaml project file.
	Config struct {
		Entry  string `yaml:"entry"`
		StdDir string `yaml:"std_dir,omitempty"`
		Ext    string `yaml:"ext,omitempty"`
		Output string `yaml:"output"`

		// Seed of identifier generation, 0 means time based.
		Seed int64 `yaml:"seed,omitempty"`

		Color Color `yaml:"color,omitempty"`

		FollowClosures bool `yaml:"follow_closures,omitempty"`
	}

	Color string
)

const (
	ColorAuto   Color = "auto"
	ColorAlways Color = "always"
	ColorNever  Color = "never"
)

const FileName = "functi.yaml"

func Default() *Config {
	return &Config{
		Entry:  "main",
		StdDir: load.DefaultStdDir,
		Ext:    load.DefaultExt,
		Output: "output.js",
		Color:  ColorAuto,
	}
}

// Load reads the config file at path.
// Missing keys keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}

	return Parse(data, path)
}

// Parse parses config file content, path is for messages only.
func Parse(data []byte, path string) (*Config, error) {
	c := Default()

	err := yaml.Unmarshal(data, c)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", path)
	}

	err = c.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "%v", path)
	}

	return c, nil
}

// Find looks for the config file in dir and its parents.
// It returns an empty path if there is none.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, "abs path")
	}

	for {
		p := filepath.Join(dir, FileName)

		if _, err := os.Stat(p); err == nil {
			return p, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}

		dir = parent
	}
}

func (c *Config) Validate() error {
	if c.Entry == "" {
		return errors.New("entry is empty")
	}

	if c.Ext == "" {
		c.Ext = load.DefaultExt
	}

	if c.StdDir == "" {
		c.StdDir = load.DefaultStdDir
	}

	switch c.Color {
	case "":
		c.Color = ColorAuto
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return errors.New("color: unsupported value %q", c.Color)
	}

	return nil
}

func (c *Config) Resolver() load.Resolver {
	return load.NewResolver(c.StdDir, c.Ext)
}

// UseColor decides if diagnostics are colored given whether the output is a terminal.
func (c Color) UseColor(tty bool) bool {
	switch c {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return tty
	}
}
