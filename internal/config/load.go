package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FileName  = ".splatctl.yml"
	EnvPrefix = "SPLATCTL_"
)

// Load reads a config file at path on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	err := loadFile(path, cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading config file")
	}

	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return errors.Wrapf(err, "parsing config file %s", path)
	}

	return nil
}

// Discover walks up the directory tree from startDir looking for a
// .splatctl.yml file. The search stops at the repository root (a directory
// holding .git) or at the filesystem root. It returns "" when nothing is found.
func Discover(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrap(err, "resolving absolute path")
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return "", nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}

		dir = parent
	}
}

// Options drive Resolve.
type Options struct {
	// Path is an explicit config file. When empty the file is discovered from WorkDir.
	Path string
	// EnvFile is a dotenv file loaded into the process environment. A missing
	// default .env is ignored, a missing explicit file is an error.
	EnvFile string
	WorkDir string
}

// Resolve builds the configuration: defaults, then the config file, then SPLATCTL_ variables.
// It returns the config file used, if any.
func Resolve(opts Options) (*Config, string, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}

	if opts.EnvFile != "" {
		err := godotenv.Load(opts.EnvFile)
		if err != nil {
			return nil, "", errors.Wrapf(err, "loading env file %s", opts.EnvFile)
		}
	} else if _, err := os.Stat(filepath.Join(workDir, ".env")); err == nil {
		err := godotenv.Load(filepath.Join(workDir, ".env"))
		if err != nil {
			return nil, "", errors.Wrap(err, "loading .env")
		}
	}

	path := opts.Path
	if path == "" {
		found, err := Discover(workDir)
		if err != nil {
			return nil, "", err
		}

		path = found
	}

	cfg := Defaults()

	if path != "" {
		err := loadFile(path, cfg)
		if err != nil {
			return nil, "", err
		}
	}

	err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return nil, "", errors.Wrap(err, "parsing environment")
	}

	cfg.Conda.Profile = ExpandHome(cfg.Conda.Profile)
	cfg.History.Path = ExpandHome(cfg.History.Path)
	cfg.Renderer.WorkDir = ExpandHome(cfg.Renderer.WorkDir)

	return cfg, path, nil
}
