// Package config loads splatctl settings from .splatctl.yml, the environment and an optional .env file.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/askiada/splatctl/pkg/launcher"
)

// Config is the complete splatctl configuration.
type Config struct {
	Renderer    RendererConfig `yaml:"renderer" envPrefix:"RENDERER_"`
	Conda       CondaConfig    `yaml:"conda" envPrefix:"CONDA_"`
	Jobs        JobsConfig     `yaml:"jobs" envPrefix:"JOBS_"`
	History     HistoryConfig  `yaml:"history" envPrefix:"HISTORY_"`
	Publish     PublishConfig  `yaml:"publish" envPrefix:"PUBLISH_"`
	MetricsFile string         `yaml:"metrics_file" env:"METRICS_FILE"`
}

// RendererConfig points at the renderer checkout and its default arguments.
type RendererConfig struct {
	Script    string `yaml:"script" env:"SCRIPT"`
	WorkDir   string `yaml:"workdir" env:"WORKDIR"`
	BatchSize int    `yaml:"batch_size" env:"BATCH_SIZE"`
}

// CondaConfig describes how the conda environment is activated.
type CondaConfig struct {
	Profile    string `yaml:"profile" env:"PROFILE"`
	Env        string `yaml:"env" env:"ENV"`
	Bin        string `yaml:"bin" env:"BIN"`
	Python     string `yaml:"python" env:"PYTHON"`
	Activation string `yaml:"activation" env:"ACTIVATION"`
}

// JobsConfig tunes the dataset pipelines.
type JobsConfig struct {
	Concurrency int    `yaml:"concurrency" env:"CONCURRENCY"`
	Graph       string `yaml:"graph" env:"GRAPH"`
}

// HistoryConfig controls the local run ledger.
type HistoryConfig struct {
	Disabled bool   `yaml:"disabled" env:"DISABLED"`
	Path     string `yaml:"path" env:"PATH"`
}

// PublishConfig is the object storage results are uploaded to.
type PublishConfig struct {
	Endpoint  string   `yaml:"endpoint" env:"ENDPOINT"`
	Bucket    string   `yaml:"bucket" env:"BUCKET"`
	Region    string   `yaml:"region" env:"REGION"`
	AccessKey string   `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string   `yaml:"secret_key" env:"SECRET_KEY"`
	Secure    bool     `yaml:"secure" env:"SECURE"`
	Prefix    string   `yaml:"prefix" env:"PREFIX"`
	Include   []string `yaml:"include" env:"INCLUDE" envSeparator:","`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	env := launcher.DefaultEnvironment()

	return &Config{
		Renderer: RendererConfig{
			Script:    launcher.DefaultScript,
			BatchSize: launcher.DefaultBatchSize,
		},
		Conda: CondaConfig{
			Profile:    env.CondaProfile,
			Env:        env.CondaEnv,
			Bin:        env.CondaBin,
			Python:     env.Python,
			Activation: string(env.Activation),
		},
		Jobs: JobsConfig{
			Concurrency: 4,
		},
		History: HistoryConfig{
			Path: "~/.splatctl/history.db",
		},
		Publish: PublishConfig{
			Include: []string{"**/*"},
		},
	}
}

// Environment converts the conda section for the launcher.
func (c *Config) Environment() launcher.Environment {
	return launcher.Environment{
		Activation:   launcher.Activation(c.Conda.Activation),
		CondaProfile: c.Conda.Profile,
		CondaEnv:     c.Conda.Env,
		CondaBin:     c.Conda.Bin,
		Python:       c.Conda.Python,
		Shell:        "bash",
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
