package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SampleRate     int     `yaml:"sampleRate"`
	Loop           bool    `yaml:"loop"`
	Volume         float64 `yaml:"volume"`
	ExportDir      string  `yaml:"exportDir"`
	IgnoreMuteSolo bool    `yaml:"ignoreMuteSolo"`
	Limit          bool    `yaml:"limit"`
	LogLevel       string  `yaml:"logLevel"`
}

//go:embed config.yml
var defaultConfigYaml []byte

func defaultConfig() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYaml, &cfg); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return cfg
}

// userConfigPath is where the optional user overrides live.
func userConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chipstep", "config.yml"), nil
}

// loadConfig reads the defaults and overlays path on top. An empty path
// means the user config file, which may be absent; an explicit path must
// exist.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		p, err := userConfigPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %v: %w", path, err)
	}
	return cfg, nil
}
