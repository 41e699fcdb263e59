// Package config models the run configuration file for netaudit.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"netaudit/session"
)

// Config holds the tunable knobs for an audit run. Timing values are
// integer seconds to keep the YAML plain; zero means "use the default".
type Config struct {
	Port                     int    `yaml:"port"`
	ConnectTimeoutSeconds    int    `yaml:"connectTimeoutSeconds"`
	CommandDelaySeconds      int    `yaml:"commandDelaySeconds"`
	FirstCommandDelaySeconds int    `yaml:"firstCommandDelaySeconds"`
	QuietWindowMillis        int    `yaml:"quietWindowMillis"`
	CommandTimeoutSeconds    int    `yaml:"commandTimeoutSeconds"`
	Workers                  int    `yaml:"workers"`
	LogFile                  string `yaml:"logFile"`
}

// Default returns the configuration matching the delays proven in the
// field: 3s per command, a doubled first-command allowance, 20s connect
// and 30s command bounds.
func Default() Config {
	return Config{
		Port:                     22,
		ConnectTimeoutSeconds:    20,
		CommandDelaySeconds:      3,
		FirstCommandDelaySeconds: 6,
		QuietWindowMillis:        500,
		CommandTimeoutSeconds:    30,
		Workers:                  1,
		LogFile:                  "healthcheck.log",
	}
}

// Load decodes the config file over the defaults. A missing file returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	d := Default()
	if c.Port <= 0 {
		c.Port = d.Port
	}
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = d.ConnectTimeoutSeconds
	}
	if c.CommandDelaySeconds <= 0 {
		c.CommandDelaySeconds = d.CommandDelaySeconds
	}
	if c.FirstCommandDelaySeconds <= 0 {
		c.FirstCommandDelaySeconds = d.FirstCommandDelaySeconds
	}
	if c.QuietWindowMillis <= 0 {
		c.QuietWindowMillis = d.QuietWindowMillis
	}
	if c.CommandTimeoutSeconds <= 0 {
		c.CommandTimeoutSeconds = d.CommandTimeoutSeconds
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.LogFile == "" {
		c.LogFile = d.LogFile
	}
	return c
}

// Timing maps the configuration onto the session's timing value.
func (c Config) Timing() session.Timing {
	t := session.DefaultTiming()
	t.ConnectTimeout = time.Duration(c.ConnectTimeoutSeconds) * time.Second
	t.CommandDelay = time.Duration(c.CommandDelaySeconds) * time.Second
	t.FirstCommandDelay = time.Duration(c.FirstCommandDelaySeconds) * time.Second
	t.QuietWindow = time.Duration(c.QuietWindowMillis) * time.Millisecond
	t.CommandTimeout = time.Duration(c.CommandTimeoutSeconds) * time.Second
	return t
}
