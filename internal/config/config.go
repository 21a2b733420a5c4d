// Package config persists client settings as JSON under the user config
// directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config is everything the client remembers between runs. The credential in
// APIKey is optional; the environment can supply one instead.
type Config struct {
	Endpoint      string  `json:"endpoint,omitempty"`
	AgentID       string  `json:"agent_id"`
	APIKey        string  `json:"api_key,omitempty"`
	MicLabel      string  `json:"mic_label,omitempty"`
	SpeakerLabel  string  `json:"speaker_label,omitempty"`
	SampleRate    int     `json:"sample_rate"`
	KeepaliveSecs int     `json:"keepalive_seconds"`
	Codec         string  `json:"codec"`
	NoiseGate     bool    `json:"noise_gate"`
	GateThreshold float64 `json:"gate_threshold,omitempty"`
	GateHangover  int     `json:"gate_hangover,omitempty"`
	MetricsAddr   string  `json:"metrics_addr,omitempty"`
	LogLevel      string  `json:"log_level,omitempty"`
	LogFile       string  `json:"log_file,omitempty"`
}

func Default() Config {
	return Config{
		SampleRate:    16000,
		KeepaliveSecs: 60,
		Codec:         "pcm",
		LogLevel:      "info",
	}
}

func (c *Config) Validate() error {
	if c.AgentID == "" {
		return fmt.Errorf("agent_id is required")
	}
	switch c.Codec {
	case "pcm", "opus":
	default:
		return fmt.Errorf("codec %q is not supported, use pcm or opus", c.Codec)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	if c.KeepaliveSecs <= 0 {
		return fmt.Errorf("keepalive_seconds must be positive")
	}
	return nil
}

// Path returns the location of the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "voiceline", "client.json"), nil
}

// Load reads the config file, returning defaults when none exists yet.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), err
	}
	return loadFrom(path)
}

func loadFrom(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to the config file, creating the directory if needed.
func Save(cfg Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return saveTo(path, cfg)
}

func saveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
