package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := Default()
	valid.AgentID = "agent-1"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with agent id are valid", func(c *Config) {}, ""},
		{"opus codec is valid", func(c *Config) { c.Codec = "opus" }, ""},
		{"missing agent id", func(c *Config) { c.AgentID = "" }, "agent_id"},
		{"unknown codec", func(c *Config) { c.Codec = "mp3" }, "codec"},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, "sample_rate"},
		{"zero keepalive", func(c *Config) { c.KeepaliveSecs = 0 }, "keepalive_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := loadFrom(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	_, err := loadFrom(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voiceline", "client.json")

	want := Default()
	want.AgentID = "agent-42"
	want.APIKey = "sk-499f"
	want.MicLabel = "USB Microphone"
	want.Codec = "opus"
	want.NoiseGate = true
	want.GateThreshold = 900

	require.NoError(t, saveTo(path, want))

	got, err := loadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"agent_id":"agent-9"}`), 0o600))

	cfg, err := loadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "agent-9", cfg.AgentID)
	assert.Equal(t, 16000, cfg.SampleRate)
	assert.Equal(t, "pcm", cfg.Codec)
	assert.Equal(t, 60, cfg.KeepaliveSecs)
}
