//go:build cgo
// +build cgo

package audio

import (
	"testing"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickInputDevice(t *testing.T) {
	mic := &portaudio.DeviceInfo{Name: "USB Microphone"}
	headset := &portaudio.DeviceInfo{Name: "Headset Mic"}
	opts := []deviceOption{
		{Label: "USB Microphone", Device: mic},
		{Label: "Headset Mic", Device: headset},
	}

	t.Run("empty label defers to the default device", func(t *testing.T) {
		dev, err := pickInputDevice(opts, "")
		require.NoError(t, err)
		assert.Nil(t, dev)
	})

	t.Run("exact label wins", func(t *testing.T) {
		dev, err := pickInputDevice(opts, "USB Microphone")
		require.NoError(t, err)
		assert.Same(t, mic, dev)
	})

	t.Run("substring match is case-insensitive", func(t *testing.T) {
		dev, err := pickInputDevice(opts, "headset")
		require.NoError(t, err)
		assert.Same(t, headset, dev)
	})

	t.Run("unmatched label is an error", func(t *testing.T) {
		dev, err := pickInputDevice(opts, "Laptop Array")
		require.Error(t, err)
		assert.Nil(t, dev)
		assert.Contains(t, err.Error(), "input device not found")
	})
}

func TestBuildDeviceOptionsDeduplicatesLabels(t *testing.T) {
	devices := []*portaudio.DeviceInfo{
		{Name: "Speakers", MaxOutputChannels: 2},
		{Name: "Speakers", MaxOutputChannels: 2},
		{Name: "Monitor", MaxOutputChannels: 2},
		{Name: "Line In", MaxInputChannels: 1},
		nil,
	}

	opts := buildDeviceOptions(devices, func(d *portaudio.DeviceInfo) bool {
		return d.MaxOutputChannels > 0
	})
	assert.Equal(t, []string{"Speakers", "Speakers #2", "Monitor"}, optionLabels(opts))
}
