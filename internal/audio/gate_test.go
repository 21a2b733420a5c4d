package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func constFrame(value int16, n int) []int16 {
	frame := make([]int16, n)
	for i := range frame {
		frame[i] = value
	}
	return frame
}

func TestNoiseGateDisabledPassesEverything(t *testing.T) {
	g := newNoiseGate(GateConfig{})
	assert.True(t, g.pass(constFrame(0, 320)))
	assert.True(t, g.pass(nil))
}

func TestNoiseGateThresholdAndHangover(t *testing.T) {
	g := newNoiseGate(GateConfig{Enabled: true, Threshold: 1000, Hangover: 2})

	loud := constFrame(5000, 320)
	quiet := constFrame(10, 320)

	assert.False(t, g.pass(quiet), "quiet before any speech is blocked")
	assert.True(t, g.pass(loud), "speech passes")
	assert.True(t, g.pass(quiet), "first hangover frame passes")
	assert.True(t, g.pass(quiet), "second hangover frame passes")
	assert.False(t, g.pass(quiet), "hangover exhausted")
	assert.True(t, g.pass(loud), "speech rearms the gate")
	assert.True(t, g.pass(quiet))
}

func TestNewNoiseGateDefaults(t *testing.T) {
	g := newNoiseGate(GateConfig{Enabled: true})
	assert.Equal(t, defaultGateThreshold, g.cfg.Threshold)
	assert.Equal(t, defaultGateHangover, g.cfg.Hangover)

	g = newNoiseGate(GateConfig{Enabled: true, Hangover: 10000})
	assert.Equal(t, maxGateHangover, g.cfg.Hangover)
}

func TestRMS(t *testing.T) {
	assert.Zero(t, rms(nil))
	assert.Equal(t, 100.0, rms(constFrame(100, 320)))
	assert.Equal(t, 100.0, rms(constFrame(-100, 320)))
	assert.InDelta(t, 3.5355, rms([]int16{3, 4}), 0.001)
}
