package audio

import "math"

const (
	defaultGateThreshold = 1200.0
	defaultGateHangover  = 30
	maxGateHangover      = 200
)

// GateConfig tunes the capture noise gate. The gate is off unless Enabled is
// set; frames then pass only while their RMS level is at or above Threshold,
// plus Hangover further frames after the level drops so word endings are not
// clipped.
type GateConfig struct {
	Enabled   bool
	Threshold float64
	Hangover  int
}

type noiseGate struct {
	cfg      GateConfig
	hangover int
}

func newNoiseGate(cfg GateConfig) *noiseGate {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultGateThreshold
	}
	if cfg.Hangover <= 0 {
		cfg.Hangover = defaultGateHangover
	}
	if cfg.Hangover > maxGateHangover {
		cfg.Hangover = maxGateHangover
	}
	return &noiseGate{cfg: cfg}
}

func (g *noiseGate) pass(samples []int16) bool {
	if !g.cfg.Enabled {
		return true
	}
	if rms(samples) >= g.cfg.Threshold {
		g.hangover = g.cfg.Hangover
		return true
	}
	if g.hangover > 0 {
		g.hangover--
		return true
	}
	return false
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
