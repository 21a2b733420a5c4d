package audio

import (
	"github.com/rs/zerolog"

	"github.com/voicelinehq/voiceline-go/internal/codec"
	"github.com/voicelinehq/voiceline-go/internal/metrics"
)

// framePump carries mic frames from the capture callback to the session:
// resample to the wire rate, gate, encode, emit. It runs on its own goroutine
// and drains fully once the frames channel closes, so every frame that
// reached the channel is delivered in capture order.
type framePump struct {
	adapter   codec.Adapter
	gate      *noiseGate
	emit      func(payload string)
	log       zerolog.Logger
	metrics   *metrics.Metrics
	inRate    int
	wireRate  int
	wireFrame int
}

func (p *framePump) run(frames <-chan []int16) {
	for samples := range frames {
		if p.inRate != p.wireRate {
			samples = fitSamples(resampleLinear(samples, p.inRate, p.wireRate), p.wireFrame)
		}
		if !p.gate.pass(samples) {
			continue
		}
		payload, err := p.adapter.Encode(samples)
		if err != nil {
			p.log.Warn().Err(err).Msg("encode frame failed")
			continue
		}
		if payload == "" {
			continue
		}
		p.metrics.CaptureFrames.Inc()
		p.emit(payload)
	}
}
