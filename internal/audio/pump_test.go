package audio

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicelinehq/voiceline-go/internal/codec"
	"github.com/voicelinehq/voiceline-go/internal/metrics"
)

func newTestPump(inRate, wireRate int, gate GateConfig, emit func(string)) *framePump {
	return &framePump{
		adapter:   codec.NewPCM(wireRate),
		gate:      newNoiseGate(gate),
		emit:      emit,
		log:       zerolog.Nop(),
		metrics:   metrics.NewNop(),
		inRate:    inRate,
		wireRate:  wireRate,
		wireFrame: frameSizeForRate(wireRate),
	}
}

func runPump(p *framePump, frames [][]int16) {
	ch := make(chan []int16, len(frames))
	for _, f := range frames {
		ch <- f
	}
	close(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.run(ch)
	}()
	<-done
}

func TestFramePumpDeliversEveryFrameInOrder(t *testing.T) {
	var got []string
	p := newTestPump(16000, 16000, GateConfig{}, func(payload string) {
		got = append(got, payload)
	})

	adapter := codec.NewPCM(16000)
	const n = 20
	frames := make([][]int16, 0, n)
	want := make([]string, 0, n)
	for i := 0; i < n; i++ {
		frame := constFrame(int16(i+1), frameSizeForRate(16000))
		frames = append(frames, frame)
		payload, err := adapter.Encode(frame)
		require.NoError(t, err)
		want = append(want, payload)
	}

	runPump(p, frames)
	assert.Equal(t, want, got)
}

func TestFramePumpResamplesToWireRate(t *testing.T) {
	var got []string
	p := newTestPump(48000, 16000, GateConfig{}, func(payload string) {
		got = append(got, payload)
	})

	runPump(p, [][]int16{constFrame(100, frameSizeForRate(48000))})

	require.Len(t, got, 1)
	samples, err := codec.NewPCM(16000).Decode(got[0])
	require.NoError(t, err)
	require.Len(t, samples, frameSizeForRate(16000))
	for _, s := range samples {
		assert.Equal(t, int16(100), s)
	}
}

func TestFramePumpGateBlocksSilence(t *testing.T) {
	var got []string
	gate := GateConfig{Enabled: true, Threshold: 1000, Hangover: 1}
	p := newTestPump(16000, 16000, gate, func(payload string) {
		got = append(got, payload)
	})

	size := frameSizeForRate(16000)
	runPump(p, [][]int16{
		constFrame(10, size),   // blocked, nothing heard yet
		constFrame(5000, size), // speech
		constFrame(10, size),   // hangover
		constFrame(10, size),   // blocked
	})

	assert.Len(t, got, 2)
}
