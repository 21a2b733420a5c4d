//go:build cgo
// +build cgo

package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"github.com/voicelinehq/voiceline-go/internal/codec"
	"github.com/voicelinehq/voiceline-go/internal/metrics"
)

// Manager owns the PortAudio streams. Capture and playback share its
// lifecycle: both can start and stop independently, and Close tears the whole
// thing down for good.
type Manager struct {
	cfg     Config
	adapter codec.Adapter
	log     zerolog.Logger
	metrics *metrics.Metrics
	queue   playbackQueue

	mu          sync.Mutex
	initialized bool
	closed      bool

	capturing     bool
	inStream      *portaudio.Stream
	inRate        int
	captureFrames chan []int16
	pumpDone      chan struct{}

	playing   bool
	outStream *portaudio.Stream
	outRate   int
}

// NewManager initializes PortAudio and prepares capture and playback around
// the given codec adapter. Call Close when done; the manager cannot be reused
// afterwards.
func NewManager(cfg Config, adapter codec.Adapter, logger zerolog.Logger, m *metrics.Metrics) (*Manager, error) {
	cfg.SampleRate = sanitizeSampleRate(cfg.SampleRate)
	if m == nil {
		m = metrics.NewNop()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize audio: %w", err)
	}
	return &Manager{
		cfg:         cfg,
		adapter:     adapter,
		log:         logger.With().Str("component", "audio").Logger(),
		metrics:     m,
		initialized: true,
	}, nil
}

// StartCapture opens the microphone and begins emitting encoded 20ms frames
// through emit, one call per frame, in capture order. Playback comes up with
// it; the two share an activation lifecycle. Calling it while capture is
// already running is a no-op.
func (m *Manager) StartCapture(emit func(payload string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("audio manager is closed")
	}
	if m.capturing {
		return nil
	}
	if err := m.ensurePlaybackLocked(); err != nil {
		return err
	}

	frames := make(chan []int16, 16)
	stream, dev, rate, err := m.openInputStreamLocked(frames)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}

	pump := &framePump{
		adapter:   m.adapter,
		gate:      newNoiseGate(m.cfg.Gate),
		emit:      emit,
		log:       m.log,
		metrics:   m.metrics,
		inRate:    rate,
		wireRate:  m.cfg.SampleRate,
		wireFrame: frameSizeForRate(m.cfg.SampleRate),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		pump.run(frames)
	}()

	if err := m.startInputStream(stream); err != nil {
		stream.Close()
		close(frames)
		<-done
		return err
	}

	m.inStream = stream
	m.inRate = rate
	m.captureFrames = frames
	m.pumpDone = done
	m.capturing = true
	m.log.Info().Str("device", dev.Name).Int("device_rate", rate).
		Int("wire_rate", m.cfg.SampleRate).Msg("capture started")
	return nil
}

// StopCapture stops the microphone and waits for in-flight frames to drain.
// Safe to call when capture is not running.
func (m *Manager) StopCapture() {
	m.mu.Lock()
	if !m.capturing {
		m.mu.Unlock()
		return
	}
	stream := m.inStream
	frames := m.captureFrames
	done := m.pumpDone
	m.inStream = nil
	m.captureFrames = nil
	m.pumpDone = nil
	m.capturing = false
	m.mu.Unlock()

	// Stop returns after the last callback, so nothing sends on frames
	// once it is closed.
	if err := stream.Stop(); err != nil {
		m.log.Warn().Err(err).Msg("stop input stream")
	}
	stream.Close()
	close(frames)
	select {
	case <-done:
	case <-time.After(time.Second):
		m.log.Warn().Msg("frame pump did not drain in time")
	}
	m.log.Info().Msg("capture stopped")
}

// EnsurePlayback opens the speaker stream if it is not already open. Decoded
// audio handed to Enqueue starts playing as soon as it arrives.
func (m *Manager) EnsurePlayback() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensurePlaybackLocked()
}

func (m *Manager) ensurePlaybackLocked() error {
	if m.closed {
		return fmt.Errorf("audio manager is closed")
	}
	if m.playing {
		return nil
	}
	stream, dev, rate, err := m.openOutputStreamLocked()
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	m.outStream = stream
	m.outRate = rate
	m.playing = true
	m.log.Info().Str("device", dev.Name).Int("device_rate", rate).Msg("playback ready")
	return nil
}

// Enqueue decodes one media payload and appends it to the speaker queue,
// starting playback on first use. Chunks play back to back in arrival order.
func (m *Manager) Enqueue(payload string) {
	samples, err := m.adapter.Decode(payload)
	if err != nil {
		m.log.Warn().Err(err).Msg("decode media payload failed")
		return
	}
	if len(samples) == 0 {
		return
	}

	m.mu.Lock()
	if err := m.ensurePlaybackLocked(); err != nil {
		m.mu.Unlock()
		m.log.Warn().Err(err).Msg("playback unavailable, dropping chunk")
		return
	}
	rate := m.outRate
	m.mu.Unlock()

	if rate != m.cfg.SampleRate {
		samples = resampleLinear(samples, m.cfg.SampleRate, rate)
	}
	m.queue.push(samples)
}

// Flush drops all queued speaker audio, including the remainder of the chunk
// being played. The stream stays open and goes silent until new audio
// arrives.
func (m *Manager) Flush() {
	m.queue.reset()
	m.metrics.PlaybackFlushes.Inc()
	m.log.Debug().Msg("playback queue flushed")
}

// Close stops capture, closes the speaker stream, and terminates PortAudio.
// The manager cannot be used again afterwards.
func (m *Manager) Close() error {
	m.StopCapture()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	out := m.outStream
	m.outStream = nil
	m.playing = false
	initialized := m.initialized
	m.initialized = false
	m.mu.Unlock()

	if out != nil {
		if err := out.Stop(); err != nil {
			m.log.Warn().Err(err).Msg("stop output stream")
		}
		out.Close()
	}
	m.queue.reset()
	if initialized {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("terminate audio: %w", err)
		}
	}
	m.log.Info().Msg("audio manager closed")
	return nil
}

func (m *Manager) openInputStreamLocked(frames chan<- []int16) (*portaudio.Stream, *portaudio.DeviceInfo, int, error) {
	dev, err := resolveInputDevice(m.cfg.InputLabel)
	if err != nil {
		return nil, nil, 0, err
	}

	// Open at the device's native rate and resample on the pump; asking
	// for the wire rate directly is rejected by plenty of hardware.
	rate := m.cfg.SampleRate
	if dev.DefaultSampleRate > 0 {
		rate = int(math.Round(dev.DefaultSampleRate))
	}
	if rate <= 0 {
		rate = m.cfg.SampleRate
	}

	callback := func(in []int16) {
		frame := make([]int16, len(in))
		copy(frame, in)
		select {
		case frames <- frame:
		default:
			m.metrics.CaptureOverruns.Inc()
		}
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: 1,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      float64(rate),
		FramesPerBuffer: frameSizeForRate(rate),
	}

	stream, err := portaudio.OpenStream(params, callback)
	if err != nil {
		m.log.Warn().Err(err).Str("device", dev.Name).Msg("low latency input rejected, trying high latency")
		params.Input.Latency = dev.DefaultHighInputLatency
		stream, err = portaudio.OpenStream(params, callback)
	}
	if err != nil {
		return nil, nil, 0, err
	}
	return stream, dev, rate, nil
}

func (m *Manager) openOutputStreamLocked() (*portaudio.Stream, *portaudio.DeviceInfo, int, error) {
	dev, err := resolveOutputDevice(m.cfg.OutputLabel)
	if err != nil {
		return nil, nil, 0, err
	}

	rate := m.cfg.SampleRate
	if dev.DefaultSampleRate > 0 {
		rate = int(math.Round(dev.DefaultSampleRate))
	}
	if rate <= 0 {
		rate = m.cfg.SampleRate
	}

	// Try configurations in order of preference.
	configs := []struct {
		channels int
		latency  time.Duration
		desc     string
	}{
		{2, dev.DefaultLowOutputLatency, "stereo low latency"},
		{2, dev.DefaultHighOutputLatency, "stereo high latency"},
		{1, dev.DefaultLowOutputLatency, "mono low latency"},
		{1, dev.DefaultHighOutputLatency, "mono high latency"},
	}
	for _, cfg := range configs {
		stream, err := m.tryOpenOutputStream(dev, rate, cfg.channels, cfg.latency, cfg.desc)
		if err == nil {
			return stream, dev, rate, nil
		}
	}
	return nil, nil, 0, fmt.Errorf("no output configuration accepted by %q", dev.Name)
}

func (m *Manager) tryOpenOutputStream(dev *portaudio.DeviceInfo, rate int, channels int, latency time.Duration, desc string) (*portaudio.Stream, error) {
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  latency,
		},
		SampleRate:      float64(rate),
		FramesPerBuffer: frameSizeForRate(rate),
	}

	stream, err := portaudio.OpenStream(params, m.makeOutputCallback(channels))
	if err != nil {
		m.log.Debug().Err(err).Str("config", desc).Msg("output open rejected")
		return nil, err
	}

	// Start right away to verify the configuration actually works.
	if err := stream.Start(); err != nil {
		m.log.Debug().Err(err).Str("config", desc).Msg("output start rejected")
		stream.Close()
		return nil, err
	}
	if channels == 1 {
		m.log.Warn().Msg("stereo output unavailable, using mono")
	}
	m.log.Debug().Str("config", desc).Msg("output stream running")
	return stream, nil
}

// makeOutputCallback feeds the device from the playback queue, duplicating
// the mono signal across channels when the device would not open mono.
func (m *Manager) makeOutputCallback(channels int) func(out []int16) {
	var mono []int16
	return func(out []int16) {
		if channels == 1 {
			m.queue.fill(out)
			return
		}
		need := len(out) / channels
		if cap(mono) < need {
			mono = make([]int16, need)
		}
		buf := mono[:need]
		m.queue.fill(buf)
		for i, s := range buf {
			for ch := 0; ch < channels; ch++ {
				out[i*channels+ch] = s
			}
		}
	}
}

// startInputStream retries Start a few times. Some backends report the
// device busy for a moment right after a stream on it was closed.
func (m *Manager) startInputStream(s *portaudio.Stream) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = s.Start(); err == nil {
			return nil
		}
		m.log.Warn().Err(err).Int("attempt", attempt).Msg("input stream start failed")
		if attempt < 3 {
			time.Sleep(100 * time.Millisecond)
		}
	}
	return fmt.Errorf("start input stream after 3 attempts: %w (close other audio applications and retry)", err)
}
