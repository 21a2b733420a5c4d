package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the voice client.
type Metrics struct {
	SessionsStarted     prometheus.Counter
	SessionActive       prometheus.Gauge
	FramesSent          prometheus.Counter
	FramesDropped       prometheus.Counter
	ChunksReceived      prometheus.Counter
	ParseErrors         prometheus.Counter
	PingsSent           prometheus.Counter
	ReconnectsScheduled prometheus.Counter
	ReconnectsExhausted prometheus.Counter
	CaptureFrames       prometheus.Counter
	CaptureOverruns     prometheus.Counter
	PlaybackFlushes     prometheus.Counter
}

// New registers the instrument set with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_sessions_started_total",
			Help: "Number of StartSession calls that resolved a credential",
		}),
		SessionActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voiceline_session_active",
			Help: "Whether a transport connection is currently open",
		}),
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_frames_sent_total",
			Help: "Outbound audio frames written to the transport",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_frames_dropped_total",
			Help: "Outbound audio frames dropped because the transport was not open",
		}),
		ChunksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_chunks_received_total",
			Help: "Inbound media_output chunks",
		}),
		ParseErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_parse_errors_total",
			Help: "Inbound messages dropped as malformed",
		}),
		PingsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_pings_sent_total",
			Help: "Keepalive pings written to the transport",
		}),
		ReconnectsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_reconnects_scheduled_total",
			Help: "Reconnect attempts scheduled after an unsolicited close",
		}),
		ReconnectsExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_reconnects_exhausted_total",
			Help: "Sessions abandoned after the reconnect budget ran out",
		}),
		CaptureFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_capture_frames_total",
			Help: "Encoded frames emitted by the capture pipeline",
		}),
		CaptureOverruns: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_capture_overruns_total",
			Help: "Frames dropped because the capture pump fell behind",
		}),
		PlaybackFlushes: factory.NewCounter(prometheus.CounterOpts{
			Name: "voiceline_playback_flushes_total",
			Help: "Times the playback queue was flushed by a clear event",
		}),
	}
}

// NewNop returns a set registered on a private registry, for embedders and
// tests that do not scrape.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
