// Command voiceline is a terminal client for VoiceLine conversational agents.
// It streams the microphone to an agent over a persistent WebSocket and plays
// the agent's replies as they stream back.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/voicelinehq/voiceline-go/internal/audio"
	"github.com/voicelinehq/voiceline-go/internal/codec"
	"github.com/voicelinehq/voiceline-go/internal/config"
	"github.com/voicelinehq/voiceline-go/internal/logging"
	"github.com/voicelinehq/voiceline-go/internal/metrics"
	"github.com/voicelinehq/voiceline-go/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "voiceline",
		Short:         "Talk to a VoiceLine agent from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newDevicesCmd(), newInitCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a conversation with an agent",
		RunE:  runSession,
	}
	f := cmd.Flags()
	f.String("endpoint", "", "agent gateway URL")
	f.String("agent", "", "agent id to call")
	f.String("mic", "", "capture device label")
	f.String("speaker", "", "playback device label")
	f.String("codec", "", "wire codec (pcm or opus)")
	f.Int("sample-rate", 0, "wire sample rate in Hz")
	f.Bool("noise-gate", false, "suppress frames below the gate threshold")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.String("log-level", "", "log level (trace..error)")
	f.String("log-file", "", "also append JSON logs to this file")
	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := audio.ListInputDevices()
			if err != nil {
				return fmt.Errorf("list input devices: %w", err)
			}
			outputs, err := audio.ListOutputDevices()
			if err != nil {
				return fmt.Errorf("list output devices: %w", err)
			}

			fmt.Println("Input devices:")
			for _, name := range inputs {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("Output devices:")
			for _, name := range outputs {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}
			cfg := config.Default()
			cfg.AgentID, _ = cmd.Flags().GetString("agent")
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().String("agent", "", "agent id to call")
	return cmd
}

func runSession(cmd *cobra.Command, args []string) error {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLogs, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLogs()

	met := metrics.New(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	adapter, err := buildAdapter(cfg)
	if err != nil {
		return fmt.Errorf("build codec: %w", err)
	}

	audioMgr, err := audio.NewManager(audio.Config{
		SampleRate:  cfg.SampleRate,
		InputLabel:  cfg.MicLabel,
		OutputLabel: cfg.SpeakerLabel,
		Gate: audio.GateConfig{
			Enabled:   cfg.NoiseGate,
			Threshold: cfg.GateThreshold,
			Hangover:  cfg.GateHangover,
		},
	}, adapter, logger, met)
	if err != nil {
		return fmt.Errorf("failed to start audio: %w", err)
	}
	defer audioMgr.Close()

	sess := session.NewManager(session.Config{
		Endpoint:          cfg.Endpoint,
		AgentID:           cfg.AgentID,
		InputFormat:       adapter.WireFormat(),
		KeepaliveInterval: time.Duration(cfg.KeepaliveSecs) * time.Second,
	}, logger, met)

	sess.SetCredentialResolver(credentialResolver(cfg))
	sess.SetAudioHandler(audioMgr.Enqueue)
	sess.SetClearHandler(audioMgr.Flush)

	statusCh := make(chan session.Status, 8)
	sess.SetStatusHandler(func(s session.Status) {
		select {
		case statusCh <- s:
		default:
		}
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.StartSession(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	// The mic stays off until the agent acknowledges the stream; frames sent
	// before the ack would carry no stream id.
	logger.Info().Str("agent_id", cfg.AgentID).Msg("waiting for the agent to answer")
	if !awaitConnected(ctx, statusCh) {
		sess.EndSession()
		logStats(logger, sess.Stats())
		if ctx.Err() != nil {
			logger.Info().Msg("hanging up")
			return nil
		}
		return fmt.Errorf("session closed before the agent answered")
	}

	if err := audioMgr.StartCapture(sess.SendAudio); err != nil {
		sess.EndSession()
		return fmt.Errorf("failed to start audio: %w", err)
	}

	logger.Info().Str("agent_id", cfg.AgentID).Msg("talk to the agent, ctrl-c to hang up")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("hanging up")
			audioMgr.StopCapture()
			sess.EndSession()
			logStats(logger, sess.Stats())
			return nil
		case s := <-statusCh:
			if s == session.StatusDisconnected {
				logger.Info().Msg("session over")
				audioMgr.StopCapture()
				logStats(logger, sess.Stats())
				return nil
			}
		}
	}
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("endpoint") {
		cfg.Endpoint, _ = f.GetString("endpoint")
	}
	if f.Changed("agent") {
		cfg.AgentID, _ = f.GetString("agent")
	}
	if f.Changed("mic") {
		cfg.MicLabel, _ = f.GetString("mic")
	}
	if f.Changed("speaker") {
		cfg.SpeakerLabel, _ = f.GetString("speaker")
	}
	if f.Changed("codec") {
		cfg.Codec, _ = f.GetString("codec")
	}
	if f.Changed("sample-rate") {
		cfg.SampleRate, _ = f.GetInt("sample-rate")
	}
	if f.Changed("noise-gate") {
		cfg.NoiseGate, _ = f.GetBool("noise-gate")
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr, _ = f.GetString("metrics-addr")
	}
	if f.Changed("log-level") {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Changed("log-file") {
		cfg.LogFile, _ = f.GetString("log-file")
	}
}

func buildAdapter(cfg config.Config) (codec.Adapter, error) {
	switch cfg.Codec {
	case "opus":
		return codec.NewOpus(cfg.SampleRate, cfg.SampleRate*20/1000)
	default:
		return codec.NewPCM(cfg.SampleRate), nil
	}
}

// awaitConnected blocks until the session reports connected. It returns false
// when the context is canceled or the session settles to disconnected first;
// transient connecting and error statuses keep the wait alive.
func awaitConnected(ctx context.Context, statusCh <-chan session.Status) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case s := <-statusCh:
			switch s {
			case session.StatusConnected:
				return true
			case session.StatusDisconnected:
				return false
			}
		}
	}
}

// credentialResolver prefers the environment over the config file so tokens
// never have to be written to disk.
func credentialResolver(cfg config.Config) session.CredentialResolver {
	return func(context.Context) (string, error) {
		if tok := os.Getenv("VOICELINE_ACCESS_TOKEN"); tok != "" {
			return tok, nil
		}
		if key := os.Getenv("VOICELINE_API_KEY"); key != "" {
			return key, nil
		}
		if cfg.APIKey != "" {
			return cfg.APIKey, nil
		}
		return "", fmt.Errorf("no credential: set VOICELINE_API_KEY or api_key in the config")
	}
}

func serveMetrics(log zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}

func logStats(log zerolog.Logger, s session.StatsSnapshot) {
	log.Info().
		Uint64("frames_sent", s.FramesSent).
		Uint64("frames_dropped", s.FramesDropped).
		Uint64("chunks_received", s.ChunksReceived).
		Uint64("pings_sent", s.PingsSent).
		Uint64("reconnects", s.ReconnectsScheduled).
		Msg("session stats")
}
