package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voicelinehq/voiceline-go/internal/metrics"
)

const (
	// DefaultEndpoint is the production agent gateway.
	DefaultEndpoint = "wss://api.voiceline.ai/v1/agents"
	// ProtocolVersion is sent as the voiceline_version query parameter.
	ProtocolVersion = "2025-02-11"
	// DefaultKeepaliveInterval paces the ping heartbeat while the transport
	// is open.
	DefaultKeepaliveInterval = 60 * time.Second

	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
)

// Config carries the session parameters fixed for a Manager's lifetime.
type Config struct {
	Endpoint          string
	AgentID           string
	InputFormat       string
	KeepaliveInterval time.Duration
	Reconnect         ReconnectPolicy
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.Reconnect.BaseDelay == 0 && c.Reconnect.MaxAttempts == 0 {
		c.Reconnect = DefaultReconnectPolicy()
	}
}

// wsConn bundles one transport connection with its writer lock. A fresh wsConn
// is created per dial; the open flag gates audio and keepalive writes.
type wsConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	open    atomic.Bool
	done    chan struct{} // closed when the reader exits
}

func (c *wsConn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *wsConn) close() {
	c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.ws.Close()
}

// Manager owns one session to a remote voice agent: the transport, the cached
// credential, the keepalive heartbeat, and the reconnection policy. At most
// one live session exists per Manager.
//
// The credential resolver and the event handlers live behind last-write-wins
// holders and are read at call time, so the most recently supplied
// implementation is always the one invoked.
type Manager struct {
	cfg     Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	stats   Stats

	resolver atomic.Value // CredentialResolver
	onAudio  atomic.Value // func(payload string)
	onClear  atomic.Value // func()
	onStatus atomic.Value // func(Status)

	mu       sync.Mutex
	active   bool
	status   Status
	streamID string
	// sessionID is the generation guard: dials, reconnect timers, and close
	// handling all carry the id of the session that launched them and bail
	// out when it no longer matches.
	sessionID      string
	conn           *wsConn
	cachedCred     string
	connectURL     string
	attempt        int
	reconnectTimer *time.Timer
}

// NewManager builds a Manager around cfg. A nil metrics set is replaced with
// an unregistered one.
func NewManager(cfg Config, logger zerolog.Logger, m *metrics.Metrics) *Manager {
	cfg.applyDefaults()
	if m == nil {
		m = metrics.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		log:     logger.With().Str("component", "session").Logger(),
		metrics: m,
		status:  StatusDisconnected,
	}
}

// SetCredentialResolver installs the credential source used by StartSession.
func (m *Manager) SetCredentialResolver(fn CredentialResolver) {
	m.resolver.Store(fn)
}

// SetAudioHandler installs the callback invoked for each inbound media_output
// payload, in arrival order.
func (m *Manager) SetAudioHandler(fn func(payload string)) {
	m.onAudio.Store(fn)
}

// SetClearHandler installs the callback invoked for each inbound clear event.
func (m *Manager) SetClearHandler(fn func()) {
	m.onClear.Store(fn)
}

// SetStatusHandler installs a callback observing status transitions. It must
// not call back into the Manager's blocking operations.
func (m *Manager) SetStatusHandler(fn func(Status)) {
	m.onStatus.Store(fn)
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// StreamID returns the identifier assigned by the handshake ack, or "" when
// no session is acknowledged.
func (m *Manager) StreamID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamID
}

// SessionID returns the local correlation id of the current session, or ""
// when none is active.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Stats returns a snapshot of the session counters.
func (m *Manager) Stats() StatsSnapshot {
	return m.stats.Snapshot()
}

// StartSession resolves a credential and opens the transport. The credential
// is resolved exactly once per call and cached for this session's reconnects.
// A dial failure is returned to the caller; the reconnect policy still runs in
// the background, driven by the close that accompanies it.
func (m *Manager) StartSession(ctx context.Context) error {
	resolver := m.loadResolver()

	var emits []Status
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return fmt.Errorf("session already active")
	}
	if resolver == nil {
		if m.setStatusLocked(StatusError) {
			emits = append(emits, StatusError)
		}
		m.mu.Unlock()
		m.emitStatus(emits)
		return fmt.Errorf("no credential resolver configured")
	}
	m.active = true
	m.attempt = 0
	m.sessionID = uuid.NewString()
	sessionID := m.sessionID
	if m.setStatusLocked(StatusConnecting) {
		emits = append(emits, StatusConnecting)
	}
	m.mu.Unlock()
	m.emitStatus(emits)

	m.log.Info().Str("session_id", sessionID).Str("agent_id", m.cfg.AgentID).Msg("starting session")

	cred, err := resolver(ctx)
	if err != nil {
		return m.failStart(sessionID, fmt.Errorf("resolve credential: %w", err))
	}
	if cred == "" {
		return m.failStart(sessionID, fmt.Errorf("resolver returned no credential"))
	}

	target, err := sessionURL(m.cfg.Endpoint, m.cfg.AgentID, ProtocolVersion, cred)
	if err != nil {
		return m.failStart(sessionID, err)
	}

	m.mu.Lock()
	if m.sessionID != sessionID {
		m.mu.Unlock()
		return fmt.Errorf("session ended")
	}
	m.cachedCred = cred
	m.connectURL = target
	m.mu.Unlock()

	m.metrics.SessionsStarted.Inc()
	return m.connect(ctx, sessionID)
}

// EndSession cancels any pending reconnect, closes the transport, and resets
// the session. Clearing the session id under the lock makes every in-flight
// dial, timer, and reader of this session stale at once. Safe to call at any
// time, including with no active session.
func (m *Manager) EndSession() {
	var emits []Status
	m.mu.Lock()
	c := m.conn
	m.conn = nil
	m.resetSessionLocked()
	if m.setStatusLocked(StatusDisconnected) {
		emits = append(emits, StatusDisconnected)
	}
	m.mu.Unlock()

	if c != nil {
		c.open.Store(false)
		c.close()
		select {
		case <-c.done:
		case <-time.After(time.Second):
		}
		m.metrics.SessionActive.Set(0)
		m.log.Info().Msg("session ended")
	}
	m.emitStatus(emits)
}

// SendAudio writes one encoded frame as a media_input event carrying the
// current stream id. Frames offered while the transport is not open are
// dropped; the session keeps no outbound queue.
func (m *Manager) SendAudio(payload string) {
	m.mu.Lock()
	c := m.conn
	streamID := m.streamID
	m.mu.Unlock()

	if c == nil || !c.open.Load() {
		m.stats.recordFrameDropped()
		m.metrics.FramesDropped.Inc()
		return
	}
	if err := c.writeJSON(mediaInputMessage(streamID, payload)); err != nil {
		m.stats.recordFrameDropped()
		m.metrics.FramesDropped.Inc()
		m.log.Debug().Err(err).Msg("audio frame dropped")
		return
	}
	m.stats.recordFrameSent()
	m.metrics.FramesSent.Inc()
}

func (m *Manager) connect(ctx context.Context, sid string) error {
	m.mu.Lock()
	target := m.connectURL
	if m.sessionID != sid || target == "" {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		m.log.Error().Err(err).Msg("transport open failed")
		m.handleUnsolicitedClose(sid, true, err)
		return fmt.Errorf("open transport: %w", err)
	}

	c := &wsConn{ws: ws, done: make(chan struct{})}
	c.open.Store(true)

	// Adopt the conn only if the session that launched the dial is still
	// the current one; a dial landing after EndSession is discarded.
	m.mu.Lock()
	if m.sessionID != sid {
		m.mu.Unlock()
		ws.Close()
		m.log.Debug().Msg("discarding transport dialed by an ended session")
		return nil
	}
	m.conn = c
	m.attempt = 0
	m.mu.Unlock()

	m.metrics.SessionActive.Set(1)
	m.log.Info().Str("session_id", sid).Msg("transport open")

	if err := c.writeJSON(startMessage(m.cfg.InputFormat)); err != nil {
		m.log.Error().Err(err).Msg("send start failed")
	}

	go m.readLoop(c)
	go m.keepaliveLoop(c)
	return nil
}

func (m *Manager) readLoop(c *wsConn) {
	defer close(c.done)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.open.Store(false)
			var closeErr *websocket.CloseError
			clean := errors.As(err, &closeErr) &&
				(closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway)
			m.connClosed(c, !clean, err)
			return
		}
		m.handleMessage(c, data)
	}
}

// handleMessage dispatches one inbound envelope from conn c. Events arriving
// on a transport that is no longer the session's are dropped; a replaced
// reader may still be draining messages while its successor is live.
func (m *Manager) handleMessage(c *wsConn, data []byte) {
	env, err := parseEnvelope(data)
	if err != nil {
		m.stats.recordParseError()
		m.metrics.ParseErrors.Inc()
		m.log.Warn().Err(err).Msg("dropping inbound message")
		return
	}

	switch env.Event {
	case eventAck:
		var emits []Status
		m.mu.Lock()
		if m.conn != c {
			m.mu.Unlock()
			m.log.Debug().Str("stream_id", env.StreamID).Msg("dropping ack from stale transport")
			return
		}
		m.streamID = env.StreamID
		if m.setStatusLocked(StatusConnected) {
			emits = append(emits, StatusConnected)
		}
		m.mu.Unlock()
		m.stats.recordAck()
		m.log.Info().Str("stream_id", env.StreamID).Msg("session acknowledged")
		m.emitStatus(emits)
	case eventMediaOutput:
		if env.Media == nil {
			m.stats.recordParseError()
			m.metrics.ParseErrors.Inc()
			m.log.Warn().Msg("media_output without media body")
			return
		}
		if !m.owns(c) {
			m.log.Debug().Msg("dropping media from stale transport")
			return
		}
		m.stats.recordChunk()
		m.metrics.ChunksReceived.Inc()
		if cb := m.loadAudioHandler(); cb != nil {
			cb(env.Media.Payload)
		}
	case eventClear:
		if !m.owns(c) {
			return
		}
		m.log.Debug().Msg("clear received")
		if cb := m.loadClearHandler(); cb != nil {
			cb()
		}
	default:
		m.log.Warn().Str("event", env.Event).Msg("ignoring unknown event")
	}
}

// owns reports whether c is still the session's transport.
func (m *Manager) owns(c *wsConn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn == c
}

func (m *Manager) keepaliveLoop(c *wsConn) {
	ticker := time.NewTicker(m.cfg.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !c.open.Load() {
				return
			}
			if err := c.writeJSON(pingMessage()); err != nil {
				m.log.Debug().Err(err).Msg("ping failed")
				return
			}
			m.stats.recordPing()
			m.metrics.PingsSent.Inc()
		case <-c.done:
			return
		}
	}
}

// connClosed handles the reader exiting for conn c. A close belonging to a
// stale connection is ignored.
func (m *Manager) connClosed(c *wsConn, abnormal bool, err error) {
	m.mu.Lock()
	if m.conn != c {
		m.mu.Unlock()
		return
	}
	sid := m.sessionID
	m.conn = nil
	m.streamID = ""
	m.mu.Unlock()
	m.metrics.SessionActive.Set(0)

	m.handleUnsolicitedClose(sid, abnormal, err)
}

// handleUnsolicitedClose applies the reconnect policy after a transport loss.
// An abnormal close surfaces StatusError first; the close itself drives the
// retry. Exhaustion settles to disconnected without a distinct terminal
// error. A close from a session that is no longer current is dropped
// outright.
func (m *Manager) handleUnsolicitedClose(sid string, abnormal bool, err error) {
	var emits []Status

	m.mu.Lock()
	if m.sessionID != sid {
		m.mu.Unlock()
		return
	}

	if abnormal {
		if m.setStatusLocked(StatusError) {
			emits = append(emits, StatusError)
		}
	}

	retry := m.cachedCred != "" && !m.cfg.Reconnect.Exhausted(m.attempt)
	gaveUp := false
	var delay time.Duration
	var attempt int
	if retry {
		delay = m.cfg.Reconnect.Delay(m.attempt)
		m.attempt++
		attempt = m.attempt
		m.reconnectTimer = time.AfterFunc(delay, func() { m.redial(sid) })
		if m.setStatusLocked(StatusConnecting) {
			emits = append(emits, StatusConnecting)
		}
	} else {
		gaveUp = m.cachedCred != ""
		m.resetSessionLocked()
		if m.setStatusLocked(StatusDisconnected) {
			emits = append(emits, StatusDisconnected)
		}
	}
	m.mu.Unlock()

	switch {
	case retry:
		m.stats.recordReconnect()
		m.metrics.ReconnectsScheduled.Inc()
		m.log.Warn().Err(err).Dur("delay", delay).Int("attempt", attempt).Msg("transport closed, reconnecting")
	case gaveUp:
		m.stats.recordExhausted()
		m.metrics.ReconnectsExhausted.Inc()
		m.log.Warn().Err(err).Msg("reconnect budget exhausted, giving up")
	default:
		m.log.Info().Msg("transport closed")
	}
	m.emitStatus(emits)
}

func (m *Manager) redial(sid string) {
	m.mu.Lock()
	if m.sessionID != sid {
		// A stale timer must not touch the current session's timer slot.
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	if m.cachedCred == "" {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.connect(context.Background(), sid)
}

// failStart reports a StartSession failure. The session state is reset only
// when it still belongs to the failed start.
func (m *Manager) failStart(sid string, err error) error {
	var emits []Status
	m.mu.Lock()
	if m.sessionID == sid {
		m.resetSessionLocked()
		if m.setStatusLocked(StatusError) {
			emits = append(emits, StatusError)
		}
	}
	m.mu.Unlock()
	m.emitStatus(emits)
	m.log.Error().Err(err).Msg("session start failed")
	return err
}

// resetSessionLocked clears all per-session state, including the cached
// credential and any pending reconnect. Caller holds mu.
func (m *Manager) resetSessionLocked() {
	m.active = false
	m.streamID = ""
	m.cachedCred = ""
	m.connectURL = ""
	m.attempt = 0
	m.sessionID = ""
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *Manager) setStatusLocked(s Status) bool {
	if m.status == s {
		return false
	}
	m.status = s
	return true
}

func (m *Manager) emitStatus(transitions []Status) {
	if len(transitions) == 0 {
		return
	}
	cb, ok := m.onStatus.Load().(func(Status))
	if !ok || cb == nil {
		return
	}
	for _, s := range transitions {
		cb(s)
	}
}

func (m *Manager) loadResolver() CredentialResolver {
	fn, ok := m.resolver.Load().(CredentialResolver)
	if !ok || fn == nil {
		return nil
	}
	return fn
}

func (m *Manager) loadAudioHandler() func(string) {
	fn, ok := m.onAudio.Load().(func(string))
	if !ok || fn == nil {
		return nil
	}
	return fn
}

func (m *Manager) loadClearHandler() func() {
	fn, ok := m.onClear.Load().(func())
	if !ok || fn == nil {
		return nil
	}
	return fn
}
