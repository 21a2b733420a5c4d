package session

import (
	"sync"
	"time"
)

// Stats tracks session counters across connects and reconnects. The give-up
// after exhausting the reconnect budget is not a distinct status, so
// ReconnectsExhausted is the one place it stays observable.
type Stats struct {
	mu                  sync.RWMutex
	framesSent          uint64
	framesDropped       uint64
	chunksReceived      uint64
	parseErrors         uint64
	pingsSent           uint64
	reconnectsScheduled uint64
	reconnectsExhausted uint64
	lastAck             time.Time
}

// StatsSnapshot is a point-in-time copy of the session counters.
type StatsSnapshot struct {
	FramesSent          uint64
	FramesDropped       uint64
	ChunksReceived      uint64
	ParseErrors         uint64
	PingsSent           uint64
	ReconnectsScheduled uint64
	ReconnectsExhausted uint64
	LastAck             time.Time
}

func (s *Stats) recordFrameSent() {
	s.mu.Lock()
	s.framesSent++
	s.mu.Unlock()
}

func (s *Stats) recordFrameDropped() {
	s.mu.Lock()
	s.framesDropped++
	s.mu.Unlock()
}

func (s *Stats) recordChunk() {
	s.mu.Lock()
	s.chunksReceived++
	s.mu.Unlock()
}

func (s *Stats) recordParseError() {
	s.mu.Lock()
	s.parseErrors++
	s.mu.Unlock()
}

func (s *Stats) recordPing() {
	s.mu.Lock()
	s.pingsSent++
	s.mu.Unlock()
}

func (s *Stats) recordReconnect() {
	s.mu.Lock()
	s.reconnectsScheduled++
	s.mu.Unlock()
}

func (s *Stats) recordExhausted() {
	s.mu.Lock()
	s.reconnectsExhausted++
	s.mu.Unlock()
}

func (s *Stats) recordAck() {
	s.mu.Lock()
	s.lastAck = time.Now()
	s.mu.Unlock()
}

// Snapshot returns a consistent copy of all counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		FramesSent:          s.framesSent,
		FramesDropped:       s.framesDropped,
		ChunksReceived:      s.chunksReceived,
		ParseErrors:         s.parseErrors,
		PingsSent:           s.pingsSent,
		ReconnectsScheduled: s.reconnectsScheduled,
		ReconnectsExhausted: s.reconnectsExhausted,
		LastAck:             s.lastAck,
	}
}
