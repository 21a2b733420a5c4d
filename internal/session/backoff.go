package session

import "time"

// ReconnectPolicy bounds the automatic redial behavior after an unsolicited
// close. attempt counts closes since the last successful open.
type ReconnectPolicy struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

// DefaultReconnectPolicy matches the service's observed behavior: 1s, 2s, 4s,
// then give up.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		BaseDelay:   time.Second,
		MaxAttempts: 3,
	}
}

// Delay returns the wait before reconnect attempt number attempt (0-based),
// doubling each time: base, 2*base, 4*base, ...
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	return base << uint(attempt)
}

// Exhausted reports whether attempt has used up the budget.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
