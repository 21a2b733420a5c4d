package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectPolicyDelay(t *testing.T) {
	p := DefaultReconnectPolicy()

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first retry", 0, time.Second},
		{"second retry", 1, 2 * time.Second},
		{"third retry", 2, 4 * time.Second},
		{"negative clamps to base", -3, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Delay(tt.attempt))
		})
	}
}

func TestReconnectPolicyDelayCustomBase(t *testing.T) {
	p := ReconnectPolicy{BaseDelay: 10 * time.Millisecond, MaxAttempts: 3}
	assert.Equal(t, 10*time.Millisecond, p.Delay(0))
	assert.Equal(t, 20*time.Millisecond, p.Delay(1))
	assert.Equal(t, 40*time.Millisecond, p.Delay(2))
}

func TestReconnectPolicyExhausted(t *testing.T) {
	p := DefaultReconnectPolicy()
	assert.False(t, p.Exhausted(0))
	assert.False(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(3))
	assert.True(t, p.Exhausted(7))
}

func TestDefaultReconnectPolicy(t *testing.T) {
	p := DefaultReconnectPolicy()
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, 3, p.MaxAttempts)
}
