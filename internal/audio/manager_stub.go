//go:build !cgo
// +build !cgo

package audio

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voicelinehq/voiceline-go/internal/codec"
	"github.com/voicelinehq/voiceline-go/internal/metrics"
)

var errCGORequired = fmt.Errorf("audio requires a CGO-enabled build")

// Manager is a placeholder for builds without cgo. PortAudio needs cgo, so
// construction fails and every operation reports the same error.
type Manager struct{}

func NewManager(Config, codec.Adapter, zerolog.Logger, *metrics.Metrics) (*Manager, error) {
	return nil, errCGORequired
}

func (m *Manager) StartCapture(func(payload string)) error { return errCGORequired }

func (m *Manager) StopCapture() {}

func (m *Manager) EnsurePlayback() error { return errCGORequired }

func (m *Manager) Enqueue(string) {}

func (m *Manager) Flush() {}

func (m *Manager) Close() error { return nil }

func ListInputDevices() ([]string, error) { return nil, errCGORequired }

func ListOutputDevices() ([]string, error) { return nil, errCGORequired }
