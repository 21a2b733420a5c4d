//go:build !cgo
// +build !cgo

package codec

import "fmt"

var errOpusUnavailable = fmt.Errorf("opus codec requires a CGO-enabled build")

// Opus is a placeholder for builds without cgo.
type Opus struct{}

func NewOpus(sampleRate int, frameSize int) (*Opus, error) {
	return nil, errOpusUnavailable
}

func (o *Opus) Encode(samples []int16) (string, error) {
	return "", errOpusUnavailable
}

func (o *Opus) Decode(payload string) ([]int16, error) {
	return nil, errOpusUnavailable
}

func (o *Opus) WireFormat() string {
	return "opus"
}
