//go:build cgo
// +build cgo

package codec

import (
	"encoding/base64"
	"fmt"
	"sync"

	"gopkg.in/hraban/opus.v2"
)

// Opus compresses frames before the base64 step. The encoder and decoder are
// stateful, so each direction is serialized by its own mutex.
type Opus struct {
	sampleRate int
	frameSize  int
	encodeMu   sync.Mutex
	decodeMu   sync.Mutex
	encoder    *opus.Encoder
	decoder    *opus.Decoder
}

func NewOpus(sampleRate int, frameSize int) (*Opus, error) {
	enc, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	dec, err := opus.NewDecoder(sampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("opus decoder: %w", err)
	}
	return &Opus{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		encoder:    enc,
		decoder:    dec,
	}, nil
}

func (o *Opus) Encode(samples []int16) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	o.encodeMu.Lock()
	// 4 KB buffer is plenty for mono voice frames
	buf := make([]byte, 4000)
	n, err := o.encoder.Encode(samples, buf)
	o.encodeMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("opus encode: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf[:n]), nil
}

func (o *Opus) Decode(payload string) ([]int16, error) {
	if payload == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	o.decodeMu.Lock()
	pcm := make([]int16, o.frameSize)
	n, err := o.decoder.Decode(raw, pcm)
	o.decodeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return pcm[:n], nil
}

func (o *Opus) WireFormat() string {
	return fmt.Sprintf("opus_%d", o.sampleRate)
}
