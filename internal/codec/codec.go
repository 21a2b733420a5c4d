package codec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// Adapter converts between raw PCM sample buffers and the payload string
// carried inside media events. Implementations must tolerate one goroutine
// encoding while another decodes.
type Adapter interface {
	Encode(samples []int16) (string, error)
	Decode(payload string) ([]int16, error)
	// WireFormat is the input_format string declared in the start message.
	WireFormat() string
}

// PCM is the default adapter: 16-bit little-endian samples, base64 encoded.
type PCM struct {
	sampleRate int
}

func NewPCM(sampleRate int) *PCM {
	return &PCM{sampleRate: sampleRate}
}

func (p *PCM) Encode(samples []int16) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	raw := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(sample))
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (p *PCM) Decode(payload string) ([]int16, error) {
	if payload == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("payload is %d bytes, want a multiple of 2", len(raw))
	}
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

func (p *PCM) WireFormat() string {
	return fmt.Sprintf("pcm_s16le_%d", p.sampleRate)
}
