// Package audio owns the microphone and speaker pipelines. Capture slices the
// mic into fixed 20ms frames and hands them, encoded, to a send callback.
// Playback queues decoded agent audio and feeds it to the device gapless.
package audio

const (
	// DefaultSampleRate is used when the configured rate is missing or not
	// supported by the wire codecs.
	DefaultSampleRate = 16000

	frameDurationMs = 20
)

var supportedRates = []int{8000, 12000, 16000, 24000, 48000}

// Config carries the device selection and processing options for a Manager.
// Labels select devices by exact option label or case-insensitive substring;
// empty labels pick the system defaults.
type Config struct {
	SampleRate  int
	InputLabel  string
	OutputLabel string
	Gate        GateConfig
}

func sanitizeSampleRate(rate int) int {
	for _, r := range supportedRates {
		if rate == r {
			return rate
		}
	}
	return DefaultSampleRate
}

func frameSizeForRate(rate int) int {
	return rate * frameDurationMs / 1000
}

// resampleLinear converts samples from one rate to another with linear
// interpolation. Good enough for voice; not meant for music.
func resampleLinear(samples []int16, from, to int) []int16 {
	if from == to || len(samples) == 0 {
		return samples
	}
	ratio := float64(from) / float64(to)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		outLen = 1
	}
	out := make([]int16, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		a := float64(samples[idx])
		b := float64(samples[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}

// fitSamples truncates or zero pads samples to exactly want samples.
func fitSamples(samples []int16, want int) []int16 {
	if len(samples) == want {
		return samples
	}
	out := make([]int16, want)
	copy(out, samples)
	return out
}
