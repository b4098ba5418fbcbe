package audio

import "fmt"

// Resample converts interleaved PCM samples from the device's native rate
// and channel count to mono at dstRate. Multi-channel input is downmixed
// first by averaging channels, then the rate is converted with linear
// interpolation. Output values are clamped to [-1, 1].
//
// It is a pure function of its inputs. Passing srcRate == dstRate returns
// a mono copy with no rate conversion.
func Resample(samples []float32, srcRate, srcChannels, dstRate int) ([]float32, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d -> %d", srcRate, dstRate)
	}
	if srcChannels <= 0 {
		return nil, fmt.Errorf("audio: invalid channel count %d", srcChannels)
	}
	if len(samples)%srcChannels != 0 {
		return nil, fmt.Errorf("audio: %d samples not divisible by %d channels", len(samples), srcChannels)
	}

	mono := downmix(samples, srcChannels)

	if srcRate == dstRate {
		out := make([]float32, len(mono))
		copy(out, mono)
		clamp(out)
		return out, nil
	}

	if len(mono) == 0 {
		return []float32{}, nil
	}

	outLen := int(int64(len(mono)) * int64(dstRate) / int64(srcRate))
	if outLen == 0 {
		outLen = 1
	}

	step := float64(srcRate) / float64(dstRate)
	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= len(mono)-1 {
			out[i] = mono[len(mono)-1]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = mono[j] + (mono[j+1]-mono[j])*frac
	}
	clamp(out)
	return out, nil
}

// downmix averages interleaved channels into a single mono channel.
// Mono input is returned as-is (callers must not mutate the result if
// they still need the original slice intact; Resample copies afterwards).
func downmix(samples []float32, channels int) []float32 {
	if channels == 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += samples[base+c]
		}
		mono[f] = sum / float32(channels)
	}
	return mono
}

// clamp bounds every sample to [-1, 1] in place.
func clamp(samples []float32) {
	for i, s := range samples {
		if s > 1.0 {
			samples[i] = 1.0
		} else if s < -1.0 {
			samples[i] = -1.0
		}
	}
}
