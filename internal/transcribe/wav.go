package transcribe

import "encoding/binary"

// encodeWAV serializes mono float32 samples as an in-memory 16-bit PCM
// WAV file for upload. Samples are clamped to [-1, 1] before conversion.
func encodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 0, 44+dataSize)

	le := binary.LittleEndian
	u16 := func(v uint16) {
		buf = le.AppendUint16(buf, v)
	}
	u32 := func(v uint32) {
		buf = le.AppendUint32(buf, v)
	}

	buf = append(buf, "RIFF"...)
	u32(uint32(36 + dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	u32(16)                      // fmt chunk size
	u16(1)                       // PCM
	u16(1)                       // mono
	u32(uint32(sampleRate))      // sample rate
	u32(uint32(sampleRate * 2))  // byte rate
	u16(2)                       // block align
	u16(16)                      // bits per sample

	buf = append(buf, "data"...)
	u32(uint32(dataSize))

	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		u16(uint16(int16(s * 32767)))
	}
	return buf
}
