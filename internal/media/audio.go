package media

import (
	"bytes"
	"encoding/binary"
	"math"
)

// WAV synthesis parameters. 22.05kHz mono 16-bit is plenty for placeholder
// narration tracks.
const (
	sampleRate    = 22050
	bitsPerSample = 16
)

// SynthesizeTone produces a PCM WAV file containing a soft sine tone of the
// given duration. It stands in for narration when no TTS tier is available
// and cannot fail.
func SynthesizeTone(durationSeconds float64, freqHz float64) []byte {
	if durationSeconds <= 0 {
		durationSeconds = 1
	}
	if freqHz <= 0 {
		freqHz = 440
	}
	n := int(durationSeconds * sampleRate)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		// Fade in/out over 50ms to avoid clicks.
		env := 1.0
		const fade = 0.05
		if t < fade {
			env = t / fade
		} else if rem := durationSeconds - t; rem < fade {
			env = rem / fade
		}
		samples[i] = int16(0.3 * env * math.Sin(2*math.Pi*freqHz*t) * math.MaxInt16)
	}
	return encodeWAV(samples)
}

func encodeWAV(samples []int16) []byte {
	dataLen := len(samples) * 2
	var buf bytes.Buffer
	buf.Grow(44 + dataLen)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}
