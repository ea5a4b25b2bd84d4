package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// Float32ToPCM16 converts normalized float samples to signed 16-bit little
// endian PCM. Samples are clamped to [-1, 1]; negative values scale by 32768
// and non-negative values by 32767. NaN is encoded as silence.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		s := float64(sample)
		if math.IsNaN(s) {
			s = 0
		}
		s = math.Max(-1, math.Min(1, s))

		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7fff)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// DownmixStereoToMono keeps the left channel of interleaved 16-bit stereo
// PCM. Any bytes past the last complete stereo pair are dropped.
func DownmixStereoToMono(stereo []byte) []byte {
	pairs := len(stereo) / 4
	mono := make([]byte, pairs*2)
	for i := range pairs {
		mono[i*2] = stereo[i*4]
		mono[i*2+1] = stereo[i*4+1]
	}
	return mono
}

func EncodeBase64(buf []byte) string {
	return base64.StdEncoding.EncodeToString(buf)
}

// PCM16Samples decodes signed 16-bit little endian PCM into samples.
func PCM16Samples(buf []byte) []int16 {
	samples := make([]int16, len(buf)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return samples
}
