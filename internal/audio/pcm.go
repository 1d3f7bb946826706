package audio

import "encoding/binary"

// Resample converts samples from fromRate to toRate by linear interpolation
// between the two nearest source samples at each target index. It is the
// identity when the rates match. Output length is floor(len / (from/to)).
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate {
		return samples
	}
	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(samples) {
			break
		}
		frac := pos - float64(j)
		if j+1 < len(samples) {
			out[i] = float32(float64(samples[j])*(1-frac) + float64(samples[j+1])*frac)
		} else {
			out[i] = samples[j]
		}
	}
	return out
}

// Quantize converts float samples in [-1, 1] to 16-bit signed integers.
// Samples are clamped before scaling; negative values scale by 32768 and
// non-negative by 32767 so the full range maps without overflow.
func Quantize(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, v := range samples {
		if v < -1 {
			v = -1
		} else if v > 1 {
			v = 1
		}
		if v < 0 {
			out[i] = int16(v * 32768)
		} else {
			out[i] = int16(v * 32767)
		}
	}
	return out
}

// Dequantize is the inverse of Quantize, using the same asymmetric factors
func Dequantize(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, v := range samples {
		if v < 0 {
			out[i] = float32(v) / 32768
		} else {
			out[i] = float32(v) / 32767
		}
	}
	return out
}

// EncodeS16LE packs 16-bit samples as little-endian bytes for the wire
func EncodeS16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// DecodeS16LE unpacks little-endian bytes into 16-bit samples. A trailing
// odd byte is dropped.
func DecodeS16LE(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
