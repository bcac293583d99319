package audio

import (
	"encoding/binary"
	"math"
)

const pcm16Scale = 32768.0

// PCM16ToFloat converts little-endian signed 16-bit PCM to samples in [-1, 1).
// A trailing odd byte is ignored.
func PCM16ToFloat(data []byte) []float64 {
	out := make([]float64, len(data)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(data[2*i:]))) / pcm16Scale
	}
	return out
}

// FloatToPCM16 converts samples to 16-bit integers, clipping to the representable range
func FloatToPCM16(samples []float64) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(s * pcm16Scale)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int(v)
	}
	return out
}

// Resample converts samples between rates with linear interpolation
func Resample(samples []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(toRate) / int64(fromRate))
	out := make([]float64, n)
	step := float64(fromRate) / float64(toRate)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		frac := pos - float64(j)
		if j+1 < len(samples) {
			out[i] = samples[j]*(1-frac) + samples[j+1]*frac
		} else {
			out[i] = samples[len(samples)-1]
		}
	}
	return out
}
