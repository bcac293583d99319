package recognizer

import (
	"fmt"
	"math"
)

// silenceFloor replaces -Inf bins when a spectrogram has no finite value at all
const silenceFloor = -100.0

// features pools a spectrogram over time into a fixed-size vector: the mean
// of every bin followed by its standard deviation. The vector is centered,
// scaled to unit variance and L2-normalized so that cosine similarity is a
// dot product.
func features(spec *Spectrogram) ([]float64, error) {
	frames := spec.Frames()
	if frames == 0 {
		return nil, fmt.Errorf("spectrogram has no complete frame")
	}
	size := spec.FrameSize

	floor := math.Inf(1)
	for _, v := range spec.Data[:frames*size] {
		x := float64(v)
		if !math.IsInf(x, 0) && !math.IsNaN(x) && x < floor {
			floor = x
		}
	}
	if math.IsInf(floor, 1) {
		floor = silenceFloor
	}

	value := func(f, x int) float64 {
		v := float64(spec.Data[f+x*size])
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return floor
		}
		return v
	}

	vec := make([]float64, 2*size)
	for f := 0; f < size; f++ {
		var sum float64
		for x := 0; x < frames; x++ {
			sum += value(f, x)
		}
		mean := sum / float64(frames)

		var sq float64
		for x := 0; x < frames; x++ {
			d := value(f, x) - mean
			sq += d * d
		}
		vec[f] = mean
		vec[size+f] = math.Sqrt(sq / float64(frames))
	}

	standardize(vec)
	normalize(vec)
	return vec, nil
}

// standardize shifts v to zero mean and scales it to unit variance in place
func standardize(v []float64) {
	if len(v) == 0 {
		return
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	mean := sum / float64(len(v))

	var sq float64
	for i := range v {
		v[i] -= mean
		sq += v[i] * v[i]
	}
	std := math.Sqrt(sq / float64(len(v)))
	if std == 0 {
		return
	}
	for i := range v {
		v[i] /= std
	}
}

// normalize scales v to unit L2 norm in place; the zero vector is left unchanged
func normalize(v []float64) {
	var sq float64
	for _, x := range v {
		sq += x * x
	}
	if sq == 0 {
		return
	}
	norm := math.Sqrt(sq)
	for i := range v {
		v[i] /= norm
	}
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// softmax returns exp(t*x_i) / sum_j exp(t*x_j) computed in a numerically stable way
func softmax(x []float64, temperature float64) []float32 {
	if len(x) == 0 {
		return nil
	}
	maxV := math.Inf(-1)
	for _, v := range x {
		maxV = math.Max(maxV, temperature*v)
	}
	exps := make([]float64, len(x))
	var sum float64
	for i, v := range x {
		exps[i] = math.Exp(temperature*v - maxV)
		sum += exps[i]
	}
	out := make([]float32, len(x))
	for i := range exps {
		out[i] = float32(exps[i] / sum)
	}
	return out
}
