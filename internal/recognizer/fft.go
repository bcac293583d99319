package recognizer

import "math"

// fft computes the discrete Fourier transform of a real signal with the
// recursive radix-2 Cooley-Tukey algorithm. len(input) must be a power of two.
func fft(input []float64) []complex128 {
	values := make([]complex128, len(input))
	for i, v := range input {
		values[i] = complex(v, 0)
	}
	return recursiveFFT(values)
}

func recursiveFFT(values []complex128) []complex128 {
	n := len(values)
	if n <= 1 {
		return values
	}

	even := make([]complex128, n/2)
	odd := make([]complex128, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = values[2*i]
		odd[i] = values[2*i+1]
	}

	even = recursiveFFT(even)
	odd = recursiveFFT(odd)

	out := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		angle := -2 * math.Pi * float64(k) / float64(n)
		t := complex(math.Cos(angle), math.Sin(angle)) * odd[k]
		out[k] = even[k] + t
		out[k+n/2] = even[k] - t
	}
	return out
}

// hannWindow returns a Hann window of length n
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}
