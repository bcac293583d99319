package recognizer

import (
	"fmt"
	"image"
	"math"
)

// Spectrogram layout
const (
	// FFTSize is the number of samples per analysis frame
	FFTSize = 512

	// FrameSize is the number of frequency bins kept per frame
	FrameSize = 232
)

// Spectrogram is a sequence of frames, each FrameSize log-power values
// ordered from low to high frequency. Data is frame-major: bin f of frame x
// is Data[f + x*FrameSize]. Silent bins hold -Inf.
type Spectrogram struct {
	Data      []float32
	FrameSize int
}

// Frames returns the number of complete frames
func (s *Spectrogram) Frames() int {
	if s == nil || s.FrameSize <= 0 {
		return 0
	}
	return len(s.Data) / s.FrameSize
}

// ComputeSpectrogram splits samples into non-overlapping FFTSize frames and
// returns the Hann-windowed log power of the first FrameSize bins of each.
// A trailing partial frame is dropped.
func ComputeSpectrogram(samples []float64) (*Spectrogram, error) {
	frames := len(samples) / FFTSize
	if frames == 0 {
		return nil, fmt.Errorf("need at least %d samples for one frame, got %d", FFTSize, len(samples))
	}

	window := hannWindow(FFTSize)
	frame := make([]float64, FFTSize)
	data := make([]float32, 0, frames*FrameSize)

	for x := 0; x < frames; x++ {
		for i := range frame {
			frame[i] = samples[x*FFTSize+i] * window[i]
		}
		spectrum := fft(frame)
		for f := 0; f < FrameSize; f++ {
			re, im := real(spectrum[f]), imag(spectrum[f])
			power := re*re + im*im
			// log10(0) is -Inf, which marks silent bins
			data = append(data, float32(10*math.Log10(power)))
		}
	}

	return &Spectrogram{Data: data, FrameSize: FrameSize}, nil
}

// ToImage renders the spectrogram as an RGBA image, time on the x axis and
// frequency on the y axis with low frequencies at the bottom. Power is
// normalized over finite values and mapped to the red channel as p^3.
func (s *Spectrogram) ToImage() *image.RGBA {
	if s == nil || s.FrameSize <= 0 || len(s.Data) == 0 {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range s.Data {
		x := float64(v)
		if math.IsInf(x, 0) || math.IsNaN(x) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}

	height := s.FrameSize
	width := (len(s.Data) + height - 1) / height
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		freq := height - y - 1
		for x := 0; x < width; x++ {
			j := (x + y*width) * 4
			img.Pix[j+0] = pixelLevel(s.value(freq+x*height), lo, hi)
			img.Pix[j+3] = 255
		}
	}
	return img
}

// value returns Data[i], or -Inf past the end of a partial last frame
func (s *Spectrogram) value(i int) float64 {
	if i >= len(s.Data) {
		return math.Inf(-1)
	}
	return float64(s.Data[i])
}

func pixelLevel(power, lo, hi float64) uint8 {
	if hi <= lo || math.IsNaN(power) {
		return 0
	}
	p := (power - lo) / (hi - lo)
	v := math.Round(p * p * p * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
