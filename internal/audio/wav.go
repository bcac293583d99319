package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file into mono samples at targetRate.
// A targetRate of zero keeps the file's own rate.
func ReadWAV(path string, targetRate int) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("%s is not a valid WAV file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	bitDepth := int(decoder.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d in %s", bitDepth, path)
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}

	rate := buf.Format.SampleRate
	samples = DownMix(samples, buf.Format.NumChannels)
	if targetRate > 0 && targetRate != rate {
		samples = Resample(samples, rate, targetRate)
		rate = targetRate
	}
	return samples, rate, nil
}

// WriteWAV encodes mono samples as a 16-bit PCM WAV file
func WriteWAV(path string, samples []float64, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	encoder := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           FloatToPCM16(samples),
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		encoder.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return encoder.Close()
}
