package audio

import (
	"context"
	"fmt"
	"time"
)

// SamplesFor returns the number of mono samples covering d at rate
func SamplesFor(d time.Duration, rate uint32) int {
	return int(d.Seconds() * float64(rate))
}

// Record starts c, collects n mono samples and stops it. Multi-channel input
// is down-mixed by averaging.
func Record(ctx context.Context, c Capturer, n int, channels uint32) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid sample count: %d", n)
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	defer c.Stop()

	// Overflow errors are non-fatal; the recording keeps whatever arrived
	samples := make([]float64, 0, n)
	for len(samples) < n {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-c.Samples():
			if !ok {
				return nil, fmt.Errorf("capture ended after %d of %d samples", len(samples), n)
			}
			samples = append(samples, DownMix(PCM16ToFloat(chunk.Data), int(channels))...)
		}
	}
	return samples[:n], nil
}

// DownMix averages interleaved channels into mono
func DownMix(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	out := make([]float64, len(samples)/channels)
	for i := range out {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += samples[i*channels+ch]
		}
		out[i] = sum / float64(channels)
	}
	return out
}
