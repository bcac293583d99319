package audio

import (
	"context"
	"time"
)

// CaptureConfig holds configuration for audio capture
type CaptureConfig struct {
	// SampleRate is the number of samples per second (Hz)
	SampleRate uint32

	// Channels is the number of audio channels, 1 = mono
	Channels uint32

	// BufferFrames is the number of frames per device period
	BufferFrames uint32

	// SampleBufferSize is the capacity of the samples channel
	SampleBufferSize int

	// DeviceName selects a capture device by case-insensitive partial match.
	// Empty means the system default.
	DeviceName string
}

// DefaultConfig returns the configuration used for recording examples and listening
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:       16000,
		Channels:         1,
		BufferFrames:     480, // 30ms at 16kHz
		SampleBufferSize: 50,
	}
}

// Sample is a chunk of captured 16-bit little-endian PCM
type Sample struct {
	Data      []byte
	Timestamp time.Time
	Frames    uint32
}

// Capturer is the interface for audio capture implementations.
// A capturer is single use: once stopped, its channels are closed.
type Capturer interface {
	Start(ctx context.Context) error
	Stop() error
	Samples() <-chan Sample
	Errors() <-chan error
	IsRunning() bool
}

// CapturerFactory creates a fresh capturer for each capture session
type CapturerFactory func(config CaptureConfig) (Capturer, error)

// NewCapturer creates a new audio capturer with the given configuration
func NewCapturer(config CaptureConfig) (Capturer, error) {
	return NewMalgoCapturer(config)
}
