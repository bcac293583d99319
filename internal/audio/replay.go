package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// ReplayCapturer plays back prerecorded mono samples as if they came from a
// device, one BufferFrames chunk at a time. When Loop is false the samples
// channel closes after the last chunk.
type ReplayCapturer struct {
	config  CaptureConfig
	pcm     []byte
	Loop    bool
	samples chan Sample
	errors  chan error
	stop    chan struct{}
	done    chan struct{}
	running bool
	stopped bool
	mu      sync.Mutex
}

// NewReplayCapturer creates a capturer over samples using config's rate and period size
func NewReplayCapturer(samples []float64, config CaptureConfig) *ReplayCapturer {
	pcm := make([]byte, 0, 2*len(samples))
	for _, v := range FloatToPCM16(samples) {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(v)))
	}
	if config.BufferFrames == 0 {
		config.BufferFrames = DefaultConfig().BufferFrames
	}
	config.Channels = 1
	bufferSize := config.SampleBufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultConfig().SampleBufferSize
	}
	return &ReplayCapturer{
		config:  config,
		pcm:     pcm,
		samples: make(chan Sample, bufferSize),
		errors:  make(chan error, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins replaying in a background goroutine
func (r *ReplayCapturer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("capturer is already running")
	}
	if r.stopped {
		return fmt.Errorf("capturer was stopped and cannot be restarted")
	}
	r.running = true

	go r.replay(ctx)
	return nil
}

func (r *ReplayCapturer) replay(ctx context.Context) {
	defer close(r.done)
	defer close(r.samples)

	chunk := int(r.config.BufferFrames) * 2
	for {
		for pos := 0; pos < len(r.pcm); pos += chunk {
			end := pos + chunk
			if end > len(r.pcm) {
				end = len(r.pcm)
			}
			s := Sample{Data: r.pcm[pos:end], Timestamp: time.Now(), Frames: uint32((end - pos) / 2)}
			select {
			case r.samples <- s:
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
		if !r.Loop || len(r.pcm) == 0 {
			return
		}
	}
}

// Stop ends the replay and waits for the goroutine to exit
func (r *ReplayCapturer) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.stopped = true
	r.mu.Unlock()

	close(r.stop)
	<-r.done
	close(r.errors)
	return nil
}

// Samples returns a channel that receives audio samples
func (r *ReplayCapturer) Samples() <-chan Sample {
	return r.samples
}

// Errors returns a channel that receives capture errors
func (r *ReplayCapturer) Errors() <-chan error {
	return r.errors
}

// IsRunning returns true between Start and Stop
func (r *ReplayCapturer) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// ReplayFactory returns a CapturerFactory that replays samples for every session
func ReplayFactory(samples []float64, loop bool) CapturerFactory {
	return func(config CaptureConfig) (Capturer, error) {
		c := NewReplayCapturer(samples, config)
		c.Loop = loop
		return c, nil
	}
}
