package audio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/aiforedu/sound-trainer/internal/platform"
)

// MalgoCapturer implements the Capturer interface using malgo
type MalgoCapturer struct {
	config       CaptureConfig
	device       *malgo.Device
	malgoContext *malgo.AllocatedContext
	samples      chan Sample
	errors       chan error
	running      bool
	stopped      bool
	mu           sync.RWMutex
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewMalgoCapturer creates a new malgo-based audio capturer
func NewMalgoCapturer(config CaptureConfig) (*MalgoCapturer, error) {
	if config.SampleRate == 0 || config.Channels == 0 {
		return nil, fmt.Errorf("invalid capture config: %d Hz, %d channels", config.SampleRate, config.Channels)
	}
	bufferSize := config.SampleBufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultConfig().SampleBufferSize
	}
	return &MalgoCapturer{
		config:   config,
		samples:  make(chan Sample, bufferSize),
		errors:   make(chan error, 10),
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins audio capture
func (m *MalgoCapturer) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("capturer is already running")
	}
	if m.stopped {
		m.mu.Unlock()
		return fmt.Errorf("capturer was stopped and cannot be restarted")
	}
	m.running = true
	m.mu.Unlock()

	if err := m.start(ctx); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MalgoCapturer) start(ctx context.Context) error {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return &platform.UnsupportedEnvironmentError{Feature: "audio capture", Detail: err.Error()}
	}

	infos, err := malgoCtx.Devices(malgo.Capture)
	if err != nil || len(infos) == 0 {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return &platform.UnsupportedEnvironmentError{Feature: "audio capture", Detail: "no capture device found"}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = m.config.Channels
	deviceConfig.SampleRate = m.config.SampleRate
	deviceConfig.PeriodSizeInFrames = m.config.BufferFrames

	if m.config.DeviceName != "" {
		search := strings.ToLower(m.config.DeviceName)
		found := false
		for i := range infos {
			if strings.Contains(strings.ToLower(infos[i].Name()), search) {
				deviceConfig.Capture.DeviceID = infos[i].ID.Pointer()
				found = true
				break
			}
		}
		if !found {
			_ = malgoCtx.Uninit()
			malgoCtx.Free()
			return fmt.Errorf("no capture device found matching name: %s", m.config.DeviceName)
		}
	}

	var callbacks malgo.DeviceCallbacks
	callbacks.Data = func(_, input []byte, frameCount uint32) {
		// The buffer is reused by miniaudio after the callback returns
		data := make([]byte, len(input))
		copy(data, input)

		select {
		case m.samples <- Sample{Data: data, Timestamp: time.Now(), Frames: frameCount}:
		default:
			select {
			case m.errors <- fmt.Errorf("sample buffer overflow, dropping frames"):
			default:
			}
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.malgoContext = malgoCtx
	m.device = device

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-ctx.Done():
			go m.Stop()
		case <-m.stopChan:
		}
	}()

	return nil
}

// Stop stops audio capture and closes the sample and error channels
func (m *MalgoCapturer) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.stopped = true
	m.mu.Unlock()

	close(m.stopChan)

	var stopErr error
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			stopErr = fmt.Errorf("failed to stop device: %w", err)
		}
		m.device.Uninit()
	}

	if m.malgoContext != nil {
		_ = m.malgoContext.Uninit()
		m.malgoContext.Free()
	}

	m.wg.Wait()

	close(m.samples)
	close(m.errors)

	return stopErr
}

// Samples returns a channel that receives audio samples
func (m *MalgoCapturer) Samples() <-chan Sample {
	return m.samples
}

// Errors returns a channel that receives capture errors
func (m *MalgoCapturer) Errors() <-chan error {
	return m.errors
}

// IsRunning returns true if capture is currently active
func (m *MalgoCapturer) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
