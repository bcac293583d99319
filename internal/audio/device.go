package audio

import (
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/aiforedu/sound-trainer/internal/platform"
)

// DeviceInfo describes a capture device
type DeviceInfo struct {
	Index     int
	Name      string
	IsDefault bool
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	if d.IsDefault {
		return fmt.Sprintf("%d: %s [DEFAULT]", d.Index, d.Name)
	}
	return fmt.Sprintf("%d: %s", d.Index, d.Name)
}

// ListDevices returns the available capture devices
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &platform.UnsupportedEnvironmentError{Feature: "audio capture", Detail: err.Error()}
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i, info := range infos {
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}
