package dataset

import (
	"fmt"
	"os"

	"github.com/aiforedu/sound-trainer/internal/platform"
)

// SaveFile writes the dataset to path, adding the .dat extension when missing
func (c *Codec) SaveFile(path string, ds *Dataset) (string, error) {
	path = platform.EnsureExtension(path, FileExtension)

	data, err := c.Encode(ds)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, platform.DefaultFilePermissions); err != nil {
		return "", fmt.Errorf("failed to write dataset file: %w", err)
	}
	return path, nil
}

// LoadFile reads and decodes a dataset file
func (c *Codec) LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	return c.Decode(data)
}
