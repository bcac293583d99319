package dataset

import (
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
)

// Layout constants
const (
	// HeaderSize is the fixed prefix: label count + example blob length
	HeaderSize = 2 * 4

	// SlotMetaSize is one (byteLength, width, height) triplet
	SlotMetaSize = 3 * 4

	// BytesPerPixel for RGBA thumbnails
	BytesPerPixel = 4

	// DefaultMaxLabels matches the number of label slots offered by the UI
	DefaultMaxLabels = 10
)

// File naming
const (
	DefaultFileName = "SoundData.dat"
	FileExtension   = ".dat"
)

// FormatError reports a malformed dataset file.
type FormatError struct {
	Offset int    // byte offset where the problem was detected
	Reason string // human readable description
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid dataset file at offset %d: %s", e.Offset, e.Reason)
}

func formatErrorf(offset int, format string, args ...interface{}) error {
	return &FormatError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}

// Dataset is the in-memory form of a .dat file.
type Dataset struct {
	// LabelCount is the number of label slots (N)
	LabelCount int

	// Examples is the recognizer's serialized example blob, kept opaque here
	Examples []byte

	// Thumbnails holds one entry per slot; nil means no examples recorded yet
	Thumbnails []*image.RGBA
}

// Thumbnail returns the thumbnail for slot i, or nil when absent or out of range.
func (d *Dataset) Thumbnail(i int) *image.RGBA {
	if i < 0 || i >= len(d.Thumbnails) {
		return nil
	}
	return d.Thumbnails[i]
}

// Codec encodes and decodes dataset files with a bounded label count.
type Codec struct {
	MaxLabels int
}

// NewCodec creates a codec accepting at most maxLabels slots
func NewCodec(maxLabels int) *Codec {
	if maxLabels <= 0 {
		maxLabels = DefaultMaxLabels
	}
	return &Codec{MaxLabels: maxLabels}
}

// slotMeta is the per-slot header triplet
type slotMeta struct {
	byteLength uint32
	width      uint32
	height     uint32
}

// EncodedSize returns the exact number of bytes Encode will produce.
func (c *Codec) EncodedSize(ds *Dataset) int {
	size := HeaderSize + ds.LabelCount*SlotMetaSize + len(ds.Examples)
	for i := 0; i < ds.LabelCount; i++ {
		if img := ds.Thumbnail(i); img != nil {
			b := img.Bounds()
			size += b.Dx() * b.Dy() * BytesPerPixel
		}
	}
	return size
}

// Encode serializes the dataset into a single contiguous buffer.
func (c *Codec) Encode(ds *Dataset) ([]byte, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}
	if ds.LabelCount < 0 || ds.LabelCount > c.MaxLabels {
		return nil, fmt.Errorf("label count %d out of range [0, %d]", ds.LabelCount, c.MaxLabels)
	}
	if uint64(len(ds.Examples)) > math.MaxUint32 {
		return nil, fmt.Errorf("example blob too large: %d bytes", len(ds.Examples))
	}

	metas := make([]slotMeta, ds.LabelCount)
	pixels := make([][]byte, ds.LabelCount)
	for i := 0; i < ds.LabelCount; i++ {
		img := ds.Thumbnail(i)
		if img == nil {
			continue
		}
		pix, w, h, err := compactPixels(img)
		if err != nil {
			return nil, fmt.Errorf("thumbnail %d: %w", i, err)
		}
		metas[i] = slotMeta{byteLength: uint32(len(pix)), width: uint32(w), height: uint32(h)}
		pixels[i] = pix
	}

	buf := make([]byte, 0, c.EncodedSize(ds))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(ds.LabelCount))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ds.Examples)))
	for _, m := range metas {
		buf = binary.LittleEndian.AppendUint32(buf, m.byteLength)
		buf = binary.LittleEndian.AppendUint32(buf, m.width)
		buf = binary.LittleEndian.AppendUint32(buf, m.height)
	}
	buf = append(buf, ds.Examples...)
	for _, pix := range pixels {
		buf = append(buf, pix...)
	}

	return buf, nil
}

// Decode parses a dataset buffer in one forward scan.
func (c *Codec) Decode(data []byte) (*Dataset, error) {
	r := &cursor{data: data}

	if len(data) < HeaderSize {
		return nil, formatErrorf(0, "file is %d bytes, shorter than the %d byte header", len(data), HeaderSize)
	}

	labelCount := r.readUint32()
	if labelCount > uint32(c.MaxLabels) {
		return nil, formatErrorf(0, "file contains too many labels: %d (max %d)", labelCount, c.MaxLabels)
	}
	examplesLength := r.readUint32()

	n := int(labelCount)
	if r.remaining() < n*SlotMetaSize {
		return nil, formatErrorf(r.pos, "slot table needs %d bytes, %d remaining", n*SlotMetaSize, r.remaining())
	}

	metas := make([]slotMeta, n)
	for i := range metas {
		metas[i] = slotMeta{byteLength: r.readUint32(), width: r.readUint32(), height: r.readUint32()}
		if err := metas[i].validate(r.pos - SlotMetaSize); err != nil {
			return nil, err
		}
	}

	examples, err := r.take(uint64(examplesLength), "example blob")
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		LabelCount: n,
		Examples:   append([]byte(nil), examples...),
		Thumbnails: make([]*image.RGBA, n),
	}

	for i, m := range metas {
		if m.byteLength == 0 {
			continue
		}
		pix, err := r.take(uint64(m.byteLength), fmt.Sprintf("thumbnail %d", i))
		if err != nil {
			return nil, err
		}
		img := image.NewRGBA(image.Rect(0, 0, int(m.width), int(m.height)))
		copy(img.Pix, pix)
		ds.Thumbnails[i] = img
	}

	if r.remaining() != 0 {
		return nil, formatErrorf(r.pos, "%d unexpected trailing bytes", r.remaining())
	}

	return ds, nil
}

// Write encodes ds and writes it to w
func (c *Codec) Write(w io.Writer, ds *Dataset) error {
	data, err := c.Encode(ds)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

// Read consumes r fully and decodes it
func (c *Codec) Read(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return c.Decode(data)
}

// validate checks the thumbnail size invariant for a slot triplet
func (m slotMeta) validate(offset int) error {
	if m.byteLength == 0 {
		return nil
	}
	expected := uint64(m.width) * uint64(m.height) * BytesPerPixel
	if uint64(m.byteLength) != expected {
		return formatErrorf(offset, "thumbnail length %d does not match %dx%d RGBA (%d bytes)",
			m.byteLength, m.width, m.height, expected)
	}
	return nil
}

// compactPixels returns the image pixels as a tightly packed row-major RGBA buffer
func compactPixels(img *image.RGBA) ([]byte, int, int, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, fmt.Errorf("empty thumbnail bounds %v", b)
	}
	rowBytes := w * BytesPerPixel
	if img.Stride == rowBytes && b.Min == (image.Point{}) && len(img.Pix) == rowBytes*h {
		return img.Pix, w, h, nil
	}

	pix := make([]byte, 0, rowBytes*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := img.PixOffset(b.Min.X, y)
		if start < 0 || start+rowBytes > len(img.Pix) {
			return nil, 0, 0, fmt.Errorf("pixel buffer shorter than bounds %v", b)
		}
		pix = append(pix, img.Pix[start:start+rowBytes]...)
	}
	return pix, w, h, nil
}

// cursor is a bounds-checked little-endian reader over a byte slice
type cursor struct {
	data []byte
	pos  int
}

func (r *cursor) remaining() int {
	return len(r.data) - r.pos
}

// readUint32 reads without bounds checks; callers verify remaining() first
func (r *cursor) readUint32() uint32 {
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *cursor) take(n uint64, what string) ([]byte, error) {
	if n > uint64(r.remaining()) {
		return nil, formatErrorf(r.pos, "%s declares %d bytes, only %d remaining", what, n, r.remaining())
	}
	out := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return out, nil
}
