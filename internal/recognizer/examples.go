package recognizer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
)

// Example blob layout
const (
	exampleMagic   = "STEX"
	exampleVersion = 1
	maxLabelLength = 1 << 10
)

// Example is one recorded sound with its label
type Example struct {
	ID          uuid.UUID
	Label       string
	Spectrogram *Spectrogram
}

// ExampleSet is a concurrency-safe, insertion-ordered collection of examples.
type ExampleSet struct {
	mu       sync.RWMutex
	examples []Example
}

// NewExampleSet returns an empty set
func NewExampleSet() *ExampleSet {
	return &ExampleSet{}
}

// Add stores a spectrogram under label and returns the new example's ID
func (s *ExampleSet) Add(label string, spec *Spectrogram) (uuid.UUID, error) {
	if label == "" {
		return uuid.Nil, fmt.Errorf("example label is empty")
	}
	if spec == nil || spec.FrameSize <= 0 || len(spec.Data) == 0 {
		return uuid.Nil, fmt.Errorf("example spectrogram is empty")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate example id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.examples = append(s.examples, Example{ID: id, Label: label, Spectrogram: spec})
	return id, nil
}

// Remove deletes the example with id and reports whether it existed
func (s *ExampleSet) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, ex := range s.examples {
		if ex.ID == id {
			s.examples = append(s.examples[:i], s.examples[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the total number of examples
func (s *ExampleSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.examples)
}

// Count returns the number of examples per label
func (s *ExampleSet) Count() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, ex := range s.examples {
		counts[ex.Label]++
	}
	return counts
}

// Labels returns the distinct labels, slot labels first in numeric order
func (s *ExampleSet) Labels() []string {
	counts := s.Count()
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sortLabels(labels)
	return labels
}

// ByLabel returns the examples recorded for label
func (s *ExampleSet) ByLabel(label string) []Example {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Example
	for _, ex := range s.examples {
		if ex.Label == label {
			out = append(out, ex)
		}
	}
	return out
}

// Clear removes every example
func (s *ExampleSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examples = nil
}

// Merge appends the examples of other whose IDs are not already present
func (s *ExampleSet) Merge(other *ExampleSet) {
	if other == nil || other == s {
		return
	}
	other.mu.RLock()
	incoming := append([]Example(nil), other.examples...)
	other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uuid.UUID]bool, len(s.examples))
	for _, ex := range s.examples {
		seen[ex.ID] = true
	}
	for _, ex := range incoming {
		if !seen[ex.ID] {
			s.examples = append(s.examples, ex)
			seen[ex.ID] = true
		}
	}
}

// Replace swaps the content of s for the content of other
func (s *ExampleSet) Replace(other *ExampleSet) {
	if other == s {
		return
	}
	var incoming []Example
	if other != nil {
		other.mu.RLock()
		incoming = append([]Example(nil), other.examples...)
		other.mu.RUnlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.examples = incoming
}

// Serialize encodes the set as:
//
//	"STEX" | u32 version | u32 count | count × example
//	example = 16 byte id | u16 label length | label | u32 frame size | u32 value count | values (f32)
//
// All integers and floats are little-endian.
func (s *ExampleSet) Serialize() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := len(exampleMagic) + 8
	for _, ex := range s.examples {
		size += 16 + 2 + len(ex.Label) + 8 + 4*len(ex.Spectrogram.Data)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, exampleMagic...)
	buf = binary.LittleEndian.AppendUint32(buf, exampleVersion)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.examples)))
	for _, ex := range s.examples {
		if len(ex.Label) > maxLabelLength {
			return nil, fmt.Errorf("example %s: label longer than %d bytes", ex.ID, maxLabelLength)
		}
		buf = append(buf, ex.ID[:]...)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(ex.Label)))
		buf = append(buf, ex.Label...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(ex.Spectrogram.FrameSize))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ex.Spectrogram.Data)))
		for _, v := range ex.Spectrogram.Data {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf, nil
}

// DeserializeExamples decodes a blob produced by Serialize. An empty blob
// yields an empty set.
func DeserializeExamples(data []byte) (*ExampleSet, error) {
	set := NewExampleSet()
	if len(data) == 0 {
		return set, nil
	}

	r := &blobReader{data: data}
	magic, err := r.bytes(len(exampleMagic))
	if err != nil {
		return nil, err
	}
	if string(magic) != exampleMagic {
		return nil, fmt.Errorf("examples blob: bad magic %q", magic)
	}
	version, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if version != exampleVersion {
		return nil, fmt.Errorf("examples blob: unsupported version %d", version)
	}
	count, err := r.readUint32()
	if err != nil {
		return nil, err
	}

	for i := uint32(0); i < count; i++ {
		ex, err := r.example()
		if err != nil {
			return nil, fmt.Errorf("examples blob: example %d: %w", i, err)
		}
		set.examples = append(set.examples, ex)
	}

	if r.pos != len(data) {
		return nil, fmt.Errorf("examples blob: %d unexpected trailing bytes", len(data)-r.pos)
	}
	return set, nil
}

type blobReader struct {
	data []byte
	pos  int
}

func (r *blobReader) bytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.data)-r.pos {
		return nil, fmt.Errorf("examples blob truncated at offset %d", r.pos)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *blobReader) readUint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *blobReader) example() (Example, error) {
	var ex Example

	id, err := r.bytes(16)
	if err != nil {
		return ex, err
	}
	copy(ex.ID[:], id)

	lb, err := r.bytes(2)
	if err != nil {
		return ex, err
	}
	label, err := r.bytes(int(binary.LittleEndian.Uint16(lb)))
	if err != nil {
		return ex, err
	}
	if len(label) == 0 {
		return ex, fmt.Errorf("empty label")
	}
	ex.Label = string(label)

	frameSize, err := r.readUint32()
	if err != nil {
		return ex, err
	}
	n, err := r.readUint32()
	if err != nil {
		return ex, err
	}
	if frameSize == 0 || n == 0 || n%frameSize != 0 {
		return ex, fmt.Errorf("%d values do not form whole frames of %d", n, frameSize)
	}
	if uint64(n)*4 > uint64(len(r.data)-r.pos) {
		return ex, fmt.Errorf("examples blob truncated at offset %d", r.pos)
	}
	raw, _ := r.bytes(int(n) * 4)

	values := make([]float32, n)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	ex.Spectrogram = &Spectrogram{Data: values, FrameSize: int(frameSize)}
	return ex, nil
}
