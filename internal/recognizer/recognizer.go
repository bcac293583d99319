package recognizer

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/aiforedu/sound-trainer/internal/upload"
)

// Defaults
const (
	DefaultProbabilityThreshold = 0.5
	DefaultOverlap              = 0.5
	DefaultCollectDuration      = 2 * time.Second
	ListenWindow                = time.Second
)

var (
	ErrNotTrained       = errors.New("recognizer has not been trained")
	ErrNotEnoughLabels  = errors.New("at least two labels need examples before training")
	ErrAlreadyListening = errors.New("recognizer is already listening")
	ErrNotListening     = errors.New("recognizer is not listening")
)

// Recognizer is the sound classifier the application drives.
type Recognizer interface {
	// Listen streams classification results to cb until StopListening or ctx is done.
	Listen(ctx context.Context, cb func(Result), opts ListenOptions) error
	StopListening() error
	IsListening() bool

	// CollectExample records one example for label and returns its spectrogram.
	CollectExample(ctx context.Context, label string, opts CollectOptions) (*Spectrogram, error)

	Train(ctx context.Context, opts TrainOptions) error

	// Save hands the trained model to handler and returns the key it assigned.
	Save(ctx context.Context, handler upload.Handler) (string, error)

	LoadExamples(blob []byte, clearExisting bool) error
	SerializeExamples() ([]byte, error)
	CountExamples() map[string]int
	ClearExamples()

	Close() error
}

// Result is one classification. Scores[i] belongs to Words[i].
type Result struct {
	Words  []string
	Scores []float32
}

// ScoreFor returns the score of word, or 0 when the word is not part of the result
func (r Result) ScoreFor(word string) float32 {
	for i, w := range r.Words {
		if w == word && i < len(r.Scores) {
			return r.Scores[i]
		}
	}
	return 0
}

// ListenOptions controls streaming recognition
type ListenOptions struct {
	// ProbabilityThreshold suppresses results whose best score is below it
	ProbabilityThreshold float64

	// Overlap is the fraction of consecutive windows that overlap, in [0, 1)
	Overlap float64
}

func (o ListenOptions) withDefaults() ListenOptions {
	if o.ProbabilityThreshold <= 0 {
		o.ProbabilityThreshold = DefaultProbabilityThreshold
	}
	if o.Overlap <= 0 || o.Overlap >= 1 {
		o.Overlap = DefaultOverlap
	}
	return o
}

// CollectOptions controls example recording
type CollectOptions struct {
	Duration time.Duration
}

// TrainOptions controls training
type TrainOptions struct {
	// OnProgress is called after each unit of work; may be nil
	OnProgress func(done, total int)
}

// SlotLabel is the example label used for a selector slot
func SlotLabel(slot int) string {
	return strconv.Itoa(slot)
}

// LabelSlot parses a slot label, returning -1 for labels that are not slot indices
func LabelSlot(label string) int {
	slot, err := strconv.Atoi(label)
	if err != nil || slot < 0 {
		return -1
	}
	return slot
}

// sortLabels orders slot labels numerically and everything else after them lexically
func sortLabels(labels []string) {
	sort.Slice(labels, func(i, j int) bool {
		a, b := LabelSlot(labels[i]), LabelSlot(labels[j])
		switch {
		case a >= 0 && b >= 0:
			return a < b
		case a >= 0:
			return true
		case b >= 0:
			return false
		}
		return labels[i] < labels[j]
	})
}
