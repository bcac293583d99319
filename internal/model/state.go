package model

import (
	"image"

	"github.com/aiforedu/sound-trainer/internal/recognizer"
)

// Slot limits
const (
	// MaxLabels is the number of label slots the UI can offer
	MaxLabels = 10

	// MinLabels is the number of slots shown initially
	MinLabels = 2

	// NoSlot marks the absence of a slot index
	NoSlot = -1
)

// AppState is the single source of truth for the UI.
type AppState struct {
	Phase Phase
	MicOn bool

	// SelectorNumber is the number of visible label slots
	SelectorNumber int

	// SampleImages holds the latest spectrogram thumbnail per slot, nil when none
	SampleImages [MaxLabels]*image.RGBA

	// SampleNumbers holds the recognizer's example count per slot
	SampleNumbers [MaxLabels]int

	// RecordingIndex is the slot currently recording, or NoSlot
	RecordingIndex int

	// Predicted is the slot highlighted by the last recognition, or NoSlot
	Predicted int

	// Recognizer is nil until one has been created
	Recognizer recognizer.Recognizer

	// ModelKey is the access key of the last upload
	ModelKey string

	// TrainProgress is in [0, 1] while training
	TrainProgress float64
}

// InitialState returns the state of a freshly started application
func InitialState() AppState {
	return AppState{
		Phase:          PhaseInit,
		SelectorNumber: MinLabels,
		RecordingIndex: NoSlot,
		Predicted:      NoSlot,
	}
}

// TotalExamples returns the number of examples over all slots
func (s AppState) TotalExamples() int {
	total := 0
	for _, n := range s.SampleNumbers {
		total += n
	}
	return total
}

// IsRecording reports whether any slot is recording
func (s AppState) IsRecording() bool {
	return s.RecordingIndex != NoSlot
}

// CanRecord reports whether slot may start recording now
func (s AppState) CanRecord(slot int) bool {
	return s.Recognizer != nil && !s.IsRecording() && !s.MicOn && !s.Phase.IsBusy() &&
		slot >= 0 && slot < s.SelectorNumber
}

// CanAddSelector reports whether another slot may be added
func (s AppState) CanAddSelector() bool {
	return s.SelectorNumber < MaxLabels
}
