package model

import (
	"fmt"
	"image"

	"github.com/aiforedu/sound-trainer/internal/recognizer"
)

// ActionKind identifies an action type
type ActionKind int

const (
	KindSetRecognizer ActionKind = iota
	KindSetPhase
	KindSetSampleNumbers
	KindSetSampleImage
	KindSetSelectorNumber
	KindSetMicFlag
	KindSetRecordingIndex
	KindSetPredicted
	KindResetAll
	KindLoadData
	KindSetModelKey
	KindSetTrainProgress
)

var actionKindNames = [...]string{
	"SetRecognizer",
	"SetPhase",
	"SetSampleNumbers",
	"SetSampleImage",
	"SetSelectorNumber",
	"SetMicFlag",
	"SetRecordingIndex",
	"SetPredicted",
	"ResetAll",
	"LoadData",
	"SetModelKey",
	"SetTrainProgress",
}

// String returns the action kind name
func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionKindNames) {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return actionKindNames[k]
}

// Action is a request to change the application state
type Action interface {
	Kind() ActionKind
}

// SetRecognizer installs the recognizer
type SetRecognizer struct {
	Recognizer recognizer.Recognizer
}

// SetPhase moves to another phase
type SetPhase struct {
	Phase Phase
}

// SetSampleNumbers replaces the per-slot example counts with the recognizer's
// counts keyed by slot label; missing labels count as zero.
type SetSampleNumbers struct {
	Counts map[string]int
}

// SetSampleImage sets the thumbnail of one slot
type SetSampleImage struct {
	Index int
	Image *image.RGBA
}

// SetSelectorNumber sets the number of visible slots
type SetSelectorNumber struct {
	N int
}

// SetMicFlag turns listening on or off
type SetMicFlag struct {
	On bool
}

// SetRecordingIndex marks a slot as recording, NoSlot when done
type SetRecordingIndex struct {
	Index int
}

// SetPredicted highlights a slot, NoSlot for none
type SetPredicted struct {
	Index int
}

// ResetAll returns to the initial state and drops the recognizer
type ResetAll struct{}

// LoadData replaces slots with the content of a dataset file
type LoadData struct {
	SelectorNumber int
	SampleImages   [MaxLabels]*image.RGBA
	SampleNumbers  [MaxLabels]int
}

// SetModelKey records the key returned by an upload
type SetModelKey struct {
	Key string
}

// SetTrainProgress reports training progress in [0, 1]
type SetTrainProgress struct {
	Progress float64
}

func (SetRecognizer) Kind() ActionKind     { return KindSetRecognizer }
func (SetPhase) Kind() ActionKind          { return KindSetPhase }
func (SetSampleNumbers) Kind() ActionKind  { return KindSetSampleNumbers }
func (SetSampleImage) Kind() ActionKind    { return KindSetSampleImage }
func (SetSelectorNumber) Kind() ActionKind { return KindSetSelectorNumber }
func (SetMicFlag) Kind() ActionKind        { return KindSetMicFlag }
func (SetRecordingIndex) Kind() ActionKind { return KindSetRecordingIndex }
func (SetPredicted) Kind() ActionKind      { return KindSetPredicted }
func (ResetAll) Kind() ActionKind          { return KindResetAll }
func (LoadData) Kind() ActionKind          { return KindLoadData }
func (SetModelKey) Kind() ActionKind       { return KindSetModelKey }
func (SetTrainProgress) Kind() ActionKind  { return KindSetTrainProgress }
