package model

import "github.com/aiforedu/sound-trainer/internal/recognizer"

// Reduce returns the state that results from applying action to state.
// It has no side effects; actions it does not know leave the state unchanged.
func Reduce(state AppState, action Action) AppState {
	switch a := action.(type) {
	case SetRecognizer:
		state.Recognizer = a.Recognizer

	case SetPhase:
		state.Phase = a.Phase
		if a.Phase != PhaseTraining {
			state.TrainProgress = 0
		}

	case SetSampleNumbers:
		var numbers [MaxLabels]int
		for i := range numbers {
			numbers[i] = a.Counts[recognizer.SlotLabel(i)]
		}
		state.SampleNumbers = numbers

	case SetSampleImage:
		if a.Index >= 0 && a.Index < MaxLabels {
			state.SampleImages[a.Index] = a.Image
		}

	case SetSelectorNumber:
		state.SelectorNumber = clampSelectorNumber(a.N)

	case SetMicFlag:
		state.MicOn = a.On
		if !a.On {
			state.Predicted = NoSlot
		}

	case SetRecordingIndex:
		if a.Index < 0 || a.Index >= MaxLabels {
			state.RecordingIndex = NoSlot
		} else {
			state.RecordingIndex = a.Index
		}

	case SetPredicted:
		if state.MicOn && a.Index >= 0 && a.Index < MaxLabels {
			state.Predicted = a.Index
		} else {
			state.Predicted = NoSlot
		}

	case ResetAll:
		state = InitialState()

	case LoadData:
		state.SelectorNumber = clampSelectorNumber(a.SelectorNumber)
		state.SampleImages = a.SampleImages
		state.SampleNumbers = a.SampleNumbers

	case SetModelKey:
		state.ModelKey = a.Key

	case SetTrainProgress:
		p := a.Progress
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
		state.TrainProgress = p
	}

	return state
}

func clampSelectorNumber(n int) int {
	if n < MinLabels {
		return MinLabels
	}
	if n > MaxLabels {
		return MaxLabels
	}
	return n
}

// PickPrediction returns the slot with the highest score among the first
// selectorNumber slots. Only scores strictly above zero count; NoSlot is
// returned when none qualifies. Ties keep the lowest slot.
func PickPrediction(scores []float32, selectorNumber int) int {
	label := NoSlot
	var best float32
	for i := 0; i < selectorNumber && i < len(scores); i++ {
		if scores[i] > best {
			label = i
			best = scores[i]
		}
	}
	return label
}

// SlotScores spreads a recognition result over slot positions using the
// result's slot labels. Words that are not slot labels are ignored.
func SlotScores(result recognizer.Result) []float32 {
	scores := make([]float32, MaxLabels)
	for i, word := range result.Words {
		slot := recognizer.LabelSlot(word)
		if slot >= 0 && slot < MaxLabels && i < len(result.Scores) {
			scores[slot] = result.Scores[i]
		}
	}
	return scores
}
