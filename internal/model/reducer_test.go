package model

import (
	"image"
	"sync"
	"testing"

	"github.com/aiforedu/sound-trainer/internal/recognizer"
)

func TestInitialState(t *testing.T) {
	s := InitialState()
	if s.Phase != PhaseInit || s.MicOn || s.SelectorNumber != MinLabels {
		t.Errorf("unexpected initial state: %+v", s)
	}
	if s.RecordingIndex != NoSlot || s.Predicted != NoSlot {
		t.Errorf("expected no recording and no prediction, got %d, %d", s.RecordingIndex, s.Predicted)
	}
	if s.Recognizer != nil || s.TotalExamples() != 0 {
		t.Error("initial state should have no recognizer and no examples")
	}
}

func TestReduce_SetSelectorNumberClamps(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{3, 3},
		{MaxLabels, MaxLabels},
		{MaxLabels + 1, MaxLabels},
		{0, MinLabels},
		{-5, MinLabels},
	}

	for _, test := range tests {
		result := Reduce(InitialState(), SetSelectorNumber{N: test.n})
		if result.SelectorNumber != test.expected {
			t.Errorf("SetSelectorNumber(%d) = %d, expected %d", test.n, result.SelectorNumber, test.expected)
		}
	}
}

func TestReduce_MicAndPrediction(t *testing.T) {
	s := InitialState()

	s = Reduce(s, SetPredicted{Index: 1})
	if s.Predicted != NoSlot {
		t.Error("prediction must be ignored while the mic is off")
	}

	s = Reduce(s, SetMicFlag{On: true})
	s = Reduce(s, SetPredicted{Index: 1})
	if s.Predicted != 1 {
		t.Errorf("Predicted = %d, expected 1", s.Predicted)
	}

	s = Reduce(s, SetMicFlag{On: true})
	if s.Predicted != 1 {
		t.Error("turning the mic on again keeps the prediction")
	}

	s = Reduce(s, SetMicFlag{On: false})
	if s.Predicted != NoSlot || s.MicOn {
		t.Errorf("mic off should clear the prediction, got %+v", s)
	}
}

func TestReduce_SampleNumbersFromCounts(t *testing.T) {
	s := Reduce(InitialState(), SetSampleNumbers{Counts: map[string]int{"0": 3, "2": 1, "other": 9, "10": 4}})

	expected := [MaxLabels]int{3, 0, 1}
	if s.SampleNumbers != expected {
		t.Errorf("SampleNumbers = %v, expected %v", s.SampleNumbers, expected)
	}

	s = Reduce(s, SetSampleNumbers{})
	if s.TotalExamples() != 0 {
		t.Errorf("nil counts should zero every slot, got %v", s.SampleNumbers)
	}
}

func TestReduce_SampleImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	s := Reduce(InitialState(), SetSampleImage{Index: 3, Image: img})
	if s.SampleImages[3] != img {
		t.Error("image not stored in slot 3")
	}

	before := s.SampleImages
	s = Reduce(s, SetSampleImage{Index: MaxLabels, Image: img})
	if s.SampleImages != before {
		t.Error("out-of-range index must not change images")
	}
}

func TestReduce_RecordingIndex(t *testing.T) {
	s := Reduce(InitialState(), SetRecordingIndex{Index: 1})
	if s.RecordingIndex != 1 || !s.IsRecording() {
		t.Errorf("RecordingIndex = %d, expected 1", s.RecordingIndex)
	}
	s = Reduce(s, SetRecordingIndex{Index: NoSlot})
	if s.IsRecording() {
		t.Error("NoSlot should end recording")
	}
}

func TestReduce_ResetAll(t *testing.T) {
	s := InitialState()
	s = Reduce(s, SetPhase{Phase: PhaseUploaded})
	s = Reduce(s, SetSelectorNumber{N: 7})
	s = Reduce(s, SetMicFlag{On: true})
	s = Reduce(s, SetSampleNumbers{Counts: map[string]int{"0": 2}})
	s = Reduce(s, SetModelKey{Key: "k"})
	s = Reduce(s, SetRecognizer{Recognizer: recognizer.NewTransfer("r")})

	s = Reduce(s, ResetAll{})
	initial := InitialState()
	if s.Phase != initial.Phase || s.SelectorNumber != initial.SelectorNumber || s.MicOn ||
		s.TotalExamples() != 0 || s.ModelKey != "" || s.Recognizer != nil || s.Predicted != NoSlot {
		t.Errorf("ResetAll did not restore the initial state: %+v", s)
	}
}

func TestReduce_LoadData(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	data := LoadData{SelectorNumber: 4}
	data.SampleImages[2] = img
	data.SampleNumbers[2] = 5

	s := Reduce(Reduce(InitialState(), SetPhase{Phase: PhaseDone}), data)
	if s.SelectorNumber != 4 || s.SampleImages[2] != img || s.SampleNumbers[2] != 5 {
		t.Errorf("LoadData not applied: %+v", s)
	}
	if s.Phase != PhaseDone {
		t.Error("LoadData must not change the phase")
	}

}

func TestReduce_LoadDataClampsSelectorNumber(t *testing.T) {
	tests := []struct {
		labels   int
		expected int
	}{
		{0, MinLabels},
		{1, MinLabels},
		{MinLabels, MinLabels},
		{MaxLabels + 1, MaxLabels},
	}

	for _, test := range tests {
		s := Reduce(InitialState(), LoadData{SelectorNumber: test.labels})
		if s.SelectorNumber != test.expected {
			t.Errorf("LoadData with %d labels: SelectorNumber = %d, expected %d", test.labels, s.SelectorNumber, test.expected)
		}
	}
}

func TestReduce_PhaseAndProgress(t *testing.T) {
	s := Reduce(InitialState(), SetPhase{Phase: PhaseTraining})
	s = Reduce(s, SetTrainProgress{Progress: 0.4})
	if s.TrainProgress != 0.4 {
		t.Errorf("TrainProgress = %v, expected 0.4", s.TrainProgress)
	}
	if s := Reduce(s, SetTrainProgress{Progress: 3}); s.TrainProgress != 1 {
		t.Errorf("progress should clamp to 1, got %v", s.TrainProgress)
	}
	s = Reduce(s, SetPhase{Phase: PhaseDone})
	if s.TrainProgress != 0 {
		t.Error("leaving training resets progress")
	}
}

type unknownAction struct{}

func (unknownAction) Kind() ActionKind { return ActionKind(99) }

func TestReduce_UnknownActionIsIdentity(t *testing.T) {
	s := Reduce(InitialState(), SetSelectorNumber{N: 5})
	if result := Reduce(s, unknownAction{}); result != s {
		t.Errorf("unknown action changed state: %+v", result)
	}
	if ActionKind(99).String() != "ActionKind(99)" {
		t.Errorf("unexpected kind name %q", ActionKind(99).String())
	}
	if KindLoadData.String() != "LoadData" {
		t.Errorf("KindLoadData.String() = %q", KindLoadData.String())
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := InitialState()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	_ = Reduce(s, SetSampleImage{Index: 0, Image: img})
	if s.SampleImages[0] != nil {
		t.Error("Reduce mutated its input")
	}
}

func TestPickPrediction(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float32
		selector int
		expected int
	}{
		{"argmax", []float32{0.1, 0.7, 0.2}, 3, 1},
		{"limited to visible slots", []float32{0.1, 0.2, 0.7}, 2, 1},
		{"all zero", []float32{0, 0, 0}, 3, NoSlot},
		{"tie keeps lowest", []float32{0.5, 0.5}, 2, 0},
		{"fewer scores than slots", []float32{0.3}, 5, 0},
		{"empty", nil, 2, NoSlot},
	}

	for _, test := range tests {
		result := PickPrediction(test.scores, test.selector)
		if result != test.expected {
			t.Errorf("%s: PickPrediction = %d, expected %d", test.name, result, test.expected)
		}
	}
}

func TestSlotScores(t *testing.T) {
	scores := SlotScores(recognizer.Result{Words: []string{"0", "3", "x"}, Scores: []float32{0.2, 0.7, 0.1}})
	if len(scores) != MaxLabels || scores[0] != 0.2 || scores[3] != 0.7 || scores[1] != 0 {
		t.Errorf("SlotScores = %v", scores)
	}
	if PickPrediction(scores, 4) != 3 {
		t.Error("expected slot 3 to be predicted")
	}
}

func TestAppState_CanRecord(t *testing.T) {
	s := InitialState()
	if s.CanRecord(0) {
		t.Error("cannot record without a recognizer")
	}
	s = Reduce(s, SetRecognizer{Recognizer: recognizer.NewTransfer("r")})
	if !s.CanRecord(0) || s.CanRecord(2) {
		t.Error("only visible slots can record")
	}
	s = Reduce(s, SetRecordingIndex{Index: 0})
	if s.CanRecord(1) {
		t.Error("only one slot records at a time")
	}
}

func TestStore_DispatchAndSubscribe(t *testing.T) {
	store := NewStore()

	var mu sync.Mutex
	var seen []int
	store.Subscribe(func(s AppState) {
		mu.Lock()
		seen = append(seen, s.SelectorNumber)
		mu.Unlock()
	})
	store.Subscribe(nil)

	result := store.Dispatch(SetSelectorNumber{N: 4})
	if result.SelectorNumber != 4 || store.State().SelectorNumber != 4 {
		t.Errorf("dispatch not applied: %+v", store.State())
	}
	store.Dispatch(SetSelectorNumber{N: 5})

	if len(seen) != 2 || seen[0] != 4 || seen[1] != 5 {
		t.Errorf("subscriber saw %v, expected [4 5]", seen)
	}
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	store := NewStore()
	store.Dispatch(SetMicFlag{On: true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Dispatch(SetPredicted{Index: i % MaxLabels})
		}(i)
	}
	wg.Wait()

	if p := store.State().Predicted; p < 0 || p >= MaxLabels {
		t.Errorf("Predicted = %d out of range", p)
	}
}
