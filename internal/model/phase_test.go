package model

import "testing"

func TestPhase_IsBusy(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected bool
	}{
		{PhaseInit, false},
		{PhaseTraining, true},
		{PhaseDone, false},
		{PhaseUploading, true},
		{PhaseUploaded, false},
	}

	for _, test := range tests {
		result := test.phase.IsBusy()
		if result != test.expected {
			t.Errorf("Phase(%s).IsBusy() = %v, expected %v", test.phase, result, test.expected)
		}
	}
}

func TestPhase_CanTrain(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected bool
	}{
		{PhaseInit, true},
		{PhaseTraining, false},
		{PhaseDone, true},
		{PhaseUploading, false},
		{PhaseUploaded, true},
	}

	for _, test := range tests {
		result := test.phase.CanTrain()
		if result != test.expected {
			t.Errorf("Phase(%s).CanTrain() = %v, expected %v", test.phase, result, test.expected)
		}
	}
}

func TestPhase_ListenAndUpload(t *testing.T) {
	for _, phase := range []Phase{PhaseInit, PhaseTraining, PhaseDone, PhaseUploading, PhaseUploaded} {
		expected := phase == PhaseDone
		if phase.CanListen() != expected {
			t.Errorf("Phase(%s).CanListen() = %v, expected %v", phase, phase.CanListen(), expected)
		}
		if phase.CanUpload() != expected {
			t.Errorf("Phase(%s).CanUpload() = %v, expected %v", phase, phase.CanUpload(), expected)
		}
	}
}

func TestPhase_String(t *testing.T) {
	phase := PhaseUploading
	expected := "uploading"
	result := phase.String()

	if result != expected {
		t.Errorf("Phase.String() = %s, expected %s", result, expected)
	}
}
