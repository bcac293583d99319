package model

// Phase represents where the user is in the record, train, upload flow
type Phase string

const (
	// PhaseInit means no model has been trained yet
	PhaseInit Phase = "init"

	// PhaseTraining means the transfer model is being trained
	PhaseTraining Phase = "training"

	// PhaseDone means a trained model is ready for listening and upload
	PhaseDone Phase = "done"

	// PhaseUploading means the trained model is being uploaded
	PhaseUploading Phase = "uploading"

	// PhaseUploaded means the model was uploaded and a key is available
	PhaseUploaded Phase = "uploaded"
)

// String returns the string representation of Phase
func (p Phase) String() string {
	return string(p)
}

// IsBusy returns true while a long-running operation owns the model
func (p Phase) IsBusy() bool {
	return p == PhaseTraining || p == PhaseUploading
}

// CanTrain returns true if the train button is offered in this phase
func (p Phase) CanTrain() bool {
	return p == PhaseInit || p == PhaseDone || p == PhaseUploaded
}

// CanListen returns true if the microphone may be toggled
func (p Phase) CanListen() bool {
	return p == PhaseDone
}

// CanUpload returns true if the upload button is offered in this phase
func (p Phase) CanUpload() bool {
	return p == PhaseDone
}
