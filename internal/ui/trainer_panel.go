package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/aiforedu/sound-trainer/internal/model"
)

// TrainerPanel holds the train and upload controls. Which controls are
// visible follows the phase: train in init/done/uploaded, progress while
// training, a spinner while uploading, upload in done, the key once uploaded.
type TrainerPanel struct {
	localization *Localization

	trainBtn  *widget.Button
	progress  *widget.ProgressBar
	spinner   *widget.ProgressBarInfinite
	uploadBtn *widget.Button
	accessKey *AccessKeyRow

	box *fyne.Container
}

// NewTrainerPanel creates the panel; onTrain and onUpload run on the UI goroutine
func NewTrainerPanel(localization *Localization, clipboard fyne.Clipboard, onTrain, onUpload func()) *TrainerPanel {
	p := &TrainerPanel{localization: localization}

	p.trainBtn = widget.NewButton(localization.GetText(KeyTrain), onTrain)
	p.trainBtn.Importance = widget.HighImportance
	p.progress = widget.NewProgressBar()
	p.spinner = widget.NewProgressBarInfinite()
	p.uploadBtn = widget.NewButton(localization.GetText(KeyUpload), onUpload)
	p.accessKey = NewAccessKeyRow(localization, clipboard)

	p.box = container.NewVBox(p.trainBtn, p.progress, p.spinner, p.uploadBtn, container.NewCenter(p.accessKey.Container()))
	p.Update(model.InitialState())
	return p
}

// Container returns the panel's container
func (p *TrainerPanel) Container() *fyne.Container {
	return p.box
}

// AccessKey returns the access key row
func (p *TrainerPanel) AccessKey() *AccessKeyRow {
	return p.accessKey
}

// Update renders state. Call on the UI goroutine.
func (p *TrainerPanel) Update(state model.AppState) {
	phase := state.Phase

	setVisible(p.trainBtn, phase.CanTrain())
	if state.IsRecording() {
		p.trainBtn.Disable()
	} else {
		p.trainBtn.Enable()
	}

	setVisible(p.progress, phase == model.PhaseTraining)
	p.progress.SetValue(state.TrainProgress)

	if phase == model.PhaseUploading {
		p.spinner.Show()
		p.spinner.Start()
	} else {
		p.spinner.Stop()
		p.spinner.Hide()
	}

	setVisible(p.uploadBtn, phase == model.PhaseDone)

	if phase == model.PhaseUploaded {
		p.accessKey.SetKey(state.ModelKey)
	} else {
		p.accessKey.SetKey("")
	}
}

// RefreshTexts updates labels after a language change
func (p *TrainerPanel) RefreshTexts() {
	p.trainBtn.SetText(p.localization.GetText(KeyTrain))
	p.uploadBtn.SetText(p.localization.GetText(KeyUpload))
	p.accessKey.RefreshTexts()
}

func setVisible(obj fyne.CanvasObject, visible bool) {
	if visible {
		obj.Show()
	} else {
		obj.Hide()
	}
}
