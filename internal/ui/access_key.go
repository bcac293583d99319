package ui

import (
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// AccessKeyRow shows an uploaded model's key with a copy button. After a copy
// the button shows a check mark for CopiedFeedback.
type AccessKeyRow struct {
	localization *Localization
	clipboard    fyne.Clipboard

	label   *widget.Label
	keyText *widget.Entry
	copyBtn *widget.Button
	box     *fyne.Container

	key     string
	copying bool
}

// NewAccessKeyRow creates a hidden access key row
func NewAccessKeyRow(localization *Localization, clipboard fyne.Clipboard) *AccessKeyRow {
	r := &AccessKeyRow{localization: localization, clipboard: clipboard}

	r.label = widget.NewLabel(localization.GetText(KeyAccessKey) + ":")
	r.keyText = widget.NewEntry()
	r.keyText.TextStyle = fyne.TextStyle{Monospace: true}
	r.keyText.Disable()
	r.copyBtn = widget.NewButtonWithIcon("", theme.ContentCopyIcon(), r.copy)

	keyBox := container.NewGridWrap(fyne.NewSize(AccessKeyLabelWidth, r.keyText.MinSize().Height), r.keyText)
	r.box = container.NewHBox(r.label, keyBox, r.copyBtn)
	r.box.Hide()
	return r
}

// Container returns the row's container
func (r *AccessKeyRow) Container() *fyne.Container {
	return r.box
}

// Key returns the key currently shown
func (r *AccessKeyRow) Key() string {
	return r.key
}

// SetKey shows key, or hides the row when key is empty
func (r *AccessKeyRow) SetKey(key string) {
	r.key = key
	r.keyText.SetText(key)
	if key == "" {
		r.box.Hide()
	} else {
		r.box.Show()
	}
}

// RefreshTexts updates the label after a language change
func (r *AccessKeyRow) RefreshTexts() {
	r.label.SetText(r.localization.GetText(KeyAccessKey) + ":")
}

func (r *AccessKeyRow) copy() {
	if r.copying || r.key == "" {
		return
	}
	if r.clipboard != nil {
		r.clipboard.SetContent(r.key)
	}
	r.copying = true
	r.copyBtn.SetIcon(theme.ConfirmIcon())

	time.AfterFunc(CopiedFeedback, func() {
		fyne.Do(func() {
			r.copying = false
			r.copyBtn.SetIcon(theme.ContentCopyIcon())
		})
	})
}
