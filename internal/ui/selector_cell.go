package ui

import (
	"fmt"
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// CellView is everything a selector cell shows for one slot
type CellView struct {
	Image     *image.RGBA
	Count     int
	Recording bool
	Predicted bool
	CanRecord bool
}

// SelectorCell shows one label slot: index chip, spectrogram thumbnail,
// example count and the record button.
type SelectorCell struct {
	widget.BaseWidget

	index        int
	localization *Localization
	view         CellView

	highlight *canvas.Rectangle
	chip      *widget.Label
	thumbnail *canvas.Image
	blank     *canvas.Rectangle
	count     *widget.Label
	recordBtn *widget.Button

	onRecord func(slot int)
}

// NewSelectorCell creates the cell for slot index
func NewSelectorCell(index int, localization *Localization, onRecord func(slot int)) *SelectorCell {
	c := &SelectorCell{
		index:        index,
		localization: localization,
		onRecord:     onRecord,
	}
	c.ExtendBaseWidget(c)
	c.createUI()
	return c
}

func (c *SelectorCell) createUI() {
	c.highlight = canvas.NewRectangle(color.Transparent)
	c.highlight.CornerRadius = theme.InputRadiusSize()

	c.chip = widget.NewLabelWithStyle(fmt.Sprint(c.index+1), fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	c.thumbnail = canvas.NewImageFromImage(nil)
	c.thumbnail.FillMode = canvas.ImageFillStretch
	c.thumbnail.ScaleMode = canvas.ImageScalePixels
	c.thumbnail.SetMinSize(fyne.NewSize(ThumbnailWidth, ThumbnailHeight))

	c.blank = canvas.NewRectangle(theme.Color(theme.ColorNameInputBackground))
	c.blank.SetMinSize(fyne.NewSize(ThumbnailWidth, ThumbnailHeight))

	c.count = widget.NewLabelWithStyle("0", fyne.TextAlignTrailing, fyne.TextStyle{Monospace: true})

	c.recordBtn = widget.NewButtonWithIcon("", theme.MediaRecordIcon(), func() {
		if c.onRecord != nil {
			c.onRecord(c.index)
		}
	})

	c.refreshView()
}

// Index returns the slot this cell belongs to
func (c *SelectorCell) Index() int {
	return c.index
}

// SetView updates the cell. Call on the UI goroutine.
func (c *SelectorCell) SetView(view CellView) {
	c.view = view
	c.refreshView()
	c.Refresh()
}

func (c *SelectorCell) refreshView() {
	v := c.view

	if v.Image != nil {
		c.thumbnail.Image = v.Image
		c.thumbnail.Show()
		c.blank.Hide()
	} else {
		c.thumbnail.Image = nil
		c.thumbnail.Hide()
		c.blank.Show()
	}
	c.thumbnail.Refresh()

	c.count.SetText(fmt.Sprintf("%d %s", v.Count, c.localization.GetText(KeyExamples)))

	switch {
	case v.Recording:
		c.recordBtn.SetText(c.localization.GetText(KeyRecording))
		c.recordBtn.Importance = widget.DangerImportance
		c.recordBtn.Disable()
	default:
		c.recordBtn.SetText(c.localization.GetText(KeyRecord))
		c.recordBtn.Importance = widget.MediumImportance
		if v.CanRecord {
			c.recordBtn.Enable()
		} else {
			c.recordBtn.Disable()
		}
	}
	c.recordBtn.Refresh()

	if v.Predicted {
		c.highlight.FillColor = theme.Color(ColorNamePredicted)
	} else {
		c.highlight.FillColor = color.Transparent
	}
	c.highlight.Refresh()
}

// CreateRenderer creates the widget renderer
func (c *SelectorCell) CreateRenderer() fyne.WidgetRenderer {
	chip := container.NewGridWrap(fyne.NewSize(IndexChipWidth, c.chip.MinSize().Height), c.chip)
	picture := container.NewStack(c.blank, c.thumbnail)
	footer := container.NewBorder(nil, nil, nil, c.recordBtn, c.count)

	content := container.NewBorder(nil, footer, chip, nil, container.NewCenter(picture))
	return widget.NewSimpleRenderer(container.NewStack(c.highlight, container.NewPadded(content)))
}

// AddSelectorCell is the trailing grid cell that adds one more slot
type AddSelectorCell struct {
	widget.BaseWidget

	button *widget.Button
}

// NewAddSelectorCell creates the add cell
func NewAddSelectorCell(onAdd func()) *AddSelectorCell {
	c := &AddSelectorCell{button: widget.NewButtonWithIcon("", theme.ContentAddIcon(), onAdd)}
	c.button.Importance = widget.LowImportance
	c.ExtendBaseWidget(c)
	return c
}

// SetEnabled enables or disables adding
func (c *AddSelectorCell) SetEnabled(enabled bool) {
	if enabled {
		c.button.Enable()
	} else {
		c.button.Disable()
	}
}

// CreateRenderer creates the widget renderer
func (c *AddSelectorCell) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewCenter(c.button))
}
