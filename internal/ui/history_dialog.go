package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/aiforedu/sound-trainer/internal/history"
	"github.com/aiforedu/sound-trainer/internal/logging"
	"github.com/aiforedu/sound-trainer/internal/recognizer"
)

// HistorySource lists past uploads
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// ShowHistoryDialog lists recent uploads with a copy button per key
func ShowHistoryDialog(ctx context.Context, window fyne.Window, source HistorySource, localization *Localization, logger *slog.Logger) {
	t := localization.GetText
	if source == nil {
		dialog.ShowInformation(t(KeyHistory), t(KeyHistoryOff), window)
		return
	}

	entries, err := source.Recent(ctx, HistoryDialogLimit)
	if err != nil {
		logging.Error(ctx, logger, "Failed to read upload history.", err)
		dialog.ShowError(err, window)
		return
	}
	if len(entries) == 0 {
		dialog.ShowInformation(t(KeyHistory), t(KeyHistoryEmpty), window)
		return
	}

	rows := container.NewVBox()
	for _, e := range entries {
		rows.Add(historyRow(e))
	}

	d := dialog.NewCustom(t(KeyHistory), t(KeyClose), container.NewVScroll(rows), window)
	d.Resize(fyne.NewSize(HistoryDialogW, HistoryDialogH))
	d.Show()
}

func historyRow(e history.Entry) fyne.CanvasObject {
	key := widget.NewLabelWithStyle(e.ModelKey, fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
	info := widget.NewLabel(historySummary(e))
	info.Importance = widget.LowImportance

	var copyBtn *widget.Button
	copyBtn = widget.NewButtonWithIcon("", theme.ContentCopyIcon(), func() {
		fyne.CurrentApp().Clipboard().SetContent(e.ModelKey)
		copyBtn.SetIcon(theme.ConfirmIcon())
	})
	copyBtn.Importance = widget.LowImportance

	return container.NewBorder(nil, widget.NewSeparator(), nil, copyBtn, container.NewVBox(key, info))
}

// historySummary renders the upload time and per-label example counts
func historySummary(e history.Entry) string {
	parts := []string{e.UploadedAt.Local().Format(HistoryTimeFormat)}
	var counts []string
	for _, label := range e.Labels {
		name := label
		if slot := recognizer.LabelSlot(label); slot >= 0 {
			name = fmt.Sprint(slot + 1)
		}
		counts = append(counts, fmt.Sprintf("%s:%d", name, e.Examples[label]))
	}
	if len(counts) > 0 {
		parts = append(parts, strings.Join(counts, " "))
	}
	return strings.Join(parts, MiddleDotSeparator)
}
