package ui

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"github.com/aiforedu/sound-trainer/internal/app"
	"github.com/aiforedu/sound-trainer/internal/config"
	"github.com/aiforedu/sound-trainer/internal/dataset"
	"github.com/aiforedu/sound-trainer/internal/logging"
	"github.com/aiforedu/sound-trainer/internal/model"
	"github.com/aiforedu/sound-trainer/internal/platform"
	"github.com/aiforedu/sound-trainer/internal/recognizer"
	"github.com/aiforedu/sound-trainer/internal/upload"
)

// RootUI represents the main window
type RootUI struct {
	ctx          context.Context
	window       fyne.Window
	controller   *app.Controller
	settings     *config.Settings
	history      HistorySource
	localization *Localization
	logger       *slog.Logger

	header  *widget.Label
	micBtn  *widget.Button
	cells   [model.MaxLabels]*SelectorCell
	addCell *AddSelectorCell
	grid    *fyne.Container
	trainer *TrainerPanel

	// shownSelectors is the slot count the grid was last built for
	shownSelectors int
}

// NewRootUI builds the main window and subscribes it to the controller's store.
// history may be nil when the upload history is unavailable.
func NewRootUI(ctx context.Context, window fyne.Window, controller *app.Controller, settings *config.Settings, history HistorySource, logger *slog.Logger) *RootUI {
	if logger == nil {
		logger = logging.Default()
	}

	localization := NewLocalization()
	localization.SetLanguage(settings.GetLanguage())

	ui := &RootUI{
		ctx:          ctx,
		window:       window,
		controller:   controller,
		settings:     settings,
		history:      history,
		localization: localization,
		logger:       logger,
	}

	window.SetTitle(localization.GetText(KeyAppTitle))

	ui.setupUI()

	// Subscribers run on whichever goroutine dispatched; rendering re-reads
	// the latest state on the UI goroutine so late callbacks cannot reorder it.
	controller.Store().Subscribe(func(model.AppState) {
		fyne.Do(ui.render)
	})
	ui.render()
	return ui
}

func (ui *RootUI) setupUI() {
	ui.createMenu()

	ui.header = widget.NewLabelWithStyle(ui.localization.GetText(KeyHeaderMessage), fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	var headerRow fyne.CanvasObject = ui.header
	if logo, err := LoadLogoResource(); err == nil {
		logoImage := canvas.NewImageFromResource(logo)
		logoImage.SetMinSize(fyne.NewSize(32, 32))
		logoImage.FillMode = canvas.ImageFillContain
		headerRow = container.NewBorder(nil, nil, logoImage, nil, ui.header)
	}

	ui.micBtn = widget.NewButton("", ui.onToggleMic)

	for i := range ui.cells {
		ui.cells[i] = NewSelectorCell(i, ui.localization, ui.onRecord)
	}
	ui.addCell = NewAddSelectorCell(ui.onAddSelector)
	ui.grid = container.NewGridWithColumns(selectorColumns())

	ui.trainer = NewTrainerPanel(ui.localization, fyne.CurrentApp().Clipboard(), ui.onTrain, ui.onUpload)

	top := container.NewVBox(
		headerRow,
		container.NewHBox(layout.NewSpacer(), ui.micBtn),
		widget.NewSeparator(),
	)
	bottom := container.NewVBox(widget.NewSeparator(), ui.trainer.Container())

	ui.window.SetContent(container.NewBorder(top, bottom, nil, nil, container.NewVScroll(ui.grid)))
}

func (ui *RootUI) createMenu() {
	t := ui.localization.GetText

	fileMenu := fyne.NewMenu(t(KeyFile),
		fyne.NewMenuItem(t(KeyReset), ui.onReset),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem(t(KeyLoadFromFile), ui.onLoadDataset),
		fyne.NewMenuItem(t(KeySaveToFile), ui.onSaveDataset),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem(t(KeyHistory), ui.onShowHistory),
		fyne.NewMenuItem(t(KeySettings), ui.onShowSettings),
	)

	languageMenu := fyne.NewMenu(t(KeyLanguage))
	for code, name := range ui.localization.GetAvailableLanguages() {
		langCode := code
		item := fyne.NewMenuItem(name, func() {
			ui.onLanguageChange(langCode)
		})
		item.Checked = ui.localization.GetCurrentLanguage() == code
		languageMenu.Items = append(languageMenu.Items, item)
	}

	ui.window.SetMainMenu(fyne.NewMainMenu(fileMenu, languageMenu))
}

// render draws the current state. Must run on the UI goroutine.
func (ui *RootUI) render() {
	state := ui.controller.Store().State()

	if state.MicOn {
		ui.micBtn.SetText(IconMicOn + " " + ui.localization.GetText(KeyMicOn))
		ui.micBtn.Importance = widget.HighImportance
	} else {
		ui.micBtn.SetText(IconMicOff + " " + ui.localization.GetText(KeyMicOff))
		ui.micBtn.Importance = widget.MediumImportance
	}
	if state.MicOn || (state.Phase.CanListen() && !state.IsRecording()) {
		ui.micBtn.Enable()
	} else {
		ui.micBtn.Disable()
	}
	ui.micBtn.Refresh()

	if state.SelectorNumber != ui.shownSelectors {
		ui.rebuildGrid(state.SelectorNumber)
	}
	for i := 0; i < state.SelectorNumber; i++ {
		ui.cells[i].SetView(CellView{
			Image:     state.SampleImages[i],
			Count:     state.SampleNumbers[i],
			Recording: state.RecordingIndex == i,
			Predicted: state.Predicted == i,
			CanRecord: state.CanRecord(i),
		})
	}
	ui.addCell.SetEnabled(!state.Phase.IsBusy())

	ui.trainer.Update(state)
}

func (ui *RootUI) rebuildGrid(n int) {
	objects := make([]fyne.CanvasObject, 0, n+1)
	for i := 0; i < n; i++ {
		objects = append(objects, ui.cells[i])
	}
	if n < model.MaxLabels {
		objects = append(objects, ui.addCell)
	}
	ui.grid.Objects = objects
	ui.grid.Refresh()
	ui.shownSelectors = n
}

func (ui *RootUI) onLanguageChange(code string) {
	ui.localization.SetLanguage(code)
	ui.settings.SetLanguage(code)
	ui.refreshUITexts()
	ui.createMenu()
}

func (ui *RootUI) refreshUITexts() {
	ui.window.SetTitle(ui.localization.GetText(KeyAppTitle))
	ui.header.SetText(ui.localization.GetText(KeyHeaderMessage))
	ui.trainer.RefreshTexts()
	ui.render()
}

// run executes a blocking controller call off the UI goroutine and reports its error
func (ui *RootUI) run(fn func() error) {
	go func() {
		if err := fn(); err != nil {
			ui.ShowError(err)
		}
	}()
}

func (ui *RootUI) onRecord(slot int) {
	ui.run(func() error { return ui.controller.Record(ui.ctx, slot) })
}

func (ui *RootUI) onToggleMic() {
	ui.run(func() error { return ui.controller.ToggleMic(ui.ctx) })
}

func (ui *RootUI) onAddSelector() {
	ui.controller.AddSelector()
}

func (ui *RootUI) onTrain() {
	ui.run(func() error { return ui.controller.Train(ui.ctx) })
}

func (ui *RootUI) onUpload() {
	ui.run(func() error {
		_, err := ui.controller.Upload(ui.ctx)
		return err
	})
}

func (ui *RootUI) onReset() {
	t := ui.localization.GetText
	dialog.ShowConfirm(t(KeyReset), t(KeyResetConfirm), func(ok bool) {
		if ok {
			ui.run(func() error { return ui.controller.Reset(ui.ctx) })
		}
	}, ui.window)
}

func (ui *RootUI) onLoadDataset() {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			ui.ShowError(err)
			return
		}
		if rc == nil {
			return
		}
		ui.run(func() error {
			defer rc.Close()
			if err := ui.controller.LoadDataset(rc); err != nil {
				return err
			}
			ui.rememberDirectory(rc.URI())
			return nil
		})
	}, ui.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{dataset.FileExtension}))
	if loc := ui.datasetLocation(); loc != nil {
		d.SetLocation(loc)
	}
	d.Show()
}

func (ui *RootUI) onSaveDataset() {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			ui.ShowError(err)
			return
		}
		if wc == nil {
			return
		}
		ui.run(func() error {
			err := ui.controller.SaveDataset(wc)
			if cerr := wc.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			ui.rememberDirectory(wc.URI())
			fyne.Do(func() { ui.showSaved(wc.URI()) })
			return nil
		})
	}, ui.window)
	d.SetFileName(dataset.DefaultFileName)
	d.SetFilter(storage.NewExtensionFileFilter([]string{dataset.FileExtension}))
	if loc := ui.datasetLocation(); loc != nil {
		d.SetLocation(loc)
	}
	d.Show()
}

// showSaved confirms a save and offers to reveal the file
func (ui *RootUI) showSaved(uri fyne.URI) {
	t := ui.localization.GetText
	if uri.Scheme() != "file" {
		dialog.ShowInformation(t(KeySaveToFile), t(KeyDatasetSaved), ui.window)
		return
	}
	path := uri.Path()
	d := dialog.NewConfirm(t(KeyDatasetSaved), path, func(reveal bool) {
		if !reveal {
			return
		}
		if err := platform.OpenFileInManager(path); err != nil {
			logging.Error(ui.ctx, ui.logger, "Failed to reveal dataset file.", err, slog.String("path", path))
			ui.ShowError(err)
		}
	}, ui.window)
	d.SetConfirmText(t(KeyShowInFolder))
	d.SetDismissText(t(KeyClose))
	d.Show()
}

func (ui *RootUI) datasetLocation() fyne.ListableURI {
	dir := ui.settings.GetDatasetDirectory()
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return nil
	}
	lister, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return lister
}

func (ui *RootUI) rememberDirectory(uri fyne.URI) {
	if uri == nil || uri.Scheme() != "file" {
		return
	}
	ui.settings.SetDatasetDirectory(filepath.Dir(uri.Path()))
}

func (ui *RootUI) onShowHistory() {
	ShowHistoryDialog(ui.ctx, ui.window, ui.history, ui.localization, ui.logger)
}

func (ui *RootUI) onShowSettings() {
	NewSettingsDialog(ui.settings, ui.localization, ui.window, ui.logger, func() {
		if ui.localization.GetCurrentLanguage() != ui.settings.GetLanguage() {
			ui.onLanguageChange(ui.settings.GetLanguage())
		}
	}).Show()
}

// ShowError reports err in a dialog. Safe to call from any goroutine.
func (ui *RootUI) ShowError(err error) {
	msg := ui.errorMessage(err)
	fyne.Do(func() {
		dialog.ShowError(errors.New(msg), ui.window)
	})
}

// errorMessage maps known failures to localized text
func (ui *RootUI) errorMessage(err error) string {
	t := ui.localization.GetText

	var formatErr *dataset.FormatError
	var transportErr *upload.TransportError
	var envErr *platform.UnsupportedEnvironmentError

	switch {
	case errors.Is(err, recognizer.ErrNotEnoughLabels):
		return t(KeyErrNeedLabels)
	case errors.Is(err, recognizer.ErrNotTrained):
		return t(KeyErrNotTrained)
	case errors.Is(err, app.ErrBusy), errors.Is(err, recognizer.ErrAlreadyListening):
		return t(KeyErrBusy)
	case errors.As(err, &formatErr):
		return t(KeyErrDataset)
	case errors.As(err, &transportErr), errors.Is(err, upload.ErrKeyNotAssigned):
		return t(KeyErrUpload)
	case errors.As(err, &envErr):
		return t(KeyErrMicrophone)
	}
	return err.Error()
}
