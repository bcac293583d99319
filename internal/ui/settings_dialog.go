package ui

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/aiforedu/sound-trainer/internal/audio"
	"github.com/aiforedu/sound-trainer/internal/config"
)

// SettingsDialog edits the persisted settings
type SettingsDialog struct {
	settings     *config.Settings
	localization *Localization
	window       fyne.Window
	logger       *slog.Logger
	dialog       *dialog.ConfirmDialog
	onSaved      func()

	datasetDirEntry *widget.Entry
	endpointEntry   *widget.Entry
	thresholdEntry  *widget.Entry
	durationEntry   *widget.Entry
	deviceSelect    *widget.Select
	languageSelect  *widget.Select

	// languageCodes maps display names back to codes
	languageCodes map[string]string
}

// NewSettingsDialog creates a new settings dialog; onSaved runs after a save
func NewSettingsDialog(settings *config.Settings, localization *Localization, window fyne.Window, logger *slog.Logger, onSaved func()) *SettingsDialog {
	sd := &SettingsDialog{
		settings:     settings,
		localization: localization,
		window:       window,
		logger:       logger,
		onSaved:      onSaved,
	}

	sd.createUI()
	return sd
}

// Show displays the settings dialog
func (sd *SettingsDialog) Show() {
	sd.loadCurrentSettings()
	sd.dialog.Show()
}

func (sd *SettingsDialog) createUI() {
	t := sd.localization.GetText

	sd.datasetDirEntry = widget.NewEntry()
	browseDirBtn := widget.NewButton(t(KeyBrowse), sd.onBrowseDirectory)
	datasetDirRow := container.NewBorder(nil, nil, nil, browseDirBtn, sd.datasetDirEntry)

	sd.endpointEntry = widget.NewEntry()
	sd.endpointEntry.SetPlaceHolder("https://")

	sd.thresholdEntry = widget.NewEntry()
	sd.thresholdEntry.SetPlaceHolder("0.5")

	sd.durationEntry = widget.NewEntry()
	sd.durationEntry.SetPlaceHolder(strconv.Itoa(config.DefaultRecordDurationMs))

	sd.deviceSelect = widget.NewSelect(sd.deviceOptions(), nil)

	sd.languageCodes = make(map[string]string)
	var languageNames []string
	for code, name := range sd.settings.GetLanguageOptions() {
		sd.languageCodes[name] = code
		languageNames = append(languageNames, name)
	}
	sort.Strings(languageNames)
	sd.languageSelect = widget.NewSelect(languageNames, nil)

	form := container.NewVBox(
		widget.NewLabel(t(KeyDatasetDirectory)+":"),
		datasetDirRow,

		widget.NewLabel(t(KeyUploadEndpoint)+":"),
		sd.endpointEntry,

		widget.NewLabel(t(KeyThreshold)+":"),
		sd.thresholdEntry,

		widget.NewLabel(t(KeyRecordDuration)+":"),
		sd.durationEntry,

		widget.NewLabel(t(KeyCaptureDevice)+":"),
		sd.deviceSelect,

		widget.NewSeparator(),

		widget.NewLabel(t(KeyLanguage)+":"),
		sd.languageSelect,
	)

	sd.dialog = dialog.NewCustomConfirm(
		t(KeySettings),
		t(KeySave),
		t(KeyCancel),
		form,
		sd.onSave,
		sd.window,
	)

	sd.dialog.Resize(fyne.NewSize(SettingsDialogW, SettingsDialogH))
}

// deviceOptions lists capture devices with the system default first
func (sd *SettingsDialog) deviceOptions() []string {
	options := []string{sd.localization.GetText(KeyDefaultDevice)}
	devices, err := audio.ListDevices()
	if err != nil {
		sd.logger.Warn("Failed to list capture devices.", slog.Any("error", err))
		return options
	}
	for _, d := range devices {
		options = append(options, d.Name)
	}
	return options
}

func (sd *SettingsDialog) loadCurrentSettings() {
	sd.datasetDirEntry.SetText(sd.settings.GetDatasetDirectory())
	sd.endpointEntry.SetText(sd.settings.GetUploadEndpoint())
	sd.thresholdEntry.SetText(strconv.FormatFloat(sd.settings.GetProbabilityThreshold(), 'f', -1, 64))
	sd.durationEntry.SetText(strconv.FormatInt(sd.settings.GetRecordDuration().Milliseconds(), 10))

	if device := sd.settings.GetCaptureDevice(); device != "" {
		sd.deviceSelect.SetSelected(device)
	} else {
		sd.deviceSelect.SetSelectedIndex(0)
	}

	current := sd.settings.GetLanguage()
	for name, code := range sd.languageCodes {
		if code == current {
			sd.languageSelect.SetSelected(name)
		}
	}
}

func (sd *SettingsDialog) onBrowseDirectory() {
	dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		sd.datasetDirEntry.SetText(uri.Path())
	}, sd.window)
}

func (sd *SettingsDialog) onSave(confirmed bool) {
	if !confirmed {
		return
	}
	sd.apply()
	dialog.ShowInformation(sd.localization.GetText(KeySettings), sd.localization.GetText(KeySettingsSaved), sd.window)
	if sd.onSaved != nil {
		sd.onSaved()
	}
}

// apply writes the form into settings. Unparsable numbers keep the stored value.
func (sd *SettingsDialog) apply() {
	if dir := strings.TrimSpace(sd.datasetDirEntry.Text); dir != "" {
		sd.settings.SetDatasetDirectory(dir)
	}

	if endpoint := strings.TrimSpace(sd.endpointEntry.Text); endpoint != "" {
		sd.settings.SetUploadEndpoint(endpoint)
	}

	if v, err := strconv.ParseFloat(strings.TrimSpace(sd.thresholdEntry.Text), 64); err == nil {
		sd.settings.SetProbabilityThreshold(v)
	}

	if ms, err := strconv.Atoi(strings.TrimSpace(sd.durationEntry.Text)); err == nil {
		sd.settings.SetRecordDurationMs(ms)
	}

	if sd.deviceSelect.SelectedIndex() <= 0 {
		sd.settings.SetCaptureDevice("")
	} else {
		sd.settings.SetCaptureDevice(sd.deviceSelect.Selected)
	}

	if code, ok := sd.languageCodes[sd.languageSelect.Selected]; ok {
		sd.settings.SetLanguage(code)
	}
}
