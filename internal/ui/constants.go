package ui

import "time"

// Icons (emojis/symbols)
const (
	IconMicOn    = "🎤"
	IconMicOff   = "🔇"
	IconRecord   = "●"
	IconAdd      = "+"
	IconSettings = "⚙"
	IconLanguage = "🌐"
	IconCheck    = "✓"
)

// Text fragments
const (
	MiddleDotSeparator  = " · "
	DashPlaceholder     = "—"
	ProgressLabelFormat = "%d%%"
	HistoryTimeFormat   = "2006-01-02 15:04"
)

// Selector cell sizing
const (
	ThumbnailWidth  float32 = 200
	ThumbnailHeight float32 = 60
	IndexChipWidth  float32 = 28
	CellPadding     float32 = 6

	// Mobile layouts use a single column of cells
	DesktopColumns = 2
	MobileColumns  = 1
)

// Window and dialog sizing
const (
	WindowWidth         float32 = 560
	WindowHeight        float32 = 720
	SettingsDialogW     float32 = 500
	SettingsDialogH     float32 = 460
	HistoryDialogW      float32 = 520
	HistoryDialogH      float32 = 380
	HistoryDialogLimit          = 20
	AccessKeyLabelWidth float32 = 260
)

// CopiedFeedback is how long the copy button shows a check mark
const CopiedFeedback = 2 * time.Second
