package config

import (
	"net/url"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"

	"github.com/aiforedu/sound-trainer/internal/platform"
	"github.com/aiforedu/sound-trainer/internal/upload"
)

// AppName is used for the per-user data directory
const AppName = "sound-trainer"

// Settings keys for Fyne preferences
const (
	KeyDatasetDir           = "dataset_directory"
	KeyUploadEndpoint       = "upload_endpoint"
	KeyLanguage             = "app_language"
	KeyProbabilityThreshold = "probability_threshold"
	KeyRecordDurationMs     = "record_duration_ms"
	KeyHistoryDBPath        = "history_db_path"
	KeyCaptureDevice        = "capture_device"
)

// Default values
const (
	DefaultLanguage             = "ja"
	DefaultProbabilityThreshold = 0.5
	DefaultRecordDurationMs     = 2000
	MinRecordDurationMs         = 500
	MaxRecordDurationMs         = 5000
	DefaultHistoryFileName      = "history.db"
)

// Settings manages application configuration
type Settings struct {
	app fyne.App
}

// NewSettings creates a new settings manager
func NewSettings(app fyne.App) *Settings {
	return &Settings{app: app}
}

// GetDatasetDirectory returns the directory offered by the save and load dialogs
func (s *Settings) GetDatasetDirectory() string {
	dir := s.app.Preferences().String(KeyDatasetDir)
	if dir == "" {
		defaultDir, err := platform.GetHomeDownloadsDir()
		if err != nil {
			defaultDir = filepath.Join(".", "datasets")
		}
		s.SetDatasetDirectory(defaultDir)
		return defaultDir
	}
	return dir
}

// SetDatasetDirectory sets the dataset directory
func (s *Settings) SetDatasetDirectory(dir string) {
	s.app.Preferences().SetString(KeyDatasetDir, dir)
}

// GetUploadEndpoint returns the model collection endpoint
func (s *Settings) GetUploadEndpoint() string {
	endpoint := s.app.Preferences().String(KeyUploadEndpoint)
	if endpoint == "" {
		s.SetUploadEndpoint(upload.DefaultEndpoint)
		return upload.DefaultEndpoint
	}
	return endpoint
}

// SetUploadEndpoint sets the model collection endpoint. Values that are not
// absolute http(s) URLs reset it to the default.
func (s *Settings) SetUploadEndpoint(endpoint string) {
	if !isHTTPURL(endpoint) {
		endpoint = upload.DefaultEndpoint
	}
	s.app.Preferences().SetString(KeyUploadEndpoint, endpoint)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// GetLanguage returns the configured language
func (s *Settings) GetLanguage() string {
	lang := s.app.Preferences().String(KeyLanguage)
	if lang == "" {
		s.SetLanguage(DefaultLanguage)
		return DefaultLanguage
	}
	return lang
}

// SetLanguage sets the application language
func (s *Settings) SetLanguage(lang string) {
	if _, ok := s.GetLanguageOptions()[lang]; !ok {
		lang = DefaultLanguage
	}
	s.app.Preferences().SetString(KeyLanguage, lang)
}

// GetLanguageOptions returns available language options
func (s *Settings) GetLanguageOptions() map[string]string {
	return map[string]string{
		"system": "System Default",
		"en":     "English",
		"ja":     "日本語",
	}
}

// GetProbabilityThreshold returns the minimum score a recognition needs to be shown
func (s *Settings) GetProbabilityThreshold() float64 {
	return s.app.Preferences().FloatWithFallback(KeyProbabilityThreshold, DefaultProbabilityThreshold)
}

// SetProbabilityThreshold sets the recognition threshold, clamped to [0, 1]
func (s *Settings) SetProbabilityThreshold(threshold float64) {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	s.app.Preferences().SetFloat(KeyProbabilityThreshold, threshold)
}

// GetRecordDuration returns the length of one recorded example
func (s *Settings) GetRecordDuration() time.Duration {
	ms := s.app.Preferences().Int(KeyRecordDurationMs)
	if ms <= 0 {
		s.SetRecordDurationMs(DefaultRecordDurationMs)
		ms = DefaultRecordDurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

// SetRecordDurationMs sets the example length in milliseconds
func (s *Settings) SetRecordDurationMs(ms int) {
	if ms < MinRecordDurationMs {
		ms = MinRecordDurationMs
	}
	if ms > MaxRecordDurationMs {
		ms = MaxRecordDurationMs
	}
	s.app.Preferences().SetInt(KeyRecordDurationMs, ms)
}

// GetHistoryDBPath returns the upload history database location
func (s *Settings) GetHistoryDBPath() string {
	path := s.app.Preferences().String(KeyHistoryDBPath)
	if path == "" {
		path = DefaultHistoryDBPath()
		s.SetHistoryDBPath(path)
	}
	return path
}

// SetHistoryDBPath sets the upload history database location
func (s *Settings) SetHistoryDBPath(path string) {
	s.app.Preferences().SetString(KeyHistoryDBPath, path)
}

// GetCaptureDevice returns the preferred capture device name, empty for the system default
func (s *Settings) GetCaptureDevice() string {
	return s.app.Preferences().String(KeyCaptureDevice)
}

// SetCaptureDevice sets the preferred capture device name
func (s *Settings) SetCaptureDevice(name string) {
	s.app.Preferences().SetString(KeyCaptureDevice, name)
}

// DefaultHistoryDBPath returns the history database path in the user's config directory
func DefaultHistoryDBPath() string {
	dir, err := platform.AppDataDir(AppName)
	if err != nil {
		return DefaultHistoryFileName
	}
	return filepath.Join(dir, DefaultHistoryFileName)
}
