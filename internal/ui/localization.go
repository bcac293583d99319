package ui

import (
	"strings"

	"fyne.io/fyne/v2/lang"
)

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle         = "app_title"
	KeyHeaderMessage    = "header_message"
	KeyTrain            = "train"
	KeyUpload           = "upload"
	KeyAccessKey        = "access_key"
	KeyCopy             = "copy"
	KeyRecord           = "record"
	KeyRecording        = "recording"
	KeyExamples         = "examples"
	KeyMicOn            = "mic_on"
	KeyMicOff           = "mic_off"
	KeyFile             = "file"
	KeyReset            = "reset"
	KeyResetConfirm     = "reset_confirm"
	KeyLoadFromFile     = "load_from_file"
	KeySaveToFile       = "save_to_file"
	KeyHistory          = "history"
	KeyHistoryEmpty     = "history_empty"
	KeyHistoryOff       = "history_unavailable"
	KeySettings         = "settings"
	KeyLanguage         = "language"
	KeyDatasetDirectory = "dataset_directory"
	KeyUploadEndpoint   = "upload_endpoint"
	KeyThreshold        = "probability_threshold"
	KeyRecordDuration   = "record_duration"
	KeyCaptureDevice    = "capture_device"
	KeyDefaultDevice    = "default_device"
	KeySave             = "save"
	KeyCancel           = "cancel"
	KeyClose            = "close"
	KeyBrowse           = "browse"
	KeySettingsSaved    = "settings_saved"
	KeyDatasetSaved     = "dataset_saved"
	KeyShowInFolder     = "show_in_folder"
	KeyError            = "error"
	KeyErrNeedLabels    = "err_need_labels"
	KeyErrUpload        = "err_upload"
	KeyErrDataset       = "err_dataset"
	KeyErrMicrophone    = "err_microphone"
	KeyErrBusy          = "err_busy"
	KeyErrNotTrained    = "err_not_trained"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "ja",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language. "system" picks Japanese on a
// Japanese locale and English otherwise.
func (l *Localization) SetLanguage(code string) {
	if code == "system" {
		code = systemLanguage()
	}

	if _, exists := l.texts[code]; exists {
		l.currentLanguage = code
	}
}

func systemLanguage() string {
	if strings.HasPrefix(strings.ToLower(lang.SystemLocale().LanguageString()), "ja") {
		return "ja"
	}
	return "en"
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	return key
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		"en": "English",
		"ja": "日本語",
	}
}

func (l *Localization) initializeTexts() {
	l.texts["en"] = map[string]string{
		KeyAppTitle:         "Sound Trainer",
		KeyHeaderMessage:    "Teach scratch with sounds!",
		KeyTrain:            "Train",
		KeyUpload:           "Upload",
		KeyAccessKey:        "You got a key",
		KeyCopy:             "Copy",
		KeyRecord:           "Record",
		KeyRecording:        "Recording...",
		KeyExamples:         "examples",
		KeyMicOn:            "Listening",
		KeyMicOff:           "Listen",
		KeyFile:             "File",
		KeyReset:            "Reset",
		KeyResetConfirm:     "Discard all recorded sounds and the trained model?",
		KeyLoadFromFile:     "Load from file",
		KeySaveToFile:       "Save to file",
		KeyHistory:          "Upload history",
		KeyHistoryEmpty:     "No models uploaded yet.",
		KeyHistoryOff:       "Upload history is not available.",
		KeySettings:         "Settings",
		KeyLanguage:         "Language",
		KeyDatasetDirectory: "Dataset Directory",
		KeyUploadEndpoint:   "Upload Endpoint",
		KeyThreshold:        "Recognition Threshold (0-1)",
		KeyRecordDuration:   "Recording Length (ms)",
		KeyCaptureDevice:    "Microphone",
		KeyDefaultDevice:    "System default",
		KeySave:             "Save",
		KeyCancel:           "Cancel",
		KeyClose:            "Close",
		KeyBrowse:           "Browse",
		KeySettingsSaved:    "Settings saved successfully!",
		KeyDatasetSaved:     "Dataset saved",
		KeyShowInFolder:     "Show in folder",
		KeyError:            "Error",
		KeyErrNeedLabels:    "Record sounds for at least two labels before training.",
		KeyErrUpload:        "The model could not be uploaded. Check the network and try again.",
		KeyErrDataset:       "This file is not a valid sound dataset.",
		KeyErrMicrophone:    "No microphone is available.",
		KeyErrBusy:          "Please wait for the current operation to finish.",
		KeyErrNotTrained:    "Train the model first.",
	}

	l.texts["ja"] = map[string]string{
		KeyAppTitle:         "サウンドトレーナー",
		KeyHeaderMessage:    "スクラッチに音をおぼえさせよう!",
		KeyTrain:            "トレーニング",
		KeyUpload:           "アップロード",
		KeyAccessKey:        "カギをゲットした",
		KeyCopy:             "コピー",
		KeyRecord:           "録音",
		KeyRecording:        "録音中...",
		KeyExamples:         "こ",
		KeyMicOn:            "きいています",
		KeyMicOff:           "きく",
		KeyFile:             "ファイル",
		KeyReset:            "リセット",
		KeyResetConfirm:     "録音した音とトレーニングしたモデルをすべて消しますか?",
		KeyLoadFromFile:     "ファイルから読み込む",
		KeySaveToFile:       "ファイルに保存",
		KeyHistory:          "アップロード履歴",
		KeyHistoryEmpty:     "まだアップロードしていません。",
		KeyHistoryOff:       "アップロード履歴は使えません。",
		KeySettings:         "設定",
		KeyLanguage:         "言語",
		KeyDatasetDirectory: "データの保存先",
		KeyUploadEndpoint:   "アップロード先",
		KeyThreshold:        "認識のしきい値 (0-1)",
		KeyRecordDuration:   "録音の長さ (ミリ秒)",
		KeyCaptureDevice:    "マイク",
		KeyDefaultDevice:    "システムの既定",
		KeySave:             "保存",
		KeyCancel:           "キャンセル",
		KeyClose:            "閉じる",
		KeyBrowse:           "参照",
		KeySettingsSaved:    "設定を保存しました!",
		KeyDatasetSaved:     "データを保存しました",
		KeyShowInFolder:     "フォルダを開く",
		KeyError:            "エラー",
		KeyErrNeedLabels:    "トレーニングの前に、2つ以上のラベルに音を録音してください。",
		KeyErrUpload:        "モデルをアップロードできませんでした。ネットワークを確認して、もう一度ためしてください。",
		KeyErrDataset:       "このファイルは音のデータではありません。",
		KeyErrMicrophone:    "マイクが見つかりません。",
		KeyErrBusy:          "いまの処理が終わるまでお待ちください。",
		KeyErrNotTrained:    "先にトレーニングしてください。",
	}
}
