package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	ctl "github.com/aiforedu/sound-trainer/internal/app"
	"github.com/aiforedu/sound-trainer/internal/audio"
	"github.com/aiforedu/sound-trainer/internal/config"
	"github.com/aiforedu/sound-trainer/internal/history"
	"github.com/aiforedu/sound-trainer/internal/logging"
	"github.com/aiforedu/sound-trainer/internal/model"
	"github.com/aiforedu/sound-trainer/internal/recognizer"
	"github.com/aiforedu/sound-trainer/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID     = "org.aiforedu.sound-trainer"
	AppName   = "Sound Trainer"
	ModelName = "sound-model"
)

func main() {
	// .env may set the log level, so it is read before the logger exists
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	logger := logging.Default()
	logger.Info("Starting.", slog.String("app", AppName), slog.String("version", version))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())

	settings := config.NewSettings(myApp)
	if applied := config.ApplyEnv(settings); len(applied) > 0 {
		logger.Info("Applied environment overrides.", slog.Any("keys", applied))
	}

	var historySource ui.HistorySource
	var historyRecorder ctl.HistoryRecorder
	historyStore, err := history.Open(settings.GetHistoryDBPath())
	if err != nil {
		logging.Error(ctx, logger, "Upload history disabled.", err)
	} else {
		defer historyStore.Close()
		historySource = historyStore
		historyRecorder = historyStore
	}

	newCapturer := func(cfg audio.CaptureConfig) (audio.Capturer, error) {
		cfg.DeviceName = settings.GetCaptureDevice()
		return audio.NewCapturer(cfg)
	}
	newRecognizer := func() (recognizer.Recognizer, error) {
		return recognizer.NewTransfer(ModelName,
			recognizer.WithCapturerFactory(newCapturer),
			recognizer.WithLogger(logger),
		), nil
	}

	controller, err := ctl.NewController(model.NewStore(), ctl.Options{
		NewRecognizer:        newRecognizer,
		History:              historyRecorder,
		UploadEndpoint:       settings.GetUploadEndpoint,
		RecordDuration:       settings.GetRecordDuration,
		ProbabilityThreshold: settings.GetProbabilityThreshold,
		Logger:               logger,
	})
	if err != nil {
		logging.Error(ctx, logger, "Failed to create controller.", err)
		os.Exit(1)
	}

	window := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	window.Resize(fyne.NewSize(ui.WindowWidth, ui.WindowHeight))

	root := ui.NewRootUI(ctx, window, controller, settings, historySource, logger)
	if err := controller.Init(ctx); err != nil {
		root.ShowError(err)
	}

	myApp.Lifecycle().SetOnStopped(func() {
		cancel()
		if err := controller.Close(); err != nil {
			logging.Error(ctx, logger, "Failed to release recognizer.", err)
		}
	})

	window.ShowAndRun()
}
