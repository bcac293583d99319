package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aiforedu/sound-trainer/internal/dataset"
	"github.com/aiforedu/sound-trainer/internal/history"
	"github.com/aiforedu/sound-trainer/internal/logging"
	"github.com/aiforedu/sound-trainer/internal/model"
	"github.com/aiforedu/sound-trainer/internal/recognizer"
	"github.com/aiforedu/sound-trainer/internal/upload"
)

// Controller errors
var (
	ErrBusy         = errors.New("another operation is in progress")
	ErrNoRecognizer = errors.New("recognizer is not ready")
	ErrInvalidPhase = errors.New("operation not allowed in the current phase")
	ErrCannotRecord = errors.New("slot cannot record now")
)

// HistoryRecorder stores finished uploads
type HistoryRecorder interface {
	Record(ctx context.Context, e history.Entry) (int64, error)
}

// Options configures a Controller. Only NewRecognizer is required.
type Options struct {
	NewRecognizer func() (recognizer.Recognizer, error)

	// NewUploader builds the save handler for an endpoint; defaults to upload.NewClient
	NewUploader func(endpoint string) upload.Handler

	// History receives successful uploads; may be nil
	History HistoryRecorder

	Codec *dataset.Codec

	UploadEndpoint       func() string
	RecordDuration       func() time.Duration
	ProbabilityThreshold func() float64

	Logger *slog.Logger
}

// Controller performs the side effects behind user actions
type Controller struct {
	store *model.Store
	opts  Options

	// op guards the long-running operations: recording, training and uploading
	op sync.Mutex
}

// NewController creates a controller over store
func NewController(store *model.Store, opts Options) (*Controller, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if opts.NewRecognizer == nil {
		return nil, fmt.Errorf("recognizer factory is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Codec == nil {
		opts.Codec = dataset.NewCodec(model.MaxLabels)
	}
	if opts.NewUploader == nil {
		logger := opts.Logger
		opts.NewUploader = func(endpoint string) upload.Handler {
			return upload.NewClient(endpoint, upload.WithLogger(logger))
		}
	}
	if opts.UploadEndpoint == nil {
		opts.UploadEndpoint = func() string { return upload.DefaultEndpoint }
	}
	if opts.RecordDuration == nil {
		opts.RecordDuration = func() time.Duration { return recognizer.DefaultCollectDuration }
	}
	if opts.ProbabilityThreshold == nil {
		opts.ProbabilityThreshold = func() float64 { return recognizer.DefaultProbabilityThreshold }
	}
	return &Controller{store: store, opts: opts}, nil
}

// Store returns the state store
func (c *Controller) Store() *model.Store {
	return c.store
}

// Init creates the recognizer when there is none
func (c *Controller) Init(ctx context.Context) error {
	if c.store.State().Recognizer != nil {
		return nil
	}
	r, err := c.opts.NewRecognizer()
	if err != nil {
		logging.Error(ctx, c.opts.Logger, "Failed to create recognizer.", err)
		return fmt.Errorf("failed to create recognizer: %w", err)
	}
	c.store.Dispatch(model.SetRecognizer{Recognizer: r})
	c.opts.Logger.InfoContext(ctx, "Recognizer ready.")
	return nil
}

func (c *Controller) recognizer() (recognizer.Recognizer, error) {
	r := c.store.State().Recognizer
	if r == nil {
		return nil, ErrNoRecognizer
	}
	return r, nil
}

// Record collects one example for slot, then updates its thumbnail and the counts.
// It blocks for the configured record duration.
func (c *Controller) Record(ctx context.Context, slot int) error {
	if !c.op.TryLock() {
		return ErrBusy
	}
	defer c.op.Unlock()

	state := c.store.State()
	if state.Recognizer == nil {
		return ErrNoRecognizer
	}
	if !state.CanRecord(slot) {
		return ErrCannotRecord
	}
	r := state.Recognizer

	c.store.Dispatch(model.SetRecordingIndex{Index: slot})
	spec, err := r.CollectExample(ctx, recognizer.SlotLabel(slot), recognizer.CollectOptions{Duration: c.opts.RecordDuration()})
	c.store.Dispatch(model.SetRecordingIndex{Index: model.NoSlot})
	if err != nil {
		logging.Error(ctx, c.opts.Logger, "Failed to record example.", err, slog.Int("slot", slot))
		return err
	}

	c.store.Dispatch(model.SetSampleImage{Index: slot, Image: spec.ToImage()})
	c.store.Dispatch(model.SetSampleNumbers{Counts: r.CountExamples()})
	return nil
}

// AddSelector shows one more label slot
func (c *Controller) AddSelector() {
	state := c.store.State()
	if state.CanAddSelector() {
		c.store.Dispatch(model.SetSelectorNumber{N: state.SelectorNumber + 1})
	}
}

// ToggleMic switches listening on or off
func (c *Controller) ToggleMic(ctx context.Context) error {
	return c.SetMic(ctx, !c.store.State().MicOn)
}

// SetMic starts or stops listening. Starting requires a trained model.
func (c *Controller) SetMic(ctx context.Context, on bool) error {
	state := c.store.State()
	r := state.Recognizer

	if !on {
		c.stopListening(ctx, r)
		c.store.Dispatch(model.SetMicFlag{On: false})
		return nil
	}

	if r == nil {
		return ErrNoRecognizer
	}
	if state.MicOn {
		return nil
	}
	if !state.Phase.CanListen() || state.IsRecording() {
		return ErrInvalidPhase
	}

	c.store.Dispatch(model.SetMicFlag{On: true})
	err := r.Listen(ctx, c.onResult, recognizer.ListenOptions{ProbabilityThreshold: c.opts.ProbabilityThreshold()})
	if err != nil {
		c.store.Dispatch(model.SetMicFlag{On: false})
		logging.Error(ctx, c.opts.Logger, "Failed to start listening.", err)
		return err
	}
	return nil
}

func (c *Controller) onResult(result recognizer.Result) {
	state := c.store.State()
	slot := model.PickPrediction(model.SlotScores(result), state.SelectorNumber)
	c.store.Dispatch(model.SetPredicted{Index: slot})
}

func (c *Controller) stopListening(ctx context.Context, r recognizer.Recognizer) {
	if r == nil || !r.IsListening() {
		return
	}
	if err := r.StopListening(); err != nil && !errors.Is(err, recognizer.ErrNotListening) {
		logging.Error(ctx, c.opts.Logger, "Failed to stop listening.", err)
	}
}

// Train trains the recognizer on the collected examples. On failure the
// phase returns to where it was.
func (c *Controller) Train(ctx context.Context) error {
	if !c.op.TryLock() {
		return ErrBusy
	}
	defer c.op.Unlock()

	state := c.store.State()
	r := state.Recognizer
	if r == nil {
		return ErrNoRecognizer
	}
	if !state.Phase.CanTrain() || state.IsRecording() {
		return ErrInvalidPhase
	}

	if state.MicOn {
		c.SetMic(ctx, false)
	}

	c.store.Dispatch(model.SetPhase{Phase: model.PhaseTraining})
	started := time.Now()
	err := r.Train(ctx, recognizer.TrainOptions{
		OnProgress: func(done, total int) {
			if total > 0 {
				c.store.Dispatch(model.SetTrainProgress{Progress: float64(done) / float64(total)})
			}
		},
	})
	if err != nil {
		c.store.Dispatch(model.SetPhase{Phase: state.Phase})
		logging.Error(ctx, c.opts.Logger, "Training failed.", err)
		return err
	}

	c.store.Dispatch(model.SetPhase{Phase: model.PhaseDone})
	c.opts.Logger.InfoContext(ctx, "Training finished.", slog.Duration("elapsed", time.Since(started)))
	return nil
}

// Upload saves the trained model to the collection endpoint and returns its key.
// On failure the phase returns to done and no key is kept.
func (c *Controller) Upload(ctx context.Context) (string, error) {
	if !c.op.TryLock() {
		return "", ErrBusy
	}
	defer c.op.Unlock()

	state := c.store.State()
	r := state.Recognizer
	if r == nil {
		return "", ErrNoRecognizer
	}
	if !state.Phase.CanUpload() {
		return "", ErrInvalidPhase
	}

	c.SetMic(ctx, false)
	c.store.Dispatch(model.SetPhase{Phase: model.PhaseUploading})

	endpoint := c.opts.UploadEndpoint()
	key, err := r.Save(ctx, c.opts.NewUploader(endpoint))
	if err != nil {
		c.store.Dispatch(model.SetPhase{Phase: model.PhaseDone})
		logging.Error(ctx, c.opts.Logger, "Upload failed.", err, slog.String("endpoint", endpoint))
		return "", err
	}

	c.store.Dispatch(model.SetModelKey{Key: key})
	c.store.Dispatch(model.SetMicFlag{On: false})
	c.store.Dispatch(model.SetPhase{Phase: model.PhaseUploaded})
	c.recordHistory(ctx, key, endpoint, r.CountExamples())
	return key, nil
}

func (c *Controller) recordHistory(ctx context.Context, key, endpoint string, counts map[string]int) {
	if c.opts.History == nil {
		return
	}
	labels := make([]string, 0, len(counts))
	for i := 0; i < model.MaxLabels; i++ {
		if counts[recognizer.SlotLabel(i)] > 0 {
			labels = append(labels, recognizer.SlotLabel(i))
		}
	}
	entry := history.Entry{ModelKey: key, Labels: labels, Examples: counts, Endpoint: endpoint}
	if _, err := c.opts.History.Record(ctx, entry); err != nil {
		logging.Error(ctx, c.opts.Logger, "Failed to record upload history.", err, slog.String("key", key))
	}
}

// Reset discards every example and the recognizer, then creates a fresh one
func (c *Controller) Reset(ctx context.Context) error {
	if !c.op.TryLock() {
		return ErrBusy
	}
	defer c.op.Unlock()

	state := c.store.State()
	if r := state.Recognizer; r != nil {
		c.stopListening(ctx, r)
		if state.TotalExamples() > 0 {
			r.ClearExamples()
		}
		if err := r.Close(); err != nil {
			logging.Error(ctx, c.opts.Logger, "Failed to close recognizer.", err)
		}
	}
	c.store.Dispatch(model.ResetAll{})
	return c.Init(ctx)
}

// SaveDataset writes the visible slots and all examples in dataset file format
func (c *Controller) SaveDataset(w io.Writer) error {
	if !c.op.TryLock() {
		return ErrBusy
	}
	defer c.op.Unlock()

	state := c.store.State()
	r, err := c.recognizer()
	if err != nil {
		return err
	}
	blob, err := r.SerializeExamples()
	if err != nil {
		return fmt.Errorf("failed to serialize examples: %w", err)
	}

	ds := &dataset.Dataset{
		LabelCount: state.SelectorNumber,
		Examples:   blob,
		Thumbnails: append([]*image.RGBA(nil), state.SampleImages[:state.SelectorNumber]...),
	}
	if err := c.opts.Codec.Write(w, ds); err != nil {
		return err
	}
	c.opts.Logger.Info("Dataset saved.", slog.Int("labels", ds.LabelCount), slog.Int("example_bytes", len(blob)))
	return nil
}

// LoadDataset reads a dataset file. Existing examples are replaced when there
// are any; slot thumbnails and counts are taken from the file.
func (c *Controller) LoadDataset(rd io.Reader) error {
	if !c.op.TryLock() {
		return ErrBusy
	}
	defer c.op.Unlock()

	state := c.store.State()
	r, err := c.recognizer()
	if err != nil {
		return err
	}
	if state.Phase.IsBusy() || state.IsRecording() {
		return ErrBusy
	}

	ds, err := c.opts.Codec.Read(rd)
	if err != nil {
		return err
	}
	if err := r.LoadExamples(ds.Examples, state.TotalExamples() > 0); err != nil {
		return fmt.Errorf("failed to load examples: %w", err)
	}

	counts := r.CountExamples()
	data := model.LoadData{SelectorNumber: ds.LabelCount}
	for i := 0; i < ds.LabelCount && i < model.MaxLabels; i++ {
		data.SampleImages[i] = ds.Thumbnail(i)
		data.SampleNumbers[i] = counts[recognizer.SlotLabel(i)]
	}
	c.store.Dispatch(data)

	c.opts.Logger.Info("Dataset loaded.", slog.Int("labels", ds.LabelCount), slog.Int("example_bytes", len(ds.Examples)))
	return nil
}

// Close stops listening and releases the recognizer
func (c *Controller) Close() error {
	if r := c.store.State().Recognizer; r != nil {
		return r.Close()
	}
	return nil
}
