package recognizer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/aiforedu/sound-trainer/internal/audio"
	"github.com/aiforedu/sound-trainer/internal/logging"
	"github.com/aiforedu/sound-trainer/internal/upload"
)

// Model export constants
const (
	ModelClassName     = "PrototypeClassifier"
	PrototypesWeight   = "prototypes"
	DefaultTemperature = 10.0
)

// Transfer recognizes sounds by comparing pooled spectrogram features against
// one prototype per label, averaged from the label's examples.
type Transfer struct {
	name        string
	examples    *ExampleSet
	capture     audio.CaptureConfig
	newCapturer audio.CapturerFactory
	temperature float64
	logger      *slog.Logger

	mu         sync.Mutex
	model      *prototypeModel
	listening  bool
	stopListen context.CancelFunc
	listenDone chan struct{}
}

type prototypeModel struct {
	words      []string
	prototypes [][]float64
	frameSize  int
}

// Option configures a Transfer recognizer
type Option func(*Transfer)

// WithCapturerFactory overrides how capture sessions are opened
func WithCapturerFactory(factory audio.CapturerFactory) Option {
	return func(t *Transfer) {
		if factory != nil {
			t.newCapturer = factory
		}
	}
}

// WithCaptureConfig sets the capture configuration
func WithCaptureConfig(config audio.CaptureConfig) Option {
	return func(t *Transfer) {
		t.capture = config
	}
}

// WithTemperature sets the softmax temperature applied to cosine similarities
func WithTemperature(temperature float64) Option {
	return func(t *Transfer) {
		if temperature > 0 {
			t.temperature = temperature
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transfer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransfer creates an untrained recognizer with no examples
func NewTransfer(name string, opts ...Option) *Transfer {
	t := &Transfer{
		name:        name,
		examples:    NewExampleSet(),
		capture:     audio.DefaultConfig(),
		newCapturer: audio.NewCapturer,
		temperature: DefaultTemperature,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the recognizer name
func (t *Transfer) Name() string {
	return t.name
}

// Words returns the labels of the trained model, or nil when untrained
func (t *Transfer) Words() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model == nil {
		return nil
	}
	return append([]string(nil), t.model.words...)
}

// CollectExample records opts.Duration of audio and stores it as an example for label.
func (t *Transfer) CollectExample(ctx context.Context, label string, opts CollectOptions) (*Spectrogram, error) {
	if label == "" {
		return nil, fmt.Errorf("example label is empty")
	}
	if t.IsListening() {
		return nil, ErrAlreadyListening
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultCollectDuration
	}

	capturer, err := t.newCapturer(t.capture)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}

	samples, err := audio.Record(ctx, capturer, audio.SamplesFor(duration, t.capture.SampleRate), t.capture.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to record example: %w", err)
	}

	return t.AddSamples(label, samples)
}

// AddSamples computes the spectrogram of mono samples and stores it as an example for label
func (t *Transfer) AddSamples(label string, samples []float64) (*Spectrogram, error) {
	spec, err := ComputeSpectrogram(samples)
	if err != nil {
		return nil, err
	}
	id, err := t.examples.Add(label, spec)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("Example collected.", slog.String("label", label), slog.String("id", id.String()),
		slog.Int("frames", spec.Frames()))
	return spec, nil
}

// Train builds one prototype per label. Progress is reported once per label.
func (t *Transfer) Train(ctx context.Context, opts TrainOptions) error {
	if t.IsListening() {
		return ErrAlreadyListening
	}

	labels := t.examples.Labels()
	if len(labels) < 2 {
		return ErrNotEnoughLabels
	}

	model := &prototypeModel{words: labels, prototypes: make([][]float64, len(labels))}
	for i, label := range labels {
		if err := ctx.Err(); err != nil {
			return err
		}

		var proto []float64
		for _, ex := range t.examples.ByLabel(label) {
			if model.frameSize == 0 {
				model.frameSize = ex.Spectrogram.FrameSize
			}
			if ex.Spectrogram.FrameSize != model.frameSize {
				return fmt.Errorf("example %s has frame size %d, expected %d", ex.ID, ex.Spectrogram.FrameSize, model.frameSize)
			}
			vec, err := features(ex.Spectrogram)
			if err != nil {
				return fmt.Errorf("example %s: %w", ex.ID, err)
			}
			if proto == nil {
				proto = make([]float64, len(vec))
			}
			for j := range vec {
				proto[j] += vec[j]
			}
		}
		normalize(proto)
		model.prototypes[i] = proto

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(labels))
		}
	}

	t.mu.Lock()
	t.model = model
	t.mu.Unlock()

	t.logger.InfoContext(ctx, "Recognizer trained.", slog.String("name", t.name), slog.Int("labels", len(labels)))
	return nil
}

// Predict classifies a spectrogram with the trained model
func (t *Transfer) Predict(spec *Spectrogram) (Result, error) {
	t.mu.Lock()
	model := t.model
	t.mu.Unlock()
	if model == nil {
		return Result{}, ErrNotTrained
	}
	return model.predict(spec, t.temperature)
}

func (m *prototypeModel) predict(spec *Spectrogram, temperature float64) (Result, error) {
	if spec.FrameSize != m.frameSize {
		return Result{}, fmt.Errorf("spectrogram frame size %d, model expects %d", spec.FrameSize, m.frameSize)
	}
	vec, err := features(spec)
	if err != nil {
		return Result{}, err
	}
	sims := make([]float64, len(m.prototypes))
	for i, proto := range m.prototypes {
		sims[i] = dot(vec, proto)
	}
	return Result{Words: append([]string(nil), m.words...), Scores: softmax(sims, temperature)}, nil
}

// Listen opens a capture session and classifies overlapping windows of
// ListenWindow until StopListening is called or ctx is done. cb runs on the
// listening goroutine and only sees results whose best score reaches the threshold.
func (t *Transfer) Listen(ctx context.Context, cb func(Result), opts ListenOptions) error {
	if cb == nil {
		return fmt.Errorf("listen callback is nil")
	}
	opts = opts.withDefaults()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model == nil {
		return ErrNotTrained
	}
	if t.listening {
		return ErrAlreadyListening
	}

	capturer, err := t.newCapturer(t.capture)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	if err := capturer.Start(listenCtx); err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	t.listening = true
	t.stopListen = cancel
	t.listenDone = done

	go t.listen(listenCtx, capturer, t.model, cb, opts, done)

	t.logger.InfoContext(ctx, "Listening started.", slog.Float64("threshold", opts.ProbabilityThreshold))
	return nil
}

func (t *Transfer) listen(ctx context.Context, capturer audio.Capturer, model *prototypeModel,
	cb func(Result), opts ListenOptions, done chan struct{}) {
	defer func() {
		capturer.Stop()
		t.mu.Lock()
		if t.listenDone == done {
			t.listening = false
			t.stopListen = nil
			t.listenDone = nil
		}
		t.mu.Unlock()
		close(done)
	}()

	window := audio.SamplesFor(ListenWindow, t.capture.SampleRate)
	hop := int(float64(window) * (1 - opts.Overlap))
	if hop < 1 {
		hop = 1
	}

	var buffer []float64
	errs := capturer.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			t.logger.Debug("Capture warning.", slog.String("error", err.Error()))
		case chunk, ok := <-capturer.Samples():
			if !ok {
				return
			}
			buffer = append(buffer, audio.DownMix(audio.PCM16ToFloat(chunk.Data), int(t.capture.Channels))...)
			for len(buffer) >= window {
				t.classify(ctx, model, buffer[:window], cb, opts.ProbabilityThreshold)
				buffer = buffer[hop:]
			}
		}
	}
}

func (t *Transfer) classify(ctx context.Context, model *prototypeModel, samples []float64,
	cb func(Result), threshold float64) {
	spec, err := ComputeSpectrogram(samples)
	if err != nil {
		logging.Error(ctx, t.logger, "Failed to analyze window.", err)
		return
	}
	result, err := model.predict(spec, t.temperature)
	if err != nil {
		logging.Error(ctx, t.logger, "Failed to classify window.", err)
		return
	}

	var best float32
	for _, s := range result.Scores {
		if s > best {
			best = s
		}
	}
	if float64(best) >= threshold {
		cb(result)
	}
}

// StopListening ends the listening session and waits for it to shut down
func (t *Transfer) StopListening() error {
	t.mu.Lock()
	if !t.listening {
		t.mu.Unlock()
		return ErrNotListening
	}
	stop, done := t.stopListen, t.listenDone
	t.mu.Unlock()

	stop()
	<-done
	t.logger.Info("Listening stopped.")
	return nil
}

// IsListening reports whether a listening session is active
func (t *Transfer) IsListening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}

// Save exports the trained prototypes and hands them to handler
func (t *Transfer) Save(ctx context.Context, handler upload.Handler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("no save handler")
	}
	artifacts, err := t.Artifacts()
	if err != nil {
		return "", err
	}
	return handler.Save(ctx, artifacts)
}

type modelTopology struct {
	ClassName string      `json:"class_name"`
	Config    modelConfig `json:"config"`
}

type modelConfig struct {
	Name        string   `json:"name"`
	Words       []string `json:"words"`
	FeatureSize int      `json:"feature_size"`
	FrameSize   int      `json:"frame_size"`
	FFTSize     int      `json:"fft_size"`
	SampleRate  uint32   `json:"sample_rate"`
	Temperature float64  `json:"temperature"`
}

// Artifacts returns the model topology and weights of the trained model
func (t *Transfer) Artifacts() (*upload.Artifacts, error) {
	t.mu.Lock()
	model := t.model
	t.mu.Unlock()
	if model == nil {
		return nil, ErrNotTrained
	}

	featureSize := len(model.prototypes[0])
	topology, err := json.Marshal(modelTopology{
		ClassName: ModelClassName,
		Config: modelConfig{
			Name:        t.name,
			Words:       model.words,
			FeatureSize: featureSize,
			FrameSize:   model.frameSize,
			FFTSize:     FFTSize,
			SampleRate:  t.capture.SampleRate,
			Temperature: t.temperature,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode model topology: %w", err)
	}

	weights := make([]byte, 0, 4*featureSize*len(model.prototypes))
	for _, proto := range model.prototypes {
		for _, v := range proto {
			weights = binary.LittleEndian.AppendUint32(weights, math.Float32bits(float32(v)))
		}
	}

	return &upload.Artifacts{
		ModelTopology: topology,
		WeightSpecs: []upload.WeightSpec{{
			Name:  PrototypesWeight,
			Shape: []int{len(model.prototypes), featureSize},
			Dtype: "float32",
		}},
		WeightData: weights,
	}, nil
}

// LoadExamples decodes blob and either replaces or extends the current examples
func (t *Transfer) LoadExamples(blob []byte, clearExisting bool) error {
	set, err := DeserializeExamples(blob)
	if err != nil {
		return err
	}
	if clearExisting {
		t.examples.Replace(set)
	} else {
		t.examples.Merge(set)
	}
	return nil
}

// SerializeExamples encodes every stored example
func (t *Transfer) SerializeExamples() ([]byte, error) {
	return t.examples.Serialize()
}

// CountExamples returns the number of examples per label
func (t *Transfer) CountExamples() map[string]int {
	return t.examples.Count()
}

// ClearExamples removes every stored example. A trained model stays usable.
func (t *Transfer) ClearExamples() {
	t.examples.Clear()
}

// Close stops listening if needed
func (t *Transfer) Close() error {
	if t.IsListening() {
		if err := t.StopListening(); err != nil && !errors.Is(err, ErrNotListening) {
			return err
		}
	}
	return nil
}
