package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aiforedu/sound-trainer/internal/dataset"
	"github.com/aiforedu/sound-trainer/internal/history"
	"github.com/aiforedu/sound-trainer/internal/logging"
	"github.com/aiforedu/sound-trainer/internal/model"
	"github.com/aiforedu/sound-trainer/internal/recognizer"
	"github.com/aiforedu/sound-trainer/internal/upload"
)

// fakeRecognizer records calls and lets tests inject failures
type fakeRecognizer struct {
	mu sync.Mutex

	counts    map[string]int
	listening bool
	listenCb  func(recognizer.Result)
	closed    bool
	cleared   int
	loaded    []byte
	loadClear bool

	collectErr error
	trainErr   error
	listenErr  error
	saveKey    string
	saveErr    error
	blob       []byte

	// closing, when set, is signaled on Close entry; Close then waits for release
	closing chan struct{}
	release chan struct{}
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{counts: make(map[string]int), saveKey: "key-1", blob: []byte("examples")}
}

func (f *fakeRecognizer) Listen(ctx context.Context, cb func(recognizer.Result), opts recognizer.ListenOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listenErr != nil {
		return f.listenErr
	}
	if f.listening {
		return recognizer.ErrAlreadyListening
	}
	f.listening = true
	f.listenCb = cb
	return nil
}

func (f *fakeRecognizer) StopListening() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.listening {
		return recognizer.ErrNotListening
	}
	f.listening = false
	return nil
}

func (f *fakeRecognizer) IsListening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listening
}

func (f *fakeRecognizer) CollectExample(ctx context.Context, label string, opts recognizer.CollectOptions) (*recognizer.Spectrogram, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collectErr != nil {
		return nil, f.collectErr
	}
	f.counts[label]++
	data := make([]float32, 3*recognizer.FrameSize)
	return &recognizer.Spectrogram{Data: data, FrameSize: recognizer.FrameSize}, nil
}

func (f *fakeRecognizer) Train(ctx context.Context, opts recognizer.TrainOptions) error {
	if f.trainErr != nil {
		return f.trainErr
	}
	if opts.OnProgress != nil {
		opts.OnProgress(1, 2)
		opts.OnProgress(2, 2)
	}
	return nil
}

func (f *fakeRecognizer) Save(ctx context.Context, handler upload.Handler) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	return f.saveKey, nil
}

func (f *fakeRecognizer) LoadExamples(blob []byte, clearExisting bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = blob
	f.loadClear = clearExisting
	if clearExisting {
		f.counts = make(map[string]int)
	}
	f.counts["0"] += 2
	f.counts["2"] += 1
	return nil
}

func (f *fakeRecognizer) SerializeExamples() ([]byte, error) {
	return f.blob, nil
}

func (f *fakeRecognizer) CountExamples() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out
}

func (f *fakeRecognizer) ClearExamples() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	f.counts = make(map[string]int)
}

func (f *fakeRecognizer) Close() error {
	if f.closing != nil {
		close(f.closing)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.listening = false
	return nil
}

func (f *fakeRecognizer) emit(scores ...float32) {
	f.mu.Lock()
	cb := f.listenCb
	f.mu.Unlock()
	words := make([]string, len(scores))
	for i := range words {
		words[i] = recognizer.SlotLabel(i)
	}
	cb(recognizer.Result{Words: words, Scores: scores})
}

type fakeHistory struct {
	entries []history.Entry
	err     error
}

func (h *fakeHistory) Record(ctx context.Context, e history.Entry) (int64, error) {
	if h.err != nil {
		return 0, h.err
	}
	h.entries = append(h.entries, e)
	return int64(len(h.entries)), nil
}

type testEnv struct {
	ctrl    *Controller
	store   *model.Store
	rec     *fakeRecognizer
	created int
	history *fakeHistory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{store: model.NewStore(), history: &fakeHistory{}}
	ctrl, err := NewController(env.store, Options{
		NewRecognizer: func() (recognizer.Recognizer, error) {
			env.created++
			env.rec = newFakeRecognizer()
			return env.rec, nil
		},
		NewUploader:    func(endpoint string) upload.Handler { return upload.NewClient(endpoint) },
		UploadEndpoint: func() string { return "http://localhost/models" },
		RecordDuration: func() time.Duration { return 10 * time.Millisecond },
		History:        env.history,
		Logger:         logging.New(io.Discard, slog.LevelError),
	})
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	env.ctrl = ctrl

	if err := ctrl.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return env
}

// trained records examples for two slots and trains
func (env *testEnv) trained(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, slot := range []int{0, 1} {
		if err := env.ctrl.Record(ctx, slot); err != nil {
			t.Fatalf("Record(%d) failed: %v", slot, err)
		}
	}
	if err := env.ctrl.Train(ctx); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
}

func TestNewController_Validation(t *testing.T) {
	if _, err := NewController(nil, Options{NewRecognizer: func() (recognizer.Recognizer, error) { return nil, nil }}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewController(model.NewStore(), Options{}); err == nil {
		t.Error("expected error for missing recognizer factory")
	}
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)

	if env.store.State().Recognizer == nil {
		t.Fatal("recognizer should be set after Init")
	}
	if err := env.ctrl.Init(context.Background()); err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	if env.created != 1 {
		t.Errorf("Init should not recreate an existing recognizer, created %d", env.created)
	}
}

func TestInit_FactoryFailure(t *testing.T) {
	ctrl, err := NewController(model.NewStore(), Options{
		NewRecognizer: func() (recognizer.Recognizer, error) { return nil, errors.New("no microphone") },
		Logger:        logging.New(io.Discard, slog.LevelError),
	})
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	if err := ctrl.Init(context.Background()); err == nil {
		t.Fatal("expected error from failing factory")
	}
	if ctrl.Store().State().Recognizer != nil {
		t.Error("recognizer must stay nil after a failed Init")
	}
}

func TestRecord(t *testing.T) {
	env := newTestEnv(t)

	if err := env.ctrl.Record(context.Background(), 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	state := env.store.State()
	if state.RecordingIndex != model.NoSlot {
		t.Errorf("RecordingIndex = %d after recording, expected NoSlot", state.RecordingIndex)
	}
	if state.SampleImages[1] == nil {
		t.Error("slot 1 thumbnail should be set")
	}
	if state.SampleNumbers[1] != 1 || state.SampleNumbers[0] != 0 {
		t.Errorf("unexpected counts: %v", state.SampleNumbers)
	}
}

func TestRecord_ShowsRecordingIndex(t *testing.T) {
	env := newTestEnv(t)

	var seen []int
	env.store.Subscribe(func(s model.AppState) {
		seen = append(seen, s.RecordingIndex)
	})
	if err := env.ctrl.Record(context.Background(), 0); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(seen) == 0 || seen[0] != 0 {
		t.Errorf("first notification should mark slot 0 as recording, got %v", seen)
	}
}

func TestRecord_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		slot int
	}{
		{"negative slot", -1},
		{"hidden slot", model.MinLabels},
		{"beyond max", model.MaxLabels},
	}
	for _, test := range tests {
		if err := env.ctrl.Record(ctx, test.slot); !errors.Is(err, ErrCannotRecord) {
			t.Errorf("%s: expected ErrCannotRecord, got %v", test.name, err)
		}
	}

	env.trained(t)
	if err := env.ctrl.SetMic(ctx, true); err != nil {
		t.Fatalf("SetMic failed: %v", err)
	}
	if err := env.ctrl.Record(ctx, 0); !errors.Is(err, ErrCannotRecord) {
		t.Errorf("recording with mic on: expected ErrCannotRecord, got %v", err)
	}
}

func TestRecord_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.rec.collectErr = errors.New("device lost")

	if err := env.ctrl.Record(context.Background(), 0); err == nil {
		t.Fatal("expected error")
	}
	state := env.store.State()
	if state.RecordingIndex != model.NoSlot {
		t.Error("recording index must be cleared after a failure")
	}
	if state.SampleImages[0] != nil || state.SampleNumbers[0] != 0 {
		t.Error("failed recording must not change the slot")
	}
}

func TestAddSelector(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < model.MaxLabels+3; i++ {
		env.ctrl.AddSelector()
	}
	if n := env.store.State().SelectorNumber; n != model.MaxLabels {
		t.Errorf("SelectorNumber = %d, expected %d", n, model.MaxLabels)
	}
}

func TestTrain(t *testing.T) {
	env := newTestEnv(t)

	var phases []model.Phase
	var progress []float64
	env.store.Subscribe(func(s model.AppState) {
		if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
			phases = append(phases, s.Phase)
		}
		if s.Phase == model.PhaseTraining && s.TrainProgress > 0 {
			progress = append(progress, s.TrainProgress)
		}
	})

	env.trained(t)

	if env.store.State().Phase != model.PhaseDone {
		t.Fatalf("Phase = %s, expected done", env.store.State().Phase)
	}
	if len(phases) < 2 || phases[len(phases)-2] != model.PhaseTraining {
		t.Errorf("expected training before done, got %v", phases)
	}
	if len(progress) != 2 || progress[1] != 1 {
		t.Errorf("unexpected progress updates: %v", progress)
	}
	if env.store.State().TrainProgress != 0 {
		t.Error("progress should reset once training is done")
	}
}

func TestTrain_FailureRestoresPhase(t *testing.T) {
	env := newTestEnv(t)
	env.rec.trainErr = recognizer.ErrNotEnoughLabels

	err := env.ctrl.Train(context.Background())
	if !errors.Is(err, recognizer.ErrNotEnoughLabels) {
		t.Fatalf("expected ErrNotEnoughLabels, got %v", err)
	}
	if p := env.store.State().Phase; p != model.PhaseInit {
		t.Errorf("Phase = %s, expected init", p)
	}
}

func TestTrain_StopsMic(t *testing.T) {
	env := newTestEnv(t)
	env.trained(t)
	ctx := context.Background()

	if err := env.ctrl.SetMic(ctx, true); err != nil {
		t.Fatalf("SetMic failed: %v", err)
	}
	if err := env.ctrl.Train(ctx); err != nil {
		t.Fatalf("retrain failed: %v", err)
	}
	if env.store.State().MicOn || env.rec.IsListening() {
		t.Error("training must turn the mic off")
	}
}

func TestMic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.ctrl.ToggleMic(ctx); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("mic before training: expected ErrInvalidPhase, got %v", err)
	}
	if env.store.State().MicOn {
		t.Fatal("mic must stay off before training")
	}

	env.trained(t)
	if err := env.ctrl.ToggleMic(ctx); err != nil {
		t.Fatalf("ToggleMic failed: %v", err)
	}
	if !env.store.State().MicOn || !env.rec.IsListening() {
		t.Fatal("mic should be on and listening")
	}

	env.rec.emit(0.1, 0.7)
	if p := env.store.State().Predicted; p != 1 {
		t.Errorf("Predicted = %d, expected 1", p)
	}

	if err := env.ctrl.ToggleMic(ctx); err != nil {
		t.Fatalf("ToggleMic off failed: %v", err)
	}
	state := env.store.State()
	if state.MicOn || env.rec.IsListening() {
		t.Error("mic should be off")
	}
	if state.Predicted != model.NoSlot {
		t.Error("prediction should clear when the mic turns off")
	}
}

func TestMic_PredictionIgnoresHiddenSlots(t *testing.T) {
	env := newTestEnv(t)
	env.trained(t)

	if err := env.ctrl.SetMic(context.Background(), true); err != nil {
		t.Fatalf("SetMic failed: %v", err)
	}
	env.rec.emit(0.1, 0.2, 0.9)
	if p := env.store.State().Predicted; p != 1 {
		t.Errorf("Predicted = %d, expected best visible slot 1", p)
	}
}

func TestMic_ListenFailure(t *testing.T) {
	env := newTestEnv(t)
	env.trained(t)
	env.rec.listenErr = errors.New("device busy")

	if err := env.ctrl.SetMic(context.Background(), true); err == nil {
		t.Fatal("expected error")
	}
	if env.store.State().MicOn {
		t.Error("mic flag must be cleared when listening fails")
	}
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	env.trained(t)
	ctx := context.Background()

	if err := env.ctrl.SetMic(ctx, true); err != nil {
		t.Fatalf("SetMic failed: %v", err)
	}

	key, err := env.ctrl.Upload(ctx)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if key != "key-1" {
		t.Errorf("key = %q", key)
	}

	state := env.store.State()
	if state.Phase != model.PhaseUploaded || state.ModelKey != "key-1" {
		t.Errorf("unexpected state: phase %s, key %q", state.Phase, state.ModelKey)
	}
	if state.MicOn {
		t.Error("mic must be off after upload")
	}

	if len(env.history.entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(env.history.entries))
	}
	entry := env.history.entries[0]
	if entry.ModelKey != "key-1" || entry.Endpoint != "http://localhost/models" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if len(entry.Labels) != 2 || entry.Labels[0] != "0" || entry.Labels[1] != "1" {
		t.Errorf("unexpected labels: %v", entry.Labels)
	}
}

func TestUpload_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.trained(t)
	env.rec.saveErr = &upload.TransportError{Op: "assign key", URL: "x", StatusCode: 500}

	key, err := env.ctrl.Upload(context.Background())
	var transportErr *upload.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if key != "" {
		t.Errorf("no key expected, got %q", key)
	}

	state := env.store.State()
	if state.Phase != model.PhaseDone || state.ModelKey != "" {
		t.Errorf("unexpected state after failure: phase %s, key %q", state.Phase, state.ModelKey)
	}
	if len(env.history.entries) != 0 {
		t.Error("failed upload must not be recorded")
	}
}

func TestUpload_HistoryFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.trained(t)
	env.history.err = errors.New("disk full")

	if _, err := env.ctrl.Upload(context.Background()); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if env.store.State().Phase != model.PhaseUploaded {
		t.Error("upload should succeed even when history cannot be written")
	}
}

func TestUpload_RequiresTraining(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.ctrl.Upload(context.Background()); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	env.trained(t)
	ctx := context.Background()
	env.ctrl.AddSelector()
	if err := env.ctrl.SetMic(ctx, true); err != nil {
		t.Fatalf("SetMic failed: %v", err)
	}
	old := env.rec

	if err := env.ctrl.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if old.cleared != 1 || !old.closed {
		t.Errorf("old recognizer should be cleared and closed (cleared %d, closed %v)", old.cleared, old.closed)
	}
	if old.IsListening() {
		t.Error("old recognizer still listening")
	}

	state := env.store.State()
	if state.Recognizer == nil || state.Recognizer == recognizer.Recognizer(old) {
		t.Error("a fresh recognizer should be created")
	}
	if state.Phase != model.PhaseInit || state.SelectorNumber != model.MinLabels || state.TotalExamples() != 0 {
		t.Errorf("state not reset: %+v", state)
	}
}

func TestSaveLoadDataset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.ctrl.AddSelector()
	if err := env.ctrl.Record(ctx, 0); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	var buf bytes.Buffer
	if err := env.ctrl.SaveDataset(&buf); err != nil {
		t.Fatalf("SaveDataset failed: %v", err)
	}

	ds, err := dataset.NewCodec(model.MaxLabels).Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("saved file does not decode: %v", err)
	}
	if ds.LabelCount != 3 || string(ds.Examples) != "examples" {
		t.Errorf("unexpected dataset: labels %d, examples %q", ds.LabelCount, ds.Examples)
	}
	if ds.Thumbnail(0) == nil || ds.Thumbnail(1) != nil {
		t.Error("only slot 0 should carry a thumbnail")
	}

	fresh := newTestEnv(t)
	if err := fresh.ctrl.LoadDataset(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if fresh.rec.loadClear {
		t.Error("loading into an empty recognizer should merge")
	}
	if string(fresh.rec.loaded) != "examples" {
		t.Errorf("recognizer received %q", fresh.rec.loaded)
	}

	state := fresh.store.State()
	if state.SelectorNumber != 3 {
		t.Errorf("SelectorNumber = %d, expected 3", state.SelectorNumber)
	}
	if state.SampleNumbers[0] != 2 || state.SampleNumbers[2] != 1 {
		t.Errorf("counts not taken from the recognizer: %v", state.SampleNumbers)
	}
	if state.SampleImages[0] == nil || !bytes.Equal(state.SampleImages[0].Pix, env.store.State().SampleImages[0].Pix) {
		t.Error("thumbnail did not survive the round trip")
	}
}

func TestLoadDataset_ReplacesExisting(t *testing.T) {
	env := newTestEnv(t)
	if err := env.ctrl.Record(context.Background(), 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	data, err := dataset.NewCodec(model.MaxLabels).Encode(&dataset.Dataset{
		LabelCount: 2,
		Examples:   []byte("other"),
		Thumbnails: []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 2, 2)), nil},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if err := env.ctrl.LoadDataset(bytes.NewReader(data)); err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if !env.rec.loadClear {
		t.Error("existing examples should be replaced")
	}
	state := env.store.State()
	if state.SampleNumbers[1] != 0 {
		t.Errorf("slot 1 count = %d, expected 0 after replace", state.SampleNumbers[1])
	}
	if state.SampleImages[1] != nil {
		t.Error("slot 1 thumbnail should come from the file")
	}
}

func TestLoadDataset_Invalid(t *testing.T) {
	env := newTestEnv(t)
	before := env.store.State()

	err := env.ctrl.LoadDataset(bytes.NewReader([]byte{1, 2, 3}))
	var formatErr *dataset.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	if env.rec.loaded != nil {
		t.Error("recognizer must not see a malformed file")
	}
	if env.store.State().SelectorNumber != before.SelectorNumber {
		t.Error("state must not change for a malformed file")
	}
}

func TestBusy(t *testing.T) {
	env := newTestEnv(t)
	env.ctrl.op.Lock()
	defer env.ctrl.op.Unlock()

	ctx := context.Background()
	if err := env.ctrl.Record(ctx, 0); !errors.Is(err, ErrBusy) {
		t.Errorf("Record: expected ErrBusy, got %v", err)
	}
	if err := env.ctrl.Train(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("Train: expected ErrBusy, got %v", err)
	}
	if _, err := env.ctrl.Upload(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("Upload: expected ErrBusy, got %v", err)
	}
	if err := env.ctrl.Reset(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("Reset: expected ErrBusy, got %v", err)
	}
	if err := env.ctrl.LoadDataset(bytes.NewReader(nil)); !errors.Is(err, ErrBusy) {
		t.Errorf("LoadDataset: expected ErrBusy, got %v", err)
	}
	if err := env.ctrl.SaveDataset(io.Discard); !errors.Is(err, ErrBusy) {
		t.Errorf("SaveDataset: expected ErrBusy, got %v", err)
	}
}

func TestLoadDataset_DuringReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var file bytes.Buffer
	ds := &dataset.Dataset{LabelCount: 3, Examples: []byte("examples"), Thumbnails: make([]*image.RGBA, 3)}
	if err := dataset.NewCodec(model.MaxLabels).Write(&file, ds); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	old := env.rec
	old.closing = make(chan struct{})
	old.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- env.ctrl.Reset(ctx) }()
	<-old.closing

	if err := env.ctrl.LoadDataset(bytes.NewReader(file.Bytes())); !errors.Is(err, ErrBusy) {
		t.Errorf("LoadDataset during Reset: expected ErrBusy, got %v", err)
	}
	close(old.release)
	if err := <-done; err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if old.loaded != nil {
		t.Error("the recognizer being reset must not receive examples")
	}

	if err := env.ctrl.LoadDataset(bytes.NewReader(file.Bytes())); err != nil {
		t.Fatalf("LoadDataset after Reset failed: %v", err)
	}
	if s := env.store.State(); s.SelectorNumber != 3 || s.SampleNumbers[0] != 2 {
		t.Errorf("loaded data not kept: SelectorNumber=%d SampleNumbers=%v", s.SelectorNumber, s.SampleNumbers)
	}
}
