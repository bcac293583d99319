// Command soundset inspects and edits sound dataset files and the local
// upload history without starting the desktop application.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/atotto/clipboard"

	"github.com/aiforedu/sound-trainer/internal/audio"
	"github.com/aiforedu/sound-trainer/internal/config"
	"github.com/aiforedu/sound-trainer/internal/dataset"
	"github.com/aiforedu/sound-trainer/internal/history"
	"github.com/aiforedu/sound-trainer/internal/logging"
	"github.com/aiforedu/sound-trainer/internal/model"
	"github.com/aiforedu/sound-trainer/internal/platform"
	"github.com/aiforedu/sound-trainer/internal/recognizer"
)

const usage = `usage: soundset <command> [flags] [args]

commands:
  info FILE                          show the slots and example counts of a dataset
  thumbs [-out DIR] FILE             export slot thumbnails as PNG
  add-wav -slot N [-in FILE] -out FILE WAV...
                                     add examples from WAV files to a slot (1-10)
  record [-duration D] [-device NAME] OUT.wav
                                     record one clip from the microphone
  devices                            list capture devices
  keys [-db PATH] [-n N] [-copy]     list uploaded model keys`

func main() {
	_ = config.LoadEnv()
	logger := logging.Default()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "thumbs":
		err = runThumbs(os.Args[2:])
	case "add-wav":
		err = runAddWAV(ctx, logger, os.Args[2:])
	case "record":
		err = runRecord(ctx, os.Args[2:])
	case "devices":
		err = runDevices()
	case "keys":
		err = runKeys(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		logging.Error(ctx, logger, "Command failed.", err, slog.String("command", os.Args[1]))
		os.Exit(1)
	}
}

func loadDataset(path string) (*dataset.Dataset, *recognizer.ExampleSet, error) {
	ds, err := dataset.NewCodec(model.MaxLabels).LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	examples, err := recognizer.DeserializeExamples(ds.Examples)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid example data in %s: %w", path, err)
	}
	return ds, examples, nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("info needs exactly one dataset file")
	}

	ds, examples, err := loadDataset(fs.Arg(0))
	if err != nil {
		return err
	}

	counts := examples.Count()
	fmt.Printf("labels: %d\nexamples: %d (%d bytes)\n", ds.LabelCount, examples.Len(), len(ds.Examples))

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tEXAMPLES\tTHUMBNAIL")
	for i := 0; i < ds.LabelCount; i++ {
		thumb := "-"
		if img := ds.Thumbnail(i); img != nil {
			thumb = fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy())
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\n", i+1, counts[recognizer.SlotLabel(i)], thumb)
	}
	return tw.Flush()
}

func runThumbs(args []string) error {
	fs := flag.NewFlagSet("thumbs", flag.ExitOnError)
	outDir := fs.String("out", ".", "Directory for the PNG files")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("thumbs needs exactly one dataset file")
	}

	ds, err := dataset.NewCodec(model.MaxLabels).LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := platform.CreateDirectoryIfNotExists(*outDir); err != nil {
		return err
	}

	for i := 0; i < ds.LabelCount; i++ {
		img := ds.Thumbnail(i)
		if img == nil {
			continue
		}
		path := filepath.Join(*outDir, fmt.Sprintf("slot-%02d.png", i+1))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, platform.DefaultFilePermissions)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("failed to encode %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Println(path)
	}
	return nil
}

func runAddWAV(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("add-wav", flag.ExitOnError)
	slot := fs.Int("slot", 0, "Slot number (1-10) the clips belong to")
	in := fs.String("in", "", "Existing dataset to extend (optional)")
	out := fs.String("out", "", "Dataset file to write")
	duration := fs.Duration("duration", recognizer.DefaultCollectDuration, "Length of each example")
	fs.Parse(args)

	if *slot < 1 || *slot > model.MaxLabels {
		return fmt.Errorf("-slot must be between 1 and %d", model.MaxLabels)
	}
	if *out == "" || fs.NArg() == 0 {
		return fmt.Errorf("add-wav needs -out and at least one WAV file")
	}

	ds := &dataset.Dataset{LabelCount: model.MinLabels}
	if *in != "" {
		loaded, err := dataset.NewCodec(model.MaxLabels).LoadFile(*in)
		if err != nil {
			return err
		}
		ds = loaded
	}

	// Clips are fed through the same capture path the microphone uses
	var clip []float64
	replay := func(cfg audio.CaptureConfig) (audio.Capturer, error) {
		return audio.ReplayFactory(clip, false)(cfg)
	}
	transfer := recognizer.NewTransfer("soundset", recognizer.WithCapturerFactory(replay), recognizer.WithLogger(logger))
	if err := transfer.LoadExamples(ds.Examples, false); err != nil {
		return fmt.Errorf("invalid example data: %w", err)
	}

	label := recognizer.SlotLabel(*slot - 1)
	rate := int(audio.DefaultConfig().SampleRate)
	need := audio.SamplesFor(*duration, audio.DefaultConfig().SampleRate)

	var last *recognizer.Spectrogram
	for _, path := range fs.Args() {
		samples, _, err := audio.ReadWAV(path, rate)
		if err != nil {
			return err
		}

		var spec *recognizer.Spectrogram
		if len(samples) >= need {
			clip = samples
			spec, err = transfer.CollectExample(ctx, label, recognizer.CollectOptions{Duration: *duration})
		} else {
			spec, err = transfer.AddSamples(label, samples)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		last = spec
		fmt.Printf("added %s to slot %d\n", path, *slot)
	}

	blob, err := transfer.SerializeExamples()
	if err != nil {
		return err
	}
	ds.Examples = blob
	if ds.LabelCount < *slot {
		ds.LabelCount = *slot
	}
	thumbs := make([]*image.RGBA, ds.LabelCount)
	copy(thumbs, ds.Thumbnails)
	thumbs[*slot-1] = last.ToImage()
	ds.Thumbnails = thumbs

	path, err := dataset.NewCodec(model.MaxLabels).SaveFile(*out, ds)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d examples in slot %d)\n", path, transfer.CountExamples()[label], *slot)
	return nil
}

func runRecord(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	duration := fs.Duration("duration", recognizer.DefaultCollectDuration, "Recording length")
	device := fs.String("device", "", "Capture device name (partial match)")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("record needs exactly one output file")
	}

	cfg := audio.DefaultConfig()
	cfg.DeviceName = *device
	capturer, err := audio.NewCapturer(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("recording %s...\n", *duration)
	samples, err := audio.Record(ctx, capturer, audio.SamplesFor(*duration, cfg.SampleRate), cfg.Channels)
	if err != nil {
		return err
	}

	path := platform.EnsureExtension(fs.Arg(0), ".wav")
	if err := audio.WriteWAV(path, samples, int(cfg.SampleRate)); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runDevices() error {
	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no capture devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Println(d)
	}
	return nil
}

func runKeys(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	dbPath := fs.String("db", "", "History database (default: $"+config.EnvHistoryDB+" or the user config directory)")
	limit := fs.Int("n", history.DefaultLimit, "Number of entries to show")
	copyKey := fs.Bool("copy", false, "Copy the newest key to the clipboard")
	fs.Parse(args)

	path := *dbPath
	if path == "" {
		path = os.Getenv(config.EnvHistoryDB)
	}
	if path == "" {
		path = config.DefaultHistoryDBPath()
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(ctx, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no uploads recorded")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tUPLOADED\tLABELS\tENDPOINT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ModelKey, e.UploadedAt.Local().Format(time.DateTime), labelSummary(e), e.Endpoint)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if *copyKey {
		if err := clipboard.WriteAll(entries[0].ModelKey); err != nil {
			return fmt.Errorf("failed to copy key: %w", err)
		}
		fmt.Printf("copied %s\n", entries[0].ModelKey)
	}
	return nil
}

// labelSummary renders "slot:count" pairs using 1-based slot numbers
func labelSummary(e history.Entry) string {
	s := ""
	for i, label := range e.Labels {
		if i > 0 {
			s += " "
		}
		name := label
		if slot := recognizer.LabelSlot(label); slot >= 0 {
			name = strconv.Itoa(slot + 1)
		}
		s += fmt.Sprintf("%s:%d", name, e.Examples[label])
	}
	if s == "" {
		return "-"
	}
	return s
}
