package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"math/rand"
	"path/filepath"
	"testing"
)

func newThumbnail(w, h int, seed byte) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = seed + byte(i)
	}
	return img
}

func assertSameDataset(t *testing.T, want, got *Dataset) {
	t.Helper()

	if got.LabelCount != want.LabelCount {
		t.Fatalf("LabelCount = %d, expected %d", got.LabelCount, want.LabelCount)
	}
	if !bytes.Equal(got.Examples, want.Examples) {
		t.Errorf("Examples mismatch: got %d bytes, expected %d bytes", len(got.Examples), len(want.Examples))
	}
	if len(got.Thumbnails) != want.LabelCount {
		t.Fatalf("expected %d thumbnail slots, got %d", want.LabelCount, len(got.Thumbnails))
	}
	for i := 0; i < want.LabelCount; i++ {
		w, g := want.Thumbnail(i), got.Thumbnail(i)
		if w == nil || g == nil {
			if w != g {
				t.Errorf("slot %d: presence mismatch (expected %v, got %v)", i, w != nil, g != nil)
			}
			continue
		}
		if w.Bounds().Size() != g.Bounds().Size() {
			t.Errorf("slot %d: size %v, expected %v", i, g.Bounds().Size(), w.Bounds().Size())
		}
		if !bytes.Equal(w.Pix, g.Pix) {
			t.Errorf("slot %d: pixel data mismatch", i)
		}
	}
}

func TestEncodeDecode_ReferenceCase(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)

	blob := make([]byte, 37)
	for i := range blob {
		blob[i] = byte(i*7 + 3)
	}
	ds := &Dataset{
		LabelCount: 2,
		Examples:   blob,
		Thumbnails: []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 10, 5)), nil},
	}

	data, err := codec.Encode(ds)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expectedLen := HeaderSize + 2*SlotMetaSize + 37 + 10*5*4
	if len(data) != expectedLen {
		t.Fatalf("encoded length = %d, expected %d", len(data), expectedLen)
	}
	if n := binary.LittleEndian.Uint32(data[0:]); n != 2 {
		t.Errorf("header label count = %d, expected 2", n)
	}
	if n := binary.LittleEndian.Uint32(data[4:]); n != 37 {
		t.Errorf("header example length = %d, expected 37", n)
	}
	if n := binary.LittleEndian.Uint32(data[8:]); n != 200 {
		t.Errorf("slot 0 byte length = %d, expected 200", n)
	}

	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.LabelCount != 2 {
		t.Fatalf("LabelCount = %d, expected 2", decoded.LabelCount)
	}
	thumb := decoded.Thumbnail(0)
	if thumb == nil {
		t.Fatal("slot 0 thumbnail missing")
	}
	if thumb.Bounds().Dx() != 10 || thumb.Bounds().Dy() != 5 {
		t.Errorf("slot 0 size = %v, expected 10x5", thumb.Bounds().Size())
	}
	for i, v := range thumb.Pix {
		if v != 0 {
			t.Fatalf("slot 0 pixel byte %d = %d, expected 0", i, v)
		}
	}
	if decoded.Thumbnail(1) != nil {
		t.Error("slot 1 should be absent")
	}
	if !bytes.Equal(decoded.Examples, blob) {
		t.Error("example blob did not round-trip")
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)
	rng := rand.New(rand.NewSource(42))

	for n := 0; n <= DefaultMaxLabels; n++ {
		for trial := 0; trial < 5; trial++ {
			blob := make([]byte, rng.Intn(512))
			rng.Read(blob)

			thumbs := make([]*image.RGBA, n)
			for i := range thumbs {
				if rng.Intn(2) == 0 {
					thumbs[i] = newThumbnail(1+rng.Intn(40), 1+rng.Intn(20), byte(rng.Intn(256)))
				}
			}
			ds := &Dataset{LabelCount: n, Examples: blob, Thumbnails: thumbs}

			data, err := codec.Encode(ds)
			if err != nil {
				t.Fatalf("n=%d: Encode failed: %v", n, err)
			}
			if len(data) != codec.EncodedSize(ds) {
				t.Fatalf("n=%d: EncodedSize = %d, actual %d", n, codec.EncodedSize(ds), len(data))
			}

			decoded, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("n=%d: Decode failed: %v", n, err)
			}
			assertSameDataset(t, ds, decoded)
		}
	}
}

func TestEncode_SubImageIsCompacted(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)
	full := newThumbnail(8, 8, 1)
	sub := full.SubImage(image.Rect(2, 2, 6, 5)).(*image.RGBA)

	data, err := codec.Encode(&Dataset{LabelCount: 1, Thumbnails: []*image.RGBA{sub}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	got := decoded.Thumbnail(0)
	if got.Bounds().Dx() != 4 || got.Bounds().Dy() != 3 {
		t.Fatalf("size = %v, expected 4x3", got.Bounds().Size())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if got.RGBAAt(x, y) != sub.RGBAAt(x+2, y+2) {
				t.Fatalf("pixel (%d,%d) mismatch", x, y)
			}
		}
	}
}

func TestEncode_Rejects(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)

	if _, err := codec.Encode(nil); err == nil {
		t.Error("expected error for nil dataset")
	}
	if _, err := codec.Encode(&Dataset{LabelCount: DefaultMaxLabels + 1}); err == nil {
		t.Error("expected error for too many labels")
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := codec.Encode(&Dataset{LabelCount: 1, Thumbnails: []*image.RGBA{empty}}); err == nil {
		t.Error("expected error for empty thumbnail bounds")
	}
}

func header(values ...uint32) []byte {
	var buf []byte
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

func TestDecode_FormatErrors(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)

	valid, err := codec.Encode(&Dataset{
		LabelCount: 2,
		Examples:   []byte{1, 2, 3, 4, 5},
		Thumbnails: []*image.RGBA{newThumbnail(2, 2, 0), newThumbnail(3, 1, 9)},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty buffer", nil},
		{"shorter than header", []byte{2, 0, 0, 0, 0}},
		{"too many labels", header(11, 0)},
		{"huge label count", header(0xFFFFFFFF, 0)},
		{"truncated slot table", header(2, 0, 0, 0, 0)},
		{"example length past end", header(1, 100, 0, 0, 0)},
		{"thumbnail length past end", append(header(1, 0, 16, 2, 2), make([]byte, 15)...)},
		{"thumbnail length not w*h*4", append(header(1, 0, 12, 2, 2), make([]byte, 12)...)},
		{"thumbnail length without size", append(header(1, 0, 4, 0, 0), make([]byte, 4)...)},
		{"trailing bytes", append(append([]byte(nil), valid...), 0)},
		{"truncated valid file", valid[:len(valid)-1]},
	}

	for _, test := range tests {
		_, err := codec.Decode(test.data)
		if err == nil {
			t.Errorf("%s: expected error, got nil", test.name)
			continue
		}
		var formatErr *FormatError
		if !errors.As(err, &formatErr) {
			t.Errorf("%s: expected FormatError, got %T: %v", test.name, err, err)
		}
	}
}

func TestDecode_ZeroLabels(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)

	ds, err := codec.Decode(header(0, 3, 0x00aabbcc)[:11])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ds.LabelCount != 0 || len(ds.Examples) != 3 {
		t.Errorf("unexpected dataset: %+v", ds)
	}
}

func TestDecode_AbsentSlotIgnoresSize(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)

	ds, err := codec.Decode(header(1, 0, 0, 7, 7))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if ds.Thumbnail(0) != nil {
		t.Error("zero-length slot should decode as absent")
	}
}

func TestCodec_CustomMaxLabels(t *testing.T) {
	codec := NewCodec(3)

	if _, err := codec.Decode(header(4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)); err == nil {
		t.Error("expected error for label count above custom max")
	}
	if NewCodec(0).MaxLabels != DefaultMaxLabels {
		t.Error("non-positive max should fall back to default")
	}
}

func TestReadWrite(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)
	ds := &Dataset{LabelCount: 3, Examples: []byte("examples"), Thumbnails: []*image.RGBA{nil, newThumbnail(4, 4, 2), nil}}

	var buf bytes.Buffer
	if err := codec.Write(&buf, ds); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	decoded, err := codec.Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	assertSameDataset(t, ds, decoded)
}

func TestSaveLoadFile(t *testing.T) {
	codec := NewCodec(DefaultMaxLabels)
	ds := &Dataset{LabelCount: 2, Examples: []byte{9, 8, 7}, Thumbnails: []*image.RGBA{newThumbnail(5, 2, 3), nil}}

	path, err := codec.SaveFile(filepath.Join(t.TempDir(), "SoundData"), ds)
	if err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	if filepath.Ext(path) != FileExtension {
		t.Errorf("expected %s extension, got %s", FileExtension, path)
	}

	loaded, err := codec.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	assertSameDataset(t, ds, loaded)

	if _, err := codec.LoadFile(filepath.Join(t.TempDir(), "missing.dat")); err == nil {
		t.Error("expected error for missing file")
	}
}
