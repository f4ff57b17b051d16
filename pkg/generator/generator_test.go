package generator

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#000000", color.RGBA{0, 0, 0, 255}},
		{"#ff8000", color.RGBA{255, 128, 0, 255}},
		{"0000ff", color.RGBA{0, 0, 255, 255}},
		{"#f00", color.RGBA{255, 0, 0, 255}},
		{"#ffffff00", color.RGBA{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "#12", "#gggggg", "red"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("ParseColor(%q): expected error", bad)
		}
	}

	black := color.RGBA{0, 0, 0, 255}
	if got := ParseHexRGBA("nope", black); got != black {
		t.Errorf("ParseHexRGBA fallback = %v", got)
	}
}

func TestNormalizeFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatPNG, "JPG": FormatJPEG, ".tif": FormatTIFF, "bmp": FormatBMP} {
		got, err := NormalizeFormat(in)
		if err != nil || got != want {
			t.Errorf("NormalizeFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := NormalizeFormat("webp"); err == nil {
		t.Error("expected error for webp output")
	}
	if Ext(FormatJPEG) != "jpg" || Ext(FormatPNG) != "png" {
		t.Error("unexpected extension mapping")
	}
}

func TestEncodeDecodes(t *testing.T) {
	src := NewSolidImage(12, 8, color.RGBA{10, 200, 30, 255})
	for _, format := range []string{FormatPNG, FormatJPEG, FormatBMP, FormatTIFF} {
		var buf bytes.Buffer
		if err := Encode(&buf, src, format, 90); err != nil {
			t.Fatalf("Encode %s: %v", format, err)
		}
		img, err := imaging.Decode(&buf)
		if err != nil {
			t.Fatalf("decode %s: %v", format, err)
		}
		if img.Bounds().Dx() != 12 || img.Bounds().Dy() != 8 {
			t.Errorf("%s: size %v", format, img.Bounds())
		}
	}
}

func TestAVIWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewAVIWriter(&buf, 80, 500*time.Millisecond)
	for _, c := range []color.RGBA{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 255}} {
		if err := w.AddFrame(NewSolidImage(16, 16, c)); err != nil {
			t.Fatalf("AddFrame: %v", err)
		}
	}
	if err := w.AddFrame(image.NewRGBA(image.Rect(0, 0, 8, 8))); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data := buf.Bytes()
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "AVI " {
		t.Fatalf("bad header %q", data[:12])
	}
	if size := binary.LittleEndian.Uint32(data[4:8]); int(size) != len(data)-8 {
		t.Fatalf("RIFF size %d, file has %d bytes after header", size, len(data)-8)
	}
	// avih.dwMicroSecPerFrame and dwTotalFrames.
	if us := binary.LittleEndian.Uint32(data[32:36]); us != 500000 {
		t.Errorf("microseconds per frame = %d", us)
	}
	if n := binary.LittleEndian.Uint32(data[48:52]); n != 3 {
		t.Errorf("total frames = %d", n)
	}
	if got := bytes.Count(data, []byte("00dc")); got != 6 {
		t.Errorf("expected 3 chunks and 3 index entries, found %d tags", got)
	}
}

func TestAVIWriterEmpty(t *testing.T) {
	if err := NewAVIWriter(&bytes.Buffer{}, 0, 0).Close(); err == nil {
		t.Fatal("expected error for empty AVI")
	}
}
