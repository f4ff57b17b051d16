package template

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseData(t *testing.T) {
	ds, err := ParseData([]byte(`{"zeta": "z", "alpha": 1, "mid": null}`))
	if err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if len(ds.Records) != 1 {
		t.Fatalf("records = %d", len(ds.Records))
	}
	if want := []string{"zeta", "alpha", "mid"}; !reflect.DeepEqual(ds.Keys, want) {
		t.Fatalf("keys = %v, want document order %v", ds.Keys, want)
	}

	ds, err = ParseData([]byte(` [{"name": "Ana", "age": 30}, {"name": "Bob"}] `))
	if err != nil {
		t.Fatalf("ParseData array: %v", err)
	}
	if len(ds.Records) != 2 || ds.Records[1].Text("name") != "Bob" {
		t.Fatalf("records = %+v", ds.Records)
	}
	if ds.Records[1].Text("age") != "" {
		t.Fatal("missing key should give empty text")
	}

	for _, bad := range []string{"", "not json", `"text"`, `[1, 2]`, `[{"a": 1}, "x"]`, `{"a": }`} {
		if _, err := ParseData([]byte(bad)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseData(%q): err = %v", bad, err)
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"hi", "hi"},
		{float64(42), "42"},
		{3.5, "3.5"},
		{-0.25, "-0.25"},
		{1e21, "1e+21"},
		{1.5e22, "1.5e+22"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{-2.5e-8, "-2.5e-8"},
		{math.Copysign(0, -1), "0"},
		{json.Number("7"), "7"},
		{true, "true"},
		{[]any{1.0, "a"}, `[1,"a"]`},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAlign(t *testing.T) {
	for in, want := range map[string]Align{"": AlignStart, "left": AlignStart, "RIGHT": AlignEnd, "center": AlignCenter, "justify": AlignJustify} {
		if got, ok := ParseAlign(in); !ok || got != want {
			t.Errorf("ParseAlign(%q) = %q, %v", in, got, ok)
		}
	}
	if got, ok := ParseAlign("diagonal"); ok || got != AlignStart {
		t.Errorf("unknown alignment = %q, %v", got, ok)
	}
}

func TestValidateBox(t *testing.T) {
	box := NewTextBox("a")
	if err := box.Validate(); err != nil {
		t.Fatalf("default box invalid: %v", err)
	}
	box.FontSize = 0
	if err := box.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestApplyChange(t *testing.T) {
	box := NewTextBox("a")
	w, h, size := 20.0, 500.0, -3.0
	key, family, empty := "name", "Go Mono", ""
	align := Align("right")

	got := ApplyChange(box, BoxChange{Width: &w, Height: &h, FontSize: &size, FieldKey: &key, FontFamily: &family, Color: &empty, Align: &align})
	if got.Width != MinBoxWidth || got.Height != 500 {
		t.Errorf("size = %gx%g", got.Width, got.Height)
	}
	if got.FontSize != DefaultFontSize {
		t.Errorf("non-positive font size applied: %g", got.FontSize)
	}
	if got.FieldKey != "name" || got.FontFamily != "Go Mono" || got.Color != DefaultColor || got.Align != AlignEnd {
		t.Errorf("box = %+v", got)
	}
	if box.FieldKey != "" {
		t.Error("original box was modified")
	}

	boxes := []TextBox{NewTextBox("a"), NewTextBox("b")}
	x := 5.0
	out := UpdateBoxes(boxes, "b", BoxChange{X: &x})
	if out[1].X != 5 || out[0].X != DefaultBoxX || boxes[1].X != DefaultBoxX {
		t.Errorf("UpdateBoxes = %+v (input %+v)", out, boxes)
	}
}

func TestParseProjectDefaults(t *testing.T) {
	p, warnings, err := ParseProject([]byte(`{
		"background": {"source": "bg.png"},
		"boxes": [{"x": 1, "y": 2, "width": 10, "height": 10, "fontSize": 12, "textAlign": "sideways"}]
	}`), "/base")
	if err != nil {
		t.Fatalf("ParseProject: %v", err)
	}
	b := p.Boxes[0]
	if b.ID != "box-1" || b.FontFamily != DefaultFontFamily || b.Color != DefaultColor || b.Align != AlignStart {
		t.Fatalf("box defaults not applied: %+v", b)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "sideways") {
		t.Fatalf("warnings = %v", warnings)
	}
	if p.Output.Format != "png" {
		t.Fatalf("format = %q", p.Output.Format)
	}
	if p.Background.Source != filepath.Join("/base", "bg.png") {
		t.Fatalf("source = %q", p.Background.Source)
	}

	_, _, err = ParseProject([]byte(`{"boxes": [{"width": 0, "height": 10, "fontSize": 12}]}`), "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("zero-width box: err = %v", err)
	}
}

func TestValidateProject(t *testing.T) {
	p, ds, err := ParseExample()
	if err != nil {
		t.Fatalf("ParseExample: %v", err)
	}
	if w := ValidateProject(p, ds); len(w) != 0 {
		t.Fatalf("sample project has warnings: %v", w)
	}

	p.Boxes = append(p.Boxes, NewTextBox("box-name"), TextBox{ID: "x", FieldKey: "missing", Width: 1, Height: 1, FontSize: 1})
	w := ValidateProject(p, ds)
	joined := strings.Join(w, "\n")
	for _, want := range []string{"duplicate box id", "not bound", "missing"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected warning containing %q in %q", want, w)
		}
	}

	if out := FormatKeys(ds); !strings.Contains(out, "name:") || !strings.Contains(out, "Records: 2") {
		t.Fatalf("FormatKeys = %q", out)
	}
}

func TestBackgroundResolve(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 150))
	bg := BackgroundSpec{DisplayWidth: 150}.Resolve(img)
	if bg.DisplayWidth != 150 || bg.DisplayHeight != 150 {
		t.Fatalf("display = %gx%g", bg.DisplayWidth, bg.DisplayHeight)
	}
	if !bg.Measured() {
		t.Fatal("expected measured background")
	}

	var empty *Background
	if empty.Measured() {
		t.Fatal("nil background cannot be measured")
	}

	if _, err := LoadBackground(BackgroundSpec{}); !errors.Is(err, ErrUnready) {
		t.Fatalf("err = %v", err)
	}
	if _, err := DecodeBackground([]byte("nope"), BackgroundSpec{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestPackAndLoadBundle(t *testing.T) {
	src := t.TempDir()
	writePNG(t, filepath.Join(src, "bg.png"))
	pj, dj := GetExampleJSON()
	pj = strings.Replace(pj, `"background.png"`, `"bg.png"`, 1)
	if err := os.WriteFile(filepath.Join(src, "project.json"), []byte(pj), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "records.json"), []byte(dj), 0o644); err != nil {
		t.Fatal(err)
	}

	p, _, cleanup, err := LoadProject(filepath.Join(src, "project.json"))
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	cleanup()
	p.Data = filepath.Join(src, "records.json")

	bundle := filepath.Join(t.TempDir(), "badges.tsproj")
	f, err := os.Create(bundle)
	if err != nil {
		t.Fatal(err)
	}
	if err := PackProject(f, p); err != nil {
		t.Fatalf("PackProject: %v", err)
	}
	f.Close()

	loaded, _, cleanup, err := LoadProject(bundle)
	if err != nil {
		t.Fatalf("LoadProject bundle: %v", err)
	}
	defer cleanup()

	if len(loaded.Boxes) != len(p.Boxes) {
		t.Fatalf("boxes = %d", len(loaded.Boxes))
	}
	bg, err := LoadBackground(loaded.Background)
	if err != nil {
		t.Fatalf("bundled background: %v", err)
	}
	if w, _ := bg.NaturalSize(); w != 4 {
		t.Fatalf("background width = %d", w)
	}
	ds, err := LoadData(loaded.Data)
	if err != nil {
		t.Fatalf("bundled data: %v", err)
	}
	if len(ds.Records) != 2 {
		t.Fatalf("records = %d", len(ds.Records))
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, _ := zw.Create("../evil.txt")
	fw.Write([]byte("x"))
	zw.Close()

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		t.Fatal(err)
	}
	if err := ExtractZip(r, t.TempDir()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}
