package textlayout

import (
	"reflect"
	"testing"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/xob0t/textstamp/pkg/template"
)

// fixedWidth measures every rune as w pixels.
func fixedWidth(w float64) MeasureFunc {
	return func(s string) float64 { return float64(utf8.RuneCountInString(s)) * w }
}

func TestWrapBreaksAtWidth(t *testing.T) {
	measure := fixedWidth(10)
	// "Hello World Foo" needs 150px on one line.
	lines := Wrap("Hello World Foo", 100, measure)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(lines))
	}
	want := []string{"Hello", "World Foo"}
	if got := Texts(lines); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i, l := range lines {
		if w := measure(l.Text); w > 100 {
			t.Errorf("line %d %q is %gpx wide, limit 100", i, l.Text, w)
		}
	}
	if lines[0].Last || !lines[1].Last {
		t.Fatalf("only the final line should be marked last: %+v", lines)
	}
}

func TestWrapOverlongWordStandsAlone(t *testing.T) {
	measure := fixedWidth(10)
	lines := Wrap("a incomprehensibilities b", 100, measure)
	want := []string{"a", "incomprehensibilities", "b"}
	if got := Texts(lines); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWrapIdempotentOnFittingLine(t *testing.T) {
	measure := fixedWidth(7)
	line := "already fits here"
	lines := Wrap(line, measure(line), measure)
	if len(lines) != 1 || lines[0].Text != line {
		t.Fatalf("got %+v, want single line %q", lines, line)
	}
	again := Wrap(lines[0].Text, measure(line)+5, measure)
	if !reflect.DeepEqual(lines, again) {
		t.Fatalf("rewrap changed result: %+v vs %+v", lines, again)
	}
}

func TestWrapEmpty(t *testing.T) {
	if lines := Wrap("", 100, fixedWidth(10)); len(lines) != 0 {
		t.Fatalf("expected no lines, got %+v", lines)
	}
}

func TestWrapParagraphs(t *testing.T) {
	lines := Wrap("one two\n\nthree", 1000, fixedWidth(10))
	want := []Line{{Text: "one two", Last: true}, {Last: true}, {Text: "three", Last: true}}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("got %+v, want %+v", lines, want)
	}
}

func TestWrapWithBasicFont(t *testing.T) {
	face := basicfont.Face7x13
	measure := func(s string) float64 { return float64(font.MeasureString(face, s).Round()) }

	lines := Wrap("Hello world from Go", 50, measure)
	if len(lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(lines))
	}
	for i, l := range lines {
		if w := measure(l.Text); w > 50 {
			t.Errorf("line %d %q is %gpx wide, limit 50", i, l.Text, w)
		}
	}
}

func TestJustifyOffsets(t *testing.T) {
	measure := fixedWidth(10)
	words, offsets, ok := JustifyOffsets("A B C", 60, measure)
	if !ok {
		t.Fatal("expected justification for three words")
	}
	if !reflect.DeepEqual(words, []string{"A", "B", "C"}) {
		t.Fatalf("words = %q", words)
	}
	// space = (60 - 30) / 2 = 15
	want := []float64{0, 25, 50}
	if !reflect.DeepEqual(offsets, want) {
		t.Fatalf("offsets = %v, want %v", offsets, want)
	}
}

func TestJustifySingleWordFallsBack(t *testing.T) {
	measure := fixedWidth(10)
	_, offsets, ok := JustifyOffsets("Lonely", 200, measure)
	if ok {
		t.Fatal("single word must not be justified")
	}
	if len(offsets) != 1 || offsets[0] != 0 {
		t.Fatalf("offsets = %v", offsets)
	}

	lines := []Line{{Text: "Lonely"}, {Text: "tail", Last: true}}
	justified := Place(lines, 40, 200, template.AlignJustify, measure)
	start := Place(lines, 40, 200, template.AlignStart, measure)
	if justified[0].X != start[0].X {
		t.Fatalf("single-word justify x = %g, start x = %g", justified[0].X, start[0].X)
	}
}

func TestPlaceAlignments(t *testing.T) {
	measure := fixedWidth(10)
	lines := []Line{{Text: "abcd", Last: true}} // 40px wide

	tests := []struct {
		align template.Align
		want  float64
	}{
		{template.AlignStart, 100},
		{template.AlignCenter, 100 + 100 - 20},
		{template.AlignEnd, 100 + 200 - 40},
		{template.AlignJustify, 100}, // last line is left-aligned
	}
	for _, tt := range tests {
		runs := Place(lines, 100, 200, tt.align, measure)
		if len(runs) != 1 {
			t.Fatalf("%s: expected 1 run, got %d", tt.align, len(runs))
		}
		if runs[0].X != tt.want {
			t.Errorf("%s: x = %g, want %g", tt.align, runs[0].X, tt.want)
		}
	}
}

func TestPlaceJustifySplitsWords(t *testing.T) {
	measure := fixedWidth(10)
	lines := []Line{{Text: "A B C"}, {Text: "D E", Last: true}}

	runs := Place(lines, 5, 60, template.AlignJustify, measure)
	want := []Run{
		{Line: 0, Text: "A", X: 5},
		{Line: 0, Text: "B", X: 30},
		{Line: 0, Text: "C", X: 55},
		{Line: 1, Text: "D E", X: 5},
	}
	if !reflect.DeepEqual(runs, want) {
		t.Fatalf("got %+v, want %+v", runs, want)
	}
}
