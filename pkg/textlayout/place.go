// place.go - Horizontal placement of wrapped lines, including justification.
package textlayout

import (
	"strings"

	"github.com/xob0t/textstamp/pkg/template"
)

// Run is a piece of text drawn with its left edge at X on line Line.
type Run struct {
	Line int
	Text string
	X    float64
}

// JustifyOffsets spreads the words of line across maxWidth. It returns each
// word's x offset from the line start: the gap between words is
// (maxWidth - width of the words without spaces) / (words - 1).
// ok is false for a single word, where there is no gap to distribute.
func JustifyOffsets(line string, maxWidth float64, measure MeasureFunc) (words []string, offsets []float64, ok bool) {
	words = strings.Split(line, " ")
	if len(words) < 2 {
		return words, []float64{0}, false
	}

	space := (maxWidth - measure(strings.Join(words, ""))) / float64(len(words)-1)
	offsets = make([]float64, len(words))
	x := 0.0
	for j, w := range words {
		offsets[j] = x
		x += measure(w) + space
	}
	return words, offsets, true
}

// Place positions lines inside the horizontal span [left, left+width].
// Justified lines other than a paragraph's last are split into one run per
// word; every other line is a single run.
func Place(lines []Line, left, width float64, align template.Align, measure MeasureFunc) []Run {
	runs := make([]Run, 0, len(lines))

	for i, line := range lines {
		if line.Text == "" {
			continue
		}

		switch align {
		case template.AlignCenter:
			runs = append(runs, Run{Line: i, Text: line.Text, X: left + width/2 - measure(line.Text)/2})
		case template.AlignEnd:
			runs = append(runs, Run{Line: i, Text: line.Text, X: left + width - measure(line.Text)})
		case template.AlignJustify:
			if !line.Last {
				if words, offsets, ok := JustifyOffsets(line.Text, width, measure); ok {
					for j, w := range words {
						if w == "" {
							continue
						}
						runs = append(runs, Run{Line: i, Text: w, X: left + offsets[j]})
					}
					continue
				}
			}
			runs = append(runs, Run{Line: i, Text: line.Text, X: left})
		default:
			runs = append(runs, Run{Line: i, Text: line.Text, X: left})
		}
	}
	return runs
}
