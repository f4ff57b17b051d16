// Package textlayout breaks text into lines with greedy word wrap and places
// each line (or each word, for justified lines) horizontally inside a box.
//
// Measurement is injected so the package stays independent of any font
// backend and can be tested with synthetic widths.
package textlayout

import "strings"

// MeasureFunc returns the advance width of s in pixels for the current font.
type MeasureFunc func(s string) float64

// Line is one wrapped line.
type Line struct {
	Text string
	Last bool // final line of its paragraph; never justified
}

// Wrap breaks text into lines no wider than maxWidth where possible.
// Words are separated by single spaces and never split, so a word wider
// than maxWidth sits alone on an overflowing line. Newlines start a new
// paragraph; an empty paragraph between others is kept as a blank line.
// Empty text yields no lines.
func Wrap(text string, maxWidth float64, measure MeasureFunc) []Line {
	if !strings.Contains(text, "\n") {
		return wrapParagraph(text, maxWidth, measure)
	}

	var lines []Line
	for _, para := range strings.Split(text, "\n") {
		wrapped := wrapParagraph(para, maxWidth, measure)
		if len(wrapped) == 0 {
			lines = append(lines, Line{Last: true})
			continue
		}
		lines = append(lines, wrapped...)
	}
	return lines
}

func wrapParagraph(para string, maxWidth float64, measure MeasureFunc) []Line {
	var lines []Line
	current := ""

	for _, word := range strings.Split(para, " ") {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) > maxWidth && current != "" {
			lines = append(lines, Line{Text: current})
			current = word
		} else {
			current = candidate
		}
	}
	if current != "" {
		lines = append(lines, Line{Text: current})
	}

	if n := len(lines); n > 0 {
		lines[n-1].Last = true
	}
	return lines
}

// Texts returns the text of each line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
