// Package fontspec parses CSS font shorthand strings such as
// `italic bold 24px/1.2 "Open Sans", Arial, sans-serif`.
package fontspec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	fontLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "Size", Pattern: `\d+(?:\.\d+)?(?:px|pt)`},
		{Name: "Float", Pattern: `\d+\.\d+`},
		{Name: "Number", Pattern: `\d+`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"|'(?:\\.|[^'])*'`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[,/]`},
	})

	shorthandParser = participle.MustBuild[shorthand](
		participle.Lexer(fontLexer),
		participle.Elide("Whitespace"),
	)
)

// shorthand is the grammar: modifiers, size, optional line height, families.
type shorthand struct {
	Modifiers  []string  `parser:"@(Ident | Number)*"`
	Size       string    `parser:"@Size"`
	LineHeight string    `parser:"( '/' @(Size | Float | Number) )?"`
	Families   []*family `parser:"@@ ( ',' @@ )*"`
}

type family struct {
	Quoted string   `parser:"  @String"`
	Words  []string `parser:"| @(Ident | Number)+"`
}

func (f *family) name() string {
	if f.Quoted != "" {
		return f.Quoted[1 : len(f.Quoted)-1]
	}
	return strings.Join(f.Words, " ")
}

// Weight values.
const (
	WeightNormal = 400
	WeightBold   = 700
)

// Spec is a parsed font shorthand. Sizes are in CSS pixels.
type Spec struct {
	Italic     bool
	SmallCaps  bool
	Weight     int
	Size       float64
	LineHeight float64 // multiplier; 0 when unset
	Families   []string
}

// Bold reports whether the weight is semibold or heavier.
func (s Spec) Bold() bool { return s.Weight >= 600 }

// String formats s back into shorthand form.
func (s Spec) String() string {
	var parts []string
	if s.Italic {
		parts = append(parts, "italic")
	}
	if s.SmallCaps {
		parts = append(parts, "small-caps")
	}
	if s.Weight != 0 && s.Weight != WeightNormal {
		parts = append(parts, strconv.Itoa(s.Weight))
	}
	size := formatFloat(s.Size) + "px"
	if s.LineHeight > 0 {
		size += "/" + formatFloat(s.LineHeight)
	}
	parts = append(parts, size)

	fams := make([]string, len(s.Families))
	for i, f := range s.Families {
		if strings.ContainsAny(f, " ,'\"") {
			f = strconv.Quote(f)
		}
		fams[i] = f
	}
	return strings.Join(parts, " ") + " " + strings.Join(fams, ", ")
}

// Format builds the shorthand used for a box: "{size}px {family}".
func Format(sizePx float64, family string) string {
	return formatFloat(sizePx) + "px " + family
}

// Parse parses a font shorthand string.
func Parse(s string) (Spec, error) {
	ast, err := shorthandParser.ParseString("", s)
	if err != nil {
		return Spec{}, fmt.Errorf("font %q: %w", s, err)
	}

	spec := Spec{Weight: WeightNormal}
	for _, m := range ast.Modifiers {
		if err := spec.applyModifier(m); err != nil {
			return Spec{}, fmt.Errorf("font %q: %w", s, err)
		}
	}

	spec.Size, err = parseLength(ast.Size)
	if err != nil {
		return Spec{}, fmt.Errorf("font %q: %w", s, err)
	}
	if spec.Size <= 0 {
		return Spec{}, fmt.Errorf("font %q: size must be positive", s)
	}

	if ast.LineHeight != "" {
		if strings.HasSuffix(ast.LineHeight, "px") || strings.HasSuffix(ast.LineHeight, "pt") {
			px, err := parseLength(ast.LineHeight)
			if err != nil {
				return Spec{}, fmt.Errorf("font %q: %w", s, err)
			}
			spec.LineHeight = px / spec.Size
		} else {
			spec.LineHeight, _ = strconv.ParseFloat(ast.LineHeight, 64)
		}
	}

	for _, f := range ast.Families {
		if name := strings.TrimSpace(f.name()); name != "" {
			spec.Families = append(spec.Families, name)
		}
	}
	return spec, nil
}

func (s *Spec) applyModifier(m string) error {
	switch strings.ToLower(m) {
	case "normal":
	case "italic", "oblique":
		s.Italic = true
	case "small-caps":
		s.SmallCaps = true
	case "bold", "bolder":
		s.Weight = WeightBold
	case "lighter":
		s.Weight = 300
	default:
		w, err := strconv.Atoi(m)
		if err != nil || w < 1 || w > 1000 {
			return fmt.Errorf("unknown font modifier %q", m)
		}
		s.Weight = w
	}
	return nil
}

// parseLength converts "12px" or "9pt" to CSS pixels.
func parseLength(v string) (float64, error) {
	unit := v[len(v)-2:]
	n, err := strconv.ParseFloat(v[:len(v)-2], 64)
	if err != nil {
		return 0, fmt.Errorf("bad length %q: %w", v, err)
	}
	if unit == "pt" {
		n = n * 96 / 72
	}
	return n, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
