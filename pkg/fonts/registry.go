// registry.go - Font registry with the embedded Go fonts plus user TTF/OTF files.
// Families are looked up case-insensitively by family name or full name; any
// family that cannot be found resolves to Go Regular.
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomediumitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/gofont/gosmallcapsitalic"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/xob0t/textstamp/pkg/fontspec"
)

// FallbackFamily is used when none of the requested families is registered.
const FallbackFamily = "Go"

// slot indexes a family's faces by bold<<1 | italic.
type slot int

const (
	slotRegular slot = iota
	slotItalic
	slotBold
	slotBoldItalic
)

func slotFor(bold, italic bool) slot {
	s := slotRegular
	if bold {
		s |= slotBold
	}
	if italic {
		s |= slotItalic
	}
	return s
}

// Family groups the styles of one typeface.
type Family struct {
	Name  string
	fonts [4]*opentype.Font
}

// pick returns the closest available style.
func (f *Family) pick(bold, italic bool) *opentype.Font {
	for _, s := range []slot{slotFor(bold, italic), slotFor(bold, false), slotFor(false, italic), slotRegular} {
		if f.fonts[s] != nil {
			return f.fonts[s]
		}
	}
	for _, ft := range f.fonts {
		if ft != nil {
			return ft
		}
	}
	return nil
}

// genericFamilies maps CSS generic names onto built-in families.
var genericFamilies = map[string]string{
	"sans-serif": "go",
	"serif":      "go",
	"system-ui":  "go",
	"monospace":  "go mono",
}

// Registry resolves font shorthand to parsed fonts. Parsed fonts are safe
// for concurrent use; faces are not, see FaceCache.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*Family
}

// NewRegistry returns a registry holding the embedded Go font families.
func NewRegistry() (*Registry, error) {
	r := &Registry{families: make(map[string]*Family)}
	builtins := [][]byte{
		goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF,
		gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF,
		gomedium.TTF, gomediumitalic.TTF,
		gosmallcaps.TTF, gosmallcapsitalic.TTF,
	}
	for _, data := range builtins {
		if _, err := r.Add(data); err != nil {
			return nil, fmt.Errorf("failed to parse built-in font: %w", err)
		}
	}
	return r, nil
}

// Load returns a registry with the built-in families plus every font found
// under dirs. Unreadable font files become warnings.
func Load(dirs ...string) (*Registry, []string, error) {
	r, err := NewRegistry()
	if err != nil {
		return nil, nil, err
	}
	var warnings []string
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		w, err := r.LoadDir(dir)
		warnings = append(warnings, w...)
		if err != nil {
			return nil, warnings, err
		}
	}
	return r, warnings, nil
}

// Add parses a TTF/OTF font and registers it under its family name and its
// full name. It returns the family name.
func (r *Registry) Add(data []byte) (string, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return "", fmt.Errorf("failed to parse font: %w", err)
	}

	var buf sfnt.Buffer
	family, err := parsed.Name(&buf, sfnt.NameIDFamily)
	if err != nil || family == "" {
		return "", fmt.Errorf("font has no family name")
	}
	sub, _ := parsed.Name(&buf, sfnt.NameIDSubfamily)
	full, _ := parsed.Name(&buf, sfnt.NameIDFull)

	lower := strings.ToLower(sub)
	s := slotFor(strings.Contains(lower, "bold"), strings.Contains(lower, "italic") || strings.Contains(lower, "oblique"))

	// The first font registered for a slot wins.
	r.mu.Lock()
	defer r.mu.Unlock()
	if fam := r.family(family); fam.fonts[s] == nil {
		fam.fonts[s] = parsed
	}
	if full != "" && !strings.EqualFold(full, family) {
		if fam := r.family(full); fam.fonts[slotRegular] == nil {
			fam.fonts[slotRegular] = parsed
		}
	}
	return family, nil
}

// family returns the entry for name, creating it. Caller holds mu.
func (r *Registry) family(name string) *Family {
	key := strings.ToLower(name)
	f, ok := r.families[key]
	if !ok {
		f = &Family{Name: name}
		r.families[key] = f
	}
	return f
}

// AddFile registers a single font file.
func (r *Registry) AddFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read font %s: %w", path, err)
	}
	name, err := r.Add(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return name, nil
}

// LoadDir registers every .ttf and .otf file under dir. Files that fail to
// parse are reported as warnings and skipped.
func (r *Registry) LoadDir(dir string) ([]string, error) {
	var warnings []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ttf", ".otf":
		default:
			return nil
		}
		if _, err := r.AddFile(path); err != nil {
			warnings = append(warnings, fmt.Sprintf("could not load font: %v", err))
		}
		return nil
	})
	if err != nil {
		return warnings, fmt.Errorf("load fonts from %s: %w", dir, err)
	}
	return warnings, nil
}

// Families lists registered family names, sorted.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.families))
	for _, f := range r.families {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// Resolution describes which font a shorthand resolved to.
type Resolution struct {
	Spec   fontspec.Spec
	Family string
	Exact  bool // false when the fallback family was used
}

// Resolve picks the font for spec: the first registered family in the list,
// else the fallback.
func (r *Registry) Resolve(spec fontspec.Spec) (*opentype.Font, Resolution) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := Resolution{Spec: spec}
	for _, name := range spec.Families {
		key := strings.ToLower(name)
		if g, ok := genericFamilies[key]; ok {
			key = g
		}
		if fam, ok := r.families[key]; ok {
			if ft := fam.pick(spec.Bold(), spec.Italic); ft != nil {
				res.Family, res.Exact = fam.Name, true
				return ft, res
			}
		}
	}

	fam := r.families[strings.ToLower(FallbackFamily)]
	res.Family = fam.Name
	return fam.pick(spec.Bold(), spec.Italic), res
}
