// face.go - Per-worker cache of sized font faces.
package fonts

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"github.com/xob0t/textstamp/pkg/fontspec"
)

// NewFace returns a face whose size is in pixels.
func NewFace(f *opentype.Font, sizePx float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72, // 1pt == 1px
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

type faceKey struct {
	font *opentype.Font
	size float64
}

// FaceCache hands out faces for font shorthand strings. It is not safe for
// concurrent use; give each render worker its own.
type FaceCache struct {
	reg   *Registry
	faces map[faceKey]font.Face
	specs map[string]fontspec.Spec
}

// NewFaceCache returns an empty cache backed by r.
func (r *Registry) NewFaceCache() *FaceCache {
	return &FaceCache{
		reg:   r,
		faces: make(map[faceKey]font.Face),
		specs: make(map[string]fontspec.Spec),
	}
}

// Face resolves a shorthand such as "24px Arial" to a face.
func (c *FaceCache) Face(shorthand string) (font.Face, Resolution, error) {
	spec, ok := c.specs[shorthand]
	if !ok {
		var err error
		spec, err = fontspec.Parse(shorthand)
		if err != nil {
			return nil, Resolution{}, err
		}
		c.specs[shorthand] = spec
	}

	ft, res := c.reg.Resolve(spec)
	key := faceKey{font: ft, size: spec.Size}
	if face, ok := c.faces[key]; ok {
		return face, res, nil
	}
	face, err := NewFace(ft, spec.Size)
	if err != nil {
		return nil, res, err
	}
	c.faces[key] = face
	return face, res, nil
}

// Close releases every cached face.
func (c *FaceCache) Close() error {
	for k, f := range c.faces {
		f.Close()
		delete(c.faces, k)
	}
	return nil
}
