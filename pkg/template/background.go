// background.go - Decode background images in any registered raster format.
package template

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes a raster and applies its EXIF orientation so natural
// size matches what a browser would display.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %v: %w", err, ErrInvalidInput)
	}
	return img, nil
}

// LoadBackground decodes the image named by spec.Source.
func LoadBackground(spec BackgroundSpec) (*Background, error) {
	if spec.Source == "" {
		return nil, fmt.Errorf("background source is empty: %w", ErrUnready)
	}
	data, err := os.ReadFile(spec.Source)
	if err != nil {
		return nil, fmt.Errorf("read background: %w", err)
	}
	return DecodeBackground(data, spec)
}

// DecodeBackground decodes in-memory image bytes with the given display geometry.
func DecodeBackground(data []byte, spec BackgroundSpec) (*Background, error) {
	img, err := DecodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return spec.Resolve(img), nil
}
