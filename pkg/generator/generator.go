// Package generator encodes composed rasters.
//
// Every artifact follows one pipeline: compose an image.Image first, then
// encode it as a single raster (PNG, JPEG, BMP, TIFF) or containerize a
// sequence of them as an MJPEG AVI.
package generator

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Supported raster formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

// DefaultJPEGQuality is used when no quality (or an out-of-range one) is given.
const DefaultJPEGQuality = 92

// NormalizeFormat maps a format name or file extension ("JPG", ".tif") to
// one of the Format constants.
func NormalizeFormat(name string) (string, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use png, jpeg, bmp or tiff", name)
	}
}

// Ext returns the file extension (without dot) used for format.
func Ext(format string) string {
	if format == FormatJPEG {
		return "jpg"
	}
	return format
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch format {
	case FormatJPEG:
		return "image/jpeg"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}

// Encode writes img to w in the given format. quality applies to JPEG only.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	format, err := NormalizeFormat(format)
	if err != nil {
		return err
	}

	switch format {
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: clampQuality(quality)})
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = png.Encode(w, img)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", strings.ToUpper(format), err)
	}
	return nil
}

// WriteFile encodes img to path, inferring the format from the extension.
func WriteFile(path string, img image.Image, quality int) error {
	format, err := NormalizeFormat(filepath.Ext(path))
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(f, img, format, quality); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func clampQuality(q int) int {
	if q < 1 || q > 100 {
		return DefaultJPEGQuality
	}
	return q
}
