// avi.go - Pure Go AVI writer using the Motion JPEG (MJPEG) video codec.
// Each added frame becomes one JPEG chunk shown for a fixed duration, so a
// batch can be delivered as a slideshow that plays natively on Windows.
package generator

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"time"
)

// DefaultFrameDuration is how long each frame is shown when none is set.
const DefaultFrameDuration = 2 * time.Second

// AVIWriter collects frames and writes an MJPEG AVI on Close. Frames are
// held in memory because the RIFF headers carry the total size up front.
type AVIWriter struct {
	w             io.Writer
	quality       int
	frameDuration time.Duration

	width, height int
	frames        [][]byte
	maxFrame      uint32
	closed        bool
}

// NewAVIWriter returns a writer that emits the finished file to w.
// quality is the JPEG quality of every frame; frameDuration <= 0 means
// DefaultFrameDuration.
func NewAVIWriter(w io.Writer, quality int, frameDuration time.Duration) *AVIWriter {
	if frameDuration <= 0 {
		frameDuration = DefaultFrameDuration
	}
	return &AVIWriter{w: w, quality: clampQuality(quality), frameDuration: frameDuration}
}

// Frames returns the number of frames added so far.
func (a *AVIWriter) Frames() int { return len(a.frames) }

// AddFrame encodes img as the next frame. All frames must share the size of
// the first one.
func (a *AVIWriter) AddFrame(img image.Image) error {
	if a.closed {
		return fmt.Errorf("avi: write after close")
	}
	b := img.Bounds()
	if len(a.frames) == 0 {
		a.width, a.height = b.Dx(), b.Dy()
	} else if b.Dx() != a.width || b.Dy() != a.height {
		return fmt.Errorf("avi: frame %d is %dx%d, expected %dx%d", len(a.frames)+1, b.Dx(), b.Dy(), a.width, a.height)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: a.quality}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	a.frames = append(a.frames, buf.Bytes())
	a.maxFrame = max(a.maxFrame, uint32(buf.Len()))
	return nil
}

// Close writes the container. It does not close the underlying writer.
func (a *AVIWriter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if len(a.frames) == 0 {
		return fmt.Errorf("avi: no frames")
	}
	return a.writeTo(a.w)
}

func (a *AVIWriter) writeTo(out io.Writer) error {
	bw := bufio.NewWriter(out)
	rw := &riffWriter{w: bw}

	width := uint32(a.width)
	height := uint32(a.height)
	totalFrames := uint32(len(a.frames))
	// Rate/scale in milliseconds keeps sub-second durations exact.
	scale := uint32(a.frameDuration / time.Millisecond)
	rate := uint32(1000)
	microSecPerFrame := uint32(a.frameDuration / time.Microsecond)

	var moviSize uint32 = 4
	for _, f := range a.frames {
		moviSize += 8 + padded(f)
	}
	idx1Size := 8 + totalFrames*16
	hdrlSize := uint32(4 + 64 + 124) // "hdrl" + avih + strl
	fileSize := 4 + (8 + hdrlSize) + (8 + moviSize) + idx1Size

	// === RIFF header ===
	rw.fourCC("RIFF")
	rw.u32(fileSize)
	rw.fourCC("AVI ")

	// === hdrl LIST ===
	rw.fourCC("LIST")
	rw.u32(hdrlSize)
	rw.fourCC("hdrl")

	// === avih (main AVI header) ===
	rw.fourCC("avih")
	rw.u32(56)
	rw.u32(microSecPerFrame)
	rw.u32(uint32(uint64(a.maxFrame) * 1000 / uint64(max(scale, 1)))) // max bytes per sec
	rw.u32(0)    // padding granularity
	rw.u32(0x10) // AVIF_HASINDEX
	rw.u32(totalFrames)
	rw.u32(0) // initial frames
	rw.u32(1) // streams
	rw.u32(a.maxFrame)
	rw.u32(width)
	rw.u32(height)
	rw.u32(0) // reserved
	rw.u32(0)
	rw.u32(0)
	rw.u32(0)

	// === strl LIST ===
	rw.fourCC("LIST")
	rw.u32(116) // "strl" + strh + strf
	rw.fourCC("strl")

	// === strh (stream header) ===
	rw.fourCC("strh")
	rw.u32(56)
	rw.fourCC("vids")
	rw.fourCC("MJPG")
	rw.u32(0) // flags
	rw.u16(0) // priority
	rw.u16(0) // language
	rw.u32(0) // initial frames
	rw.u32(scale)
	rw.u32(rate)
	rw.u32(0) // start
	rw.u32(totalFrames)
	rw.u32(a.maxFrame)
	rw.u32(0) // quality
	rw.u32(0) // sample size
	rw.u16(0) // left
	rw.u16(0) // top
	rw.u16(uint16(width))
	rw.u16(uint16(height))

	// === strf (BITMAPINFOHEADER) ===
	rw.fourCC("strf")
	rw.u32(40)
	rw.u32(40) // biSize
	rw.u32(width)
	rw.u32(height)
	rw.u16(1)  // planes
	rw.u16(24) // bit count
	rw.fourCC("MJPG")
	rw.u32(width * height * 3)
	rw.u32(0)
	rw.u32(0)
	rw.u32(0)
	rw.u32(0)

	// === movi LIST ===
	rw.fourCC("LIST")
	rw.u32(moviSize)
	rw.fourCC("movi")
	for _, f := range a.frames {
		rw.fourCC("00dc")
		rw.u32(uint32(len(f)))
		rw.bytes(f)
		if len(f)%2 != 0 {
			rw.bytes([]byte{0})
		}
	}

	// === idx1 ===
	rw.fourCC("idx1")
	rw.u32(totalFrames * 16)
	offset := uint32(4) // relative to the "movi" fourcc
	for _, f := range a.frames {
		rw.fourCC("00dc")
		rw.u32(0x10) // AVIIF_KEYFRAME
		rw.u32(offset)
		rw.u32(uint32(len(f)))
		offset += 8 + padded(f)
	}

	if rw.err != nil {
		return fmt.Errorf("write avi: %w", rw.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write avi: %w", err)
	}
	return nil
}

func padded(b []byte) uint32 {
	n := uint32(len(b))
	return n + n%2
}

// riffWriter keeps the first write error so the header code stays linear.
type riffWriter struct {
	w   io.Writer
	err error
}

func (r *riffWriter) bytes(b []byte) {
	if r.err == nil {
		_, r.err = r.w.Write(b)
	}
}

func (r *riffWriter) fourCC(s string) { r.bytes([]byte(s)) }

func (r *riffWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	r.bytes(b[:])
}

func (r *riffWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	r.bytes(b[:])
}
