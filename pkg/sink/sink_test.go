package sink

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xob0t/textstamp/pkg/compositor"
	"github.com/xob0t/textstamp/pkg/generator"
)

func artifact(t *testing.T, index int) *compositor.Artifact {
	t.Helper()
	img := generator.NewSolidImage(40, 20, color.RGBA{uint8(index * 40), 100, 200, 255})
	var buf bytes.Buffer
	if err := generator.Encode(&buf, img, generator.FormatPNG, 0); err != nil {
		t.Fatal(err)
	}
	return &compositor.Artifact{
		Index:  index,
		Name:   fmt.Sprintf("image-%d.png", index),
		Format: generator.FormatPNG,
		Data:   buf.Bytes(),
		Image:  img,
	}
}

func deliverAll(t *testing.T, s Sink, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if err := s.Deliver(context.Background(), artifact(t, i)); err != nil {
			t.Fatalf("Deliver %d: %v", i, err)
		}
	}
}

func TestDir(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "out")
	d, err := NewDir(out)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	deliverAll(t, d, 2)

	for i := 1; i <= 2; i++ {
		data, err := os.ReadFile(filepath.Join(out, fmt.Sprintf("image-%d.png", i)))
		if err != nil {
			t.Fatalf("read artifact %d: %v", i, err)
		}
		if !bytes.Equal(data, artifact(t, i).Data) {
			t.Fatalf("artifact %d content mismatch", i)
		}
	}
}

func TestZip(t *testing.T) {
	var buf bytes.Buffer
	z := NewZip(&buf)
	deliverAll(t, z, 3)
	if err := z.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	if len(r.File) != 3 {
		t.Fatalf("entries = %d", len(r.File))
	}
	for i, f := range r.File {
		if want := fmt.Sprintf("image-%d.png", i+1); f.Name != want {
			t.Errorf("entry %d = %q, want %q", i, f.Name, want)
		}
	}
}

func TestAVI(t *testing.T) {
	var buf bytes.Buffer
	a := NewAVI(&buf, 75, time.Second)
	deliverAll(t, a, 2)
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("RIFF")) {
		t.Fatal("expected a RIFF file")
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	p := NewPDF(&buf, 0, "badges")
	deliverAll(t, p, 2)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.Pages() != 2 {
		t.Fatalf("pages = %d", p.Pages())
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("not a PDF: %q", buf.Bytes()[:min(8, buf.Len())])
	}

	var empty bytes.Buffer
	if err := NewPDF(&empty, 0, "").Close(); err != nil || empty.Len() != 0 {
		t.Fatalf("empty PDF: err=%v len=%d", err, empty.Len())
	}
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	fail    bool
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail {
		return nil, errors.New("boom")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = data
	f.types[*in.Key] = *in.ContentType
	return &s3.PutObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	s, err := NewS3(fake, S3Config{Bucket: "renders", Prefix: "batches"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	deliverAll(t, s, 2)

	keys := s.Keys()
	if len(keys) != 2 {
		t.Fatalf("keys = %v", keys)
	}
	want := "batches/" + s.RunID() + "/image-1.png"
	if keys[0] != want {
		t.Fatalf("key = %q, want %q", keys[0], want)
	}
	if fake.types[want] != "image/png" {
		t.Fatalf("content type = %q", fake.types[want])
	}

	fake.fail = true
	if err := s.Deliver(context.Background(), artifact(t, 3)); err == nil || !strings.Contains(err.Error(), "image-3.png") {
		t.Fatalf("expected upload error naming the key, got %v", err)
	}

	if _, err := NewS3(fake, S3Config{}); err == nil {
		t.Fatal("expected error without bucket")
	}
}

func TestFuncAndCollect(t *testing.T) {
	var names []string
	f := Func(func(_ context.Context, art *compositor.Artifact) error {
		names = append(names, art.Name)
		return nil
	})
	deliverAll(t, f, 2)
	if strings.Join(names, ",") != "image-1.png,image-2.png" {
		t.Fatalf("names = %v", names)
	}

	c := &Collect{}
	deliverAll(t, c, 3)
	if len(c.Artifacts) != 3 || c.Artifacts[2].Index != 3 {
		t.Fatalf("collected %d artifacts", len(c.Artifacts))
	}
}

func TestDeliverHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Deliver(ctx, artifact(t, 1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
