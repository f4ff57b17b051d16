package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "TEXTSTAMP_WORKERS", "TEXTSTAMP_FORMAT", "AWS_S3_FORCE_PATH_STYLE", "TEXTSTAMP_FONT_DIR", "TEXTSTAMP_FONT_DIRS"} {
		t.Setenv(k, "")
	}
	cfg := fromEnv()
	if cfg.Port != "8080" || cfg.Render.Workers != 1 || cfg.Render.Format != "png" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.AWS.S3ForcePathStyle {
		t.Fatal("path style should default to true")
	}
	if dirs := cfg.Render.AllFontDirs(); len(dirs) != 0 {
		t.Fatalf("font dirs = %v", dirs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("TEXTSTAMP_WORKERS", "4")
	t.Setenv("TEXTSTAMP_JPEG_QUALITY", "not-a-number")
	t.Setenv("AWS_S3_FORCE_PATH_STYLE", "false")
	t.Setenv("TEXTSTAMP_FONT_DIR", "/fonts")
	t.Setenv("TEXTSTAMP_FONT_DIRS", "/a, ,/b")

	cfg := fromEnv()
	if cfg.Port != "9000" || !cfg.IsProduction() || cfg.Render.Workers != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Render.JPEGQuality != 92 {
		t.Fatalf("bad int should keep default, got %d", cfg.Render.JPEGQuality)
	}
	if cfg.AWS.S3ForcePathStyle {
		t.Fatal("path style override ignored")
	}
	if got, want := cfg.Render.AllFontDirs(), []string{"/fonts", "/a", "/b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("font dirs = %v, want %v", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "")
	os.Unsetenv("S3_BUCKET_NAME")

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("S3_BUCKET_NAME=renders\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.AWS.S3BucketName != "renders" {
		t.Fatalf("bucket = %q", cfg.AWS.S3BucketName)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected error for missing env file")
	}
}
