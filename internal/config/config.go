// Package config reads runtime settings from the environment. A .env file
// in the working directory is loaded first when present; variables already
// set in the environment win.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	Env  string
	Port string

	Render RenderConfig
	Upload UploadConfig
	AWS    AWSConfig
}

type RenderConfig struct {
	FontDir     string
	FontDirs    []string
	Workers     int
	Format      string
	JPEGQuality int
}

type UploadConfig struct {
	MaxUploadMB int
}

type AWSConfig struct {
	Region           string
	S3BucketName     string
	EndpointURL      string
	S3ForcePathStyle bool
	S3Prefix         string
}

// Load reads .env (if any) and the environment.
func Load() *Config {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is Load with an explicit env file; a missing file is an error.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, err
	}
	return fromEnv(), nil
}

func fromEnv() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		Render: RenderConfig{
			FontDir:     getEnv("TEXTSTAMP_FONT_DIR", ""),
			FontDirs:    getEnvSlice("TEXTSTAMP_FONT_DIRS", nil),
			Workers:     getEnvInt("TEXTSTAMP_WORKERS", 1),
			Format:      getEnv("TEXTSTAMP_FORMAT", "png"),
			JPEGQuality: getEnvInt("TEXTSTAMP_JPEG_QUALITY", 92),
		},

		Upload: UploadConfig{
			MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 32),
		},

		AWS: AWSConfig{
			Region:           getEnv("AWS_REGION", "us-east-1"),
			S3BucketName:     getEnv("S3_BUCKET_NAME", ""),
			EndpointURL:      getEnv("AWS_ENDPOINT_URL", ""),
			S3ForcePathStyle: getEnvBool("AWS_S3_FORCE_PATH_STYLE", true),
			S3Prefix:         getEnv("S3_PREFIX", "textstamp"),
		},
	}
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AllFontDirs returns FontDir followed by FontDirs, skipping blanks.
func (r RenderConfig) AllFontDirs() []string {
	var dirs []string
	for _, d := range append([]string{r.FontDir}, r.FontDirs...) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
