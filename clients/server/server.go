// Package server exposes batch rendering over HTTP: upload a project, its
// records and a background, get the rendered images back as an archive.
package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/xob0t/textstamp/internal/config"
	"github.com/xob0t/textstamp/pkg/fonts"
	"github.com/xob0t/textstamp/pkg/sink"
	"github.com/xob0t/textstamp/pkg/template"
)

// Server holds what handlers share across requests.
type Server struct {
	cfg    *config.Config
	fonts  *fonts.Registry
	assets *assetManager
	logger *log.Logger
	s3     sink.PutObjectAPI // nil when no bucket is configured
}

// New returns a server rendering with reg. s3 may be nil.
func New(cfg *config.Config, reg *fonts.Registry, s3 sink.PutObjectAPI, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		cfg:    cfg,
		fonts:  reg,
		assets: newAssetManager(),
		logger: logger,
		s3:     s3,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = int64(s.maxUploadMB()) << 20

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api")
	api.Use(s.limitBody())
	{
		api.POST("/render", s.handleRender)
		api.POST("/preview", s.handlePreview)
		api.POST("/keys", s.handleKeys)
		api.POST("/export/bundle", s.handleExportBundle)

		api.POST("/upload/image", s.handleUploadImage)
		api.POST("/upload/font", s.handleUploadFont)
		api.GET("/fonts", s.handleListFonts)

		api.GET("/assets", s.handleListAssets)
		api.GET("/assets/:id", s.handleGetAsset)
		api.DELETE("/assets/:id", s.handleDeleteAsset)
	}
	return r
}

func (s *Server) maxUploadMB() int {
	if s.cfg.Upload.MaxUploadMB > 0 {
		return s.cfg.Upload.MaxUploadMB
	}
	return 32
}

// limitBody caps request bodies at MAX_UPLOAD_MB.
func (s *Server) limitBody() gin.HandlerFunc {
	limit := int64(s.maxUploadMB()) << 20
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// RunServe parses serve flags, loads fonts and listens until interrupted.
func RunServe(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var port, fontDir string
	fs.StringVar(&port, "port", cfg.Port, "Port to listen on")
	fs.StringVar(&port, "p", cfg.Port, "Port to listen on")
	fs.StringVar(&fontDir, "fonts", "", "Extra directory of TTF/OTF fonts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	reg, warnings, err := fonts.Load(append(cfg.Render.AllFontDirs(), fontDir)...)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Printf("Warning: %s", w)
	}

	var s3 sink.PutObjectAPI
	if cfg.AWS.S3BucketName != "" {
		client, err := sink.NewS3Client(context.Background(), s3Config(cfg))
		if err != nil {
			return err
		}
		s3 = client
	}

	srv := New(cfg, reg, s3, logger)
	addr := ":" + port
	logger.Printf("textstamp API → http://localhost%s", addr)

	if err := srv.Router().Run(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func s3Config(cfg *config.Config) sink.S3Config {
	return sink.S3Config{
		Region:         cfg.AWS.Region,
		Bucket:         cfg.AWS.S3BucketName,
		EndpointURL:    cfg.AWS.EndpointURL,
		ForcePathStyle: cfg.AWS.S3ForcePathStyle,
		Prefix:         cfg.AWS.S3Prefix,
	}
}

// statusFor maps input problems to 400 and everything else to 500.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, template.ErrInvalidInput),
		errors.Is(err, template.ErrUnready),
		errors.Is(err, template.ErrNotMeasured):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
