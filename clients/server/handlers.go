// handlers.go - Render, preview, keys, export and asset endpoints.
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/xob0t/textstamp/pkg/batch"
	"github.com/xob0t/textstamp/pkg/generator"
	"github.com/xob0t/textstamp/pkg/sink"
	"github.com/xob0t/textstamp/pkg/template"
)

// ── Request decoding ──

type renderInput struct {
	project  *template.Project
	data     *template.Dataset
	image    []byte
	job      batch.Job
	warnings []string
}

// formBytes returns the uploaded file for name, or the plain form value of
// the same name. Absent fields return nil.
func formBytes(c *gin.Context, name string) ([]byte, error) {
	if fh, err := c.FormFile(name); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}
	if v, ok := c.GetPostForm(name); ok {
		return []byte(v), nil
	}
	return nil, nil
}

// readInput decodes the project, records and background of a render-style
// request. The background is the "image" field, or an uploaded asset whose
// ID is the project's background source.
func (s *Server) readInput(c *gin.Context) (*renderInput, error) {
	projectJSON, err := formBytes(c, "project")
	if err != nil {
		return nil, err
	}
	if len(projectJSON) == 0 {
		return nil, fmt.Errorf("missing project field: %w", template.ErrInvalidInput)
	}
	project, warnings, err := template.ParseProject(projectJSON, "")
	if err != nil {
		return nil, err
	}

	dataJSON, err := formBytes(c, "data")
	if err != nil {
		return nil, err
	}
	if len(dataJSON) == 0 {
		return nil, fmt.Errorf("missing data field: %w", template.ErrUnready)
	}
	ds, err := template.ParseData(dataJSON)
	if err != nil {
		return nil, err
	}

	img, err := formBytes(c, "image")
	if err != nil {
		return nil, err
	}
	if len(img) == 0 {
		if a, ok := s.assets.get(project.Background.Source); ok {
			img = a.Data
		}
	}
	if len(img) == 0 {
		return nil, fmt.Errorf("no background image uploaded: %w", template.ErrUnready)
	}
	bg, err := template.DecodeBackground(img, project.Background)
	if err != nil {
		return nil, err
	}

	if project.Output.FontDir != "" {
		warnings = append(warnings, "fontDir is ignored by the server; upload fonts to /api/upload/font")
	}
	warnings = append(warnings, template.ValidateProject(project, ds)...)

	quality := project.Output.JPEGQuality
	if quality <= 0 {
		quality = s.cfg.Render.JPEGQuality
	}
	return &renderInput{
		project:  project,
		data:     ds,
		image:    img,
		warnings: warnings,
		job: batch.Job{
			Records:    ds.Records,
			Boxes:      project.Boxes,
			Background: bg,
			Format:     c.DefaultPostForm("format", project.Output.Format),
			Quality:    quality,
		},
	}, nil
}

func (s *Server) batchOptions() batch.Options {
	return batch.Options{Workers: s.cfg.Render.Workers, Registry: s.fonts, Logger: s.logger}
}

func setWarnings(c *gin.Context, warnings []string) {
	if len(warnings) > 0 {
		c.Header("X-Textstamp-Warnings", strings.Join(warnings, "; "))
	}
}

// ── Health ──

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ── Render ──

// handleRender renders every record. ?output= selects zip (default), pdf,
// avi or s3.
func (s *Server) handleRender(c *gin.Context) {
	in, err := s.readInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := batch.Check(in.job); err != nil {
		respondError(c, err)
		return
	}

	output := c.DefaultQuery("output", "zip")
	if output == "s3" {
		s.renderToS3(c, in)
		return
	}

	var (
		buf         bytes.Buffer
		out         sink.Sink
		closer      io.Closer
		contentType string
		filename    string
	)
	switch output {
	case "zip":
		z := sink.NewZip(&buf)
		out, closer, contentType, filename = z, z, "application/zip", "images.zip"
	case "pdf":
		p := sink.NewPDF(&buf, 0, in.project.Meta.Name)
		out, closer, contentType, filename = p, p, "application/pdf", "images.pdf"
	case "avi":
		a := sink.NewAVI(&buf, in.job.Quality, generator.DefaultFrameDuration)
		out, closer, contentType, filename = a, a, "video/avi", "images.avi"
	default:
		respondError(c, fmt.Errorf("unknown output %q: use zip, pdf, avi or s3: %w", output, template.ErrInvalidInput))
		return
	}

	report, err := batch.Run(c.Request.Context(), in.job, out, s.batchOptions())
	closeErr := closer.Close()
	if err != nil {
		respondError(c, err)
		return
	}
	if closeErr != nil {
		respondError(c, closeErr)
		return
	}

	setWarnings(c, append(in.warnings, report.Warnings...))
	c.Header("X-Textstamp-Delivered", strconv.Itoa(report.Delivered))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) renderToS3(c *gin.Context, in *renderInput) {
	if s.s3 == nil {
		respondError(c, fmt.Errorf("S3 output is not configured (S3_BUCKET_NAME): %w", template.ErrUnready))
		return
	}
	up, err := sink.NewS3(s.s3, s3Config(s.cfg))
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := batch.Run(c.Request.Context(), in.job, up, s.batchOptions())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runId":     up.RunID(),
		"bucket":    s.cfg.AWS.S3BucketName,
		"keys":      up.Keys(),
		"delivered": report.Delivered,
		"warnings":  append(in.warnings, report.Warnings...),
	})
}

// ── Preview ──

// handlePreview renders one record (form field "record", 1-based) as PNG,
// optionally after applying box edits ("changes": {"box-id": {...}}) and
// downscaling to "maxWidth".
func (s *Server) handlePreview(c *gin.Context) {
	in, err := s.readInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	n, err := strconv.Atoi(c.DefaultPostForm("record", "1"))
	if err != nil || n < 1 || n > len(in.job.Records) {
		respondError(c, fmt.Errorf("record must be between 1 and %d: %w", len(in.job.Records), template.ErrInvalidInput))
		return
	}
	in.job.Records = in.job.Records[n-1 : n]
	in.job.FirstIndex = n
	in.job.Format = generator.FormatPNG

	if raw := c.PostForm("changes"); raw != "" {
		var changes map[string]template.BoxChange
		if err := json.Unmarshal([]byte(raw), &changes); err != nil {
			respondError(c, fmt.Errorf("parse changes: %v: %w", err, template.ErrInvalidInput))
			return
		}
		for id, change := range changes {
			in.job.Boxes = template.UpdateBoxes(in.job.Boxes, id, change)
		}
	}

	var got sink.Collect
	report, err := batch.Run(c.Request.Context(), in.job, &got, s.batchOptions())
	if err != nil {
		respondError(c, err)
		return
	}
	art := got.Artifacts[0]
	data := art.Data

	if maxWidth, _ := strconv.Atoi(c.PostForm("maxWidth")); maxWidth > 0 && art.Image.Bounds().Dx() > maxWidth {
		small := imaging.Resize(art.Image, maxWidth, 0, imaging.Lanczos)
		var buf bytes.Buffer
		if err := generator.Encode(&buf, small, generator.FormatPNG, 0); err != nil {
			respondError(c, err)
			return
		}
		data = buf.Bytes()
	}

	setWarnings(c, append(in.warnings, report.Warnings...))
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, art.Name))
	c.Data(http.StatusOK, "image/png", data)
}

// ── Keys ──

// handleKeys lists the fields of the first record. The records come from a
// "data" form field or a raw JSON body.
func (s *Server) handleKeys(c *gin.Context) {
	data, err := formBytes(c, "data")
	if err != nil {
		respondError(c, err)
		return
	}
	if len(data) == 0 {
		if data, err = io.ReadAll(c.Request.Body); err != nil {
			respondError(c, err)
			return
		}
	}
	ds, err := template.ParseData(data)
	if err != nil {
		respondError(c, err)
		return
	}

	sample := make(map[string]string, len(ds.Keys))
	if len(ds.Records) > 0 {
		for _, k := range ds.Keys {
			sample[k] = template.Stringify(ds.Records[0][k])
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"keys":    ds.Keys,
		"records": len(ds.Records),
		"sample":  sample,
	})
}

// ── Export ──

// handleExportBundle packs project, records and background into a .tsproj.
func (s *Server) handleExportBundle(c *gin.Context) {
	in, err := s.readInput(c)
	if err != nil {
		respondError(c, err)
		return
	}

	project := *in.project
	files := make(map[string][]byte)
	name := template.BundleAssetDir + "/background" + extensionForMime(http.DetectContentType(in.image))
	files[name] = in.image
	project.Background.Source = name

	data, err := json.MarshalIndent(in.data.Records, "", "  ")
	if err != nil {
		respondError(c, err)
		return
	}
	files[template.BundleDataFile] = data
	project.Data = template.BundleDataFile

	var buf bytes.Buffer
	if err := template.WriteBundle(&buf, &project, files); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="project.tsproj"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// ── Upload ──

func readUpload(c *gin.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("no file uploaded: %w", template.ErrInvalidInput)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	return data, fh.Filename, err
}

func (s *Server) handleUploadImage(c *gin.Context) {
	data, filename, err := readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	img, err := template.DecodeImage(bytes.NewReader(data))
	if err != nil {
		respondError(c, err)
		return
	}
	id := s.assets.add(filename, data, http.DetectContentType(data))
	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"name":   filename,
		"url":    "/api/assets/" + id,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	})
}

func (s *Server) handleUploadFont(c *gin.Context) {
	data, filename, err := readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	family, err := s.fonts.Add(data)
	if err != nil {
		respondError(c, fmt.Errorf("%v: %w", err, template.ErrInvalidInput))
		return
	}
	id := s.assets.add(filename, data, "font/ttf")
	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"name":   filename,
		"family": family,
		"url":    "/api/assets/" + id,
	})
}

func (s *Server) handleListFonts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"families": s.fonts.Families()})
}

// ── Asset serving ──

func (s *Server) handleGetAsset(c *gin.Context) {
	a, ok := s.assets.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	c.Data(http.StatusOK, a.Mime, a.Data)
}

func (s *Server) handleListAssets(c *gin.Context) {
	c.JSON(http.StatusOK, s.assets.listAll())
}

func (s *Server) handleDeleteAsset(c *gin.Context) {
	id := c.Param("id")
	if !s.assets.remove(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

// ── Helpers ──

func extensionForMime(m string) string {
	switch {
	case strings.Contains(m, "png"):
		return ".png"
	case strings.Contains(m, "jpeg"), strings.Contains(m, "jpg"):
		return ".jpg"
	case strings.Contains(m, "gif"):
		return ".gif"
	case strings.Contains(m, "bmp"):
		return ".bmp"
	case strings.Contains(m, "webp"):
		return ".webp"
	default:
		return ""
	}
}
