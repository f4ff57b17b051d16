// textstamp - Batch-render one image per JSON record.
//
// Usage:
//
//	textstamp render --project <path> [--data <path>] [--out <dir>] [options]
//	textstamp keys --data <path>
//	textstamp init [--dir <dir>]
//	textstamp bundle --project <path> -o <file.tsproj>
//	textstamp fonts [--fonts <dir>]
//	textstamp serve [--port 8080]
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/xob0t/textstamp/clients/server"
	"github.com/xob0t/textstamp/internal/config"
	"github.com/xob0t/textstamp/pkg/batch"
	"github.com/xob0t/textstamp/pkg/fonts"
	"github.com/xob0t/textstamp/pkg/generator"
	"github.com/xob0t/textstamp/pkg/sink"
	"github.com/xob0t/textstamp/pkg/template"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:], cfg)
	case "keys", "schema":
		err = runKeys(os.Args[2:])
	case "init":
		err = runInit(os.Args[2:])
	case "bundle":
		err = runBundle(os.Args[2:])
	case "fonts":
		err = runFonts(os.Args[2:], cfg)
	case "serve":
		err = server.RunServe(os.Args[2:], cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal(err)
	}
}

type renderFlags struct {
	project  string
	data     string
	out      string
	zipPath  string
	aviPath  string
	pdfPath  string
	toS3     bool
	format   string
	quality  int
	workers  int
	fontDir  string
	slide    time.Duration
	pdfDPI   float64
	envFile  string
	noWarn   bool
	progress bool
}

func runRender(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)

	var f renderFlags
	fs.StringVar(&f.project, "project", "", "Path to project.json or .tsproj bundle")
	fs.StringVar(&f.project, "p", "", "Path to project.json or .tsproj bundle")
	fs.StringVar(&f.data, "data", "", "Path to records JSON (default: the project's data file)")
	fs.StringVar(&f.data, "d", "", "Path to records JSON")
	fs.StringVar(&f.out, "out", "", "Output directory for image-N files (default: ./out)")
	fs.StringVar(&f.out, "o", "", "Output directory for image-N files")
	fs.StringVar(&f.zipPath, "zip", "", "Write all images into this ZIP archive instead")
	fs.StringVar(&f.aviPath, "avi", "", "Write an MJPEG slideshow instead")
	fs.StringVar(&f.pdfPath, "pdf", "", "Write a PDF, one page per record, instead")
	fs.BoolVar(&f.toS3, "s3", false, "Upload images to S3_BUCKET_NAME instead")
	fs.StringVar(&f.format, "format", "", "Image format: png, jpeg, bmp, tiff (default: project or TEXTSTAMP_FORMAT)")
	fs.IntVar(&f.quality, "quality", 0, "JPEG quality 1-100")
	fs.IntVar(&f.workers, "workers", 0, "Records rendered in parallel (default: TEXTSTAMP_WORKERS)")
	fs.StringVar(&f.fontDir, "fonts", "", "Extra directory of TTF/OTF fonts")
	fs.DurationVar(&f.slide, "slide", generator.DefaultFrameDuration, "Frame duration for --avi")
	fs.Float64Var(&f.pdfDPI, "dpi", sink.DefaultPDFDPI, "Pixel density for --pdf pages")
	fs.StringVar(&f.envFile, "env", "", "Load settings from this env file")
	fs.BoolVar(&f.noWarn, "quiet", false, "Suppress warnings")
	fs.BoolVar(&f.progress, "progress", false, "Print progress after every image")

	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}
	if f.project == "" {
		printUsage()
		return fmt.Errorf("project file is required (--project)")
	}
	if f.envFile != "" {
		loaded, err := config.LoadFile(f.envFile)
		if err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		cfg = loaded
	}

	warn := func(msg string) {
		if !f.noWarn {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
		}
	}
	logger := log.New(os.Stderr, "", 0)
	if f.noWarn {
		logger = log.New(io.Discard, "", 0)
	}

	// Load project.
	project, warnings, cleanup, err := template.LoadProject(f.project)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	defer cleanup()
	for _, w := range warnings {
		warn(w)
	}

	// Load records.
	dataPath := f.data
	if dataPath == "" {
		dataPath = project.Data
	}
	if dataPath == "" {
		return fmt.Errorf("no records: pass --data or set \"data\" in the project: %w", template.ErrUnready)
	}
	ds, err := template.LoadData(dataPath)
	if err != nil {
		return fmt.Errorf("load data: %w", err)
	}
	for _, w := range template.ValidateProject(project, ds) {
		warn(w)
	}

	bg, err := template.LoadBackground(project.Background)
	if err != nil {
		return fmt.Errorf("load background: %w", err)
	}

	// Fonts: config dirs, then the project's, then the flag's.
	dirs := append(cfg.Render.AllFontDirs(), project.Output.FontDir, f.fontDir)
	reg, fontWarnings, err := fonts.Load(dirs...)
	if err != nil {
		return err
	}
	for _, w := range fontWarnings {
		warn(w)
	}

	format := firstNonEmpty(f.format, project.Output.Format, cfg.Render.Format)
	quality := firstPositive(f.quality, project.Output.JPEGQuality, cfg.Render.JPEGQuality)

	job := batch.Job{
		Records:    ds.Records,
		Boxes:      project.Boxes,
		Background: bg,
		Format:     format,
		Quality:    quality,
	}
	// A rejected job must not leave an output file behind.
	if err := batch.Check(job); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, closeSink, describe, err := openSink(ctx, f, cfg, quality, project.Meta.Name)
	if err != nil {
		return err
	}

	opts := batch.Options{Workers: renderWorkers(f.workers, cfg), Registry: reg, Logger: logger}
	if f.progress {
		opts.Progress = func(done, total int) {
			fmt.Printf("  %d/%d\n", done, total)
		}
	}

	fmt.Printf("Rendering %d records: %s\n", len(ds.Records), firstNonEmpty(project.Meta.Name, filepath.Base(f.project)))
	report, runErr := batch.Run(ctx, job, out, opts)
	closeErr := closeSink()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}
	fmt.Printf("Done: %d images → %s\n", report.Delivered, describe)
	return nil
}

// openSink picks the destination named by the flags. The returned close
// function finishes archives and must be called after the run.
func openSink(ctx context.Context, f renderFlags, cfg *config.Config, quality int, title string) (sink.Sink, func() error, string, error) {
	noop := func() error { return nil }

	fileSink := func(path string, build func(io.Writer) (sink.Sink, io.Closer)) (sink.Sink, func() error, string, error) {
		file, err := os.Create(path)
		if err != nil {
			return nil, noop, "", fmt.Errorf("create %s: %w", path, err)
		}
		s, c := build(file)
		return s, func() error {
			if err := c.Close(); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		}, path, nil
	}

	switch {
	case f.zipPath != "":
		return fileSink(f.zipPath, func(w io.Writer) (sink.Sink, io.Closer) {
			z := sink.NewZip(w)
			return z, z
		})
	case f.aviPath != "":
		return fileSink(f.aviPath, func(w io.Writer) (sink.Sink, io.Closer) {
			a := sink.NewAVI(w, quality, f.slide)
			return a, a
		})
	case f.pdfPath != "":
		return fileSink(f.pdfPath, func(w io.Writer) (sink.Sink, io.Closer) {
			p := sink.NewPDF(w, f.pdfDPI, title)
			return p, p
		})
	case f.toS3:
		s3cfg := sink.S3Config{
			Region:         cfg.AWS.Region,
			Bucket:         cfg.AWS.S3BucketName,
			EndpointURL:    cfg.AWS.EndpointURL,
			ForcePathStyle: cfg.AWS.S3ForcePathStyle,
			Prefix:         cfg.AWS.S3Prefix,
		}
		client, err := sink.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, noop, "", err
		}
		s, err := sink.NewS3(client, s3cfg)
		if err != nil {
			return nil, noop, "", err
		}
		return s, noop, fmt.Sprintf("s3://%s/%s", s3cfg.Bucket, strings.TrimPrefix(s3cfg.Prefix+"/"+s.RunID(), "/")), nil
	default:
		dir := firstNonEmpty(f.out, "out")
		d, err := sink.NewDir(dir)
		if err != nil {
			return nil, noop, "", err
		}
		return d, noop, dir, nil
	}
}

func runKeys(args []string) error {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	var dataPath string
	fs.StringVar(&dataPath, "data", "", "Path to records JSON")
	fs.StringVar(&dataPath, "d", "", "Path to records JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if dataPath == "" && fs.NArg() > 0 {
		dataPath = fs.Arg(0)
	}
	if dataPath == "" {
		return fmt.Errorf("--data is required for keys command")
	}

	ds, err := template.LoadData(dataPath)
	if err != nil {
		return err
	}
	fmt.Print(template.FormatKeys(ds))
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var dir string
	fs.StringVar(&dir, "dir", ".", "Directory for the sample project")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	p, d := template.GetExampleJSON()
	projectOut := filepath.Join(dir, "project.json")
	dataOut := filepath.Join(dir, "data.json")
	bgOut := filepath.Join(dir, "background.png")

	if err := os.WriteFile(projectOut, []byte(p), 0644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	if err := os.WriteFile(dataOut, []byte(d), 0644); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	bg := generator.NewSolidImage(640, 440, color.RGBA{0xf4, 0xf1, 0xea, 0xff})
	if err := generator.WriteFile(bgOut, bg, 0); err != nil {
		return fmt.Errorf("write background: %w", err)
	}

	fmt.Printf("Created: %s, %s, %s\n", projectOut, dataOut, bgOut)
	fmt.Printf("Run: textstamp render --project %s --data %s\n", projectOut, dataOut)
	return nil
}

func runBundle(args []string) error {
	fs := flag.NewFlagSet("bundle", flag.ExitOnError)
	var projectPath, dataPath, output string
	fs.StringVar(&projectPath, "project", "", "Path to project.json")
	fs.StringVar(&dataPath, "data", "", "Records JSON to include")
	fs.StringVar(&output, "o", "project.tsproj", "Output bundle path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if projectPath == "" {
		return fmt.Errorf("--project is required for bundle command")
	}

	project, warnings, cleanup, err := template.LoadProject(projectPath)
	if err != nil {
		return err
	}
	defer cleanup()
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	if dataPath != "" {
		project.Data = dataPath
	}

	file, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := template.PackProject(file, project); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Printf("Created: %s\n", output)
	return nil
}

func runFonts(args []string, cfg *config.Config) error {
	fs := flag.NewFlagSet("fonts", flag.ExitOnError)
	var fontDir string
	fs.StringVar(&fontDir, "fonts", "", "Extra directory of TTF/OTF fonts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg, warnings, err := fonts.Load(append(cfg.Render.AllFontDirs(), fontDir)...)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	for _, name := range reg.Families() {
		fmt.Println(name)
	}
	return nil
}

// renderWorkers prefers --workers, then TEXTSTAMP_WORKERS from cfg, which
// may come from an --env file loaded after flag parsing.
func renderWorkers(flagValue int, cfg *config.Config) int {
	return max(firstPositive(flagValue, cfg.Render.Workers), 1)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`textstamp - Batch text stamping onto images (Pure Go)

USAGE:
    textstamp render --project <path> [--data <path>] [options]
    textstamp keys --data <path>
    textstamp init [--dir <dir>]
    textstamp bundle --project <path> [-o project.tsproj]
    textstamp fonts [--fonts <dir>]
    textstamp serve [--port 8080]

RENDER:
    -p, --project <path>   project.json or .tsproj bundle
    -d, --data <path>      Records JSON: one object or an array of objects
    -o, --out <dir>        Write image-1.png, image-2.png, ... here (default: out)
    --zip <file>           Write all images into one ZIP archive
    --avi <file>           Write an MJPEG AVI slideshow (--slide 2s per image)
    --pdf <file>           Write a PDF with one page per image (--dpi 96)
    --s3                   Upload to S3_BUCKET_NAME under S3_PREFIX/<run id>/
    --format <name>        png, jpeg, bmp or tiff
    --quality <1-100>      JPEG quality
    --workers <n>          Records rendered in parallel (output order is kept)
    --fonts <dir>          Extra TTF/OTF fonts
    --env <file>           Load settings from an env file
    --progress             Print progress
    --quiet                Suppress warnings

KEYS:
    textstamp keys --data <path>    List the fields a box can bind to

ENVIRONMENT:
    PORT, TEXTSTAMP_FONT_DIR, TEXTSTAMP_FONT_DIRS, TEXTSTAMP_WORKERS,
    TEXTSTAMP_FORMAT, TEXTSTAMP_JPEG_QUALITY, MAX_UPLOAD_MB, AWS_REGION,
    S3_BUCKET_NAME, AWS_ENDPOINT_URL, AWS_S3_FORCE_PATH_STYLE, S3_PREFIX
    (a .env file in the working directory is read first)

EXAMPLES:
    textstamp init --dir badges
    textstamp render -p badges/project.json -d badges/data.json -o out
    textstamp render -p badges.tsproj --zip badges.zip --workers 4
    textstamp render -p badges.tsproj --pdf badges.pdf
    textstamp keys --data badges/data.json
    textstamp serve --port 9000
`)
}
