// bundle.go - Write .tsproj bundles: project.json plus its assets in one ZIP.
package template

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Bundle entry names.
const (
	BundleProjectFile = "project.json"
	BundleDataFile    = "data.json"
	BundleAssetDir    = "assets"
	BundleFontDir     = "fonts"
)

// WriteBundle writes p as project.json followed by files (archive path to
// content) in name order. Asset paths inside p must already be archive paths.
func WriteBundle(w io.Writer, p *Project, files map[string][]byte) error {
	zw := zip.NewWriter(w)

	pj, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project: %w", err)
	}
	if err := writeEntry(zw, BundleProjectFile, pj); err != nil {
		return err
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeEntry(zw, name, files[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("bundle %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("bundle %s: %w", name, err)
	}
	return nil
}

// PackProject bundles a project loaded from disk: the background image, the
// records file and every font in the font directory are copied in and the
// project's paths are rewritten to point inside the archive.
func PackProject(w io.Writer, p *Project) error {
	out := *p
	out.Boxes = append([]TextBox(nil), p.Boxes...)
	files := make(map[string][]byte)

	if p.Background.Source != "" {
		data, err := os.ReadFile(p.Background.Source)
		if err != nil {
			return fmt.Errorf("read background: %w", err)
		}
		name := BundleAssetDir + "/background" + strings.ToLower(filepath.Ext(p.Background.Source))
		files[name] = data
		out.Background.Source = name
	}

	if p.Data != "" {
		data, err := os.ReadFile(p.Data)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}
		files[BundleDataFile] = data
		out.Data = BundleDataFile
	}

	if p.Output.FontDir != "" {
		entries, err := os.ReadDir(p.Output.FontDir)
		if err != nil {
			return fmt.Errorf("read font dir: %w", err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".ttf" && ext != ".otf") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(p.Output.FontDir, e.Name()))
			if err != nil {
				return fmt.Errorf("read font: %w", err)
			}
			files[BundleFontDir+"/"+e.Name()] = data
		}
		out.Output.FontDir = BundleFontDir
	}

	return WriteBundle(w, &out, files)
}
