// loader.go - Load JSON records, project.json files and .tsproj (ZIP) bundles.
package template

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Dataset is a parsed JSON records file.
type Dataset struct {
	Records []Record
	Keys    []string // keys of the first record, in document order
}

// ParseData parses a JSON document holding either one object or an array of
// objects. A single object becomes a one-element dataset.
func ParseData(data []byte) (*Dataset, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("parse data: empty document: %w", ErrInvalidInput)
	}

	var raws []json.RawMessage
	switch trimmed[0] {
	case '{':
		raws = []json.RawMessage{trimmed}
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("parse data: %v: %w", err, ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("parse data: expected object or array: %w", ErrInvalidInput)
	}

	ds := &Dataset{Records: make([]Record, 0, len(raws))}
	for i, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			return nil, fmt.Errorf("parse data: element %d is not an object: %w", i, ErrInvalidInput)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("parse data: element %d: %v: %w", i, err, ErrInvalidInput)
		}
		ds.Records = append(ds.Records, rec)
	}

	if len(raws) > 0 {
		keys, err := objectKeys(raws[0])
		if err != nil {
			return nil, fmt.Errorf("parse data: %v: %w", err, ErrInvalidInput)
		}
		ds.Keys = keys
	}
	return ds, nil
}

// LoadData reads and parses a records file.
func LoadData(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseData(data)
}

// objectKeys lists the top-level keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // '{'
		return nil, err
	}
	var keys []string
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

// ParseProject decodes project.json. Relative asset paths are resolved
// against baseDir. Returned warnings describe defaults that were applied.
func ParseProject(data []byte, baseDir string) (*Project, []string, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, nil, fmt.Errorf("parse project: %v: %w", err, ErrInvalidInput)
	}

	var warnings []string
	for i := range p.Boxes {
		if p.Boxes[i].ID == "" {
			p.Boxes[i].ID = fmt.Sprintf("box-%d", i+1)
		}
		if w := applyBoxDefaults(&p.Boxes[i]); w != "" {
			warnings = append(warnings, w)
		}
		if err := p.Boxes[i].Validate(); err != nil {
			return nil, warnings, err
		}
	}
	if p.Output.Format == "" {
		p.Output.Format = "png"
	}

	resolveAssetPaths(&p, baseDir)
	return &p, warnings, nil
}

// LoadProject opens a standalone project.json or a .tsproj/.zip bundle.
// Bundles are extracted to a temp directory; the returned cleanup function
// removes it and is safe to call for plain JSON projects as well.
func LoadProject(path string) (*Project, []string, func(), error) {
	noop := func() {}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsproj", ".zip":
		return loadBundle(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("read %s: %w", path, err)
		}
		p, warnings, err := ParseProject(data, filepath.Dir(path))
		return p, warnings, noop, err
	}
}

func loadBundle(path string) (*Project, []string, func(), error) {
	noop := func() {}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, noop, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	tmpDir, err := os.MkdirTemp("", "textstamp-*")
	if err != nil {
		return nil, nil, noop, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	if err := ExtractZip(&r.Reader, tmpDir); err != nil {
		cleanup()
		return nil, nil, noop, fmt.Errorf("extract %s: %w", path, err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "project.json"))
	if err != nil {
		cleanup()
		return nil, nil, noop, fmt.Errorf("read project.json: %w", err)
	}

	p, warnings, err := ParseProject(data, tmpDir)
	if err != nil {
		cleanup()
		return nil, warnings, noop, err
	}

	// A bundled data.json is picked up when the project does not name one.
	if p.Data == "" {
		if candidate := filepath.Join(tmpDir, "data.json"); fileExists(candidate) {
			p.Data = candidate
		}
	}
	return p, warnings, cleanup, nil
}

// resolveAssetPaths makes all relative asset paths absolute using baseDir.
func resolveAssetPaths(p *Project, baseDir string) {
	resolve := func(s string) string {
		if s == "" || filepath.IsAbs(s) || baseDir == "" {
			return s
		}
		return filepath.Join(baseDir, s)
	}

	p.Background.Source = resolve(p.Background.Source)
	p.Output.FontDir = resolve(p.Output.FontDir)
	p.Data = resolve(p.Data)
}

// ExtractZip extracts all files from a zip reader into destDir.
func ExtractZip(r *zip.Reader, destDir string) error {
	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)

		// Guard against zip slip.
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal path in zip: %s: %w", f.Name, ErrInvalidInput)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		if err := extractFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

// extractFile writes a single zip entry to disk.
func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
