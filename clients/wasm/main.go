//go:build js && wasm

// textstamp WASM - Client-side batch renderer.
// Compiled with: GOOS=js GOARCH=wasm go build -o textstamp.wasm ./clients/wasm/
package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/xob0t/textstamp/pkg/batch"
	"github.com/xob0t/textstamp/pkg/compositor"
	"github.com/xob0t/textstamp/pkg/fonts"
	"github.com/xob0t/textstamp/pkg/sink"
	"github.com/xob0t/textstamp/pkg/template"
)

// In-memory asset store (the server keeps uploads the same way).
var (
	assetsMu sync.RWMutex
	assets   = make(map[string][]byte)

	registry *fonts.Registry
)

func main() {
	var err error
	registry, err = fonts.NewRegistry()
	if err != nil {
		fmt.Println("textstamp WASM: font registry:", err)
		return
	}
	fmt.Println("textstamp WASM loaded")

	// Register JS-callable functions.
	js.Global().Set("goRenderBatch", js.FuncOf(renderBatch))
	js.Global().Set("goPreview", js.FuncOf(preview))
	js.Global().Set("goFieldKeys", js.FuncOf(fieldKeys))
	js.Global().Set("goRegisterAsset", js.FuncOf(registerAsset))
	js.Global().Set("goRemoveAsset", js.FuncOf(removeAsset))
	js.Global().Set("goRegisterFont", js.FuncOf(registerFont))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

func errorValue(format string, args ...any) js.Value {
	return js.ValueOf("error: " + fmt.Sprintf(format, args...))
}

func resolveAsset(id string) []byte {
	assetsMu.RLock()
	defer assetsMu.RUnlock()
	return assets[id]
}

// goRegisterAsset(id, base64Data) - store an image in Go memory so a
// project's background source can name it.
func registerAsset(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return errorValue("need id, base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return errorValue("invalid base64: %v", err)
	}
	assetsMu.Lock()
	assets[args[0].String()] = data
	assetsMu.Unlock()
	return js.ValueOf("ok")
}

// goRemoveAsset(id) - drop an asset from Go memory.
func removeAsset(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue("need id")
	}
	assetsMu.Lock()
	delete(assets, args[0].String())
	assetsMu.Unlock()
	return js.ValueOf("ok")
}

// goRegisterFont(base64Data) - add a TTF/OTF font; returns its family name.
func registerFont(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue("need base64Data")
	}
	data, err := base64.StdEncoding.DecodeString(args[0].String())
	if err != nil {
		return errorValue("invalid base64: %v", err)
	}
	family, err := registry.Add(data)
	if err != nil {
		return errorValue("%v", err)
	}
	return js.ValueOf(family)
}

// goFieldKeys(dataJSON) - keys of the first record, in document order.
func fieldKeys(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorValue("need dataJSON")
	}
	ds, err := template.ParseData([]byte(args[0].String()))
	if err != nil {
		return errorValue("%v", err)
	}
	keys := make([]any, len(ds.Keys))
	for i, k := range ds.Keys {
		keys[i] = k
	}
	return js.ValueOf(keys)
}

// buildJob decodes the three render inputs. imageBase64 may be empty when
// the project's background source is a registered asset ID.
func buildJob(projectJSON, dataJSON, imageBase64 string) (batch.Job, error) {
	project, _, err := template.ParseProject([]byte(projectJSON), "")
	if err != nil {
		return batch.Job{}, err
	}
	ds, err := template.ParseData([]byte(dataJSON))
	if err != nil {
		return batch.Job{}, err
	}

	var img []byte
	if imageBase64 != "" {
		if img, err = base64.StdEncoding.DecodeString(imageBase64); err != nil {
			return batch.Job{}, fmt.Errorf("invalid image base64: %v: %w", err, template.ErrInvalidInput)
		}
	} else {
		img = resolveAsset(project.Background.Source)
	}
	if len(img) == 0 {
		return batch.Job{}, fmt.Errorf("no background image: %w", template.ErrUnready)
	}
	bg, err := template.DecodeBackground(img, project.Background)
	if err != nil {
		return batch.Job{}, err
	}

	return batch.Job{
		Records:    ds.Records,
		Boxes:      project.Boxes,
		Background: bg,
		Format:     project.Output.Format,
		Quality:    project.Output.JPEGQuality,
	}, nil
}

func run(job batch.Job) ([]*compositor.Artifact, error) {
	var out sink.Collect
	if _, err := batch.Run(context.Background(), job, &out, batch.Options{Registry: registry}); err != nil {
		return nil, err
	}
	return out.Artifacts, nil
}

// goRenderBatch(projectJSON, dataJSON, imageBase64) - render every record;
// returns [{name, data}] with base64 image data, in record order.
func renderBatch(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return errorValue("need projectJSON, dataJSON, imageBase64")
	}
	job, err := buildJob(args[0].String(), args[1].String(), args[2].String())
	if err != nil {
		return errorValue("%v", err)
	}
	arts, err := run(job)
	if err != nil {
		return errorValue("render: %v", err)
	}

	result := make([]any, len(arts))
	for i, a := range arts {
		result[i] = map[string]any{
			"name": a.Name,
			"data": base64.StdEncoding.EncodeToString(a.Data),
		}
	}
	return js.ValueOf(result)
}

// goPreview(projectJSON, dataJSON, imageBase64, record) - render one
// record (1-based); returns {name, data} named after that record.
func preview(this js.Value, args []js.Value) any {
	if len(args) < 4 {
		return errorValue("need projectJSON, dataJSON, imageBase64, record")
	}
	job, err := buildJob(args[0].String(), args[1].String(), args[2].String())
	if err != nil {
		return errorValue("%v", err)
	}
	n := args[3].Int()
	if n < 1 || n > len(job.Records) {
		return errorValue("record must be between 1 and %d", len(job.Records))
	}
	job.Records = job.Records[n-1 : n]
	job.FirstIndex = n

	arts, err := run(job)
	if err != nil {
		return errorValue("render: %v", err)
	}
	return js.ValueOf(map[string]any{
		"name": arts[0].Name,
		"data": base64.StdEncoding.EncodeToString(arts[0].Data),
	})
}
