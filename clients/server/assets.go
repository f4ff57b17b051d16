// assets.go - In-memory store for uploaded background images and fonts.
package server

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

type asset struct {
	Name string
	Data []byte
	Mime string
}

type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset
}

func newAssetManager() *assetManager {
	return &assetManager{assets: make(map[string]*asset)}
}

func (am *assetManager) add(name string, data []byte, mimeType string) string {
	id := uuid.NewString()
	am.mu.Lock()
	am.assets[id] = &asset{Name: name, Data: data, Mime: mimeType}
	am.mu.Unlock()
	return id
}

func (am *assetManager) get(id string) (*asset, bool) {
	am.mu.RLock()
	a, ok := am.assets[id]
	am.mu.RUnlock()
	return a, ok
}

type assetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mime string `json:"mime"`
	Size int    `json:"size"`
}

func (am *assetManager) listAll() []assetInfo {
	am.mu.RLock()
	defer am.mu.RUnlock()
	result := make([]assetInfo, 0, len(am.assets))
	for id, a := range am.assets {
		result = append(result, assetInfo{ID: id, Name: a.Name, Mime: a.Mime, Size: len(a.Data)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (am *assetManager) remove(id string) bool {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.assets[id]; !ok {
		return false
	}
	delete(am.assets, id)
	return true
}
