package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-sensors/engine/model"
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// Asset is an imported static model with one material per mesh.
type Asset struct {
	Model     model.Model
	Materials []material.Material

	meshes []*model.Mesh
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	cache           map[string]Asset
	defaultMaterial material.Material
	importer        gltfImporter
}

// Loader imports static models from glTF/GLB files and caches them by path or name.
// Node transforms are baked into the meshes; skins, animations and textures are ignored.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the path is already cached the cached asset is returned.
	//
	// Parameters:
	//   - path: the file path to a .gltf or .glb file
	//
	// Returns:
	//   - Asset: the loaded asset
	//   - error: error if the format is unsupported or loading fails
	Load(path string) (Asset, error)

	// LoadReader imports a model from a stream and caches it by name.
	//
	// Parameters:
	//   - name: the cache key and model name
	//   - r: the reader providing model data
	//   - isGLB: true if the reader provides GLB binary data
	//
	// Returns:
	//   - Asset: the loaded asset
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader, isGLB bool) (Asset, error)

	// Get retrieves a cached asset by path or name.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - Asset: the cached asset
	//   - bool: true if the asset was found
	Get(name string) (Asset, bool)

	// Assets returns a copy of the cache.
	//
	// Returns:
	//   - map[string]Asset: all cached assets keyed by path or name
	Assets() map[string]Asset
}

var _ Loader = &loader{}

// NewLoader creates a new glTF Loader with the provided options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader instance
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		cache:           make(map[string]Asset),
		defaultMaterial: material.NewMaterial(material.WithName("default")),
	}
	for _, option := range options {
		option(l)
	}
	l.importer = newGLTFImporter(l.defaultMaterial)
	return l
}

func (l *loader) Load(path string) (Asset, error) {
	if cached, ok := l.Get(path); ok {
		return cached, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".gltf" && ext != ".glb" {
		return Asset{}, fmt.Errorf("loader: unsupported model format: %s", ext)
	}

	asset, err := l.importer.Import(path)
	if err != nil {
		return Asset{}, fmt.Errorf("loader: failed to load %s: %w", path, err)
	}
	l.store(path, asset)
	return asset, nil
}

func (l *loader) LoadReader(name string, r io.Reader, isGLB bool) (Asset, error) {
	if cached, ok := l.Get(name); ok {
		return cached, nil
	}

	asset, err := l.importer.ImportReader(name, r, isGLB, ".")
	if err != nil {
		return Asset{}, fmt.Errorf("loader: failed to load from reader %q: %w", name, err)
	}
	l.store(name, asset)
	return asset, nil
}

func (l *loader) Get(name string) (Asset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.cache[name]
	return a, ok
}

func (l *loader) Assets() map[string]Asset {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]Asset, len(l.cache))
	for k, v := range l.cache {
		result[k] = v
	}
	return result
}

func (l *loader) store(key string, asset Asset) {
	l.mu.Lock()
	l.cache[key] = asset
	l.mu.Unlock()
}
