package loader

import (
	"github.com/Carmen-Shannon/oxy-sensors/engine/renderer/material"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithDefaultMaterial sets the material assigned to primitives that reference none.
//
// Parameters:
//   - m: the fallback material
//
// Returns:
//   - LoaderBuilderOption: a function that applies the material option to a loader
func WithDefaultMaterial(m material.Material) LoaderBuilderOption {
	return func(l *loader) {
		if m != nil {
			l.defaultMaterial = m
		}
	}
}

// WithAsset pre-populates the cache with an asset.
//
// Parameters:
//   - key: the cache key for the asset
//   - asset: the asset to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the asset option to a loader
func WithAsset(key string, asset Asset) LoaderBuilderOption {
	return func(l *loader) {
		l.cache[key] = asset
	}
}
