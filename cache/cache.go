// Package cache provides translation caches for the batch translate service.
//
// Caches are an optimisation only: the overlay restores documents from its own
// snapshot and never depends on a cache entry being present.
package cache

import "github.com/ZaguanLabs/huntlay"

// TranslationCache is an alias to the main package interface.
type TranslationCache = huntlay.TranslationCache

// Enumerable is implemented by caches whose live entries can be listed for export.
type Enumerable interface {
	TranslationCache
	Entries() map[string]string
}
