package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// SnapshotVersion is the format version written by Export.
const SnapshotVersion = "1.0"

// Snapshot is the JSON structure for cache export and import.
type Snapshot struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Entries    []SnapshotEntry   `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SnapshotEntry is a single cache entry.
type SnapshotEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ImportResult contains statistics about an import.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Failed   int
}

// Export writes the live entries of c as JSON, sorted by key.
func Export(w io.Writer, c Enumerable, metadata map[string]string) error {
	data := c.Entries()
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    make([]SnapshotEntry, 0, len(data)),
		Metadata:   metadata,
	}
	for k, v := range data {
		snap.Entries = append(snap.Entries, SnapshotEntry{Key: k, Value: v})
	}
	sort.Slice(snap.Entries, func(i, j int) bool { return snap.Entries[i].Key < snap.Entries[j].Key })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// ExportToFile writes the snapshot to path, replacing it atomically.
func ExportToFile(path string, c Enumerable, metadata map[string]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp) // #nosec G304 - path is operator-provided
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := Export(f, c, metadata); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	return os.Rename(tmp, path)
}

// Import loads snapshot entries from r into c.
func Import(r io.Reader, c TranslationCache) (*ImportResult, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	result := &ImportResult{Version: snap.Version, Metadata: snap.Metadata}
	for _, e := range snap.Entries {
		if err := c.Set(e.Key, e.Value); err != nil {
			result.Failed++
			continue
		}
		result.Imported++
	}
	return result, nil
}

// ImportFromFile loads a snapshot file into c. A missing file is not an error.
func ImportFromFile(path string, c TranslationCache) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is operator-provided
	if os.IsNotExist(err) {
		return &ImportResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return Import(f, c)
}
