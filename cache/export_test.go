package cache

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportImport_RoundTrip(t *testing.T) {
	src := NewInMemoryCache(0)
	_ = src.Set("b", "2")
	_ = src.Set("a", "1")

	var buf bytes.Buffer
	if err := Export(&buf, src, map[string]string{"target": "en"}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.Version != SnapshotVersion {
		t.Errorf("Version = %q", snap.Version)
	}
	if len(snap.Entries) != 2 || snap.Entries[0].Key != "a" {
		t.Errorf("entries not sorted: %+v", snap.Entries)
	}

	dst := openTestSQLite(t, 0)
	res, err := Import(bytes.NewReader(buf.Bytes()), dst)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 2 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.Metadata["target"] != "en" {
		t.Errorf("metadata lost: %v", res.Metadata)
	}
	if v, ok := dst.Get("b"); !ok || v != "2" {
		t.Errorf("dst Get(b) = %q, %v", v, ok)
	}
}

func TestImport_InvalidJSON(t *testing.T) {
	if _, err := Import(strings.NewReader("{nope"), NewInMemoryCache(0)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestFileSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")

	res, err := ImportFromFile(path, NewInMemoryCache(0))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if res.Imported != 0 {
		t.Errorf("Imported = %d", res.Imported)
	}

	src := NewInMemoryCache(0)
	_ = src.Set("k", "v")
	if err := ExportToFile(path, src, nil); err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}

	dst := NewInMemoryCache(0)
	if _, err := ImportFromFile(path, dst); err != nil {
		t.Fatalf("ImportFromFile: %v", err)
	}
	if v, _ := dst.Get("k"); v != "v" {
		t.Errorf("Get = %q", v)
	}
}
