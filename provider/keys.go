package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// GoogleKeys are the Google API keys of a deployment.
type GoogleKeys struct {
	Maps        string
	Translation string
}

// LoadGoogleKeys reads a keys file holding either a JSON object
// ({"maps": "...", "translation": "..."}) or KEY=VALUE lines. A missing file
// yields empty keys.
func LoadGoogleKeys(path string) (GoogleKeys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return GoogleKeys{}, nil
		}
		return GoogleKeys{}, fmt.Errorf("read keys file: %w", err)
	}
	return ParseGoogleKeys(string(data)), nil
}

// ParseGoogleKeys parses the contents of a keys file.
func ParseGoogleKeys(raw string) GoogleKeys {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return GoogleKeys{}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return GoogleKeys{
			Maps:        firstString(obj, "maps", "maps_key", "MAPS_KEY"),
			Translation: firstString(obj, "translation", "translation_key", "TRANSLATION_KEY"),
		}
	}

	var keys GoogleKeys
	for _, line := range strings.Split(raw, "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "maps", "maps_key":
			keys.Maps = v
		case "translation", "translation_key":
			keys.Translation = v
		}
	}
	return keys
}

func firstString(obj map[string]any, names ...string) string {
	for _, n := range names {
		switch v := obj[n].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}
