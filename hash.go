package huntlay

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// CacheKey builds the cache key for a text hash translated from sourceLang to
// targetLang. Only base language subtags are used, so "en_US" and "en" share
// entries.
func CacheKey(hash, sourceLang, targetLang string) string {
	return hash + ":" + BaseOf(sourceLang) + ":" + BaseOf(targetLang)
}

// PreserveWhitespace re-applies the leading and trailing whitespace of
// original around translated. Whitespace is what strings.TrimSpace removes.
func PreserveWhitespace(original, translated string) string {
	if strings.TrimSpace(original) == "" {
		return original
	}
	leading := original[:len(original)-len(strings.TrimLeftFunc(original, unicode.IsSpace))]
	trailing := original[len(strings.TrimRightFunc(original, unicode.IsSpace)):]
	return leading + strings.TrimSpace(translated) + trailing
}
