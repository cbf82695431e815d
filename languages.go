package huntlay

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	// BaseLang is the language the game content is authored in. The overlay
	// is never applied while it is active.
	BaseLang = "he"

	// DefaultTargetLang is the language the overlay translates into.
	DefaultTargetLang = "en"

	// PreferenceKey is the storage key of the last chosen language.
	PreferenceKey = "th_lang_pref"
)

// LanguageNames maps short language codes to human-readable names for AI prompts.
var LanguageNames = map[string]string{
	"ar": "Arabic",
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"he": "Hebrew",
	"it": "Italian",
	"ja": "Japanese",
	"pt": "Portuguese",
	"ru": "Russian",
	"zh": "Chinese (Simplified)",
}

// BaseOf returns the base language subtag of a code ("en" for "en_US",
// "en-GB" or "EN"). Unparseable codes are lowercased and cut at the first
// separator.
func BaseOf(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	if tag, err := language.Parse(ToHTMLLang(lang)); err == nil {
		if base, conf := tag.Base(); conf != language.No {
			return base.String()
		}
	}
	lang = strings.ToLower(NormalizeLocale(lang))
	if i := strings.Index(lang, "_"); i >= 0 {
		return lang[:i]
	}
	return lang
}

// SameLanguage reports whether a and b share a base language.
func SameLanguage(a, b string) bool {
	return BaseOf(a) == BaseOf(b)
}

// GetLanguageName returns the human-readable name for a language code.
// Falls back to the code itself if not found.
func GetLanguageName(langCode string) string {
	if name, ok := LanguageNames[BaseOf(langCode)]; ok {
		return name
	}
	return langCode
}

// Direction returns the document direction while lang is active: "rtl" when
// lang is the base language, "ltr" for any overlay language.
func Direction(lang, baseLang string) string {
	if SameLanguage(lang, baseLang) {
		return "rtl"
	}
	return "ltr"
}

// NormalizeLocale converts a language code to the standard format (e.g., "es-ES" → "es_ES").
func NormalizeLocale(langCode string) string {
	return strings.ReplaceAll(langCode, "-", "_")
}

// ToHTMLLang converts a locale code to HTML lang attribute format (e.g., "es_ES" → "es-ES").
func ToHTMLLang(langCode string) string {
	return strings.ReplaceAll(langCode, "_", "-")
}
