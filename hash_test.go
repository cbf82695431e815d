package huntlay

import "testing"

func TestHashText_IgnoresSurroundingWhitespace(t *testing.T) {
	want := HashText("שלום")
	for _, in := range []string{"  שלום", "שלום  ", "\n\tשלום \n"} {
		if got := HashText(in); got != want {
			t.Errorf("HashText(%q) = %s, want %s", in, got, want)
		}
	}

	if HashText("Hello World") != "a591a6d40bf420404a011733cfb7b190d62c65bf0bcda32b57b277d9ad9f146e" {
		t.Error("HashText should be the hex SHA-256 of the trimmed text")
	}
}

func TestCacheKey_UsesBaseLanguages(t *testing.T) {
	if CacheKey("abc", "he_IL", "en-US") != "abc:he:en" {
		t.Errorf("unexpected key %q", CacheKey("abc", "he_IL", "en-US"))
	}
	if CacheKey("abc", "he", "en") == CacheKey("abc", "he", "fr") {
		t.Error("keys for different targets must differ")
	}
}

func TestPreserveWhitespace(t *testing.T) {
	tests := []struct {
		original   string
		translated string
		want       string
	}{
		{"שלום", "Hello", "Hello"},
		{"  שלום\n", "Hello", "  Hello\n"},
		{"\tחידה ", "  Riddle  ", "\tRiddle "},
		{"   ", "ignored", "   "},
		{"", "ignored", ""},
		{"\u00a0שלום\u00a0", "Hello", "\u00a0Hello\u00a0"},
		{"\u3000חידה\n", "\u00a0Riddle", "\u3000Riddle\n"},
		{"\u00a0\u2003", "ignored", "\u00a0\u2003"},
	}

	for _, tt := range tests {
		if got := PreserveWhitespace(tt.original, tt.translated); got != tt.want {
			t.Errorf("PreserveWhitespace(%q, %q) = %q, want %q", tt.original, tt.translated, got, tt.want)
		}
	}
}
