package huntlay

import (
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"translation", &TranslationError{Message: "translation failed", Cause: cause}, "translation failed: boom"},
		{"translation without cause", &TranslationError{Message: "simple error"}, "simple error"},
		{"provider", &ProviderError{Message: "rate limited", Retryable: true}, "provider error: rate limited"},
		{"provider with cause", &ProviderError{Message: "call failed", Cause: cause}, "provider error: call failed: boom"},
		{"cache", &CacheError{Message: "connection failed"}, "cache error: connection failed"},
		{"processor", &ProcessorError{Message: "parse failed", ContentType: "html"}, "processor error (html): parse failed"},
		{"response", &ResponseError{StatusCode: 400, Message: "texts must be a list"}, "translate endpoint returned status 400: texts must be a list"},
		{"count mismatch", &CountMismatchError{Expected: 5, Got: 3}, "translation count mismatch: expected 5, got 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")

	wrapped := []error{
		&TranslationError{Message: "a", Cause: cause},
		&ProviderError{Message: "b", Cause: cause},
		&CacheError{Message: "c", Cause: cause},
		&ProcessorError{Message: "d", Cause: cause},
		&ResponseError{StatusCode: 502, Cause: cause},
	}
	for _, err := range wrapped {
		if !errors.Is(err, cause) {
			t.Errorf("%T should unwrap to its cause", err)
		}
	}
}
