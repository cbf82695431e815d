package provider

import (
	"context"
	"sync"
)

// MockProvider is a provider with a fixed dictionary, for tests and demos.
type MockProvider struct {
	mu           sync.Mutex
	translations map[string]string
	calls        int
	last         *TranslateRequest
}

// NewMockProvider creates a mock provider knowing a few Hebrew game strings.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		translations: map[string]string{
			"שלום":        "Hello",
			"חידה":        "Riddle",
			"חפשו אוצר":   "Look for the treasure",
			"הקלידו מקום": "Type a place",
			"בדיקה":       "Check",
			"כל הכבוד!":   "Well done!",
			"נסו שוב":     "Try again",
		},
	}
}

// Set adds or replaces a translation.
func (m *MockProvider) Set(source, translation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translations[source] = translation
}

// Translate returns known translations and "[text]" for anything else.
func (m *MockProvider) Translate(_ context.Context, req TranslateRequest) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	r := req
	m.last = &r

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if tr, ok := m.translations[text]; ok {
			results[i] = tr
		} else {
			results[i] = "[" + text + "]"
		}
	}
	return results, nil
}

// CallCount returns the number of Translate calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the last request received, or nil.
func (m *MockProvider) LastRequest() *TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Reset clears the call statistics.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.last = nil
}

var _ AIProvider = (*MockProvider)(nil)
