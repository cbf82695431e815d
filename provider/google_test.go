package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/ZaguanLabs/huntlay"
)

type googleStub struct {
	mu       sync.Mutex
	requests []url.Values
	// drop leaves the last n entries out of every response
	drop   int
	status int
}

func (s *googleStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, r.PostForm)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
		fmt.Fprintf(w, `{"error": {"code": %d, "message": "API key not valid"}}`, s.status)
		return
	}

	qs := r.PostForm["q"]
	var entries []string
	for i, q := range qs {
		if i >= len(qs)-s.drop {
			break
		}
		entries = append(entries, fmt.Sprintf(`{"translatedText": %q}`, "EN:"+q+" &amp; co"))
	}
	io.WriteString(w, `{"data": {"translations": [`+strings.Join(entries, ",")+`]}}`)
}

func TestGoogleProvider_Translate(t *testing.T) {
	stub := &googleStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := NewGoogleProvider(GoogleConfig{APIKey: "k", Endpoint: srv.URL})
	got, err := p.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"שלום", "חידה"},
		TargetLang: "en",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}

	want := []string{"EN:שלום & co", "EN:חידה & co"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	form := stub.requests[0]
	if form.Get("key") != "k" || form.Get("source") != "he" || form.Get("target") != "en" || form.Get("format") != "text" {
		t.Errorf("unexpected form %v", form)
	}
}

func TestGoogleProvider_Batches(t *testing.T) {
	stub := &googleStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	texts := make([]string, 170)
	for i := range texts {
		texts[i] = fmt.Sprintf("t%d", i)
	}

	p := NewGoogleProvider(GoogleConfig{APIKey: "k", Endpoint: srv.URL})
	got, err := p.Translate(context.Background(), TranslateRequest{Texts: texts, TargetLang: "en"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(got) != 170 {
		t.Fatalf("got %d results", len(got))
	}
	if got[169] != "EN:t169 & co" {
		t.Errorf("got[169] = %q", got[169])
	}

	sizes := []int{len(stub.requests[0]["q"]), len(stub.requests[1]["q"]), len(stub.requests[2]["q"])}
	if len(stub.requests) != 3 || sizes[0] != 80 || sizes[1] != 80 || sizes[2] != 10 {
		t.Errorf("batch sizes = %v", sizes)
	}
}

func TestGoogleProvider_PadsMissingEntries(t *testing.T) {
	srv := httptest.NewServer(&googleStub{drop: 1})
	defer srv.Close()

	p := NewGoogleProvider(GoogleConfig{APIKey: "k", Endpoint: srv.URL})
	got, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"א", "ב"}, TargetLang: "en"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got[0] != "EN:א & co" || got[1] != "ב" {
		t.Errorf("got %q", got)
	}
}

func TestGoogleProvider_Errors(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(&googleStub{status: tt.status})
		p := NewGoogleProvider(GoogleConfig{APIKey: "k", Endpoint: srv.URL})

		_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"א"}, TargetLang: "en"})
		var perr *huntlay.ProviderError
		if !errors.As(err, &perr) {
			t.Errorf("status %d: expected provider error, got %v", tt.status, err)
		} else if perr.Retryable != tt.retryable {
			t.Errorf("status %d: retryable = %v", tt.status, perr.Retryable)
		} else if !strings.Contains(perr.Error(), "API key not valid") {
			t.Errorf("status %d: error %q lacks the API message", tt.status, perr.Error())
		}
		srv.Close()
	}
}
