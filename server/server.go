// Package server serves the batch translate endpoint the overlay calls.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ZaguanLabs/huntlay"
	"github.com/ZaguanLabs/huntlay/animator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// DefaultMaxTexts caps the strings translated per request; extra
	// strings are dropped.
	DefaultMaxTexts = huntlay.MaxBatchTexts

	// DefaultMaxBodyBytes caps the request body.
	DefaultMaxBodyBytes = 1 << 20
)

// Server handles /translate, /clips.json and /healthz.
type Server struct {
	translator   huntlay.BatchTranslator
	logger       *slog.Logger
	maxTexts     int
	maxBodyBytes int64
	static       fs.FS
	clips        animator.ClipTable
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxTexts sets how many strings a request may translate.
func WithMaxTexts(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxTexts = n
		}
	}
}

// WithMaxBodyBytes sets the request body limit.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithStatic serves fsys under /static/, for the guide clips and sounds.
func WithStatic(fsys fs.FS) Option {
	return func(s *Server) { s.static = fsys }
}

// WithClips sets the guide clip table served at /clips.json.
func WithClips(t animator.ClipTable) Option {
	return func(s *Server) {
		if len(t) > 0 {
			s.clips = t
		}
	}
}

// New creates a server translating with t. A nil t echoes the texts back.
func New(t huntlay.BatchTranslator, opts ...Option) *Server {
	s := &Server{
		translator:   t,
		logger:       slog.Default(),
		maxTexts:     DefaultMaxTexts,
		maxBodyBytes: DefaultMaxBodyBytes,
		clips:        animator.DefaultClipTable(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": huntlay.Version})
	})
	r.Post("/translate", s.handleTranslate)
	r.Get("/clips.json", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.clips)
	})

	if s.static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(s.static)))
	}
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.LogAttrs(r.Context(), slog.LevelDebug, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type translateReply struct {
	OK           bool     `json:"ok"`
	Translations []string `json:"translations"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)

	var body map[string]json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	texts, ok := flattenTexts(body["texts"])
	if !ok {
		writeError(w, http.StatusBadRequest, "texts must be a list")
		return
	}
	if len(texts) > s.maxTexts {
		texts = texts[:s.maxTexts]
	}
	target := targetLang(body["target"])

	out := texts
	if s.translator != nil && len(texts) > 0 {
		translated, err := s.translator.TranslateBatch(r.Context(), texts, target)
		switch {
		case err != nil:
			s.logger.WarnContext(r.Context(), "translation failed, returning originals",
				"error", err, "count", len(texts), "target", target)
		case len(translated) != len(texts):
			s.logger.WarnContext(r.Context(), "translation count mismatch, returning originals",
				"expected", len(texts), "got", len(translated))
		default:
			out = translated
		}
	}

	writeJSON(w, http.StatusOK, translateReply{OK: true, Translations: out})
}

// flattenTexts reads the texts field: a missing field is an empty list,
// strings are kept, nulls dropped and other values stringified.
func flattenTexts(raw json.RawMessage) ([]string, bool) {
	if raw == nil {
		return []string{}, true
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil || items == nil {
		return nil, false
	}

	texts := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
		case string:
			texts = append(texts, v)
		case json.Number:
			texts = append(texts, v.String())
		case bool:
			texts = append(texts, fmt.Sprint(v))
		default:
			data, _ := json.Marshal(v)
			texts = append(texts, string(data))
		}
	}
	return texts, true
}

func targetLang(raw json.RawMessage) string {
	var v any
	if raw == nil || json.Unmarshal(raw, &v) != nil {
		return huntlay.DefaultTargetLang
	}
	switch t := v.(type) {
	case string:
		if t = strings.TrimSpace(t); t != "" {
			return t
		}
	case float64:
		return fmt.Sprint(t)
	}
	return huntlay.DefaultTargetLang
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, huntlay.BatchResponse{OK: false, Error: msg})
}
