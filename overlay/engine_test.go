package overlay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/huntlay"
	"github.com/ZaguanLabs/huntlay/dom"
	"github.com/ZaguanLabs/huntlay/prefs"
)

const fixture = `<!DOCTYPE html><html lang="he" dir="rtl"><head><title>ציד אוצרות</title></head><body>
<button data-lang-toggle="he" class="active">עברית</button><button data-lang-toggle="en">English</button>
<div id="riddle-panel"><h2>חידה <span>ראשונה</span></h2>
<p id="riddle-text" data-riddle-id="0">  איפה מתחיל הים?  </p></div>
<input id="search-input" value="תל אביב" placeholder="חפש מקום">
<textarea placeholder="הערות">רשימה</textarea>
<input data-field="text" value="עורך">
<script>var x = "לא";</script>
</body></html>`

// fakeTranslator prefixes every text with "EN:". When release is set, each
// call blocks until it receives.
type fakeTranslator struct {
	mu       sync.Mutex
	requests [][]string
	fn       func(texts []string) ([]string, error)
	started  chan struct{}
	release  chan struct{}
}

func newFakeTranslator() *fakeTranslator {
	return &fakeTranslator{started: make(chan struct{}, 16)}
}

func (f *fakeTranslator) TranslateBatch(ctx context.Context, texts []string, target string) ([]string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, append([]string(nil), texts...))
	f.mu.Unlock()

	f.started <- struct{}{}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f.fn != nil {
		return f.fn(texts)
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "EN:" + t
	}
	return out, nil
}

func (f *fakeTranslator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestEngine(t *testing.T, tr huntlay.BatchTranslator, opts ...Option) *Engine {
	t.Helper()
	doc, err := dom.ParseString(fixture)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return New(doc, tr, opts...)
}

func render(t *testing.T, e *Engine) string {
	t.Helper()
	out, err := e.Document().HTML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out
}

func selText(e *Engine, sel string) string {
	var s string
	e.Document().View(func(doc *goquery.Document) {
		s = doc.Find(sel).Text()
	})
	return s
}

func selAttr(e *Engine, sel, attr string) string {
	var s string
	e.Document().View(func(doc *goquery.Document) {
		s, _ = doc.Find(sel).Attr(attr)
	})
	return s
}

func TestEngine_CaptureAndTranslate(t *testing.T) {
	tr := newFakeTranslator()
	e := newTestEngine(t, tr)

	res := e.CaptureAndTranslate(context.Background(), "en")
	if res.Skipped || res.Err != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Collected != 9 || res.Rewritten != 9 || res.NewEntries != 9 {
		t.Errorf("result = %+v, want 9 collected/new/rewritten", res)
	}

	if got := selText(e, "#riddle-text"); got != "  EN:איפה מתחיל הים?  " {
		t.Errorf("riddle text = %q, whitespace not preserved", got)
	}
	if got := selAttr(e, "#search-input", "value"); got != "EN:תל אביב" {
		t.Errorf("search value = %q", got)
	}
	if got := selAttr(e, "#search-input", "placeholder"); got != "EN:חפש מקום" {
		t.Errorf("search placeholder = %q", got)
	}
	if got := selText(e, "textarea"); got != "EN:רשימה" {
		t.Errorf("textarea = %q", got)
	}
	if got := selAttr(e, "[data-field]", "value"); got != "עורך" {
		t.Errorf("data-field input rewritten: %q", got)
	}
	if got := selText(e, "script"); !strings.Contains(got, "לא") {
		t.Errorf("script rewritten: %q", got)
	}

	sent := tr.requests[0]
	for _, s := range sent {
		if s != strings.TrimSpace(s) {
			t.Errorf("sent untrimmed text %q", s)
		}
	}
}

func TestEngine_RoundTrip(t *testing.T) {
	e := newTestEngine(t, newFakeTranslator())
	before := render(t, e)

	e.CaptureAndTranslate(context.Background(), "en")
	if render(t, e) == before {
		t.Fatal("translation did not change the document")
	}

	e.RestoreOriginal()
	if after := render(t, e); after != before {
		t.Errorf("round trip changed document:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestEngine_IdempotentRestore(t *testing.T) {
	e := newTestEngine(t, newFakeTranslator())
	ctx := context.Background()

	if n := e.RestoreOriginal(); n != 0 {
		t.Errorf("restore before any pass wrote %d", n)
	}

	e.CaptureAndTranslate(ctx, "en")
	e.RestoreOriginal()
	e.CaptureAndTranslate(ctx, "en")

	if n := e.RestoreOriginal(); n == 0 {
		t.Error("first restore wrote nothing")
	}
	once := render(t, e)

	if n := e.RestoreOriginal(); n != 0 {
		t.Errorf("second restore wrote %d locations", n)
	}
	if twice := render(t, e); twice != once {
		t.Error("second restore changed the document")
	}
}

func TestEngine_SnapshotCompleteness(t *testing.T) {
	tr := newFakeTranslator()
	e := newTestEngine(t, tr)
	ctx := context.Background()

	e.CaptureAndTranslate(ctx, "en")
	texts, attrs := e.SnapshotLen()
	if texts != 5 || attrs != 4 {
		t.Fatalf("SnapshotLen = %d, %d; want 5, 4", texts, attrs)
	}

	res := e.CaptureAndTranslate(ctx, "en")
	if res.NewEntries != 0 {
		t.Errorf("second pass added %d entries", res.NewEntries)
	}
	if t2, a2 := e.SnapshotLen(); t2 != texts || a2 != attrs {
		t.Errorf("SnapshotLen grew to %d, %d", t2, a2)
	}

	// a location still showing our translation is re-sent as its original
	for i, s := range tr.requests[1] {
		if s != tr.requests[0][i] {
			t.Errorf("second pass sent %q, want original %q", s, tr.requests[0][i])
		}
	}
	if got := selAttr(e, "#search-input", "value"); got != "EN:תל אביב" {
		t.Errorf("value after second pass = %q", got)
	}
}

func TestEngine_SingleFlight(t *testing.T) {
	tr := newFakeTranslator()
	tr.release = make(chan struct{})
	e := newTestEngine(t, tr)
	ctx := context.Background()

	done := make(chan PassResult)
	go func() { done <- e.CaptureAndTranslate(ctx, "en") }()
	<-tr.started

	// a hung call blocks every later trigger
	for i := 0; i < 3; i++ {
		if res := e.CaptureAndTranslate(ctx, "en"); !res.Skipped {
			t.Fatalf("call %d not skipped: %+v", i, res)
		}
	}
	if tr.calls() != 1 {
		t.Fatalf("calls while in flight = %d, want 1", tr.calls())
	}

	close(tr.release)
	if res := <-done; res.Rewritten == 0 {
		t.Errorf("first pass result = %+v", res)
	}

	// after completion a later trigger starts a fresh pass
	if res := e.CaptureAndTranslate(ctx, "en"); res.Skipped {
		t.Error("pass after completion was skipped")
	}
	if tr.calls() != 2 {
		t.Errorf("calls = %d, want 2", tr.calls())
	}
}

func TestEngine_MalformedResponseLeavesDocument(t *testing.T) {
	tests := []struct {
		name string
		fn   func([]string) ([]string, error)
	}{
		{"error", func([]string) ([]string, error) {
			return nil, &huntlay.ResponseError{StatusCode: 200, Message: "Translate failed"}
		}},
		{"short", func(texts []string) ([]string, error) {
			return texts[:len(texts)-1], nil
		}},
		{"long", func(texts []string) ([]string, error) {
			return append(texts, "extra"), nil
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTranslator()
			tr.fn = tt.fn
			e := newTestEngine(t, tr)
			before := render(t, e)

			res := e.CaptureAndTranslate(context.Background(), "en")
			if res.Err == nil {
				t.Error("expected an error")
			}
			if res.Rewritten != 0 {
				t.Errorf("rewrote %d locations", res.Rewritten)
			}
			if render(t, e) != before {
				t.Error("document changed")
			}
		})
	}
}

func TestEngine_CountMismatchError(t *testing.T) {
	tr := newFakeTranslator()
	tr.fn = func(texts []string) ([]string, error) { return nil, nil }
	e := newTestEngine(t, tr)

	res := e.CaptureAndTranslate(context.Background(), "en")
	var mismatch *huntlay.CountMismatchError
	if !errors.As(res.Err, &mismatch) {
		t.Fatalf("expected CountMismatchError, got %v", res.Err)
	}
	if mismatch.Expected != 9 || mismatch.Got != 0 {
		t.Errorf("mismatch = %+v", mismatch)
	}
}

func TestEngine_EditedDuringFlightIsKept(t *testing.T) {
	tr := newFakeTranslator()
	tr.release = make(chan struct{})
	e := newTestEngine(t, tr)

	done := make(chan PassResult)
	go func() { done <- e.CaptureAndTranslate(context.Background(), "en") }()
	<-tr.started

	e.Document().Update(func(doc *goquery.Document) {
		doc.Find("#search-input").SetAttr("value", "יפו")
		doc.Find("#riddle-text").SetText("חידה חדשה")
	})
	close(tr.release)
	res := <-done

	if res.Rewritten != 7 {
		t.Errorf("Rewritten = %d, want 7", res.Rewritten)
	}
	if got := selAttr(e, "#search-input", "value"); got != "יפו" {
		t.Errorf("user edit overwritten: %q", got)
	}
	if got := selText(e, "#riddle-text"); got != "חידה חדשה" {
		t.Errorf("injected riddle overwritten: %q", got)
	}
}

func TestEngine_RestoreAfterInjectedContent(t *testing.T) {
	tr := newFakeTranslator()
	e := newTestEngine(t, tr)
	ctx := context.Background()
	before := render(t, e)

	e.SetLanguage(ctx, "en")

	e.Document().Update(func(doc *goquery.Document) {
		doc.Find("#riddle-panel").AppendHtml(`<p id="hint">רמז נוסף</p>`)
	})
	e.RefreshTranslations(ctx)

	if got := selText(e, "#hint"); got != "EN:רמז נוסף" {
		t.Fatalf("injected content not translated: %q", got)
	}
	if texts, _ := e.SnapshotLen(); texts != 6 {
		t.Errorf("text entries = %d, want 6", texts)
	}

	e.SetLanguage(ctx, "he")
	if got := selText(e, "#hint"); got != "רמז נוסף" {
		t.Errorf("injected content not restored: %q", got)
	}

	// only the injected node and the html lang marker differ from the start
	e.Document().Update(func(doc *goquery.Document) {
		doc.Find("#hint").Remove()
		doc.Find("html").SetAttr("lang", "he").SetAttr("dir", "rtl")
		doc.Find(`[data-lang-toggle="he"]`).AddClass("active")
	})
	if after := render(t, e); after != before {
		t.Errorf("restore incomplete:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestEngine_ApplyLanguage(t *testing.T) {
	e := newTestEngine(t, newFakeTranslator())
	ctx := context.Background()

	var got []string
	unsubscribe := e.Bus().Subscribe(func(ev LanguageChanged) {
		got = append(got, ev.Lang)
	})

	e.ApplyLanguage(ctx, "en")
	if dir := selAttr(e, "html", "dir"); dir != "ltr" {
		t.Errorf("dir = %q, want ltr", dir)
	}
	if lang := selAttr(e, "html", "lang"); lang != "en" {
		t.Errorf("lang = %q", lang)
	}
	if cls := selAttr(e, `[data-lang-toggle="en"]`, "class"); cls != "active" {
		t.Errorf("en toggle class = %q", cls)
	}
	if cls := selAttr(e, `[data-lang-toggle="he"]`, "class"); cls != "" {
		t.Errorf("he toggle class = %q", cls)
	}

	e.ApplyLanguage(ctx, "he")
	if dir := selAttr(e, "html", "dir"); dir != "rtl" {
		t.Errorf("dir = %q, want rtl", dir)
	}
	if got := selText(e, "#riddle-text"); got != "  איפה מתחיל הים?  " {
		t.Errorf("not restored: %q", got)
	}

	unsubscribe()
	e.ApplyLanguage(ctx, "en")
	if len(got) != 2 || got[0] != "en" || got[1] != "he" {
		t.Errorf("events = %v", got)
	}
}

func TestEngine_SupersededPassIsDiscarded(t *testing.T) {
	tr := newFakeTranslator()
	tr.release = make(chan struct{})
	e := newTestEngine(t, tr)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		e.ApplyLanguage(ctx, "en")
		close(done)
	}()
	<-tr.started

	e.ApplyLanguage(ctx, "he")
	close(tr.release)
	<-done

	if got := selText(e, "#riddle-text"); got != "  איפה מתחיל הים?  " {
		t.Errorf("late translation landed after switching back: %q", got)
	}
}

func TestEngine_Init(t *testing.T) {
	ctx := context.Background()

	t.Run("no preference", func(t *testing.T) {
		tr := newFakeTranslator()
		e := newTestEngine(t, tr)
		e.Init(ctx)

		if tr.calls() != 0 {
			t.Errorf("calls = %d, want 0", tr.calls())
		}
		if dir := selAttr(e, "html", "dir"); dir != "rtl" {
			t.Errorf("dir = %q", dir)
		}
	})

	t.Run("stored english", func(t *testing.T) {
		store := prefs.NewMemory()
		_ = store.Set(ctx, huntlay.PreferenceKey, "en")

		tr := newFakeTranslator()
		e := newTestEngine(t, tr, WithPreferences(store))
		e.Init(ctx)

		if tr.calls() != 1 {
			t.Errorf("calls = %d, want 1", tr.calls())
		}
		if got := selText(e, "h2 span"); got != "EN:ראשונה" {
			t.Errorf("span = %q", got)
		}
	})
}

func TestEngine_RefreshHook(t *testing.T) {
	tr := newFakeTranslator()
	e := newTestEngine(t, tr)
	hook := e.RefreshHook()

	hook()
	if tr.calls() != 0 {
		t.Errorf("refresh in base language made %d calls", tr.calls())
	}

	e.SetLanguage(context.Background(), "en")
	hook()
	if tr.calls() != 2 {
		t.Errorf("calls = %d, want 2", tr.calls())
	}
}

func TestEngine_PassTimeout(t *testing.T) {
	tr := newFakeTranslator()
	tr.release = make(chan struct{})
	e := newTestEngine(t, tr, WithPassTimeout(20*time.Millisecond))

	res := e.CaptureAndTranslate(context.Background(), "en")
	if !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want deadline exceeded", res.Err)
	}

	// the guard is released, so the next pass runs
	close(tr.release)
	if res := e.CaptureAndTranslate(context.Background(), "en"); res.Skipped || res.Err != nil {
		t.Errorf("pass after timeout: %+v", res)
	}
}

func TestEngine_KeepsUnicodeWhitespace(t *testing.T) {
	const original = "\u00a0שלום\u2003\n"
	doc, err := dom.ParseString("<html lang=\"he\"><body><p>" + original + "</p></body></html>")
	if err != nil {
		t.Fatal(err)
	}
	tr := newFakeTranslator()
	e := New(doc, tr)

	if res := e.CaptureAndTranslate(context.Background(), "en"); res.Err != nil || res.Rewritten != 1 {
		t.Fatalf("pass = %+v", res)
	}
	if got := tr.requests[0][0]; got != "שלום" {
		t.Errorf("sent %q, want trimmed text", got)
	}
	if got := selText(e, "p"); got != "\u00a0EN:שלום\u2003\n" {
		t.Errorf("translated = %q", got)
	}

	e.RestoreOriginal()
	if got := selText(e, "p"); got != original {
		t.Errorf("restored = %q, want %q", got, original)
	}
}
