// Command huntlay overlays a translation on a treasure hunt page, the way the
// page script does in the browser, and writes the translated HTML.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/huntlay"
	"github.com/ZaguanLabs/huntlay/cache"
	"github.com/ZaguanLabs/huntlay/dom"
	"github.com/ZaguanLabs/huntlay/overlay"
	"github.com/ZaguanLabs/huntlay/prefs"
	"github.com/ZaguanLabs/huntlay/provider"
	"github.com/joho/godotenv"
)

// Build-time variables (can be overridden with ldflags)
var (
	version   = huntlay.Version
	commit    = huntlay.GitCommit
	buildDate = huntlay.BuildDate
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("huntlay", flag.ContinueOnError)
	fs.SetOutput(stderr)

	lang := fs.String("lang", "", "Target language (default: stored preference, else en)")
	endpoint := fs.String("endpoint", "", "URL of a /translate endpoint")
	providerName := fs.String("provider", "", "In-process provider when no endpoint is set: openai, gemini, google, passthrough, mock")
	apiKey := fs.String("api-key", "", "Provider API key (default: OPENAI_API_KEY, GEMINI_API_KEY or GOOGLE_TRANSLATE_KEY env)")
	model := fs.String("model", "", "Model for the openai and gemini providers")
	output := fs.String("o", "", "Output file (default: stdout)")
	prefsPath := fs.String("prefs", "", "SQLite file remembering the chosen language")
	timeout := fs.Duration("timeout", 30*time.Second, "Bound on the translation request")
	envFile := fs.String("env", ".env", "Environment file to load (missing file is ignored)")
	dryRun := fs.Bool("dry-run", false, "List the translatable locations without translating")
	jsonOutput := fs.Bool("json", false, "Output result as JSON")
	verify := fs.Bool("verify", false, "Restore the original after translating and check the round trip")
	showVersion := fs.Bool("version", false, "Show version")
	quiet := fs.Bool("quiet", false, "Suppress progress output")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s\n", huntlay.Name, version)
		if commit != "unknown" && commit != "" {
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
		}
		if buildDate != "unknown" && buildDate != "" {
			fmt.Fprintf(stdout, "  built:   %s\n", buildDate)
		}
		return nil
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", *envFile, err)
	}

	input, inputName, err := readInput(fs, stdin)
	if err != nil {
		return err
	}
	doc, err := dom.Parse(input)
	if err != nil {
		return err
	}

	if *dryRun {
		return runDryRun(doc, inputName, stdout, *jsonOutput)
	}

	level := slog.LevelInfo
	if *quiet {
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	translator, err := newTranslator(*endpoint, *providerName, *apiKey, *model, logger)
	if err != nil {
		return err
	}

	var store prefs.Store = prefs.NewMemory()
	if *prefsPath != "" {
		s, err := prefs.OpenSQLite(*prefsPath)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
	}

	ctx := context.Background()
	target := *lang
	if target == "" {
		if stored, ok, err := store.Get(ctx, huntlay.PreferenceKey); err == nil && ok && stored != "" {
			target = stored
		} else {
			target = huntlay.DefaultTargetLang
		}
	}

	engine := overlay.New(doc, translator,
		overlay.WithPreferences(store),
		overlay.WithLogger(logger),
		overlay.WithPassTimeout(*timeout),
	)

	var before []string
	if *verify {
		before = contents(doc)
	}

	if !*quiet {
		fmt.Fprintf(stderr, "Overlaying %s in %s...\n", inputName, target)
	}
	start := time.Now()
	res := engine.SetLanguage(ctx, target)
	if res.Err != nil {
		return fmt.Errorf("translation failed: %w", res.Err)
	}
	elapsed := time.Since(start)

	content, err := doc.HTML()
	if err != nil {
		return err
	}

	if *verify {
		engine.ApplyLanguage(ctx, engine.BaseLang())
		if err := sameContents(before, contents(doc)); err != nil {
			return fmt.Errorf("round trip: %w", err)
		}
		if !*quiet {
			fmt.Fprintf(stderr, "Round trip restored %d locations\n", len(before))
		}
	}

	var out io.Writer = stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if *jsonOutput {
		return outputJSON(out, content, target, res, elapsed)
	}

	fmt.Fprint(out, content)

	if !*quiet {
		fmt.Fprintf(stderr, "\nDone in %v\n", elapsed.Round(time.Millisecond))
		fmt.Fprintf(stderr, "  Locations:    %d\n", res.Collected)
		fmt.Fprintf(stderr, "  Rewritten:    %d\n", res.Rewritten)
	}
	return nil
}

func readInput(fs *flag.FlagSet, stdin io.Reader) (io.Reader, string, error) {
	if fs.NArg() == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("reading stdin: %w", err)
		}
		return bytes.NewReader(data), "stdin", nil
	}
	path := fs.Arg(0)
	data, err := os.ReadFile(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return nil, "", fmt.Errorf("reading file: %w", err)
	}
	return bytes.NewReader(data), filepath.Base(path), nil
}

// newTranslator returns the remote endpoint client when endpoint is set and
// an in-process translator otherwise.
func newTranslator(endpoint, name, apiKey, model string, logger *slog.Logger) (huntlay.BatchTranslator, error) {
	if endpoint != "" {
		return overlay.NewHTTPClient(endpoint), nil
	}

	if name == "" {
		switch {
		case apiKey != "" || os.Getenv("OPENAI_API_KEY") != "":
			name = provider.NameOpenAI
		case os.Getenv("GEMINI_API_KEY") != "":
			name = provider.NameGemini
		case os.Getenv("GOOGLE_TRANSLATE_KEY") != "":
			name = provider.NameGoogle
		default:
			return nil, errors.New("no translator: set -endpoint, -provider or a provider API key")
		}
	}
	if apiKey == "" {
		switch name {
		case provider.NameOpenAI:
			apiKey = os.Getenv("OPENAI_API_KEY")
		case provider.NameGemini:
			apiKey = os.Getenv("GEMINI_API_KEY")
		case provider.NameGoogle:
			apiKey = os.Getenv("GOOGLE_TRANSLATE_KEY")
		}
	}

	p, err := provider.New(context.Background(), provider.Config{Name: name, APIKey: apiKey, Model: model})
	if err != nil {
		return nil, err
	}
	return huntlay.NewTextTranslator(
		huntlay.NewRetryableProvider(p, huntlay.DefaultRetryConfig()),
		huntlay.WithCache(cache.NewInMemoryCache(0)),
		huntlay.WithLogger(logger),
	), nil
}

func contents(doc *dom.Document) []string {
	var out []string
	doc.View(func(d *goquery.Document) {
		for _, t := range dom.NewCollector().Collect(d) {
			out = append(out, t.Read())
		}
	})
	return out
}

func sameContents(before, after []string) error {
	if len(before) != len(after) {
		return fmt.Errorf("%d locations before, %d after", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			return fmt.Errorf("location %d is %q, want %q", i, after[i], before[i])
		}
	}
	return nil
}

// runDryRun lists what would be translated.
func runDryRun(doc *dom.Document, inputName string, stdout io.Writer, jsonOut bool) error {
	type location struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
	}
	var locs []location
	doc.View(func(d *goquery.Document) {
		for _, t := range dom.NewCollector().Collect(d) {
			locs = append(locs, location{Kind: t.Kind.String(), Text: t.Text})
		}
	})

	if jsonOut {
		out := struct {
			InputFile string     `json:"input_file"`
			Count     int        `json:"count"`
			Locations []location `json:"locations"`
		}{inputName, len(locs), locs}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(stdout, "Dry run: %s\n", inputName)
	fmt.Fprintf(stdout, "Found %d translatable locations:\n\n", len(locs))
	for i, l := range locs {
		text := []rune(l.Text)
		if len(text) > 60 {
			text = append(text[:57], []rune("...")...)
		}
		fmt.Fprintf(stdout, "%3d. [%s] %q\n", i+1, l.Kind, string(text))
	}
	return nil
}

// JSONOutput represents the JSON output format.
type JSONOutput struct {
	Content    string `json:"content"`
	Lang       string `json:"lang"`
	Dir        string `json:"dir"`
	Collected  int    `json:"collected"`
	NewEntries int    `json:"new_entries"`
	Rewritten  int    `json:"rewritten"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

func outputJSON(w io.Writer, content, lang string, res overlay.PassResult, elapsed time.Duration) error {
	out := JSONOutput{
		Content:    content,
		Lang:       lang,
		Dir:        huntlay.Direction(lang, huntlay.BaseLang),
		Collected:  res.Collected,
		NewEntries: res.NewEntries,
		Rewritten:  res.Rewritten,
		ElapsedMs:  elapsed.Milliseconds(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
