// Package huntlay provides the presentation layer of a location-guessing
// treasure hunt: a translation overlay that rewrites a live HTML document in
// place and restores it on demand, a double-buffered guide video animator, and
// the batch translation service the overlay talks to.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/huntlay"
//	    "github.com/ZaguanLabs/huntlay/cache"
//	    "github.com/ZaguanLabs/huntlay/dom"
//	    "github.com/ZaguanLabs/huntlay/overlay"
//	    "github.com/ZaguanLabs/huntlay/provider"
//	)
//
//	func main() {
//	    // Server side: translate batches of strings through an AI provider.
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//	    tr := huntlay.NewTextTranslator(p,
//	        huntlay.WithCache(cache.NewInMemoryCache(3600)),
//	    )
//
//	    // Page side: overlay an English translation on a Hebrew document.
//	    doc, _ := dom.ParseString(page)
//	    engine := overlay.New(doc, tr)
//	    engine.ApplyLanguage(context.Background(), "en")
//	    engine.ApplyLanguage(context.Background(), "he") // restores the original
//	}
package huntlay
