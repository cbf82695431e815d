// Package provider implements the translation backends behind
// huntlay.TextTranslator.
package provider

import "github.com/ZaguanLabs/huntlay"

// AIProvider is the interface for translation backends.
type AIProvider = huntlay.AIProvider

// TranslateRequest is the request passed to a provider.
type TranslateRequest = huntlay.TranslateRequest
