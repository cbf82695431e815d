package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ZaguanLabs/huntlay"
)

// systemPrompt builds the instructions shared by the LLM providers.
func systemPrompt(req TranslateRequest) string {
	sourceLang := req.SourceLang
	if sourceLang == "" {
		sourceLang = huntlay.BaseLang
	}
	sourceName := huntlay.GetLanguageName(sourceLang)
	targetName := huntlay.GetLanguageName(req.TargetLang)

	contextText := "The content is the text of a web page."
	if req.Context != "" {
		contextText = fmt.Sprintf("The content is for: %s. Keep the tone playful where the source is.", req.Context)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You translate short web page strings from %s to %s.

# Context
%s

# Rules
- Translate each string on its own; strings are independent page fragments.
- Keep riddles as riddles: do not solve them or add hints.
- Do NOT translate URLs, email addresses, emoji or placeholders such as {name} or %%s.
- Keep numbers and punctuation that carry meaning.
- Return the text only, with no surrounding whitespace.`, sourceName, targetName, contextText)

	if len(req.Glossary) > 0 {
		keys := make([]string, 0, len(req.Glossary))
		for k := range req.Glossary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n\n# Glossary\nPrefer these translations:")
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- %q → %s", k, req.Glossary[k])
		}
	}

	b.WriteString(`

# Format
Return a JSON object with a single key "translations" holding an array of strings in the same order as the input.
Example: {"translations": ["first", "second"]}
Do NOT wrap the JSON in Markdown code blocks.`)

	return b.String()
}

// userMessage encodes the texts as a JSON array.
func userMessage(texts []string) string {
	data, _ := json.Marshal(texts)
	return string(data)
}

// parseTranslations reads the model output: an object with a "translations"
// array, any object with a single array value, or a bare array. Code fences
// are stripped.
func parseTranslations(name, content string, expected int) ([]string, error) {
	content = stripFences(content)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		if raw, ok := obj["translations"]; ok {
			return decodeArray(name, raw, expected)
		}
		for _, raw := range obj {
			if out, err := decodeArray(name, raw, expected); err == nil {
				return out, nil
			}
		}
	}

	if strings.HasPrefix(content, "[") {
		return decodeArray(name, json.RawMessage(content), expected)
	}

	return nil, &huntlay.ProviderError{
		Message: "invalid response format from " + name,
	}
}

func decodeArray(name string, raw json.RawMessage, expected int) ([]string, error) {
	var arr []any
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, &huntlay.ProviderError{
			Message: "invalid response format from " + name,
			Cause:   err,
		}
	}

	result := make([]string, len(arr))
	for i, v := range arr {
		switch s := v.(type) {
		case string:
			result[i] = s
		case nil:
			result[i] = ""
		default:
			result[i] = fmt.Sprint(s)
		}
	}

	if len(result) != expected {
		return nil, &huntlay.CountMismatchError{Expected: expected, Got: len(result)}
	}
	return result, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// isRetryableError guesses from the error text whether a failed call is
// worth repeating.
func isRetryableError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"rate limit",
		"timeout",
		"connection refused",
		"connection reset",
		"temporary",
		"unavailable",
		"429",
		"500",
		"502",
		"503",
		"504",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
