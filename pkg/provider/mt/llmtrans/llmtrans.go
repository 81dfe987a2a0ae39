// Package llmtrans implements mt.Translator on top of
// github.com/mozilla-ai/any-llm-go, a unified multi-provider LLM interface
// (OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, llama.cpp,
// llamafile).
//
// Translation is a single low-temperature completion per utterance with a
// fixed system prompt. Local backends (ollama, llamacpp) keep the whole
// voxbridge pipeline offline; hosted backends trade privacy for quality.
//
// Usage:
//
//	tr, err := llmtrans.New("ollama", "qwen2.5:3b")
//	out, err := tr.Translate(ctx, "hello", "en", "ja")
package llmtrans

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/voxbridge/voxbridge/pkg/provider/mt"
)

// Compile-time interface checks.
var (
	_ mt.Translator   = (*Translator)(nil)
	_ mt.PairVerifier = (*Translator)(nil)
)

const systemPrompt = "You are a translation engine. Translate the user's text " +
	"from %s to %s. Reply with the translation only: no quotes, no notes, no " +
	"explanations. Preserve the register and tone of the original."

// Translator implements mt.Translator by prompting an LLM backend.
type Translator struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Translator backed by the given LLM provider.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile". model is the
// backend-specific model identifier (e.g., "gpt-4o-mini", "qwen2.5:3b").
//
// opts are any-llm-go options (anyllmlib.WithAPIKey, anyllmlib.WithBaseURL).
// Without an API key option, the backend falls back to its environment
// variable (OPENAI_API_KEY, etc.); local backends need none.
func New(providerName, model string, opts ...anyllmlib.Option) (*Translator, error) {
	if providerName == "" {
		return nil, fmt.Errorf("llmtrans: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llmtrans: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llmtrans: create %q backend: %w", providerName, err)
	}
	return &Translator{backend: backend, model: model}, nil
}

// Translate renders text from sourceLang into targetLang. Equal language
// codes short-circuit without a backend call. On backend failure the
// returned string is a visibly marked copy of the input so subtitles still
// carry the original text.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if sourceLang == targetLang {
		return text, nil
	}

	temp := 0.1
	resp, err := t.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: t.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: fmt.Sprintf(systemPrompt, sourceLang, targetLang)},
			{Role: anyllmlib.RoleUser, Content: text},
		},
		Temperature: &temp,
	})
	if err != nil {
		return fmt.Sprintf("[translation error: %s]", text), fmt.Errorf("llmtrans: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Sprintf("[translation error: %s]", text), fmt.Errorf("llmtrans: empty choices in response")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if out == "" {
		return fmt.Sprintf("[translation error: %s]", text), fmt.Errorf("llmtrans: backend returned empty translation")
	}
	return out, nil
}

// VerifyPairs probes each pair with a short test translation. All failures
// are reported together.
func (t *Translator) VerifyPairs(ctx context.Context, pairs []mt.Pair) error {
	var failed []string
	for _, p := range pairs {
		if p.Source == p.Target {
			continue
		}
		if _, err := t.Translate(ctx, "hello", p.Source, p.Target); err != nil {
			failed = append(failed, fmt.Sprintf("%s→%s (%v)", p.Source, p.Target, err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("llmtrans: translation pairs unavailable: %s", strings.Join(failed, "; "))
	}
	return nil
}

// createBackend creates the underlying any-llm-go provider for the given
// provider name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}
