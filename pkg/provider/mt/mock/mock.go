// Package mock provides a test double for the mt package.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxbridge/voxbridge/pkg/provider/mt"
)

// Compile-time interface checks.
var (
	_ mt.Translator   = (*Translator)(nil)
	_ mt.PairVerifier = (*Translator)(nil)
)

// Call records a single invocation of Translate.
type Call struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Translator is a mock implementation of mt.Translator. By default it echoes
// the input wrapped in a marker so tests can assert the translation step ran.
// Thread-safe.
type Translator struct {
	mu sync.Mutex

	// Result, when non-empty, is returned from every Translate call.
	Result string

	// Err, if non-nil, is returned from Translate alongside a marked copy
	// of the input.
	Err error

	// VerifyErr, if non-nil, is returned from VerifyPairs.
	VerifyErr error

	// Calls records every Translate invocation in order.
	Calls []Call
}

// Translate records the call and returns Result, or a wrapped echo of the
// input when Result is empty.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.Calls = append(t.Calls, Call{Text: text, SourceLang: sourceLang, TargetLang: targetLang})

	if t.Err != nil {
		return fmt.Sprintf("[translation error: %s]", text), t.Err
	}
	if sourceLang == targetLang {
		return text, nil
	}
	if t.Result != "" {
		return t.Result, nil
	}
	return fmt.Sprintf("<%s→%s> %s", sourceLang, targetLang, text), nil
}

// VerifyPairs returns VerifyErr.
func (t *Translator) VerifyPairs(ctx context.Context, pairs []mt.Pair) error {
	return t.VerifyErr
}

// CallCount returns the number of recorded Translate calls. Thread-safe.
func (t *Translator) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}
