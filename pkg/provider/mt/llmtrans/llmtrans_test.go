package llmtrans

import (
	"context"
	"strings"
	"testing"

	"github.com/voxbridge/voxbridge/pkg/provider/mt"
)

func TestNew_RequiresProviderAndModel(t *testing.T) {
	if _, err := New("", "some-model"); err == nil {
		t.Error("New accepted empty provider name")
	}
	if _, err := New("ollama", ""); err == nil {
		t.Error("New accepted empty model")
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New("carrier-pigeon", "v1")
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Fatalf("err = %v, want unsupported provider error", err)
	}
}

// Identity and empty-input cases return before any backend call, so a
// Translator with no backend exercises them safely.
func TestTranslate_SameLanguageIsIdentity(t *testing.T) {
	tr := &Translator{}

	got, err := tr.Translate(context.Background(), "Guten Morgen", "de", "de")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Guten Morgen" {
		t.Fatalf("got %q, want input unchanged", got)
	}
}

func TestTranslate_EmptyInput(t *testing.T) {
	tr := &Translator{}

	got, err := tr.Translate(context.Background(), "   ", "en", "de")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestVerifyPairs_SkipsIdentityPairs(t *testing.T) {
	tr := &Translator{}

	// Only identity pairs: no backend call, no error.
	err := tr.VerifyPairs(context.Background(), []mt.Pair{{Source: "en", Target: "en"}})
	if err != nil {
		t.Fatalf("VerifyPairs: %v", err)
	}
}
