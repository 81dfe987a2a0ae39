package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxbridge/voxbridge/internal/subtitle"
)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []subtitle.Entry
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, entry subtitle.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeRecorder) recorded() []subtitle.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]subtitle.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func entry(original string) subtitle.Entry {
	return subtitle.Entry{
		Channel:    "mic",
		SourceLang: "en",
		TargetLang: "es",
		Original:   original,
		Translated: "…",
		At:         time.Now(),
	}
}

func TestSink_PersistsEntriesAsynchronously(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewSink(rec, nil)
	defer s.Close()

	for _, text := range []string{"one", "two", "three"} {
		if err := s.Show(context.Background(), entry(text)); err != nil {
			t.Fatalf("Show: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(rec.recorded()) == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := rec.recorded()
	if len(got) != 3 {
		t.Fatalf("recorded %d entries, want 3", len(got))
	}
	if got[0].Original != "one" || got[2].Original != "three" {
		t.Fatalf("entries out of order: %v", got)
	}
}

func TestSink_CloseDrainsBuffer(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewSink(rec, nil)

	for i := 0; i < 10; i++ {
		s.Show(context.Background(), entry("queued"))
	}
	s.Close()

	if n := len(rec.recorded()); n != 10 {
		t.Fatalf("recorded %d entries after Close, want 10", n)
	}
}

func TestSink_RecordErrorDoesNotStopWorker(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db down")}
	s := NewSink(rec, nil)
	defer s.Close()

	s.Show(context.Background(), entry("lost"))
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	rec.err = nil
	rec.mu.Unlock()

	s.Show(context.Background(), entry("kept"))
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(rec.recorded()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := rec.recorded()
	if len(got) != 1 || got[0].Original != "kept" {
		t.Fatalf("recorded = %v, want single kept entry", got)
	}
}

func TestSink_ShowAfterCloseIsNoop(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewSink(rec, nil)
	s.Close()

	if err := s.Show(context.Background(), entry("late")); err != nil {
		t.Fatalf("Show after Close: %v", err)
	}
}

func TestSink_CloseIdempotent(t *testing.T) {
	s := NewSink(&fakeRecorder{}, nil)
	s.Close()
	s.Close()
}
