package subtitle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func testEntry() Entry {
	return Entry{
		Channel:    "mic",
		SourceLang: "en",
		TargetLang: "es",
		Original:   "Good morning",
		Translated: "Buenos días",
		At:         time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
}

func TestDisplay_RendersTwoLineBlock(t *testing.T) {
	var buf strings.Builder
	d := NewDisplay(&buf, false)

	if err := d.Show(context.Background(), testEntry()); err != nil {
		t.Fatalf("Show: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "[09:26:53] mic (en): Good morning") {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "(es): Buenos días") {
		t.Errorf("second line = %q", lines[1])
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("color disabled but ANSI codes present")
	}
}

func TestDisplay_ColorsDistinctPerChannel(t *testing.T) {
	var buf strings.Builder
	d := NewDisplay(&buf, true)

	mic := testEntry()
	loop := testEntry()
	loop.Channel = "loopback"

	d.Show(context.Background(), mic)
	d.Show(context.Background(), loop)

	out := buf.String()
	if !strings.Contains(out, channelColors[0]) || !strings.Contains(out, channelColors[1]) {
		t.Error("expected two distinct channel colors in output")
	}
}

type failSink struct{ err error }

func (s failSink) Show(context.Context, Entry) error { return s.err }

type recordSink struct{ entries []Entry }

func (s *recordSink) Show(_ context.Context, e Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func TestMulti_DeliversToAllDespiteFailure(t *testing.T) {
	rec := &recordSink{}
	boom := errors.New("boom")
	m := Multi{failSink{err: boom}, rec}

	err := m.Show(context.Background(), testEntry())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
	if len(rec.entries) != 1 {
		t.Fatal("second sink skipped after first failed")
	}
}

func TestBroadcaster_DeliversEntriesAsJSON(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()
	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// The accept loop registers the client asynchronously.
	deadline := time.Now().Add(2 * time.Second)
	for {
		b.mu.Lock()
		n := len(b.clients)
		b.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	want := testEntry()
	if err := b.Show(ctx, want); err != nil {
		t.Fatalf("Show: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Entry
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Original != want.Original || got.Translated != want.Translated || got.Channel != want.Channel {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestBroadcaster_ShowWithoutClientsIsNoop(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()
	if err := b.Show(context.Background(), testEntry()); err != nil {
		t.Fatalf("Show: %v", err)
	}
}

func TestBroadcaster_SlowClientLosesOldestEntry(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	// Register a client directly; no reader drains its buffer.
	c := &client{
		entries: make(chan Entry, 2),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()

	for i := 0; i < 4; i++ {
		e := testEntry()
		e.Original = strings.Repeat("x", i+1)
		if err := b.Show(context.Background(), e); err != nil {
			t.Fatalf("Show: %v", err)
		}
	}

	// Buffer holds the two newest entries; the oldest were discarded.
	first := <-c.entries
	second := <-c.entries
	if first.Original != "xxx" || second.Original != "xxxx" {
		t.Fatalf("buffer = %q, %q; want xxx, xxxx", first.Original, second.Original)
	}
}
