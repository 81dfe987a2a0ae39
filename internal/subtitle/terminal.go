package subtitle

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ANSI colors for the two conversation sides. Channels beyond the first two
// reuse the palette.
var channelColors = []string{
	"\x1b[36m", // cyan
	"\x1b[33m", // yellow
	"\x1b[35m", // magenta
	"\x1b[32m", // green
}

const ansiReset = "\x1b[0m"

// Display renders entries as two-line subtitle blocks on a terminal:
// original on the first line, translation indented on the second.
type Display struct {
	mu     sync.Mutex
	w      io.Writer
	color  bool
	colors map[string]string
}

var _ Sink = (*Display)(nil)

// NewDisplay creates a terminal display writing to w. color enables ANSI
// channel coloring; disable it when w is not a TTY.
func NewDisplay(w io.Writer, color bool) *Display {
	return &Display{
		w:      w,
		color:  color,
		colors: make(map[string]string),
	}
}

// Show writes the entry. Writes are serialized so blocks from the two
// pipelines never interleave.
func (d *Display) Show(_ context.Context, entry Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	start, end := "", ""
	if d.color {
		start, end = d.channelColor(entry.Channel), ansiReset
	}

	_, err := fmt.Fprintf(d.w, "%s[%s] %s (%s): %s%s\n%s  -> (%s): %s%s\n",
		start, entry.At.Format("15:04:05"), entry.Channel, entry.SourceLang, entry.Original, end,
		start, entry.TargetLang, entry.Translated, end)
	if err != nil {
		return fmt.Errorf("subtitle: terminal write: %w", err)
	}
	return nil
}

// channelColor assigns each channel the next palette color on first use.
// Callers hold d.mu.
func (d *Display) channelColor(channel string) string {
	if c, ok := d.colors[channel]; ok {
		return c
	}
	c := channelColors[len(d.colors)%len(channelColors)]
	d.colors[channel] = c
	return c
}
