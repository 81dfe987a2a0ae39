package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxbridge/voxbridge/internal/subtitle"
)

const (
	sinkBuffer       = 64
	insertTimeout    = 5 * time.Second
	drainGracePeriod = 3 * time.Second
)

// Recorder is the subset of [Store] the sink needs. Tests substitute a
// fake.
type Recorder interface {
	Record(ctx context.Context, entry subtitle.Entry) error
}

// Sink adapts a [Recorder] to [subtitle.Sink] with an asynchronous worker.
// Show never blocks the caller; entries that cannot be buffered are dropped
// with a warning.
type Sink struct {
	store Recorder
	log   *slog.Logger

	entries chan subtitle.Entry
	stop    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

var _ subtitle.Sink = (*Sink)(nil)

// NewSink starts the persistence worker.
func NewSink(store Recorder, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	s := &Sink{
		store:   store,
		log:     log,
		entries: make(chan subtitle.Entry, sinkBuffer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Show buffers the entry for persistence. It never returns an error; a full
// buffer means the database is far behind and the entry is dropped.
func (s *Sink) Show(_ context.Context, entry subtitle.Entry) error {
	select {
	case <-s.stop:
		return nil
	case s.entries <- entry:
	default:
		s.log.Warn("history buffer full, dropping utterance",
			"channel", entry.Channel)
	}
	return nil
}

func (s *Sink) run() {
	defer close(s.done)
	for {
		select {
		case entry := <-s.entries:
			s.record(entry)
		case <-s.stop:
			// Drain whatever made it into the buffer before Close.
			for {
				select {
				case entry := <-s.entries:
					s.record(entry)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) record(entry subtitle.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	if err := s.store.Record(ctx, entry); err != nil {
		s.log.Warn("persisting utterance failed",
			"channel", entry.Channel,
			"error", err)
	}
}

// Close stops accepting entries and waits briefly for buffered entries to
// be written.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		select {
		case <-s.done:
		case <-time.After(drainGracePeriod):
			s.log.Warn("history sink drain timed out")
		}
	})
}
