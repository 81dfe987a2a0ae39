package subtitle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// clientBuffer is how many entries a slow websocket client may fall behind
// before its oldest entries are discarded.
const clientBuffer = 16

// Broadcaster pushes entries to connected websocket clients as JSON, one
// message per entry. It implements both [Sink] and [http.Handler]; mount it
// on the HTTP mux and browsers receive live subtitles.
//
// Delivery is best-effort per client. A client that cannot keep up loses
// its oldest buffered entries rather than stalling the pipeline or the
// other clients.
type Broadcaster struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	entries chan Entry
	done    chan struct{}
	stop    chan struct{}
}

var (
	_ Sink         = (*Broadcaster)(nil)
	_ http.Handler = (*Broadcaster)(nil)
)

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Show enqueues the entry to every connected client without blocking.
func (b *Broadcaster) Show(_ context.Context, entry Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		for {
			select {
			case c.entries <- entry:
			default:
				// Buffer full: drop the client's oldest entry and retry.
				select {
				case <-c.entries:
				default:
				}
				continue
			}
			break
		}
	}
	return nil
}

// ServeHTTP upgrades the request to a websocket and streams entries until
// the client disconnects or the broadcaster closes.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // subtitle overlay is same-host, local use
	})
	if err != nil {
		b.log.Warn("subtitle websocket accept failed", "error", err)
		return
	}

	c := &client{
		entries: make(chan Entry, clientBuffer),
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		conn.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	b.clients[c] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	b.log.Info("subtitle client connected", "clients", n)

	defer func() {
		b.mu.Lock()
		delete(b.clients, c)
		n := len(b.clients)
		b.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "done")
		b.log.Info("subtitle client disconnected", "clients", n)
	}()

	// Reader goroutine: the client sends nothing meaningful, but reading
	// is required to notice disconnects and process control frames.
	go func() {
		defer close(c.done)
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-c.done:
			return
		case <-c.stop:
			return
		case <-r.Context().Done():
			return
		case entry := <-c.entries:
			if err := b.write(r.Context(), conn, entry); err != nil {
				return
			}
		}
	}
}

func (b *Broadcaster) write(ctx context.Context, conn *websocket.Conn, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("subtitle: marshal entry: %w", err)
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Close disconnects all clients and rejects new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	for c := range b.clients {
		close(c.stop)
	}
	b.clients = make(map[*client]struct{})
	b.mu.Unlock()
}
