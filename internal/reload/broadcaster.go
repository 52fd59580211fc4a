// Package reload fans file change notifications out to connected browsers
// over server-sent events.
package reload

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventName is the SSE event browsers listen for.
const EventName = "sourcechange"

// Change describes the file change that triggered a reload.
type Change struct {
	Path string    `json:"path"`
	Op   string    `json:"op"`
	At   time.Time `json:"at"`
}

// Broadcaster keeps the set of subscribers and the last change it sent.
type Broadcaster struct {
	channels map[uuid.UUID]chan Change
	last     Change
	mu       sync.RWMutex
	log      *slog.Logger
}

// NewBroadcaster returns an empty Broadcaster. A nil logger discards output.
func NewBroadcaster(log *slog.Logger) *Broadcaster {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Broadcaster{
		channels: make(map[uuid.UUID]chan Change),
		log:      log,
	}
}

// Notify records c as the last change and hands it to every subscriber.
// Subscribers that still hold an unread change are skipped.
func (b *Broadcaster) Notify(c Change) {
	b.mu.Lock()
	b.last = c
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.channels {
		select {
		case ch <- c:
		default:
			b.log.Debug("subscriber busy, change dropped", "subscriber", id)
		}
	}
}

// Subscribe registers a new subscriber.
func (b *Broadcaster) Subscribe() (uuid.UUID, <-chan Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New()
	ch := make(chan Change, 1)
	b.channels[id] = ch
	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.channels[id]; ok {
		delete(b.channels, id)
		close(ch)
	}
}

// Subscribers returns the number of connected subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.channels)
}

// Last returns the most recent change. ok is false until Notify has run.
func (b *Broadcaster) Last() (c Change, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.last, !b.last.At.IsZero()
}

func formatSSE(event string, data []byte) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
}

// ServeHTTP streams changes to the client until its request ends.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	log := b.log.With("subscriber", id)
	log.Debug("subscriber connected", "remote", r.RemoteAddr)
	defer log.Debug("subscriber disconnected")

	for {
		select {
		case <-r.Context().Done():
			return
		case c := <-ch:
			data, err := json.Marshal(c)
			if err != nil {
				log.Error("encode change", "err", err)
				continue
			}
			if _, err := fmt.Fprint(w, formatSSE(EventName, data)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
