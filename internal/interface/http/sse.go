package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
	"github.com/origins-hub/fishing-stats-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SSE BROADCASTER
// ══════════════════════════════════════════════════════════════════════════════

// streamedEventTypes are the bus events forwarded to SSE clients. The rest
// (search analytics, sync passes) stay internal.
var streamedEventTypes = []shared.EventType{
	shared.EventPlayerUpdated,
	shared.EventPlayerLevelMaxed,
	shared.EventPlayerNotFound,
}

// clientBufferSize bounds the per-client queue. A client that cannot keep up
// drops events instead of stalling the bus handler.
const clientBufferSize = 64

// sseMessage is one pre-rendered SSE frame.
type sseMessage struct {
	eventType shared.EventType
	data      []byte
}

// broadcaster fans bus events out to any number of SSE connections through a
// single bus subscription, taken once at server construction because the bus
// has no unsubscribe.
type broadcaster struct {
	logger *logger.Logger

	mu      sync.Mutex
	clients map[chan sseMessage]struct{}
	closed  bool
}

func newBroadcaster(events shared.EventSubscriber, log *logger.Logger) *broadcaster {
	b := &broadcaster{
		logger:  log,
		clients: make(map[chan sseMessage]struct{}),
	}

	for _, eventType := range streamedEventTypes {
		if err := events.Subscribe(eventType, b.handleEvent); err != nil {
			log.Error("failed to subscribe event stream",
				logger.String("event_type", string(eventType)), logger.Err(err))
		}
	}

	return b
}

// handleEvent renders the event once and queues it on every client.
func (b *broadcaster) handleEvent(event shared.Event) error {
	data, err := json.Marshal(map[string]interface{}{
		"type":         event.EventType(),
		"aggregate_id": event.AggregateID(),
		"occurred_at":  event.OccurredAt().UTC().Format(time.RFC3339),
		"payload":      event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}

	msg := sseMessage{eventType: event.EventType(), data: data}

	b.mu.Lock()
	defer b.mu.Unlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Slow client, skip this frame.
		}
	}
	return nil
}

func (b *broadcaster) register() (chan sseMessage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	client := make(chan sseMessage, clientBufferSize)
	b.clients[client] = struct{}{}
	return client, true
}

func (b *broadcaster) unregister(client chan sseMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client)
}

// Close detaches all clients; their serve loops end on the next heartbeat.
func (b *broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for client := range b.clients {
		delete(b.clients, client)
	}
}

// serve streams events to one connection until the client disconnects.
func (b *broadcaster) serve(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming is not supported")
		return
	}

	client, ok := b.register()
	if !ok {
		writeJSONError(w, http.StatusServiceUnavailable, "shutting_down", "Server is shutting down")
		return
	}
	defer b.unregister(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Per-connection write deadline off; SSE connections are long-lived.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, open := <-client:
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.eventType, msg.data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
