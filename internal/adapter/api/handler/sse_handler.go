package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

const clientBufferSize = 16

// sseMessage is one frame on the wire. An empty event is sent as a comment.
type sseMessage struct {
	event string
	data  []byte
}

// SSEBroker fans record events out to connected SSE clients. It implements
// domain.EventPublisher and never blocks the publisher.
type SSEBroker struct {
	logger    *slog.Logger
	clients   map[chan sseMessage]struct{}
	mu        sync.RWMutex
	events    chan domain.RecordEvent
	heartbeat time.Duration
	done      <-chan struct{}
}

// NewSSEBroker creates a new SSEBroker and starts its processing loop.
// Idle clients get a comment frame every heartbeat interval. Open streams end
// when ctx is done.
func NewSSEBroker(ctx context.Context, logger *slog.Logger, heartbeat time.Duration) *SSEBroker {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	broker := &SSEBroker{
		logger:    logger.With("component", "sse_broker"),
		clients:   make(map[chan sseMessage]struct{}),
		events:    make(chan domain.RecordEvent, 1000), // Buffered channel
		heartbeat: heartbeat,
		done:      ctx.Done(),
	}
	go broker.run(ctx)
	return broker
}

// ServeHTTP handles new client connections for the SSE stream.
func (b *SSEBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	messageChan := make(chan sseMessage, clientBufferSize)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case msg, ok := <-messageChan:
			if !ok {
				return // Channel was closed
			}
			if msg.event == "" {
				fmt.Fprint(w, ": ping\n\n")
			} else {
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.event, msg.data)
			}
			flusher.Flush()
		}
	}
}

// Publish queues event for broadcast. When the queue is full the event is
// dropped for SSE clients only.
func (b *SSEBroker) Publish(ctx context.Context, event domain.RecordEvent) error {
	select {
	case b.events <- event:
	default:
		b.logger.Warn("SSE event channel is full, dropping event", "record_id", event.Record.ID)
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (b *SSEBroker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *SSEBroker) addClient(client chan sseMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("SSE client connected", "clients", len(b.clients))
}

func (b *SSEBroker) removeClient(client chan sseMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Info("SSE client disconnected", "clients", len(b.clients))
	}
}

func (b *SSEBroker) broadcast(msg sseMessage) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Slow client; skip it rather than stall everyone else.
		}
	}
}

// run is the main processing loop for the broker.
func (b *SSEBroker) run(ctx context.Context) {
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.events:
			data, err := json.Marshal(event)
			if err != nil {
				b.logger.Error("Failed to marshal SSE message", "error", err)
				continue
			}
			b.broadcast(sseMessage{event: string(event.Type), data: data})
		case <-ticker.C:
			b.broadcast(sseMessage{})
		}
	}
}
