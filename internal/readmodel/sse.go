// Package readmodel implements the Read-Model Server: an HTTP+SSE
// surface over the Store that a dashboard (or any HTTP client) polls or
// subscribes to for feature, config, architecture, and session state.
package readmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kilnforge/pipelinectl/internal/domain/feature"
)

// client is one connected SSE subscriber: a buffered channel fed by
// Broadcast and drained by the handler goroutine holding the connection.
type client struct {
	events chan []byte
	cancel context.CancelFunc
}

// Hub manages all active SSE connections and broadcasts events to them,
// adapted from the teacher's WebSocket connection-set/broadcast/
// remove-on-write-error shape to server-sent events: each client is a
// channel fed by a per-connection goroutine instead of a socket write.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a new SSE hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// HandleStream upgrades the request to a long-lived SSE connection and
// streams every broadcast event to it until the client disconnects or a
// write blocks past its buffer, at which point it is dropped.
func (h *Hub) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	c := &client{events: make(chan []byte, 32), cancel: cancel}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	slog.Info("sse client connected", "remote", r.RemoteAddr)
	defer func() {
		h.remove(c)
		slog.Info("sse client disconnected", "remote", r.RemoteAddr)
	}()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// BroadcastEvent marshals payload and pushes it to every connected
// client as one SSE frame. A client whose buffer is full is dropped: a
// slow reader must not block the rest of the broadcast set.
func (h *Hub) BroadcastEvent(_ context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal sse event payload", "type", eventType, "error", err)
		return
	}
	frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, data))

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.events <- frame:
		case <-time.After(200 * time.Millisecond):
			slog.Debug("sse client write timed out, dropping")
			go h.remove(c)
		}
	}
}

// ConnectionCount returns the number of active SSE connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		c.cancel()
		delete(h.clients, c)
		close(c.events)
	}
}

const featureSnapshotInterval = 2 * time.Second

// featureLister is the slice of the Store the feature snapshot ticker
// needs.
type featureLister interface {
	ListFeatures(ctx context.Context) ([]feature.Feature, error)
}

// startFeatureSnapshotTicker snapshots the feature list every 2 seconds and
// broadcasts an EventFeatures event only when the serialized snapshot
// differs from the previous tick. Adapted from the teacher's
// ModelRegistry.Start poll-on-ticker loop, with an added diff check since
// the dashboard only needs to redraw when something actually changed.
func startFeatureSnapshotTicker(ctx context.Context, store featureLister, hub *Hub) {
	go func() {
		ticker := time.NewTicker(featureSnapshotInterval)
		defer ticker.Stop()

		var last []byte
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				features, err := store.ListFeatures(ctx)
				if err != nil {
					slog.Warn("feature snapshot ticker: list features failed", "error", err)
					continue
				}
				if features == nil {
					features = []feature.Feature{}
				}
				data, err := json.Marshal(features)
				if err != nil {
					slog.Error("feature snapshot ticker: marshal failed", "error", err)
					continue
				}
				if bytes.Equal(data, last) {
					continue
				}
				last = data
				hub.BroadcastEvent(ctx, EventFeatures, features)
			}
		}
	}()
}

// Event type constants broadcast by the feature snapshot ticker and the
// mutating feature/config/architecture endpoints. internal/adapter/http
// cannot import this package (it would cycle back through
// internal/port/broadcast), so its handlers fire the matching string
// literals directly instead of these constants.
const (
	// EventFeatures is the periodic full-snapshot broadcast fired by the
	// feature snapshot ticker whenever the serialized feature list changes.
	EventFeatures = "features"
	// EventFeatureUpdated is fired synchronously by the feature create/patch
	// handlers, in addition to the next periodic snapshot.
	EventFeatureUpdated       = "feature-updated"
	EventSessionEventRecorded = "session.event"
	EventConfigChanged        = "config.changed"
	EventArchitectureChanged  = "architecture.changed"
)
