package api

import (
	"encoding/json"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// PipelineEvent is one run update streamed to dashboard clients
type PipelineEvent struct {
	RunID      string                 `json:"run_id,omitempty"`
	EventType  string                 `json:"event_type"`
	Step       string                 `json:"step,omitempty"`
	StepIndex  int                    `json:"step_index,omitempty"`
	TotalSteps int                    `json:"total_steps,omitempty"`
	Progress   float64                `json:"progress"`
	Message    string                 `json:"message,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Event types carried on the stream
const (
	EventStep        = "pipeline_step"
	EventRunFinished = "run_finished"
)

// SSEHub fans pipeline events out to every connected SSE client
type SSEHub struct {
	clients    map[chan PipelineEvent]bool
	clientsMu  sync.RWMutex
	register   chan chan PipelineEvent
	unregister chan chan PipelineEvent
	broadcast  chan PipelineEvent
}

// NewSSEHub creates the hub and starts its fan-out loop
func NewSSEHub() *SSEHub {
	hub := &SSEHub{
		clients:    make(map[chan PipelineEvent]bool),
		register:   make(chan chan PipelineEvent, 10),
		unregister: make(chan chan PipelineEvent, 10),
		broadcast:  make(chan PipelineEvent, 100),
	}

	go hub.run()
	return hub
}

// run processes hub operations
func (h *SSEHub) run() {
	for {
		select {
		case ch := <-h.register:
			h.clientsMu.Lock()
			h.clients[ch] = true
			log.Printf("[SSE] Client registered (total clients: %d)", len(h.clients))
			h.clientsMu.Unlock()

		case ch := <-h.unregister:
			h.clientsMu.Lock()
			if _, exists := h.clients[ch]; exists {
				delete(h.clients, ch)
				close(ch)
				log.Printf("[SSE] Client unregistered (remaining clients: %d)", len(h.clients))
			}
			h.clientsMu.Unlock()

		case event := <-h.broadcast:
			h.clientsMu.RLock()
			for ch := range h.clients {
				select {
				case ch <- event:
					// Event sent successfully
				default:
					// Client channel is full, skip
					log.Printf("[SSE] Client channel full, skipping %s event", event.EventType)
				}
			}
			h.clientsMu.RUnlock()
		}
	}
}

// Subscribe registers a client channel on the stream
func (h *SSEHub) Subscribe() chan PipelineEvent {
	ch := make(chan PipelineEvent, 10)
	h.register <- ch
	return ch
}

// Unsubscribe removes the channel; the hub closes it
func (h *SSEHub) Unsubscribe(ch chan PipelineEvent) {
	select {
	case h.unregister <- ch:
	default:
		// Hub overloaded; the channel is abandoned rather than blocking
	}
}

// Broadcast queues an event for every connected client
func (h *SSEHub) Broadcast(event PipelineEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		log.Printf("[SSE] Broadcast channel full, dropping event: %s", event.EventType)
	}
}

// ClientCount returns the number of connected clients
func (h *SSEHub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// HandleSSE streams pipeline events over Server-Sent Events
func (h *SSEHub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "Cache-Control")

	clientChan := h.Subscribe()
	defer h.Unsubscribe(clientChan)

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-clientChan:
			if !ok {
				return false
			}
			eventJSON, err := json.Marshal(event)
			if err != nil {
				log.Printf("[SSE] Failed to marshal event: %v", err)
				return true
			}
			c.SSEvent("pipeline", string(eventJSON))
			return true

		case <-time.After(30 * time.Second):
			// Ping keeps intermediaries from closing an idle stream
			c.SSEvent("ping", `{"status": "alive", "timestamp": "`+time.Now().Format(time.RFC3339)+`"}`)
			return true

		case <-ctx.Done():
			// Client disconnected
			return false
		}
	})
}
