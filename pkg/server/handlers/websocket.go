package handlers

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mnohosten/clara-db/pkg/database"
)

// WebSocket upgrader with default settings
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	// subscriberBuffer bounds the per-connection event queue; slow
	// consumers lose events rather than blocking writers
	subscriberBuffer = 64

	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// ChangeHub fans collection change events out to WebSocket subscribers
type ChangeHub struct {
	mu          sync.Mutex
	attached    map[string]bool
	subscribers map[string]map[chan ChangeNotification]bool
}

// ChangeNotification is the event payload sent over the wire
type ChangeNotification struct {
	Operation    string                 `json:"operation"`
	Namespace    string                 `json:"ns"`
	DocumentKey  interface{}            `json:"documentKey"`
	FullDocument map[string]interface{} `json:"fullDocument,omitempty"`
}

// NewChangeHub creates a change hub
func NewChangeHub() *ChangeHub {
	return &ChangeHub{
		attached:    make(map[string]bool),
		subscribers: make(map[string]map[chan ChangeNotification]bool),
	}
}

// Attach wires the hub into a collection's change listener, once per
// namespace
func (h *ChangeHub) Attach(coll *database.Collection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	namespace := coll.FullName()
	if h.attached[namespace] {
		return
	}
	h.attached[namespace] = true

	coll.SetChangeListener(func(event database.ChangeEvent) {
		h.publish(event)
	})
}

// publish delivers an event to every subscriber of its namespace, dropping
// it for subscribers whose queue is full
func (h *ChangeHub) publish(event database.ChangeEvent) {
	notification := ChangeNotification{
		Operation:   event.Operation,
		Namespace:   event.Namespace,
		DocumentKey: event.DocumentKey,
	}
	if event.FullDocument != nil {
		notification.FullDocument = event.FullDocument.ToMap()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subscribers[event.Namespace] {
		select {
		case ch <- notification:
		default:
		}
	}
}

func (h *ChangeHub) subscribe(namespace string) chan ChangeNotification {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ChangeNotification, subscriberBuffer)
	if h.subscribers[namespace] == nil {
		h.subscribers[namespace] = make(map[chan ChangeNotification]bool)
	}
	h.subscribers[namespace][ch] = true
	return ch
}

func (h *ChangeHub) unsubscribe(namespace string, ch chan ChangeNotification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs := h.subscribers[namespace]; subs != nil {
		delete(subs, ch)
	}
}

// Watch handles GET /collections/{collection}/watch: upgrades to a
// WebSocket and streams change notifications for the collection
func (h *Handlers) Watch(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))
	namespace := coll.FullName()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("watch: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events := h.hub.subscribe(namespace)
	defer h.hub.unsubscribe(namespace, events)

	// reader goroutine detects client close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case notification := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(notification); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
