package hub

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"klinik/antrian/internal/logging"
	"klinik/antrian/internal/models"

	"github.com/rs/zerolog/log"
)

// Subscription narrows the events a client receives. An empty field matches
// everything.
type Subscription struct {
	DepartmentID string
}

type Client struct {
	ID           string
	Send         chan []byte
	Subscription Subscription
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	now     func() time.Time
}

type SubscribeMessage struct {
	Action       string `json:"action"`
	DepartmentID string `json:"department_id"`
}

// Envelope is what subscribers receive for every queue event.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func New() *Hub {
	return &Hub{clients: make(map[string]*Client), now: time.Now}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	close(client.Send)
}

func (h *Hub) UpdateSubscription(client *Client, sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client.Subscription = sub
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast delivers payload to every matching client without blocking. A
// client whose buffer is full misses the message.
func (h *Hub) Broadcast(payload []byte, meta Subscription) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, client := range h.clients {
		if !match(client.Subscription, meta) {
			continue
		}
		select {
		case client.Send <- payload:
			delivered++
		default:
			log.Warn().Str("client_id", client.ID).Msg("drop message for slow client")
		}
	}
	return delivered
}

// Publish wraps entry in an envelope and broadcasts it to the entry's
// department. Its signature matches queue.Listener.
func (h *Hub) Publish(ctx context.Context, eventType string, entry models.QueueEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("entry_id", entry.ID).Msg("marshal event payload")
		return
	}
	message, err := json.Marshal(Envelope{Type: eventType, Payload: payload, CreatedAt: h.now().UTC()})
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("entry_id", entry.ID).Msg("marshal event envelope")
		return
	}
	h.Broadcast(message, Subscription{DepartmentID: entry.DepartmentID})
}

func match(sub Subscription, meta Subscription) bool {
	if sub.DepartmentID != "" && meta.DepartmentID != sub.DepartmentID {
		return false
	}
	return true
}

func ParseSubscribe(data []byte) (SubscribeMessage, bool) {
	var msg SubscribeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return SubscribeMessage{}, false
	}
	if msg.Action != "subscribe" && msg.Action != "unsubscribe" {
		return SubscribeMessage{}, false
	}
	msg.DepartmentID = strings.TrimSpace(msg.DepartmentID)
	return msg, true
}
