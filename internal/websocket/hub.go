package websocket

import (
	"encoding/json"
	"sync"
)

// PaymentUpdate is pushed whenever a payment record changes status.
type PaymentUpdate struct {
	RequestID       string `json:"request_id,omitempty"`
	RecordID        string `json:"record_id"`
	Reference       string `json:"payment_reference,omitempty"`
	PaymentType     string `json:"payment_type"`
	Status          string `json:"status"`
	TransactionHash string `json:"transaction_hash,omitempty"`
	EngineResult    string `json:"engine_result,omitempty"`
}

// Hub fans updates out to subscribers. A client subscribes to its user topic
// and, optionally, to a single request id.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func UserTopic(userID string) string {
	return "user:" + userID
}

func RequestTopic(requestID string) string {
	return "request:" + requestID
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Register(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) Unregister(topic string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[topic] == nil {
		return
	}
	delete(h.clients[topic], client)
	if len(h.clients[topic]) == 0 {
		delete(h.clients, topic)
	}
}

// Subscribers reports how many clients listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// BroadcastPayment never blocks: a client with a full buffer misses the update.
func (h *Hub) BroadcastPayment(userID string, update PaymentUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		return
	}
	topics := []string{UserTopic(userID)}
	if update.RequestID != "" {
		topics = append(topics, RequestTopic(update.RequestID))
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*Client]struct{})
	for _, topic := range topics {
		for client := range h.clients[topic] {
			if _, dup := seen[client]; dup {
				continue
			}
			seen[client] = struct{}{}
			select {
			case client.send <- payload:
			default:
			}
		}
	}
}
