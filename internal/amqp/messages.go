package amqp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType names a user notification carried on the queue.
type EventType string

const (
	EventWelcome    EventType = "welcome"
	EventLowBalance EventType = "low_balance"
)

// NotificationMessage is the queue payload for user notifications. The alert
// worker decides how, and whether, to present it.
type NotificationMessage struct {
	Type      EventType `json:"type"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Balance   float64   `json:"balance,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewWelcomeMessage creates the event sent after a successful login.
func NewWelcomeMessage(email, name string) *NotificationMessage {
	return &NotificationMessage{
		Type:      EventWelcome,
		Email:     email,
		Name:      name,
		Timestamp: time.Now(),
	}
}

// NewLowBalanceMessage creates the event sent when a balance drops below threshold.
func NewLowBalanceMessage(email string, balance, threshold float64) *NotificationMessage {
	return &NotificationMessage{
		Type:      EventLowBalance,
		Email:     email,
		Balance:   balance,
		Threshold: threshold,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON decodes and validates a queue payload.
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventWelcome, EventLowBalance:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if strings.TrimSpace(msg.Email) == "" {
		return nil, fmt.Errorf("event %s without email", msg.Type)
	}
	return &msg, nil
}
