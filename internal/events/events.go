package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "marketplace-service"
	EventVersion = "1.0"
)

type EventType string

const (
	OrderCreated    EventType = "order.created"
	OrderPaid       EventType = "order.paid"
	PaymentRejected EventType = "payment.rejected"
	CourseEnrolled  EventType = "course.enrolled"
	ReviewCreated   EventType = "review.created"
)

// AllTypes lists every event type the service emits.
func AllTypes() []EventType {
	return []EventType{OrderCreated, OrderPaid, PaymentRejected, CourseEnrolled, ReviewCreated}
}

type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent stamps an envelope around data.
func NewEvent(t EventType, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

type OrderCreatedData struct {
	OrderID    string   `json:"order_id"`
	UserID     string   `json:"user_id"`
	CourseIDs  []string `json:"course_ids"`
	TotalPrice string   `json:"total_price"`
}

type OrderPaidData struct {
	OrderID       string    `json:"order_id"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id"`
	Amount        string    `json:"amount"`
	PaidAt        time.Time `json:"paid_at"`
}

type PaymentRejectedData struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

type CourseEnrolledData struct {
	CourseID string `json:"course_id"`
	UserID   string `json:"user_id"`
}

type ReviewCreatedData struct {
	CourseID string `json:"course_id"`
	UserID   string `json:"user_id"`
	Rating   int    `json:"rating"`
}

// Publisher delivers domain events. Publish failures never undo the
// state change that produced the event; callers log and move on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emit builds and publishes an event in one call.
func Emit(ctx context.Context, p Publisher, t EventType, data any) error {
	if p == nil {
		return nil
	}
	ev, err := NewEvent(t, data)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ev)
}
