package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/edu_shop/internal/models"
)

const (
	EventOrderCreated       = "order_created"
	EventOrderStatusUpdated = "order_status_updated"
	EventOrderDeleted       = "order_deleted"
	EventUserRegistered     = "user_registered"
	EventUserDeleted        = "user_deleted"
)

// EventSink accepts events for asynchronous delivery. Enqueue must not block;
// it reports false when the event was dropped.
type EventSink interface {
	Enqueue(topic, key string, payload any) bool
}

type Topics struct {
	Orders string
	Users  string
}

func DefaultTopics() Topics {
	return Topics{Orders: "order_events", Users: "user_events"}
}

type OrderEvent struct {
	ID             string               `json:"id"`
	Type           string               `json:"type"`
	OrderID        uint                 `json:"orderId"`
	UserID         uint                 `json:"userId"`
	Status         models.OrderStatus   `json:"status,omitempty"`
	Total          decimal.Decimal      `json:"total"`
	DiscountAmount decimal.Decimal      `json:"discountAmount"`
	CouponCode     *string              `json:"couponCode,omitempty"`
	CustomerInfo   *models.CustomerInfo `json:"customerInfo,omitempty"`
	Items          []models.LineItem    `json:"items,omitempty"`
	OccurredAt     time.Time            `json:"occurredAt"`
}

type UserEvent struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	UserID        uint      `json:"userId"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	DeletedOrders int64     `json:"deletedOrders,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func newOrderEvent(typ string, o *models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		ID:             uuid.NewString(),
		Type:           typ,
		OrderID:        o.ID,
		UserID:         o.UserID,
		Status:         o.Status,
		Total:          o.Total,
		DiscountAmount: o.DiscountAmount,
		CouponCode:     o.CouponCode,
		OccurredAt:     at,
	}
}

func emit(sink EventSink, topic, key string, payload any) bool {
	if sink == nil || topic == "" {
		return false
	}
	return sink.Enqueue(topic, key, payload)
}
