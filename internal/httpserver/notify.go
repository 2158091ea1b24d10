package httpserver

import (
	"context"
	"strconv"
	"time"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/mykafka"
	"github.com/Skotchmaster/chopchop_pos/internal/realtime"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Broadcaster interface {
	Publish(ctx context.Context, topic, eventType string, payload any) error
}

// Notifier fans committed mutations out to realtime listeners and the event
// log. Failures are logged and never fail the request.
type Notifier struct {
	Events  EventPublisher
	Hub     Broadcaster
	Reports *service.ReportService
}

type orderEvent struct {
	Type          string               `json:"type"`
	OrderID       uint                 `json:"orderID"`
	OrderNumber   string               `json:"orderNumber"`
	Status        models.OrderStatus   `json:"status"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod,omitempty"`
	Total         string               `json:"total"`
	CashierID     *uint                `json:"cashierID,omitempty"`
	At            time.Time            `json:"at"`
}

type menuEvent struct {
	Type      string    `json:"type"`
	MenuID    uint      `json:"menuID"`
	Name      string    `json:"name"`
	CashierID uint      `json:"cashierID"`
	At        time.Time `json:"at"`
}

var kafkaOrderTypes = map[string]string{
	realtime.EventOrderCreated: "order_created",
	realtime.EventOrderUpdated: "order_updated",
	realtime.EventOrderPaid:    "order_paid",
}

// OrderChanged broadcasts the order on "orders", refreshed dashboard stats on
// "dashboard" and records the change on the order or payment topic.
func (n *Notifier) OrderChanged(ctx context.Context, eventType string, order *models.Order) {
	if n == nil || order == nil {
		return
	}
	l := logging.FromContext(ctx).With("component", "notifier")

	if n.Hub != nil {
		if err := n.Hub.Publish(ctx, realtime.TopicOrders, eventType, order); err != nil {
			l.Warn("broadcast_error", "topic", realtime.TopicOrders, "error", err)
		}
		if n.Reports != nil {
			stats, err := n.Reports.DashboardStats(ctx)
			if err != nil {
				l.Warn("dashboard_stats_error", "error", err)
			} else if err := n.Hub.Publish(ctx, realtime.TopicDashboard, realtime.EventDashboardUpdated, stats); err != nil {
				l.Warn("broadcast_error", "topic", realtime.TopicDashboard, "error", err)
			}
		}
	}

	if n.Events != nil {
		topic := mykafka.TopicOrderEvents
		if eventType == realtime.EventOrderPaid {
			topic = mykafka.TopicPaymentEvents
		}
		ev := orderEvent{
			Type:          kafkaOrderTypes[eventType],
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			PaymentMethod: order.PaymentMethod,
			Total:         order.Total.StringFixed(2),
			CashierID:     order.CashierID,
			At:            time.Now().UTC(),
		}
		if err := n.Events.PublishEvent(ctx, topic, order.OrderNumber, ev); err != nil {
			l.Warn("publish_event_error", "topic", topic, "error", err)
		}
	}
}

// MenuChanged records a catalog mutation on the menu topic, keyed by menu id
// so every change to one menu lands on the same partition.
func (n *Notifier) MenuChanged(ctx context.Context, eventType string, menuID uint, name string, cashierID uint) {
	if n == nil || n.Events == nil {
		return
	}
	ev := menuEvent{Type: eventType, MenuID: menuID, Name: name, CashierID: cashierID, At: time.Now().UTC()}
	key := strconv.FormatUint(uint64(menuID), 10)
	if err := n.Events.PublishEvent(ctx, mykafka.TopicMenuEvents, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error", "topic", mykafka.TopicMenuEvents, "error", err)
	}
}
