package notify

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
)

const TopicOrderEvents = "order_events"

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

type PurchaseTracker interface {
	TrackPurchase(ctx context.Context, order models.Order) error
}

// OrderNotifier turns order lifecycle changes into queued side effects.
type OrderNotifier struct {
	Dispatcher *Dispatcher
	Mailer     Mailer
	Events     Publisher
	Analytics  PurchaseTracker
	StoreName  string
}

type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderID"`
	OrderNumber   string    `json:"orderNumber"`
	Reference     string    `json:"reference"`
	Email         string    `json:"email"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	Total         string    `json:"total"`
	Items         int       `json:"items"`
	At            time.Time `json:"at"`
}

func newOrderEvent(typ string, o models.Order) OrderEvent {
	return OrderEvent{
		Type:          typ,
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		Reference:     o.PaymentReference,
		Email:         o.Email,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total.StringFixed(2),
		Items:         len(o.Items),
		At:            time.Now().UTC(),
	}
}

func (n *OrderNotifier) OrderPlaced(_ context.Context, order *models.Order) {
	o := *order
	o.Items = append([]models.OrderItem(nil), order.Items...)

	if n.Mailer != nil {
		n.Dispatcher.Enqueue(Job{Name: "order.confirmation_email", Run: func(ctx context.Context) error {
			msg, err := renderConfirmation(n.StoreName, o)
			if err != nil {
				return err
			}
			return n.Mailer.Send(ctx, msg)
		}})
	}
	if n.Analytics != nil {
		n.Dispatcher.Enqueue(Job{Name: "order.analytics_purchase", Run: func(ctx context.Context) error {
			return n.Analytics.TrackPurchase(ctx, o)
		}})
	}
	n.publish("order_created", o)
}

func (n *OrderNotifier) OrderStatusChanged(_ context.Context, order *models.Order) {
	o := *order
	o.Items = append([]models.OrderItem(nil), order.Items...)

	if n.Mailer != nil && (o.Status == models.OrderStatusShipped || o.Status == models.OrderStatusDelivered) {
		n.Dispatcher.Enqueue(Job{Name: "order.status_email", Run: func(ctx context.Context) error {
			msg, err := renderStatus(n.StoreName, o)
			if err != nil {
				return err
			}
			return n.Mailer.Send(ctx, msg)
		}})
	}
	n.publish("order_status_changed", o)
}

func (n *OrderNotifier) publish(typ string, o models.Order) {
	if n.Events == nil {
		return
	}
	ev := newOrderEvent(typ, o)
	n.Dispatcher.Enqueue(Job{Name: "order.event." + typ, Run: func(ctx context.Context) error {
		return n.Events.Publish(ctx, TopicOrderEvents, ev.OrderID, ev)
	}})
}
