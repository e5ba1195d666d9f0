package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// transitions lists the fulfilment moves an admin may make from each status.
var transitions = map[string][]string{
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
}

func knownStatus(s string) bool {
	switch s {
	case models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered, models.OrderStatusCancelled:
		return true
	}
	return false
}

type OrderService struct {
	Repo     *repo.GormRepo
	Notifier OrderEvents
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// Track finds an order for a guest who knows both its number and the buyer email.
func (s *OrderService) Track(ctx context.Context, number, email string) (*models.Order, error) {
	number, email = strings.TrimSpace(number), strings.TrimSpace(email)
	if number == "" || email == "" {
		return nil, fmt.Errorf("%w: order_number and email required", ErrValidation)
	}
	o, err := s.Repo.FindOrderByNumberAndEmail(ctx, number, email)
	if err != nil {
		return nil, notFound(err, "order")
	}
	return o, nil
}

func (s *OrderService) ByReference(ctx context.Context, reference string) (*models.Order, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: reference required", ErrValidation)
	}
	o, err := s.Repo.FindOrderByReference(ctx, reference)
	if err != nil {
		return nil, notFound(err, "order")
	}
	return o, nil
}

func (s *OrderService) ListForEmail(ctx context.Context, email string, offset, limit int) (int64, []models.Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return 0, nil, fmt.Errorf("%w: account has no email", ErrValidation)
	}
	return s.Repo.ListOrders(ctx, repo.OrderFilter{Email: email}, offset, limit)
}

func (s *OrderService) List(ctx context.Context, f repo.OrderFilter, offset, limit int) (int64, []models.Order, error) {
	if f.Status != "" && !knownStatus(f.Status) {
		return 0, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	return s.Repo.ListOrders(ctx, f, offset, limit)
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order")
	}
	return o, nil
}

// UpdateStatus moves an order along its fulfilment path and stamps the
// shipped/delivered times.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !knownStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	o, err := s.Repo.UpdateOrderStatus(ctx, id, func(o *models.Order, now time.Time) error {
		if !slices.Contains(transitions[o.Status], status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
		}
		o.Status = status
		switch status {
		case models.OrderStatusShipped:
			o.ShippedAt = &now
		case models.OrderStatusDelivered:
			o.DeliveredAt = &now
		}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrStaleOrder):
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return nil, notFound(err, "order")
	}

	logging.FromContext(ctx).Info("order_status_changed", "order_number", o.OrderNumber, "status", o.Status)
	if s.Notifier != nil {
		s.Notifier.OrderStatusChanged(ctx, o)
	}
	return o, nil
}

func (s *OrderService) Stats(ctx context.Context) (*repo.OrderStats, error) {
	return s.Repo.OrderStats(ctx)
}

func (s *OrderService) PaymentEvents(ctx context.Context, reference string, offset, limit int) (int64, []models.PaymentEvent, error) {
	return s.Repo.ListPaymentEvents(ctx, strings.TrimSpace(reference), offset, limit)
}
