package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	SourceCallback = "callback"
	SourceWebhook  = "webhook"
)

// Payment event outcomes.
const (
	OutcomeCreated         = "created"
	OutcomeDuplicate       = "duplicate"
	OutcomePaymentFailed   = "payment_failed"
	OutcomeVerifyError     = "verify_error"
	OutcomeInvalidMetadata = "invalid_metadata"
	OutcomePersistError    = "persist_error"
)

type OrderEvents interface {
	OrderPlaced(ctx context.Context, order *models.Order)
	OrderStatusChanged(ctx context.Context, order *models.Order)
}

// Attempt is one delivery of a payment reference by the provider.
type Attempt struct {
	Reference string
	Source    string
	Event     string
	Payload   []byte
}

type IngestService struct {
	Repo     *repo.GormRepo
	Verifier payment.Verifier
	Notifier OrderEvents
	Numbers  *snowflake.Node
	Currency string
}

func NewOrderNumbers(nodeID int64) (*snowflake.Node, error) {
	return snowflake.NewNode(nodeID)
}

// Ingest turns a provider reference into a paid order: verify, persist the
// order with its items in one transaction, then queue notifications.
// A reference that already has an order is reported as success with
// created=false and nothing is queued.
func (s *IngestService) Ingest(ctx context.Context, a Attempt) (*models.Order, bool, error) {
	ref := strings.TrimSpace(a.Reference)
	if ref == "" {
		return nil, false, ErrNoReference
	}
	a.Reference = ref
	l := logging.FromContext(ctx).With("svc", "payment.ingest", "reference", ref, "source", a.Source)

	if existing, err := s.Repo.FindOrderByReference(ctx, ref); err == nil {
		s.record(ctx, a, nil, OutcomeDuplicate, nil)
		l.Info("ingest_duplicate", "order_number", existing.OrderNumber)
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	res, err := s.Verifier.Verify(ctx, ref)
	if err != nil {
		s.record(ctx, a, nil, OutcomeVerifyError, err)
		l.Error("ingest_error", "reason", "verification call failed", "error", err)
		return nil, false, fmt.Errorf("verify %s: %w", ref, err)
	}
	if !res.Succeeded() {
		s.record(ctx, a, res, OutcomePaymentFailed, nil)
		l.Warn("ingest_error", "reason", "payment not successful", "message", res.Message)
		return nil, false, fmt.Errorf("%w: %s", ErrPaymentFailed, res.Message)
	}

	meta, err := res.Metadata()
	if err == nil {
		err = meta.Validate()
	}
	if err != nil {
		s.record(ctx, a, res, OutcomeInvalidMetadata, err)
		l.Error("ingest_error", "reason", "unusable metadata", "error", err)
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}

	order := s.buildOrder(ref, res, meta)
	if err := s.Repo.CreateOrderWithItems(ctx, order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, ferr := s.Repo.FindOrderByReference(ctx, ref); ferr == nil {
				s.record(ctx, a, res, OutcomeDuplicate, nil)
				l.Info("ingest_duplicate", "order_number", existing.OrderNumber, "reason", "concurrent delivery")
				return existing, false, nil
			}
		}
		s.record(ctx, a, res, OutcomePersistError, err)
		l.Error("ingest_error", "reason", "cannot persist order", "error", err)
		return nil, false, fmt.Errorf("persist order %s: %w", ref, err)
	}

	s.record(ctx, a, res, OutcomeCreated, nil)
	l.Info("ingest_success", "order_number", order.OrderNumber, "total", order.Total.StringFixed(2), "items", len(order.Items))

	if s.Notifier != nil {
		s.Notifier.OrderPlaced(ctx, order)
	}
	return order, true, nil
}

func (s *IngestService) buildOrder(ref string, res *payment.Result, meta payment.Metadata) *models.Order {
	total := res.Amount()
	items := priceItems(meta.Items, total)

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.TotalPrice)
	}

	method := res.Channel
	if method == "" {
		method = "paystack"
	}
	currency := res.Currency
	if currency == "" {
		currency = s.Currency
	}

	return &models.Order{
		OrderNumber:      "ORD-" + s.Numbers.Generate().String(),
		Email:            strings.ToLower(strings.TrimSpace(meta.Email)),
		FirstName:        meta.FirstName,
		LastName:         meta.LastName,
		Phone:            meta.Phone,
		ShippingAddress:  meta.Address,
		ShippingCity:     meta.City,
		ShippingState:    meta.State,
		Status:           models.OrderStatusProcessing,
		PaymentStatus:    models.PaymentStatusPaid,
		PaymentMethod:    method,
		PaymentReference: ref,
		Currency:         currency,
		Subtotal:         subtotal,
		Total:            total,
		Items:            items,
	}
}

// priceItems snapshots every metadata line into an order item. Lines without a
// price share whatever the priced lines leave of the verified total, split
// evenly per unit.
func priceItems(meta []payment.Item, total decimal.Decimal) []models.OrderItem {
	priced := decimal.Zero
	unpricedUnits := int64(0)
	for _, it := range meta {
		if it.Price != nil {
			priced = priced.Add(payment.MinorToMajor(*it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
		} else {
			unpricedUnits += int64(it.Quantity)
		}
	}

	fallback := decimal.Zero
	if unpricedUnits > 0 {
		rest := total.Sub(priced)
		if rest.IsPositive() {
			fallback = rest.Div(decimal.NewFromInt(unpricedUnits)).Round(2)
		}
	}

	items := make([]models.OrderItem, 0, len(meta))
	for _, it := range meta {
		unit := fallback
		if it.Price != nil {
			unit = payment.MinorToMajor(*it.Price)
		}
		items = append(items, models.OrderItem{
			ProductID:   it.ID,
			ProductName: it.Name,
			VariantInfo: it.Variant(),
			Quantity:    it.Quantity,
			UnitPrice:   unit,
			TotalPrice:  unit.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return items
}

func (s *IngestService) record(ctx context.Context, a Attempt, res *payment.Result, outcome string, cause error) {
	payload := a.Payload
	if len(payload) == 0 && res != nil {
		payload = res.Raw
	}
	ev := &models.PaymentEvent{
		Reference: a.Reference,
		Source:    a.Source,
		Event:     a.Event,
		Outcome:   outcome,
	}
	if len(payload) > 0 && json.Valid(payload) {
		ev.Payload = datatypes.JSON(payload)
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	if err := s.Repo.AppendPaymentEvent(context.WithoutCancel(ctx), ev); err != nil {
		logging.FromContext(ctx).Warn("payment_event_error", "reference", a.Reference, "error", err)
	}
}
