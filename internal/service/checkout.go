package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/paystack"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type PaymentInitializer interface {
	Initialize(ctx context.Context, in paystack.InitializeRequest) (*paystack.InitializeResponse, error)
}

type CheckoutService struct {
	Repo        *repo.GormRepo
	Payments    PaymentInitializer
	CallbackURL string
	Currency    string
}

type CheckoutInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	City      string
	State     string
	Items     []CheckoutItem
}

type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
	Size      string
	Color     string
}

type CheckoutResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
	Amount           decimal.Decimal
}

func NewReference() string { return "ref_" + uuid.NewString() }

// Initialize prices the cart from the catalog, snapshots it into the payment
// metadata and opens a hosted checkout with the provider.
func (s *CheckoutService) Initialize(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.initialize")

	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	ids := make([]uuid.UUID, 0, len(in.Items))
	for i, it := range in.Items {
		if it.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: item %d: product_id required", ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d: quantity must be > 0", ErrValidation, i)
		}
		ids = append(ids, it.ProductID)
	}

	products, err := s.Repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	meta := payment.Metadata{
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   strings.TrimSpace(in.Address),
		City:      strings.TrimSpace(in.City),
		State:     strings.TrimSpace(in.State),
		Items:     make([]payment.Item, 0, len(in.Items)),
	}

	var amount int64
	for _, it := range in.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown product %s", ErrValidation, it.ProductID)
		}
		price := payment.MajorToMinor(p.Price)
		amount += price * int64(it.Quantity)
		meta.Items = append(meta.Items, payment.Item{
			ID:       p.ID.String(),
			Name:     p.Name,
			Quantity: it.Quantity,
			Size:     strings.TrimSpace(it.Size),
			Color:    strings.TrimSpace(it.Color),
			Price:    &price,
		})
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	ref := NewReference()
	resp, err := s.Payments.Initialize(ctx, paystack.InitializeRequest{
		Email:       meta.Email,
		AmountMinor: amount,
		Reference:   ref,
		CallbackURL: s.CallbackURL,
		Currency:    s.Currency,
		Metadata:    meta,
	})
	if err != nil {
		l.Error("initialize_error", "reference", ref, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.Reference != "" {
		ref = resp.Reference
	}
	l.Info("initialize_success", "reference", ref, "amount_minor", amount, "items", len(meta.Items))
	return &CheckoutResult{
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
		Reference:        ref,
		Amount:           payment.MinorToMajor(amount),
	}, nil
}
