package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

func seedOrder(t *testing.T, r *repo.GormRepo, ref, number, email string, paid bool) *models.Order {
	t.Helper()
	status := models.PaymentStatusPaid
	if !paid {
		status = models.PaymentStatusPending
	}
	o := &models.Order{
		OrderNumber: number, Email: email, FirstName: "A", LastName: "B",
		Status: models.OrderStatusProcessing, PaymentStatus: status, PaymentReference: ref,
		Subtotal: decimal.NewFromInt(100), Total: decimal.NewFromInt(100),
		Items: []models.OrderItem{{ProductID: "1", ProductName: "Shirt", Quantity: 1, UnitPrice: decimal.NewFromInt(100), TotalPrice: decimal.NewFromInt(100)}},
	}
	require.NoError(t, r.CreateOrderWithItems(context.Background(), o))
	return o
}

func TestOrders_TrackAndLookup(t *testing.T) {
	t.Parallel()

	r, _ := newRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()
	o := seedOrder(t, r, "ref_1", "ORD-1", "a@b.com", true)

	got, err := svc.Track(ctx, "ORD-1", "A@B.COM")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	require.Len(t, got.Items, 1)

	_, err = svc.Track(ctx, "ORD-1", "other@b.com")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Track(ctx, "", "a@b.com")
	require.ErrorIs(t, err, ErrValidation)

	got, err = svc.ByReference(ctx, "ref_1")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", got.OrderNumber)
	_, err = svc.ByReference(ctx, "ref_missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	seedOrder(t, r, "ref_2", "ORD-2", "someone@else.com", true)
	total, mine, err := svc.ListForEmail(ctx, "a@b.com", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "ORD-1", mine[0].OrderNumber)

	_, _, err = svc.List(ctx, repo.OrderFilter{Status: "lost"}, 0, 10)
	require.ErrorIs(t, err, ErrValidation)
}

func TestOrders_UpdateStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    []string
		wantErr error
	}{
		{name: "ship then deliver", path: []string{"shipped", "delivered"}},
		{name: "cancel while processing", path: []string{"cancelled"}},
		{name: "deliver before shipping", path: []string{"delivered"}, wantErr: ErrInvalidTransition},
		{name: "cancel after shipping", path: []string{"shipped", "cancelled"}, wantErr: ErrInvalidTransition},
		{name: "processing again", path: []string{"processing"}, wantErr: ErrInvalidTransition},
		{name: "unknown status", path: []string{"lost"}, wantErr: ErrValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _ := newRepo(t)
			n := &recordingNotifier{}
			svc := &OrderService{Repo: r, Notifier: n}
			o := seedOrder(t, r, "ref_1", "ORD-1", "a@b.com", true)

			var (
				got *models.Order
				err error
			)
			for _, st := range tt.path {
				got, err = svc.UpdateStatus(context.Background(), o.ID, st)
				if err != nil {
					break
				}
			}
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.path[len(tt.path)-1], got.Status)
			assert.Equal(t, tt.path, n.changed)
			require.Len(t, got.Items, 1)
			if got.Status == models.OrderStatusDelivered {
				require.NotNil(t, got.ShippedAt)
				require.NotNil(t, got.DeliveredAt)
			}
		})
	}

	t.Run("missing order", func(t *testing.T) {
		t.Parallel()
		r, _ := newRepo(t)
		svc := &OrderService{Repo: r}
		_, err := svc.UpdateStatus(context.Background(), uuid.New(), "shipped")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestOrders_StatsAndEvents(t *testing.T) {
	t.Parallel()

	r, _ := newRepo(t)
	svc := &OrderService{Repo: r}
	ctx := context.Background()
	seedOrder(t, r, "ref_1", "ORD-1", "a@b.com", true)
	seedOrder(t, r, "ref_2", "ORD-2", "a@b.com", false)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Orders)
	assert.Equal(t, int64(1), stats.PaidOrders)
	assert.True(t, stats.Revenue.Equal(decimal.NewFromInt(100)), stats.Revenue.String())

	require.NoError(t, r.AppendPaymentEvent(ctx, &models.PaymentEvent{Reference: "ref_1", Source: SourceWebhook, Outcome: OutcomeCreated}))
	require.NoError(t, r.AppendPaymentEvent(ctx, &models.PaymentEvent{Reference: "ref_9", Source: SourceCallback, Outcome: OutcomePaymentFailed}))

	total, evs, err := svc.PaymentEvents(ctx, " ref_1 ", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, OutcomeCreated, evs[0].Outcome)
}
