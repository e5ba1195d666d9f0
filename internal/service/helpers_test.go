package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

func newRepo(t *testing.T) (*repo.GormRepo, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return repo.NewGormRepo(db), db
}

func newNumbers(t *testing.T) *snowflake.Node {
	t.Helper()
	n, err := NewOrderNumbers(1)
	require.NoError(t, err)
	return n
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func seedProduct(t *testing.T, r *repo.GormRepo, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Slug: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "tops"}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

type fakeVerifier struct {
	mu       sync.Mutex
	calls    int
	res      *payment.Result
	err      error
	onVerify func()
}

func (f *fakeVerifier) Verify(_ context.Context, reference string) (*payment.Result, error) {
	f.mu.Lock()
	f.calls++
	hook := f.onVerify
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.Reference = reference
	return &res, nil
}

func (f *fakeVerifier) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNotifier struct {
	mu      sync.Mutex
	placed  []string
	changed []string
}

func (n *recordingNotifier) OrderPlaced(_ context.Context, o *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, o.PaymentReference)
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, o *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, o.Status)
}

func (n *recordingNotifier) Placed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.placed...)
}

func succeeded(t *testing.T, amountMinor int64, meta any) *payment.Result {
	t.Helper()
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	return &payment.Result{
		Status:      payment.StatusSucceeded,
		AmountMinor: amountMinor,
		Currency:    "NGN",
		Channel:     "card",
		RawMetadata: raw,
		Raw:         json.RawMessage(`{"status":"success"}`),
	}
}

func shirtMetadata() map[string]any {
	return map[string]any{
		"email":     "a@b.com",
		"firstName": "A",
		"lastName":  "B",
		"phone":     "000",
		"address":   "X",
		"city":      "Y",
		"state":     "Z",
		"items": []map[string]any{
			{"id": "1", "name": "Shirt", "quantity": 2, "price": 250000},
		},
	}
}
