package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

func order() models.Order {
	return models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-1",
		Currency:    "NGN",
		Total:       decimal.NewFromInt(5000),
		Items: []models.OrderItem{{
			ProductID: "1", ProductName: "Shirt", Quantity: 2,
			UnitPrice: decimal.NewFromInt(2500), TotalPrice: decimal.NewFromInt(5000),
		}},
	}
}

func TestGA4_TrackPurchase(t *testing.T) {
	var got mpPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mp/collect", r.URL.Path)
		assert.Equal(t, "G-TEST", r.URL.Query().Get("measurement_id"))
		assert.Equal(t, "secret", r.URL.Query().Get("api_secret"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := NewGA4("G-TEST", "secret")
	g.Endpoint = srv.URL

	require.NoError(t, g.TrackPurchase(context.Background(), order()))
	require.Len(t, got.Events, 1)
	assert.Equal(t, "purchase", got.Events[0].Name)
	assert.Equal(t, "ORD-1", got.Events[0].Params["transaction_id"])
	assert.EqualValues(t, 5000, got.Events[0].Params["value"])
}

func TestGA4_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewGA4("G-TEST", "secret")
	g.Endpoint = srv.URL
	assert.ErrorContains(t, g.TrackPurchase(context.Background(), order()), "400")

	assert.NoError(t, NewGA4("", "").TrackPurchase(context.Background(), order()))
}
