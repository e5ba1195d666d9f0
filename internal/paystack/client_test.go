package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/pkg/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.PaystackConfig{SecretKey: "sk_test", BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestVerify_Success(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/ref_123", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"status":true,"message":"Verification successful","data":{
			"status":"success","reference":"ref_123","amount":500000,"currency":"NGN","channel":"card",
			"metadata":{"email":"a@b.com","firstName":"A","lastName":"B","phone":"000","address":"X","city":"Y","state":"Z",
			"items":[{"id":"1","name":"Shirt","quantity":2,"price":250000}]}}}`)
	})

	res, err := c.Verify(context.Background(), "ref_123")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.EqualValues(t, 500000, res.AmountMinor)
	assert.Equal(t, "5000", res.Amount().String())
	assert.Equal(t, "card", res.Channel)

	meta, err := res.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", meta.Email)
	require.Len(t, meta.Items, 1)
}

func TestVerify_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		failed bool
		errIs  error
	}{
		{name: "abandoned", status: 200, body: `{"status":true,"data":{"status":"abandoned","reference":"r"}}`, failed: true},
		{name: "not found", status: 400, body: `{"status":false,"message":"Transaction reference not found"}`, failed: true},
		{name: "server error", status: 502, body: `{"status":false,"message":"upstream"}`, errIs: ErrProvider},
		{name: "unauthorized", status: 401, body: `{"status":false,"message":"Invalid key"}`, errIs: ErrProvider},
		{name: "garbage", status: 200, body: `<html>`, errIs: ErrProvider},
		{name: "wrong reference", status: 200, body: `{"status":true,"data":{"status":"success","reference":"other"}}`, errIs: ErrProvider},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			res, err := c.Verify(context.Background(), "r")
			if tt.errIs != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.errIs))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, payment.StatusFailed, res.Status)
		})
	}
}

func TestVerify_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(config.PaystackConfig{SecretKey: "sk", BaseURL: srv.URL, Timeout: time.Second})

	_, err := c.Verify(context.Background(), "r")
	assert.ErrorIs(t, err, ErrProvider)
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	price := int64(250000)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)

		var got map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.EqualValues(t, 500000, got["amount"])
		assert.Equal(t, "ref_1", got["reference"])
		meta := got["metadata"].(map[string]any)
		assert.Equal(t, "A", meta["firstName"])

		_, _ = io.WriteString(w, `{"status":true,"data":{"authorization_url":"https://checkout.paystack.com/x","access_code":"x","reference":"ref_1"}}`)
	})

	out, err := c.Initialize(context.Background(), InitializeRequest{
		Email:       "a@b.com",
		AmountMinor: 500000,
		Reference:   "ref_1",
		Currency:    "NGN",
		Metadata: payment.Metadata{
			Email: "a@b.com", FirstName: "A",
			Items: []payment.Item{{ID: "1", Name: "Shirt", Quantity: 2, Price: &price}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/x", out.AuthorizationURL)

	bad := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status":false,"message":"Duplicate Transaction Reference"}`)
	})
	_, err = bad.Initialize(context.Background(), InitializeRequest{Reference: "ref_1"})
	assert.ErrorIs(t, err, ErrProvider)
}
