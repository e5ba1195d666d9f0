// Package analytics reports purchases to Google Analytics 4.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
)

const defaultEndpoint = "https://www.google-analytics.com"

type GA4 struct {
	MeasurementID string
	APISecret     string
	Endpoint      string
	HTTPClient    *http.Client
}

func NewGA4(measurementID, apiSecret string) *GA4 {
	return &GA4{
		MeasurementID: measurementID,
		APISecret:     apiSecret,
		Endpoint:      defaultEndpoint,
		HTTPClient:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (g *GA4) Enabled() bool { return g != nil && g.MeasurementID != "" && g.APISecret != "" }

type mpItem struct {
	ItemID   string  `json:"item_id"`
	ItemName string  `json:"item_name"`
	ItemVar  string  `json:"item_variant,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type mpEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type mpPayload struct {
	ClientID string    `json:"client_id"`
	UserID   string    `json:"user_id,omitempty"`
	Events   []mpEvent `json:"events"`
}

// TrackPurchase sends a Measurement Protocol purchase event for the order.
func (g *GA4) TrackPurchase(ctx context.Context, o models.Order) error {
	if !g.Enabled() {
		return nil
	}

	items := make([]mpItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, mpItem{
			ItemID:   it.ProductID,
			ItemName: it.ProductName,
			ItemVar:  it.VariantInfo,
			Price:    it.UnitPrice.InexactFloat64(),
			Quantity: it.Quantity,
		})
	}

	payload := mpPayload{
		ClientID: o.ID.String(),
		Events: []mpEvent{{
			Name: "purchase",
			Params: map[string]any{
				"transaction_id": o.OrderNumber,
				"value":          o.Total.InexactFloat64(),
				"currency":       o.Currency,
				"items":          items,
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ga4: encode: %w", err)
	}

	q := url.Values{}
	q.Set("measurement_id", g.MeasurementID)
	q.Set("api_secret", g.APISecret)
	endpoint := strings.TrimRight(g.Endpoint, "/") + "/mp/collect?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ga4: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ga4: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ga4: collect failed with status: %d", resp.StatusCode)
	}
	return nil
}
