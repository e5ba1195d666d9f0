// Package paystack talks to the Paystack transaction API.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/pkg/config"
)

const defaultBaseURL = "https://api.paystack.co"

var ErrProvider = errors.New("paystack request failed")

type Client struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.PaystackConfig) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		secretKey: cfg.SecretKey,
		baseURL:   base,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type transaction struct {
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	GatewayResponse string          `json:"gateway_response"`
	Metadata        json.RawMessage `json:"metadata"`
}

// Verify asks Paystack for the state of reference. A transaction the provider
// reports as unknown or unsuccessful is a failed Result, not an error; errors
// are reserved for transport problems and unreadable responses.
func (c *Client) Verify(ctx context.Context, reference string) (*payment.Result, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode verify response: %v", ErrProvider, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		return &payment.Result{Reference: reference, Status: payment.StatusFailed, Message: env.Message, Raw: body}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: verify status %d: %s", ErrProvider, resp.StatusCode, env.Message)
	}

	if !env.Status || len(env.Data) == 0 {
		return &payment.Result{Reference: reference, Status: payment.StatusFailed, Message: env.Message, Raw: body}, nil
	}

	var tx transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, fmt.Errorf("%w: decode transaction: %v", ErrProvider, err)
	}
	if tx.Reference != "" && tx.Reference != reference {
		return nil, fmt.Errorf("%w: verify returned reference %q for %q", ErrProvider, tx.Reference, reference)
	}

	res := &payment.Result{
		Reference:   reference,
		Status:      payment.StatusFailed,
		AmountMinor: tx.Amount,
		Currency:    tx.Currency,
		Channel:     tx.Channel,
		Message:     tx.GatewayResponse,
		RawMetadata: tx.Metadata,
		Raw:         body,
	}
	if tx.Status == "success" {
		res.Status = payment.StatusSucceeded
	}
	return res, nil
}

type InitializeRequest struct {
	Email       string           `json:"email"`
	AmountMinor int64            `json:"amount"`
	Reference   string           `json:"reference"`
	CallbackURL string           `json:"callback_url,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	Metadata    payment.Metadata `json:"metadata"`
}

type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

func (c *Client) Initialize(ctx context.Context, in InitializeRequest) (*InitializeResponse, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}

	resp, body, err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode initialize response: %v", ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Status {
		return nil, fmt.Errorf("%w: initialize status %d: %s", ErrProvider, resp.StatusCode, env.Message)
	}

	var out InitializeResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode initialize data: %v", ErrProvider, err)
	}
	if out.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: initialize returned no authorization url", ErrProvider)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read body: %v", ErrProvider, err)
	}
	return resp, body, nil
}
