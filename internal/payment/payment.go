// Package payment holds the provider-neutral view of a verified transaction.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var ErrNoMetadata = errors.New("transaction has no metadata")

// Result is the normalised answer to "did this reference get paid".
type Result struct {
	Reference string
	Status    Status
	// AmountMinor is the paid amount in the currency's smallest unit.
	AmountMinor int64
	Currency    string
	Channel     string
	Message     string
	RawMetadata json.RawMessage
	Raw         json.RawMessage
}

func (r *Result) Succeeded() bool { return r != nil && r.Status == StatusSucceeded }

func (r *Result) Amount() decimal.Decimal { return MinorToMajor(r.AmountMinor) }

func (r *Result) Metadata() (Metadata, error) { return DecodeMetadata(r.RawMetadata) }

type Verifier interface {
	Verify(ctx context.Context, reference string) (*Result, error)
}

type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size,omitempty"`
	Color    string `json:"color,omitempty"`
	// Price is the unit price in minor units captured at checkout.
	Price *int64 `json:"price,omitempty"`
}

func (i Item) Variant() string {
	var parts []string
	if i.Size != "" {
		parts = append(parts, "Size: "+i.Size)
	}
	if i.Color != "" {
		parts = append(parts, "Color: "+i.Color)
	}
	return strings.Join(parts, ", ")
}

type Metadata struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Items     []Item `json:"items"`
}

func (m Metadata) Validate() error {
	missing := make([]string, 0, 8)
	for name, v := range map[string]string{
		"email":     m.Email,
		"firstName": m.FirstName,
		"lastName":  m.LastName,
		"phone":     m.Phone,
		"address":   m.Address,
		"city":      m.City,
		"state":     m.State,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("metadata missing %s", strings.Join(missing, ", "))
	}
	if len(m.Items) == 0 {
		return errors.New("metadata has no items")
	}
	for i, it := range m.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("metadata item %d has quantity %d", i, it.Quantity)
		}
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("metadata item %d has no name", i)
		}
		if it.Price != nil && *it.Price < 0 {
			return fmt.Errorf("metadata item %d has negative price", i)
		}
	}
	return nil
}

// DecodeMetadata accepts the metadata either as an object or as a JSON string
// holding the object, since providers echo back whatever form they were given.
func DecodeMetadata(raw json.RawMessage) (Metadata, error) {
	var m Metadata
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte(`""`)) {
		return m, ErrNoMetadata
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return m, fmt.Errorf("decode metadata string: %w", err)
		}
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func MajorToMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
