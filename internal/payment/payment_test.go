package payment

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metaJSON = `{"email":"a@b.com","firstName":"A","lastName":"B","phone":"000","address":"X","city":"Y","state":"Z","items":[{"id":"1","name":"Shirt","quantity":2,"price":250000,"size":"M"}]}`

func TestDecodeMetadata(t *testing.T) {
	t.Parallel()

	asString, err := json.Marshal(metaJSON)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  json.RawMessage
	}{
		{name: "object", raw: json.RawMessage(metaJSON)},
		{name: "string encoded", raw: json.RawMessage(asString)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := DecodeMetadata(tt.raw)
			require.NoError(t, err)
			require.NoError(t, m.Validate())
			assert.Equal(t, "a@b.com", m.Email)
			require.Len(t, m.Items, 1)
			require.NotNil(t, m.Items[0].Price)
			assert.EqualValues(t, 250000, *m.Items[0].Price)
			assert.Equal(t, "Size: M", m.Items[0].Variant())
		})
	}
}

func TestDecodeMetadata_Empty(t *testing.T) {
	for _, raw := range []string{"", "null", `""`} {
		_, err := DecodeMetadata(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrNoMetadata, raw)
	}
	_, err := DecodeMetadata(json.RawMessage(`{"items":"nope"}`))
	assert.Error(t, err)
}

func TestMetadata_Validate(t *testing.T) {
	m, err := DecodeMetadata(json.RawMessage(metaJSON))
	require.NoError(t, err)

	noPhone := m
	noPhone.Phone = " "
	assert.ErrorContains(t, noPhone.Validate(), "phone")

	noItems := m
	noItems.Items = nil
	assert.Error(t, noItems.Validate())

	zeroQty := m
	zeroQty.Items = []Item{{ID: "1", Name: "Shirt", Quantity: 0}}
	assert.Error(t, zeroQty.Validate())
}

func TestMinorMajor(t *testing.T) {
	assert.True(t, decimal.NewFromInt(5000).Equal(MinorToMajor(500000)))
	assert.True(t, decimal.RequireFromString("12.34").Equal(MinorToMajor(1234)))
	assert.EqualValues(t, 1234, MajorToMinor(decimal.RequireFromString("12.34")))
	assert.EqualValues(t, 250000, MajorToMinor(decimal.NewFromInt(2500)))
}
