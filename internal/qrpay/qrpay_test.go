package qrpay

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner() *Signer {
	return NewSigner(Config{
		Secret:   []byte("test-qr-secret"),
		Merchant: "ChopChop Restaurant",
		Currency: "IDR",
		TTL:      time.Minute,
	})
}

func TestSigner_PayloadShape(t *testing.T) {
	s := newTestSigner()

	payload, err := s.Payload("ORD-20250101-ABC123", decimal.NewFromInt(15000))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(payload,
		"order_number=ORD-20250101-ABC123&amount=15000.00&merchant=ChopChop+Restaurant&currency=IDR&ref="))
}

func TestSigner_Verify(t *testing.T) {
	s := newTestSigner()
	amount := decimal.NewFromInt(15000)
	payload, err := s.Payload("ORD-1", amount)
	require.NoError(t, err)

	require.NoError(t, s.Verify(payload, "ORD-1", amount))

	tests := []struct {
		name    string
		payload string
		order   string
		amount  decimal.Decimal
	}{
		{"other order", payload, "ORD-2", amount},
		{"other amount", payload, "ORD-1", decimal.NewFromInt(1)},
		{"tampered amount", strings.Replace(payload, "amount=15000.00", "amount=1.00", 1), "ORD-1", decimal.NewFromInt(1)},
		{"missing ref", "order_number=ORD-1&amount=15000.00&merchant=ChopChop+Restaurant&currency=IDR", "ORD-1", amount},
		{"garbage", "%%%", "ORD-1", amount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Verify(tt.payload, tt.order, tt.amount), ErrInvalidPayload)
		})
	}
}

func TestSigner_VerifyExpired(t *testing.T) {
	s := newTestSigner()
	issued := time.Now().Add(-time.Hour)
	s.now = func() time.Time { return issued }
	payload, err := s.Payload("ORD-1", decimal.NewFromInt(10))
	require.NoError(t, err)

	s.now = time.Now
	assert.ErrorIs(t, s.Verify(payload, "ORD-1", decimal.NewFromInt(10)), ErrInvalidPayload)
}

func TestImage(t *testing.T) {
	uri, err := Image("order_number=ORD-1&amount=1.00")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}
