package qrpay

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const imageSize = 200

var ErrInvalidPayload = errors.New("invalid qr payload")

type Config struct {
	Secret   []byte
	Merchant string
	Currency string
	TTL      time.Duration
}

// Signer issues and verifies QR payment payloads of the form
// order_number=..&amount=..&merchant=..&currency=..&ref=<jwt>. The ref token
// binds the order number and amount so a payload cannot be replayed against
// another order or edited.
type Signer struct {
	cfg Config
	now func() time.Time
}

type refClaims struct {
	OrderNumber string `json:"ord"`
	Amount      string `json:"amt"`
	Currency    string `json:"cur"`
	jwt.RegisteredClaims
}

func NewSigner(cfg Config) *Signer {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &Signer{cfg: cfg, now: time.Now}
}

func (s *Signer) Merchant() string { return s.cfg.Merchant }
func (s *Signer) Currency() string { return s.cfg.Currency }

func (s *Signer) Payload(orderNumber string, amount decimal.Decimal) (string, error) {
	now := s.now()
	claims := refClaims{
		OrderNumber: orderNumber,
		Amount:      amount.StringFixed(2),
		Currency:    s.cfg.Currency,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Merchant,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}
	ref, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign qr reference: %w", err)
	}

	return strings.Join([]string{
		"order_number=" + url.QueryEscape(orderNumber),
		"amount=" + amount.StringFixed(2),
		"merchant=" + url.QueryEscape(s.cfg.Merchant),
		"currency=" + url.QueryEscape(s.cfg.Currency),
		"ref=" + ref,
	}, "&"), nil
}

// Verify checks that payload was issued by this signer for orderNumber and
// amount and has not expired.
func (s *Signer) Verify(payload, orderNumber string, amount decimal.Decimal) error {
	vals, err := url.ParseQuery(strings.TrimSpace(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	want := map[string]string{
		"order_number": orderNumber,
		"amount":       amount.StringFixed(2),
		"merchant":     s.cfg.Merchant,
		"currency":     s.cfg.Currency,
	}
	for k, v := range want {
		if vals.Get(k) != v {
			return fmt.Errorf("%w: %s mismatch", ErrInvalidPayload, k)
		}
	}

	var claims refClaims
	_, err = jwt.ParseWithClaims(vals.Get("ref"), &claims,
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Merchant),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if claims.OrderNumber != orderNumber || claims.Amount != want["amount"] || claims.Currency != s.cfg.Currency {
		return fmt.Errorf("%w: reference does not match order", ErrInvalidPayload)
	}
	return nil
}

// Image renders payload as a PNG data URI.
func Image(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, imageSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
