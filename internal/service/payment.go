package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/qrpay"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

type PaymentService struct {
	Orders *OrderService
	QR     *qrpay.Signer
}

type PaymentResult struct {
	Order  *models.Order
	Change decimal.Decimal
}

// Change is what the cashier hands back for a cash payment, never negative.
func Change(tendered, total decimal.Decimal) decimal.Decimal {
	diff := tendered.Sub(total)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// Pay dispatches on the requested payment method.
func (s *PaymentService) Pay(ctx context.Context, req transport.PaymentRequest) (*PaymentResult, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	switch req.PaymentMethod {
	case models.PaymentMethodCash:
		if req.AmountPaid == nil {
			return nil, FieldErrors{"amountPaid": "amountPaid is required for cash payments"}
		}
		return s.ProcessCashPayment(ctx, req.OrderNumber, *req.AmountPaid)
	default:
		if req.QRData == "" {
			return nil, FieldErrors{"qrData": "qrData is required for QR payments"}
		}
		return s.ProcessQRPayment(ctx, req.OrderNumber, req.QRData)
	}
}

// ProcessCashPayment marks the order paid regardless of the amount tendered.
func (s *PaymentService) ProcessCashPayment(ctx context.Context, orderNumber string, tendered decimal.Decimal) (*PaymentResult, error) {
	order, err := s.Orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	paid, err := s.Orders.ProcessPayment(ctx, order.ID, models.PaymentMethodCash)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Order: paid, Change: Change(tendered, paid.Total)}, nil
}

func (s *PaymentService) ProcessQRPayment(ctx context.Context, orderNumber, qrData string) (*PaymentResult, error) {
	order, err := s.Orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if err := s.QR.Verify(qrData, order.OrderNumber, order.Total); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusinessRule, err)
	}
	paid, err := s.Orders.ProcessPayment(ctx, order.ID, models.PaymentMethodQRCode)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Order: paid, Change: decimal.Zero}, nil
}

// GeneratePaymentQRCode encodes the order number, amount, merchant and
// currency and renders them as a PNG data URI.
func (s *PaymentService) GeneratePaymentQRCode(order *models.Order) (*transport.QRCodeResponse, error) {
	payload, err := s.QR.Payload(order.OrderNumber, order.Total)
	if err != nil {
		return nil, err
	}
	img, err := qrpay.Image(payload)
	if err != nil {
		return nil, err
	}
	return &transport.QRCodeResponse{
		OrderNumber: order.OrderNumber,
		Amount:      order.Total,
		Payload:     payload,
		Image:       img,
	}, nil
}
