package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/auth"
	"github.com/Skotchmaster/chopchop_pos/internal/realtime"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

type PaymentHTTP struct {
	Svc      *service.PaymentService
	Invoices *service.InvoiceService
	Notify   *Notifier
}

// Pay settles an order and issues its invoice on behalf of the session
// cashier.
func (h *PaymentHTTP) Pay(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.pay")

	var req transport.PaymentRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "payment", err)
	}
	res, err := h.Svc.Pay(ctx, req)
	if err != nil {
		return fail(l, "payment", err)
	}

	cashierID := auth.CashierID(c)
	inv, err := h.Invoices.GenerateInvoice(ctx, res.Order, &cashierID)
	if err != nil {
		return fail(l, "generate_invoice", err)
	}

	h.Notify.OrderChanged(ctx, realtime.EventOrderPaid, res.Order)
	l.Info("payment_processed",
		"order_number", res.Order.OrderNumber,
		"method", res.Order.PaymentMethod,
		"invoice_number", inv.InvoiceNumber,
	)
	return ok(c, http.StatusOK, "Payment processed successfully", transport.PaymentResponse{
		Order:   *res.Order,
		Invoice: inv,
		Change:  res.Change,
	})
}
