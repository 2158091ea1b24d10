package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
)

type InvoiceHTTP struct {
	Svc *service.InvoiceService
}

func (h *InvoiceHTTP) ByOrderNumber(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "invoices.by_order")

	inv, err := h.Svc.GetInvoiceByOrderNumber(ctx, c.Param("orderNumber"))
	if err != nil {
		return fail(l, "get_invoice", err)
	}
	return ok(c, http.StatusOK, "Invoice retrieved", inv)
}

func (h *InvoiceHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "invoices.get")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "get_invoice", err)
	}
	inv, err := h.Svc.GetInvoice(ctx, id)
	if err != nil {
		return fail(l, "get_invoice", err)
	}
	return ok(c, http.StatusOK, "Invoice retrieved", inv)
}

// PDF streams the rendered invoice as a download.
func (h *InvoiceHTTP) PDF(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "invoices.pdf")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "invoice_pdf", err)
	}
	body, doc, err := h.Svc.InvoicePDF(ctx, id)
	if err != nil {
		return fail(l, "invoice_pdf", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.InvoiceNumber+".pdf"))
	return c.Blob(http.StatusOK, "application/pdf", body)
}
