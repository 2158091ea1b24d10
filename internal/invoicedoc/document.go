package invoicedoc

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	CurrencySymbol   = "Rp"
	SelfServiceLabel = "Self-Service"
)

type Line struct {
	Name     string
	Quantity int
	Subtotal decimal.Decimal
}

type Document struct {
	InvoiceNumber string
	Date          time.Time
	CashierName   string
	OrderNumber   string
	CustomerName  string
	PaymentMethod string
	Items         []Line
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
}

func Money(d decimal.Decimal) string {
	return CurrencySymbol + " " + d.StringFixed(2)
}

// Lines is the plain-text layout shared by the text and PDF renderings.
func (d Document) Lines() []string {
	cashier := d.CashierName
	if cashier == "" {
		cashier = SelfServiceLabel
	}
	customer := d.CustomerName
	if customer == "" {
		customer = "-"
	}
	method := d.PaymentMethod
	if method == "" {
		method = "-"
	}

	out := []string{
		"INVOICE: " + d.InvoiceNumber,
		"Date: " + d.Date.Local().Format("2006-01-02 15:04"),
		"Cashier: " + cashier,
		"Order: " + d.OrderNumber,
		"Customer: " + customer,
		"Payment Method: " + method,
		"",
		"Items:",
	}
	for _, it := range d.Items {
		out = append(out, fmt.Sprintf("- %s x%d = %s", it.Name, it.Quantity, Money(it.Subtotal)))
	}
	out = append(out,
		"",
		"Subtotal: "+Money(d.Subtotal),
		"Tax (10%): "+Money(d.Tax),
		"Total: "+Money(d.Total),
	)
	return out
}

func (d Document) Text() string {
	return strings.Join(d.Lines(), "\n") + "\n"
}

// PDF renders the text layout on an A5 page in a monospace font.
func (d Document) PDF() ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Invoice "+d.InvoiceNumber, true)
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, line := range d.Lines() {
		switch {
		case i == 0:
			pdf.SetFont("Courier", "B", 13)
		case strings.HasPrefix(line, "Total:"):
			pdf.SetFont("Courier", "B", 10)
		default:
			pdf.SetFont("Courier", "", 10)
		}
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
