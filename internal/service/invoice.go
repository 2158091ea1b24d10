package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/chopchop_pos/internal/invoicedoc"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
)

const InvoiceNumberPrefix = "INV-"

var TaxRate = decimal.NewFromFloat(0.10)

type InvoiceService struct {
	Repo *repo.GormRepo
	Now  Clock
}

// GenerateInvoice returns the order's invoice, creating it on first call.
// The invoice carries the order's creation time.
func (s *InvoiceService) GenerateInvoice(ctx context.Context, order *models.Order, cashierID *uint) (*models.Invoice, error) {
	if order == nil || order.ID == 0 {
		return nil, fmt.Errorf("%w: order is required", ErrValidation)
	}

	var inv *models.Invoice
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		existing, err := tx.GetInvoiceByOrder(ctx, order.ID)
		if err == nil {
			inv = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		tax := order.Total.Mul(TaxRate).Round(2)
		inv = &models.Invoice{
			InvoiceNumber: newNumber(InvoiceNumberPrefix, s.Now.now()),
			OrderID:       order.ID,
			CashierID:     cashierID,
			TotalAmount:   order.Total,
			TaxAmount:     tax,
			PaymentMethod: order.PaymentMethod,
			CreatedAt:     order.CreatedAt,
		}
		return tx.CreateInvoice(ctx, inv)
	})
	if err != nil {
		if isDuplicate(err) {
			// Lost a race with a concurrent generator for the same order.
			existing, gerr := s.Repo.GetInvoiceByOrder(ctx, order.ID)
			if gerr == nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("generate invoice for order %d: %w", order.ID, err)
	}
	return inv, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	inv, err := s.Repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, repoErr(err, "invoice %d", id)
	}
	return inv, nil
}

func (s *InvoiceService) GetInvoiceByOrderNumber(ctx context.Context, orderNumber string) (*models.Invoice, error) {
	order, err := s.Repo.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, repoErr(err, "order %s", orderNumber)
	}
	inv, err := s.Repo.GetInvoiceByOrder(ctx, order.ID)
	if err != nil {
		return nil, repoErr(err, "invoice for order %s", orderNumber)
	}
	return inv, nil
}

// Document assembles the printable layout of an invoice.
func (s *InvoiceService) Document(ctx context.Context, id uint) (*invoicedoc.Document, error) {
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	order, err := s.Repo.GetOrder(ctx, inv.OrderID)
	if err != nil {
		return nil, repoErr(err, "order %d", inv.OrderID)
	}
	items, err := s.Repo.OrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	doc := &invoicedoc.Document{
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.CreatedAt,
		OrderNumber:   order.OrderNumber,
		CustomerName:  order.CustomerName,
		PaymentMethod: string(inv.PaymentMethod),
		Subtotal:      inv.TotalAmount,
		Tax:           inv.TaxAmount,
		Total:         inv.FinalAmount,
	}
	if inv.CashierID != nil {
		cashier, err := s.Repo.GetCashier(ctx, *inv.CashierID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if cashier != nil {
			doc.CashierName = cashier.DisplayName
		}
	}
	for _, it := range items {
		doc.Items = append(doc.Items, invoicedoc.Line{Name: it.MenuName, Quantity: it.Quantity, Subtotal: it.Subtotal()})
	}
	return doc, nil
}

func (s *InvoiceService) InvoicePDF(ctx context.Context, id uint) ([]byte, *invoicedoc.Document, error) {
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	out, err := doc.PDF()
	if err != nil {
		return nil, nil, err
	}
	return out, doc, nil
}
