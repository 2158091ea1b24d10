package repo

import (
	"context"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
)

func (r *GormRepo) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return r.DB.WithContext(ctx).Create(inv).Error
}

func (r *GormRepo) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.DB.WithContext(ctx).First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormRepo) GetInvoiceByOrder(ctx context.Context, orderID uint) (*models.Invoice, error) {
	var inv models.Invoice
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *GormRepo) CountInvoices(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Invoice{}).Count(&n).Error
	return n, err
}
