package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
)

func (r *GormRepo) GetCashier(ctx context.Context, id uint) (*models.Cashier, error) {
	var c models.Cashier
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) GetCashierByUsername(ctx context.Context, username string) (*models.Cashier, error) {
	var c models.Cashier
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) CashiersByIDs(ctx context.Context, ids []uint) (map[uint]models.Cashier, error) {
	out := make(map[uint]models.Cashier, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Cashier
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

func (r *GormRepo) ListCashiers(ctx context.Context) ([]models.Cashier, error) {
	var rows []models.Cashier
	if err := r.DB.WithContext(ctx).Order("username ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormRepo) CreateCashier(ctx context.Context, c *models.Cashier) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) SaveCashier(ctx context.Context, c *models.Cashier) error {
	return r.DB.WithContext(ctx).Save(c).Error
}

func (r *GormRepo) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.Cashier{}).Where("id = ?", id).Update("last_login_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
