package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
)

func (r *GormRepo) CreateSession(ctx context.Context, s *models.CashierSession) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *GormRepo) GetSessionByToken(ctx context.Context, token string) (*models.CashierSession, error) {
	var s models.CashierSession
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) DeleteSessionByToken(ctx context.Context, token string) (int64, error) {
	res := r.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.CashierSession{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteSessionsForCashier(ctx context.Context, cashierID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Where("cashier_id = ?", cashierID).Delete(&models.CashierSession{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.CashierSession{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.CashierSession{}).Count(&n).Error
	return n, err
}
