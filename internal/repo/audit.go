package repo

import (
	"context"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
)

func (r *GormRepo) AppendAuditLog(ctx context.Context, l *models.MenuAuditLog) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *GormRepo) RecentAuditLogs(ctx context.Context, offset, limit int) (int64, []models.MenuAuditLog, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.MenuAuditLog{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var rows []models.MenuAuditLog
	if err := r.DB.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		return 0, nil, err
	}
	return total, rows, nil
}

func (r *GormRepo) AuditLogsForMenu(ctx context.Context, menuID uint) ([]models.MenuAuditLog, error) {
	var rows []models.MenuAuditLog
	if err := r.DB.WithContext(ctx).Where("menu_id = ?", menuID).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *GormRepo) AuditLogsByCashier(ctx context.Context, cashierID uint) ([]models.MenuAuditLog, error) {
	var rows []models.MenuAuditLog
	if err := r.DB.WithContext(ctx).Where("cashier_id = ?", cashierID).Order("id DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
