package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/chopchop_pos/internal/hash"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

type CashierService struct {
	Repo *repo.GormRepo
}

func (s *CashierService) ListCashiers(ctx context.Context) ([]models.Cashier, error) {
	return s.Repo.ListCashiers(ctx)
}

func (s *CashierService) GetCashier(ctx context.Context, id uint) (*models.Cashier, error) {
	c, err := s.Repo.GetCashier(ctx, id)
	if err != nil {
		return nil, repoErr(err, "cashier %d", id)
	}
	return c, nil
}

func (s *CashierService) CreateCashier(ctx context.Context, req transport.CreateCashierRequest) (*models.Cashier, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.Role == "" {
		req.Role = models.RoleCashier
	}

	pw, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	cashier := models.Cashier{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: pw,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Role:         req.Role,
		Active:       true,
	}

	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		_, err := tx.GetCashierByUsername(ctx, cashier.Username)
		switch {
		case err == nil:
			return fmt.Errorf("%w: username %q is taken", ErrConflict, cashier.Username)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		if err := tx.CreateCashier(ctx, &cashier); err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("%w: username %q is taken", ErrConflict, cashier.Username)
			}
			return fmt.Errorf("create cashier: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cashier, nil
}

func (s *CashierService) UpdateCashier(ctx context.Context, id uint, req transport.UpdateCashierRequest) (*models.Cashier, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	var pw string
	if req.Password != nil {
		var err error
		if pw, err = hash.HashPassword(*req.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	var cashier *models.Cashier
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		cashier, err = tx.GetCashier(ctx, id)
		if err != nil {
			return repoErr(err, "cashier %d", id)
		}
		if req.DisplayName != nil {
			cashier.DisplayName = strings.TrimSpace(*req.DisplayName)
		}
		if req.Role != nil {
			cashier.Role = *req.Role
		}
		if pw != "" {
			cashier.PasswordHash = pw
		}
		return tx.SaveCashier(ctx, cashier)
	})
	if err != nil {
		return nil, err
	}
	return cashier, nil
}

// SetActive toggles the account. Deactivation also ends all of its sessions.
func (s *CashierService) SetActive(ctx context.Context, id uint, active bool) (*models.Cashier, error) {
	var cashier *models.Cashier
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		cashier, err = tx.GetCashier(ctx, id)
		if err != nil {
			return repoErr(err, "cashier %d", id)
		}
		cashier.Active = active
		if err := tx.SaveCashier(ctx, cashier); err != nil {
			return err
		}
		if !active {
			_, err = tx.DeleteSessionsForCashier(ctx, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return cashier, nil
}

// EnsureAdmin creates an ADMIN account with the given credentials unless the
// username already exists.
func (s *CashierService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if _, err := s.Repo.GetCashierByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	_, err := s.CreateCashier(ctx, transport.CreateCashierRequest{
		Username:    username,
		Password:    password,
		DisplayName: "Administrator",
		Role:        models.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
