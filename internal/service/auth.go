package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/chopchop_pos/internal/hash"
	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

const DefaultSessionTTL = 8 * time.Hour

type AuthService struct {
	Repo       *repo.GormRepo
	SessionTTL time.Duration
	Now        Clock
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Cashier   models.Cashier
}

func (s *AuthService) ttl() time.Duration {
	if s.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return s.SessionTTL
}

// Login checks the credentials and opens a new session. Unknown, inactive and
// mismatched accounts all fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*LoginResult, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	cashier, err := s.Repo.GetCashierByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load cashier: %w", err)
	}
	if !cashier.Active || !hash.CheckPassword(cashier.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	now := s.Now.now()
	session := models.CashierSession{
		CashierID: cashier.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.ttl()),
	}
	err = s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := tx.TouchLastLogin(ctx, cashier.ID, now); err != nil {
			return err
		}
		return tx.CreateSession(ctx, &session)
	})
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	cashier.LastLoginAt = &now

	return &LoginResult{Token: session.Token, ExpiresAt: session.ExpiresAt, Cashier: *cashier}, nil
}

// ValidateSession reports whether token names a live session. An expired
// session is deleted on the way out.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (bool, error) {
	_, err := s.session(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Authenticate resolves the cashier behind a live session token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Cashier, error) {
	session, err := s.session(ctx, token)
	if err != nil {
		return nil, err
	}
	cashier, err := s.Repo.GetCashier(ctx, session.CashierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: cashier no longer exists", ErrUnauthorized)
		}
		return nil, err
	}
	if !cashier.Active {
		return nil, fmt.Errorf("%w: cashier is inactive", ErrUnauthorized)
	}
	return cashier, nil
}

func (s *AuthService) session(ctx context.Context, token string) (*models.CashierSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: missing session token", ErrUnauthorized)
	}
	session, err := s.Repo.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown session", ErrUnauthorized)
		}
		return nil, err
	}
	if session.Expired(s.Now.now()) {
		if _, err := s.Repo.DeleteSessionByToken(ctx, token); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: session expired", ErrUnauthorized)
	}
	return session, nil
}

// Logout deletes the session if it exists. Repeated calls succeed.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	_, err := s.Repo.DeleteSessionByToken(ctx, token)
	return err
}

func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.Repo.DeleteExpiredSessions(ctx, s.Now.now())
}

// RunSessionCleanup sweeps expired sessions every interval until ctx ends.
func (s *AuthService) RunSessionCleanup(ctx context.Context, interval time.Duration) {
	l := logging.FromContext(ctx).With("job", "session_cleanup")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.CleanupExpiredSessions(ctx)
			if err != nil {
				l.Error("session_cleanup_error", "error", err)
				continue
			}
			if n > 0 {
				l.Info("session_cleanup_done", "deleted", n)
			}
		}
	}
}

// RequireRole fails with ErrForbidden unless the cashier holds role.
func RequireRole(c *models.Cashier, role models.Role) error {
	if c == nil {
		return ErrUnauthorized
	}
	if c.Role != role {
		return fmt.Errorf("%w: %s role required", ErrForbidden, role)
	}
	return nil
}
