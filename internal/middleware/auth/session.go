package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
)

const (
	SessionCookie = "RESTAURANT_SESSION"
	SessionHeader = "X-Session-Token"

	ctxCashier   = "cashier"
	ctxCashierID = "cashier_id"
	ctxRole      = "role"
	ctxViaHeader = "session_via_header"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Cashier, error)
}

type SessionAuth struct {
	Svc          Authenticator
	SecureCookie bool
}

func NewSessionAuth(svc Authenticator, secureCookie bool) *SessionAuth {
	return &SessionAuth{Svc: svc, SecureCookie: secureCookie}
}

// Token extracts the session token from the X-Session-Token header, a Bearer
// Authorization header or the session cookie, in that order. viaHeader
// reports whether the token came from a header.
func Token(c echo.Context) (token string, viaHeader bool) {
	req := c.Request()
	if v := strings.TrimSpace(req.Header.Get(SessionHeader)); v != "" {
		return v, true
	}
	if v := req.Header.Get(echo.HeaderAuthorization); v != "" {
		if scheme, rest, ok := strings.Cut(v, " "); ok && strings.EqualFold(scheme, "Bearer") {
			if rest = strings.TrimSpace(rest); rest != "" {
				return rest, true
			}
		}
	}
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value, false
	}
	return "", false
}

func (m *SessionAuth) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "require_session")

		token, viaHeader := Token(c)
		if token == "" {
			l.Warn("auth_error", "status", http.StatusUnauthorized, "reason", "missing session token")
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		cashier, err := m.Svc.Authenticate(ctx, token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				if !viaHeader {
					c.SetCookie(DeleteCookie(SessionCookie, "/", m.SecureCookie))
				}
				l.Warn("auth_error", "status", http.StatusUnauthorized, "reason", "invalid session", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired session")
			}
			l.Error("auth_error", "status", http.StatusInternalServerError, "reason", "cannot check session", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "An unexpected error occurred")
		}

		c.Set(ctxCashier, cashier)
		c.Set(ctxCashierID, cashier.ID)
		c.Set(ctxRole, cashier.Role)
		c.Set(ctxViaHeader, viaHeader)
		c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l.With("cashier_id", cashier.ID))))
		return next(c)
	}
}

// RequireAdmin must run after RequireSession.
func (m *SessionAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := service.RequireRole(Cashier(c), models.RoleAdmin); err != nil {
			logging.FromContext(c.Request().Context()).Warn("auth_error", "status", http.StatusForbidden, "reason", "admin role required")
			if errors.Is(err, service.ErrUnauthorized) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}
			return echo.NewHTTPError(http.StatusForbidden, "Admin role required")
		}
		return next(c)
	}
}

// Cashier returns the authenticated cashier or nil.
func Cashier(c echo.Context) *models.Cashier {
	v, _ := c.Get(ctxCashier).(*models.Cashier)
	return v
}

// CashierID returns the authenticated cashier's id, or 0 without a session.
func CashierID(c echo.Context) uint {
	v, _ := c.Get(ctxCashierID).(uint)
	return v
}

// HeaderAuthenticated reports whether the session token arrived in a header
// rather than the cookie.
func HeaderAuthenticated(c echo.Context) bool {
	v, _ := c.Get(ctxViaHeader).(bool)
	return v
}
