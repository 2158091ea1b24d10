package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/auth"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	SecureCookie bool
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "login", err)
	}

	res, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login", err)
	}

	c.SetCookie(auth.CreateCookie(auth.SessionCookie, res.Token, "/", res.ExpiresAt, h.SecureCookie))
	l.Info("login_successful", "cashier_id", res.Cashier.ID)
	return ok(c, http.StatusOK, "Login successful", transport.LoginResponse{
		SessionToken: res.Token,
		ExpiresAt:    res.ExpiresAt,
		Cashier:      res.Cashier,
	})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	token, _ := auth.Token(c)
	if err := h.Svc.Logout(ctx, token); err != nil {
		return fail(l, "logout", err)
	}

	c.SetCookie(auth.DeleteCookie(auth.SessionCookie, "/", h.SecureCookie))
	l.Info("successful_logout")
	return ok(c, http.StatusOK, "Logout successful", nil)
}

// Validate reports whether the caller's session is live. It never answers
// 401; an absent or stale token is simply not valid.
func (h *AuthHTTP) Validate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_validate")

	token, _ := auth.Token(c)
	valid, err := h.Svc.ValidateSession(ctx, token)
	if err != nil {
		return fail(l, "validate_session", err)
	}
	if !valid {
		return ok(c, http.StatusOK, "Session is not valid", transport.ValidateResponse{Valid: false})
	}

	cashier, err := h.Svc.Authenticate(ctx, token)
	if err != nil {
		return ok(c, http.StatusOK, "Session is not valid", transport.ValidateResponse{Valid: false})
	}
	return ok(c, http.StatusOK, "Session is valid", transport.ValidateResponse{Valid: true, Cashier: cashier})
}
