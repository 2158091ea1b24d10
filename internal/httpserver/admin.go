package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
	"github.com/Skotchmaster/chopchop_pos/internal/util"
)

type AdminHTTP struct {
	Cashiers *service.CashierService
	Catalog  *service.CatalogService
}

type auditPage struct {
	Logs []models.MenuAuditLog `json:"logs"`
	Meta util.Meta             `json:"meta"`
}

func (h *AdminHTTP) ListCashiers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_cashiers")

	list, err := h.Cashiers.ListCashiers(ctx)
	if err != nil {
		return fail(l, "list_cashiers", err)
	}
	return ok(c, http.StatusOK, "Cashiers retrieved", list)
}

func (h *AdminHTTP) CreateCashier(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_cashier")

	var req transport.CreateCashierRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_cashier", err)
	}
	cashier, err := h.Cashiers.CreateCashier(ctx, req)
	if err != nil {
		return fail(l, "create_cashier", err)
	}

	l.Info("cashier_created", "cashier_id", cashier.ID, "role", cashier.Role)
	return ok(c, http.StatusCreated, "Cashier created", cashier)
}

func (h *AdminHTTP) UpdateCashier(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.update_cashier")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "update_cashier", err)
	}
	var req transport.UpdateCashierRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_cashier", err)
	}
	cashier, err := h.Cashiers.UpdateCashier(ctx, id, req)
	if err != nil {
		return fail(l, "update_cashier", err)
	}
	return ok(c, http.StatusOK, "Cashier updated", cashier)
}

func (h *AdminHTTP) SetActive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.set_active")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "set_active", err)
	}
	var req transport.SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "set_active", err)
	}
	if err := service.ValidateStruct(req); err != nil {
		return fail(l, "set_active", err)
	}
	cashier, err := h.Cashiers.SetActive(ctx, id, *req.Active)
	if err != nil {
		return fail(l, "set_active", err)
	}

	l.Info("cashier_active_changed", "cashier_id", cashier.ID, "active", cashier.Active)
	return ok(c, http.StatusOK, "Cashier updated", cashier)
}

func (h *AdminHTTP) AuditLogs(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.audit_logs")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, logs, err := h.Catalog.RecentAuditLogs(ctx, offset, limit)
	if err != nil {
		return fail(l, "audit_logs", err)
	}
	return ok(c, http.StatusOK, "Audit logs retrieved", auditPage{
		Logs: logs,
		Meta: util.NewMeta(page, offset, limit, total),
	})
}

func (h *AdminHTTP) AuditLogsForMenu(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.audit_logs_menu")

	id, err := idParam(c, "menuId")
	if err != nil {
		return fail(l, "audit_logs", err)
	}
	logs, err := h.Catalog.AuditLogsForMenu(ctx, id)
	if err != nil {
		return fail(l, "audit_logs", err)
	}
	return ok(c, http.StatusOK, "Audit logs retrieved", logs)
}

func (h *AdminHTTP) AuditLogsByCashier(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.audit_logs_cashier")

	id, err := idParam(c, "cashierId")
	if err != nil {
		return fail(l, "audit_logs", err)
	}
	logs, err := h.Catalog.AuditLogsByCashier(ctx, id)
	if err != nil {
		return fail(l, "audit_logs", err)
	}
	return ok(c, http.StatusOK, "Audit logs retrieved", logs)
}
