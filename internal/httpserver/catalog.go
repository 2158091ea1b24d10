package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/auth"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

type CatalogHTTP struct {
	Svc    *service.CatalogService
	Notify *Notifier
}

// ListMenus accepts availableOnly, categoryId and search query parameters.
func (h *CatalogHTTP) ListMenus(c echo.Context) error {
	only, _ := strconv.ParseBool(c.QueryParam("availableOnly"))
	return h.listMenus(c, only)
}

// ListAvailableMenus is the customer view: unavailable menus are never listed.
func (h *CatalogHTTP) ListAvailableMenus(c echo.Context) error {
	return h.listMenus(c, true)
}

func (h *CatalogHTTP) listMenus(c echo.Context, availableOnly bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_menus")

	q := transport.MenuQuery{AvailableOnly: availableOnly}
	if v := c.QueryParam("categoryId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fail(l, "list_menus", service.FieldErrors{"categoryId": "categoryId must be a positive integer"})
		}
		cid := uint(id)
		q.CategoryID = &cid
	}
	if c.QueryParams().Has("search") {
		s := c.QueryParam("search")
		q.Search = &s
	}

	menus, err := h.Svc.ListMenus(ctx, q)
	if err != nil {
		return fail(l, "list_menus", err)
	}
	return ok(c, http.StatusOK, "Menus retrieved", menus)
}

func (h *CatalogHTTP) ListPromoMenus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_promo_menus")

	menus, err := h.Svc.ListPromoMenus(ctx)
	if err != nil {
		return fail(l, "list_promo_menus", err)
	}
	return ok(c, http.StatusOK, "Promo menus retrieved", menus)
}

func (h *CatalogHTTP) GetMenu(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_menu")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "get_menu", err)
	}
	m, err := h.Svc.GetMenu(ctx, id)
	if err != nil {
		return fail(l, "get_menu", err)
	}
	return ok(c, http.StatusOK, "Menu retrieved", m)
}

func (h *CatalogHTTP) CreateMenu(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_menu")

	var req transport.MenuRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_menu", err)
	}
	cashierID := auth.CashierID(c)
	m, err := h.Svc.CreateMenu(ctx, cashierID, req)
	if err != nil {
		return fail(l, "create_menu", err)
	}

	h.Notify.MenuChanged(ctx, "menu_created", m.ID, m.Name, cashierID)
	l.Info("menu_created", "menu_id", m.ID)
	return ok(c, http.StatusCreated, "Menu created", m)
}

func (h *CatalogHTTP) UpdateMenu(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.update_menu")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "update_menu", err)
	}
	var req transport.MenuRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_menu", err)
	}
	cashierID := auth.CashierID(c)
	m, err := h.Svc.UpdateMenu(ctx, cashierID, id, req)
	if err != nil {
		return fail(l, "update_menu", err)
	}

	h.Notify.MenuChanged(ctx, "menu_updated", m.ID, m.Name, cashierID)
	return ok(c, http.StatusOK, "Menu updated", m)
}

func (h *CatalogHTTP) ToggleAvailability(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.toggle_availability")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "toggle_availability", err)
	}
	cashierID := auth.CashierID(c)
	m, err := h.Svc.ToggleAvailability(ctx, cashierID, id)
	if err != nil {
		return fail(l, "toggle_availability", err)
	}

	h.Notify.MenuChanged(ctx, "menu_availability_changed", m.ID, m.Name, cashierID)
	return ok(c, http.StatusOK, "Menu availability updated", m)
}

func (h *CatalogHTTP) DeleteMenu(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_menu")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "delete_menu", err)
	}
	cashierID := auth.CashierID(c)
	if err := h.Svc.DeleteMenu(ctx, cashierID, id); err != nil {
		return fail(l, "delete_menu", err)
	}

	h.Notify.MenuChanged(ctx, "menu_deleted", id, "", cashierID)
	return ok(c, http.StatusOK, "Menu deleted", nil)
}

// ListCategories nests available menus when withMenus=true.
func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_categories")

	if with, _ := strconv.ParseBool(c.QueryParam("withMenus")); with {
		cats, err := h.Svc.ListCategoriesWithMenus(ctx)
		if err != nil {
			return fail(l, "list_categories", err)
		}
		return ok(c, http.StatusOK, "Categories retrieved", cats)
	}

	cats, err := h.Svc.ListCategories(ctx)
	if err != nil {
		return fail(l, "list_categories", err)
	}
	return ok(c, http.StatusOK, "Categories retrieved", cats)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_category")

	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_category", err)
	}
	cat, err := h.Svc.CreateCategory(ctx, req)
	if err != nil {
		return fail(l, "create_category", err)
	}
	return ok(c, http.StatusCreated, "Category created", cat)
}

func (h *CatalogHTTP) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.update_category")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "update_category", err)
	}
	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_category", err)
	}
	cat, err := h.Svc.UpdateCategory(ctx, id, req)
	if err != nil {
		return fail(l, "update_category", err)
	}
	return ok(c, http.StatusOK, "Category updated", cat)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_category")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "delete_category", err)
	}
	if err := h.Svc.DeleteCategory(ctx, id); err != nil {
		return fail(l, "delete_category", err)
	}
	return ok(c, http.StatusOK, "Category deleted", nil)
}
