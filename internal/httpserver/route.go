package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/auth"
	"github.com/Skotchmaster/chopchop_pos/internal/realtime"
)

// Deps holds everything Register wires into routes. The limiter and CSRF
// middlewares are optional.
type Deps struct {
	DB *gorm.DB

	Auth     *AuthHTTP
	Catalog  *CatalogHTTP
	Orders   *OrderHTTP
	Payments *PaymentHTTP
	Invoices *InvoiceHTTP
	Reports  *ReportHTTP
	Admin    *AdminHTTP

	Hub     *realtime.Hub
	Session *auth.SessionAuth

	LoginLimiter  echo.MiddlewareFunc
	PublicLimiter echo.MiddlewareFunc
	CSRF          echo.MiddlewareFunc
}

func optional(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", d.ready)

	authGroup := e.Group("/auth")
	authGroup.POST("/login", d.Auth.Login, optional(d.LoginLimiter)...)
	authGroup.POST("/logout", d.Auth.Logout)
	authGroup.GET("/validate", d.Auth.Validate)

	public := e.Group("/api")
	public.GET("/menus", d.Catalog.ListAvailableMenus)
	public.GET("/menus/promo", d.Catalog.ListPromoMenus)
	public.GET("/menus/:id", d.Catalog.GetMenu)
	public.GET("/categories", d.Catalog.ListCategories)
	public.POST("/orders", d.Orders.CreateSelfService, optional(d.PublicLimiter)...)
	public.GET("/orders/:orderNumber", d.Orders.GetByNumber)
	public.GET("/orders/:orderNumber/qr", d.Orders.PaymentQR)

	e.GET("/events/:topic", d.Hub.Stream)

	cashier := e.Group("/cashier/api", optional(d.Session.RequireSession, d.CSRF)...)

	cashier.GET("/dashboard/stats", d.Reports.Dashboard)
	cashier.GET("/reports/sales", d.Reports.Sales)

	cashier.GET("/orders", d.Orders.List)
	cashier.GET("/orders/today", d.Orders.Today)
	cashier.GET("/orders/:id", d.Orders.Get)
	cashier.POST("/orders", d.Orders.Create)
	cashier.POST("/orders/:id/items", d.Orders.AddItem)
	cashier.PUT("/orders/:id/items/:itemId", d.Orders.UpdateItem)
	cashier.DELETE("/orders/:id/items/:itemId", d.Orders.RemoveItem)
	cashier.PUT("/orders/:id/status", d.Orders.UpdateStatus)
	cashier.POST("/orders/:id/cancel", d.Orders.Cancel)

	cashier.POST("/payments", d.Payments.Pay)

	cashier.GET("/invoices/order/:orderNumber", d.Invoices.ByOrderNumber)
	cashier.GET("/invoices/:id", d.Invoices.Get)
	cashier.GET("/invoices/:id/pdf", d.Invoices.PDF)

	cashier.GET("/menus", d.Catalog.ListMenus)
	cashier.POST("/menus", d.Catalog.CreateMenu)
	cashier.PUT("/menus/:id", d.Catalog.UpdateMenu)
	cashier.PUT("/menus/:id/availability", d.Catalog.ToggleAvailability)
	cashier.DELETE("/menus/:id", d.Catalog.DeleteMenu)

	cashier.GET("/categories", d.Catalog.ListCategories)
	cashier.POST("/categories", d.Catalog.CreateCategory)
	cashier.PUT("/categories/:id", d.Catalog.UpdateCategory)
	cashier.DELETE("/categories/:id", d.Catalog.DeleteCategory)

	admin := e.Group("/admin/api", optional(d.Session.RequireSession, d.Session.RequireAdmin, d.CSRF)...)

	admin.GET("/cashiers", d.Admin.ListCashiers)
	admin.POST("/cashiers", d.Admin.CreateCashier)
	admin.PUT("/cashiers/:id", d.Admin.UpdateCashier)
	admin.PUT("/cashiers/:id/active", d.Admin.SetActive)
	admin.GET("/audit-logs", d.Admin.AuditLogs)
	admin.GET("/audit-logs/menu/:menuId", d.Admin.AuditLogsForMenu)
	admin.GET("/audit-logs/cashier/:cashierId", d.Admin.AuditLogsByCashier)
}

func (d *Deps) ready(c echo.Context) error {
	if d.DB == nil {
		return c.NoContent(http.StatusOK)
	}
	sqlDB, err := d.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request().Context())
	}
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("readiness_error", "error", err)
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
