package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
)

const dateLayout = "2006-01-02"

type ReportHTTP struct {
	Svc *service.ReportService
}

// Sales reports on whole days between ?startDate= and ?endDate=, both
// inclusive. Missing dates default to today.
func (h *ReportHTTP) Sales(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reports.sales")

	from, err := parseDate(c.QueryParam("startDate"))
	if err != nil {
		return fail(l, "sales_report", service.FieldErrors{"startDate": "startDate must be formatted as YYYY-MM-DD"})
	}
	to, err := parseDate(c.QueryParam("endDate"))
	if err != nil {
		return fail(l, "sales_report", service.FieldErrors{"endDate": "endDate must be formatted as YYYY-MM-DD"})
	}

	start, end := h.Svc.DayRange(from, to)
	report, err := h.Svc.SalesReport(ctx, start, end)
	if err != nil {
		return fail(l, "sales_report", err)
	}
	return ok(c, http.StatusOK, "Sales report generated", report)
}

func (h *ReportHTTP) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "reports.dashboard")

	stats, err := h.Svc.DashboardStats(ctx)
	if err != nil {
		return fail(l, "dashboard_stats", err)
	}
	return ok(c, http.StatusOK, "Dashboard stats retrieved", stats)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, s, time.Local)
}
