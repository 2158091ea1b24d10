package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
)

const (
	defaultTopItems     = 10
	dashboardRecentSize = 5
)

type ReportService struct {
	Repo   *repo.GormRepo
	Orders *OrderService
	Now    Clock
}

type TopItem struct {
	MenuID   uint            `json:"menuId"`
	MenuName string          `json:"menuName"`
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type CashierPerformance struct {
	CashierID   uint            `json:"cashierId"`
	DisplayName string          `json:"displayName"`
	OrderCount  int64           `json:"orderCount"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type SalesReport struct {
	From                   time.Time                                `json:"from"`
	To                     time.Time                                `json:"to"`
	TotalRevenue           decimal.Decimal                          `json:"totalRevenue"`
	OrderCount             int64                                    `json:"orderCount"`
	AverageOrderValue      decimal.Decimal                          `json:"averageOrderValue"`
	RevenueByPaymentMethod map[models.PaymentMethod]decimal.Decimal `json:"revenueByPaymentMethod"`
	TopItems               []TopItem                                `json:"topItems"`
	Cashiers               []CashierPerformance                     `json:"cashiers"`
}

type DashboardStats struct {
	TodayRevenue     decimal.Decimal `json:"todayRevenue"`
	TodayOrdersCount int             `json:"todayOrdersCount"`
	PendingOrders    int64           `json:"pendingOrders"`
	AvailableMenus   int64           `json:"availableMenus"`
	RecentOrders     []models.Order  `json:"recentOrders"`
}

// DayRange expands two calendar dates into the local-time window from the
// start of from to the end of to. Zero values default to today.
func (s *ReportService) DayRange(from, to time.Time) (time.Time, time.Time) {
	today := s.Now.now()
	if from.IsZero() {
		from = today
	}
	if to.IsZero() {
		to = from
	}
	start, _ := dayWindow(from)
	_, end := dayWindow(to)
	if end.Before(start) {
		start, _ = dayWindow(to)
		_, end = dayWindow(from)
	}
	return start, end
}

// SalesReport aggregates the PAID orders created within [from, to].
func (s *ReportService) SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	_, orders, err := s.Repo.ListOrders(ctx, repo.OrderFilter{
		PaymentStatus: models.PaymentStatusPaid,
		From:          &from,
		To:            &to,
	}, 0, 0)
	if err != nil {
		return nil, err
	}

	report := &SalesReport{
		From:                   from,
		To:                     to,
		TotalRevenue:           decimal.Zero,
		AverageOrderValue:      decimal.Zero,
		RevenueByPaymentMethod: map[models.PaymentMethod]decimal.Decimal{},
		TopItems:               []TopItem{},
		Cashiers:               []CashierPerformance{},
	}

	ids := make([]uint, 0, len(orders))
	perCashier := map[uint]*CashierPerformance{}
	for _, o := range orders {
		ids = append(ids, o.ID)
		report.TotalRevenue = report.TotalRevenue.Add(o.Total)
		report.OrderCount++
		if o.PaymentMethod != "" {
			report.RevenueByPaymentMethod[o.PaymentMethod] = report.RevenueByPaymentMethod[o.PaymentMethod].Add(o.Total)
		}
		if o.CashierID != nil {
			p, ok := perCashier[*o.CashierID]
			if !ok {
				p = &CashierPerformance{CashierID: *o.CashierID, Revenue: decimal.Zero}
				perCashier[*o.CashierID] = p
			}
			p.OrderCount++
			p.Revenue = p.Revenue.Add(o.Total)
		}
	}
	if report.OrderCount > 0 {
		report.AverageOrderValue = report.TotalRevenue.Div(decimal.NewFromInt(report.OrderCount)).Round(2)
	}

	items, err := s.Repo.ItemsForOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	report.TopItems = topItems(items, defaultTopItems)

	if len(perCashier) > 0 {
		cashierIDs := make([]uint, 0, len(perCashier))
		for id := range perCashier {
			cashierIDs = append(cashierIDs, id)
		}
		names, err := s.Repo.CashiersByIDs(ctx, cashierIDs)
		if err != nil {
			return nil, err
		}
		for id, p := range perCashier {
			p.DisplayName = names[id].DisplayName
			report.Cashiers = append(report.Cashiers, *p)
		}
		sort.Slice(report.Cashiers, func(i, j int) bool {
			a, b := report.Cashiers[i], report.Cashiers[j]
			if !a.Revenue.Equal(b.Revenue) {
				return a.Revenue.GreaterThan(b.Revenue)
			}
			return a.CashierID < b.CashierID
		})
	}
	return report, nil
}

func topItems(byOrder map[uint][]models.OrderItem, limit int) []TopItem {
	acc := map[uint]*TopItem{}
	for _, items := range byOrder {
		for _, it := range items {
			t, ok := acc[it.MenuID]
			if !ok {
				t = &TopItem{MenuID: it.MenuID, MenuName: it.MenuName, Revenue: decimal.Zero}
				acc[it.MenuID] = t
			}
			t.Quantity += int64(it.Quantity)
			t.Revenue = t.Revenue.Add(it.Subtotal())
		}
	}

	out := make([]TopItem, 0, len(acc))
	for _, t := range acc {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].MenuName < out[j].MenuName
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *ReportService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	today, err := s.Orders.TodayOrders(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.Orders.RevenueToday(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.Orders.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	menus, err := s.Repo.CountAvailableMenus(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.Orders.RecentOrders(ctx, dashboardRecentSize)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		TodayRevenue:     revenue,
		TodayOrdersCount: len(today),
		PendingOrders:    pending,
		AvailableMenus:   menus,
		RecentOrders:     recent,
	}, nil
}
