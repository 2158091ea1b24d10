package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/qrpay"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
	"github.com/Skotchmaster/chopchop_pos/internal/testutil"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

type testEnv struct {
	Repo     *repo.GormRepo
	Catalog  *CatalogService
	Orders   *OrderService
	Invoices *InvoiceService
	Payments *PaymentService
	Auth     *AuthService
	Cashiers *CashierService
	Reports  *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := &repo.GormRepo{DB: testutil.NewDB(t)}
	orders := &OrderService{Repo: r}
	return &testEnv{
		Repo:     r,
		Catalog:  &CatalogService{Repo: r},
		Orders:   orders,
		Invoices: &InvoiceService{Repo: r},
		Payments: &PaymentService{Orders: orders, QR: qrpay.NewSigner(qrpay.Config{
			Secret:   []byte("test-qr-secret"),
			Merchant: "ChopChop",
			Currency: "IDR",
		})},
		Auth:     &AuthService{Repo: r},
		Cashiers: &CashierService{Repo: r},
		Reports:  &ReportService{Repo: r, Orders: orders},
	}
}

func (e *testEnv) cashier(t *testing.T, username string, role models.Role) *models.Cashier {
	t.Helper()
	c, err := e.Cashiers.CreateCashier(context.Background(), transport.CreateCashierRequest{
		Username:    username,
		Password:    "secret123",
		DisplayName: "Cashier " + username,
		Role:        role,
	})
	require.NoError(t, err)
	return c
}

func (e *testEnv) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := e.Catalog.CreateCategory(context.Background(), transport.CategoryRequest{Name: name})
	require.NoError(t, err)
	return c
}

func (e *testEnv) menu(t *testing.T, cashierID, categoryID uint, name string, price int64) *models.Menu {
	t.Helper()
	p := decimal.NewFromInt(price)
	m, err := e.Catalog.CreateMenu(context.Background(), cashierID, transport.MenuRequest{
		Name:       name,
		Price:      &p,
		CategoryID: categoryID,
	})
	require.NoError(t, err)
	return m
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func requireDecimal(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}
