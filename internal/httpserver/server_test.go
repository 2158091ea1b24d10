package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/chopchop_pos/internal/middleware/auth"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/ratelimit"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/qrpay"
	"github.com/Skotchmaster/chopchop_pos/internal/realtime"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
	"github.com/Skotchmaster/chopchop_pos/internal/testutil"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	e        *echo.Echo
	hub      *realtime.Hub
	cashiers *service.CashierService
	catalog  *service.CatalogService
	deps     *Deps
}

func newTestServer(t *testing.T, mutate ...func(*Deps)) *testServer {
	t.Helper()

	gdb := testutil.NewDB(t)
	r := &repo.GormRepo{DB: gdb}
	orders := &service.OrderService{Repo: r}
	reports := &service.ReportService{Repo: r, Orders: orders}
	catalog := &service.CatalogService{Repo: r}
	cashiers := &service.CashierService{Repo: r}
	authSvc := &service.AuthService{Repo: r}
	invoices := &service.InvoiceService{Repo: r}
	payments := &service.PaymentService{Orders: orders, QR: qrpay.NewSigner(qrpay.Config{
		Secret:   []byte("test-qr-secret"),
		Merchant: "ChopChop",
		Currency: "IDR",
	})}

	hub := realtime.NewHub(nil)
	notify := &Notifier{Hub: hub, Reports: reports}

	d := &Deps{
		DB:       gdb,
		Auth:     &AuthHTTP{Svc: authSvc},
		Catalog:  &CatalogHTTP{Svc: catalog, Notify: notify},
		Orders:   &OrderHTTP{Svc: orders, Payments: payments, Notify: notify},
		Payments: &PaymentHTTP{Svc: payments, Invoices: invoices, Notify: notify},
		Invoices: &InvoiceHTTP{Svc: invoices},
		Reports:  &ReportHTTP{Svc: reports},
		Admin:    &AdminHTTP{Cashiers: cashiers, Catalog: catalog},
		Hub:      hub,
		Session:  auth.NewSessionAuth(authSvc, false),
	}
	for _, m := range mutate {
		m(d)
	}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	Register(e, d)
	return &testServer{e: e, hub: hub, cashiers: cashiers, catalog: catalog, deps: d}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(auth.SessionHeader, token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) seedCashier(t *testing.T, username string, role models.Role) *models.Cashier {
	t.Helper()
	c, err := s.cashiers.CreateCashier(context.Background(), transport.CreateCashierRequest{
		Username:    username,
		Password:    "secret123",
		DisplayName: "Cashier " + username,
		Role:        role,
	})
	require.NoError(t, err)
	return c
}

func (s *testServer) login(t *testing.T, username string) string {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/auth/login", "", transport.LoginRequest{Username: username, Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res transport.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.SessionToken)
	return res.SessionToken
}

func (s *testServer) seedTea(t *testing.T, cashierID uint) *models.Menu {
	t.Helper()
	ctx := context.Background()
	cat, err := s.catalog.CreateCategory(ctx, transport.CategoryRequest{Name: "Beverages"})
	require.NoError(t, err)
	price := decimal.NewFromInt(5000)
	m, err := s.catalog.CreateMenu(ctx, cashierID, transport.MenuRequest{Name: "Tea", Price: &price, CategoryID: cat.ID})
	require.NoError(t, err)
	return m
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)
	s.seedCashier(t, "kasir1", models.RoleCashier)

	rec, env := s.do(t, http.MethodPost, "/auth/login", "", transport.LoginRequest{Username: "kasir1", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid username or password", env.Message)

	rec, env = s.do(t, http.MethodPost, "/auth/login", "", transport.LoginRequest{Username: "kasir1", Password: "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	res := rec.Result()
	defer res.Body.Close()
	require.Len(t, res.Cookies(), 1)
	assert.Equal(t, auth.SessionCookie, res.Cookies()[0].Name)
	assert.True(t, res.Cookies()[0].HttpOnly)

	token := res.Cookies()[0].Value
	_, env = s.do(t, http.MethodGet, "/auth/validate", token, nil)
	var v transport.ValidateResponse
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.True(t, v.Valid)
	require.NotNil(t, v.Cashier)
	assert.Equal(t, "kasir1", v.Cashier.Username)

	rec, _ = s.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = s.do(t, http.MethodGet, "/auth/validate", token, nil)
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.False(t, v.Valid)
}

func TestLogin_ValidationEnvelope(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": " "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Validation failed", env.Message)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
}

func TestLogin_RateLimited(t *testing.T) {
	limiter, err := ratelimit.New("1-M")
	require.NoError(t, err)
	s := newTestServer(t, func(d *Deps) { d.LoginLimiter = limiter })

	body := transport.LoginRequest{Username: "ghost", Password: "x"}
	rec, _ := s.do(t, http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCashierRoutes_RequireSession(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/cashier/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Authentication required", env.Message)

	rec, env = s.do(t, http.MethodGet, "/cashier/api/orders", "not-a-session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired session", env.Message)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	s := newTestServer(t)
	s.seedCashier(t, "kasir1", models.RoleCashier)
	s.seedCashier(t, "boss", models.RoleAdmin)

	rec, _ := s.do(t, http.MethodGet, "/admin/api/cashiers", s.login(t, "kasir1"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodGet, "/admin/api/cashiers", s.login(t, "boss"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Cashier
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)
}

func TestOrderToPaymentFlow(t *testing.T) {
	s := newTestServer(t)
	kasir := s.seedCashier(t, "kasir1", models.RoleCashier)
	tea := s.seedTea(t, kasir.ID)
	token := s.login(t, "kasir1")

	events, cancel := s.hub.Subscribe(realtime.TopicOrders)
	defer cancel()

	rec, env := s.do(t, http.MethodPost, "/cashier/api/orders", token, transport.CreateOrderRequest{
		CustomerName: "Budi",
		Items:        []transport.OrderItemRequest{{MenuID: tea.ID, Quantity: 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.True(t, order.Total.Equal(decimal.NewFromInt(15000)))
	require.NotNil(t, order.CashierID)
	assert.Equal(t, kasir.ID, *order.CashierID)

	select {
	case ev := <-events:
		assert.Equal(t, realtime.EventOrderCreated, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("no order event broadcast")
	}

	amount := decimal.NewFromInt(20000)
	rec, env = s.do(t, http.MethodPost, "/cashier/api/payments", token, transport.PaymentRequest{
		OrderNumber:   order.OrderNumber,
		PaymentMethod: models.PaymentMethodCash,
		AmountPaid:    &amount,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid transport.PaymentResponse
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.True(t, paid.Change.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, models.PaymentStatusPaid, paid.Order.PaymentStatus)
	require.NotNil(t, paid.Invoice)
	require.NotNil(t, paid.Invoice.CashierID)
	assert.Equal(t, kasir.ID, *paid.Invoice.CashierID)

	rec, env = s.do(t, http.MethodGet, "/cashier/api/invoices/order/"+order.OrderNumber, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inv models.Invoice
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	assert.Equal(t, paid.Invoice.InvoiceNumber, inv.InvoiceNumber)

	req := httptest.NewRequest(http.MethodGet, "/cashier/api/invoices/"+itoa(inv.ID)+"/pdf", nil)
	req.Header.Set(auth.SessionHeader, token)
	pdf := httptest.NewRecorder()
	s.e.ServeHTTP(pdf, req)
	require.Equal(t, http.StatusOK, pdf.Code)
	assert.Equal(t, "application/pdf", pdf.Header().Get(echo.HeaderContentType))
	assert.Contains(t, pdf.Header().Get(echo.HeaderContentDisposition), inv.InvoiceNumber+".pdf")
	assert.True(t, bytes.HasPrefix(pdf.Body.Bytes(), []byte("%PDF")))
}

func TestSelfServiceOrder(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedCashier(t, "admin", models.RoleAdmin)
	tea := s.seedTea(t, admin.ID)

	rec, env := s.do(t, http.MethodPost, "/api/orders", "", transport.CreateOrderRequest{
		OrderType: models.OrderTypeCashierAssisted,
		Items:     []transport.OrderItemRequest{{MenuID: tea.ID, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Nil(t, order.CashierID)
	assert.Equal(t, models.OrderTypeSelfService, order.OrderType)

	rec, env = s.do(t, http.MethodGet, "/api/orders/"+order.OrderNumber+"/qr", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var qr transport.QRCodeResponse
	require.NoError(t, json.Unmarshal(env.Data, &qr))
	assert.Equal(t, order.OrderNumber, qr.OrderNumber)
	assert.NotEmpty(t, qr.Payload)

	rec, env = s.do(t, http.MethodGet, "/api/orders/ORD-missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestCreateOrder_ValidationFieldMap(t *testing.T) {
	s := newTestServer(t)
	s.seedCashier(t, "kasir1", models.RoleCashier)
	token := s.login(t, "kasir1")

	rec, env := s.do(t, http.MethodPost, "/cashier/api/orders", token, map[string]any{"items": []any{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "items")
}

func TestCatalogRoutes(t *testing.T) {
	s := newTestServer(t)
	s.seedCashier(t, "kasir1", models.RoleCashier)
	token := s.login(t, "kasir1")

	rec, env := s.do(t, http.MethodPost, "/cashier/api/categories", token, transport.CategoryRequest{Name: "Mains"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var cat models.Category
	require.NoError(t, json.Unmarshal(env.Data, &cat))

	rec, _ = s.do(t, http.MethodPost, "/cashier/api/categories", token, transport.CategoryRequest{Name: "Mains"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	price := decimal.NewFromInt(25000)
	rec, env = s.do(t, http.MethodPost, "/cashier/api/menus", token, transport.MenuRequest{
		Name: "Nasi Goreng", Price: &price, CategoryID: cat.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var menu models.Menu
	require.NoError(t, json.Unmarshal(env.Data, &menu))
	assert.True(t, menu.Available)

	rec, _ = s.do(t, http.MethodDelete, "/cashier/api/categories/"+itoa(cat.ID), token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = s.do(t, http.MethodPut, "/cashier/api/menus/"+itoa(menu.ID)+"/availability", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &menu))
	assert.False(t, menu.Available)

	_, env = s.do(t, http.MethodGet, "/api/menus", "", nil)
	var menus []models.Menu
	require.NoError(t, json.Unmarshal(env.Data, &menus))
	assert.Empty(t, menus)

	_, env = s.do(t, http.MethodGet, "/api/menus?availableOnly=false", "", nil)
	menus = nil
	require.NoError(t, json.Unmarshal(env.Data, &menus))
	assert.Empty(t, menus)

	_, env = s.do(t, http.MethodGet, "/cashier/api/menus", token, nil)
	menus = nil
	require.NoError(t, json.Unmarshal(env.Data, &menus))
	require.Len(t, menus, 1)
	assert.False(t, menus[0].Available)

	rec, _ = s.do(t, http.MethodGet, "/api/menus?categoryId=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/menus/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReports_SalesDateValidation(t *testing.T) {
	s := newTestServer(t)
	s.seedCashier(t, "kasir1", models.RoleCashier)
	token := s.login(t, "kasir1")

	rec, env := s.do(t, http.MethodGet, "/cashier/api/reports/sales?startDate=yesterday", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "startDate")

	rec, _ = s.do(t, http.MethodGet, "/cashier/api/reports/sales?startDate=2025-01-01&endDate=2025-01-31", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/cashier/api/dashboard/stats", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEvents_UnknownTopic(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/events/kitchen", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Unknown topic", env.Message)
}

func TestErrorHandler_HidesInternalErrors(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/boom", func(echo.Context) error { return assert.AnError })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "An unexpected error occurred", env.Message)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestCashierOrder_TypeComesFromRoute(t *testing.T) {
	s := newTestServer(t)
	kasir := s.seedCashier(t, "kasir1", models.RoleCashier)
	tea := s.seedTea(t, kasir.ID)
	token := s.login(t, "kasir1")

	rec, env := s.do(t, http.MethodPost, "/cashier/api/orders", token, transport.CreateOrderRequest{
		OrderType: models.OrderTypeSelfService,
		Items:     []transport.OrderItemRequest{{MenuID: tea.ID, Quantity: 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order models.Order
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, models.OrderTypeCashierAssisted, order.OrderType)
	require.NotNil(t, order.CashierID)
	assert.Equal(t, kasir.ID, *order.CashierID)
}

func TestCreateOrder_QuantityBound(t *testing.T) {
	s := newTestServer(t)
	admin := s.seedCashier(t, "admin", models.RoleAdmin)
	tea := s.seedTea(t, admin.ID)

	huge := int(^uint(0)>>1)/2 + 1
	rec, env := s.do(t, http.MethodPost, "/api/orders", "", transport.CreateOrderRequest{
		Items: []transport.OrderItemRequest{{MenuID: tea.ID, Quantity: huge}, {MenuID: tea.ID, Quantity: huge}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, "Validation failed", env.Message)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	assert.Contains(t, fields, "items[0].quantity")
	assert.Contains(t, fields, "items[1].quantity")

	rec, env = s.do(t, http.MethodPost, "/api/orders", "", transport.CreateOrderRequest{
		Items: []transport.OrderItemRequest{{MenuID: tea.ID, Quantity: 1_000_000_000_000_000}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var single map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &single))
	assert.Contains(t, single, "items[0].quantity")
}
