package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/middleware/auth"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/realtime"
	"github.com/Skotchmaster/chopchop_pos/internal/service"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
	"github.com/Skotchmaster/chopchop_pos/internal/util"
)

type OrderHTTP struct {
	Svc      *service.OrderService
	Payments *service.PaymentService
	Notify   *Notifier
}

type orderPage struct {
	Orders []models.Order `json:"orders"`
	Meta   util.Meta      `json:"meta"`
}

// CreateSelfService places a customer order without a session.
func (h *OrderHTTP) CreateSelfService(c echo.Context) error {
	return h.create(c, nil)
}

// Create places an order attributed to the session cashier.
func (h *OrderHTTP) Create(c echo.Context) error {
	id := auth.CashierID(c)
	return h.create(c, &id)
}

func (h *OrderHTTP) create(c echo.Context, cashierID *uint) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.create")

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "create_order", err)
	}
	// the route decides the order type, never the caller
	req.OrderType = models.OrderTypeCashierAssisted
	if cashierID == nil {
		req.OrderType = models.OrderTypeSelfService
	}
	order, err := h.Svc.CreateOrder(ctx, req, cashierID)
	if err != nil {
		return fail(l, "create_order", err)
	}

	h.Notify.OrderChanged(ctx, realtime.EventOrderCreated, order)
	l.Info("order_created", "order_number", order.OrderNumber, "total", order.Total.StringFixed(2))
	return ok(c, http.StatusCreated, "Order created", order)
}

func (h *OrderHTTP) GetByNumber(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.get_by_number")

	order, err := h.Svc.GetOrderByNumber(ctx, c.Param("orderNumber"))
	if err != nil {
		return fail(l, "get_order", err)
	}
	return ok(c, http.StatusOK, "Order retrieved", order)
}

// PaymentQR returns the signed payment payload and its PNG rendering.
func (h *OrderHTTP) PaymentQR(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.payment_qr")

	order, err := h.Svc.GetOrderByNumber(ctx, c.Param("orderNumber"))
	if err != nil {
		return fail(l, "payment_qr", err)
	}
	qr, err := h.Payments.GeneratePaymentQRCode(order)
	if err != nil {
		return fail(l, "payment_qr", err)
	}
	return ok(c, http.StatusOK, "QR code generated", qr)
}

// List pages through orders, optionally filtered by ?status=.
func (h *OrderHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)
	status := models.OrderStatus(strings.ToUpper(c.QueryParam("status")))

	total, orders, err := h.Svc.ListOrders(ctx, status, offset, limit)
	if err != nil {
		return fail(l, "list_orders", err)
	}
	return ok(c, http.StatusOK, "Orders retrieved", orderPage{
		Orders: orders,
		Meta:   util.NewMeta(page, offset, limit, total),
	})
}

func (h *OrderHTTP) Today(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.today")

	orders, err := h.Svc.TodayOrders(ctx)
	if err != nil {
		return fail(l, "today_orders", err)
	}
	return ok(c, http.StatusOK, "Today's orders retrieved", orders)
}

func (h *OrderHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.get")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "get_order", err)
	}
	order, err := h.Svc.GetOrder(ctx, id)
	if err != nil {
		return fail(l, "get_order", err)
	}
	return ok(c, http.StatusOK, "Order retrieved", order)
}

func (h *OrderHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.add_item")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "add_item", err)
	}
	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "add_item", err)
	}
	order, err := h.Svc.AddItem(ctx, id, req)
	if err != nil {
		return fail(l, "add_item", err)
	}

	h.Notify.OrderChanged(ctx, realtime.EventOrderUpdated, order)
	return ok(c, http.StatusOK, "Item added", order)
}

func (h *OrderHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.update_item")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "update_item", err)
	}
	itemID, err := idParam(c, "itemId")
	if err != nil {
		return fail(l, "update_item", err)
	}
	var req transport.UpdateItemQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_item", err)
	}
	if err := service.ValidateStruct(req); err != nil {
		return fail(l, "update_item", err)
	}
	order, err := h.Svc.UpdateItemQuantity(ctx, id, itemID, *req.Quantity)
	if err != nil {
		return fail(l, "update_item", err)
	}

	h.Notify.OrderChanged(ctx, realtime.EventOrderUpdated, order)
	return ok(c, http.StatusOK, "Item updated", order)
}

func (h *OrderHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.remove_item")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "remove_item", err)
	}
	itemID, err := idParam(c, "itemId")
	if err != nil {
		return fail(l, "remove_item", err)
	}
	order, err := h.Svc.RemoveItem(ctx, id, itemID)
	if err != nil {
		return fail(l, "remove_item", err)
	}

	h.Notify.OrderChanged(ctx, realtime.EventOrderUpdated, order)
	return ok(c, http.StatusOK, "Item removed", order)
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.update_status")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "update_status", err)
	}
	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badBody(l, "update_status", err)
	}
	order, err := h.Svc.UpdateStatus(ctx, id, req)
	if err != nil {
		return fail(l, "update_status", err)
	}

	h.Notify.OrderChanged(ctx, realtime.EventOrderUpdated, order)
	l.Info("order_status_updated", "order_id", order.ID, "status", order.Status)
	return ok(c, http.StatusOK, "Order status updated", order)
}

func (h *OrderHTTP) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "orders.cancel")

	id, err := idParam(c, "id")
	if err != nil {
		return fail(l, "cancel_order", err)
	}
	order, err := h.Svc.CancelOrder(ctx, id)
	if err != nil {
		return fail(l, "cancel_order", err)
	}

	h.Notify.OrderChanged(ctx, realtime.EventOrderUpdated, order)
	l.Info("order_cancelled", "order_id", order.ID)
	return ok(c, http.StatusOK, "Order cancelled", order)
}
