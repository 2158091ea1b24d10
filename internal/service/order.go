package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

const OrderNumberPrefix = "ORD-"

type OrderService struct {
	Repo *repo.GormRepo
	Now  Clock
}

// CreateOrder persists a PENDING order. Lines that reference a missing or
// unavailable menu are dropped without error; repeated menus are merged.
func (s *OrderService) CreateOrder(ctx context.Context, req transport.CreateOrderRequest, cashierID *uint) (*models.Order, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.OrderType == "" {
		req.OrderType = models.OrderTypeCashierAssisted
		if cashierID == nil {
			req.OrderType = models.OrderTypeSelfService
		}
	}

	now := s.Now.now()
	order := &models.Order{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		OrderType:     req.OrderType,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		CashierID:     cashierID,
	}

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var items []models.OrderItem
		index := make(map[uint]int)
		for i, line := range req.Items {
			menu, err := tx.GetMenu(ctx, line.MenuID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return fmt.Errorf("load menu %d: %w", line.MenuID, err)
			}
			if !menu.Available {
				continue
			}
			if at, ok := index[menu.ID]; ok {
				merged := items[at].Quantity + line.Quantity
				if merged > transport.MaxItemQuantity {
					return FieldErrors{
						fmt.Sprintf("items[%d].quantity", i): fmt.Sprintf("combined quantity for %s must not exceed %d", menu.Name, transport.MaxItemQuantity),
					}
				}
				items[at].Quantity = merged
				continue
			}
			index[menu.ID] = len(items)
			items = append(items, models.OrderItem{
				MenuID:   menu.ID,
				MenuName: menu.Name,
				Quantity: line.Quantity,
				Price:    menu.CurrentPrice(),
			})
		}

		number, err := uniqueOrderNumber(ctx, tx, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		order.Items = items
		order.Total = order.ComputeTotal()

		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.CreateOrderItems(ctx, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}
	return order, nil
}

func uniqueOrderNumber(ctx context.Context, tx *repo.GormRepo, now time.Time) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		number := newNumber(OrderNumberPrefix, now)
		exists, err := tx.OrderNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate an order number", ErrConflict)
}

// AddItem merges qty into the line for menuID or appends a new line priced
// at the menu's current price.
func (s *OrderService) AddItem(ctx context.Context, orderID uint, req transport.AddItemRequest) (*models.Order, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	return s.mutateItems(ctx, orderID, func(tx *repo.GormRepo, order *models.Order) error {
		menu, err := tx.GetMenu(ctx, req.MenuID)
		if err != nil {
			return repoErr(err, "menu %d", req.MenuID)
		}
		if !menu.Available {
			return fmt.Errorf("%w: menu %q is not available", ErrBusinessRule, menu.Name)
		}

		existing, err := tx.FindOrderItemByMenu(ctx, order.ID, menu.ID)
		switch {
		case err == nil:
			merged := existing.Quantity + req.Quantity
			if merged > transport.MaxItemQuantity {
				return FieldErrors{"quantity": fmt.Sprintf("combined quantity for %s must not exceed %d", menu.Name, transport.MaxItemQuantity)}
			}
			existing.Quantity = merged
			return tx.SaveOrderItem(ctx, existing)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.CreateOrderItem(ctx, &models.OrderItem{
				OrderID:  order.ID,
				MenuID:   menu.ID,
				MenuName: menu.Name,
				Quantity: req.Quantity,
				Price:    menu.CurrentPrice(),
			})
		default:
			return err
		}
	})
}

func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	return s.mutateItems(ctx, orderID, func(tx *repo.GormRepo, order *models.Order) error {
		if _, err := tx.GetOrderItem(ctx, order.ID, itemID); err != nil {
			return repoErr(err, "item %d in order %d", itemID, order.ID)
		}
		return tx.DeleteOrderItem(ctx, itemID)
	})
}

// UpdateItemQuantity sets the line quantity. A quantity of zero or less
// removes the line.
func (s *OrderService) UpdateItemQuantity(ctx context.Context, orderID, itemID uint, qty int) (*models.Order, error) {
	if qty > transport.MaxItemQuantity {
		return nil, FieldErrors{"quantity": fmt.Sprintf("quantity must not exceed %d", transport.MaxItemQuantity)}
	}
	return s.mutateItems(ctx, orderID, func(tx *repo.GormRepo, order *models.Order) error {
		item, err := tx.GetOrderItem(ctx, order.ID, itemID)
		if err != nil {
			return repoErr(err, "item %d in order %d", itemID, order.ID)
		}
		if qty <= 0 {
			return tx.DeleteOrderItem(ctx, item.ID)
		}
		item.Quantity = qty
		return tx.SaveOrderItem(ctx, item)
	})
}

// mutateItems locks the order, applies fn and recomputes the total from the
// stored lines in the same transaction.
func (s *OrderService) mutateItems(ctx context.Context, orderID uint, fn func(tx *repo.GormRepo, order *models.Order) error) (*models.Order, error) {
	var order *models.Order
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return repoErr(err, "order %d", orderID)
		}
		if err := fn(tx, order); err != nil {
			return err
		}

		order.Items, err = tx.OrderItems(ctx, order.ID)
		if err != nil {
			return err
		}
		order.Total = order.ComputeTotal()
		return tx.UpdateOrderFields(ctx, order.ID, map[string]any{"total": order.Total})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateStatus overwrites the status without checking the transition.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint, req transport.UpdateStatusRequest) (*models.Order, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.updateOrder(ctx, orderID, func(o *models.Order) (map[string]any, error) {
		o.Status = req.Status
		return map[string]any{"status": o.Status}, nil
	})
}

func (s *OrderService) CancelOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	return s.updateOrder(ctx, orderID, func(o *models.Order) (map[string]any, error) {
		if o.Status == models.OrderStatusCompleted {
			return nil, fmt.Errorf("%w: order %s is already completed", ErrBusinessRule, o.OrderNumber)
		}
		o.Status = models.OrderStatusCancelled
		o.PaymentStatus = models.PaymentStatusRefunded
		return map[string]any{"status": o.Status, "payment_status": o.PaymentStatus}, nil
	})
}

// ProcessPayment records method, marks the order PAID and CONFIRMED.
func (s *OrderService) ProcessPayment(ctx context.Context, orderID uint, method models.PaymentMethod) (*models.Order, error) {
	if method != models.PaymentMethodCash && method != models.PaymentMethodQRCode {
		return nil, FieldErrors{"paymentMethod": "paymentMethod must be one of: CASH QR_CODE"}
	}
	return s.updateOrder(ctx, orderID, func(o *models.Order) (map[string]any, error) {
		o.PaymentMethod = method
		o.PaymentStatus = models.PaymentStatusPaid
		o.Status = models.OrderStatusConfirmed
		return map[string]any{
			"payment_method": o.PaymentMethod,
			"payment_status": o.PaymentStatus,
			"status":         o.Status,
		}, nil
	})
}

func (s *OrderService) updateOrder(ctx context.Context, orderID uint, fn func(o *models.Order) (map[string]any, error)) (*models.Order, error) {
	var order *models.Order
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return repoErr(err, "order %d", orderID)
		}
		fields, err := fn(order)
		if err != nil {
			return err
		}
		if err := tx.UpdateOrderFields(ctx, order.ID, fields); err != nil {
			return err
		}
		order.Items, err = tx.OrderItems(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, repoErr(err, "order %d", id)
	}
	return s.withItems(ctx, order)
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	order, err := s.Repo.GetOrderByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, repoErr(err, "order %s", number)
	}
	return s.withItems(ctx, order)
}

func (s *OrderService) withItems(ctx context.Context, order *models.Order) (*models.Order, error) {
	items, err := s.Repo.OrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, status models.OrderStatus, offset, limit int) (int64, []models.Order, error) {
	total, orders, err := s.Repo.ListOrders(ctx, repo.OrderFilter{Status: status}, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func (s *OrderService) RecentOrders(ctx context.Context, n int) ([]models.Order, error) {
	_, orders, err := s.ListOrders(ctx, "", 0, n)
	return orders, err
}

// TodayOrders lists orders created between local midnight and the end of
// the current local day.
func (s *OrderService) TodayOrders(ctx context.Context) ([]models.Order, error) {
	from, to := dayWindow(s.Now.now())
	_, orders, err := s.Repo.ListOrders(ctx, repo.OrderFilter{From: &from, To: &to}, 0, 0)
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// RevenueToday sums the totals of today's PAID orders, zero when there are none.
func (s *OrderService) RevenueToday(ctx context.Context) (decimal.Decimal, error) {
	from, to := dayWindow(s.Now.now())
	_, orders, err := s.Repo.ListOrders(ctx, repo.OrderFilter{PaymentStatus: models.PaymentStatusPaid, From: &from, To: &to}, 0, 0)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Total)
	}
	return total, nil
}

func (s *OrderService) PendingCount(ctx context.Context) (int64, error) {
	return s.Repo.CountOrders(ctx, repo.OrderFilter{Status: models.OrderStatusPending})
}

func (s *OrderService) attachItems(ctx context.Context, orders []models.Order) error {
	ids := make([]uint, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	byOrder, err := s.Repo.ItemsForOrders(ctx, ids)
	if err != nil {
		return err
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}
	return nil
}
