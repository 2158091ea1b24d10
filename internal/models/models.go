package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleCashier Role = "CASHIER"
)

type OrderType string

const (
	OrderTypeCashierAssisted OrderType = "CASHIER_ASSISTED"
	OrderTypeSelfService     OrderType = "SELF_SERVICE"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodQRCode PaymentMethod = "QR_CODE"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type Cashier struct {
	ID           uint       `gorm:"primaryKey"                 json:"id"`
	Username     string     `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"not null"                   json:"-"`
	DisplayName  string     `gorm:"size:128;not null"          json:"displayName"`
	Role         Role       `gorm:"size:16;not null"           json:"role"`
	Active       bool       `gorm:"not null"                   json:"active"`
	LastLoginAt  *time.Time `                                  json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `                                  json:"createdAt"`
	UpdatedAt    time.Time  `                                  json:"updatedAt"`
}

func (c Cashier) IsAdmin() bool { return c.Role == RoleAdmin }

type CashierSession struct {
	ID        uint      `gorm:"primaryKey"                  json:"id"`
	CashierID uint      `gorm:"index;not null"              json:"cashierId"`
	Token     string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null"              json:"expiresAt"`
	CreatedAt time.Time `                                   json:"createdAt"`
}

// Expired reports whether the session is no longer usable at now.
func (s CashierSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type Category struct {
	ID           uint      `gorm:"primaryKey"                   json:"id"`
	Name         string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	DisplayOrder int       `gorm:"not null"                     json:"displayOrder"`
	CreatedAt    time.Time `                                    json:"createdAt"`
	UpdatedAt    time.Time `                                    json:"updatedAt"`
}

type Menu struct {
	ID          uint                `gorm:"primaryKey"                json:"id"`
	Name        string              `gorm:"size:128;not null"         json:"name"`
	Description string              `gorm:"type:text"                 json:"description"`
	Price       decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"price"`
	ImageURL    string              `gorm:"size:512"                  json:"imageUrl"`
	Available   bool                `gorm:"index;not null"            json:"available"`
	IsPromo     bool                `gorm:"not null"                  json:"isPromo"`
	PromoPrice  decimal.NullDecimal `gorm:"type:numeric(12,2)"        json:"promoPrice"`
	CategoryID  uint                `gorm:"index;not null"            json:"categoryId"`
	CreatedAt   time.Time           `                                 json:"createdAt"`
	UpdatedAt   time.Time           `                                 json:"updatedAt"`
}

// CurrentPrice is the promo price when the promo flag is on and a promo
// price is set, otherwise the base price. It is never persisted.
func (m Menu) CurrentPrice() decimal.Decimal {
	if m.IsPromo && m.PromoPrice.Valid {
		return m.PromoPrice.Decimal
	}
	return m.Price
}

func (m Menu) MarshalJSON() ([]byte, error) {
	type menu Menu
	return json.Marshal(struct {
		menu
		CurrentPrice decimal.Decimal `json:"currentPrice"`
	}{menu(m), m.CurrentPrice()})
}

type Order struct {
	ID            uint            `gorm:"primaryKey"                  json:"id"`
	OrderNumber   string          `gorm:"size:40;uniqueIndex;not null" json:"orderNumber"`
	CustomerName  string          `gorm:"size:100"                    json:"customerName"`
	OrderType     OrderType       `gorm:"size:20;not null"            json:"orderType"`
	Status        OrderStatus     `gorm:"size:16;index;not null"      json:"status"`
	PaymentMethod PaymentMethod   `gorm:"size:16"                     json:"paymentMethod,omitempty"`
	PaymentStatus PaymentStatus   `gorm:"size:16;index;not null"      json:"paymentStatus"`
	Total         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	CashierID     *uint           `gorm:"index"                       json:"cashierId,omitempty"`
	CreatedAt     time.Time       `gorm:"index"                       json:"createdAt"`
	UpdatedAt     time.Time       `                                   json:"updatedAt"`

	Items []OrderItem `gorm:"-" json:"items"`
}

// ComputeTotal sums price times quantity over the loaded items.
func (o Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey"                  json:"id"`
	OrderID   uint            `gorm:"index;not null"              json:"orderId"`
	MenuID    uint            `gorm:"index;not null"              json:"menuId"`
	MenuName  string          `gorm:"size:128;not null"           json:"menuName"`
	Quantity  int             `gorm:"not null;check:quantity>0"   json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt time.Time       `                                   json:"createdAt"`
	UpdatedAt time.Time       `                                   json:"updatedAt"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type item OrderItem
	return json.Marshal(struct {
		item
		Subtotal decimal.Decimal `json:"subtotal"`
	}{item(i), i.Subtotal()})
}

type Invoice struct {
	ID            uint            `gorm:"primaryKey"                  json:"id"`
	InvoiceNumber string          `gorm:"size:40;uniqueIndex;not null" json:"invoiceNumber"`
	OrderID       uint            `gorm:"uniqueIndex;not null"        json:"orderId"`
	CashierID     *uint           `gorm:"index"                       json:"cashierId,omitempty"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"totalAmount"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"taxAmount"`
	FinalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"finalAmount"`
	PaymentMethod PaymentMethod   `gorm:"size:16"                     json:"paymentMethod"`
	CreatedAt     time.Time       `gorm:"index"                       json:"createdAt"`
}

// BeforeSave keeps the final amount derived from total and tax.
func (i *Invoice) BeforeSave(*gorm.DB) error {
	i.FinalAmount = i.TotalAmount.Add(i.TaxAmount)
	return nil
}

type MenuAuditLog struct {
	ID        uint        `gorm:"primaryKey"       json:"id"`
	MenuID    *uint       `gorm:"index"            json:"menuId"`
	MenuName  string      `gorm:"size:128;not null" json:"menuName"`
	CashierID uint        `gorm:"index;not null"   json:"cashierId"`
	Action    AuditAction `gorm:"size:24;not null" json:"action"`
	OldValues string      `gorm:"type:text"        json:"-"`
	NewValues string      `gorm:"type:text"        json:"-"`
	CreatedAt time.Time   `gorm:"index"            json:"createdAt"`
}

func All() []any {
	return []any{
		&Cashier{}, &CashierSession{}, &Category{}, &Menu{},
		&Order{}, &OrderItem{}, &Invoice{}, &MenuAuditLog{},
	}
}
