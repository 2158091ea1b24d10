package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
)

type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func OK(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

func Fail(message string, data any) Envelope {
	return Envelope{Success: false, Message: message, Data: data}
}

type LoginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	SessionToken string         `json:"sessionToken"`
	ExpiresAt    time.Time      `json:"expiresAt"`
	Cashier      models.Cashier `json:"cashier"`
}

type ValidateResponse struct {
	Valid   bool            `json:"valid"`
	Cashier *models.Cashier `json:"cashier,omitempty"`
}

type CategoryRequest struct {
	Name         string `json:"name"         validate:"notblank,max=100"`
	DisplayOrder *int   `json:"displayOrder"`
}

type CategoryWithMenus struct {
	models.Category
	Menus []models.Menu `json:"menus"`
}

type MenuRequest struct {
	Name        string           `json:"name"        validate:"notblank,max=128"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price"       validate:"required"`
	ImageURL    string           `json:"imageUrl"    validate:"omitempty,max=512"`
	Available   *bool            `json:"available"`
	IsPromo     bool             `json:"isPromo"`
	PromoPrice  *decimal.Decimal `json:"promoPrice"`
	CategoryID  uint             `json:"categoryId"  validate:"required"`
}

type MenuQuery struct {
	AvailableOnly bool
	CategoryID    *uint
	Search        *string
}

// MaxItemQuantity caps a single order line, including merged lines.
const MaxItemQuantity = 999

type OrderItemRequest struct {
	MenuID   uint `json:"menuId"   validate:"required"`
	Quantity int  `json:"quantity" validate:"min=1,max=999"`
}

type CreateOrderRequest struct {
	CustomerName string             `json:"customerName" validate:"max=100"`
	OrderType    models.OrderType   `json:"orderType"    validate:"omitempty,oneof=CASHIER_ASSISTED SELF_SERVICE"`
	Items        []OrderItemRequest `json:"items"        validate:"required,min=1,dive"`
}

type AddItemRequest struct {
	MenuID   uint `json:"menuId"   validate:"required"`
	Quantity int  `json:"quantity" validate:"min=1,max=999"`
}

type UpdateItemQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=PENDING CONFIRMED COMPLETED CANCELLED"`
}

type PaymentRequest struct {
	OrderNumber   string               `json:"orderNumber"   validate:"notblank"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" validate:"required,oneof=CASH QR_CODE"`
	AmountPaid    *decimal.Decimal     `json:"amountPaid"`
	QRData        string               `json:"qrData"`
}

type PaymentResponse struct {
	Order   models.Order    `json:"order"`
	Invoice *models.Invoice `json:"invoice,omitempty"`
	Change  decimal.Decimal `json:"change"`
}

type QRCodeResponse struct {
	OrderNumber string          `json:"orderNumber"`
	Amount      decimal.Decimal `json:"amount"`
	Payload     string          `json:"payload"`
	Image       string          `json:"image"`
}

type CreateCashierRequest struct {
	Username    string      `json:"username"    validate:"required,min=3,max=64,alphanum"`
	Password    string      `json:"password"    validate:"required,min=6"`
	DisplayName string      `json:"displayName" validate:"notblank,max=128"`
	Role        models.Role `json:"role"        validate:"omitempty,oneof=ADMIN CASHIER"`
}

type UpdateCashierRequest struct {
	DisplayName *string      `json:"displayName" validate:"omitempty,notblank,max=128"`
	Role        *models.Role `json:"role"        validate:"omitempty,oneof=ADMIN CASHIER"`
	Password    *string      `json:"password"    validate:"omitempty,min=6"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}
