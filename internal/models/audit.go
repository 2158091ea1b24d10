package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type AuditAction string

const (
	AuditCreated             AuditAction = "CREATED"
	AuditUpdated             AuditAction = "UPDATED"
	AuditPriceChanged        AuditAction = "PRICE_CHANGED"
	AuditAvailabilityChanged AuditAction = "AVAILABILITY_CHANGED"
	AuditDeleted             AuditAction = "DELETED"
)

// AuditChange is one of MenuCreated, MenuUpdated, PriceChanged,
// AvailabilityChanged or MenuDeleted.
type AuditChange interface {
	Action() AuditAction
	values() (before, after any)
}

type MenuSnapshot struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	ImageURL    string              `json:"imageUrl"`
	CategoryID  uint                `json:"categoryId"`
	Available   bool                `json:"available"`
	IsPromo     bool                `json:"isPromo"`
	PromoPrice  decimal.NullDecimal `json:"promoPrice"`
}

func SnapshotOf(m Menu) MenuSnapshot {
	return MenuSnapshot{
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		ImageURL:    m.ImageURL,
		CategoryID:  m.CategoryID,
		Available:   m.Available,
		IsPromo:     m.IsPromo,
		PromoPrice:  m.PromoPrice,
	}
}

type MenuCreated struct {
	After MenuSnapshot `json:"after"`
}

type MenuUpdated struct {
	Before MenuSnapshot `json:"before"`
	After  MenuSnapshot `json:"after"`
}

type PriceChanged struct {
	Before decimal.Decimal `json:"before"`
	After  decimal.Decimal `json:"after"`
}

type AvailabilityChanged struct {
	Before bool `json:"before"`
	After  bool `json:"after"`
}

type MenuDeleted struct {
	Before MenuSnapshot `json:"before"`
}

func (MenuCreated) Action() AuditAction         { return AuditCreated }
func (MenuUpdated) Action() AuditAction         { return AuditUpdated }
func (PriceChanged) Action() AuditAction        { return AuditPriceChanged }
func (AvailabilityChanged) Action() AuditAction { return AuditAvailabilityChanged }
func (MenuDeleted) Action() AuditAction         { return AuditDeleted }

type priceValue struct {
	Price decimal.Decimal `json:"price"`
}

type availableValue struct {
	Available bool `json:"available"`
}

func (c MenuCreated) values() (any, any) { return nil, c.After }
func (c MenuUpdated) values() (any, any) { return c.Before, c.After }
func (c PriceChanged) values() (any, any) {
	return priceValue{c.Before}, priceValue{c.After}
}
func (c AvailabilityChanged) values() (any, any) {
	return availableValue{c.Before}, availableValue{c.After}
}
func (c MenuDeleted) values() (any, any) { return c.Before, nil }

// NewMenuAuditLog builds an entry for change. menuID is nil for deletions.
func NewMenuAuditLog(menuID *uint, menuName string, cashierID uint, change AuditChange) (MenuAuditLog, error) {
	before, after := change.values()
	oldValues, err := encodeValues(before)
	if err != nil {
		return MenuAuditLog{}, err
	}
	newValues, err := encodeValues(after)
	if err != nil {
		return MenuAuditLog{}, err
	}
	return MenuAuditLog{
		MenuID:    menuID,
		MenuName:  menuName,
		CashierID: cashierID,
		Action:    change.Action(),
		OldValues: oldValues,
		NewValues: newValues,
	}, nil
}

func encodeValues(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("audit: encode values: %w", err)
	}
	return string(b), nil
}

// Change decodes the stored values back into the typed change for l.Action.
func (l MenuAuditLog) Change() (AuditChange, error) {
	switch l.Action {
	case AuditCreated:
		var c MenuCreated
		if err := decodeValues(l.NewValues, &c.After); err != nil {
			return nil, err
		}
		return c, nil
	case AuditUpdated:
		var c MenuUpdated
		if err := decodeValues(l.OldValues, &c.Before); err != nil {
			return nil, err
		}
		if err := decodeValues(l.NewValues, &c.After); err != nil {
			return nil, err
		}
		return c, nil
	case AuditPriceChanged:
		var before, after priceValue
		if err := decodeValues(l.OldValues, &before); err != nil {
			return nil, err
		}
		if err := decodeValues(l.NewValues, &after); err != nil {
			return nil, err
		}
		return PriceChanged{Before: before.Price, After: after.Price}, nil
	case AuditAvailabilityChanged:
		var before, after availableValue
		if err := decodeValues(l.OldValues, &before); err != nil {
			return nil, err
		}
		if err := decodeValues(l.NewValues, &after); err != nil {
			return nil, err
		}
		return AvailabilityChanged{Before: before.Available, After: after.Available}, nil
	case AuditDeleted:
		var c MenuDeleted
		if err := decodeValues(l.OldValues, &c.Before); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("audit: unknown action %q", l.Action)
}

func decodeValues(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("audit: decode values: %w", err)
	}
	return nil
}

func (l MenuAuditLog) MarshalJSON() ([]byte, error) {
	type entry MenuAuditLog
	out := struct {
		entry
		Change AuditChange `json:"change,omitempty"`
	}{entry: entry(l)}
	if ch, err := l.Change(); err == nil {
		out.Change = ch
	}
	return json.Marshal(out)
}
