package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/chopchop_pos/internal/logging"
	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/repo"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

// MenuSearcher is an external full-text index over menus.
type MenuSearcher interface {
	SearchAvailable(ctx context.Context, term string, categoryID *uint) ([]uint, error)
	Upsert(ctx context.Context, m models.Menu) error
	Delete(ctx context.Context, id uint) error
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Search MenuSearcher
}

func (s *CatalogService) GetMenu(ctx context.Context, id uint) (*models.Menu, error) {
	m, err := s.Repo.GetMenu(ctx, id)
	if err != nil {
		return nil, repoErr(err, "menu %d", id)
	}
	return m, nil
}

// ListMenus filters the catalog. A search term always restricts the result to
// available menus; a blank term lists every available menu. The category
// filter applies in every mode.
func (s *CatalogService) ListMenus(ctx context.Context, q transport.MenuQuery) ([]models.Menu, error) {
	if q.Search != nil {
		term := strings.TrimSpace(*q.Search)
		if term == "" {
			return s.Repo.ListMenus(ctx, repo.MenuFilter{AvailableOnly: true, CategoryID: q.CategoryID})
		}
		return s.searchAvailable(ctx, term, q.CategoryID)
	}
	return s.Repo.ListMenus(ctx, repo.MenuFilter{
		AvailableOnly: q.AvailableOnly,
		CategoryID:    q.CategoryID,
	})
}

func (s *CatalogService) searchAvailable(ctx context.Context, term string, categoryID *uint) ([]models.Menu, error) {
	if s.Search != nil {
		ids, err := s.Search.SearchAvailable(ctx, term, categoryID)
		if err == nil {
			return s.Repo.ListMenus(ctx, repo.MenuFilter{AvailableOnly: true, CategoryID: categoryID, IDs: ids})
		}
		logging.FromContext(ctx).Warn("menu_search_fallback", "reason", "search index unavailable", "error", err)
	}
	return s.Repo.ListMenus(ctx, repo.MenuFilter{AvailableOnly: true, CategoryID: categoryID, Search: term})
}

func (s *CatalogService) ListPromoMenus(ctx context.Context) ([]models.Menu, error) {
	return s.Repo.ListMenus(ctx, repo.MenuFilter{AvailableOnly: true, PromoOnly: true})
}

func (s *CatalogService) CreateMenu(ctx context.Context, cashierID uint, req transport.MenuRequest) (*models.Menu, error) {
	if err := validateMenu(req); err != nil {
		return nil, err
	}

	menu := models.Menu{Available: true}
	applyMenu(&menu, req)

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if err := ensureCategory(ctx, tx, menu.CategoryID); err != nil {
			return err
		}
		if err := tx.CreateMenu(ctx, &menu); err != nil {
			return fmt.Errorf("create menu: %w", err)
		}
		return appendAudit(ctx, tx, &menu.ID, menu.Name, cashierID, models.MenuCreated{After: models.SnapshotOf(menu)})
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, menu)
	return &menu, nil
}

// UpdateMenu overwrites every mutable field. An omitted availability flag
// keeps the current value; an omitted promo price clears it.
func (s *CatalogService) UpdateMenu(ctx context.Context, cashierID, id uint, req transport.MenuRequest) (*models.Menu, error) {
	if err := validateMenu(req); err != nil {
		return nil, err
	}

	var menu *models.Menu
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		menu, err = tx.GetMenu(ctx, id)
		if err != nil {
			return repoErr(err, "menu %d", id)
		}
		before := models.SnapshotOf(*menu)

		applyMenu(menu, req)
		if menu.CategoryID != before.CategoryID {
			if err := ensureCategory(ctx, tx, menu.CategoryID); err != nil {
				return err
			}
		}
		if err := tx.SaveMenu(ctx, menu); err != nil {
			return fmt.Errorf("update menu %d: %w", id, err)
		}

		after := models.SnapshotOf(*menu)
		if err := appendAudit(ctx, tx, &menu.ID, menu.Name, cashierID, models.MenuUpdated{Before: before, After: after}); err != nil {
			return err
		}
		if !before.Price.Equal(after.Price) {
			return appendAudit(ctx, tx, &menu.ID, menu.Name, cashierID, models.PriceChanged{Before: before.Price, After: after.Price})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, *menu)
	return menu, nil
}

func (s *CatalogService) ToggleAvailability(ctx context.Context, cashierID, id uint) (*models.Menu, error) {
	var menu *models.Menu
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		menu, err = tx.GetMenu(ctx, id)
		if err != nil {
			return repoErr(err, "menu %d", id)
		}

		before := menu.Available
		menu.Available = !before
		if err := tx.SaveMenu(ctx, menu); err != nil {
			return fmt.Errorf("toggle menu %d: %w", id, err)
		}
		return appendAudit(ctx, tx, &menu.ID, menu.Name, cashierID, models.AvailabilityChanged{Before: before, After: menu.Available})
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, *menu)
	return menu, nil
}

// DeleteMenu removes the menu. The audit entry keeps its name and last state
// with no menu reference.
func (s *CatalogService) DeleteMenu(ctx context.Context, cashierID, id uint) error {
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		menu, err := tx.GetMenu(ctx, id)
		if err != nil {
			return repoErr(err, "menu %d", id)
		}
		if err := tx.DeleteMenu(ctx, id); err != nil {
			return repoErr(err, "delete menu %d", id)
		}
		return appendAudit(ctx, tx, nil, menu.Name, cashierID, models.MenuDeleted{Before: models.SnapshotOf(*menu)})
	})
	if err != nil {
		return err
	}

	if s.Search != nil {
		if err := s.Search.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("menu_unindex_error", "menu_id", id, "error", err)
		}
	}
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

// ListCategoriesWithMenus nests the available menus of every category.
func (s *CatalogService) ListCategoriesWithMenus(ctx context.Context) ([]transport.CategoryWithMenus, error) {
	cats, err := s.Repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	menus, err := s.Repo.ListMenus(ctx, repo.MenuFilter{AvailableOnly: true})
	if err != nil {
		return nil, err
	}

	byCategory := make(map[uint][]models.Menu)
	for _, m := range menus {
		byCategory[m.CategoryID] = append(byCategory[m.CategoryID], m)
	}

	out := make([]transport.CategoryWithMenus, 0, len(cats))
	for _, c := range cats {
		ms := byCategory[c.ID]
		if ms == nil {
			ms = []models.Menu{}
		}
		out = append(out, transport.CategoryWithMenus{Category: c, Menus: ms})
	}
	return out, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	c, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, repoErr(err, "category %d", id)
	}
	return c, nil
}

// CreateCategory accepts any display order, negative values included.
func (s *CatalogService) CreateCategory(ctx context.Context, req transport.CategoryRequest) (*models.Category, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	cat := models.Category{Name: strings.TrimSpace(req.Name)}
	if req.DisplayOrder != nil {
		cat.DisplayOrder = *req.DisplayOrder
	}

	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		taken, err := tx.CategoryNameTaken(ctx, cat.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: category %q already exists", ErrConflict, cat.Name)
		}
		if err := tx.CreateCategory(ctx, &cat); err != nil {
			if isDuplicate(err) {
				return fmt.Errorf("%w: category %q already exists", ErrConflict, cat.Name)
			}
			return fmt.Errorf("create category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, req transport.CategoryRequest) (*models.Category, error) {
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	var cat *models.Category
	err := s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		var err error
		cat, err = tx.GetCategory(ctx, id)
		if err != nil {
			return repoErr(err, "category %d", id)
		}

		name := strings.TrimSpace(req.Name)
		taken, err := tx.CategoryNameTaken(ctx, name, id)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: category %q already exists", ErrConflict, name)
		}

		cat.Name = name
		if req.DisplayOrder != nil {
			cat.DisplayOrder = *req.DisplayOrder
		}
		if err := tx.SaveCategory(ctx, cat); err != nil {
			return fmt.Errorf("update category %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// DeleteCategory refuses to remove a category that still owns menus.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	return s.Repo.WithTx(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.GetCategory(ctx, id); err != nil {
			return repoErr(err, "category %d", id)
		}
		n, err := tx.CountMenusInCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: category %d still has %d menu(s)", ErrBusinessRule, id, n)
		}
		if err := tx.DeleteCategory(ctx, id); err != nil {
			return repoErr(err, "delete category %d", id)
		}
		return nil
	})
}

func (s *CatalogService) RecentAuditLogs(ctx context.Context, offset, limit int) (int64, []models.MenuAuditLog, error) {
	return s.Repo.RecentAuditLogs(ctx, offset, limit)
}

func (s *CatalogService) AuditLogsForMenu(ctx context.Context, menuID uint) ([]models.MenuAuditLog, error) {
	return s.Repo.AuditLogsForMenu(ctx, menuID)
}

func (s *CatalogService) AuditLogsByCashier(ctx context.Context, cashierID uint) ([]models.MenuAuditLog, error) {
	return s.Repo.AuditLogsByCashier(ctx, cashierID)
}

func (s *CatalogService) index(ctx context.Context, m models.Menu) {
	if s.Search == nil {
		return
	}
	if err := s.Search.Upsert(ctx, m); err != nil {
		logging.FromContext(ctx).Warn("menu_index_error", "menu_id", m.ID, "error", err)
	}
}

func validateMenu(req transport.MenuRequest) error {
	fields := FieldErrors{}
	if err := ValidateStruct(req); err != nil {
		var fe FieldErrors
		if !errors.As(err, &fe) {
			return err
		}
		fields.merge(fe)
	}
	if req.Price != nil && req.Price.IsNegative() {
		fields["price"] = "price must not be negative"
	}
	if req.PromoPrice != nil && req.PromoPrice.IsNegative() {
		fields["promoPrice"] = "promoPrice must not be negative"
	}
	return fields.orNil()
}

func applyMenu(m *models.Menu, req transport.MenuRequest) {
	m.Name = strings.TrimSpace(req.Name)
	m.Description = req.Description
	m.Price = req.Price.Round(2)
	m.ImageURL = req.ImageURL
	m.IsPromo = req.IsPromo
	m.CategoryID = req.CategoryID
	if req.Available != nil {
		m.Available = *req.Available
	}
	if req.PromoPrice != nil {
		m.PromoPrice = decimal.NewNullDecimal(req.PromoPrice.Round(2))
	} else {
		m.PromoPrice = decimal.NullDecimal{}
	}
}

func ensureCategory(ctx context.Context, tx *repo.GormRepo, id uint) error {
	if _, err := tx.GetCategory(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return FieldErrors{"categoryId": "categoryId does not reference an existing category"}
		}
		return err
	}
	return nil
}

func appendAudit(ctx context.Context, tx *repo.GormRepo, menuID *uint, menuName string, cashierID uint, change models.AuditChange) error {
	if cashierID == 0 {
		return fmt.Errorf("%w: catalog changes require a cashier", ErrUnauthorized)
	}
	entry, err := models.NewMenuAuditLog(menuID, menuName, cashierID, change)
	if err != nil {
		return err
	}
	if err := tx.AppendAuditLog(ctx, &entry); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}
