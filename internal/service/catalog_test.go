package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/chopchop_pos/internal/models"
	"github.com/Skotchmaster/chopchop_pos/internal/transport"
)

type fakeSearcher struct {
	ids        []uint
	err        error
	categories []*uint
	upserts    []uint
	deletes    []uint
}

func (f *fakeSearcher) SearchAvailable(_ context.Context, _ string, categoryID *uint) ([]uint, error) {
	f.categories = append(f.categories, categoryID)
	return f.ids, f.err
}

func (f *fakeSearcher) Upsert(_ context.Context, m models.Menu) error {
	f.upserts = append(f.upserts, m.ID)
	return nil
}

func (f *fakeSearcher) Delete(_ context.Context, id uint) error {
	f.deletes = append(f.deletes, id)
	return nil
}

func TestCatalog_CreateMenu_WritesCreatedAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	cat := env.category(t, "Drinks")

	m := env.menu(t, admin.ID, cat.ID, "Tea", 5000)
	assert.True(t, m.Available)

	logs, err := env.Catalog.AuditLogsForMenu(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditCreated, logs[0].Action)
	assert.Equal(t, admin.ID, logs[0].CashierID)

	ch, err := logs[0].Change()
	require.NoError(t, err)
	created, ok := ch.(models.MenuCreated)
	require.True(t, ok)
	assert.Equal(t, "Tea", created.After.Name)
	requireDecimal(t, dec(5000), created.After.Price)
}

func TestCatalog_CreateMenu_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	cat := env.category(t, "Drinks")

	tests := []struct {
		name  string
		req   transport.MenuRequest
		field string
	}{
		{name: "blank name", req: transport.MenuRequest{Name: "  ", Price: decPtr(1), CategoryID: cat.ID}, field: "name"},
		{name: "missing price", req: transport.MenuRequest{Name: "Tea", CategoryID: cat.ID}, field: "price"},
		{name: "negative price", req: transport.MenuRequest{Name: "Tea", Price: decPtr(-1), CategoryID: cat.ID}, field: "price"},
		{name: "unknown category", req: transport.MenuRequest{Name: "Tea", Price: decPtr(1), CategoryID: 999}, field: "categoryId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Catalog.CreateMenu(ctx, admin.ID, tt.req)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrValidation))

			var fe FieldErrors
			require.True(t, errors.As(err, &fe))
			assert.Contains(t, fe, tt.field)
		})
	}
}

func TestCatalog_ToggleAvailabilityTwice_TwoAuditEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	cat := env.category(t, "Drinks")
	m := env.menu(t, admin.ID, cat.ID, "Tea", 5000)

	first, err := env.Catalog.ToggleAvailability(ctx, admin.ID, m.ID)
	require.NoError(t, err)
	assert.False(t, first.Available)

	second, err := env.Catalog.ToggleAvailability(ctx, admin.ID, m.ID)
	require.NoError(t, err)
	assert.True(t, second.Available)

	logs, err := env.Catalog.AuditLogsForMenu(ctx, m.ID)
	require.NoError(t, err)

	var toggles []models.AvailabilityChanged
	for _, l := range logs {
		if l.Action != models.AuditAvailabilityChanged {
			continue
		}
		ch, err := l.Change()
		require.NoError(t, err)
		toggles = append(toggles, ch.(models.AvailabilityChanged))
	}
	require.Len(t, toggles, 2)
	assert.ElementsMatch(t, []models.AvailabilityChanged{
		{Before: true, After: false},
		{Before: false, After: true},
	}, toggles)
}

func TestCatalog_UpdateMenu_PriceChangeAddsPriceAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	cat := env.category(t, "Drinks")
	m := env.menu(t, admin.ID, cat.ID, "Tea", 5000)

	updated, err := env.Catalog.UpdateMenu(ctx, admin.ID, m.ID, transport.MenuRequest{
		Name:       "Iced Tea",
		Price:      decPtr(6000),
		CategoryID: cat.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Iced Tea", updated.Name)
	assert.True(t, updated.Available)

	logs, err := env.Catalog.AuditLogsForMenu(ctx, m.ID)
	require.NoError(t, err)
	actions := map[models.AuditAction]models.MenuAuditLog{}
	for _, l := range logs {
		actions[l.Action] = l
	}
	require.Contains(t, actions, models.AuditUpdated)
	require.Contains(t, actions, models.AuditPriceChanged)

	ch, err := actions[models.AuditPriceChanged].Change()
	require.NoError(t, err)
	pc := ch.(models.PriceChanged)
	requireDecimal(t, dec(5000), pc.Before)
	requireDecimal(t, dec(6000), pc.After)

	// same price: no PRICE_CHANGED entry
	_, err = env.Catalog.UpdateMenu(ctx, admin.ID, m.ID, transport.MenuRequest{
		Name:       "Iced Tea L",
		Price:      decPtr(6000),
		CategoryID: cat.ID,
	})
	require.NoError(t, err)
	logs, err = env.Catalog.AuditLogsForMenu(ctx, m.ID)
	require.NoError(t, err)
	n := 0
	for _, l := range logs {
		if l.Action == models.AuditPriceChanged {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestCatalog_DeleteMenu_AuditKeepsName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	cat := env.category(t, "Drinks")
	m := env.menu(t, admin.ID, cat.ID, "Tea", 5000)

	require.NoError(t, env.Catalog.DeleteMenu(ctx, admin.ID, m.ID))

	_, err := env.Catalog.GetMenu(ctx, m.ID)
	require.True(t, errors.Is(err, ErrNotFound))

	logs, err := env.Catalog.AuditLogsByCashier(ctx, admin.ID)
	require.NoError(t, err)
	var deleted *models.MenuAuditLog
	for i := range logs {
		if logs[i].Action == models.AuditDeleted {
			deleted = &logs[i]
		}
	}
	require.NotNil(t, deleted)
	assert.Nil(t, deleted.MenuID)
	assert.Equal(t, "Tea", deleted.MenuName)

	err = env.Catalog.DeleteMenu(ctx, admin.ID, m.ID)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestCatalog_MutationRequiresCashier(t *testing.T) {
	env := newTestEnv(t)
	cat := env.category(t, "Drinks")

	_, err := env.Catalog.CreateMenu(context.Background(), 0, transport.MenuRequest{
		Name: "Tea", Price: decPtr(5000), CategoryID: cat.ID,
	})
	require.True(t, errors.Is(err, ErrUnauthorized))

	menus, err := env.Catalog.ListMenus(context.Background(), transport.MenuQuery{})
	require.NoError(t, err)
	assert.Empty(t, menus)
}

func TestCatalog_ListMenus_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	drinks := env.category(t, "Drinks")
	food := env.category(t, "Food")

	tea := env.menu(t, admin.ID, drinks.ID, "Green Tea", 5000)
	env.menu(t, admin.ID, drinks.ID, "Coffee", 8000)
	rice := env.menu(t, admin.ID, food.ID, "Fried Rice", 20000)
	_, err := env.Catalog.ToggleAvailability(ctx, admin.ID, rice.ID)
	require.NoError(t, err)

	all, err := env.Catalog.ListMenus(ctx, transport.MenuQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := env.Catalog.ListMenus(ctx, transport.MenuQuery{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	byCat, err := env.Catalog.ListMenus(ctx, transport.MenuQuery{CategoryID: &food.ID})
	require.NoError(t, err)
	require.Len(t, byCat, 1)
	assert.Equal(t, rice.ID, byCat[0].ID)

	term := "TEA"
	found, err := env.Catalog.ListMenus(ctx, transport.MenuQuery{Search: &term})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, tea.ID, found[0].ID)

	rice2 := "rice"
	found, err = env.Catalog.ListMenus(ctx, transport.MenuQuery{Search: &rice2})
	require.NoError(t, err)
	assert.Empty(t, found)

	blank := "  "
	found, err = env.Catalog.ListMenus(ctx, transport.MenuQuery{Search: &blank})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestCatalog_Search_UsesIndexThenFallsBack(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	cat := env.category(t, "Drinks")
	tea := env.menu(t, admin.ID, cat.ID, "Tea", 5000)
	coffee := env.menu(t, admin.ID, cat.ID, "Coffee", 8000)

	idx := &fakeSearcher{ids: []uint{coffee.ID}}
	env.Catalog.Search = idx

	term := "anything"
	found, err := env.Catalog.ListMenus(ctx, transport.MenuQuery{Search: &term})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, coffee.ID, found[0].ID)

	idx.err = errors.New("index down")
	term = "tea"
	found, err = env.Catalog.ListMenus(ctx, transport.MenuQuery{Search: &term})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, tea.ID, found[0].ID)

	_, err = env.Catalog.ToggleAvailability(ctx, admin.ID, tea.ID)
	require.NoError(t, err)
	require.NoError(t, env.Catalog.DeleteMenu(ctx, admin.ID, coffee.ID))
	assert.Equal(t, []uint{tea.ID}, idx.upserts)
	assert.Equal(t, []uint{coffee.ID}, idx.deletes)
}

func TestCatalog_Search_KeepsCategoryFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	drinks := env.category(t, "Drinks")
	desserts := env.category(t, "Desserts")
	iceTea := env.menu(t, admin.ID, drinks.ID, "Ice Tea", 5000)
	teaCake := env.menu(t, admin.ID, desserts.ID, "Tea Cake", 9000)

	term := "tea"
	found, err := env.Catalog.ListMenus(ctx, transport.MenuQuery{Search: &term, CategoryID: &desserts.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, teaCake.ID, found[0].ID)

	blank := ""
	found, err = env.Catalog.ListMenus(ctx, transport.MenuQuery{Search: &blank, CategoryID: &drinks.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, iceTea.ID, found[0].ID)

	idx := &fakeSearcher{ids: []uint{iceTea.ID, teaCake.ID}}
	env.Catalog.Search = idx
	found, err = env.Catalog.ListMenus(ctx, transport.MenuQuery{Search: &term, CategoryID: &drinks.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, iceTea.ID, found[0].ID)
	require.Len(t, idx.categories, 1)
	require.NotNil(t, idx.categories[0])
	assert.Equal(t, drinks.ID, *idx.categories[0])
}

func TestCatalog_PromoMenus_CurrentPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	cat := env.category(t, "Drinks")
	env.menu(t, admin.ID, cat.ID, "Tea", 5000)

	promo, err := env.Catalog.CreateMenu(ctx, admin.ID, transport.MenuRequest{
		Name: "Coffee", Price: decPtr(10000), IsPromo: true, PromoPrice: decPtr(7000), CategoryID: cat.ID,
	})
	require.NoError(t, err)
	requireDecimal(t, dec(7000), promo.CurrentPrice())

	menus, err := env.Catalog.ListPromoMenus(ctx)
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, promo.ID, menus[0].ID)
}

func TestCatalog_Categories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)

	neg := -1
	first, err := env.Catalog.CreateCategory(ctx, transport.CategoryRequest{Name: "Specials", DisplayOrder: &neg})
	require.NoError(t, err)
	assert.Equal(t, -1, first.DisplayOrder)

	drinks := env.category(t, "Drinks")

	_, err = env.Catalog.CreateCategory(ctx, transport.CategoryRequest{Name: "Drinks"})
	require.True(t, errors.Is(err, ErrConflict))

	_, err = env.Catalog.UpdateCategory(ctx, drinks.ID, transport.CategoryRequest{Name: "Specials"})
	require.True(t, errors.Is(err, ErrConflict))

	cats, err := env.Catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Specials", cats[0].Name)

	env.menu(t, admin.ID, drinks.ID, "Tea", 5000)
	withMenus, err := env.Catalog.ListCategoriesWithMenus(ctx)
	require.NoError(t, err)
	require.Len(t, withMenus, 2)
	assert.Empty(t, withMenus[0].Menus)
	assert.Len(t, withMenus[1].Menus, 1)

	err = env.Catalog.DeleteCategory(ctx, drinks.ID)
	require.True(t, errors.Is(err, ErrBusinessRule))

	require.NoError(t, env.Catalog.DeleteCategory(ctx, first.ID))
	err = env.Catalog.DeleteCategory(ctx, first.ID)
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestCatalog_RecentAuditLogs_Paginates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.cashier(t, "admin", models.RoleAdmin)
	cat := env.category(t, "Drinks")
	m := env.menu(t, admin.ID, cat.ID, "Tea", 5000)
	for i := 0; i < 3; i++ {
		_, err := env.Catalog.ToggleAvailability(ctx, admin.ID, m.ID)
		require.NoError(t, err)
	}

	total, page, err := env.Catalog.RecentAuditLogs(ctx, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, page, 2)
}
