package app

import (
	"context"
	"testing"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/liderplast/backoffice/config"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/quote"
	"github.com/liderplast/backoffice/internal/sales"
	"github.com/liderplast/backoffice/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *Application {
	cfg := *config.DefaultAppConfig
	a := NewApplication(&cfg)
	a.OverrideDB(testutil.NewDB(t))
	return a
}

func itemID(t *testing.T, a *Application, name string) int64 {
	var it domain.CatalogItem
	require.NoError(t, a.DB().Where("name = ?", name).First(&it).Error)
	return it.ID
}

func provinceID(t *testing.T, a *Application, name string) int64 {
	var p domain.Province
	require.NoError(t, a.DB().Where("name = ?", name).First(&p).Error)
	return p.ID
}

func TestSeedIsIdempotent(t *testing.T) {
	a := newTestApp(t)
	a.Seed()
	a.Seed()

	var provinces, items, settings, methods int64
	a.DB().Model(&domain.Province{}).Count(&provinces)
	a.DB().Model(&domain.CatalogItem{}).Count(&items)
	a.DB().Model(&domain.SysConfig{}).Count(&settings)
	a.DB().Model(&domain.FinancePaymentMethod{}).Count(&methods)
	assert.Equal(t, int64(len(defaultProvinces)), provinces)
	assert.GreaterOrEqual(t, items, int64(len(defaultCatalog)))
	assert.Equal(t, int64(len(a.ConfigMgr().Schemas())), settings)
	assert.Equal(t, int64(len(defaultPaymentMethods)), methods)

	var price domain.Price
	require.NoError(t, a.DB().
		Where("catalog_item_id = ? AND province_id = ?", itemID(t, a, "P-600300"), provinceID(t, a, "Córdoba")).
		First(&price).Error)
	assert.Equal(t, "1964000.00", price.UnitPriceNet.StringFixed(2))
}

func TestSeededCordobaQuote(t *testing.T) {
	a := newTestApp(t)
	a.Seed()
	ctx := context.Background()

	b, err := a.Sales().Preview(ctx, sales.PreviewInput{
		Channel:    domain.ChannelInternal,
		ProvinceID: provinceID(t, a, "Córdoba"),
		Selection: quote.Selection{
			ShellID: itemID(t, a, "P-600300"),
			Charges: quote.Charges{Freight: decimal.NewFromInt(500000)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1964000.00", b.SubtotalProduct.StringFixed(2))
	assert.Equal(t, "2464000.00", b.TotalPayable.StringFixed(2))
	require.Len(t, b.Lines, 1)
}

func TestSaveSettings(t *testing.T) {
	a := newTestApp(t)
	a.Seed()

	assert.Equal(t, int64(365), a.GetSettingsInt64Value("system", "oprlog_retention_days"))
	assert.True(t, a.GetSettingsBoolValue("fleet", "overdue_report"))

	require.NoError(t, a.SaveSettings(map[string]interface{}{
		"system.oprlog_retention_days": "30",
		"quote.default_color":          "Arena",
	}))
	assert.Equal(t, int64(30), a.GetSettingsInt64Value("system", "oprlog_retention_days"))
	assert.Equal(t, "Arena", a.GetSettingsStringValue("quote", "default_color"))

	var row domain.SysConfig
	require.NoError(t, a.DB().Where("type = ? AND name = ?", "system", "oprlog_retention_days").First(&row).Error)
	assert.Equal(t, "30", row.Value)

	assert.ErrorIs(t, a.SaveSettings(map[string]interface{}{"nope.key": 1}), ErrUnknownSetting)
	assert.Error(t, a.SaveSettings(map[string]interface{}{"quote.default_color": "Rojo"}))
	assert.Error(t, a.SaveSettings(map[string]interface{}{
		"fleet.overdue_grace_hours": "pronto",
		"system.oprlog_retention_days": 10,
	}))
	assert.Equal(t, int64(30), a.GetSettingsInt64Value("system", "oprlog_retention_days"))
}

func TestOprLogPurge(t *testing.T) {
	a := newTestApp(t)
	a.Seed()
	require.NoError(t, a.DB().Create(&[]domain.SysOprLog{
		{ID: 1, OprName: "ana", OptAction: "delete_order", OptTime: time.Now().AddDate(-2, 0, 0)},
		{ID: 2, OprName: "ana", OptAction: "create_order", OptTime: time.Now()},
	}).Error)
	assert.Equal(t, int64(1), a.SchedOprLogPurgeTask())

	var left int64
	a.DB().Model(&domain.SysOprLog{}).Count(&left)
	assert.Equal(t, int64(1), left)
}

func TestOverdueTripsTask(t *testing.T) {
	a := newTestApp(t)
	a.Seed()
	require.NoError(t, a.DB().Create(&domain.Vehicle{ID: 1, Name: "Furgón", Capacity: 2, IsActive: true}).Error)
	require.NoError(t, a.DB().Create(&domain.Driver{ID: 2, Name: "Carlos", IsActive: true}).Error)
	require.NoError(t, a.DB().Create(&[]domain.Trip{
		{ID: 10, TripCode: "FL-1", VehicleID: 1, DriverID: 2, Status: domain.TripStatusPlanned, TripDate: time.Now().AddDate(0, 0, -3)},
		{ID: 11, TripCode: "FL-2", VehicleID: 1, DriverID: 2, Status: domain.TripStatusPlanned, TripDate: time.Now().AddDate(0, 0, 3)},
		{ID: 12, TripCode: "FL-3", VehicleID: 1, DriverID: 2, Status: domain.TripStatusDelivered, TripDate: time.Now().AddDate(0, 0, -3)},
	}).Error)
	assert.Equal(t, 1, a.SchedOverdueTripsTask())

	require.NoError(t, a.SaveSettings(map[string]interface{}{"fleet.overdue_report": false}))
	assert.Equal(t, 0, a.SchedOverdueTripsTask())
}

func TestViewCacheInvalidation(t *testing.T) {
	v := NewViewCache(16, EventBus.New())
	v.Set("/fletes", []byte("board"))
	v.Set("/fletes?status=PLANNED", []byte("planned"))
	v.Set("/fletes/1", []byte("detail"))
	v.Set("/fletes-archive", []byte("other"))

	v.Invalidate("/fletes")
	_, ok := v.Get("/fletes")
	assert.False(t, ok)
	_, ok = v.Get("/fletes?status=PLANNED")
	assert.False(t, ok)
	body, ok := v.Get("/fletes/1")
	assert.True(t, ok)
	assert.Equal(t, "detail", string(body))
	_, ok = v.Get("/fletes-archive")
	assert.True(t, ok)

	v.Set("/fletes/2?x=1", []byte("detail"))
	v.Invalidate("/fletes/")
	assert.Equal(t, 1, v.Len())
}

func TestViewCacheSkipsViewsInvalidatedMidBuild(t *testing.T) {
	v := NewViewCache(16, EventBus.New())

	gen := v.Generation()
	v.Invalidate("/fletes/9")
	assert.False(t, v.SetIfCurrent("/fletes", []byte("stale"), gen))
	_, ok := v.Get("/fletes")
	assert.False(t, ok)

	gen = v.Generation()
	assert.True(t, v.SetIfCurrent("/fletes", []byte("fresh"), gen))
	body, ok := v.Get("/fletes")
	require.True(t, ok)
	assert.Equal(t, "fresh", string(body))
}

func TestAssignmentInvalidatesTripViews(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.DB().Create(&domain.Vehicle{ID: 1, Name: "Furgón", Capacity: 2, IsActive: true}).Error)
	require.NoError(t, a.DB().Create(&domain.Order{ID: 5, OrderNumber: "PED-1", Status: domain.OrderStatusPending}).Error)
	require.NoError(t, a.DB().Create(&domain.Trip{ID: 7, TripCode: "FL-7", VehicleID: 1, Status: domain.TripStatusPlanned, TripDate: time.Now()}).Error)

	a.Views().Set("/fletes", []byte("board"))
	a.Views().Set("/fletes/7", []byte("detail"))
	require.NoError(t, a.Fleet().Assign(ctx, 5, 7))
	assert.Equal(t, 0, a.Views().Len())
}
