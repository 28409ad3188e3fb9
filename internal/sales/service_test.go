package sales

import (
	"context"
	"testing"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/pricing"
	"github.com/liderplast/backoffice/internal/quote"
	"github.com/liderplast/backoffice/internal/testutil"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recorder struct {
	paths []string
}

func (r *recorder) Invalidate(paths ...string) {
	r.paths = append(r.paths, paths...)
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	notify  *recorder
	cordoba domain.Province
	shell   domain.CatalogItem
	flete   domain.CatalogItem
	luces   domain.CatalogItem
	list    domain.ResellerPriceList
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func setup(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	prices := pricing.NewService(pricing.NewGormPriceRepository(db))
	f := &fixture{
		db:      db,
		notify:  &recorder{},
		cordoba: domain.Province{ID: 1, Name: "Córdoba", IsSellable: true},
		shell:   domain.CatalogItem{ID: 10, Name: "P-600300", Type: domain.ItemTypeProduct, IsActive: true},
		flete:   domain.CatalogItem{ID: 11, Name: "Flete Base", Type: domain.ItemTypeService, IsActive: true},
		luces:   domain.CatalogItem{ID: 12, Name: "Luces", Type: domain.ItemTypeProduct, IsActive: true},
		list:    domain.ResellerPriceList{ID: 20, Name: "Mayorista", IsActive: true},
	}
	f.svc = NewService(db, prices, f.notify)
	require.NoError(t, db.Create(&f.cordoba).Error)
	require.NoError(t, db.Create(&[]domain.CatalogItem{f.shell, f.flete, f.luces}).Error)
	require.NoError(t, db.Create(&f.list).Error)
	ctx := context.Background()
	require.NoError(t, prices.UpsertPrices(ctx, []pricing.PriceInput{
		{CatalogItemID: f.shell.ID, ProvinceID: f.cordoba.ID, UnitPriceNet: dec(1964000)},
		{CatalogItemID: f.flete.ID, ProvinceID: f.cordoba.ID, UnitPriceNet: dec(500000)},
		{CatalogItemID: f.luces.ID, ProvinceID: f.cordoba.ID, UnitPriceNet: dec(180000)},
	}))
	require.NoError(t, prices.UpsertResellerPrices(ctx, []pricing.ResellerPriceInput{
		{PriceListID: f.list.ID, CatalogItemID: f.shell.ID, UnitPriceNet: dec(1500000)},
	}))
	return f
}

func (f *fixture) order(t *testing.T) *domain.Order {
	o, err := f.svc.CreateOrder(context.Background(), OrderInput{
		ClientName:      "Juan Pérez",
		DeliveryAddress: "Av. Colón 1234",
		City:            "Córdoba",
		ProvinceID:      f.cordoba.ID,
	}, "admin")
	require.NoError(t, err)
	return o
}

func (f *fixture) items(t *testing.T, orderID int64) []domain.OrderItem {
	var items []domain.OrderItem
	require.NoError(t, f.db.Where("order_id = ?", orderID).Order("sort_order").Find(&items).Error)
	return items
}

func TestCreateOrderDefaults(t *testing.T) {
	f := setup(t)
	o := f.order(t)
	assert.NotZero(t, o.ID)
	assert.Contains(t, o.OrderNumber, "PED-")
	assert.Equal(t, domain.ChannelInternal, o.Channel)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, domain.PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, quote.DefaultColor, o.Color)
	assert.True(t, o.TotalNet.IsZero())
	assert.Contains(t, f.notify.paths, "/orders")
}

func TestCreateOrderFirstValidationError(t *testing.T) {
	f := setup(t)
	_, err := f.svc.CreateOrder(context.Background(), OrderInput{City: "Córdoba"}, "admin")
	require.Error(t, err)
	fe, ok := err.(*validate.FieldError)
	require.True(t, ok)
	assert.Equal(t, "client_name", fe.Field)
	assert.Equal(t, "client_name is required", err.Error())

	_, err = f.svc.CreateOrder(context.Background(), OrderInput{
		ClientName: "X", DeliveryAddress: "Y", City: "Z", ProvinceID: f.cordoba.ID,
		Channel: domain.ChannelReseller,
	}, "admin")
	require.Error(t, err)
	assert.Equal(t, "reseller_id is required", err.Error())

	_, err = f.svc.CreateOrder(context.Background(), OrderInput{
		ClientName: "X", DeliveryAddress: "Y", City: "Z", ProvinceID: f.cordoba.ID,
		DiscountAmount: dec(-1),
	}, "admin")
	require.Error(t, err)
	assert.Equal(t, "discount_amount must be greater than or equal to 0", err.Error())
}

func TestCreateOrderSnapshotsClient(t *testing.T) {
	f := setup(t)
	client := domain.Client{ID: 99, Name: "María Gómez", Address: "San Martín 50", City: "Villa Carlos Paz",
		Phone: "351-555", ProvinceID: f.cordoba.ID, IsActive: true}
	require.NoError(t, f.db.Create(&client).Error)

	o, err := f.svc.CreateOrder(context.Background(), OrderInput{ClientID: client.ID}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "María Gómez", o.ClientName)
	assert.Equal(t, "San Martín 50", o.DeliveryAddress)
	assert.Equal(t, "Villa Carlos Paz", o.City)
	assert.Equal(t, f.cordoba.ID, o.ProvinceID)
}

func TestSaveQuoteCordobaScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t)

	saved, err := f.svc.SaveQuote(ctx, o.ID, QuoteInput{
		Selection: &quote.Selection{
			ShellID: f.shell.ID,
			Charges: quote.Charges{Freight: dec(500000)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2464000.00", saved.TotalNet.StringFixed(2))
	assert.Equal(t, "1964000.00", saved.SubtotalProducts.StringFixed(2))
	assert.Equal(t, "500000.00", saved.FreightAmount.StringFixed(2))

	items := f.items(t, o.ID)
	require.Len(t, items, 1)
	assert.Equal(t, "Casco P-600300 (Color: Celeste)", items[0].Description)
	assert.Equal(t, "1964000.00", items[0].SubtotalNet.StringFixed(2))

	d, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, d.Items, 1)
	assert.Equal(t, "2464000.00", d.TotalNet.StringFixed(2))
}

func TestSaveQuoteRejectsUnknownColor(t *testing.T) {
	f := setup(t)
	o := f.order(t)
	_, err := f.svc.SaveQuote(context.Background(), o.ID, QuoteInput{
		Selection: &quote.Selection{ShellID: f.shell.ID, Color: "Negro"},
	})
	require.Error(t, err)
	assert.Empty(t, f.items(t, o.ID))
}

func TestReplaceItemsIsTotal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t)

	require.NoError(t, f.svc.ReplaceItems(ctx, o.ID, []ItemInput{
		{CatalogItemID: f.shell.ID, Quantity: dec(1), UnitPriceNet: dec(1000)},
		{CatalogItemID: f.luces.ID, Quantity: dec(2), UnitPriceNet: dec(300)},
	}))
	items := f.items(t, o.ID)
	require.Len(t, items, 2)
	assert.Equal(t, "Luces", items[1].Description)

	require.NoError(t, f.svc.ReplaceItems(ctx, o.ID, []ItemInput{
		{CatalogItemID: f.flete.ID, Description: "Flete especial", Quantity: dec(1), UnitPriceNet: dec(700)},
	}))
	items = f.items(t, o.ID)
	require.Len(t, items, 1)
	assert.Equal(t, "Flete especial", items[0].Description)
	assert.Equal(t, domain.ItemTypeService, items[0].Type)

	var got domain.Order
	require.NoError(t, f.db.First(&got, o.ID).Error)
	assert.Equal(t, "700.00", got.TotalNet.StringFixed(2))
	assert.Equal(t, "700.00", got.SubtotalServices.StringFixed(2))

	require.NoError(t, f.svc.ReplaceItems(ctx, o.ID, nil))
	assert.Empty(t, f.items(t, o.ID))
	require.NoError(t, f.db.First(&got, o.ID).Error)
	assert.True(t, got.TotalNet.IsZero())
}

func TestReplaceItemsFailureKeepsPreviousLines(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t)
	require.NoError(t, f.svc.ReplaceItems(ctx, o.ID, []ItemInput{
		{CatalogItemID: f.shell.ID, Quantity: dec(1), UnitPriceNet: dec(1000)},
	}))

	err := f.svc.ReplaceItems(ctx, o.ID, []ItemInput{
		{CatalogItemID: 424242, Quantity: dec(1), UnitPriceNet: dec(1)},
	})
	require.Error(t, err)
	assert.Len(t, f.items(t, o.ID), 1)

	err = f.svc.ReplaceItems(ctx, o.ID, []ItemInput{
		{CatalogItemID: f.shell.ID, Quantity: dec(0), UnitPriceNet: dec(1)},
	})
	require.Error(t, err)
	assert.Equal(t, "items[0].quantity", err.(*validate.FieldError).Field)
}

func TestTotalIdentityAfterUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t)
	require.NoError(t, f.svc.ReplaceItems(ctx, o.ID, []ItemInput{
		{CatalogItemID: f.shell.ID, Quantity: dec(3), UnitPriceNet: decimal.RequireFromString("3333.333")},
	}))

	freight := dec(100)
	discount := dec(50)
	updated, err := f.svc.UpdateOrder(ctx, o.ID, OrderPatch{FreightAmount: &freight, DiscountAmount: &discount})
	require.NoError(t, err)

	items := f.items(t, o.ID)
	require.Len(t, items, 1)
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.SubtotalNet)
	}
	want := sum.Add(updated.ServiceCharges()).Sub(updated.DiscountAmount)
	assert.True(t, want.Equal(updated.TotalNet), "%s != %s", want, updated.TotalNet)
}

func TestItemLevelEdits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t)

	item, err := f.svc.AddItem(ctx, o.ID, ItemInput{CatalogItemID: f.luces.ID, Quantity: dec(1), UnitPriceNet: dec(180000)})
	require.NoError(t, err)
	assert.Equal(t, 0, item.SortOrder)

	second, err := f.svc.AddItem(ctx, o.ID, ItemInput{CatalogItemID: f.shell.ID, Quantity: dec(1), UnitPriceNet: dec(1964000)})
	require.NoError(t, err)
	assert.Equal(t, 1, second.SortOrder)

	qty := dec(2)
	upd, err := f.svc.UpdateItem(ctx, o.ID, item.ID, ItemPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, "360000.00", upd.SubtotalNet.StringFixed(2))

	require.NoError(t, f.svc.RemoveItem(ctx, o.ID, second.ID))
	assert.ErrorIs(t, f.svc.RemoveItem(ctx, o.ID, second.ID), gorm.ErrRecordNotFound)

	var got domain.Order
	require.NoError(t, f.db.First(&got, o.ID).Error)
	assert.Equal(t, "360000.00", got.TotalNet.StringFixed(2))
}

func TestAddKitUsesOrderPrices(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&domain.CatalogItem{ID: 30, Name: "Skimmer", Type: domain.ItemTypeProduct, IsActive: true}).Error)
	o := f.order(t)

	items, err := f.svc.AddKit(ctx, o.ID, "ACCESORIOS")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Skimmer", items[0].Description)
	assert.True(t, items[0].UnitPriceNet.IsZero())

	_, err = f.svc.AddKit(ctx, o.ID, "NOPE")
	assert.ErrorIs(t, err, quote.ErrUnknownKit)
}

func TestResellerOrderUsesPriceList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	reseller := domain.Reseller{ID: 40, Name: "Piletas del Sur", PriceListID: f.list.ID, IsActive: true}
	require.NoError(t, f.db.Create(&reseller).Error)

	o, err := f.svc.CreateOrder(ctx, OrderInput{
		ClientName: "X", DeliveryAddress: "Y", City: "Z", ProvinceID: f.cordoba.ID,
		Channel: domain.ChannelReseller, ResellerID: reseller.ID,
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, f.list.ID, o.PriceListID)

	saved, err := f.svc.SaveQuote(ctx, o.ID, QuoteInput{Selection: &quote.Selection{ShellID: f.shell.ID}})
	require.NoError(t, err)
	assert.Equal(t, "1500000.00", saved.TotalNet.StringFixed(2))

	price, err := f.svc.UnitPrice(ctx, o.ID, f.shell.ID)
	require.NoError(t, err)
	assert.Equal(t, "1500000", price.String())

	internal := domain.ChannelInternal
	saved, err = f.svc.UpdateOrder(ctx, o.ID, OrderPatch{Channel: &internal})
	require.NoError(t, err)
	assert.Zero(t, saved.ResellerID)
	assert.Zero(t, saved.PriceListID)
}

func TestPreviewZeroUntilProvince(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.Preview(ctx, PreviewInput{Selection: quote.Selection{ShellID: f.shell.ID}, AutoCharges: true})
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)
	assert.True(t, b.TotalPayable.IsZero())

	b, err = f.svc.Preview(ctx, PreviewInput{ProvinceID: f.cordoba.ID, Selection: quote.Selection{ShellID: f.shell.ID}, AutoCharges: true})
	require.NoError(t, err)
	assert.Equal(t, "2464000.00", b.TotalPayable.StringFixed(2))
}

func TestDeleteOrderRemovesLinesAndLinks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.order(t)
	require.NoError(t, f.svc.ReplaceItems(ctx, o.ID, []ItemInput{
		{CatalogItemID: f.shell.ID, Quantity: dec(1), UnitPriceNet: dec(1)},
	}))
	require.NoError(t, f.db.Create(&domain.TripOrder{ID: 1, TripID: 5, OrderID: o.ID}).Error)

	require.NoError(t, f.svc.DeleteOrder(ctx, o.ID))
	var n int64
	f.db.Model(&domain.OrderItem{}).Where("order_id = ?", o.ID).Count(&n)
	assert.Zero(t, n)
	f.db.Model(&domain.TripOrder{}).Where("order_id = ?", o.ID).Count(&n)
	assert.Zero(t, n)
	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, o.ID), gorm.ErrRecordNotFound)
}
