package quote

import (
	"testing"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cordoba  int64 = 10
	mendoza  int64 = 11
	listMay  int64 = 20
	shellID  int64 = 100
	fleteID  int64 = 101
	instID   int64 = 102
	lucesID  int64 = 103
	losetaL  int64 = 104
	pastina  int64 = 105
	recargo  int64 = 106
	escalera int64 = 107
	instLos  int64 = 108
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s got %s", want, got.String())
}

func testCatalog() *Catalog {
	return NewCatalog([]domain.CatalogItem{
		{ID: shellID, Name: "P-600300", Type: domain.ItemTypeProduct, IsActive: true},
		{ID: fleteID, Name: "Flete Base", Type: domain.ItemTypeService, IsActive: true},
		{ID: instID, Name: "Instalación Base", Type: domain.ItemTypeService, IsActive: true},
		{ID: lucesID, Name: "Luces", Type: domain.ItemTypeProduct, IsActive: true},
		{ID: losetaL, Name: "Loseta Atérmica L", Type: domain.ItemTypeProduct, IsActive: true},
		{ID: pastina, Name: "Pastina (Kg)", Type: domain.ItemTypeProduct, IsActive: true},
		{ID: recargo, Name: "Recargo Color Arena", Type: domain.ItemTypeProduct, IsActive: true},
		{ID: escalera, Name: "Escalera Inox", Type: domain.ItemTypeProduct, IsActive: true},
		{ID: instLos, Name: "Instalación Losetas", Type: domain.ItemTypeService, IsActive: true},
		{ID: 200, Name: "P-OLD", Type: domain.ItemTypeProduct, IsActive: false},
	})
}

func testPrices() []domain.Price {
	return []domain.Price{
		{CatalogItemID: shellID, ProvinceID: cordoba, UnitPriceNet: dec("1964000"), IsActive: true},
		{CatalogItemID: fleteID, ProvinceID: cordoba, UnitPriceNet: dec("500000"), IsActive: true},
		{CatalogItemID: lucesID, ProvinceID: cordoba, UnitPriceNet: dec("85000.50"), IsActive: true},
		{CatalogItemID: losetaL, ProvinceID: cordoba, UnitPriceNet: dec("3333.333"), IsActive: true},
		{CatalogItemID: pastina, ProvinceID: cordoba, UnitPriceNet: dec("1200"), IsActive: true},
		{CatalogItemID: recargo, ProvinceID: cordoba, UnitPriceNet: dec("150000"), IsActive: true},
		{CatalogItemID: shellID, ProvinceID: mendoza, UnitPriceNet: dec("2100000"), IsActive: true},
		{CatalogItemID: lucesID, ProvinceID: mendoza, UnitPriceNet: dec("90000"), IsActive: false},
	}
}

func TestComposeCordobaScenario(t *testing.T) {
	cat := testCatalog()
	src := SelectSource(domain.ChannelInternal, cordoba, 0, testPrices(), nil)

	charges := DefaultCharges(cat, src)
	assertDec(t, "500000", charges.Freight)
	assertDec(t, "0", charges.Installation)

	b, err := Compose(Selection{ShellID: shellID, Charges: charges}, cat, src)
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)
	assertDec(t, "1964000", b.SubtotalProduct)
	assertDec(t, "2464000", b.TotalPayable)

	items := b.Items(42)
	require.Len(t, items, 1)
	assert.Equal(t, shellID, items[0].CatalogItemID)
	assert.Equal(t, int64(42), items[0].OrderID)
	assert.Equal(t, "Casco P-600300 (Color: Celeste)", items[0].Description)
	assertDec(t, "1", items[0].Quantity)
	assertDec(t, "1964000", items[0].UnitPriceNet)
	assertDec(t, "1964000", items[0].SubtotalNet)
}

func TestComposeZeroUntilGeography(t *testing.T) {
	cat := testCatalog()
	src := SelectSource(domain.ChannelInternal, 0, 0, testPrices(), nil)
	_, isZero := src.(ZeroSource)
	assert.True(t, isZero)

	sel := Selection{
		ShellID:    shellID,
		Flags:      []string{"Luces"},
		Quantities: map[string]decimal.Decimal{"Loseta Atérmica L": dec("4")},
		Charges:    Charges{Travel: dec("1000"), Discount: dec("250")},
	}
	b, err := Compose(sel, cat, src)
	require.NoError(t, err)
	require.Len(t, b.Lines, 3)
	for _, l := range b.Lines {
		assert.True(t, l.UnitPrice.IsZero())
		assert.True(t, l.Subtotal.IsZero())
	}
	assertDec(t, "750", b.TotalPayable)
}

func TestComposeRoundsPerLine(t *testing.T) {
	cat := testCatalog()
	src := SelectSource(domain.ChannelInternal, cordoba, 0, testPrices(), nil)

	sel := Selection{
		Quantities: map[string]decimal.Decimal{"Loseta Atérmica L": dec("3")},
	}
	b, err := Compose(sel, cat, src)
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)
	// 3 x 3333.333 = 9999.999 rounds to 10000.00
	assertDec(t, "10000", b.Lines[0].Subtotal)

	sum := decimal.Zero
	for _, it := range b.Items(1) {
		assert.True(t, it.SubtotalNet.Equal(domain.LineSubtotal(it.Quantity, it.UnitPriceNet)))
		sum = sum.Add(it.SubtotalNet)
	}
	assert.True(t, sum.Equal(b.SubtotalProduct))
}

func TestComposeExcludesNonPositiveQuantities(t *testing.T) {
	cat := testCatalog()
	src := SelectSource(domain.ChannelInternal, cordoba, 0, testPrices(), nil)

	sel := Selection{
		Quantities: map[string]decimal.Decimal{
			"Loseta Atérmica L": decimal.Zero,
			"Pastina (Kg)":      dec("2.5"),
		},
	}
	b, err := Compose(sel, cat, src)
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)
	assert.Equal(t, "Pastina", b.Lines[0].Description)
	assertDec(t, "3000", b.Lines[0].Subtotal)

	b, err = Compose(Selection{Quantities: map[string]decimal.Decimal{
		"Pastina (Kg)":      dec("-1"),
		"Loseta Atérmica L": dec("-3"),
	}}, cat, src)
	require.NoError(t, err)
	assert.Empty(t, b.Lines)
	assert.True(t, b.SubtotalProduct.IsZero())
}

func TestComposeSkipsExtrasMissingFromCatalog(t *testing.T) {
	cat := testCatalog()
	src := SelectSource(domain.ChannelInternal, cordoba, 0, testPrices(), nil)

	b, err := Compose(Selection{Flags: []string{"Cascada", "Luces"}}, cat, src)
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)
	assert.Equal(t, lucesID, b.Lines[0].CatalogItemID)
	assertDec(t, "85000.5", b.SubtotalProduct)
}

func TestComposeRejectsUnknownInput(t *testing.T) {
	cat := testCatalog()
	src := ZeroSource{}

	_, err := Compose(Selection{Flags: []string{"Tobogán"}}, cat, src)
	assert.ErrorIs(t, err, ErrUnknownExtra)

	_, err = Compose(Selection{ShellID: 999}, cat, src)
	assert.ErrorIs(t, err, ErrUnknownShell)

	_, err = Compose(Selection{ShellID: shellID, Color: "Rojo"}, cat, src)
	assert.ErrorIs(t, err, ErrUnknownColor)
}

func TestComposeColorSurcharge(t *testing.T) {
	cat := testCatalog()
	src := SelectSource(domain.ChannelInternal, cordoba, 0, testPrices(), nil)

	b, err := Compose(Selection{ShellID: shellID, Color: "Arena"}, cat, src)
	require.NoError(t, err)
	require.Len(t, b.Lines, 2)
	assert.Equal(t, "Casco P-600300 (Color: Arena)", b.Lines[0].Description)
	assert.Equal(t, "Recargo Color Arena", b.Lines[1].Description)
	assertDec(t, "2114000", b.TotalPayable)

	// no surcharge item for Blanco
	b, err = Compose(Selection{ShellID: shellID, Color: "Blanco"}, cat, src)
	require.NoError(t, err)
	assert.Len(t, b.Lines, 1)
}

func TestSelectSourceSwitchesChannel(t *testing.T) {
	cat := testCatalog()
	reseller := []domain.ResellerPrice{
		{PriceListID: listMay, CatalogItemID: shellID, UnitPriceNet: dec("1500000")},
	}
	sel := Selection{ShellID: shellID}

	internal, err := Compose(sel, cat, SelectSource(domain.ChannelInternal, cordoba, listMay, testPrices(), reseller))
	require.NoError(t, err)
	assertDec(t, "1964000", internal.SubtotalProduct)

	viaReseller, err := Compose(sel, cat, SelectSource(domain.ChannelReseller, cordoba, listMay, testPrices(), reseller))
	require.NoError(t, err)
	assertDec(t, "1500000", viaReseller.SubtotalProduct)

	noList, err := Compose(sel, cat, SelectSource(domain.ChannelReseller, cordoba, 0, testPrices(), reseller))
	require.NoError(t, err)
	assert.True(t, noList.SubtotalProduct.IsZero())
}

func TestProvinceSourceIgnoresInactiveRows(t *testing.T) {
	src := NewProvinceSource(mendoza, testPrices())
	assertDec(t, "2100000", src.UnitPrice(shellID))
	assert.True(t, src.UnitPrice(lucesID).IsZero())
}

func TestSummarizeSplitsProductsAndServices(t *testing.T) {
	lines := []Line{
		{Type: domain.ItemTypeProduct, Quantity: dec("1"), UnitPrice: dec("100"), Subtotal: dec("100")},
		{Type: domain.ItemTypeService, Quantity: dec("1"), UnitPrice: dec("40"), Subtotal: dec("40")},
	}
	b := Summarize(lines, Charges{Freight: dec("10"), Tax: dec("5"), Other: dec("1"), Installation: dec("2"), Discount: dec("7")})
	assertDec(t, "100", b.SubtotalProducts)
	assertDec(t, "40", b.SubtotalServices)
	assertDec(t, "140", b.SubtotalProduct)
	assertDec(t, "151", b.TotalPayable)
}

func TestCatalogShells(t *testing.T) {
	shells := testCatalog().Shells()
	require.Len(t, shells, 1)
	assert.Equal(t, "P-600300", shells[0].Name)
}
