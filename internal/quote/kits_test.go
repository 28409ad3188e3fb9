package quote

import (
	"testing"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandKitSkipsUnknownItems(t *testing.T) {
	cat := testCatalog()
	src := NewResellerSource(listMay, []domain.ResellerPrice{
		{PriceListID: listMay, CatalogItemID: escalera, UnitPriceNet: dec("45000")},
	})

	lines, err := ExpandKit("ACCESORIOS", cat, src)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Escalera Inox", lines[0].Description)
	assertDec(t, "45000", lines[0].Subtotal)

	lines, err = ExpandKit("LOSETAS", cat, nil)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, domain.ItemTypeService, lines[0].Type)
	assert.True(t, lines[0].UnitPrice.IsZero())
}

func TestExpandKitUnknown(t *testing.T) {
	_, err := ExpandKit("PISCINA", testCatalog(), ZeroSource{})
	assert.ErrorIs(t, err, ErrUnknownKit)
}

func TestKitList(t *testing.T) {
	list := KitList()
	require.Len(t, list, 3)
	assert.Equal(t, "ACCESORIOS", list[0].Key)
	assert.Equal(t, "LOSETAS", list[2].Key)
}
