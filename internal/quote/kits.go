package quote

import (
	"sort"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// KitItem one catalog line added by a kit
type KitItem struct {
	CatalogItemName string `json:"catalog_item_name"`
	Type            string `json:"type"`
	Quantity        int64  `json:"quantity"`
}

// Kit a quick-add group of lines. Kits carry no discount.
type Kit struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Items       []KitItem `json:"items"`
}

var ErrUnknownKit = errors.New("unknown kit")

var Kits = map[string]Kit{
	"LOSETAS": {
		Key:         "LOSETAS",
		Name:        "Kit Losetas",
		Description: "Agrega 3 líneas de losetas",
		Items: []KitItem{
			{CatalogItemName: "Loseta Atérmica", Type: domain.ItemTypeProduct, Quantity: 1},
			{CatalogItemName: "Adhesivo para Loseta", Type: domain.ItemTypeProduct, Quantity: 1},
			{CatalogItemName: "Instalación Losetas", Type: domain.ItemTypeService, Quantity: 1},
		},
	},
	"ACCESORIOS": {
		Key:         "ACCESORIOS",
		Name:        "Combo Accesorios",
		Description: "Agrega 4 líneas de accesorios estándar",
		Items: []KitItem{
			{CatalogItemName: "Escalera Inox", Type: domain.ItemTypeProduct, Quantity: 1},
			{CatalogItemName: "Iluminación LED", Type: domain.ItemTypeProduct, Quantity: 1},
			{CatalogItemName: "Skimmer", Type: domain.ItemTypeProduct, Quantity: 1},
			{CatalogItemName: "Retorno", Type: domain.ItemTypeProduct, Quantity: 1},
		},
	},
	"EXTRAS": {
		Key:         "EXTRAS",
		Name:        "Kit Extras",
		Description: "Agrega 4 líneas de extras comunes",
		Items: []KitItem{
			{CatalogItemName: "Climatización Solar", Type: domain.ItemTypeProduct, Quantity: 1},
			{CatalogItemName: "Cobertor Térmico", Type: domain.ItemTypeProduct, Quantity: 1},
			{CatalogItemName: "Electrobomba", Type: domain.ItemTypeProduct, Quantity: 1},
			{CatalogItemName: "Filtro de Arena", Type: domain.ItemTypeProduct, Quantity: 1},
		},
	},
}

// KitList returns the kits sorted by key
func KitList() []Kit {
	list := make([]Kit, 0, len(Kits))
	for _, k := range Kits {
		list = append(list, k)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
	return list
}

// ExpandKit prices the lines of a kit. Names missing from the catalog are
// skipped, so the result may hold fewer lines than the kit declares.
func ExpandKit(key string, cat *Catalog, src PriceSource) ([]Line, error) {
	kit, ok := Kits[key]
	if !ok {
		return nil, errors.Wrap(ErrUnknownKit, key)
	}
	if src == nil {
		src = ZeroSource{}
	}
	var lines []Line
	for _, ki := range kit.Items {
		item, ok := cat.ByName(ki.CatalogItemName)
		if !ok {
			continue
		}
		typ := item.Type
		if typ == "" {
			typ = ki.Type
		}
		qty := decimal.NewFromInt(ki.Quantity)
		unit := src.UnitPrice(item.ID)
		lines = append(lines, Line{
			CatalogItemID: item.ID,
			Type:          typ,
			Description:   item.Name,
			Quantity:      qty,
			UnitPrice:     unit,
			Subtotal:      domain.LineSubtotal(qty, unit),
		})
	}
	return lines, nil
}
