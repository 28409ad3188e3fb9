package quote

import (
	"fmt"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ExtraKind tells how an optional extra is priced
type ExtraKind int

const (
	// FlagExtra is present or absent, quantity 1
	FlagExtra ExtraKind = iota
	// QuantityExtra is priced by a user entered quantity
	QuantityExtra
)

// Extra one optional add-on of the quote form
type Extra struct {
	Name  string // catalog item name
	Label string // line description
	Kind  ExtraKind
}

// Extras the fixed add-on enumeration, in line order
var Extras = []Extra{
	{Name: "Casilla", Label: "Casilla", Kind: FlagExtra},
	{Name: "Loseta Atérmica L", Label: "Loseta Atérmica L", Kind: QuantityExtra},
	{Name: "Loseta Atérmica R", Label: "Loseta Atérmica R", Kind: QuantityExtra},
	{Name: "Pastina (Kg)", Label: "Pastina", Kind: QuantityExtra},
	{Name: "Kit Filtrado", Label: "Kit Filtrado", Kind: FlagExtra},
	{Name: "Accesorios Instalación", Label: "Accesorios Instalación", Kind: FlagExtra},
	{Name: "Luces", Label: "Luces", Kind: FlagExtra},
	{Name: "Prev. Climatización", Label: "Prev. Climatización", Kind: FlagExtra},
	{Name: "Prev. Cascada", Label: "Prev. Cascada", Kind: FlagExtra},
	{Name: "Cascada", Label: "Cascada", Kind: FlagExtra},
	{Name: "Kit Limpieza", Label: "Kit Limpieza", Kind: FlagExtra},
}

// Catalog names of the items used to prefill service charges
const (
	FreightBaseItem      = "Flete Base"
	InstallationBaseItem = "Instalación Base"
	ColorSurchargePrefix = "Recargo Color "
)

// Shell colors
var Colors = []string{"Celeste", "Blanco", "Arena"}

const DefaultColor = "Celeste"

var (
	ErrUnknownShell = errors.New("selected shell is not in the catalog")
	ErrUnknownExtra = errors.New("unknown extra")
	ErrUnknownColor = errors.New("unknown color")
)

// Charges service charges typed directly in currency units
type Charges struct {
	Freight      decimal.Decimal `json:"freight_amount"`
	Installation decimal.Decimal `json:"installation_amount"`
	Travel       decimal.Decimal `json:"travel_amount"`
	Tax          decimal.Decimal `json:"tax_amount"`
	Other        decimal.Decimal `json:"other_amount"`
	Discount     decimal.Decimal `json:"discount_amount"`
}

// Sum all charges except the discount
func (c Charges) Sum() decimal.Decimal {
	return c.Freight.Add(c.Installation).Add(c.Travel).Add(c.Tax).Add(c.Other)
}

// Total applies the charges to an item subtotal
func (c Charges) Total(itemsSubtotal decimal.Decimal) decimal.Decimal {
	return itemsSubtotal.Add(c.Sum()).Sub(c.Discount).Round(2)
}

// ChargesOf reads the charge fields of an order
func ChargesOf(o domain.Order) Charges {
	return Charges{
		Freight:      o.FreightAmount,
		Installation: o.InstallationAmount,
		Travel:       o.TravelAmount,
		Tax:          o.TaxAmount,
		Other:        o.OtherAmount,
		Discount:     o.DiscountAmount,
	}
}

// Selection the user's choices on the quote form
type Selection struct {
	ShellID    int64                      `json:"shell_id,string"`
	Color      string                     `json:"color"`
	Flags      []string                   `json:"flags"`
	Quantities map[string]decimal.Decimal `json:"quantities"`
	Charges    Charges                    `json:"charges"`
}

// Line one computed quote line
type Line struct {
	CatalogItemID int64           `json:"catalog_item_id,string"`
	Type          string          `json:"type"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price_net"`
	Subtotal      decimal.Decimal `json:"subtotal_net"`
}

func newLine(item domain.CatalogItem, description string, qty, unit decimal.Decimal) Line {
	typ := item.Type
	if typ == "" {
		typ = domain.ItemTypeProduct
	}
	return Line{
		CatalogItemID: item.ID,
		Type:          typ,
		Description:   description,
		Quantity:      qty,
		UnitPrice:     unit,
		Subtotal:      domain.LineSubtotal(qty, unit),
	}
}

// Breakdown the result of composing a quote
type Breakdown struct {
	Lines            []Line          `json:"lines"`
	SubtotalProduct  decimal.Decimal `json:"subtotal_product"`
	SubtotalProducts decimal.Decimal `json:"subtotal_products"`
	SubtotalServices decimal.Decimal `json:"subtotal_services"`
	Charges          Charges         `json:"charges"`
	TotalPayable     decimal.Decimal `json:"total_payable"`
}

// Items converts the lines to order items ready to be persisted
func (b Breakdown) Items(orderID int64) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(b.Lines))
	for i, l := range b.Lines {
		if !l.Quantity.IsPositive() {
			continue
		}
		items = append(items, domain.OrderItem{
			OrderID:       orderID,
			CatalogItemID: l.CatalogItemID,
			Type:          l.Type,
			Description:   l.Description,
			Quantity:      l.Quantity,
			UnitPriceNet:  l.UnitPrice,
			SubtotalNet:   l.Subtotal,
			SortOrder:     i,
		})
	}
	return items
}

// Summarize rebuilds a breakdown from already priced lines
func Summarize(lines []Line, charges Charges) Breakdown {
	b := Breakdown{
		Lines:            lines,
		SubtotalProduct:  decimal.Zero,
		SubtotalProducts: decimal.Zero,
		SubtotalServices: decimal.Zero,
		Charges:          charges,
	}
	for _, l := range lines {
		b.SubtotalProduct = b.SubtotalProduct.Add(l.Subtotal)
		if l.Type == domain.ItemTypeService {
			b.SubtotalServices = b.SubtotalServices.Add(l.Subtotal)
		} else {
			b.SubtotalProducts = b.SubtotalProducts.Add(l.Subtotal)
		}
	}
	b.TotalPayable = charges.Total(b.SubtotalProduct)
	return b
}

// Compose prices a selection against a price source. It is a pure function
// of its inputs. Extras whose catalog item does not exist are left out.
func Compose(sel Selection, cat *Catalog, src PriceSource) (Breakdown, error) {
	if src == nil {
		src = ZeroSource{}
	}
	one := decimal.NewFromInt(1)
	var lines []Line

	if sel.ShellID != 0 {
		shell, ok := cat.Item(sel.ShellID)
		if !ok {
			return Breakdown{}, ErrUnknownShell
		}
		color := sel.Color
		if color == "" {
			color = DefaultColor
		}
		if !isColor(color) {
			return Breakdown{}, errors.Wrap(ErrUnknownColor, color)
		}
		desc := fmt.Sprintf("Casco %s (Color: %s)", shell.Name, color)
		lines = append(lines, newLine(shell, desc, one, src.UnitPrice(shell.ID)))

		if sur, ok := cat.ByName(ColorSurchargePrefix + color); ok {
			if unit := src.UnitPrice(sur.ID); !unit.IsZero() {
				lines = append(lines, newLine(sur, sur.Name, one, unit))
			}
		}
	}

	flags := make(map[string]bool, len(sel.Flags))
	for _, f := range sel.Flags {
		flags[f] = true
	}
	qtys := make(map[string]decimal.Decimal, len(sel.Quantities))
	for k, v := range sel.Quantities {
		qtys[k] = v
	}

	for _, ex := range Extras {
		qty := decimal.Zero
		switch ex.Kind {
		case FlagExtra:
			if flags[ex.Name] {
				qty = one
			}
			delete(flags, ex.Name)
		case QuantityExtra:
			if v, ok := qtys[ex.Name]; ok {
				qty = v
			}
			delete(qtys, ex.Name)
		}
		// blank, zero or negative quantities never produce a line
		if !qty.IsPositive() {
			continue
		}
		item, ok := cat.ByName(ex.Name)
		if !ok {
			continue
		}
		lines = append(lines, newLine(item, ex.Label, qty, src.UnitPrice(item.ID)))
	}

	for name := range flags {
		return Breakdown{}, errors.Wrap(ErrUnknownExtra, name)
	}
	for name := range qtys {
		return Breakdown{}, errors.Wrap(ErrUnknownExtra, name)
	}

	return Summarize(lines, sel.Charges), nil
}

// DefaultCharges prefills freight and installation from the base service
// items of the catalog. Both stay zero when the source has no price.
func DefaultCharges(cat *Catalog, src PriceSource) Charges {
	ch := Charges{
		Freight:      decimal.Zero,
		Installation: decimal.Zero,
		Travel:       decimal.Zero,
		Tax:          decimal.Zero,
		Other:        decimal.Zero,
		Discount:     decimal.Zero,
	}
	if src == nil {
		return ch
	}
	if id, ok := cat.ItemID(FreightBaseItem); ok {
		ch.Freight = src.UnitPrice(id)
	}
	if id, ok := cat.ItemID(InstallationBaseItem); ok {
		ch.Installation = src.UnitPrice(id)
	}
	return ch
}

func isColor(color string) bool {
	for _, c := range Colors {
		if c == color {
			return true
		}
	}
	return false
}
