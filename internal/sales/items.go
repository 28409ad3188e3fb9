package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/quote"
	"github.com/liderplast/backoffice/pkg/common"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func validateItems(items []ItemInput) error {
	for i := range items {
		if err := validate.Struct(&items[i]); err != nil {
			if fe, ok := err.(*validate.FieldError); ok {
				return validate.Errorf(fmt.Sprintf("items[%d].%s", i, fe.Field), fe.Rule, "item %d: %s", i+1, fe.Message)
			}
			return err
		}
	}
	return nil
}

// buildItems turns explicit lines into order items; an empty type or
// description is taken from the catalog item
func buildItems(tx *gorm.DB, orderID int64, in []ItemInput, firstSort int) ([]domain.OrderItem, error) {
	if len(in) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(in))
	for _, it := range in {
		ids = append(ids, it.CatalogItemID)
	}
	var cat []domain.CatalogItem
	if err := tx.Where("id IN ?", ids).Find(&cat).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.CatalogItem, len(cat))
	for _, c := range cat {
		byID[c.ID] = c
	}
	now := time.Now()
	items := make([]domain.OrderItem, 0, len(in))
	for i, it := range in {
		c, ok := byID[it.CatalogItemID]
		if !ok {
			return nil, validate.Errorf(fmt.Sprintf("items[%d].catalog_item_id", i), "exists",
				"item %d: catalog item %d does not exist", i+1, it.CatalogItemID)
		}
		typ := it.Type
		if typ == "" {
			typ = c.Type
		}
		if typ == "" {
			typ = domain.ItemTypeProduct
		}
		desc := it.Description
		if desc == "" {
			desc = c.Name
		}
		unit := it.UnitPriceNet.Round(2)
		items = append(items, domain.OrderItem{
			ID:            common.UUIDint64(),
			OrderID:       orderID,
			CatalogItemID: it.CatalogItemID,
			Type:          typ,
			Description:   desc,
			Quantity:      it.Quantity,
			UnitPriceNet:  unit,
			SubtotalNet:   domain.LineSubtotal(it.Quantity, unit),
			SortOrder:     firstSort + i,
			CreatedAt:     now,
		})
	}
	return items, nil
}

func linesToInputs(lines []quote.Line) []ItemInput {
	out := make([]ItemInput, 0, len(lines))
	for _, l := range lines {
		if !l.Quantity.IsPositive() {
			continue
		}
		out = append(out, ItemInput{
			CatalogItemID: l.CatalogItemID,
			Type:          l.Type,
			Description:   l.Description,
			Quantity:      l.Quantity,
			UnitPriceNet:  l.UnitPrice,
		})
	}
	return out
}

// replaceItems deletes every line of the order and inserts items. Must run
// inside a transaction.
func replaceItems(tx *gorm.DB, order *domain.Order, in []ItemInput) error {
	items, err := buildItems(tx, order.ID, in, 0)
	if err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", order.ID).Delete(&domain.OrderItem{}).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	return recalc(tx, order)
}

// ReplaceItems replaces the whole line set of an order. An empty list clears
// the order. Delete and insert share one transaction.
func (s *Service) ReplaceItems(ctx context.Context, orderID int64, in []ItemInput) error {
	if err := validateItems(in); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		return replaceItems(tx, &order, in)
	})
	if err != nil {
		return err
	}
	zap.L().Info("order items replaced",
		zap.Int64("order_id", orderID),
		zap.Int("items", len(in)),
		zap.String("namespace", "sales"))
	s.invalidate(orderID)
	return nil
}

// SaveQuote updates the order fields and charges, then replaces the lines
// with the composed quote
func (s *Service) SaveQuote(ctx context.Context, orderID int64, in QuoteInput) (*domain.Order, error) {
	var current domain.Order
	if err := s.db.WithContext(ctx).First(&current, orderID).Error; err != nil {
		return nil, err
	}
	patch := OrderPatch{}
	if in.Order != nil {
		patch = *in.Order
	}
	fields := inputOf(current)
	patch.applyTo(&fields)
	if err := s.prepare(s.db.WithContext(ctx), &fields); err != nil {
		return nil, err
	}

	var items []ItemInput
	switch {
	case in.Selection != nil:
		sel := *in.Selection
		if sel.Color == "" {
			sel.Color = fields.Color
		}
		tmp := current
		fields.applyTo(&tmp)
		src, err := s.source(ctx, &tmp)
		if err != nil {
			return nil, err
		}
		cat, err := s.prices.Catalog(ctx)
		if err != nil {
			return nil, err
		}
		b, err := quote.Compose(sel, cat, src)
		if err != nil {
			return nil, validate.Errorf("selection", "quote", "%s", err.Error())
		}
		patch.applyCharges(b.Charges)
		if sel.ShellID != 0 {
			patch.Color = &sel.Color
		}
		items = linesToInputs(b.Lines)
	default:
		if in.Charges != nil {
			patch.applyCharges(*in.Charges)
		}
		if err := validateItems(in.Items); err != nil {
			return nil, err
		}
		items = in.Items
	}

	var order domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		f := inputOf(order)
		patch.applyTo(&f)
		if err := s.prepare(tx, &f); err != nil {
			return err
		}
		f.applyTo(&order)
		return replaceItems(tx, &order, items)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("order quote saved",
		zap.Int64("order_id", orderID),
		zap.Int("items", len(items)),
		zap.String("total_net", order.TotalNet.StringFixed(2)),
		zap.String("namespace", "sales"))
	s.invalidate(orderID)
	return &order, nil
}

// Preview composes a quote without touching the database beyond lookups
func (s *Service) Preview(ctx context.Context, in PreviewInput) (*quote.Breakdown, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	listID := in.PriceListID
	if in.Channel == domain.ChannelReseller && listID == 0 && in.ResellerID != 0 {
		var r domain.Reseller
		if err := s.db.WithContext(ctx).First(&r, in.ResellerID).Error; err != nil {
			return nil, errors.Wrap(err, "load reseller")
		}
		listID = r.PriceListID
	}
	src, err := s.prices.Resolve(ctx, in.Channel, in.ProvinceID, listID)
	if err != nil {
		return nil, err
	}
	cat, err := s.prices.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	sel := in.Selection
	if in.AutoCharges {
		def := quote.DefaultCharges(cat, src)
		sel.Charges.Freight = def.Freight
		sel.Charges.Installation = def.Installation
	}
	b, err := quote.Compose(sel, cat, src)
	if err != nil {
		return nil, validate.Errorf("selection", "quote", "%s", err.Error())
	}
	return &b, nil
}

// UnitPrice looks up the price of one item in the order's price table
func (s *Service) UnitPrice(ctx context.Context, orderID, catalogItemID int64) (decimal.Decimal, error) {
	var order domain.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return decimal.Zero, err
	}
	src, err := s.source(ctx, &order)
	if err != nil {
		return decimal.Zero, err
	}
	return src.UnitPrice(catalogItemID), nil
}

func nextSort(tx *gorm.DB, orderID int64) (int, error) {
	var max int64
	err := tx.Model(&domain.OrderItem{}).Where("order_id = ?", orderID).
		Select("COALESCE(MAX(sort_order), -1)").Row().Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max) + 1, nil
}

func (s *Service) appendItems(ctx context.Context, orderID int64, in []ItemInput) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		start, err := nextSort(tx, orderID)
		if err != nil {
			return err
		}
		items, err = buildItems(tx, orderID, in, start)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return recalc(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(orderID)
	return items, nil
}

// AddItem appends one line to an order
func (s *Service) AddItem(ctx context.Context, orderID int64, in ItemInput) (*domain.OrderItem, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	items, err := s.appendItems(ctx, orderID, []ItemInput{in})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// AddKit appends the lines of a kit priced with the order's price table
func (s *Service) AddKit(ctx context.Context, orderID int64, key string) ([]domain.OrderItem, error) {
	var order domain.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		return nil, err
	}
	src, err := s.source(ctx, &order)
	if err != nil {
		return nil, err
	}
	cat, err := s.prices.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	lines, err := quote.ExpandKit(key, cat, src)
	if err != nil {
		return nil, err
	}
	items, err := s.appendItems(ctx, orderID, linesToInputs(lines))
	if err != nil {
		return nil, err
	}
	zap.L().Info("kit added",
		zap.Int64("order_id", orderID),
		zap.String("kit", key),
		zap.Int("items", len(items)),
		zap.String("namespace", "sales"))
	return items, nil
}

// UpdateItem changes quantity, price or description of one line
func (s *Service) UpdateItem(ctx context.Context, orderID, itemID int64, patch ItemPatch) (*domain.OrderItem, error) {
	if err := validate.Struct(&patch); err != nil {
		return nil, err
	}
	var item domain.OrderItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
			return err
		}
		if patch.Description != nil {
			item.Description = *patch.Description
		}
		if patch.Quantity != nil {
			item.Quantity = *patch.Quantity
		}
		if patch.UnitPriceNet != nil {
			item.UnitPriceNet = patch.UnitPriceNet.Round(2)
		}
		item.SubtotalNet = domain.LineSubtotal(item.Quantity, item.UnitPriceNet)
		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		return recalc(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(orderID)
	return &item, nil
}

// RemoveItem deletes one line of an order
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND order_id = ?", itemID, orderID).Delete(&domain.OrderItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return recalc(tx, &order)
	})
	if err != nil {
		return err
	}
	s.invalidate(orderID)
	return nil
}
