package sales

import (
	"context"
	"strconv"
	"time"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/pricing"
	"github.com/liderplast/backoffice/internal/quote"
	"github.com/liderplast/backoffice/pkg/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier receives the view paths made stale by a write
type Notifier interface {
	Invalidate(paths ...string)
}

// OrderDetail an order with its lines
type OrderDetail struct {
	domain.Order
	Items []domain.OrderItem `json:"items"`
}

// Service order intake and quote persistence
type Service struct {
	db           *gorm.DB
	prices       *pricing.Service
	notify       Notifier
	defaultColor string
}

func NewService(db *gorm.DB, prices *pricing.Service, notify Notifier) *Service {
	return &Service{db: db, prices: prices, notify: notify, defaultColor: quote.DefaultColor}
}

// SetDefaultColor overrides the shell color used when an order has none
func (s *Service) SetDefaultColor(color string) {
	if color != "" {
		s.defaultColor = color
	}
}

func (s *Service) invalidate(orderID int64) {
	if s.notify == nil {
		return
	}
	paths := []string{"/orders", "/fletes", "/fletes/"}
	if orderID != 0 {
		paths = append(paths, "/orders/"+strconv.FormatInt(orderID, 10))
	}
	s.notify.Invalidate(paths...)
}

// snapshotClient copies client data onto the order fields left empty
func snapshotClient(db *gorm.DB, in *OrderInput) error {
	if in.ClientID == 0 {
		return nil
	}
	var client domain.Client
	if err := db.First(&client, in.ClientID).Error; err != nil {
		return errors.Wrap(err, "load client")
	}
	if common.IsEmptyOrNA(in.ClientName) {
		in.ClientName = client.Name
	}
	if common.IsEmptyOrNA(in.DeliveryAddress) {
		in.DeliveryAddress = client.Address
	}
	if in.City == "" {
		in.City = client.City
	}
	if in.ClientPhone == "" {
		in.ClientPhone = client.Phone
	}
	if in.ClientDocument == "" {
		in.ClientDocument = client.Document
	}
	if in.ProvinceID == 0 {
		in.ProvinceID = client.ProvinceID
	}
	return nil
}

// resolveReseller fills the price list from the reseller when none is given
func resolveReseller(db *gorm.DB, in *OrderInput) error {
	if in.Channel != domain.ChannelReseller || in.ResellerID == 0 {
		return nil
	}
	var r domain.Reseller
	if err := db.First(&r, in.ResellerID).Error; err != nil {
		return errors.Wrap(err, "load reseller")
	}
	if in.PriceListID == 0 {
		in.PriceListID = r.PriceListID
	}
	return nil
}

// prepare runs the lookups through db so it can join a running transaction
func (s *Service) prepare(db *gorm.DB, in *OrderInput) error {
	if err := snapshotClient(db, in); err != nil {
		return err
	}
	in.normalize(s.defaultColor)
	if err := in.validate(); err != nil {
		return err
	}
	return resolveReseller(db, in)
}

// CreateOrder validates and inserts a new order without lines
func (s *Service) CreateOrder(ctx context.Context, in OrderInput, createdBy string) (*domain.Order, error) {
	if err := s.prepare(s.db.WithContext(ctx), &in); err != nil {
		return nil, err
	}
	now := time.Now()
	order := &domain.Order{
		ID:        common.UUIDint64(),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.applyTo(order)
	order.OrderNumber = common.ShortCode("PED", now, order.ID)
	summarize(order, nil)

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	zap.L().Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("namespace", "sales"))
	s.invalidate(0)
	return order, nil
}

// UpdateOrder applies a partial update and recomputes the totals from the
// stored lines
func (s *Service) UpdateOrder(ctx context.Context, id int64, patch OrderPatch) (*domain.Order, error) {
	return s.UpdateOrderWith(ctx, id, patch, nil)
}

// UpdateOrderWith applies the patch and runs also in the same transaction
// once the patch is valid; an error from either rolls back both.
func (s *Service) UpdateOrderWith(ctx context.Context, id int64, patch OrderPatch, also func(tx *gorm.DB) error) (*domain.Order, error) {
	var order domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			return err
		}
		in := inputOf(order)
		patch.applyTo(&in)
		if err := s.prepare(tx, &in); err != nil {
			return err
		}
		if also != nil {
			if err := also(tx); err != nil {
				return err
			}
		}
		in.applyTo(&order)
		return recalc(tx, &order)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(id)
	return &order, nil
}

// DeleteOrder removes the order with its lines and trip links
func (s *Service) DeleteOrder(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order domain.Order
		if err := tx.First(&order, id).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&domain.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&domain.TripOrder{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		return err
	}
	zap.L().Info("order deleted", zap.Int64("order_id", id), zap.String("namespace", "sales"))
	s.invalidate(id)
	return nil
}

// GetOrder loads an order and its lines in display order
func (s *Service) GetOrder(ctx context.Context, id int64) (*OrderDetail, error) {
	var d OrderDetail
	if err := s.db.WithContext(ctx).First(&d.Order, id).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("order_id = ?", id).
		Order("sort_order ASC, created_at ASC").Find(&d.Items).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// source resolves the price table of an order
func (s *Service) source(ctx context.Context, o *domain.Order) (quote.PriceSource, error) {
	return s.prices.Resolve(ctx, o.Channel, o.ProvinceID, o.PriceListID)
}

// summarize recomputes the derived money fields of an order from its lines
func summarize(o *domain.Order, items []domain.OrderItem) {
	lines := make([]quote.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, quote.Line{Type: it.Type, Subtotal: it.SubtotalNet})
	}
	b := quote.Summarize(lines, quote.ChargesOf(*o))
	o.SubtotalProducts = b.SubtotalProducts.Round(2)
	o.SubtotalServices = b.SubtotalServices.Round(2)
	o.TotalNet = b.TotalPayable
}

// recalc reloads the lines inside tx, recomputes totals and saves the order
func recalc(tx *gorm.DB, o *domain.Order) error {
	var items []domain.OrderItem
	if err := tx.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
		return err
	}
	summarize(o, items)
	o.UpdatedAt = time.Now()
	return tx.Save(o).Error
}
