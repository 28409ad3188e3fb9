package pricing

import (
	"context"
	"time"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/pkg/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PriceRepository data access for catalog, provinces and both price tables
type PriceRepository interface {
	// Catalog returns catalog items, only active ones when activeOnly is set
	Catalog(ctx context.Context, activeOnly bool) ([]domain.CatalogItem, error)

	// Provinces returns all provinces ordered by name
	Provinces(ctx context.Context) ([]domain.Province, error)

	// PriceLists returns the active reseller price lists
	PriceLists(ctx context.Context) ([]domain.ResellerPriceList, error)

	// Prices returns the price rows of one province, or every row when provinceID is 0
	Prices(ctx context.Context, provinceID int64) ([]domain.Price, error)

	// ResellerPrices returns the rows of one price list
	ResellerPrices(ctx context.Context, priceListID int64) ([]domain.ResellerPrice, error)

	// UpsertPrices inserts or updates rows keyed by (catalog_item_id, province_id)
	UpsertPrices(ctx context.Context, rows []domain.Price) error

	// UpsertResellerPrices inserts or updates rows keyed by (price_list_id, catalog_item_id)
	UpsertResellerPrices(ctx context.Context, rows []domain.ResellerPrice) error
}

// GormPriceRepository is the GORM implementation of PriceRepository
type GormPriceRepository struct {
	db *gorm.DB
}

func NewGormPriceRepository(db *gorm.DB) *GormPriceRepository {
	return &GormPriceRepository{db: db}
}

func (r *GormPriceRepository) Catalog(ctx context.Context, activeOnly bool) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	q := r.db.WithContext(ctx).Order("name ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&items).Error
	return items, err
}

func (r *GormPriceRepository) Provinces(ctx context.Context) ([]domain.Province, error) {
	var provs []domain.Province
	err := r.db.WithContext(ctx).Order("name ASC").Find(&provs).Error
	return provs, err
}

func (r *GormPriceRepository) PriceLists(ctx context.Context) ([]domain.ResellerPriceList, error) {
	var lists []domain.ResellerPriceList
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&lists).Error
	return lists, err
}

func (r *GormPriceRepository) Prices(ctx context.Context, provinceID int64) ([]domain.Price, error) {
	var rows []domain.Price
	q := r.db.WithContext(ctx)
	if provinceID != 0 {
		q = q.Where("province_id = ?", provinceID)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *GormPriceRepository) ResellerPrices(ctx context.Context, priceListID int64) ([]domain.ResellerPrice, error) {
	var rows []domain.ResellerPrice
	err := r.db.WithContext(ctx).Where("price_list_id = ?", priceListID).Find(&rows).Error
	return rows, err
}

func (r *GormPriceRepository) UpsertPrices(ctx context.Context, rows []domain.Price) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for i := range rows {
		if rows[i].ID == 0 {
			rows[i].ID = common.UUIDint64()
		}
		rows[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "catalog_item_id"}, {Name: "province_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"unit_price_net", "is_active", "updated_at"}),
	}).Create(&rows).Error
}

func (r *GormPriceRepository) UpsertResellerPrices(ctx context.Context, rows []domain.ResellerPrice) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for i := range rows {
		if rows[i].ID == 0 {
			rows[i].ID = common.UUIDint64()
		}
		rows[i].UpdatedAt = now
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "price_list_id"}, {Name: "catalog_item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"unit_price_net", "updated_at"}),
	}).Create(&rows).Error
}
