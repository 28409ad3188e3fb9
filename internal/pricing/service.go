package pricing

import (
	"context"
	"fmt"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/quote"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PriceInput one row of a bulk province price upsert
type PriceInput struct {
	CatalogItemID int64           `json:"catalog_item_id,string" validate:"required"`
	ProvinceID    int64           `json:"province_id,string" validate:"required"`
	UnitPriceNet  decimal.Decimal `json:"unit_price_net"`
	IsActive      *bool           `json:"is_active"`
}

// ResellerPriceInput one row of a bulk reseller price upsert
type ResellerPriceInput struct {
	PriceListID   int64           `json:"price_list_id,string" validate:"required"`
	CatalogItemID int64           `json:"catalog_item_id,string" validate:"required"`
	UnitPriceNet  decimal.Decimal `json:"unit_price_net"`
}

// Lookups everything the order form needs to price a quote
type Lookups struct {
	Provinces  []domain.Province          `json:"provinces"`
	Catalog    []domain.CatalogItem       `json:"catalog"`
	Shells     []domain.CatalogItem       `json:"shells"`
	Prices     []domain.Price             `json:"prices"`
	PriceLists []domain.ResellerPriceList `json:"price_lists"`
	Extras     []quote.Extra              `json:"extras"`
	Kits       []quote.Kit                `json:"kits"`
	Colors     []string                   `json:"colors"`
}

var ErrNegativePrice = errors.New("unit_price_net must not be negative")

type Service struct {
	repo PriceRepository
}

func NewService(repo PriceRepository) *Service {
	return &Service{repo: repo}
}

// Resolve loads the price table authoritative for the channel. Switching the
// channel of an order always goes through here again.
func (s *Service) Resolve(ctx context.Context, channel string, provinceID, priceListID int64) (quote.PriceSource, error) {
	if channel == domain.ChannelReseller {
		if priceListID == 0 {
			return quote.ZeroSource{}, nil
		}
		rows, err := s.repo.ResellerPrices(ctx, priceListID)
		if err != nil {
			return nil, errors.Wrap(err, "load reseller prices")
		}
		return quote.SelectSource(channel, provinceID, priceListID, nil, rows), nil
	}
	if provinceID == 0 {
		return quote.ZeroSource{}, nil
	}
	rows, err := s.repo.Prices(ctx, provinceID)
	if err != nil {
		return nil, errors.Wrap(err, "load province prices")
	}
	return quote.SelectSource(channel, provinceID, priceListID, rows, nil), nil
}

// Prices lists province price rows; provinceID 0 lists every province
func (s *Service) Prices(ctx context.Context, provinceID int64) ([]domain.Price, error) {
	return s.repo.Prices(ctx, provinceID)
}

func (s *Service) ResellerPrices(ctx context.Context, priceListID int64) ([]domain.ResellerPrice, error) {
	return s.repo.ResellerPrices(ctx, priceListID)
}

// Catalog returns the active catalog indexed for quoting
func (s *Service) Catalog(ctx context.Context) (*quote.Catalog, error) {
	items, err := s.repo.Catalog(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	return quote.NewCatalog(items), nil
}

// Lookups fetches the order form lookup tables concurrently
func (s *Service) Lookups(ctx context.Context, provinceID int64) (*Lookups, error) {
	out := &Lookups{
		Extras: quote.Extras,
		Kits:   quote.KitList(),
		Colors: quote.Colors,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Provinces, err = s.repo.Provinces(gctx)
		return errors.Wrap(err, "load provinces")
	})
	g.Go(func() (err error) {
		out.Catalog, err = s.repo.Catalog(gctx, true)
		return errors.Wrap(err, "load catalog")
	})
	g.Go(func() (err error) {
		out.Prices, err = s.repo.Prices(gctx, provinceID)
		return errors.Wrap(err, "load prices")
	})
	g.Go(func() (err error) {
		out.PriceLists, err = s.repo.PriceLists(gctx)
		return errors.Wrap(err, "load price lists")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.Shells = quote.NewCatalog(out.Catalog).Shells()
	return out, nil
}

// UpsertPrices bulk upserts province prices. Duplicate keys in the input
// collapse to the last row.
func (s *Service) UpsertPrices(ctx context.Context, in []PriceInput) error {
	rows := make([]domain.Price, 0, len(in))
	index := make(map[[2]int64]int, len(in))
	for i, p := range in {
		if p.CatalogItemID == 0 || p.ProvinceID == 0 {
			return errors.Errorf("row %d: catalog_item_id and province_id are required", i+1)
		}
		if p.UnitPriceNet.IsNegative() {
			return errors.Wrapf(ErrNegativePrice, "row %d", i+1)
		}
		active := true
		if p.IsActive != nil {
			active = *p.IsActive
		}
		row := domain.Price{
			CatalogItemID: p.CatalogItemID,
			ProvinceID:    p.ProvinceID,
			UnitPriceNet:  p.UnitPriceNet.Round(2),
			IsActive:      active,
		}
		key := [2]int64{p.CatalogItemID, p.ProvinceID}
		if at, ok := index[key]; ok {
			rows[at] = row
			continue
		}
		index[key] = len(rows)
		rows = append(rows, row)
	}
	if err := s.repo.UpsertPrices(ctx, rows); err != nil {
		return err
	}
	zap.L().Info("prices upserted", zap.Int("rows", len(rows)), zap.String("namespace", "pricing"))
	return nil
}

// UpsertResellerPrices bulk upserts reseller list prices
func (s *Service) UpsertResellerPrices(ctx context.Context, in []ResellerPriceInput) error {
	rows := make([]domain.ResellerPrice, 0, len(in))
	index := make(map[[2]int64]int, len(in))
	for i, p := range in {
		if p.PriceListID == 0 || p.CatalogItemID == 0 {
			return errors.Errorf("row %d: price_list_id and catalog_item_id are required", i+1)
		}
		if p.UnitPriceNet.IsNegative() {
			return errors.Wrapf(ErrNegativePrice, "row %d", i+1)
		}
		row := domain.ResellerPrice{
			PriceListID:   p.PriceListID,
			CatalogItemID: p.CatalogItemID,
			UnitPriceNet:  p.UnitPriceNet.Round(2),
		}
		key := [2]int64{p.PriceListID, p.CatalogItemID}
		if at, ok := index[key]; ok {
			rows[at] = row
			continue
		}
		index[key] = len(rows)
		rows = append(rows, row)
	}
	if err := s.repo.UpsertResellerPrices(ctx, rows); err != nil {
		return err
	}
	zap.L().Info("reseller prices upserted", zap.Int("rows", len(rows)), zap.String("namespace", "pricing"))
	return nil
}

func rowError(line int, format string, args ...interface{}) string {
	return fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...))
}
