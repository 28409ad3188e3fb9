package quote

import (
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// PriceSource resolves the unit price of a catalog item. Lookups that find no
// row return zero.
type PriceSource interface {
	UnitPrice(catalogItemID int64) decimal.Decimal
}

// ZeroSource is used until a province or price list is chosen
type ZeroSource struct{}

func (ZeroSource) UnitPrice(int64) decimal.Decimal {
	return decimal.Zero
}

// ProvinceSource prices items from the per-province price table
type ProvinceSource struct {
	ProvinceID int64
	prices     map[int64]decimal.Decimal
}

// NewProvinceSource keeps the active rows of rows that belong to provinceID
func NewProvinceSource(provinceID int64, rows []domain.Price) *ProvinceSource {
	s := &ProvinceSource{ProvinceID: provinceID, prices: make(map[int64]decimal.Decimal)}
	for _, p := range rows {
		if p.ProvinceID != provinceID || !p.IsActive {
			continue
		}
		s.prices[p.CatalogItemID] = p.UnitPriceNet
	}
	return s
}

func (s *ProvinceSource) UnitPrice(catalogItemID int64) decimal.Decimal {
	if v, ok := s.prices[catalogItemID]; ok {
		return v
	}
	return decimal.Zero
}

// ResellerSource prices items from a reseller price list
type ResellerSource struct {
	PriceListID int64
	prices      map[int64]decimal.Decimal
}

func NewResellerSource(priceListID int64, rows []domain.ResellerPrice) *ResellerSource {
	s := &ResellerSource{PriceListID: priceListID, prices: make(map[int64]decimal.Decimal)}
	for _, p := range rows {
		if p.PriceListID != priceListID {
			continue
		}
		s.prices[p.CatalogItemID] = p.UnitPriceNet
	}
	return s
}

func (s *ResellerSource) UnitPrice(catalogItemID int64) decimal.Decimal {
	if v, ok := s.prices[catalogItemID]; ok {
		return v
	}
	return decimal.Zero
}

// SelectSource picks the authoritative price table for a channel. The
// reseller channel reads the price list, every other channel the province
// table; an unset key yields ZeroSource.
func SelectSource(channel string, provinceID, priceListID int64, prices []domain.Price, resellerPrices []domain.ResellerPrice) PriceSource {
	if channel == domain.ChannelReseller {
		if priceListID == 0 {
			return ZeroSource{}
		}
		return NewResellerSource(priceListID, resellerPrices)
	}
	if provinceID == 0 {
		return ZeroSource{}
	}
	return NewProvinceSource(provinceID, prices)
}
