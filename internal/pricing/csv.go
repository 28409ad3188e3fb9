package pricing

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// PriceRow the CSV layout of the province price matrix, one price per line
type PriceRow struct {
	Item         string `csv:"item"`
	Province     string `csv:"province"`
	UnitPriceNet string `csv:"unit_price_net"`
	IsActive     string `csv:"is_active"`
}

// ImportResult summary of a CSV import
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ImportCSV reads item,province,unit_price_net rows and upserts them.
// Items and provinces are matched by exact name. Rows with a price of zero
// or less are skipped, unknown names are reported and skipped.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var rows []*PriceRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrap(err, "parse price csv")
	}

	items, err := s.repo.Catalog(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	provs, err := s.repo.Provinces(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load provinces")
	}
	itemIDs := make(map[string]int64, len(items))
	for _, it := range items {
		itemIDs[it.Name] = it.ID
	}
	provIDs := make(map[string]int64, len(provs))
	for _, p := range provs {
		provIDs[p.Name] = p.ID
	}

	result := &ImportResult{Errors: []string{}}
	var in []PriceInput
	for i, row := range rows {
		line := i + 2 // header is line 1
		itemID, ok := itemIDs[strings.TrimSpace(row.Item)]
		if !ok {
			result.Skipped++
			result.Errors = append(result.Errors, rowError(line, "unknown item %q", row.Item))
			continue
		}
		provID, ok := provIDs[strings.TrimSpace(row.Province)]
		if !ok {
			result.Skipped++
			result.Errors = append(result.Errors, rowError(line, "unknown province %q", row.Province))
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(row.UnitPriceNet))
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, rowError(line, "invalid price %q", row.UnitPriceNet))
			continue
		}
		if !price.IsPositive() {
			result.Skipped++
			continue
		}
		active := true
		if v := strings.TrimSpace(row.IsActive); v != "" {
			active = cast.ToBool(v)
		}
		in = append(in, PriceInput{
			CatalogItemID: itemID,
			ProvinceID:    provID,
			UnitPriceNet:  price,
			IsActive:      &active,
		})
	}
	if err := s.UpsertPrices(ctx, in); err != nil {
		return nil, err
	}
	result.Imported = len(in)
	zap.L().Info("price csv imported",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.String("namespace", "pricing"))
	return result, nil
}

// ExportCSV writes the price matrix, optionally limited to one province,
// sorted by province then item name.
func (s *Service) ExportCSV(ctx context.Context, provinceID int64, w io.Writer) error {
	prices, err := s.repo.Prices(ctx, provinceID)
	if err != nil {
		return errors.Wrap(err, "load prices")
	}
	items, err := s.repo.Catalog(ctx, false)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}
	provs, err := s.repo.Provinces(ctx)
	if err != nil {
		return errors.Wrap(err, "load provinces")
	}
	itemNames := make(map[int64]string, len(items))
	for _, it := range items {
		itemNames[it.ID] = it.Name
	}
	provNames := make(map[int64]string, len(provs))
	for _, p := range provs {
		provNames[p.ID] = p.Name
	}

	rows := make([]*PriceRow, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, &PriceRow{
			Item:         itemNames[p.CatalogItemID],
			Province:     provNames[p.ProvinceID],
			UnitPriceNet: p.UnitPriceNet.StringFixed(2),
			IsActive:     cast.ToString(p.IsActive),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Province != rows[j].Province {
			return rows[i].Province < rows[j].Province
		}
		return rows[i].Item < rows[j].Item
	})
	return gocsv.Marshal(rows, w)
}
