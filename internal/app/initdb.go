package app

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"time"

	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/quote"
	"github.com/liderplast/backoffice/pkg/common"
	"go.uber.org/zap"
)

//go:embed seed/prices.csv
var seedPricesCSV []byte

var defaultProvinces = []string{
	"Buenos Aires", "Catamarca", "Chaco", "Chubut", "Ciudad Autónoma de Buenos Aires",
	"Córdoba", "Corrientes", "Entre Ríos", "Formosa", "Jujuy", "La Pampa", "La Rioja",
	"Misiones", "Mendoza", "Neuquén", "Río Negro", "Salta", "San Juan", "San Luis",
	"Santa Fe", "Santiago del Estero", "Tucumán",
}

var defaultCatalog = []domain.CatalogItem{
	{Name: "P-715300", Type: domain.ItemTypeProduct, Description: "Casco 7,15 x 3,00"},
	{Name: "P-700300", Type: domain.ItemTypeProduct, Description: "Casco 7,00 x 3,00"},
	{Name: "P-615300", Type: domain.ItemTypeProduct, Description: "Casco 6,15 x 3,00"},
	{Name: "P-600300", Type: domain.ItemTypeProduct, Description: "Casco 6,00 x 3,00"},
	{Name: "P-500315", Type: domain.ItemTypeProduct, Description: "Casco 5,00 x 3,15"},
	{Name: "P-570270", Type: domain.ItemTypeProduct, Description: "Casco 5,70 x 2,70"},
	{Name: "P-390230", Type: domain.ItemTypeProduct, Description: "Casco 3,90 x 2,30"},
	{Name: quote.FreightBaseItem, Type: domain.ItemTypeService},
	{Name: quote.InstallationBaseItem, Type: domain.ItemTypeService},
	{Name: "Loseta Atérmica L", Type: domain.ItemTypeProduct},
	{Name: "Loseta Atérmica R", Type: domain.ItemTypeProduct},
	{Name: "Pastina (Kg)", Type: domain.ItemTypeProduct},
	{Name: "Casilla", Type: domain.ItemTypeProduct},
	{Name: "Kit Filtrado", Type: domain.ItemTypeProduct},
	{Name: "Accesorios Instalación", Type: domain.ItemTypeProduct},
	{Name: "Luces", Type: domain.ItemTypeProduct},
	{Name: "Prev. Climatización", Type: domain.ItemTypeProduct},
	{Name: "Prev. Cascada", Type: domain.ItemTypeProduct},
	{Name: "Cascada", Type: domain.ItemTypeProduct},
	{Name: "Kit Limpieza", Type: domain.ItemTypeProduct},
}

var defaultFinanceCategories = map[string][]string{
	"Materia prima": {"Resina", "Fibra de vidrio", "Gelcoat"},
	"Logística":     {"Combustible", "Peajes", "Mantenimiento vehículos"},
	"Personal":      {"Sueldos", "Cargas sociales"},
	"Servicios":     {"Energía", "Alquiler", "Internet"},
	"Impuestos":     {},
}

var defaultPaymentMethods = []string{"Efectivo", "Transferencia", "Cheque", "Tarjeta"}

func (a *Application) checkSettings() {
	// Load configuration definitions from the embedded JSON file
	var schemasData ConfigSchemasJSON
	if err := json.Unmarshal(configSchemasData, &schemasData); err != nil {
		zap.L().Error("failed to load config schemas from JSON", zap.Error(err))
		return
	}

	for sortid, schema := range schemasData.Schemas {
		// Parse key: "category.name" -> category, name
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid config key format", zap.String("key", schema.Key))
			continue
		}
		category, name := parts[0], parts[1]

		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)
		if count > 0 {
			continue
		}

		value := schema.Default
		if schema.Key == "quote.default_color" && a.appConfig.Quote.DefaultColor != "" {
			value = a.appConfig.Quote.DefaultColor
		}
		a.gormDB.Create(&domain.SysConfig{
			ID:     0,
			Sort:   sortid,
			Type:   category,
			Name:   name,
			Value:  value,
			Remark: schema.Description,
		})
		zap.L().Info("initialized config",
			zap.String("key", schema.Key),
			zap.String("default", value))
	}
	a.configManager.Reload()
}

// checkProvinces creates the sellable provinces
func (a *Application) checkProvinces() {
	for _, name := range defaultProvinces {
		var count int64
		a.gormDB.Model(&domain.Province{}).Where("name = ?", name).Count(&count)
		if count > 0 {
			continue
		}
		p := domain.Province{ID: common.UUIDint64(), Name: name, IsSellable: true, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := a.gormDB.Create(&p).Error; err != nil {
			zap.L().Error("failed to create default province", zap.String("name", name), zap.Error(err))
		}
	}
}

// checkCatalog creates the shells, extras, base services and kit items
func (a *Application) checkCatalog() {
	items := append([]domain.CatalogItem{}, defaultCatalog...)
	for _, k := range quote.KitList() {
		for _, it := range k.Items {
			items = append(items, domain.CatalogItem{Name: it.CatalogItemName, Type: it.Type})
		}
	}
	for _, it := range items {
		var count int64
		a.gormDB.Model(&domain.CatalogItem{}).Where("name = ?", it.Name).Count(&count)
		if count > 0 {
			continue
		}
		it.ID = common.UUIDint64()
		it.IsActive = true
		it.CreatedAt = time.Now()
		it.UpdatedAt = time.Now()
		if err := a.gormDB.Create(&it).Error; err != nil {
			zap.L().Error("failed to create default catalog item", zap.String("name", it.Name), zap.Error(err))
		} else {
			zap.L().Info("initialized default catalog item", zap.String("name", it.Name))
		}
	}
}

// checkPrices imports the bundled price matrix into an empty price table
func (a *Application) checkPrices() {
	var count int64
	a.gormDB.Model(&domain.Price{}).Count(&count)
	if count > 0 {
		return
	}
	res, err := a.pricing.ImportCSV(context.Background(), bytes.NewReader(seedPricesCSV))
	if err != nil {
		zap.L().Error("failed to import default prices", zap.Error(err))
		return
	}
	zap.L().Info("initialized default prices",
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped))
}

// checkFinanceLookups creates expense categories and payment methods
func (a *Application) checkFinanceLookups() {
	for name, subs := range defaultFinanceCategories {
		var cat domain.FinanceCategory
		err := a.gormDB.Where("name = ?", name).First(&cat).Error
		if err != nil {
			cat = domain.FinanceCategory{ID: common.UUIDint64(), Name: name, IsActive: true, CreatedAt: time.Now()}
			if err := a.gormDB.Create(&cat).Error; err != nil {
				zap.L().Error("failed to create finance category", zap.String("name", name), zap.Error(err))
				continue
			}
		}
		for _, sub := range subs {
			var count int64
			a.gormDB.Model(&domain.FinanceSubcategory{}).
				Where("category_id = ? AND name = ?", cat.ID, sub).Count(&count)
			if count > 0 {
				continue
			}
			a.gormDB.Create(&domain.FinanceSubcategory{
				ID:         common.UUIDint64(),
				CategoryID: cat.ID,
				Name:       sub,
				IsActive:   true,
				CreatedAt:  time.Now(),
			})
		}
	}
	for _, name := range defaultPaymentMethods {
		var count int64
		a.gormDB.Model(&domain.FinancePaymentMethod{}).Where("name = ?", name).Count(&count)
		if count > 0 {
			continue
		}
		a.gormDB.Create(&domain.FinancePaymentMethod{
			ID:        common.UUIDint64(),
			Name:      name,
			IsActive:  true,
			CreatedAt: time.Now(),
		})
	}
}
