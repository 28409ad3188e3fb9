package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Catalog item types
const (
	ItemTypeProduct = "PRODUCT"
	ItemTypeService = "SERVICE"
)

// ShellPrefix marks catalog items that are sellable pool shells (cascos)
const ShellPrefix = "P-"

// Province sales geography; prices are defined per province
type Province struct {
	ID         int64     `json:"id,string" form:"id"`
	Name       string    `gorm:"uniqueIndex;size:128" json:"name" form:"name" validate:"required,max=128"`
	IsSellable bool      `json:"is_sellable" form:"is_sellable"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Province) TableName() string {
	return "provinces"
}

// CatalogItem product or service that can appear on an order line
type CatalogItem struct {
	ID          int64     `json:"id,string" form:"id"`
	Name        string    `gorm:"uniqueIndex;size:200" json:"name" form:"name" validate:"required,max=200"`
	Type        string    `gorm:"size:16;index" json:"type" form:"type" validate:"required,oneof=PRODUCT SERVICE"`
	Description string    `json:"description" form:"description"`
	Sku         string    `gorm:"size:64" json:"sku" form:"sku"`
	IsActive    bool      `json:"is_active" form:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (CatalogItem) TableName() string {
	return "catalog_items"
}

// IsShell reports whether the item is a base pool shell
func (c CatalogItem) IsShell() bool {
	return strings.HasPrefix(c.Name, ShellPrefix)
}

// Price unit price of one catalog item in one province
type Price struct {
	ID            int64           `json:"id,string" form:"id"`
	CatalogItemID int64           `gorm:"uniqueIndex:idx_price_item_province" json:"catalog_item_id,string" form:"catalog_item_id" validate:"required"`
	ProvinceID    int64           `gorm:"uniqueIndex:idx_price_item_province" json:"province_id,string" form:"province_id" validate:"required"`
	UnitPriceNet  decimal.Decimal `gorm:"type:decimal(18,2)" json:"unit_price_net" form:"unit_price_net"`
	IsActive      bool            `json:"is_active" form:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Price) TableName() string {
	return "prices"
}

// ResellerPriceList named alternate price table for the reseller channel
type ResellerPriceList struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"uniqueIndex;size:128" json:"name" form:"name" validate:"required,max=128"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (ResellerPriceList) TableName() string {
	return "reseller_price_lists"
}

// ResellerPrice unit price of one catalog item in one reseller price list
type ResellerPrice struct {
	ID            int64           `json:"id,string" form:"id"`
	PriceListID   int64           `gorm:"uniqueIndex:idx_reseller_price_list_item" json:"price_list_id,string" form:"price_list_id" validate:"required"`
	CatalogItemID int64           `gorm:"uniqueIndex:idx_reseller_price_list_item" json:"catalog_item_id,string" form:"catalog_item_id" validate:"required"`
	UnitPriceNet  decimal.Decimal `gorm:"type:decimal(18,2)" json:"unit_price_net" form:"unit_price_net"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (ResellerPrice) TableName() string {
	return "reseller_prices"
}
