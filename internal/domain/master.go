package domain

import "time"

// Master data lookups maintained through the generic master CRUD

// Seller types
const (
	SellerTypeInternal = "INTERNAL"
	SellerTypeReseller = "RESELLER"
)

type Client struct {
	ID         int64     `json:"id,string" form:"id"`
	Name       string    `gorm:"index;size:200" json:"name" form:"name" validate:"required,max=200"`
	Document   string    `gorm:"size:32" json:"document" form:"document"`
	Phone      string    `gorm:"size:64" json:"phone" form:"phone"`
	Email      string    `gorm:"size:128" json:"email" form:"email" validate:"omitempty,email"`
	Address    string    `json:"address" form:"address"`
	City       string    `gorm:"size:128" json:"city" form:"city"`
	ProvinceID int64     `json:"province_id,string" form:"province_id"`
	Notes      string    `json:"notes" form:"notes"`
	IsActive   bool      `json:"is_active" form:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Client) TableName() string {
	return "clients"
}

type Seller struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:200" json:"name" form:"name" validate:"required,max=200"`
	Type      string    `gorm:"size:16" json:"type" form:"type" validate:"omitempty,oneof=INTERNAL RESELLER"`
	Phone     string    `gorm:"size:64" json:"phone" form:"phone"`
	Email     string    `gorm:"size:128" json:"email" form:"email" validate:"omitempty,email"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Seller) TableName() string {
	return "sellers"
}

// Reseller third party sales channel; PriceListID is its default price list
type Reseller struct {
	ID          int64     `json:"id,string" form:"id"`
	Name        string    `gorm:"size:200" json:"name" form:"name" validate:"required,max=200"`
	Contact     string    `json:"contact" form:"contact"`
	Phone       string    `gorm:"size:64" json:"phone" form:"phone"`
	Email       string    `gorm:"size:128" json:"email" form:"email" validate:"omitempty,email"`
	ProvinceID  int64     `json:"province_id,string" form:"province_id"`
	PriceListID int64     `json:"price_list_id,string" form:"price_list_id"`
	IsActive    bool      `json:"is_active" form:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Reseller) TableName() string {
	return "resellers"
}

type Supplier struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:200" json:"name" form:"name" validate:"required,max=200"`
	Contact   string    `json:"contact" form:"contact"`
	Phone     string    `gorm:"size:64" json:"phone" form:"phone"`
	Email     string    `gorm:"size:128" json:"email" form:"email" validate:"omitempty,email"`
	Category  string    `gorm:"size:64" json:"category" form:"category"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Supplier) TableName() string {
	return "suppliers"
}

type Installer struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:200" json:"name" form:"name" validate:"required,max=200"`
	Phone     string    `gorm:"size:64" json:"phone" form:"phone"`
	Email     string    `gorm:"size:128" json:"email" form:"email" validate:"omitempty,email"`
	Zone      string    `gorm:"size:128" json:"zone" form:"zone"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Installer) TableName() string {
	return "installers"
}
