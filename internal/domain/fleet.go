package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trip statuses
const (
	TripStatusPlanned   = "PLANNED"
	TripStatusInRoute   = "IN_ROUTE"
	TripStatusDelivered = "DELIVERED"
	TripStatusCancelled = "CANCELLED"
)

// ActiveTripStatuses trips in these states hold their orders
var ActiveTripStatuses = []string{TripStatusPlanned, TripStatusInRoute}

// Vehicle delivery vehicle, Capacity 0 means unlimited
type Vehicle struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:128" json:"name" form:"name" validate:"required,max=128"`
	Plate     string    `gorm:"size:32" json:"plate" form:"plate"`
	Capacity  int       `json:"capacity" form:"capacity" validate:"gte=0"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Vehicle) TableName() string {
	return "vehicles"
}

// Driver delivery driver
type Driver struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:128" json:"name" form:"name" validate:"required,max=128"`
	Phone     string    `gorm:"size:64" json:"phone" form:"phone"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Driver) TableName() string {
	return "drivers"
}

// Trip scheduled delivery run (flete) by one vehicle and driver
type Trip struct {
	ID           int64           `json:"id,string" form:"id"`
	TripCode     string          `gorm:"uniqueIndex;size:32" json:"trip_code" form:"trip_code"`
	ProvinceID   int64           `gorm:"index" json:"province_id,string" form:"province_id"`
	ExactAddress string          `json:"exact_address" form:"exact_address"`
	TripDate     time.Time       `gorm:"index" json:"trip_date" form:"trip_date"`
	DriverID     int64           `json:"driver_id,string" form:"driver_id"`
	VehicleID    int64           `gorm:"index" json:"vehicle_id,string" form:"vehicle_id"`
	Cost         decimal.Decimal `gorm:"type:decimal(18,2)" json:"cost" form:"cost"`
	ActualCost   decimal.Decimal `gorm:"type:decimal(18,2)" json:"actual_cost" form:"actual_cost"`
	Description  string          `json:"description" form:"description"`
	Status       string          `gorm:"size:16;index" json:"status" form:"status"`
	Notes        string          `json:"notes" form:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Trip) TableName() string {
	return "trips"
}

// IsActive reports whether the trip still holds its orders
func (t Trip) IsActive() bool {
	return t.Status == TripStatusPlanned || t.Status == TripStatusInRoute
}

// TripOrder links an order to a trip; the only trip/order association
type TripOrder struct {
	ID        int64     `json:"id,string"`
	TripID    int64     `gorm:"uniqueIndex:idx_trip_order" json:"trip_id,string"`
	OrderID   int64     `gorm:"uniqueIndex:idx_trip_order;index" json:"order_id,string"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (TripOrder) TableName() string {
	return "trip_orders"
}
