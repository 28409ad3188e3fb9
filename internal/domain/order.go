package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sales channels
const (
	ChannelInternal = "INTERNAL"
	ChannelReseller = "RESELLER"
)

// Order fulfillment stages
const (
	OrderStatusPending              = "PENDING"
	OrderStatusConfirmed            = "CONFIRMED"
	OrderStatusInTransit            = "IN_TRANSIT"
	OrderStatusAwaitingInstallation = "AWAITING_INSTALLATION"
	OrderStatusCompleted            = "COMPLETED"
	OrderStatusCancelled            = "CANCELLED"
)

// Order payment states
const (
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusUnpaid   = "UNPAID"
	PaymentStatusRefunded = "REFUNDED"
)

// Order aggregate root of a sale. Reference ids are 0 when unset.
type Order struct {
	ID                 int64           `json:"id,string" form:"id"`
	OrderNumber        string          `gorm:"uniqueIndex;size:32" json:"order_number" form:"order_number"`
	ClientID           int64           `gorm:"index" json:"client_id,string" form:"client_id"`
	ClientName         string          `json:"client_name" form:"client_name"`
	ClientDocument     string          `json:"client_document" form:"client_document"`
	ClientPhone        string          `json:"client_phone" form:"client_phone"`
	DeliveryAddress    string          `json:"delivery_address" form:"delivery_address"`
	City               string          `json:"city" form:"city"`
	DistanceKm         decimal.Decimal `gorm:"type:decimal(18,2)" json:"distance_km" form:"distance_km"`
	ProvinceID         int64           `gorm:"index" json:"province_id,string" form:"province_id"`
	Channel            string          `gorm:"size:16" json:"channel" form:"channel"`
	SellerID           int64           `json:"seller_id,string" form:"seller_id"`
	ResellerID         int64           `gorm:"index" json:"reseller_id,string" form:"reseller_id"`
	PriceListID        int64           `json:"price_list_id,string" form:"price_list_id"`
	Status             string          `gorm:"size:32;index" json:"status" form:"status"`
	PaymentStatus      string          `gorm:"size:16" json:"payment_status" form:"payment_status"`
	SubtotalProducts   decimal.Decimal `gorm:"type:decimal(18,2)" json:"subtotal_products"`
	SubtotalServices   decimal.Decimal `gorm:"type:decimal(18,2)" json:"subtotal_services"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(18,2)" json:"discount_amount" form:"discount_amount"`
	FreightAmount      decimal.Decimal `gorm:"type:decimal(18,2)" json:"freight_amount" form:"freight_amount"`
	InstallationAmount decimal.Decimal `gorm:"type:decimal(18,2)" json:"installation_amount" form:"installation_amount"`
	TravelAmount       decimal.Decimal `gorm:"type:decimal(18,2)" json:"travel_amount" form:"travel_amount"`
	OtherAmount        decimal.Decimal `gorm:"type:decimal(18,2)" json:"other_amount" form:"other_amount"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(18,2)" json:"tax_amount" form:"tax_amount"`
	TotalNet           decimal.Decimal `gorm:"type:decimal(18,2)" json:"total_net"`
	InstallerID        int64           `json:"installer_id,string" form:"installer_id"`
	Color              string          `gorm:"size:32" json:"color" form:"color"`
	Notes              string          `json:"notes" form:"notes"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

// ServiceCharges sum of the service charge fields typed in currency units, discount excluded
func (o Order) ServiceCharges() decimal.Decimal {
	return o.FreightAmount.Add(o.InstallationAmount).Add(o.TravelAmount).Add(o.TaxAmount).Add(o.OtherAmount)
}

// OrderItem one priced line of an order
type OrderItem struct {
	ID            int64           `json:"id,string" form:"id"`
	OrderID       int64           `gorm:"index" json:"order_id,string" form:"order_id"`
	CatalogItemID int64           `gorm:"index" json:"catalog_item_id,string" form:"catalog_item_id"`
	Type          string          `gorm:"size:16" json:"type" form:"type"`
	Description   string          `json:"description" form:"description"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,2)" json:"quantity" form:"quantity"`
	UnitPriceNet  decimal.Decimal `gorm:"type:decimal(18,2)" json:"unit_price_net" form:"unit_price_net"`
	SubtotalNet   decimal.Decimal `gorm:"type:decimal(18,2)" json:"subtotal_net"`
	SortOrder     int             `json:"sort_order" form:"sort_order"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName Specify table name
func (OrderItem) TableName() string {
	return "order_items"
}

// LineSubtotal quantity times unit price rounded to cents
func LineSubtotal(quantity, unit decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unit).Round(2)
}
