package sales

import (
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/quote"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/shopspring/decimal"
)

// OrderInput the editable fields of an order
type OrderInput struct {
	ClientID           int64           `json:"client_id,string"`
	ClientName         string          `json:"client_name" validate:"required,max=200"`
	ClientDocument     string          `json:"client_document" validate:"max=32"`
	ClientPhone        string          `json:"client_phone" validate:"max=64"`
	DeliveryAddress    string          `json:"delivery_address" validate:"required"`
	City               string          `json:"city" validate:"required,max=128"`
	DistanceKm         decimal.Decimal `json:"distance_km" validate:"gte=0"`
	ProvinceID         int64           `json:"province_id,string" validate:"required"`
	Channel            string          `json:"channel" validate:"omitempty,oneof=INTERNAL RESELLER"`
	SellerID           int64           `json:"seller_id,string"`
	ResellerID         int64           `json:"reseller_id,string" validate:"required_if=Channel RESELLER"`
	PriceListID        int64           `json:"price_list_id,string"`
	Status             string          `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED IN_TRANSIT AWAITING_INSTALLATION COMPLETED CANCELLED"`
	PaymentStatus      string          `json:"payment_status" validate:"omitempty,oneof=PENDING PAID UNPAID REFUNDED"`
	DiscountAmount     decimal.Decimal `json:"discount_amount" validate:"gte=0"`
	FreightAmount      decimal.Decimal `json:"freight_amount" validate:"gte=0"`
	InstallationAmount decimal.Decimal `json:"installation_amount" validate:"gte=0"`
	TravelAmount       decimal.Decimal `json:"travel_amount" validate:"gte=0"`
	OtherAmount        decimal.Decimal `json:"other_amount" validate:"gte=0"`
	TaxAmount          decimal.Decimal `json:"tax_amount" validate:"gte=0"`
	InstallerID        int64           `json:"installer_id,string"`
	Color              string          `json:"color"`
	Notes              string          `json:"notes"`
}

// OrderPatch partial order update, nil fields are left untouched
type OrderPatch struct {
	ClientID           *int64           `json:"client_id,string"`
	ClientName         *string          `json:"client_name"`
	ClientDocument     *string          `json:"client_document"`
	ClientPhone        *string          `json:"client_phone"`
	DeliveryAddress    *string          `json:"delivery_address"`
	City               *string          `json:"city"`
	DistanceKm         *decimal.Decimal `json:"distance_km"`
	ProvinceID         *int64           `json:"province_id,string"`
	Channel            *string          `json:"channel"`
	SellerID           *int64           `json:"seller_id,string"`
	ResellerID         *int64           `json:"reseller_id,string"`
	PriceListID        *int64           `json:"price_list_id,string"`
	Status             *string          `json:"status"`
	PaymentStatus      *string          `json:"payment_status"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount"`
	FreightAmount      *decimal.Decimal `json:"freight_amount"`
	InstallationAmount *decimal.Decimal `json:"installation_amount"`
	TravelAmount       *decimal.Decimal `json:"travel_amount"`
	OtherAmount        *decimal.Decimal `json:"other_amount"`
	TaxAmount          *decimal.Decimal `json:"tax_amount"`
	InstallerID        *int64           `json:"installer_id,string"`
	Color              *string          `json:"color"`
	Notes              *string          `json:"notes"`
}

// ItemInput one explicit order line
type ItemInput struct {
	CatalogItemID int64           `json:"catalog_item_id,string" validate:"required"`
	Type          string          `json:"type" validate:"omitempty,oneof=PRODUCT SERVICE"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitPriceNet  decimal.Decimal `json:"unit_price_net" validate:"gte=0"`
}

// ItemPatch partial line update
type ItemPatch struct {
	Description  *string          `json:"description"`
	Quantity     *decimal.Decimal `json:"quantity" validate:"omitempty,gt=0"`
	UnitPriceNet *decimal.Decimal `json:"unit_price_net" validate:"omitempty,gte=0"`
}

// QuoteInput saves a quote onto an existing order. When Selection is set the
// lines are composed from it and the order's price source, otherwise Items
// are taken as given with Charges.
type QuoteInput struct {
	Order     *OrderPatch      `json:"order"`
	Selection *quote.Selection `json:"selection"`
	Items     []ItemInput      `json:"items"`
	Charges   *quote.Charges   `json:"charges"`
}

// PreviewInput prices a selection without persisting anything
type PreviewInput struct {
	Channel     string          `json:"channel" validate:"omitempty,oneof=INTERNAL RESELLER"`
	ProvinceID  int64           `json:"province_id,string"`
	ResellerID  int64           `json:"reseller_id,string"`
	PriceListID int64           `json:"price_list_id,string"`
	Selection   quote.Selection `json:"selection"`
	AutoCharges bool            `json:"auto_charges"`
}

func (in *OrderInput) normalize(defaultColor string) {
	if in.Channel == "" {
		in.Channel = domain.ChannelInternal
	}
	if in.Status == "" {
		in.Status = domain.OrderStatusPending
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = domain.PaymentStatusPending
	}
	if in.Color == "" {
		in.Color = defaultColor
	}
	if in.Channel == domain.ChannelInternal {
		in.ResellerID = 0
		in.PriceListID = 0
	}
}

func (in *OrderInput) validate() error {
	if err := validate.Struct(in); err != nil {
		return err
	}
	return checkColor(in.Color)
}

func checkColor(color string) error {
	for _, c := range quote.Colors {
		if c == color {
			return nil
		}
	}
	return validate.Errorf("color", "oneof", "color must be one of %v", quote.Colors)
}

func (in OrderInput) applyTo(o *domain.Order) {
	o.ClientID = in.ClientID
	o.ClientName = in.ClientName
	o.ClientDocument = in.ClientDocument
	o.ClientPhone = in.ClientPhone
	o.DeliveryAddress = in.DeliveryAddress
	o.City = in.City
	o.DistanceKm = in.DistanceKm
	o.ProvinceID = in.ProvinceID
	o.Channel = in.Channel
	o.SellerID = in.SellerID
	o.ResellerID = in.ResellerID
	o.PriceListID = in.PriceListID
	o.Status = in.Status
	o.PaymentStatus = in.PaymentStatus
	o.DiscountAmount = in.DiscountAmount.Round(2)
	o.FreightAmount = in.FreightAmount.Round(2)
	o.InstallationAmount = in.InstallationAmount.Round(2)
	o.TravelAmount = in.TravelAmount.Round(2)
	o.OtherAmount = in.OtherAmount.Round(2)
	o.TaxAmount = in.TaxAmount.Round(2)
	o.InstallerID = in.InstallerID
	o.Color = in.Color
	o.Notes = in.Notes
}

func inputOf(o domain.Order) OrderInput {
	return OrderInput{
		ClientID:           o.ClientID,
		ClientName:         o.ClientName,
		ClientDocument:     o.ClientDocument,
		ClientPhone:        o.ClientPhone,
		DeliveryAddress:    o.DeliveryAddress,
		City:               o.City,
		DistanceKm:         o.DistanceKm,
		ProvinceID:         o.ProvinceID,
		Channel:            o.Channel,
		SellerID:           o.SellerID,
		ResellerID:         o.ResellerID,
		PriceListID:        o.PriceListID,
		Status:             o.Status,
		PaymentStatus:      o.PaymentStatus,
		DiscountAmount:     o.DiscountAmount,
		FreightAmount:      o.FreightAmount,
		InstallationAmount: o.InstallationAmount,
		TravelAmount:       o.TravelAmount,
		OtherAmount:        o.OtherAmount,
		TaxAmount:          o.TaxAmount,
		InstallerID:        o.InstallerID,
		Color:              o.Color,
		Notes:              o.Notes,
	}
}

func (p *OrderPatch) applyTo(in *OrderInput) {
	if p == nil {
		return
	}
	setInt := func(dst *int64, v *int64) {
		if v != nil {
			*dst = *v
		}
	}
	setStr := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setDec := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&in.ClientID, p.ClientID)
	setStr(&in.ClientName, p.ClientName)
	setStr(&in.ClientDocument, p.ClientDocument)
	setStr(&in.ClientPhone, p.ClientPhone)
	setStr(&in.DeliveryAddress, p.DeliveryAddress)
	setStr(&in.City, p.City)
	setDec(&in.DistanceKm, p.DistanceKm)
	setInt(&in.ProvinceID, p.ProvinceID)
	setStr(&in.Channel, p.Channel)
	setInt(&in.SellerID, p.SellerID)
	setInt(&in.ResellerID, p.ResellerID)
	setInt(&in.PriceListID, p.PriceListID)
	setStr(&in.Status, p.Status)
	setStr(&in.PaymentStatus, p.PaymentStatus)
	setDec(&in.DiscountAmount, p.DiscountAmount)
	setDec(&in.FreightAmount, p.FreightAmount)
	setDec(&in.InstallationAmount, p.InstallationAmount)
	setDec(&in.TravelAmount, p.TravelAmount)
	setDec(&in.OtherAmount, p.OtherAmount)
	setDec(&in.TaxAmount, p.TaxAmount)
	setInt(&in.InstallerID, p.InstallerID)
	setStr(&in.Color, p.Color)
	setStr(&in.Notes, p.Notes)
}

func (p *OrderPatch) applyCharges(ch quote.Charges) {
	p.FreightAmount = &ch.Freight
	p.InstallationAmount = &ch.Installation
	p.TravelAmount = &ch.Travel
	p.TaxAmount = &ch.Tax
	p.OtherAmount = &ch.Other
	p.DiscountAmount = &ch.Discount
}
