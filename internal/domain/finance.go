package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense statuses
const (
	ExpenseStatusPaid    = "PAID"
	ExpenseStatusPending = "PENDING"
)

type FinanceCategory struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"uniqueIndex;size:128" json:"name" form:"name" validate:"required,max=128"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (FinanceCategory) TableName() string {
	return "finance_categories"
}

type FinanceSubcategory struct {
	ID         int64     `json:"id,string" form:"id"`
	CategoryID int64     `gorm:"index" json:"category_id,string" form:"category_id" validate:"required"`
	Name       string    `gorm:"size:128" json:"name" form:"name" validate:"required,max=128"`
	IsActive   bool      `json:"is_active" form:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName Specify table name
func (FinanceSubcategory) TableName() string {
	return "finance_subcategories"
}

type FinancePaymentMethod struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"uniqueIndex;size:128" json:"name" form:"name" validate:"required,max=128"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (FinancePaymentMethod) TableName() string {
	return "finance_payment_methods"
}

type FinanceVendor struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:200" json:"name" form:"name" validate:"required,max=200"`
	Cuit      string    `gorm:"size:32" json:"cuit" form:"cuit"`
	IsActive  bool      `json:"is_active" form:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (FinanceVendor) TableName() string {
	return "finance_vendors"
}

// Expense a company expense; PaymentDate is nil while pending
type Expense struct {
	ID              int64           `json:"id,string" form:"id"`
	IssueDate       time.Time       `gorm:"index" json:"issue_date" form:"issue_date"`
	PaymentDate     *time.Time      `json:"payment_date" form:"payment_date"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount" form:"amount"`
	Description     string          `json:"description" form:"description"`
	CategoryID      int64           `gorm:"index" json:"category_id,string" form:"category_id"`
	SubcategoryID   int64           `json:"subcategory_id,string" form:"subcategory_id"`
	PaymentMethodID int64           `json:"payment_method_id,string" form:"payment_method_id"`
	VendorID        int64           `json:"vendor_id,string" form:"vendor_id"`
	Status          string          `gorm:"size:16;index" json:"status" form:"status"`
	Notes           string          `json:"notes" form:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Expense) TableName() string {
	return "finance_expenses"
}

// Subscription statuses and billing cycles
const (
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusPaused    = "PAUSED"
	SubscriptionStatusCancelled = "CANCELLED"

	BillingCycleMonthly = "MONTHLY"
	BillingCycleYearly  = "YEARLY"
	BillingCycleOther   = "OTHER"
)

// Subscription a recurring service paid by an operator; rows are scoped to
// the operator that created them
type Subscription struct {
	ID            int64           `json:"id,string" form:"id"`
	Owner         string          `gorm:"size:64;index" json:"owner" form:"owner"`
	Name          string          `gorm:"size:200" json:"name" form:"name"`
	Vendor        string          `gorm:"size:200" json:"vendor" form:"vendor"`
	Category      string          `gorm:"size:128" json:"category" form:"category"`
	Status        string          `gorm:"size:16;index" json:"status" form:"status"`
	BillingCycle  string          `gorm:"size:16" json:"billing_cycle" form:"billing_cycle"`
	Currency      string          `gorm:"size:3" json:"currency" form:"currency"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount" form:"amount"`
	StartDate     *time.Time      `json:"start_date" form:"start_date"`
	RenewalDate   *time.Time      `json:"renewal_date" form:"renewal_date"`
	PaymentMethod string          `gorm:"size:128" json:"payment_method" form:"payment_method"`
	Notes         string          `json:"notes" form:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Subscription) TableName() string {
	return "user_subscriptions"
}

// SubscriptionExpense one charge of a subscription for a billing period
type SubscriptionExpense struct {
	ID             int64           `json:"id,string" form:"id"`
	Owner          string          `gorm:"size:64;index" json:"owner" form:"owner"`
	SubscriptionID int64           `gorm:"index" json:"subscription_id,string" form:"subscription_id"`
	ExpenseDate    time.Time       `gorm:"index" json:"expense_date" form:"expense_date"`
	PeriodYear     int             `json:"period_year" form:"period_year"`
	PeriodMonth    int             `json:"period_month" form:"period_month"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount" form:"amount"`
	Currency       string          `gorm:"size:3" json:"currency" form:"currency"`
	VendorSnapshot string          `gorm:"size:200" json:"vendor_snapshot" form:"vendor_snapshot"`
	Note           string          `json:"note" form:"note"`
	CreatedAt      time.Time       `json:"created_at"`
}

// TableName Specify table name
func (SubscriptionExpense) TableName() string {
	return "subscription_expenses"
}
