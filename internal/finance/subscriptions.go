package finance

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/pkg/common"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubscriptionInput fields of a subscription as typed in the form
type SubscriptionInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Vendor        string          `json:"vendor"`
	Category      string          `json:"category"`
	Status        string          `json:"status" validate:"omitempty,oneof=ACTIVE PAUSED CANCELLED"`
	BillingCycle  string          `json:"billing_cycle" validate:"omitempty,oneof=MONTHLY YEARLY OTHER"`
	Currency      string          `json:"currency" validate:"omitempty,oneof=ARS USD"`
	Amount        decimal.Decimal `json:"amount" validate:"gte=0"`
	StartDate     string          `json:"start_date"`
	RenewalDate   string          `json:"renewal_date"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
}

// SubscriptionPatch partial update, nil fields are kept
type SubscriptionPatch struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Vendor        *string          `json:"vendor"`
	Category      *string          `json:"category"`
	Status        *string          `json:"status" validate:"omitempty,oneof=ACTIVE PAUSED CANCELLED"`
	BillingCycle  *string          `json:"billing_cycle" validate:"omitempty,oneof=MONTHLY YEARLY OTHER"`
	Currency      *string          `json:"currency" validate:"omitempty,oneof=ARS USD"`
	Amount        *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	StartDate     *string          `json:"start_date"`
	RenewalDate   *string          `json:"renewal_date"`
	PaymentMethod *string          `json:"payment_method"`
	Notes         *string          `json:"notes"`
}

// SubscriptionExpenseInput one charge; the period defaults to the month of
// the expense date and the currency to the subscription's
type SubscriptionExpenseInput struct {
	ExpenseDate string          `json:"expense_date" validate:"required"`
	PeriodYear  int             `json:"period_year" validate:"omitempty,min=2020,max=2100"`
	PeriodMonth int             `json:"period_month" validate:"omitempty,min=1,max=12"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	Currency    string          `json:"currency" validate:"omitempty,oneof=ARS USD"`
	Note        string          `json:"note"`
}

// SubscriptionRow a list row with what was spent on it so far
type SubscriptionRow struct {
	domain.Subscription
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// SubscriptionDetail a subscription with its charges, latest first
type SubscriptionDetail struct {
	domain.Subscription
	TotalSpent decimal.Decimal              `json:"total_spent"`
	Expenses   []domain.SubscriptionExpense `json:"expenses"`
}

func (s *Service) optionalDate(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := s.parseDate(field, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// CreateSubscription stores a subscription owned by the operator
func (s *Service) CreateSubscription(ctx context.Context, owner string, in SubscriptionInput) (*domain.Subscription, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	start, err := s.optionalDate("start_date", in.StartDate)
	if err != nil {
		return nil, err
	}
	renewal, err := s.optionalDate("renewal_date", in.RenewalDate)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sub := &domain.Subscription{
		ID:            common.UUIDint64(),
		Owner:         owner,
		Name:          in.Name,
		Vendor:        in.Vendor,
		Category:      in.Category,
		Status:        orDefault(in.Status, domain.SubscriptionStatusActive),
		BillingCycle:  orDefault(in.BillingCycle, domain.BillingCycleMonthly),
		Currency:      orDefault(in.Currency, "ARS"),
		Amount:        in.Amount.Round(2),
		StartDate:     start,
		RenewalDate:   renewal,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	zap.L().Info("subscription created",
		zap.Int64("subscription_id", sub.ID),
		zap.String("owner", owner),
		zap.String("namespace", "finance"))
	return sub, nil
}

func (s *Service) ownSubscription(db *gorm.DB, owner string, id int64) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := db.Where("id = ? AND owner = ?", id, owner).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubscription applies a partial update to one of the operator's subscriptions
func (s *Service) UpdateSubscription(ctx context.Context, owner string, id int64, patch SubscriptionPatch) (*domain.Subscription, error) {
	if err := validate.Struct(&patch); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	sub, err := s.ownSubscription(db, owner, id)
	if err != nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&sub.Name, patch.Name)
	set(&sub.Vendor, patch.Vendor)
	set(&sub.Category, patch.Category)
	set(&sub.Status, patch.Status)
	set(&sub.BillingCycle, patch.BillingCycle)
	set(&sub.Currency, patch.Currency)
	set(&sub.PaymentMethod, patch.PaymentMethod)
	set(&sub.Notes, patch.Notes)
	if patch.Amount != nil {
		sub.Amount = patch.Amount.Round(2)
	}
	if patch.StartDate != nil {
		if sub.StartDate, err = s.optionalDate("start_date", *patch.StartDate); err != nil {
			return nil, err
		}
	}
	if patch.RenewalDate != nil {
		if sub.RenewalDate, err = s.optionalDate("renewal_date", *patch.RenewalDate); err != nil {
			return nil, err
		}
	}
	sub.UpdatedAt = time.Now()
	if err := db.Save(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteSubscription removes the subscription and its charges
func (s *Service) DeleteSubscription(ctx context.Context, owner string, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.ownSubscription(tx, owner, id)
		if err != nil {
			return err
		}
		if err := tx.Where("subscription_id = ?", sub.ID).Delete(&domain.SubscriptionExpense{}).Error; err != nil {
			return err
		}
		return tx.Delete(sub).Error
	})
}

type spent struct {
	SubscriptionID int64
	Total          decimal.NullDecimal
}

// ListSubscriptions returns the operator's subscriptions, newest first, with
// the amount charged on each
func (s *Service) ListSubscriptions(ctx context.Context, owner, status string) ([]SubscriptionRow, error) {
	db := s.db.WithContext(ctx)
	q := db.Where("owner = ?", owner)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var subs []domain.Subscription
	if err := q.Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, err
	}
	var totals []spent
	if err := db.Model(&domain.SubscriptionExpense{}).
		Select("subscription_id, SUM(amount) AS total").
		Where("owner = ?", owner).
		Group("subscription_id").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	byID := make(map[int64]decimal.Decimal, len(totals))
	for _, t := range totals {
		if t.Total.Valid {
			byID[t.SubscriptionID] = t.Total.Decimal.Round(2)
		}
	}
	rows := make([]SubscriptionRow, 0, len(subs))
	for _, sub := range subs {
		rows = append(rows, SubscriptionRow{Subscription: sub, TotalSpent: byID[sub.ID]})
	}
	return rows, nil
}

// GetSubscription loads one of the operator's subscriptions with its charges
func (s *Service) GetSubscription(ctx context.Context, owner string, id int64) (*SubscriptionDetail, error) {
	db := s.db.WithContext(ctx)
	sub, err := s.ownSubscription(db, owner, id)
	if err != nil {
		return nil, err
	}
	d := &SubscriptionDetail{Subscription: *sub, TotalSpent: decimal.Zero, Expenses: []domain.SubscriptionExpense{}}
	if err := db.Where("subscription_id = ?", id).Find(&d.Expenses).Error; err != nil {
		return nil, err
	}
	sort.SliceStable(d.Expenses, func(i, k int) bool {
		return d.Expenses[i].ExpenseDate.After(d.Expenses[k].ExpenseDate)
	})
	for _, e := range d.Expenses {
		d.TotalSpent = d.TotalSpent.Add(e.Amount)
	}
	return d, nil
}

// AddSubscriptionExpense records a charge against the subscription. The
// vendor is copied so renaming it later keeps the history readable.
func (s *Service) AddSubscriptionExpense(ctx context.Context, owner string, subscriptionID int64, in SubscriptionExpenseInput) (*domain.SubscriptionExpense, error) {
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	date, err := s.parseDate("expense_date", in.ExpenseDate)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	sub, err := s.ownSubscription(db, owner, subscriptionID)
	if err != nil {
		return nil, err
	}
	e := &domain.SubscriptionExpense{
		ID:             common.UUIDint64(),
		Owner:          owner,
		SubscriptionID: sub.ID,
		ExpenseDate:    date,
		PeriodYear:     in.PeriodYear,
		PeriodMonth:    in.PeriodMonth,
		Amount:         in.Amount.Round(2),
		Currency:       orDefault(in.Currency, sub.Currency),
		VendorSnapshot: sub.Vendor,
		Note:           in.Note,
		CreatedAt:      time.Now(),
	}
	if e.PeriodYear == 0 {
		e.PeriodYear = date.Year()
	}
	if e.PeriodMonth == 0 {
		e.PeriodMonth = int(date.Month())
	}
	if err := db.Create(e).Error; err != nil {
		return nil, err
	}
	zap.L().Info("subscription expense added",
		zap.Int64("subscription_id", sub.ID),
		zap.String("amount", e.Amount.StringFixed(2)),
		zap.String("namespace", "finance"))
	return e, nil
}

// RemoveSubscriptionExpense deletes one charge of the operator's subscription
func (s *Service) RemoveSubscriptionExpense(ctx context.Context, owner string, subscriptionID, expenseID int64) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND subscription_id = ? AND owner = ?", expenseID, subscriptionID, owner).
		Delete(&domain.SubscriptionExpense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

const subscriptionSheet = "Suscripciones"

var subscriptionHeader = []string{"Suscripción", "Proveedor", "Categoría", "Estado", "Ciclo", "Moneda", "Costo", "Próx. cobro", "Histórico gastado"}

var billingCycleNames = map[string]string{
	domain.BillingCycleMonthly: "Mensual",
	domain.BillingCycleYearly:  "Anual",
	domain.BillingCycleOther:   "Otro",
}

// ExportSubscriptionsXLSX writes the operator's subscriptions as a spreadsheet
func (s *Service) ExportSubscriptionsXLSX(ctx context.Context, owner string, w io.Writer) error {
	rows, err := s.ListSubscriptions(ctx, owner, "")
	if err != nil {
		return err
	}
	xlsx := excelize.NewFile()
	xlsx.SetSheetName("Sheet1", subscriptionSheet)
	for i, h := range subscriptionHeader {
		xlsx.SetCellValue(subscriptionSheet, cell(i, 1), h)
	}
	for i, sub := range rows {
		renewal := ""
		if sub.RenewalDate != nil {
			renewal = sub.RenewalDate.Format("2006-01-02")
		}
		amount, _ := sub.Amount.Float64()
		total, _ := sub.TotalSpent.Float64()
		values := []interface{}{
			sub.Name, sub.Vendor, sub.Category, sub.Status,
			billingCycleNames[sub.BillingCycle], sub.Currency,
			amount, renewal, total,
		}
		for c, v := range values {
			xlsx.SetCellValue(subscriptionSheet, cell(c, i+2), v)
		}
	}
	xlsx.SetColWidth(subscriptionSheet, "A", "A", 32)
	return xlsx.Write(w)
}
