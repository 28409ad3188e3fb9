package finance

import (
	"context"
	"time"

	"github.com/araddon/dateparse"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/pkg/common"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExpenseInput fields of an expense as typed in the form
type ExpenseInput struct {
	IssueDate       string          `json:"issue_date" validate:"required"`
	PaymentDate     string          `json:"payment_date"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	Description     string          `json:"description" validate:"required"`
	CategoryID      int64           `json:"category_id,string" validate:"required"`
	SubcategoryID   int64           `json:"subcategory_id,string"`
	PaymentMethodID int64           `json:"payment_method_id,string" validate:"required"`
	VendorID        int64           `json:"vendor_id,string"`
	Status          string          `json:"status" validate:"omitempty,oneof=PAID PENDING"`
	Notes           string          `json:"notes"`
}

// ExpenseFilter list query; Month is YYYY-MM
type ExpenseFilter struct {
	Month      string
	Status     string
	CategoryID int64
	Page       int
	PageSize   int
}

// ExpensePage one page of expenses with the amount of the whole selection
type ExpensePage struct {
	Rows  []domain.Expense `json:"rows"`
	Total int64            `json:"total"`
	Sum   decimal.Decimal  `json:"sum"`
}

type Service struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, loc: time.Local, now: time.Now}
}

// SetLocation sets the zone used for dates typed without offset
func (s *Service) SetLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

func (s *Service) today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

func (s *Service) parseDate(field, v string) (time.Time, error) {
	t, err := dateparse.ParseIn(v, s.loc)
	if err != nil {
		return time.Time{}, validate.Errorf(field, "date", "%s %q is not a valid date", field, v)
	}
	return t, nil
}

// build turns the input into an expense. A PAID expense typed without
// payment date is paid on its issue date, a PENDING one has none.
func (s *Service) build(in ExpenseInput, e *domain.Expense) error {
	if err := validate.Struct(&in); err != nil {
		return err
	}
	if in.Status == "" {
		in.Status = domain.ExpenseStatusPending
	}
	issue, err := s.parseDate("issue_date", in.IssueDate)
	if err != nil {
		return err
	}
	e.IssueDate = issue
	e.Amount = in.Amount.Round(2)
	e.Description = in.Description
	e.CategoryID = in.CategoryID
	e.SubcategoryID = in.SubcategoryID
	e.PaymentMethodID = in.PaymentMethodID
	e.VendorID = in.VendorID
	e.Status = in.Status
	e.Notes = in.Notes

	switch in.Status {
	case domain.ExpenseStatusPending:
		e.PaymentDate = nil
	case domain.ExpenseStatusPaid:
		if in.PaymentDate == "" {
			paid := issue
			e.PaymentDate = &paid
			break
		}
		paid, err := s.parseDate("payment_date", in.PaymentDate)
		if err != nil {
			return err
		}
		e.PaymentDate = &paid
	}
	return nil
}

func (s *Service) checkRefs(db *gorm.DB, e *domain.Expense) error {
	var n int64
	if err := db.Model(&domain.FinanceCategory{}).Where("id = ?", e.CategoryID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return validate.Errorf("category_id", "exists", "category %d does not exist", e.CategoryID)
	}
	if e.SubcategoryID != 0 {
		var sub domain.FinanceSubcategory
		if err := db.First(&sub, e.SubcategoryID).Error; err != nil {
			return validate.Errorf("subcategory_id", "exists", "subcategory %d does not exist", e.SubcategoryID)
		}
		if sub.CategoryID != e.CategoryID {
			return validate.Errorf("subcategory_id", "category", "subcategory %s does not belong to the category", sub.Name)
		}
	}
	return nil
}

// CreateExpense validates and stores an expense. A PAID expense without
// payment date is paid on its issue date.
func (s *Service) CreateExpense(ctx context.Context, in ExpenseInput) (*domain.Expense, error) {
	now := time.Now()
	e := &domain.Expense{ID: common.UUIDint64(), CreatedAt: now, UpdatedAt: now}
	if err := s.build(in, e); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if err := s.checkRefs(db, e); err != nil {
		return nil, err
	}
	if err := db.Create(e).Error; err != nil {
		return nil, err
	}
	zap.L().Info("expense created",
		zap.Int64("expense_id", e.ID),
		zap.String("amount", e.Amount.StringFixed(2)),
		zap.String("status", e.Status),
		zap.String("namespace", "finance"))
	return e, nil
}

// UpdateExpense replaces the editable fields of an expense
func (s *Service) UpdateExpense(ctx context.Context, id int64, in ExpenseInput) (*domain.Expense, error) {
	db := s.db.WithContext(ctx)
	var e domain.Expense
	if err := db.First(&e, id).Error; err != nil {
		return nil, err
	}
	if err := s.build(in, &e); err != nil {
		return nil, err
	}
	if err := s.checkRefs(db, &e); err != nil {
		return nil, err
	}
	e.UpdatedAt = time.Now()
	if err := db.Save(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

// ToggleStatus flips PAID and PENDING; a paid expense is paid today
func (s *Service) ToggleStatus(ctx context.Context, id int64) (*domain.Expense, error) {
	db := s.db.WithContext(ctx)
	var e domain.Expense
	if err := db.First(&e, id).Error; err != nil {
		return nil, err
	}
	if e.Status == domain.ExpenseStatusPaid {
		e.Status = domain.ExpenseStatusPending
		e.PaymentDate = nil
	} else {
		e.Status = domain.ExpenseStatusPaid
		today := s.today()
		e.PaymentDate = &today
	}
	e.UpdatedAt = time.Now()
	if err := db.Model(&e).Select("status", "payment_date", "updated_at").Updates(&e).Error; err != nil {
		return nil, err
	}
	zap.L().Info("expense status toggled",
		zap.Int64("expense_id", id),
		zap.String("status", e.Status),
		zap.String("namespace", "finance"))
	return &e, nil
}

func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&domain.Expense{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) filtered(ctx context.Context, f ExpenseFilter) (*gorm.DB, error) {
	db := s.db.WithContext(ctx).Model(&domain.Expense{})
	if f.Month != "" {
		start, err := time.ParseInLocation("2006-01", f.Month, s.loc)
		if err != nil {
			return nil, validate.Errorf("month", "month", "month %q must look like 2006-01", f.Month)
		}
		db = db.Where("issue_date >= ? AND issue_date < ?", start, start.AddDate(0, 1, 0))
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.CategoryID != 0 {
		db = db.Where("category_id = ?", f.CategoryID)
	}
	return db.Session(&gorm.Session{}), nil
}

// ListExpenses returns a page of expenses, latest issue date first
func (s *Service) ListExpenses(ctx context.Context, f ExpenseFilter) (*ExpensePage, error) {
	db, err := s.filtered(ctx, f)
	if err != nil {
		return nil, err
	}
	page := &ExpensePage{Rows: []domain.Expense{}, Sum: decimal.Zero}
	if err := db.Count(&page.Total).Error; err != nil {
		return nil, err
	}
	var sum decimal.NullDecimal
	if err := db.Session(&gorm.Session{}).Select("SUM(amount)").Row().Scan(&sum); err != nil {
		return nil, errors.Wrap(err, "sum expenses")
	}
	if sum.Valid {
		page.Sum = sum.Decimal.Round(2)
	}
	if f.PageSize <= 0 {
		f.PageSize = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if err := db.Order("issue_date DESC, created_at DESC").
		Offset((f.Page - 1) * f.PageSize).Limit(f.PageSize).Find(&page.Rows).Error; err != nil {
		return nil, err
	}
	return page, nil
}
