package finance

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	svc    *Service
	cat    domain.FinanceCategory
	sub    domain.FinanceSubcategory
	method domain.FinancePaymentMethod
}

func setup(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	f := &fixture{
		db:     db,
		svc:    NewService(db),
		cat:    domain.FinanceCategory{ID: 1, Name: "Materia prima", IsActive: true},
		sub:    domain.FinanceSubcategory{ID: 2, CategoryID: 1, Name: "Resina", IsActive: true},
		method: domain.FinancePaymentMethod{ID: 3, Name: "Transferencia", IsActive: true},
	}
	f.svc.SetLocation(time.UTC)
	f.svc.now = func() time.Time { return time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC) }
	require.NoError(t, db.Create(&f.cat).Error)
	require.NoError(t, db.Create(&domain.FinanceCategory{ID: 4, Name: "Logística", IsActive: true}).Error)
	require.NoError(t, db.Create(&f.sub).Error)
	require.NoError(t, db.Create(&f.method).Error)
	return f
}

func (f *fixture) input(issue, status string, amount int64) ExpenseInput {
	return ExpenseInput{
		IssueDate:       issue,
		Amount:          decimal.NewFromInt(amount),
		Description:     "Resina poliéster",
		CategoryID:      f.cat.ID,
		SubcategoryID:   f.sub.ID,
		PaymentMethodID: f.method.ID,
		Status:          status,
	}
}

func TestCreateExpensePaymentDateRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	paid, err := f.svc.CreateExpense(ctx, f.input("2026-03-05", domain.ExpenseStatusPaid, 150000))
	require.NoError(t, err)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, "2026-03-05", paid.PaymentDate.Format("2006-01-02"))

	in := f.input("2026-03-05", domain.ExpenseStatusPending, 1000)
	in.PaymentDate = "2026-03-09"
	pending, err := f.svc.CreateExpense(ctx, in)
	require.NoError(t, err)
	assert.Nil(t, pending.PaymentDate)

	in = f.input("2026-03-05", "", 1000)
	def, err := f.svc.CreateExpense(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseStatusPending, def.Status)

	in = f.input("2026-03-05", domain.ExpenseStatusPaid, 1000)
	in.PaymentDate = "2026-03-10"
	explicit, err := f.svc.CreateExpense(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", explicit.PaymentDate.Format("2006-01-02"))
}

func TestCreateExpenseValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateExpense(ctx, f.input("2026-03-05", domain.ExpenseStatusPaid, 0))
	require.Error(t, err)
	assert.Equal(t, "amount must be greater than 0", err.Error())

	in := f.input("2026-03-05", domain.ExpenseStatusPaid, 10)
	in.Description = ""
	_, err = f.svc.CreateExpense(ctx, in)
	require.Error(t, err)
	assert.Equal(t, "description is required", err.Error())

	in = f.input("2026-03-05", domain.ExpenseStatusPaid, 10)
	in.CategoryID = 4
	_, err = f.svc.CreateExpense(ctx, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not belong")

	_, err = f.svc.CreateExpense(ctx, f.input("ayer", domain.ExpenseStatusPaid, 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue_date")
}

func TestUpdateAndToggleExpense(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	e, err := f.svc.CreateExpense(ctx, f.input("2026-03-05", domain.ExpenseStatusPending, 1000))
	require.NoError(t, err)

	toggled, err := f.svc.ToggleStatus(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseStatusPaid, toggled.Status)
	require.NotNil(t, toggled.PaymentDate)
	assert.Equal(t, "2026-05-20", toggled.PaymentDate.Format("2006-01-02"))

	toggled, err = f.svc.ToggleStatus(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseStatusPending, toggled.Status)

	var stored domain.Expense
	require.NoError(t, f.db.First(&stored, e.ID).Error)
	assert.Nil(t, stored.PaymentDate)

	updated, err := f.svc.UpdateExpense(ctx, e.ID, f.input("2026-03-07", domain.ExpenseStatusPaid, 2500))
	require.NoError(t, err)
	assert.Equal(t, "2026-03-07", updated.PaymentDate.Format("2006-01-02"))
	assert.Equal(t, "2500.00", updated.Amount.StringFixed(2))

	require.NoError(t, f.svc.DeleteExpense(ctx, e.ID))
	assert.ErrorIs(t, f.svc.DeleteExpense(ctx, e.ID), gorm.ErrRecordNotFound)
}

func TestListExpensesByMonth(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, d := range []string{"2026-03-01", "2026-03-31", "2026-04-01"} {
		_, err := f.svc.CreateExpense(ctx, f.input(d, domain.ExpenseStatusPaid, 1000))
		require.NoError(t, err)
	}
	page, err := f.svc.ListExpenses(ctx, ExpenseFilter{Month: "2026-03"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Rows, 2)
	assert.Equal(t, "2000.00", page.Sum.StringFixed(2))

	page, err = f.svc.ListExpenses(ctx, ExpenseFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	_, err = f.svc.ListExpenses(ctx, ExpenseFilter{Month: "marzo"})
	assert.Error(t, err)
}

func TestExportXLSX(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.CreateExpense(ctx, f.input("2026-03-05", domain.ExpenseStatusPaid, 2464000))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportXLSX(ctx, ExpenseFilter{}, NewFormatter("es-AR", "ARS"), &buf))

	xlsx, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Fecha", xlsx.GetCellValue(expenseSheet, "A1"))
	assert.Equal(t, "2026-03-05", xlsx.GetCellValue(expenseSheet, "A2"))
	assert.Equal(t, "Resina poliéster", xlsx.GetCellValue(expenseSheet, "C2"))
	assert.Equal(t, "Materia prima", xlsx.GetCellValue(expenseSheet, "D2"))
	assert.Equal(t, "Resina", xlsx.GetCellValue(expenseSheet, "E2"))
	assert.Contains(t, xlsx.GetCellValue(expenseSheet, "J2"), "2.464.000")
}

func TestDashboard(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	at := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 12, 0, 0, 0, time.UTC) }
	orders := []domain.Order{
		{ID: 10, OrderNumber: "A", Channel: domain.ChannelInternal, Status: domain.OrderStatusCompleted, TotalNet: decimal.NewFromInt(1000), CreatedAt: at(3, 1)},
		{ID: 11, OrderNumber: "B", Channel: domain.ChannelReseller, Status: domain.OrderStatusPending, TotalNet: decimal.NewFromInt(3000), CreatedAt: at(3, 15)},
		{ID: 12, OrderNumber: "C", Channel: domain.ChannelInternal, Status: domain.OrderStatusConfirmed, TotalNet: decimal.NewFromInt(8000), CreatedAt: at(4, 2)},
		{ID: 13, OrderNumber: "D", Channel: domain.ChannelInternal, Status: domain.OrderStatusCancelled, TotalNet: decimal.NewFromInt(99999), CreatedAt: at(4, 3)},
	}
	require.NoError(t, f.db.Create(&orders).Error)
	require.NoError(t, f.db.Create(&[]domain.OrderItem{
		{ID: 1, OrderID: 10, Type: domain.ItemTypeProduct, SubtotalNet: decimal.NewFromInt(800)},
		{ID: 2, OrderID: 10, Type: domain.ItemTypeService, SubtotalNet: decimal.NewFromInt(200)},
		{ID: 3, OrderID: 13, Type: domain.ItemTypeService, SubtotalNet: decimal.NewFromInt(5000)},
	}).Error)
	_, err := f.svc.CreateExpense(ctx, f.input("2026-04-10", domain.ExpenseStatusPaid, 500))
	require.NoError(t, err)

	d, err := f.svc.Dashboard(ctx, Period{})
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalOrders)
	assert.Equal(t, "12000.00", d.TotalRevenue.StringFixed(2))
	assert.Equal(t, "4000.00", d.TicketMean.StringFixed(2))
	assert.Equal(t, "3000.00", d.TicketMedian.StringFixed(2))
	assert.Equal(t, "3000.00", d.ByChannel[domain.ChannelReseller].StringFixed(2))
	assert.Equal(t, "800.00", d.Products.StringFixed(2))
	assert.Equal(t, "200.00", d.Services.StringFixed(2))
	assert.Equal(t, int64(1), d.ByStatus[domain.OrderStatusCancelled])
	require.Len(t, d.RevenueByMonth, 2)
	assert.Equal(t, "2026-03", d.RevenueByMonth[0].Month)
	assert.Equal(t, "4000.00", d.RevenueByMonth[0].Amount.StringFixed(2))
	assert.Equal(t, "11500.00", d.Balance.StringFixed(2))

	d, err = f.svc.Dashboard(ctx, Period{From: at(4, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, d.TotalOrders)
}

func TestSubscriptionLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateSubscription(ctx, "ana", SubscriptionInput{Name: "", Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	_, err = f.svc.CreateSubscription(ctx, "ana", SubscriptionInput{Name: "x", BillingCycle: "WEEKLY"})
	require.Error(t, err)

	sub, err := f.svc.CreateSubscription(ctx, "ana", SubscriptionInput{
		Name: "Hosting", Vendor: "DonWeb", Amount: decimal.RequireFromString("12500.499"), RenewalDate: "2026-06-01",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, domain.BillingCycleMonthly, sub.BillingCycle)
	assert.Equal(t, "ARS", sub.Currency)
	assert.Equal(t, "12500.50", sub.Amount.StringFixed(2))
	require.NotNil(t, sub.RenewalDate)

	_, err = f.svc.CreateSubscription(ctx, "juan", SubscriptionInput{Name: "Correo"})
	require.NoError(t, err)

	e1, err := f.svc.AddSubscriptionExpense(ctx, "ana", sub.ID, SubscriptionExpenseInput{
		ExpenseDate: "2026-04-03", Amount: decimal.NewFromInt(12000),
	})
	require.NoError(t, err)
	assert.Equal(t, 2026, e1.PeriodYear)
	assert.Equal(t, 4, e1.PeriodMonth)
	assert.Equal(t, "DonWeb", e1.VendorSnapshot)
	assert.Equal(t, "ARS", e1.Currency)
	_, err = f.svc.AddSubscriptionExpense(ctx, "ana", sub.ID, SubscriptionExpenseInput{
		ExpenseDate: "2026-05-03", Amount: decimal.NewFromInt(12500), PeriodMonth: 5,
	})
	require.NoError(t, err)

	// another operator never sees it
	_, err = f.svc.AddSubscriptionExpense(ctx, "juan", sub.ID, SubscriptionExpenseInput{ExpenseDate: "2026-05-03"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = f.svc.GetSubscription(ctx, "juan", sub.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	rows, err := f.svc.ListSubscriptions(ctx, "ana", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "24500.00", rows[0].TotalSpent.StringFixed(2))

	d, err := f.svc.GetSubscription(ctx, "ana", sub.ID)
	require.NoError(t, err)
	require.Len(t, d.Expenses, 2)
	assert.Equal(t, time.May, d.Expenses[0].ExpenseDate.Month())
	assert.Equal(t, "24500.00", d.TotalSpent.StringFixed(2))

	paused := domain.SubscriptionStatusPaused
	vendor := "Hostinger"
	got, err := f.svc.UpdateSubscription(ctx, "ana", sub.ID, SubscriptionPatch{Status: &paused, Vendor: &vendor})
	require.NoError(t, err)
	assert.Equal(t, paused, got.Status)
	assert.Equal(t, "Hosting", got.Name)
	d, err = f.svc.GetSubscription(ctx, "ana", sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "DonWeb", d.Expenses[0].VendorSnapshot)

	rows, err = f.svc.ListSubscriptions(ctx, "ana", domain.SubscriptionStatusActive)
	require.NoError(t, err)
	assert.Empty(t, rows)

	assert.ErrorIs(t, f.svc.RemoveSubscriptionExpense(ctx, "juan", sub.ID, e1.ID), gorm.ErrRecordNotFound)
	require.NoError(t, f.svc.RemoveSubscriptionExpense(ctx, "ana", sub.ID, e1.ID))

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportSubscriptionsXLSX(ctx, "ana", &buf))
	xlsx, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Hosting", xlsx.GetCellValue(subscriptionSheet, "A2"))
	assert.Equal(t, "Mensual", xlsx.GetCellValue(subscriptionSheet, "E2"))
	assert.Equal(t, "", xlsx.GetCellValue(subscriptionSheet, "A3"))

	require.NoError(t, f.svc.DeleteSubscription(ctx, "ana", sub.ID))
	var left int64
	f.db.Model(&domain.SubscriptionExpense{}).Where("subscription_id = ?", sub.ID).Count(&left)
	assert.Zero(t, left)
}
