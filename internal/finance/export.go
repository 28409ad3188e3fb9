package finance

import (
	"context"
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/liderplast/backoffice/internal/domain"
)

const expenseSheet = "Gastos"

var expenseHeader = []string{"Fecha", "Pago", "Descripción", "Categoría", "Subcategoría", "Medio de pago", "Proveedor", "Estado", "Monto", "Monto ($)", "Notas"}

type names map[int64]string

// ExportXLSX writes the filtered expenses as a spreadsheet, oldest first
func (s *Service) ExportXLSX(ctx context.Context, f ExpenseFilter, fmtr *Formatter, w io.Writer) error {
	db, err := s.filtered(ctx, f)
	if err != nil {
		return err
	}
	var rows []domain.Expense
	if err := db.Order("issue_date ASC, created_at ASC").Find(&rows).Error; err != nil {
		return err
	}
	lookup := s.db.WithContext(ctx)
	var cats []domain.FinanceCategory
	var subs []domain.FinanceSubcategory
	var methods []domain.FinancePaymentMethod
	var vendors []domain.FinanceVendor
	for _, q := range []interface{}{&cats, &subs, &methods, &vendors} {
		if err := lookup.Find(q).Error; err != nil {
			return err
		}
	}
	catNames := names{}
	for _, c := range cats {
		catNames[c.ID] = c.Name
	}
	subNames := names{}
	for _, c := range subs {
		subNames[c.ID] = c.Name
	}
	methodNames := names{}
	for _, c := range methods {
		methodNames[c.ID] = c.Name
	}
	vendorNames := names{}
	for _, c := range vendors {
		vendorNames[c.ID] = c.Name
	}

	xlsx := excelize.NewFile()
	xlsx.SetSheetName("Sheet1", expenseSheet)
	for i, h := range expenseHeader {
		xlsx.SetCellValue(expenseSheet, cell(i, 1), h)
	}
	for i, e := range rows {
		r := i + 2
		paid := ""
		if e.PaymentDate != nil {
			paid = e.PaymentDate.Format("2006-01-02")
		}
		amount, _ := e.Amount.Float64()
		values := []interface{}{
			e.IssueDate.Format("2006-01-02"),
			paid,
			e.Description,
			catNames[e.CategoryID],
			subNames[e.SubcategoryID],
			methodNames[e.PaymentMethodID],
			vendorNames[e.VendorID],
			e.Status,
			amount,
			fmtr.Money(e.Amount),
			e.Notes,
		}
		for c, v := range values {
			xlsx.SetCellValue(expenseSheet, cell(c, r), v)
		}
	}
	xlsx.SetColWidth(expenseSheet, "C", "C", 40)
	return xlsx.Write(w)
}

// cell returns the A1 reference of a zero based column and a one based row
func cell(col, row int) string {
	return fmt.Sprintf("%s%d", excelize.ToAlphaString(col), row)
}
