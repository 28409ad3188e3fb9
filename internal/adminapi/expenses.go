package adminapi

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/liderplast/backoffice/internal/finance"
	"github.com/liderplast/backoffice/internal/webserver"
)

// registerExpenseRoutes registers finance expense routes
func registerExpenseRoutes() {
	webserver.ApiGET("/finance/expenses", listExpenses)
	webserver.ApiGET("/finance/expenses/export", exportExpenses)
	webserver.ApiPOST("/finance/expenses", createExpense)
	webserver.ApiPUT("/finance/expenses/:id", updateExpense)
	webserver.ApiPOST("/finance/expenses/:id/toggle", toggleExpense)
	webserver.ApiDELETE("/finance/expenses/:id", deleteExpense)
}

func expenseFilter(c echo.Context) finance.ExpenseFilter {
	return finance.ExpenseFilter{
		Month:      strings.TrimSpace(c.QueryParam("month")),
		Status:     strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))),
		CategoryID: queryInt64(c, "category_id"),
	}
}

func listExpenses(c echo.Context) error {
	appCtx := GetAppContext(c)
	page, pageSize := parsePaginationDefault(c, int(appCtx.GetSettingsInt64Value("finance", "expense_page_size")))
	f := expenseFilter(c)
	f.Page, f.PageSize = page, pageSize

	res, err := appCtx.Finance().ListExpenses(c.Request().Context(), f)
	if err != nil {
		return serviceError(c, err, "EXPENSE_NOT_FOUND")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": res.Rows,
		"sum":  res.Sum,
		"meta": Meta{Total: res.Total, Page: page, PageSize: pageSize},
	})
}

func exportExpenses(c echo.Context) error {
	appCtx := GetAppContext(c)
	f := expenseFilter(c)
	var buf bytes.Buffer
	if err := appCtx.Finance().ExportXLSX(c.Request().Context(), f, appCtx.Formatter(), &buf); err != nil {
		return serviceError(c, err, "EXPENSE_NOT_FOUND")
	}
	name := "gastos"
	if f.Month != "" {
		name += "-" + f.Month
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func createExpense(c echo.Context) error {
	var payload finance.ExpenseInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	e, err := GetAppContext(c).Finance().CreateExpense(c.Request().Context(), payload)
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	logOperation(c, "create_expense", e.Description)
	return created(c, e)
}

func updateExpense(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid expense ID", nil)
	}
	var payload finance.ExpenseInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	e, err := GetAppContext(c).Finance().UpdateExpense(c.Request().Context(), id, payload)
	if err != nil {
		return serviceError(c, err, "EXPENSE_NOT_FOUND")
	}
	logOperation(c, "update_expense", e.Description)
	return ok(c, e)
}

func toggleExpense(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid expense ID", nil)
	}
	e, err := GetAppContext(c).Finance().ToggleStatus(c.Request().Context(), id)
	if err != nil {
		return serviceError(c, err, "EXPENSE_NOT_FOUND")
	}
	return ok(c, e)
}

func deleteExpense(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid expense ID", nil)
	}
	if err := GetAppContext(c).Finance().DeleteExpense(c.Request().Context(), id); err != nil {
		return serviceError(c, err, "EXPENSE_NOT_FOUND")
	}
	logOperation(c, "delete_expense", "deleted expense "+strconv.FormatInt(id, 10))
	return c.NoContent(http.StatusNoContent)
}
