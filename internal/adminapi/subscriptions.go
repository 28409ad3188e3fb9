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

// registerSubscriptionRoutes registers the operator's recurring expense routes.
// Every route only sees the subscriptions of the calling operator.
func registerSubscriptionRoutes() {
	webserver.ApiGET("/subscriptions", listSubscriptions)
	webserver.ApiGET("/subscriptions/export", exportSubscriptions)
	webserver.ApiGET("/subscriptions/:id", getSubscription)
	webserver.ApiPOST("/subscriptions", createSubscription)
	webserver.ApiPUT("/subscriptions/:id", updateSubscription)
	webserver.ApiDELETE("/subscriptions/:id", deleteSubscription)
	webserver.ApiPOST("/subscriptions/:id/expenses", addSubscriptionExpense)
	webserver.ApiDELETE("/subscriptions/:id/expenses/:expenseId", removeSubscriptionExpense)
}

func listSubscriptions(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	rows, err := GetAppContext(c).Finance().ListSubscriptions(c.Request().Context(), operatorName(c), status)
	if err != nil {
		return serviceError(c, err, "SUBSCRIPTION_NOT_FOUND")
	}
	return ok(c, rows)
}

func exportSubscriptions(c echo.Context) error {
	var buf bytes.Buffer
	if err := GetAppContext(c).Finance().ExportSubscriptionsXLSX(c.Request().Context(), operatorName(c), &buf); err != nil {
		return serviceError(c, err, "SUBSCRIPTION_NOT_FOUND")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="suscripciones.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func getSubscription(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscription ID", nil)
	}
	d, err := GetAppContext(c).Finance().GetSubscription(c.Request().Context(), operatorName(c), id)
	if err != nil {
		return serviceError(c, err, "SUBSCRIPTION_NOT_FOUND")
	}
	return ok(c, d)
}

func createSubscription(c echo.Context) error {
	var payload finance.SubscriptionInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	sub, err := GetAppContext(c).Finance().CreateSubscription(c.Request().Context(), operatorName(c), payload)
	if err != nil {
		return serviceError(c, err, "SUBSCRIPTION_NOT_FOUND")
	}
	logOperation(c, "create_subscription", sub.Name)
	return created(c, sub)
}

func updateSubscription(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscription ID", nil)
	}
	var patch finance.SubscriptionPatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	sub, err := GetAppContext(c).Finance().UpdateSubscription(c.Request().Context(), operatorName(c), id, patch)
	if err != nil {
		return serviceError(c, err, "SUBSCRIPTION_NOT_FOUND")
	}
	logOperation(c, "update_subscription", sub.Name)
	return ok(c, sub)
}

func deleteSubscription(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscription ID", nil)
	}
	if err := GetAppContext(c).Finance().DeleteSubscription(c.Request().Context(), operatorName(c), id); err != nil {
		return serviceError(c, err, "SUBSCRIPTION_NOT_FOUND")
	}
	logOperation(c, "delete_subscription", "deleted subscription "+strconv.FormatInt(id, 10))
	return c.NoContent(http.StatusNoContent)
}

func addSubscriptionExpense(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscription ID", nil)
	}
	var payload finance.SubscriptionExpenseInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	e, err := GetAppContext(c).Finance().AddSubscriptionExpense(c.Request().Context(), operatorName(c), id, payload)
	if err != nil {
		return serviceError(c, err, "SUBSCRIPTION_NOT_FOUND")
	}
	return created(c, e)
}

func removeSubscriptionExpense(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid subscription ID", nil)
	}
	expenseID, err := parseIDParam(c, "expenseId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid expense ID", nil)
	}
	if err := GetAppContext(c).Finance().RemoveSubscriptionExpense(c.Request().Context(), operatorName(c), id, expenseID); err != nil {
		return serviceError(c, err, "EXPENSE_NOT_FOUND")
	}
	return c.NoContent(http.StatusNoContent)
}
