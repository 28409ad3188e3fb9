package adminapi

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/liderplast/backoffice/internal/pricing"
	"github.com/liderplast/backoffice/internal/webserver"
)

// registerPriceRoutes registers price matrix administration routes
func registerPriceRoutes() {
	webserver.ApiGET("/prices", listPrices)
	webserver.ApiPUT("/prices", upsertPrices)
	webserver.ApiPOST("/prices/import", importPrices)
	webserver.ApiGET("/prices/export", exportPrices)
	webserver.ApiGET("/reseller-prices", listResellerPrices)
	webserver.ApiPUT("/reseller-prices", upsertResellerPrices)
}

func listPrices(c echo.Context) error {
	rows, err := GetAppContext(c).Pricing().Prices(c.Request().Context(), queryInt64(c, "province_id"))
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	return ok(c, rows)
}

func upsertPrices(c echo.Context) error {
	var payload []pricing.PriceInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	if len(payload) == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "No prices provided", nil)
	}
	if err := GetAppContext(c).Pricing().UpsertPrices(c.Request().Context(), payload); err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	logOperation(c, "upsert_prices", strconv.Itoa(len(payload))+" province prices")
	return ok(c, map[string]int{"upserted": len(payload)})
}

func listResellerPrices(c echo.Context) error {
	listID := queryInt64(c, "price_list_id")
	if listID == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "price_list_id is required", nil)
	}
	rows, err := GetAppContext(c).Pricing().ResellerPrices(c.Request().Context(), listID)
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	return ok(c, rows)
}

func upsertResellerPrices(c echo.Context) error {
	var payload []pricing.ResellerPriceInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	if len(payload) == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "No prices provided", nil)
	}
	if err := GetAppContext(c).Pricing().UpsertResellerPrices(c.Request().Context(), payload); err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	logOperation(c, "upsert_reseller_prices", strconv.Itoa(len(payload))+" reseller prices")
	return ok(c, map[string]int{"upserted": len(payload)})
}

// importPrices accepts the matrix CSV either as multipart field "file" or
// as the raw request body
func importPrices(c echo.Context) error {
	var r io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read upload", err.Error())
		}
		defer f.Close()
		r = f
	} else {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil || len(body) == 0 {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "No CSV provided", nil)
		}
		r = bytes.NewReader(body)
	}
	res, err := GetAppContext(c).Pricing().ImportCSV(c.Request().Context(), r)
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	logOperation(c, "import_prices", strconv.Itoa(res.Imported)+" rows imported")
	return ok(c, res)
}

func exportPrices(c echo.Context) error {
	var buf bytes.Buffer
	if err := GetAppContext(c).Pricing().ExportCSV(c.Request().Context(), queryInt64(c, "province_id"), &buf); err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	name := "precios-" + time.Now().Format("20060102") + ".csv"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
