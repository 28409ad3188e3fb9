package adminapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/sales"
	"github.com/liderplast/backoffice/internal/webserver"
	"gorm.io/gorm"
)

// orderUpdatePayload an order patch that may also move the order between
// trips; trip_id "0" takes it off its trip
type orderUpdatePayload struct {
	sales.OrderPatch
	TripID *int64 `json:"trip_id,string"`
}

type orderDetailView struct {
	*sales.OrderDetail
	Trip *domain.Trip `json:"trip"`
}

// registerOrderRoutes registers order and quote routes
func registerOrderRoutes() {
	webserver.ApiGET("/orders", listOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPOST("/orders", createOrder)
	webserver.ApiPUT("/orders/:id", updateOrder)
	webserver.ApiDELETE("/orders/:id", deleteOrder)

	webserver.ApiPOST("/orders/:id/quote", saveOrderQuote)
	webserver.ApiPUT("/orders/:id/items", replaceOrderItems)
	webserver.ApiPOST("/orders/:id/items", addOrderItem)
	webserver.ApiPUT("/orders/:id/items/:itemId", updateOrderItem)
	webserver.ApiDELETE("/orders/:id/items/:itemId", removeOrderItem)
	webserver.ApiPOST("/orders/:id/kits/:key", addOrderKit)
	webserver.ApiGET("/orders/:id/price", orderUnitPrice)

	webserver.ApiGET("/quotes/lookups", quoteLookups)
	webserver.ApiPOST("/quotes/preview", previewQuote)
}

func listOrders(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Order{})
	db = likeFilter(db, c.QueryParam("q"), "order_number", "client_name", "city")
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if channel := strings.TrimSpace(c.QueryParam("channel")); channel != "" {
		db = db.Where("channel = ?", channel)
	}
	if id := queryInt64(c, "province_id"); id != 0 {
		db = db.Where("province_id = ?", id)
	}
	if id := queryInt64(c, "reseller_id"); id != 0 {
		db = db.Where("reseller_id = ?", id)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	var orders []domain.Order
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&orders).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	return paged(c, orders, total, page, pageSize)
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	d, err := appCtx.Sales().GetOrder(ctx, id)
	if err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	trip, err := appCtx.Fleet().CurrentTrip(ctx, id)
	if err != nil {
		return serviceError(c, err, "TRIP_NOT_FOUND")
	}
	return ok(c, orderDetailView{OrderDetail: d, Trip: trip})
}

func createOrder(c echo.Context) error {
	var payload sales.OrderInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	order, err := GetAppContext(c).Sales().CreateOrder(c.Request().Context(), payload, operatorName(c))
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	logOperation(c, "create_order", "created order "+order.OrderNumber)
	return created(c, order)
}

func updateOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload orderUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	appCtx := GetAppContext(c)

	// the trip choice goes through the assignment guard in the same
	// transaction as the field changes
	var moveTrip func(tx *gorm.DB) error
	if payload.TripID != nil {
		moveTrip = func(tx *gorm.DB) error {
			return appCtx.Fleet().MoveTx(tx, id, *payload.TripID)
		}
	}
	order, err := appCtx.Sales().UpdateOrderWith(c.Request().Context(), id, payload.OrderPatch, moveTrip)
	if err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	logOperation(c, "update_order", "updated order "+order.OrderNumber)
	return ok(c, order)
}

func deleteOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	if err := GetAppContext(c).Sales().DeleteOrder(c.Request().Context(), id); err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	logOperation(c, "delete_order", "deleted order "+strconv.FormatInt(id, 10))
	return c.NoContent(http.StatusNoContent)
}

func saveOrderQuote(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload sales.QuoteInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	order, err := GetAppContext(c).Sales().SaveQuote(c.Request().Context(), id, payload)
	if err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	logOperation(c, "save_quote", "saved quote of order "+order.OrderNumber)
	return ok(c, map[string]interface{}{
		"id":        strconv.FormatInt(order.ID, 10),
		"total_net": order.TotalNet,
	})
}

func replaceOrderItems(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload []sales.ItemInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	appCtx := GetAppContext(c)
	ctx := c.Request().Context()
	if err := appCtx.Sales().ReplaceItems(ctx, id, payload); err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	d, err := appCtx.Sales().GetOrder(ctx, id)
	if err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	return ok(c, d)
}

func addOrderItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload sales.ItemInput
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	item, err := GetAppContext(c).Sales().AddItem(c.Request().Context(), id, payload)
	if err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	return created(c, item)
}

func updateOrderItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	itemID, err := parseIDParam(c, "itemId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid item ID", nil)
	}
	var payload sales.ItemPatch
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	item, err := GetAppContext(c).Sales().UpdateItem(c.Request().Context(), id, itemID, payload)
	if err != nil {
		return serviceError(c, err, "ITEM_NOT_FOUND")
	}
	return ok(c, item)
}

func removeOrderItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	itemID, err := parseIDParam(c, "itemId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid item ID", nil)
	}
	if err := GetAppContext(c).Sales().RemoveItem(c.Request().Context(), id, itemID); err != nil {
		return serviceError(c, err, "ITEM_NOT_FOUND")
	}
	return c.NoContent(http.StatusNoContent)
}

func addOrderKit(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	key := strings.ToUpper(strings.TrimSpace(c.Param("key")))
	items, err := GetAppContext(c).Sales().AddKit(c.Request().Context(), id, key)
	if err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	return created(c, items)
}

func orderUnitPrice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	itemID := queryInt64(c, "catalog_item_id")
	if itemID == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "catalog_item_id is required", nil)
	}
	price, err := GetAppContext(c).Sales().UnitPrice(c.Request().Context(), id, itemID)
	if err != nil {
		return serviceError(c, err, "ORDER_NOT_FOUND")
	}
	return ok(c, map[string]interface{}{
		"catalog_item_id": strconv.FormatInt(itemID, 10),
		"unit_price_net":  price,
	})
}

func quoteLookups(c echo.Context) error {
	lookups, err := GetAppContext(c).Pricing().Lookups(c.Request().Context(), queryInt64(c, "province_id"))
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	return ok(c, lookups)
}

// previewQuote prices a selection; auto_charges defaults to the
// quote.autofill_charges setting when the body leaves it out
func previewQuote(c echo.Context) error {
	var payload struct {
		sales.PreviewInput
		AutoCharges *bool `json:"auto_charges"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	appCtx := GetAppContext(c)
	in := payload.PreviewInput
	in.AutoCharges = appCtx.GetSettingsBoolValue("quote", "autofill_charges")
	if payload.AutoCharges != nil {
		in.AutoCharges = *payload.AutoCharges
	}
	b, err := appCtx.Sales().Preview(c.Request().Context(), in)
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	return ok(c, b)
}
