package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"github.com/liderplast/backoffice/internal/fleet"
	"github.com/liderplast/backoffice/internal/webserver"
)

type tripCreatePayload struct {
	fleet.TripInput
	OrderIDs []string `json:"order_ids"`
}

type tripStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=PLANNED IN_ROUTE DELIVERED CANCELLED"`
}

type tripOrderPayload struct {
	OrderID int64 `json:"order_id,string" validate:"required"`
}

// registerTripRoutes registers the fleet board routes
func registerTripRoutes() {
	webserver.ApiGET("/fletes", listTrips)
	webserver.ApiGET("/fletes/:id", getTrip)
	webserver.ApiPOST("/fletes", createTrip)
	webserver.ApiPUT("/fletes/:id", updateTrip)
	webserver.ApiPUT("/fletes/:id/status", updateTripStatus)
	webserver.ApiDELETE("/fletes/:id", deleteTrip)
	webserver.ApiPOST("/fletes/:id/orders", assignTripOrder)
	webserver.ApiDELETE("/fletes/:id/orders/:orderId", unassignTripOrder)
}

// parseDay parses a query date in local time; empty yields the zero time
func parseDay(c echo.Context, name string) (time.Time, error) {
	v := strings.TrimSpace(c.QueryParam(name))
	if v == "" {
		return time.Time{}, nil
	}
	return dateparse.ParseIn(v, time.Local)
}

func listTrips(c echo.Context) error {
	page, pageSize := parsePagination(c)
	from, err := parseDay(c, "from")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid from date", err.Error())
	}
	to, err := parseDay(c, "to")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid to date", err.Error())
	}
	filter := fleet.TripFilter{
		Status:     strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))),
		ProvinceID: queryInt64(c, "province_id"),
		From:       from,
		To:         to,
		Page:       page,
		PageSize:   pageSize,
	}
	return cachedView(c, "TRIP_NOT_FOUND", func() (Response, error) {
		rows, total, err := GetAppContext(c).Fleet().List(c.Request().Context(), filter)
		if err != nil {
			return Response{}, err
		}
		return Response{Data: rows, Meta: &Meta{Total: total, Page: page, PageSize: pageSize}}, nil
	})
}

func getTrip(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid trip ID", nil)
	}
	return cachedView(c, "TRIP_NOT_FOUND", func() (Response, error) {
		d, err := GetAppContext(c).Fleet().Detail(c.Request().Context(), id)
		if err != nil {
			return Response{}, err
		}
		return Response{Data: d}, nil
	})
}

func createTrip(c echo.Context) error {
	var payload tripCreatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	orderIDs := make([]int64, 0, len(payload.OrderIDs))
	for _, s := range payload.OrderIDs {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || id <= 0 {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "order_ids must be order ids", s)
		}
		orderIDs = append(orderIDs, id)
	}
	trip, err := GetAppContext(c).Fleet().CreateTrip(c.Request().Context(), payload.TripInput, orderIDs)
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	logOperation(c, "create_trip", "created trip "+trip.TripCode)
	return created(c, trip)
}

func updateTrip(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid trip ID", nil)
	}
	var payload fleet.TripPatch
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	trip, err := GetAppContext(c).Fleet().UpdateTrip(c.Request().Context(), id, payload)
	if err != nil {
		return serviceError(c, err, "TRIP_NOT_FOUND")
	}
	logOperation(c, "update_trip", "updated trip "+trip.TripCode)
	return ok(c, trip)
}

func updateTripStatus(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid trip ID", nil)
	}
	var payload tripStatusPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return err
	}
	trip, err := GetAppContext(c).Fleet().UpdateStatus(c.Request().Context(), id, payload.Status)
	if err != nil {
		return serviceError(c, err, "TRIP_NOT_FOUND")
	}
	logOperation(c, "trip_status", trip.TripCode+" -> "+trip.Status)
	return ok(c, trip)
}

func deleteTrip(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid trip ID", nil)
	}
	if err := GetAppContext(c).Fleet().DeleteTrip(c.Request().Context(), id); err != nil {
		return serviceError(c, err, "TRIP_NOT_FOUND")
	}
	logOperation(c, "delete_trip", "deleted trip "+strconv.FormatInt(id, 10))
	return c.NoContent(http.StatusNoContent)
}

func assignTripOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid trip ID", nil)
	}
	var payload tripOrderPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return err
	}
	if err := GetAppContext(c).Fleet().Assign(c.Request().Context(), payload.OrderID, id); err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	return ok(c, map[string]string{
		"trip_id":  strconv.FormatInt(id, 10),
		"order_id": strconv.FormatInt(payload.OrderID, 10),
	})
}

func unassignTripOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid trip ID", nil)
	}
	orderID, err := parseIDParam(c, "orderId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	if err := GetAppContext(c).Fleet().Unassign(c.Request().Context(), orderID, id); err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	return c.NoContent(http.StatusNoContent)
}
