package adminapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/liderplast/backoffice/internal/app"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/fleet"
	"github.com/liderplast/backoffice/internal/pricing"
	"github.com/liderplast/backoffice/internal/quote"
	"github.com/liderplast/backoffice/internal/webserver"
	"github.com/liderplast/backoffice/pkg/common"
	"github.com/liderplast/backoffice/pkg/validate"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Response the success envelope
type Response struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta pagination of a list response
type Meta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{Data: data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{Data: data})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, Response{
		Data: data,
		Meta: &Meta{Total: total, Page: page, PageSize: pageSize},
	})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, webserver.ErrorBody{Error: code, Message: message, Details: details})
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.AppContextKey).(app.AppContext)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

// parsePagination reads page and pageSize (or perPage), 20 rows by default
func parsePagination(c echo.Context) (int, int) {
	return parsePaginationDefault(c, 20)
}

func parsePaginationDefault(c echo.Context, defaultSize int) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if size == 0 {
		size, _ = strconv.Atoi(c.QueryParam("perPage"))
	}
	if size < 1 {
		size = defaultSize
	}
	if size > 100 {
		size = 100
	}
	return page, size
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid %s", name)
	}
	return id, nil
}

func queryInt64(c echo.Context, name string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(c.QueryParam(name)), 10, 64)
	return v
}

// likeFilter matches any of the columns case-insensitively
func likeFilter(db *gorm.DB, q string, columns ...string) *gorm.DB {
	q = strings.TrimSpace(q)
	if q == "" || len(columns) == 0 {
		return db
	}
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	pg := strings.EqualFold(db.Name(), "postgres")
	for _, col := range columns {
		if pg {
			conds = append(conds, col+" ILIKE ?")
			args = append(args, "%"+q+"%")
		} else {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, "%"+strings.ToLower(q)+"%")
		}
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

func handleValidationError(c echo.Context, err error) error {
	var fe *validate.FieldError
	if errors.As(err, &fe) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", fe.Message, fe)
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
}

// bindAndValidate binds the body into payload and runs its validate tags
func bindAndValidate(c echo.Context, payload interface{}) error {
	if err := c.Bind(payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	if err := c.Validate(payload); err != nil {
		return handleValidationError(c, err)
	}
	return nil
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// serviceError maps service errors onto the error envelope; the message is
// the first failing rule, the business conflict or the data store error
func serviceError(c echo.Context, err error, notFound string) error {
	var fe *validate.FieldError
	var conflict *fleet.AssignmentConflict
	switch {
	case errors.As(err, &fe):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", fe.Message, fe)
	case errors.As(err, &conflict):
		return fail(c, http.StatusConflict, "ASSIGNMENT_CONFLICT", conflict.Error(), map[string]string{
			"trip_id":   strconv.FormatInt(conflict.TripID, 10),
			"trip_code": conflict.TripCode,
			"status":    conflict.Status,
		})
	case errors.Is(err, fleet.ErrCapacityFull):
		return fail(c, http.StatusConflict, "CAPACITY_FULL", err.Error(), nil)
	case errors.Is(err, fleet.ErrTripNotActive):
		return fail(c, http.StatusConflict, "TRIP_NOT_ACTIVE", err.Error(), nil)
	case errors.Is(err, fleet.ErrInvalidTransition):
		return fail(c, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, quote.ErrUnknownKit):
		return fail(c, http.StatusNotFound, "KIT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, pricing.ErrNegativePrice):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fail(c, http.StatusNotFound, notFound, err.Error(), nil)
	case isDuplicate(err):
		return fail(c, http.StatusConflict, "DUPLICATE", err.Error(), nil)
	}
	zap.L().Error("request failed",
		zap.String("uri", c.Request().RequestURI),
		zap.Error(err),
		zap.String("namespace", "adminapi"))
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", err.Error(), nil)
}

// operatorName the username of the verified token
func operatorName(c echo.Context) string {
	if op := webserver.CurrentOperator(c); op != nil {
		return op.Username
	}
	return ""
}

// logOperation appends a row to the operation log; failures only get logged
func logOperation(c echo.Context, action, desc string) {
	entry := domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}
	if op := webserver.CurrentOperator(c); op != nil {
		entry.OprName = op.Username
		entry.OprRole = op.Role
	}
	if err := GetDB(c).Create(&entry).Error; err != nil {
		zap.L().Warn("operation log write failed", zap.String("action", action), zap.Error(err))
	}
}

// viewKey the cache key of a read view: api path plus raw query
func viewKey(c echo.Context) string {
	key := strings.TrimPrefix(c.Request().URL.Path, "/api/v1")
	if q := c.Request().URL.RawQuery; q != "" {
		key += "?" + q
	}
	return key
}

// cachedView serves the response from the view cache, building and storing
// it on a miss. Errors from build are never cached, neither is a view whose
// rows were invalidated while it was being built.
func cachedView(c echo.Context, notFound string, build func() (Response, error)) error {
	views := GetAppContext(c).Views()
	key := viewKey(c)
	if body, hit := views.Get(key); hit {
		c.Response().Header().Set("X-View-Cache", "HIT")
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, body)
	}
	gen := views.Generation()
	resp, err := build()
	if err != nil {
		return serviceError(c, err, notFound)
	}
	body, err := webserver.Marshal(resp)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "ENCODE_ERROR", err.Error(), nil)
	}
	views.SetIfCurrent(key, body, gen)
	c.Response().Header().Set("X-View-Cache", "MISS")
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, body)
}
