package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/liderplast/backoffice/internal/app"
	"github.com/liderplast/backoffice/internal/domain"
	"github.com/liderplast/backoffice/internal/finance"
	"github.com/liderplast/backoffice/internal/webserver"
	"github.com/pkg/errors"
)

// settingView a runtime setting with its current value
type settingView struct {
	app.ConfigSchema
	Value string `json:"value"`
}

// registerSystemRoutes registers dashboard, settings and operation log routes
func registerSystemRoutes() {
	webserver.ApiGET("/dashboard", getDashboard)
	webserver.ApiGET("/settings", listSettings)
	webserver.ApiPUT("/settings", saveSettings, webserver.RequireRole(webserver.RoleAdmin))
	webserver.ApiGET("/oprlogs", listOprLogs)
}

func getDashboard(c echo.Context) error {
	from, err := parseDay(c, "from")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid from date", err.Error())
	}
	to, err := parseDay(c, "to")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Invalid to date", err.Error())
	}
	if !to.IsZero() {
		// to is inclusive for callers
		to = to.AddDate(0, 0, 1)
	}
	d, err := GetAppContext(c).Finance().Dashboard(c.Request().Context(), finance.Period{From: from, To: to})
	if err != nil {
		return serviceError(c, err, "NOT_FOUND")
	}
	return ok(c, d)
}

func listSettings(c echo.Context) error {
	appCtx := GetAppContext(c)
	schemas := appCtx.ConfigMgr().Schemas()
	out := make([]settingView, 0, len(schemas))
	for _, s := range schemas {
		parts := strings.SplitN(s.Key, ".", 2)
		if len(parts) != 2 {
			continue
		}
		out = append(out, settingView{ConfigSchema: s, Value: appCtx.GetSettingsStringValue(parts[0], parts[1])})
	}
	return ok(c, out)
}

func saveSettings(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
	}
	if len(payload) == 0 {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "No settings provided", nil)
	}
	if err := GetAppContext(c).SaveSettings(payload); err != nil {
		if errors.Is(err, app.ErrUnknownSetting) {
			return fail(c, http.StatusBadRequest, "UNKNOWN_SETTING", err.Error(), nil)
		}
		return fail(c, http.StatusBadRequest, "INVALID_SETTING", err.Error(), nil)
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	logOperation(c, "save_settings", strings.Join(keys, ","))
	return listSettings(c)
}

func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.SysOprLog{})
	db = likeFilter(db, c.QueryParam("q"), "opr_name", "opt_action", "opt_desc")
	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		db = db.Where("opt_action = ?", action)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}
	var logs []domain.SysOprLog
	if err := db.Order("opt_time DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}
	return paged(c, logs, total, page, pageSize)
}
