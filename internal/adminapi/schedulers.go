package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/liderplast/backoffice/internal/app"
	"github.com/liderplast/backoffice/internal/webserver"
	"github.com/pkg/errors"
)

// registerSchedulerRoutes registers background job routes
func registerSchedulerRoutes() {
	webserver.ApiGET("/jobs", ListJobs)
	webserver.ApiPOST("/jobs/:name/run", TriggerJob, webserver.RequireRole(webserver.RoleAdmin))
}

// ListJobs lists the background jobs with their next run
func ListJobs(c echo.Context) error {
	return ok(c, GetAppContext(c).Jobs())
}

// TriggerJob runs the job immediately
func TriggerJob(c echo.Context) error {
	name := c.Param("name")
	if err := GetAppContext(c).RunJobNow(name); err != nil {
		if errors.Is(err, app.ErrUnknownJob) {
			return fail(c, http.StatusNotFound, "JOB_NOT_FOUND", "Unknown job", name)
		}
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", "Failed to run job", err.Error())
	}
	logOperation(c, "run_job", name)
	return c.NoContent(http.StatusAccepted)
}
