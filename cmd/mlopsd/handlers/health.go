package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	bindserving "github.com/YounessBoumeshouli/MLOps/pkg/api-types-binding/serving"
	"github.com/YounessBoumeshouli/MLOps/pkg/serving"
)

// HealthHandler reports readiness from the health gate.
//
// A loaded model answers 200 even while the registry is unreachable;
// the report then says "degraded". Only an empty cache answers 503.
func HealthHandler(gate *serving.Gate) echo.HandlerFunc {
	return func(c echo.Context) error {
		report := bindserving.ComposeHealth(gate.Report())

		status := http.StatusOK
		if !report.Ready() {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, report)
	}
}
