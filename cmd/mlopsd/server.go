package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/YounessBoumeshouli/MLOps/cmd/mlopsd/handlers"
	"github.com/YounessBoumeshouli/MLOps/pkg/buildtime"
	"github.com/YounessBoumeshouli/MLOps/pkg/metrics"
	"github.com/YounessBoumeshouli/MLOps/pkg/serving"
)

var API_ROOT = "/api"

func api(subpath string) string {
	if !strings.HasSuffix(subpath, "/") {
		subpath += "/"
	}
	return fmt.Sprintf("%s/%s", API_ROOT, subpath)
}

// Deps is everything BuildServer wires into routes.
type Deps struct {
	Cache  *serving.Cache
	Gate   *serving.Gate
	Loader *serving.Loader

	// feature vector length requests are validated against.
	FeatureDim int

	// HS256 secret of the admin endpoints. Empty leaves them open.
	AdminSecret []byte

	// nil disables the prediction log.
	PredictionLog handlers.PredictionLog
}

func BuildServer(deps Deps, loglevel string) *echo.Echo {

	e := echo.New()

	switch strings.ToLower(loglevel) {
	case "debug":
		e.Logger.SetLevel(log.DEBUG)
	case "info":
		e.Logger.SetLevel(log.INFO)
	case "warn", "":
		e.Logger.SetLevel(log.WARN)
	case "error":
		e.Logger.SetLevel(log.ERROR)
	case "off":
		e.Logger.SetLevel(log.OFF)
	default:
		e.Logger.SetLevel(log.WARN)
		e.Logger.Warnf("unknown loglevel: %s . fall-backed to warn", loglevel)
	}

	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}

	e.Pre(middleware.AddTrailingSlash())

	e.Use(metrics.Middleware())

	// logging for server-side latency.
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			meth := c.Request().Method
			path := c.Request().URL
			BEGIN := time.Now()
			c.Logger().Infof(
				"< request @[%s] %s %s", BEGIN, meth, path,
			)

			var err error

			defer func() {
				END := time.Now()
				c.Logger().Infof(
					"> response @[%s] status = %d (for request @[%s] %s %s) in %v / error = %+v",
					END, c.Response().Status, BEGIN, meth, path, END.Sub(BEGIN), err,
				)
			}()

			err = next(c)
			return err
		}
	})

	e.GET("/", rootHandler())

	e.POST(api("predict"), handlers.PredictHandler(
		deps.Cache, deps.FeatureDim, deps.PredictionLog,
	))

	e.GET(api("health"), handlers.HealthHandler(deps.Gate))

	e.GET(api("model"), handlers.ModelHandler(deps.Cache))

	e.POST(api("admin/reload"), handlers.ReloadHandler(
		deps.Loader, deps.AdminSecret,
	))

	e.GET("/metrics/", echo.WrapHandler(promhttp.Handler()))

	return e
}

func rootHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"name":    "MLOps model serving API",
			"version": buildtime.VersionString(),
			"status":  "running",
			"endpoints": map[string]string{
				"predict": "/api/predict",
				"health":  "/api/health",
				"model":   "/api/model",
				"reload":  "/api/admin/reload",
				"metrics": "/metrics",
			},
		})
	}
}
