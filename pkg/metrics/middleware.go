package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Middleware records request counts and latency per route. The
// endpoint label is the registered route pattern, so cardinality stays
// bounded whatever clients put in the URL.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			begin := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				// the error handler has not run yet; resolve the
				// status the same way it will.
				status = http.StatusInternalServerError
				he := new(echo.HTTPError)
				if errors.As(err, &he) {
					status = he.Code
				}
			}

			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}

			RequestsTotal.WithLabelValues(
				c.Request().Method, endpoint, strconv.Itoa(status),
			).Inc()
			RequestDuration.WithLabelValues(
				c.Request().Method, endpoint,
			).Observe(time.Since(begin).Seconds())

			return err
		}
	}
}
