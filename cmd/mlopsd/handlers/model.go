package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	bindserving "github.com/YounessBoumeshouli/MLOps/pkg/api-types-binding/serving"
	apierr "github.com/YounessBoumeshouli/MLOps/pkg/api/types/errors"
	"github.com/YounessBoumeshouli/MLOps/pkg/serving"
)

// ModelHandler describes the model version currently served.
func ModelHandler(cache *serving.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		h, ok := cache.Get()
		if !ok {
			return apierr.ServiceUnavailable("no model version is loaded yet. retry later.", nil)
		}
		return c.JSON(http.StatusOK, bindserving.ComposeModelDescription(h))
	}
}
