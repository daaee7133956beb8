package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/YounessBoumeshouli/MLOps/pkg/admintoken"
	bindserving "github.com/YounessBoumeshouli/MLOps/pkg/api-types-binding/serving"
	apierr "github.com/YounessBoumeshouli/MLOps/pkg/api/types/errors"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
	"github.com/YounessBoumeshouli/MLOps/pkg/serving"
)

// ReloadHandler triggers a model reload and answers with the version
// it resulted in. "reloaded" is false when Production had not moved
// and the running handle was kept.
//
// With a non-empty secret the endpoint requires an HS256 bearer token
// granting the admin scope. An empty secret leaves it open; do that in
// development only.
//
// Failed reloads never unload the served model: the previous handle
// stays, and the failure maps onto the response status (no Production
// version: 409, registry unreachable: 502, else 500).
func ReloadHandler(loader *serving.Loader, secret []byte) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(secret) != 0 {
			if err := authorize(c.Request().Header.Get("Authorization"), secret); err != nil {
				return err
			}
		}

		// reload outcomes are already counted on model_reloads_total
		// by the loader; here they only map onto a status code.
		h, reloaded, err := loader.Reload(c.Request().Context())
		switch {
		case err == nil:
			return c.JSON(http.StatusOK, bindserving.ComposeReloadResult(h, reloaded))
		case errors.Is(err, kreg.ErrNoProductionVersion):
			return apierr.Conflict(
				"no version is staged Production",
				apierr.WithAdvice("promote a model version, then reload again."),
				apierr.WithError(err),
			)
		case errors.Is(err, kreg.ErrUnavailable):
			return apierr.BadGateway("retry when the model registry is reachable again.", err)
		default:
			return apierr.InternalServerError(err)
		}
	}
}

func authorize(header string, secret []byte) error {
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return apierr.Unauthorized("send an admin bearer token", nil)
	}

	if _, err := admintoken.Verify(secret, token, admintoken.ScopeAdmin); err != nil {
		if errors.Is(err, admintoken.ErrWrongScope) {
			return apierr.Forbidden("the token does not grant the admin scope")
		}
		return apierr.Unauthorized("the admin token is invalid or expired", err)
	}
	return nil
}
