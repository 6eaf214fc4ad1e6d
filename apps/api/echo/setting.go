package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/setting"
)

type settingApi struct {
	svc *setting.Service
}

func registerSettingAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := settingApi{svc: deps.SettingSvc}

	sg := g.Group("/settings", jwt)
	sg.GET("/client-urls", api.clientURLs)
	sg.PUT("/:key", api.set, adminMiddleware())
}

// clientURLs reports the configured client-side URLs; unconfigured keys carry
// a remediation hint instead of a URL.
func (api *settingApi) clientURLs(ctx echo.Context) error {
	urls, err := api.svc.ClientURLs(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "resolving client URLs")
	}
	return ctx.JSON(http.StatusOK, urls)
}

func (api *settingApi) set(ctx echo.Context) error {
	key := ctx.Param("key")
	var data SettingValueRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SettingValueRequest")
	}
	if data.Value == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "value", Error: "value is required"})
	}

	if err := api.svc.Set(ctx.Request().Context(), key, data.Value); err != nil {
		return errors.Wrapf(err, "setting %q", key)
	}
	// writes are rare; invalidate so subsequent reads see the new value
	api.svc.ClearCache()

	return ctx.JSON(http.StatusOK, echo.Map{"key": key, "value": data.Value})
}

type SettingValueRequest struct {
	Value string `json:"value"`
}
