package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/content"
	"github.com/trezcool/darasa/core/exercise"
	"github.com/trezcool/darasa/core/user"
)

type resourceApi struct {
	svc        *exercise.Service
	contentSvc *content.Service
	usrSvc     user.Service
	logger     core.Logger
}

func registerResourceAPI(app *echo.Echo, auth *jwtAuth, deps ServerDeps) {
	api := resourceApi{
		svc:        deps.ExerciseSvc,
		contentSvc: deps.ContentSvc,
		usrSvc:     deps.UserSvc,
		logger:     deps.Logger,
	}

	// unauthenticated access to a resource is 403, not 401
	jwtConf := auth.config
	jwtConf.ErrorHandler = func(error) error { return errHttpForbidden }
	app.GET("/resource", api.download, middleware.JWTWithConfig(jwtConf))
}

// download streams a stored resource binary. The disposition type defaults to
// inline; "attachment" is accepted case-insensitively. Write errors while the
// body is being streamed are logged, never turned into a second response.
func (api *resourceApi) download(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	raw := ctx.QueryParam("resource")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing or invalid resource id")
	}

	res, rc, err := api.svc.OpenResource(reqCtx, id)
	if err != nil {
		if errors.Cause(err) == exercise.ErrResourceNotFound {
			return errHttpNotFound
		}
		return errors.Wrapf(err, "opening resource %d", id)
	}
	defer rc.Close()

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	folder, err := api.contentSvc.GetFolder(reqCtx, res.FolderID)
	if err != nil {
		return errors.Wrapf(err, "resolving folder of resource %d", res.ID)
	}
	ok, err := api.contentSvc.CanRead(reqCtx, usr, folder)
	if err != nil {
		return errors.Wrap(err, "checking read right")
	}
	if !ok {
		return errHttpForbidden
	}

	dispo := "inline"
	if strings.EqualFold(ctx.QueryParam("disposition-type"), "attachment") {
		dispo = "attachment"
	}

	header := ctx.Response().Header()
	header.Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`%s; filename="%s"`, dispo, exercise.EncodeDispositionFilename(res.Filename)))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(res.Size, 10))

	if err := ctx.Stream(http.StatusOK, res.ContentType, rc); err != nil {
		// the response is already underway; a late write fault cannot be reported
		api.logger.Error(fmt.Sprintf("streaming resource %d: %v", res.ID, err), err)
	}
	return nil
}
