package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/content"
	"github.com/trezcool/darasa/core/user"
)

type contentApi struct {
	svc    *content.Service
	usrSvc user.Service
	logger core.Logger
}

func registerContentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := contentApi{
		svc:    deps.ContentSvc,
		usrSvc: deps.UserSvc,
		logger: deps.Logger,
	}

	fg := g.Group("/folders", jwt)
	fg.GET("/:id/rights", api.getRights)
	fg.PUT("/:id/rights", api.applyRights)
}

// getRights serves the rights dialog snapshot: every subject's own entry on
// the folder plus the right inherited from above, with the folder breadcrumb.
// Edits are buffered by the client and applied in one PUT.
func (api *contentApi) getRights(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	folder, _, err := api.resolveManagedFolder(ctx)
	if err != nil {
		return err
	}

	data, err := api.svc.RightsSnapshot(reqCtx, folder)
	if err != nil {
		return errors.Wrapf(err, "loading rights of folder %d", folder.ID)
	}
	breadcrumb, err := api.svc.Breadcrumb(reqCtx, folder)
	if err != nil && errors.Cause(err) != content.ErrUnownedPersonalFolder {
		return errors.Wrap(err, "building breadcrumb")
	}

	if data == nil {
		data = []content.UserRightsData{}
	}
	return ctx.JSON(http.StatusOK, RightsResponse{Breadcrumb: breadcrumb, Rights: data})
}

// applyRights applies a batch of buffered edits atomically. The Manage right
// is re-checked inside the service immediately before saving, independent of
// the check made when the dialog was opened.
func (api *contentApi) applyRights(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	folder, usr, err := api.resolveFolder(ctx)
	if err != nil {
		return err
	}

	var data RightsEditRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RightsEditRequest")
	}

	if err := api.svc.ApplyRightsEdits(reqCtx, usr, folder, data.Edits); err != nil {
		return err
	}

	// return the refreshed snapshot so the dialog can re-render
	snapshot, err := api.svc.RightsSnapshot(reqCtx, folder)
	if err != nil {
		return errors.Wrapf(err, "reloading rights of folder %d", folder.ID)
	}
	return ctx.JSON(http.StatusOK, RightsResponse{Rights: snapshot})
}

func (api *contentApi) resolveFolder(ctx echo.Context) (content.Folder, user.User, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return content.Folder{}, user.User{}, core.NewValidationError(errors.New("invalid folder id"))
	}
	folder, err := api.svc.GetFolder(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == content.ErrNotFound {
			return content.Folder{}, user.User{}, core.NewValidationError(errors.New("invalid folder id"))
		}
		return content.Folder{}, user.User{}, errors.Wrapf(err, "resolving folder %d", id)
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return content.Folder{}, user.User{}, errors.Wrap(err, "getting context user")
	}
	return folder, usr, nil
}

func (api *contentApi) resolveManagedFolder(ctx echo.Context) (content.Folder, user.User, error) {
	folder, usr, err := api.resolveFolder(ctx)
	if err != nil {
		return content.Folder{}, user.User{}, err
	}
	ok, err := api.svc.CanManage(ctx.Request().Context(), usr, folder)
	if err != nil {
		return content.Folder{}, user.User{}, errors.Wrap(err, "checking manage right")
	}
	if !ok {
		return content.Folder{}, user.User{}, errHttpForbidden
	}
	return folder, usr, nil
}

type (
	RightsResponse struct {
		Breadcrumb string                   `json:"breadcrumb,omitempty"`
		Rights     []content.UserRightsData `json:"rights"`
	}

	RightsEditRequest struct {
		Edits []content.RightsEdit `json:"edits"`
	}
)
