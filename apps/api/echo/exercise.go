package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/content"
	"github.com/trezcool/darasa/core/exercise"
	"github.com/trezcool/darasa/core/user"
)

type exerciseApi struct {
	svc        *exercise.Service
	contentSvc *content.Service
	usrSvc     user.Service
	logger     core.Logger
}

func registerExerciseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := exerciseApi{
		svc:        deps.ExerciseSvc,
		contentSvc: deps.ContentSvc,
		usrSvc:     deps.UserSvc,
		logger:     deps.Logger,
	}

	eg := g.Group("/exercises", jwt)
	eg.GET("/:id/submissions", api.listSubmissions)
	eg.POST("/:id/clear-passwords", api.clearPasswords)

	sg := g.Group("/submissions", jwt)
	sg.DELETE("/:id", api.deleteSubmission)
}

// Handlers

func (api *exerciseApi) listSubmissions(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	exo, err := api.resolveExercise(ctx)
	if err != nil {
		return err
	}
	folder, err := api.svc.Folder(reqCtx, exo)
	if err != nil {
		return errors.Wrapf(err, "resolving folder of exercise %d", exo.ID)
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ok, err := api.contentSvc.CanRead(reqCtx, usr, folder)
	if err != nil {
		return errors.Wrap(err, "checking read right")
	}
	if !ok {
		return errHttpForbidden
	}

	subs, counts, err := api.svc.Submissions(reqCtx, exo)
	if err != nil {
		return errors.Wrap(err, "loading submissions")
	}

	// re-sorting happens in memory only; no second query
	ordering := new(Ordering)
	ordering.Bind(ctx)
	exercise.SortSubmissions(subs, ordering.Orderings)

	// a degraded breadcrumb is served as-is; the fault is already logged
	breadcrumb, err := api.contentSvc.Breadcrumb(reqCtx, folder)
	if err != nil && errors.Cause(err) != content.ErrUnownedPersonalFolder {
		return errors.Wrap(err, "building breadcrumb")
	}

	if subs == nil {
		subs = []exercise.Submission{}
	}
	return ctx.JSON(http.StatusOK, SubmissionListResponse{
		Breadcrumb:  breadcrumb,
		Counts:      counts,
		Submissions: subs,
	})
}

func (api *exerciseApi) deleteSubmission(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(errors.New("invalid submission id"))
	}
	sub, err := api.svc.GetSubmission(reqCtx, id)
	if err != nil {
		if errors.Cause(err) == exercise.ErrNotFound {
			return core.NewValidationError(errors.New("invalid submission id"))
		}
		return errors.Wrapf(err, "resolving submission %d", id)
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// the service re-checks the Grade right immediately before deleting
	if err := api.svc.DeleteSubmission(reqCtx, usr, sub); err != nil {
		if errors.Cause(err) == content.ErrPermissionDenied {
			api.logger.Warn(fmt.Sprintf("denied submission delete attempt on %d", sub.ID), usr)
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// clearPasswords drops the personal passwords of the given users, forcing them
// through the reset flow; it requires the Manage right on the exercise folder.
func (api *exerciseApi) clearPasswords(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	exo, err := api.resolveExercise(ctx)
	if err != nil {
		return err
	}
	folder, err := api.svc.Folder(reqCtx, exo)
	if err != nil {
		return errors.Wrapf(err, "resolving folder of exercise %d", exo.ID)
	}

	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ok, err := api.contentSvc.CanManage(reqCtx, usr, folder)
	if err != nil {
		return errors.Wrap(err, "checking manage right")
	}
	if !ok {
		return errHttpForbidden
	}

	var data ClearPasswordsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ClearPasswordsRequest")
	}
	if err := api.usrSvc.ClearPersonalPasswords(reqCtx, data.UserIDs...); err != nil {
		return errors.Wrap(err, "clearing passwords")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *exerciseApi) resolveExercise(ctx echo.Context) (exercise.Exercise, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return exercise.Exercise{}, core.NewValidationError(errors.New("invalid exercise id"))
	}
	exo, err := api.svc.GetExercise(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == exercise.ErrNotFound {
			return exercise.Exercise{}, core.NewValidationError(errors.New("invalid exercise id"))
		}
		return exercise.Exercise{}, errors.Wrapf(err, "resolving exercise %d", id)
	}
	return exo, nil
}

type (
	SubmissionListResponse struct {
		Breadcrumb  string                `json:"breadcrumb"`
		Counts      exercise.Counts       `json:"counts"`
		Submissions []exercise.Submission `json:"submissions"`
	}

	ClearPasswordsRequest struct {
		UserIDs []int `json:"user_ids"`
	}
)
