package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type courseApi struct {
	svc    *course.Service
	usrSvc user.Service
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{svc: deps.CourseSvc, usrSvc: deps.UserSvc}

	cg := g.Group("/courses", jwt)
	cg.GET("/participations", api.myParticipations)
	cg.GET("/offers/:id/test-access", api.offerTestAccess)
}

// myParticipations lists the caller's course participations. The list is
// loaded once; status filtering and re-sorting happen in memory.
func (api *courseApi) myParticipations(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	parts, err := api.svc.MyParticipations(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "loading participations")
	}

	parts = course.FilterParticipationsByStatus(parts, ctx.QueryParam("status"))

	ordering := new(Ordering)
	ordering.Bind(ctx)
	course.SortParticipations(parts, ordering.Orderings)

	if parts == nil {
		parts = []course.Participation{}
	}
	return ctx.JSON(http.StatusOK, parts)
}

// offerTestAccess reports whether the caller may run a course offer in test
// mode. Test mode requires a read right on the offer's folder; clients use
// this to show or hide the try-out action.
func (api *courseApi) offerTestAccess(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(errors.New("invalid course offer id"))
	}
	offer, err := api.svc.GetOffer(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return core.NewValidationError(errors.New("invalid course offer id"))
		}
		return errors.Wrapf(err, "resolving course offer %d", id)
	}

	allowed, err := api.svc.IsAllowedToTestCourse(ctx.Request().Context(), usr, offer)
	if err != nil {
		return errors.Wrap(err, "checking test access")
	}
	return ctx.JSON(http.StatusOK, TestAccessResponse{Allowed: allowed})
}

type TestAccessResponse struct {
	Allowed bool `json:"allowed"`
}
