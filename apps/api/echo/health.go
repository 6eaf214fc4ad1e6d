package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type healthApi struct {
	conf    *core.Config
	usrSvc  user.Service
	checkDB func(ctx echo.Context) error
	mail    string
}

func registerHealthAPI(app *echo.Echo, deps ServerDeps) {
	api := healthApi{
		conf:   deps.Conf,
		usrSvc: deps.UserSvc,
		mail:   deps.MailBackendName,
	}
	if deps.CheckDB != nil {
		api.checkDB = func(ctx echo.Context) error { return deps.CheckDB(ctx.Request().Context()) }
	}
	app.GET("/health", api.check)
}

// check reports the system health: build info, database reachability, the
// active mail backend and whether any account exists yet (first-run hint).
func (api *healthApi) check(ctx echo.Context) error {
	report := HealthReport{
		Build:       api.conf.Build,
		Env:         api.conf.Env,
		Database:    "ok",
		MailBackend: api.mail,
	}

	if api.checkDB != nil {
		if err := api.checkDB(ctx); err != nil {
			report.Database = err.Error()
		}
	} else {
		report.Database = "not checked"
	}

	empty, err := api.usrSvc.HasNoUser(ctx.Request().Context())
	if err != nil {
		report.Database = err.Error()
	} else {
		report.UsersPresent = !empty
	}

	code := http.StatusOK
	if report.Database != "ok" && report.Database != "not checked" {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, report)
}

type HealthReport struct {
	Build        string `json:"build"`
	Env          string `json:"env"`
	Database     string `json:"database"`
	MailBackend  string `json:"mail_backend"`
	UsersPresent bool   `json:"users_present"`
}
