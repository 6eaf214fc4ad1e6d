package echoapi

import (
	"net/http"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
)

// defaultLandingPath is returned when no valid deep-link target was supplied.
const defaultLandingPath = "/dashboard"

const (
	msgPasswordResetSent = "An email with password reset instructions is on its way."
	msgUnknownAccount    = "No account matches the supplied name."
	msgExternalAccount   = "This account's password is managed externally and cannot be reset here."
	msgMailNotSent       = "The email could not be sent. Please try again later."
	msgPasswordWasReset  = "Password has been reset with the new password."
	msgRegistrationOff   = "Self-registration is disabled."
)

type userApi struct {
	svc        user.Service
	settingSvc *setting.Service
	auth       *jwtAuth
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, deps ServerDeps) {
	api := userApi{
		svc:        deps.UserSvc,
		settingSvc: deps.SettingSvc,
		auth:       auth,
		validate:   deps.Validate,
		translator: deps.Translator,
		logger:     deps.Logger,
	}

	ug := g.Group("/users")

	// un-authed endpoints
	// TODO: rate limit `/password-reset` & `/password-reset-confirm`
	ug.POST("/login", api.login)
	ug.POST("/register", api.register)
	ug.POST("/password-reset", api.resetPassword)
	ug.POST("/password-reset-confirm", api.confirmPasswordReset)
	g.POST("/setup", api.setup)

	// authed endpoints
	ag := ug.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	// the deep-link target is captured before authentication and echoed back
	// verbatim on success; only same-site paths are honored
	redirect := cleanNextPath(data.Next)
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.auth.generateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Redirect: redirect})
}

// cleanNextPath validates a deep-link target: it must be a same-site absolute
// path ("/..." but not "//..." which is scheme-relative). Anything else falls
// back to the default landing page.
func cleanNextPath(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return defaultLandingPath
}

func (api *userApi) register(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	// self-registration is enabled iff the email pattern setting exists
	pattern, ok, err := api.settingSvc.GetSingleValue(reqCtx, setting.KeyRegistrationEmailPattern)
	if err != nil {
		return errors.Wrap(err, "resolving registration email pattern")
	}
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, msgRegistrationOff)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errors.Wrapf(err, "compiling registration email pattern %q", pattern)
	}

	var data user.RegisterUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterUser")
	}
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}
	if !re.MatchString(data.Email) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "email", Error: "this email address is not eligible for registration",
		})
	}

	usr, err := api.svc.Register(reqCtx, data)
	if err != nil {
		if errors.Cause(err) == user.ErrMailNotSent {
			// the account exists; only the welcome mail failed
			return ctx.JSON(http.StatusCreated, RegisterResponse{User: usr, Warning: msgMailNotSent})
		}
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, RegisterResponse{User: usr})
}

func (api *userApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// all outcomes stay on the page (200) with a distinct message
	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Username)
	switch errors.Cause(err) {
	case nil:
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: msgPasswordResetSent, Redirect: "/login"})
	case user.ErrNotFound:
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: msgUnknownAccount})
	case user.ErrExternalUser:
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: msgExternalAccount})
	case user.ErrMailNotSent:
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: msgMailNotSent})
	default:
		return errors.Wrap(err, "requesting password reset")
	}
}

func (api *userApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		if errors.Cause(err) == user.ErrExternalUser {
			return echo.NewHTTPError(http.StatusForbidden, msgExternalAccount)
		}
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: msgPasswordWasReset, Redirect: "/login"})
}

// setup creates the initial admin account. It is open exactly while no account
// exists yet; afterwards it is refused.
func (api *userApi) setup(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	empty, err := api.svc.HasNoUser(reqCtx)
	if err != nil {
		return errors.Wrap(err, "checking for existing users")
	}
	if !empty {
		return errHttpForbidden
	}

	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	data.Roles = []string{user.RoleAdminOwner}
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating initial admin")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
		// Next is the optional deep-link target to return to after login.
		Next string `json:"next" query:"next"`
	}

	LoginResponse struct {
		Token    string `json:"token"`
		Redirect string `json:"redirect,omitempty"`
	}

	PasswordResetRequest struct {
		// Username accepts a login name or an email address.
		Username string `json:"username" validate:"required"`
	}

	RegisterResponse struct {
		User    user.User `json:"user"`
		Warning string    `json:"warning,omitempty"`
	}

	SuccessResponse struct {
		Success  string `json:"success"`
		Redirect string `json:"redirect,omitempty"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Username = core.CleanString(pr.Username, true /* lower */)
	return validate.Struct(pr)
}
