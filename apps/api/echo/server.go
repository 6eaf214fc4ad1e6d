package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/content"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/exercise"
	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
)

type (
	ServerDeps struct {
		Conf   *core.Config
		Logger core.Logger

		UserSvc     user.Service
		SettingSvc  *setting.Service
		ContentSvc  *content.Service
		CourseSvc   *course.Service
		ExerciseSvc *exercise.Service

		Validate   *validator.Validate
		Translator ut.Translator

		// CheckDB pings the database for the health report; nil skips the check.
		CheckDB         func(ctx context.Context) error
		MailBackendName string

		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *jwtAuth
		errChan  chan error
		shutChan chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		auth:     newJWTAuth(deps.Conf),
		errChan:  make(chan error, 1),
		shutChan: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	registerHealthAPI(s.app, s.deps)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.auth.config)

	registerUserAPI(v1, jwt, s.auth, s.deps)
	registerSettingAPI(v1, jwt, s.deps)
	registerCourseAPI(v1, jwt, s.deps)
	registerExerciseAPI(v1, jwt, s.deps)
	registerContentAPI(v1, jwt, s.deps)

	// the resource endpoint lives outside /v1; clients link to it directly
	registerResourceAPI(s.app, s.auth, s.deps)
}

func (s *server) Start() {
	signal.Notify(s.shutChan, os.Interrupt, syscall.SIGTERM)
	s.errChan <- s.app.Start(s.deps.Conf.Server.Address())
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errChan
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutChan
}

// signalShutdown is handed to the HTTP error handler so shutdown errors can
// stop the app gracefully.
func (s *server) signalShutdown() {
	s.shutChan <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
