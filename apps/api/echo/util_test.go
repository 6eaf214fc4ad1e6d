package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/content"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/exercise"
	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/blob"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server Server
	auth   *jwtAuth
	conf   *core.Config

	usrRepo     *inmemdb.UserRepository
	settingRepo *inmemdb.SettingRepository
	contentRepo *inmemdb.ContentRepository
	courseRepo  *inmemdb.CourseRepository
	exoRepo     *inmemdb.ExerciseRepository
	blobs       *blob.MemStore

	usrSvc     user.Service
	settingSvc *setting.Service
	exoSvc     *exercise.Service
}

// setup builds a server over the in-memory repositories. failMail makes every
// mail dispatch fail, for exercising the partial-success paths.
func setup(t *testing.T, failMail ...bool) *testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:                  true,
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   "Darasa",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:8080",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))

	app := &testApp{
		conf:        conf,
		auth:        newJWTAuth(conf),
		usrRepo:     inmemdb.NewUserRepository(),
		settingRepo: inmemdb.NewSettingRepository(),
		contentRepo: inmemdb.NewContentRepository(),
		courseRepo:  inmemdb.NewCourseRepository(),
		exoRepo:     inmemdb.NewExerciseRepository(),
		blobs:       blob.NewMemStore(),
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf, failMail...)
	app.usrSvc = user.NewService(app.usrRepo, mailSvc, conf, logger)
	app.settingSvc = setting.NewService(app.settingRepo)
	contentSvc := content.NewService(app.contentRepo, app.usrSvc, logger)
	courseSvc := course.NewService(app.courseRepo, contentSvc)
	app.exoSvc = exercise.NewService(app.exoRepo, app.blobs, contentSvc)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	app.server = NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		UserSvc:         app.usrSvc,
		SettingSvc:      app.settingSvc,
		ContentSvc:      contentSvc,
		CourseSvc:       courseSvc,
		ExerciseSvc:     app.exoSvc,
		Validate:        validate,
		Translator:      translator,
		MailBackendName: "console",
		DisableReqLogs:  true,
	})
	return app
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (app *testApp) createUser(t *testing.T, name, uname, email, pwd string, roles []string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("SetPassword(): %v", err)
		}
	}
	usr, err := app.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()

	token, err := app.auth.generateToken(app.auth.userClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
