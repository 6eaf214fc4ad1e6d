package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
)

const testPassword = "S3kr!tPassw0rd"

func TestLogin(t *testing.T) {
	app := setup(t)
	app.createUser(t, "Active Bob", "activebob", "bob@test.cm", testPassword, []string{user.RoleStudent})

	inactive := user.User{
		Name: "Inactive Ina", Username: "inactiveina", Email: "ina@test.cm",
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	_ = inactive.SetPassword(testPassword)
	if _, err := app.usrRepo.CreateUser(context.Background(), inactive); err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}

	login := func(body interface{}) ([]byte, int) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, body))
		app.server.ServeHTTP(rec, req)
		return rec.Body.Bytes(), rec.Code
	}

	t.Run("success defaults to the landing page", func(t *testing.T) {
		body, code := login(LoginRequest{Username: "activebob", Password: testPassword})
		if code != http.StatusOK {
			t.Fatalf("code = %d; want 200; body %s", code, body)
		}
		var resp LoginResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		if resp.Token == "" {
			t.Error("expected a token")
		}
		if resp.Redirect != defaultLandingPath {
			t.Errorf("redirect = %q; want %q", resp.Redirect, defaultLandingPath)
		}
	})

	t.Run("deep-link target is echoed verbatim", func(t *testing.T) {
		next := "/courses/42?tab=grades"
		body, code := login(LoginRequest{Username: "activebob", Password: testPassword, Next: next})
		if code != http.StatusOK {
			t.Fatalf("code = %d; want 200; body %s", code, body)
		}
		var resp LoginResponse
		_ = json.Unmarshal(body, &resp)
		if resp.Redirect != next {
			t.Errorf("redirect = %q; want %q", resp.Redirect, next)
		}
	})

	t.Run("offsite deep-link falls back to the landing page", func(t *testing.T) {
		for _, next := range []string{"//evil.test/phish", "https://evil.test", "evil"} {
			body, code := login(LoginRequest{Username: "activebob", Password: testPassword, Next: next})
			if code != http.StatusOK {
				t.Fatalf("code = %d; want 200; body %s", code, body)
			}
			var resp LoginResponse
			_ = json.Unmarshal(body, &resp)
			if resp.Redirect != defaultLandingPath {
				t.Errorf("next %q: redirect = %q; want %q", next, resp.Redirect, defaultLandingPath)
			}
		}
	})

	t.Run("failures", func(t *testing.T) {
		tests := []struct {
			name     string
			body     LoginRequest
			wantCode int
			wantErr  string
		}{
			{"wrong password", LoginRequest{Username: "activebob", Password: "Wr0ng!Pass"}, http.StatusBadRequest, "authentication failed"},
			{"unknown user", LoginRequest{Username: "nobody", Password: testPassword}, http.StatusBadRequest, "authentication failed"},
			{"login by email works for lookup but password still checked", LoginRequest{Username: "bob@test.cm", Password: "Wr0ng!Pass"}, http.StatusBadRequest, "authentication failed"},
			{"inactive account", LoginRequest{Username: "inactiveina", Password: testPassword}, http.StatusForbidden, "account deactivated"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				body, code := login(tt.body)
				if code != tt.wantCode {
					t.Errorf("code = %d; want %d; body %s", code, tt.wantCode, body)
				}
				var resp httpErr
				_ = json.Unmarshal(body, &resp)
				if resp.Error != tt.wantErr {
					t.Errorf("error = %q; want %q", resp.Error, tt.wantErr)
				}
			})
		}
	})
}

func TestRegister(t *testing.T) {
	reg := func(app *testApp, body interface{}) ([]byte, int) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register", marchallObj(t, body))
		app.server.ServeHTTP(rec, req)
		return rec.Body.Bytes(), rec.Code
	}
	data := user.RegisterUser{
		Name: "New Student", Email: "student@school.test",
		Password: testPassword, PasswordConfirm: testPassword,
	}

	t.Run("disabled without the email pattern setting", func(t *testing.T) {
		app := setup(t)
		body, code := reg(app, data)
		if code != http.StatusForbidden {
			t.Errorf("code = %d; want 403; body %s", code, body)
		}
	})

	t.Run("email must match the pattern", func(t *testing.T) {
		app := setup(t)
		_ = app.settingRepo.SetValue(context.Background(), setting.KeyRegistrationEmailPattern, `@school\.test$`)

		outsider := data
		outsider.Email = "someone@elsewhere.test"
		body, code := reg(app, outsider)
		if code != http.StatusBadRequest {
			t.Errorf("code = %d; want 400; body %s", code, body)
		}
	})

	t.Run("success creates an active student", func(t *testing.T) {
		app := setup(t)
		_ = app.settingRepo.SetValue(context.Background(), setting.KeyRegistrationEmailPattern, `@school\.test$`)

		body, code := reg(app, data)
		if code != http.StatusCreated {
			t.Fatalf("code = %d; want 201; body %s", code, body)
		}
		var resp RegisterResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			t.Fatalf("unmarshalling: %v", err)
		}
		if resp.Warning != "" {
			t.Errorf("unexpected warning %q", resp.Warning)
		}
		if !resp.User.IsActive || len(resp.User.Roles) != 1 || resp.User.Roles[0] != user.RoleStudent {
			t.Errorf("unexpected user %+v", resp.User)
		}

		// duplicate email is rejected before the create call
		body, code = reg(app, data)
		if code != http.StatusBadRequest {
			t.Errorf("duplicate: code = %d; want 400; body %s", code, body)
		}
	})

	t.Run("mail failure still creates the account", func(t *testing.T) {
		app := setup(t, true /* failMail */)
		_ = app.settingRepo.SetValue(context.Background(), setting.KeyRegistrationEmailPattern, `@school\.test$`)

		body, code := reg(app, data)
		if code != http.StatusCreated {
			t.Fatalf("code = %d; want 201; body %s", code, body)
		}
		var resp RegisterResponse
		_ = json.Unmarshal(body, &resp)
		if resp.Warning == "" {
			t.Error("expected a mail-failure warning")
		}
		if _, err := app.usrSvc.GetByEmail(context.Background(), data.Email); err != nil {
			t.Errorf("account was not created: %v", err)
		}
	})
}

func TestPasswordReset(t *testing.T) {
	newApp := func(t *testing.T, failMail ...bool) *testApp {
		app := setup(t, failMail...)
		app.createUser(t, "Local Lucy", "locallucy", "lucy@test.cm", testPassword, []string{user.RoleStudent})

		ext := user.User{
			Name: "Ldap Leo", Username: "ldapleo", Email: "leo@test.cm",
			IsActive: true, IsExternal: true,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}
		if _, err := app.usrRepo.CreateUser(context.Background(), ext); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
		return app
	}

	tests := []struct {
		name     string
		failMail bool
		username string
		wantData []byte
	}{
		{"success", false, "locallucy",
			marchallObj(t, SuccessResponse{Success: msgPasswordResetSent, Redirect: "/login"})},
		{"lookup by email", false, "lucy@test.cm",
			marchallObj(t, SuccessResponse{Success: msgPasswordResetSent, Redirect: "/login"})},
		{"unknown account", false, "nobody",
			marchallObj(t, SuccessResponse{Success: msgUnknownAccount})},
		{"externally managed account", false, "ldapleo",
			marchallObj(t, SuccessResponse{Success: msgExternalAccount})},
		{"mail dispatch failure", true, "locallucy",
			marchallObj(t, SuccessResponse{Success: msgMailNotSent})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(t, tt.failMail)
			req, rec := newRequest(http.MethodPost, "/v1/users/password-reset",
				marchallObj(t, PasswordResetRequest{Username: tt.username}))
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: tt.wantData}, rec)
		})
	}
}

func TestPasswordResetConfirm(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Reset Rita", "resetrita", "rita@test.cm", testPassword, []string{user.RoleStudent})

	token, err := user.MakeToken(app.conf, usr)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}
	newPwd := "N3w!Passw0rd"

	confirm := func(body user.ResetUserPassword) ([]byte, int) {
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", marchallObj(t, body))
		app.server.ServeHTTP(rec, req)
		return rec.Body.Bytes(), rec.Code
	}

	t.Run("invalid token", func(t *testing.T) {
		body, code := confirm(user.ResetUserPassword{
			UID: user.EncodeUID(usr), Token: "bogus-token",
			Password: newPwd, PasswordConfirm: newPwd,
		})
		if code != http.StatusBadRequest {
			t.Errorf("code = %d; want 400; body %s", code, body)
		}
	})

	t.Run("success", func(t *testing.T) {
		body, code := confirm(user.ResetUserPassword{
			UID: user.EncodeUID(usr), Token: token,
			Password: newPwd, PasswordConfirm: newPwd,
		})
		if code != http.StatusOK {
			t.Fatalf("code = %d; want 200; body %s", code, body)
		}

		saved, err := app.usrSvc.GetByID(context.Background(), usr.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		if err := saved.CheckPassword(newPwd); err != nil {
			t.Error("new password was not saved")
		}
	})
}

func TestSetup(t *testing.T) {
	app := setup(t)

	data := user.NewUser{
		Name: "First Admin", Email: "admin@test.cm",
		Password: testPassword, PasswordConfirm: testPassword,
	}

	req, rec := newRequest(http.MethodPost, "/v1/setup", marchallObj(t, data))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d; want 201; body %s", rec.Code, rec.Body.String())
	}
	var created user.User
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	if !created.IsAdmin() {
		t.Errorf("expected an admin; got roles %v", created.Roles)
	}

	// once an account exists, setup is refused
	req, rec = newRequest(http.MethodPost, "/v1/setup", marchallObj(t, data))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %d; want 403; body %s", rec.Code, rec.Body.String())
	}
}

func TestTokenRefresh(t *testing.T) {
	app := setup(t)
	usr := app.createUser(t, "Fresh Fred", "freshfred", "fred@test.cm", testPassword, []string{user.RoleStudent})

	t.Run("requires a token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", app.getToken(t, usr))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want 200; body %s", rec.Code, rec.Body.String())
		}
		var resp LoginResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp.Token == "" {
			t.Error("expected a refreshed token")
		}
	})
}
