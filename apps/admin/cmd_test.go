package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, *inmemdb.UserRepository, *inmemdb.SettingRepository) {
	t.Helper()

	usrRepo := inmemdb.NewUserRepository()
	settingRepo := inmemdb.NewSettingRepository()
	cli := &commandLine{
		usrRepo:     usrRepo,
		settingRepo: settingRepo,
	}
	return cli, usrRepo, settingRepo
}

func createUser(t *testing.T, repo *inmemdb.UserRepository, name, uname, email, pwd string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name: name, Username: uname, Email: email,
		IsActive:  true,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func runCliTests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	t.Helper()

	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := tt.pwd
		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case err == nil:
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Fatalf("cli.run() expected error %v%s", tt.wantErr, tt.wantErrStr)
				}
				if check != nil {
					check(t, tt)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %q, wantErrStr %q", err.Error(), tt.wantErrStr)
				}
			default:
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, usrRepo, _ := setup(t)

	existing := createUser(t, usrRepo, "Exists", "existing", "exists@test.cm", "oldpwd")

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-username", "newbie"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "newbie", "-email", "new@test.cm"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "newbie", "-email", "new@test.cm"}, pwd: "mdr"},
		{name: "create admin", args: []string{"adduser", "-username", "bigboss", "-email", "boss@test.cm", "-admin"}, pwd: "mdr"},
		{name: "update existing", args: []string{"adduser", "-username", existing.Username, "-email", existing.Email}, pwd: "newpwd"},
	}
	runCliTests(t, cli, tests, nil)

	ctx := context.Background()

	created, err := usrRepo.GetUserByUsername(ctx, "newbie")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !created.IsActive || created.CheckPassword("mdr") != nil {
		t.Errorf("created user not usable: %+v", created)
	}

	boss, err := usrRepo.GetUserByUsername(ctx, "bigboss")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !boss.IsAdmin() {
		t.Errorf("expected an admin; got roles %v", boss.Roles)
	}

	updated, err := usrRepo.GetUserByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if bytes.Equal(updated.PasswordHash, existing.PasswordHash) {
		t.Error("failed to update the password")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, usrRepo, _ := setup(t)

	usr := createUser(t, usrRepo, "User", "awe", "awe@test.cm", "mdr")

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwd: "lmao"},
	}
	runCliTests(t, cli, tests, func(t *testing.T, tt cliTest) {
		refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
		if err != nil {
			t.Fatalf("GetUserByID() failed: %v", err)
		}
		if refreshed.CheckPassword(tt.pwd) != nil {
			t.Error("failed to set the new password")
		}
	})
}

func Test_commandLine_setup(t *testing.T) {
	t.Run("creates the admin and the default settings", func(t *testing.T) {
		cli, usrRepo, settingRepo := setup(t)

		tests := []cliTest{
			{name: "no args", args: []string{"setup"}, wantErr: errHelp},
			{name: "missing email", args: []string{"setup", "-name", "Boss"}, wantErr: errHelp},
			{name: "setup", args: []string{"setup", "-name", "Big Boss", "-email", "boss@test.cm"}, pwd: "mdr"},
		}
		runCliTests(t, cli, tests, nil)

		ctx := context.Background()
		usr, err := usrRepo.GetUserByEmail(ctx, "boss@test.cm")
		if err != nil {
			t.Fatalf("GetUserByEmail() failed: %v", err)
		}
		if !usr.IsAdmin() {
			t.Errorf("expected an admin; got roles %v", usr.Roles)
		}
		for key := range defaultSettings {
			if _, err := settingRepo.GetValue(ctx, key); err != nil {
				t.Errorf("default setting %q not seeded: %v", key, err)
			}
		}
	})

	t.Run("refuses to run twice", func(t *testing.T) {
		cli, usrRepo, _ := setup(t)
		createUser(t, usrRepo, "Exists", "existing", "exists@test.cm", "mdr")

		tests := []cliTest{
			{name: "already set up", args: []string{"setup", "-name", "Boss", "-email", "boss@test.cm"}, pwd: "mdr", wantErr: errAlreadySetUp},
		}
		runCliTests(t, cli, tests, nil)
	})

	t.Run("keeps existing setting values", func(t *testing.T) {
		cli, _, settingRepo := setup(t)
		want := "https://cdn.test/ace"
		_ = settingRepo.SetValue(context.Background(), setting.KeyAceEditorURL, want)

		tests := []cliTest{
			{name: "setup", args: []string{"setup", "-name", "Big Boss", "-email", "boss@test.cm"}, pwd: "mdr"},
		}
		runCliTests(t, cli, tests, nil)

		val, err := settingRepo.GetValue(context.Background(), setting.KeyAceEditorURL)
		if err != nil {
			t.Fatalf("GetValue() failed: %v", err)
		}
		if val != want {
			t.Errorf("value = %q; want the pre-existing %q", val, want)
		}
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	var calledWith *sqlx.DB
	called := false
	migrateFunc = func(db *sqlx.DB) error {
		called = true
		calledWith = db
		return nil
	}

	if err := cli.run([]string{"admin", "migrate"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}
	if !called {
		t.Error("migrate was not invoked")
	}
	if calledWith != cli.db {
		t.Error("migrate did not receive the CLI's database handle")
	}
}
