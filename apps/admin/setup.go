package main

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/setting"
	"github.com/trezcool/darasa/core/user"
)

var errAlreadySetUp = errors.New("an account already exists; setup has been done")

// defaultSettings seeds the configuration store keys an admin will want to
// review after the first run.
var defaultSettings = map[string]string{
	setting.KeyAceEditorURL: "https://cdnjs.cloudflare.com/ajax/libs/ace/1.4.12",
	setting.KeyMathJaxURL:   "https://cdnjs.cloudflare.com/ajax/libs/mathjax/2.7.9",
}

// setup creates the initial admin account and the default settings. It refuses
// to run when any account exists already.
func (cli *commandLine) setup(name, email, pwd string) error {
	ctx := context.Background()

	n, err := cli.usrRepo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return errAlreadySetUp
	}

	now := time.Now().UTC()
	usr := user.User{
		Name:      core.CleanString(name),
		Email:     core.CleanString(email, true /* lower */),
		IsActive:  true,
		Roles:     []string{user.RoleAdminOwner},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.CreateUser(ctx, usr); err != nil {
		return err
	}

	for key, val := range defaultSettings {
		if _, err := cli.settingRepo.GetValue(ctx, key); err == nil {
			continue // keep existing values
		}
		if err := cli.settingRepo.SetValue(ctx, key, val); err != nil {
			return err
		}
	}
	return nil
}
