package main

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Username:  uname,
			Email:     email,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		isActive := true
		usr.UpdatedAt = time.Now().UTC()
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	}
	return err
}
