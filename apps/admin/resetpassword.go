package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/user"
)

// resetPassword sets the password of the user, or else the teacher, using email.
func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.users.GetUser(ctx, user.GetFilter{Email: email})
	switch {
	case err == nil:
		if err = checkPassword(pwd, usr.Name, usr.Email); err != nil {
			return err
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		usr.UpdatedAt = time.Now().UTC()
		_, err = cli.users.UpdateUser(ctx, usr)
		return err
	case !errors.Is(err, user.ErrNotFound):
		return err
	}

	tchr, err := cli.teachers.GetTeacher(ctx, teacher.GetFilter{Email: email})
	if err != nil {
		return err
	}
	if err = checkPassword(pwd, tchr.Name, tchr.Email, tchr.Matricule); err != nil {
		return err
	}
	if err = tchr.SetPassword(pwd); err != nil {
		return err
	}
	tchr.MustChangePassword = false
	tchr.UpdatedAt = time.Now().UTC()
	_, err = cli.teachers.UpdateTeacher(ctx, tchr)
	return err
}
