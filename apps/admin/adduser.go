package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/user"
)

var errInvalidRole = errors.New("role must be one of: admin, sg")

// checkPassword applies the password policy, the way the API does.
func checkPassword(pwd string, userAttrs ...string) error {
	if tag, ok := core.CheckPasswordPolicy(pwd, userAttrs...); !ok {
		return errors.New(core.PasswordPolicyText(tag))
	}
	return nil
}

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)
	if role != user.RoleAdmin && role != user.RoleSG {
		return errInvalidRole
	}
	if err := checkPassword(pwd, name, email); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr, err := cli.users.GetUser(ctx, user.GetFilter{Email: email})
	create := errors.Is(err, user.ErrNotFound)
	if err != nil && !create {
		return err
	}
	if create {
		usr = user.User{Email: email, CreatedAt: now}
	}
	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if create {
		usr, err = cli.users.CreateUser(ctx, usr)
	} else {
		usr, err = cli.users.UpdateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	cli.printf("user %s (%s) saved\n", usr.Email, usr.Role)
	return nil
}
