package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/user"
	"github.com/trezcool/presence/storage/database"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	"github.com/trezcool/presence/tests"
)

const testPwd = "Xk9#mPq2vL"

func setup() (*commandLine, *database.Repositories) {
	repos := database.NewInMemRepositories(inmemdb.Open())
	return &commandLine{
		db:       new(sql.DB),
		users:    repos.Users,
		teachers: repos.Teachers,
		out:      io.Discard,
	}, repos
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) bool {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		return assert.NoError(t, err)
	}
	return false
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup()

	var ran []string
	gooseRunFunc = func(_ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "rooms", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
	assert.Equal(t, []string{"up", "up-to", "down", "down-to", "status", "create"}, ran)

	// other engines have nothing to migrate
	cli.db = nil
	assert.ErrorIs(t, cli.run([]string{"admin", "migrate", "up"}), errNoSQL)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, repos := setup()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Admin", "-email", "admin@test.ma"}, wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-name", "Admin", "-email", "admin@test.ma", "-role", "king"}, pwd: testPwd, wantErr: errInvalidRole},
		{name: "weak password", args: []string{"adduser", "-name", "Admin", "-email", "admin@test.ma"}, pwd: "12345678", wantErrStr: "password cannot be entirely numeric"},
		{name: "create", args: []string{"adduser", "-name", "Admin", "-email", "Admin@Test.ma"}, pwd: testPwd},
		{name: "update", args: []string{"adduser", "-name", "Surveillant", "-email", "admin@test.ma", "-role", "sg"}, pwd: testPwd + "!"},
	}
	for _, tt := range tests {
		mockPassword(tt.pwd)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	usrs, total, err := repos.Users.QueryUsers(context.Background(), nil, nil, core.Pagination{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	usr := usrs[0]
	assert.Equal(t, "Surveillant", usr.Name)
	assert.Equal(t, "admin@test.ma", usr.Email)
	assert.Equal(t, user.RoleSG, usr.Role)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testPwd+"!"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, repos := setup()
	usr := testutil.CreateUser(t, repos.Users, "User", "user@test.ma", "", user.RoleSG, true)
	tchr := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", "", true)
	tchr.MustChangePassword = true
	tchr, err := repos.Teachers.UpdateTeacher(context.Background(), tchr)
	require.NoError(t, err)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.ma"}, wantErr: errHelp},
		{name: "not found", args: []string{"resetpassword", "-email", "lol@test.ma"}, pwd: testPwd, wantErr: teacher.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", usr.Email}, pwd: "short", wantErrStr: "password must contain at least 8 characters"},
		{name: "user", args: []string{"resetpassword", "-email", usr.Email}, pwd: testPwd},
		{name: "teacher", args: []string{"resetpassword", "-email", " PROF@test.ma"}, pwd: testPwd},
	}
	for _, tt := range tests {
		mockPassword(tt.pwd)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	refreshedUsr, err := repos.Users.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash))
	assert.NoError(t, refreshedUsr.CheckPassword(testPwd))

	refreshedTchr, err := repos.Teachers.GetTeacher(context.Background(), teacher.GetFilter{ID: tchr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshedTchr.CheckPassword(testPwd))
	assert.False(t, refreshedTchr.MustChangePassword)
}
