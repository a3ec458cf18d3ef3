package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/presence/apps/api/echo"
	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/user"
	"github.com/trezcool/presence/tests"
)

func Test_authAPI_login(t *testing.T) {
	reset()
	testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", testPwd, user.RoleAdmin, true)
	testutil.CreateUser(t, repos.Users, "Ghost", "ghost@test.ma", testPwd, user.RoleSG, false)
	testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", testPwd, true)

	tests := []struct {
		name     string
		data     interface{}
		wantCode int
		wantKind auth.Kind
		wantMsg  string
	}{
		{name: "invalid data", data: echoapi.LoginRequest{Email: "nope"}, wantCode: http.StatusUnprocessableEntity, wantMsg: "validation failed"},
		{name: "unknown email", data: echoapi.LoginRequest{Email: "who@test.ma", Password: testPwd}, wantCode: http.StatusUnauthorized, wantMsg: "invalid credentials"},
		{name: "wrong password", data: echoapi.LoginRequest{Email: "admin@test.ma", Password: "wrong"}, wantCode: http.StatusUnauthorized, wantMsg: "invalid credentials"},
		{name: "user", data: echoapi.LoginRequest{Email: " ADMIN@test.ma ", Password: testPwd}, wantCode: http.StatusOK, wantKind: auth.KindAdmin},
		{name: "inactive user", data: echoapi.LoginRequest{Email: "ghost@test.ma", Password: testPwd}, wantCode: http.StatusOK, wantKind: auth.KindSG},
		{name: "teacher", data: echoapi.LoginRequest{Email: "prof@test.ma", Password: testPwd}, wantCode: http.StatusOK, wantKind: auth.KindTeacher},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data echoapi.LoginResponse
			req, rec := newRequest(http.MethodPost, "/api/auth/login", tt.data)
			res := do(t, req, rec, &data)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				assert.False(t, res.Success)
				assert.Equal(t, tt.wantMsg, res.Message)
				return
			}
			assert.True(t, res.Success)
			assert.NotEmpty(t, data.Token)
			assert.Equal(t, tt.wantKind, data.User.Kind)
		})
	}
}

func Test_authAPI_me(t *testing.T) {
	reset()
	admin := testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", testPwd, user.RoleAdmin, true)
	ghost := testutil.CreateUser(t, repos.Users, "Ghost", "ghost@test.ma", testPwd, user.RoleSG, false)
	prof := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", testPwd, true)

	tests := []struct {
		name     string
		token    string
		wantCode int
		wantID   string
		wantMsg  string
	}{
		{name: "no token", wantCode: http.StatusUnauthorized, wantMsg: "missing or malformed jwt"},
		{name: "bad token", token: "not.a.jwt", wantCode: http.StatusUnauthorized},
		{name: "unknown principal", token: userToken(t, user.User{ID: "ghost-id"}), wantCode: http.StatusUnauthorized, wantMsg: "unknown principal"},
		{name: "inactive", token: userToken(t, ghost), wantCode: http.StatusForbidden, wantMsg: "account deactivated"},
		{name: "admin", token: userToken(t, admin), wantCode: http.StatusOK, wantID: admin.ID},
		{name: "teacher", token: teacherToken(t, prof), wantCode: http.StatusOK, wantID: prof.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p auth.Principal
			req, rec := newAuthRequest(http.MethodGet, "/api/auth/me", tt.token)
			res := do(t, req, rec, &p)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, res.Message)
			}
			if tt.wantID != "" {
				assert.Equal(t, tt.wantID, p.ID)
			}
		})
	}
}

func Test_authAPI_changePassword(t *testing.T) {
	reset()
	prof := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", testPwd, true)
	token := teacherToken(t, prof)
	newPwd := "Zr7!wNq4cH"

	tests := []struct {
		name      string
		data      echoapi.ChangePasswordRequest
		wantCode  int
		wantField string
	}{
		{name: "missing fields", wantCode: http.StatusUnprocessableEntity},
		{name: "weak", data: echoapi.ChangePasswordRequest{OldPassword: testPwd, NewPassword: "short"}, wantCode: http.StatusUnprocessableEntity, wantField: "newPassword"},
		{name: "same", data: echoapi.ChangePasswordRequest{OldPassword: testPwd, NewPassword: testPwd}, wantCode: http.StatusUnprocessableEntity, wantField: "newPassword"},
		{name: "wrong old", data: echoapi.ChangePasswordRequest{OldPassword: "wrong", NewPassword: newPwd}, wantCode: http.StatusUnprocessableEntity, wantField: "oldPassword"},
		{name: "ok", data: echoapi.ChangePasswordRequest{OldPassword: testPwd, NewPassword: newPwd}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/auth/change-password", token, tt.data)
			res := do(t, req, rec)
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantField != "" {
				require.NotEmpty(t, res.Errors)
				assert.Equal(t, tt.wantField, res.Errors[0].Field)
			}
		})
	}

	// the new password logs in
	var data echoapi.LoginResponse
	req, rec := newRequest(http.MethodPost, "/api/auth/login", echoapi.LoginRequest{Email: "prof@test.ma", Password: newPwd})
	do(t, req, rec, &data)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, data.User.MustChangePassword)
}
