package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/auth"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/user"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	"github.com/trezcool/presence/tests"
)

const testPwd = "Xk9#mPq2vL"

func setup() (*auth.Gate, user.Repository, teacher.Repository) {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	tchrRepo := inmemdb.NewTeacherRepository(db)
	grpSvc := group.NewService(inmemdb.NewGroupRepository(db))
	return auth.NewGate(user.NewService(usrRepo), teacher.NewService(tchrRepo, grpSvc, nil)), usrRepo, tchrRepo
}

func TestGate_Authenticate(t *testing.T) {
	gate, usrRepo, tchrRepo := setup()
	ctx := context.Background()
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.ma", testPwd, user.RoleAdmin, true)
	sg := testutil.CreateUser(t, usrRepo, "Surveillant", "sg@test.ma", testPwd, user.RoleSG, false)
	tchr := testutil.CreateTeacher(t, tchrRepo, "Prof", "prof@test.ma", "T001", testPwd, true)
	// same email on both sides: the user wins
	testutil.CreateTeacher(t, tchrRepo, "Twin", "admin@test.ma", "T002", "Other#Pwd99", true)

	tests := []struct {
		name     string
		email    string
		pwd      string
		wantID   string
		wantKind auth.Kind
		wantErr  error
	}{
		{name: "admin", email: admin.Email, pwd: testPwd, wantID: admin.ID, wantKind: auth.KindAdmin},
		{name: "inactive sg still authenticates", email: sg.Email, pwd: testPwd, wantID: sg.ID, wantKind: auth.KindSG},
		{name: "teacher", email: tchr.Email, pwd: testPwd, wantID: tchr.ID, wantKind: auth.KindTeacher},
		{name: "user shadows teacher", email: admin.Email, pwd: "Other#Pwd99", wantErr: auth.ErrInvalidCredentials},
		{name: "wrong password", email: tchr.Email, pwd: "nope", wantErr: auth.ErrInvalidCredentials},
		{name: "unknown", email: "who@test.ma", pwd: testPwd, wantErr: auth.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := gate.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, p.ID)
			assert.Equal(t, tt.wantKind, p.Kind)
		})
	}

	// logins are recorded
	refreshed, err := tchrRepo.GetTeacher(ctx, teacher.GetFilter{ID: tchr.ID})
	require.NoError(t, err)
	assert.False(t, refreshed.LastLogin.IsZero())
}

func TestGate_Resolve(t *testing.T) {
	gate, usrRepo, tchrRepo := setup()
	ctx := context.Background()
	usr := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.ma", "", user.RoleAdmin, true)
	tchr := testutil.CreateTeacher(t, tchrRepo, "Prof", "prof@test.ma", "T001", "", false)

	p, err := gate.Resolve(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.KindAdmin, p.Kind)
	assert.Equal(t, core.Person{ID: usr.ID, Name: "Admin", Email: "admin@test.ma"}, p.Person())

	p, err = gate.Resolve(ctx, tchr.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.KindTeacher, p.Kind)
	assert.False(t, p.IsActive)

	_, err = gate.Resolve(ctx, "nope")
	assert.Equal(t, auth.ErrUnknownPrincipal, err)
}

func TestGate_ChangePassword(t *testing.T) {
	gate, usrRepo, tchrRepo := setup()
	ctx := context.Background()
	usr := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.ma", testPwd, user.RoleAdmin, true)
	tchr := testutil.CreateTeacher(t, tchrRepo, "Prof", "prof@test.ma", "T001", testPwd, true)
	tchr.MustChangePassword = true
	_, err := tchrRepo.UpdateTeacher(ctx, tchr)
	require.NoError(t, err)

	up, err := gate.Resolve(ctx, usr.ID)
	require.NoError(t, err)
	tp, err := gate.Resolve(ctx, tchr.ID)
	require.NoError(t, err)
	require.True(t, tp.MustChangePassword)

	_, err = gate.ChangePassword(ctx, up, testPwd, "short")
	assert.True(t, core.IsValidationError(err))
	_, err = gate.ChangePassword(ctx, up, testPwd, testPwd)
	assert.True(t, core.IsValidationError(err))
	_, err = gate.ChangePassword(ctx, up, "wrong", "New#Pwd2024")
	assert.Error(t, err)

	_, err = gate.ChangePassword(ctx, up, testPwd, "New#Pwd2024")
	require.NoError(t, err)
	_, err = gate.Authenticate(ctx, usr.Email, "New#Pwd2024")
	assert.NoError(t, err)

	tp, err = gate.ChangePassword(ctx, tp, testPwd, "New#Pwd2024")
	require.NoError(t, err)
	assert.False(t, tp.MustChangePassword)
}

func TestAuthorize(t *testing.T) {
	admin := auth.Principal{Kind: auth.KindAdmin, IsActive: true}
	prof := auth.Principal{Kind: auth.KindTeacher, IsActive: true}

	assert.NoError(t, auth.Authorize(admin))
	assert.NoError(t, auth.Authorize(prof))
	assert.NoError(t, auth.Authorize(admin, auth.KindAdmin, auth.KindSG))
	assert.Equal(t, auth.ErrForbidden, auth.Authorize(prof, auth.KindAdmin, auth.KindSG))
	assert.Equal(t, auth.ErrInactive, auth.Authorize(auth.Principal{Kind: auth.KindAdmin}, auth.KindAdmin))
}
