package echoapi_test

import (
	"encoding/base64"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/user"
	"github.com/trezcool/presence/services/email"
	"github.com/trezcool/presence/tests"
)

func Test_teacherAPI_crud(t *testing.T) {
	reset()
	admin := testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", "", user.RoleAdmin, true)
	sg := testutil.CreateUser(t, repos.Users, "Surveillant", "sg@test.ma", "", user.RoleSG, true)
	dev101 := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	dev102 := testutil.CreateGroup(t, repos.Groups, "DEV102", "", "")
	other := testutil.CreateTeacher(t, repos.Teachers, "Other", "other@test.ma", "T900", "", true)
	token := userToken(t, admin)

	// create: a temporary password is mailed
	var tchr teacher.Teacher
	req, rec := newAuthRequest(http.MethodPost, "/api/teachers", token, teacher.NewTeacher{
		Name: "Jane Prof", Email: "JANE@test.ma", Matricule: "t001", GroupIDs: []string{dev101.ID},
	})
	do(t, req, rec, &tchr)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "jane@test.ma", tchr.Email)
	assert.Equal(t, "T001", tchr.Matricule)
	assert.True(t, tchr.MustChangePassword)
	assert.Equal(t, []string{dev101.ID}, tchr.GroupIDs)
	assert.Len(t, emailsvc.SentTo("jane@test.ma"), 1)

	// sg cannot create
	req, rec = newAuthRequest(http.MethodPost, "/api/teachers", userToken(t, sg), teacher.NewTeacher{Name: "X", Email: "x@test.ma", Matricule: "X1"})
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// duplicate email
	req, rec = newAuthRequest(http.MethodPost, "/api/teachers", token, teacher.NewTeacher{Name: "Jane Two", Email: "jane@test.ma", Matricule: "T002"})
	do(t, req, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// list is staff only
	var tchrs []teacher.Teacher
	req, rec = newAuthRequest(http.MethodGet, "/api/teachers?search=jane", userToken(t, sg))
	do(t, req, rec, &tchrs)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, tchrs, 1)
	req, rec = newAuthRequest(http.MethodGet, "/api/teachers", teacherToken(t, tchr))
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a teacher reads themself only
	req, rec = newAuthRequest(http.MethodGet, "/api/teachers/"+tchr.ID, teacherToken(t, tchr))
	do(t, req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	req, rec = newAuthRequest(http.MethodGet, "/api/teachers/"+other.ID, teacherToken(t, tchr))
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// assign groups
	req, rec = newAuthRequest(http.MethodPut, "/api/teachers/"+tchr.ID+"/groups", token, teacher.AssignGroups{GroupIDs: []string{dev101.ID, dev102.ID, dev101.ID}})
	do(t, req, rec, &tchr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{dev101.ID, dev102.ID}, tchr.GroupIDs)

	// update
	inactive := false
	req, rec = newAuthRequest(http.MethodPut, "/api/teachers/"+tchr.ID, token, teacher.UpdateTeacher{IsActive: &inactive})
	do(t, req, rec, &tchr)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, tchr.IsActive)

	// deactivated teachers lose access, even to themselves
	req, rec = newAuthRequest(http.MethodGet, "/api/teachers/"+tchr.ID, teacherToken(t, tchr))
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// reset password
	emailsvc.ResetSentMessages()
	req, rec = newAuthRequest(http.MethodPost, "/api/teachers/"+tchr.ID+"/reset-password", token)
	do(t, req, rec)
	require.Equal(t, http.StatusOK, rec.Code)
	sent := emailsvc.SentTo("jane@test.ma")
	require.Len(t, sent, 1)
	assert.Equal(t, "Password reset", sent[0].Subject)

	// delete
	req, rec = newAuthRequest(http.MethodDelete, "/api/teachers/"+tchr.ID, token)
	do(t, req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	req, rec = newAuthRequest(http.MethodGet, "/api/teachers/"+tchr.ID, token)
	do(t, req, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_teacherAPI_schedule(t *testing.T) {
	reset()
	admin := testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", "", user.RoleAdmin, true)
	prof := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", "", true)
	other := testutil.CreateTeacher(t, repos.Teachers, "Other", "other@test.ma", "T002", "", true)
	path := "/api/teachers/" + prof.ID + "/schedule"

	// nothing uploaded yet
	req, rec := newAuthRequest(http.MethodGet, path, teacherToken(t, prof))
	do(t, req, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// another teacher cannot upload
	req, rec = newFileRequest(t, http.MethodPost, path, teacherToken(t, other), "file", "edt.pdf", []byte("%PDF-1.4"), nil)
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// unsupported type
	req, rec = newFileRequest(t, http.MethodPost, path, teacherToken(t, prof), "file", "edt.exe", []byte("MZ"), nil)
	do(t, req, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var tchr teacher.Teacher
	req, rec = newFileRequest(t, http.MethodPost, path, teacherToken(t, prof), "file", "edt.pdf", []byte("%PDF-1.4 v1"), nil)
	do(t, req, rec, &tchr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotEmpty(t, tchr.ScheduleFile)
	first := filepath.Join(conf.Server.UploadDir, tchr.ScheduleFile)
	assert.FileExists(t, first)

	// the teacher gets the file by mail
	mails := emailsvc.SentTo("prof@test.ma")
	require.Len(t, mails, 1)
	assert.Equal(t, "Your schedule", mails[0].Subject)
	assert.Contains(t, mails[0].TextContent, "Hello Prof,")
	require.Len(t, mails[0].Attachments, 1)
	assert.Equal(t, "schedule.pdf", mails[0].Attachments[0].Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 v1")), mails[0].Attachments[0].Content.String())

	// re-uploading replaces the previous file
	req, rec = newFileRequest(t, http.MethodPost, path, userToken(t, admin), "file", "edt.pdf", []byte("%PDF-1.4 v2"), nil)
	do(t, req, rec, &tchr)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, err := os.Stat(first)
	assert.True(t, os.IsNotExist(err))

	req, rec = newAuthRequest(http.MethodGet, path, teacherToken(t, prof))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 v2", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	req, rec = newAuthRequest(http.MethodGet, path, teacherToken(t, other))
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// deleting the teacher removes the file
	req, rec = newAuthRequest(http.MethodDelete, "/api/teachers/"+prof.ID, userToken(t, admin))
	do(t, req, rec)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoFileExists(t, filepath.Join(conf.Server.UploadDir, tchr.ScheduleFile))
}
