package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/core/user"
	"github.com/trezcool/presence/tests"
)

func Test_groupAPI_crud(t *testing.T) {
	reset()
	admin := testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", "", user.RoleAdmin, true)
	sg := testutil.CreateUser(t, repos.Users, "Surveillant", "sg@test.ma", "", user.RoleSG, true)
	token := userToken(t, admin)

	// only admins write
	req, rec := newAuthRequest(http.MethodPost, "/api/groups", userToken(t, sg), group.NewGroup{Name: "DEV101"})
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var grp group.Group
	req, rec = newAuthRequest(http.MethodPost, "/api/groups", token, group.NewGroup{Name: " DEV  101 ", Filiere: "Developpement digital", Annee: "1A"})
	do(t, req, rec, &grp)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "DEV 101", grp.Name)

	req, rec = newAuthRequest(http.MethodPost, "/api/groups", token, group.NewGroup{Name: "DEV 101"})
	do(t, req, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// by ID and by name
	for _, ref := range []string{grp.ID, "DEV%20101"} {
		var got group.Group
		req, rec = newAuthRequest(http.MethodGet, "/api/groups/"+ref, userToken(t, sg))
		do(t, req, rec, &got)
		require.Equal(t, http.StatusOK, rec.Code, ref)
		assert.Equal(t, grp.ID, got.ID)
	}
	req, rec = newAuthRequest(http.MethodGet, "/api/groups/NOPE", token)
	do(t, req, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// list
	var grps []group.Group
	req, rec = newAuthRequest(http.MethodGet, "/api/groups?search=dev", userToken(t, sg))
	do(t, req, rec, &grps)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, grps, 1)

	// rename follows the trainees
	trn := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", grp)
	name := "DEV102"
	req, rec = newAuthRequest(http.MethodPut, "/api/groups/"+grp.ID, token, group.UpdateGroup{Name: &name})
	do(t, req, rec, &grp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "DEV102", grp.Name)

	var members []trainee.Trainee
	req, rec = newAuthRequest(http.MethodGet, "/api/groups/DEV102/trainees", userToken(t, sg))
	do(t, req, rec, &members)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, members, 1)
	assert.Equal(t, trn.CEF, members[0].CEF)
	assert.Equal(t, "DEV102", members[0].GroupName)

	// a group with members cannot be deleted
	req, rec = newAuthRequest(http.MethodDelete, "/api/groups/"+grp.ID, token)
	do(t, req, rec)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	empty := testutil.CreateGroup(t, repos.Groups, "EMPTY", "", "")
	req, rec = newAuthRequest(http.MethodDelete, "/api/groups/EMPTY", token)
	do(t, req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	req, rec = newAuthRequest(http.MethodGet, "/api/groups/"+empty.ID, token)
	do(t, req, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_groupAPI_absences(t *testing.T) {
	reset()
	prof := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", "", true)
	dev101 := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	amine := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", dev101)
	testutil.CreateTrainee(t, repos.Trainees, "C200", "Bennani", "Sara", dev101)
	testutil.CreateRecord(t, repos.Absences, dev101, prof.ID, "2024-10-07", "08:30", "11:00",
		testutil.NewEntry(amine, absence.StatusAbsent, "08:30", "11:00"))
	testutil.CreateRecord(t, repos.Absences, dev101, prof.ID, "2024-10-09", "13:30", "16:00",
		testutil.NewEntry(amine, absence.StatusLate, "13:30", "16:00"))
	testutil.CreateRecord(t, repos.Absences, dev101, prof.ID, "2024-10-15", "08:30", "11:00")
	token := teacherToken(t, prof)

	tests := []struct {
		name      string
		path      string
		wantCode  int
		wantDates []string
	}{
		{name: "all", path: "/api/groups/DEV101/absences", wantDates: []string{"2024-10-15", "2024-10-09", "2024-10-07"}},
		{name: "from", path: "/api/groups/DEV101/absences?from=2024-10-09", wantDates: []string{"2024-10-15", "2024-10-09"}},
		{name: "range", path: "/api/groups/" + dev101.ID + "/absences?from=2024-10-07&to=2024-10-12", wantDates: []string{"2024-10-09", "2024-10-07"}},
		{name: "bad date", path: "/api/groups/DEV101/absences?from=07/10/2024", wantCode: http.StatusUnprocessableEntity},
		{name: "unknown group", path: "/api/groups/NOPE/absences", wantCode: http.StatusNotFound},
		{name: "alias", path: "/api/absences/group/DEV101?to=2024-10-07", wantDates: []string{"2024-10-07"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			var recs []absence.RecordDetail
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			do(t, req, rec, &recs)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			dates := make([]string, 0, len(recs))
			for _, r := range recs {
				dates = append(dates, r.Date.Format(absence.DateLayout))
			}
			assert.Equal(t, tt.wantDates, dates)
		})
	}

	var report absence.WeeklyReport
	req, rec := newAuthRequest(http.MethodGet, "/api/groups/DEV101/weekly-report?week=2024-10-10", token)
	do(t, req, rec, &report)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-10-07", report.WeekStart)
	require.Len(t, report.Trainees, 2)
	line := report.Trainees[0]
	assert.Equal(t, amine.CEF, line.Trainee.CEF)
	assert.Equal(t, 2.5, line.Week.TotalAbsenceHours)
	assert.Equal(t, 1, line.Week.LateCount)
}
