package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/core/user"
	"github.com/trezcool/presence/tests"
)

func Test_traineeAPI_query(t *testing.T) {
	reset()
	admin := testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", "", user.RoleAdmin, true)
	prof := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", "", true)
	dev101 := testutil.CreateGroup(t, repos.Groups, "DEV101", "Developpement digital", "1A")
	dev102 := testutil.CreateGroup(t, repos.Groups, "DEV102", "Developpement digital", "1A")
	amine := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", dev101)
	sara := testutil.CreateTrainee(t, repos.Trainees, "C200", "Bennani", "Sara", dev101)
	omar := testutil.CreateTrainee(t, repos.Trainees, "C300", "Chraibi", "Omar", dev102)

	tests := []struct {
		name      string
		path      string
		token     string
		wantCode  int
		wantCEFs  []string
		wantTotal int
	}{
		{name: "auth required", path: "/api/trainees", wantCode: http.StatusUnauthorized},
		{name: "all", path: "/api/trainees", token: userToken(t, admin), wantCEFs: []string{amine.CEF, sara.CEF, omar.CEF}, wantTotal: 3},
		{name: "teacher can read", path: "/api/trainees", token: teacherToken(t, prof), wantCEFs: []string{amine.CEF, sara.CEF, omar.CEF}, wantTotal: 3},
		{name: "by group name", path: "/api/trainees?group=DEV101", token: userToken(t, admin), wantCEFs: []string{amine.CEF, sara.CEF}, wantTotal: 2},
		{name: "by group ID", path: "/api/trainees?group=" + dev102.ID, token: userToken(t, admin), wantCEFs: []string{omar.CEF}, wantTotal: 1},
		{name: "unknown group", path: "/api/trainees?group=NOPE", token: userToken(t, admin), wantCEFs: []string{}, wantTotal: 0},
		{name: "search", path: "/api/trainees?search=sar", token: userToken(t, admin), wantCEFs: []string{sara.CEF}, wantTotal: 1},
		{name: "ordering", path: "/api/trainees?ordering=-name", token: userToken(t, admin), wantCEFs: []string{omar.CEF, sara.CEF, amine.CEF}, wantTotal: 3},
		{name: "paginated", path: "/api/trainees?limit=2&page=2", token: userToken(t, admin), wantCEFs: []string{omar.CEF}, wantTotal: 3},
		{name: "bad page", path: "/api/trainees?page=x", token: userToken(t, admin), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			var trns []trainee.Trainee
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			res := do(t, req, rec, &trns)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			cefs := make([]string, 0, len(trns))
			for _, trn := range trns {
				cefs = append(cefs, trn.CEF)
			}
			assert.Equal(t, tt.wantCEFs, cefs)
			require.NotNil(t, res.Pagination)
			assert.Equal(t, tt.wantTotal, res.Pagination.Total)
		})
	}
}

func Test_traineeAPI_crud(t *testing.T) {
	reset()
	sg := testutil.CreateUser(t, repos.Users, "Surveillant", "sg@test.ma", "", user.RoleSG, true)
	prof := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", "", true)
	dev101 := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	testutil.CreateGroup(t, repos.Groups, "DEV102", "", "")
	token := userToken(t, sg)

	// teachers cannot write
	req, rec := newAuthRequest(http.MethodPost, "/api/trainees", teacherToken(t, prof), trainee.NewTrainee{CEF: "C1", Name: "X", Group: "DEV101"})
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// validation
	req, rec = newAuthRequest(http.MethodPost, "/api/trainees", token, trainee.NewTrainee{Name: "X"})
	res := do(t, req, rec)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, res.Errors)

	// unknown group
	req, rec = newAuthRequest(http.MethodPost, "/api/trainees", token, trainee.NewTrainee{CEF: "C1", Name: "X", Group: "NOPE"})
	res = do(t, req, rec)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "group", res.Errors[0].Field)

	// create
	var trn trainee.Trainee
	req, rec = newAuthRequest(http.MethodPost, "/api/trainees", token, trainee.NewTrainee{CEF: " c1 ", Name: "Alaoui", FirstName: "Amine", Group: "DEV101"})
	do(t, req, rec, &trn)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "C1", trn.CEF)
	assert.Equal(t, dev101.ID, trn.GroupID)
	assert.Equal(t, "DEV101", trn.GroupName)

	// duplicate
	req, rec = newAuthRequest(http.MethodPost, "/api/trainees", token, trainee.NewTrainee{CEF: "C1", Name: "Other", Group: "DEV101"})
	res = do(t, req, rec)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cef", res.Errors[0].Field)

	// retrieve
	req, rec = newAuthRequest(http.MethodGet, "/api/trainees/C1", token)
	do(t, req, rec, &trn)
	assert.Equal(t, http.StatusOK, rec.Code)
	req, rec = newAuthRequest(http.MethodGet, "/api/trainees/C404", token)
	do(t, req, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// update (move group)
	grp := "DEV102"
	req, rec = newAuthRequest(http.MethodPut, "/api/trainees/C1", token, trainee.UpdateTrainee{Group: &grp})
	do(t, req, rec, &trn)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "DEV102", trn.GroupName)

	// absences of a trainee without any
	var abs absence.TraineeAbsences
	req, rec = newAuthRequest(http.MethodGet, "/api/trainees/C1/absences", teacherToken(t, prof))
	do(t, req, rec, &abs)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "C1", abs.Trainee.CEF)
	assert.Empty(t, abs.Entries)

	// delete
	req, rec = newAuthRequest(http.MethodDelete, "/api/trainees/C1", token)
	do(t, req, rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	req, rec = newAuthRequest(http.MethodDelete, "/api/trainees/C1", token)
	do(t, req, rec)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_traineeAPI_importFile(t *testing.T) {
	reset()
	admin := testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", "", user.RoleAdmin, true)
	sg := testutil.CreateUser(t, repos.Users, "Surveillant", "sg@test.ma", "", user.RoleSG, true)
	dev101 := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", dev101)
	csv := []byte("CEF;Nom;Prénom;Groupe;Téléphone\n" +
		"C100;Alaoui;Amine;DEV101;0600000000\n" +
		"C200;Bennani;Sara;DEV102;\n" +
		";Sans;Code;DEV101;\n")

	// no file
	req, rec := newAuthRequest(http.MethodPost, "/api/trainees/import", userToken(t, sg))
	do(t, req, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unsupported format
	req, rec = newFileRequest(t, http.MethodPost, "/api/trainees/import", userToken(t, sg), "file", "trainees.txt", csv, nil)
	do(t, req, rec)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var report trainee.ImportReport
	req, rec = newFileRequest(t, http.MethodPost, "/api/trainees/import", userToken(t, sg), "file", "trainees.csv", csv, nil)
	do(t, req, rec, &report)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"DEV102"}, report.GroupsCreated)
	assert.Len(t, report.Errors, 1)

	report = trainee.ImportReport{}
	req, rec = newFileRequest(t, http.MethodPost, "/api/trainees/import", userToken(t, sg), "file", "trainees.csv", csv,
		map[string]string{"updateExisting": "true"})
	do(t, req, rec, &report)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 2, report.Updated)

	// delete-all is admin only
	req, rec = newAuthRequest(http.MethodDelete, "/api/trainees/delete-all", userToken(t, sg))
	do(t, req, rec)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var deleted map[string]int
	req, rec = newAuthRequest(http.MethodDelete, "/api/trainees/delete-all", userToken(t, admin))
	do(t, req, rec, &deleted)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, deleted["deleted"])
}

func Test_traineeAPI_queryWithStats(t *testing.T) {
	reset()
	admin := testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", "", user.RoleAdmin, true)
	dev101 := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	amine := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", dev101)
	sara := testutil.CreateTrainee(t, repos.Trainees, "C200", "Bennani", "Sara", dev101)
	testutil.CreateRecord(t, repos.Absences, dev101, "", "2024-10-07", "08:30", "11:00",
		testutil.NewEntry(amine, absence.StatusAbsent, "08:30", "11:00"))
	testutil.CreateRecord(t, repos.Absences, dev101, "", "2024-10-08", "08:30", "11:00",
		testutil.NewEntry(amine, absence.StatusLate, "08:30", "11:00"),
		testutil.NewEntry(sara, absence.StatusAbsent, "08:30", "11:00"))

	var stats []absence.TraineeStats
	req, rec := newAuthRequest(http.MethodGet, "/api/trainees/with-stats", userToken(t, admin))
	do(t, req, rec, &stats)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, stats, 2)
	assert.Equal(t, amine.CEF, stats[0].CEF)
	assert.Equal(t, 2.5, stats[0].TotalAbsenceHours)
	assert.Equal(t, 1, stats[0].LateCount)
	assert.Equal(t, sara.CEF, stats[1].CEF)
	assert.Equal(t, 2.5, stats[1].TotalAbsenceHours)
}
