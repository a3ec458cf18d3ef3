package inmemdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/schedule"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/user"
	"github.com/trezcool/presence/storage/database"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	"github.com/trezcool/presence/tests"
)

func TestQueryEntries_idFilters(t *testing.T) {
	repos := database.NewInMemRepositories(inmemdb.Open())
	ctx := context.Background()
	grp := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	trn := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", grp)
	_, entries := testutil.CreateRecord(t, repos.Absences, grp, "", "2024-10-07", "08:30", "11:00",
		testutil.NewEntry(trn, absence.StatusAbsent, "08:30", "11:00"))

	all, err := repos.Absences.QueryEntries(ctx, absence.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := repos.Absences.QueryEntries(ctx, absence.EntryFilter{TraineeIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	some, err := repos.Absences.QueryEntries(ctx, absence.EntryFilter{IDs: []string{entries[0].ID, "nope"}})
	require.NoError(t, err)
	assert.Len(t, some, 1)
}

func TestCreateRecord_keepsEachEntry(t *testing.T) {
	repos := database.NewInMemRepositories(inmemdb.Open())
	ctx := context.Background()
	grp := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	amine := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", grp)
	sara := testutil.CreateTrainee(t, repos.Trainees, "C200", "Bennani", "Sara", grp)
	_, created := testutil.CreateRecord(t, repos.Absences, grp, "", "2024-10-07", "08:30", "11:00",
		testutil.NewEntry(amine, absence.StatusAbsent, "08:30", "11:00"),
		testutil.NewEntry(sara, absence.StatusLate, "08:30", "11:00"))
	require.Len(t, created, 2)
	require.NotEqual(t, created[0].ID, created[1].ID)

	for _, want := range created {
		got, err := repos.Absences.GetEntry(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	tests := []struct {
		trainee   string
		wantState string
		wantHours float64
	}{
		{trainee: amine.ID, wantState: absence.StatusAbsent, wantHours: 2.5},
		{trainee: sara.ID, wantState: absence.StatusLate, wantHours: 1},
	}
	for _, tt := range tests {
		entries, err := repos.Absences.QueryEntries(ctx, absence.EntryFilter{TraineeIDs: []string{tt.trainee}})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, tt.wantState, entries[0].Status)
		assert.Equal(t, tt.wantHours, entries[0].AbsenceHours)
	}
}

func TestCascades(t *testing.T) {
	repos := database.NewInMemRepositories(inmemdb.Open())
	ctx := context.Background()
	grp := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	tchr := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", "", true, grp.ID)
	amine := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", grp)
	sara := testutil.CreateTrainee(t, repos.Trainees, "C200", "Bennani", "Sara", grp)
	rec, _ := testutil.CreateRecord(t, repos.Absences, grp, tchr.ID, "2024-10-07", "08:30", "11:00",
		testutil.NewEntry(amine, absence.StatusAbsent, "08:30", "11:00"),
		testutil.NewEntry(sara, absence.StatusLate, "08:30", "11:00"))
	testutil.CreateSchedule(t, repos.Schedules, tchr.ID, true, testutil.Session("Monday", schedule.TimeSlots[0], grp.ID, "A1"))

	// a trainee takes its entries along
	require.NoError(t, repos.Trainees.DeleteTrainee(ctx, amine.ID))
	entries, err := repos.Absences.QueryEntries(ctx, absence.EntryFilter{RecordIDs: []string{rec.ID}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sara.ID, entries[0].TraineeID)

	// a teacher takes its schedules along and leaves its records
	require.NoError(t, repos.Teachers.DeleteTeacher(ctx, tchr.ID))
	schs, total, err := repos.Schedules.QuerySchedules(ctx, nil, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, schs)
	got, err := repos.Absences.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TeacherID)
	_, err = repos.Teachers.GetTeacher(ctx, teacher.GetFilter{ID: tchr.ID})
	assert.Equal(t, teacher.ErrNotFound, err)

	// deleting every trainee keeps the records
	n, err := repos.Trainees.DeleteAllTrainees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	entries, err = repos.Absences.QueryEntries(ctx, absence.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = repos.Absences.GetRecord(ctx, rec.ID)
	assert.NoError(t, err)
}

func TestUserRepository(t *testing.T) {
	db := inmemdb.Open()
	repo := inmemdb.NewUserRepository(db)
	ctx := context.Background()
	testutil.CreateUser(t, repo, "Zineb", "zineb@test.ma", "", user.RoleSG, true)
	testutil.CreateUser(t, repo, "Admin", "admin@test.ma", "", user.RoleAdmin, false)
	testutil.CreateUser(t, repo, "Youssef", "youssef@test.ma", "", user.RoleSG, true)

	assert.True(t, core.IsDuplicate(repo.CheckEmailUniqueness(ctx, "admin@test.ma")))

	active := true
	usrs, total, err := repo.QueryUsers(ctx, &user.QueryFilter{IsActive: &active}, nil, core.Pagination{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, usrs, 1)
	assert.Equal(t, "Youssef", usrs[0].Name)

	usrs, _, err = repo.QueryUsers(ctx, &user.QueryFilter{Search: "ZIN"}, nil, core.Pagination{})
	require.NoError(t, err)
	require.Len(t, usrs, 1)
	assert.Equal(t, "zineb@test.ma", usrs[0].Email)

	db.Reset()
	_, total, err = repo.QueryUsers(ctx, nil, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
