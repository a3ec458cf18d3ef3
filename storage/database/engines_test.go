package database

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/schedule"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/core/user"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	mongorepos "github.com/trezcool/presence/storage/database/mongo"
	"github.com/trezcool/presence/tests"
)

func TestEngines_Memory(t *testing.T) {
	exerciseRepositories(t, NewInMemRepositories(inmemdb.Open()))
}

func TestEngines_Postgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Open("postgres", url)
	require.NoError(t, err)
	require.NoError(t, ping(db.DB))
	require.NoError(t, Migrate(db.DB))
	_, err = db.Exec(`TRUNCATE "user", teacher, "group", trainee, absence_record, trainee_absence, schedule CASCADE`)
	require.NoError(t, err)

	repos := NewPostgresRepositories(db)
	defer func() { assert.NoError(t, repos.Close()) }()
	exerciseRepositories(t, repos)
}

func TestEngines_Mongo(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("presence_test_" + uuid.New().String()[:8])
	defer func() { assert.NoError(t, db.Drop(ctx)) }()
	require.NoError(t, mongorepos.EnsureIndexes(ctx, db))

	repos := NewMongoRepositories(client, db)
	defer func() { assert.NoError(t, repos.Close()) }()
	exerciseRepositories(t, repos)
}

// exerciseRepositories runs the behaviour every engine must share.
func exerciseRepositories(t *testing.T, repos *Repositories) {
	ctx := context.Background()

	// users
	admin := testutil.CreateUser(t, repos.Users, "Admin", "admin@test.ma", "", user.RoleAdmin, true)
	_, err := repos.Users.CreateUser(ctx, user.User{Name: "Dup", Email: "admin@test.ma", Role: user.RoleSG})
	assert.True(t, core.IsDuplicate(err), "duplicate user email: %v", err)
	usr, err := repos.Users.GetUser(ctx, user.GetFilter{Email: "admin@test.ma"})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, usr.ID)
	_, err = repos.Users.GetUser(ctx, user.GetFilter{ID: uuid.New().String()})
	assert.True(t, errors.Is(err, user.ErrNotFound))

	// groups and trainees
	dev101 := testutil.CreateGroup(t, repos.Groups, "DEV101", "Développement Digital", "1A")
	dev102 := testutil.CreateGroup(t, repos.Groups, "DEV102", "Développement Digital", "1A")
	_, err = repos.Groups.CreateGroup(ctx, group.Group{Name: "DEV101"})
	assert.True(t, core.IsDuplicate(err), "duplicate group name: %v", err)
	grp, err := repos.Groups.GetGroup(ctx, group.GetFilter{Name: "DEV102"})
	require.NoError(t, err)
	assert.Equal(t, dev102.ID, grp.ID)

	amine := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", dev101)
	sara := testutil.CreateTrainee(t, repos.Trainees, "C200", "Bennani", "Sara", dev101)
	testutil.CreateTrainee(t, repos.Trainees, "C300", "Chraibi", "Omar", dev102)
	_, err = repos.Trainees.CreateTrainee(ctx, trainee.Trainee{CEF: "C100", Name: "X", FirstName: "Y", GroupID: dev101.ID})
	assert.True(t, core.IsDuplicate(err), "duplicate cef: %v", err)

	trns, total, err := repos.Trainees.QueryTrainees(ctx, &trainee.QueryFilter{GroupID: dev101.ID, GroupName: dev101.Name},
		[]core.DBOrdering{{Field: "cef", Ascending: false}}, core.Pagination{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, trns, 1)
	assert.Equal(t, sara.ID, trns[0].ID)

	members, err := repos.Groups.CountMembers(ctx, dev101.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, members)

	// renaming a group renames its trainees' group name
	dev101.Name = "DEV-101"
	dev101, err = repos.Groups.UpdateGroup(ctx, dev101)
	require.NoError(t, err)
	trn, err := repos.Trainees.GetTrainee(ctx, trainee.GetFilter{CEF: "C100"})
	require.NoError(t, err)
	assert.Equal(t, "DEV-101", trn.GroupName)

	// teachers
	prof := testutil.CreateTeacher(t, repos.Teachers, "Prof", "prof@test.ma", "T001", "", true, dev101.ID)
	err = repos.Teachers.CheckUniqueness(ctx, "Other", "other@test.ma", "T001")
	assert.True(t, core.IsDuplicate(err), "duplicate matricule: %v", err)
	assert.NoError(t, repos.Teachers.CheckUniqueness(ctx, "Prof", "prof@test.ma", "T001", prof.ID))
	tchrs, total, err := repos.Teachers.QueryTeachers(ctx, &teacher.QueryFilter{Search: "PROF", GroupID: dev101.ID}, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tchrs, 1)
	assert.Equal(t, []string{dev101.ID}, tchrs[0].GroupIDs)

	// absences
	rec, entries := testutil.CreateRecord(t, repos.Absences, dev101, prof.ID, "2024-10-07", "08:30", "11:00",
		testutil.NewEntry(amine, absence.StatusAbsent, "08:30", "11:00"),
		testutil.NewEntry(sara, absence.StatusLate, "08:30", "11:00"))
	require.Len(t, entries, 2)
	assert.Equal(t, 2.5, entries[0].AbsenceHours)
	assert.Equal(t, rec.ID, entries[0].RecordID)

	from, _ := absence.ParseDate("2024-10-07")
	recs, err := repos.Absences.QueryRecords(ctx, absence.RecordFilter{GroupID: dev101.ID, From: from, To: from})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "08:30", recs[0].StartTime)

	late, err := repos.Absences.QueryEntries(ctx, absence.EntryFilter{RecordIDs: []string{rec.ID}, Status: absence.StatusLate})
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, sara.ID, late[0].TraineeID)
	none, err := repos.Absences.QueryEntries(ctx, absence.EntryFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	late[0].IsJustified = true
	late[0].AbsenceHours = 0
	require.NoError(t, repos.Absences.UpdateEntries(ctx, late[0]))
	got, err := repos.Absences.GetEntry(ctx, late[0].ID)
	require.NoError(t, err)
	assert.True(t, got.IsJustified)
	assert.Zero(t, got.AbsenceHours)

	assert.True(t, errors.Is(repos.Groups.DeleteGroup(ctx, dev101.ID), group.ErrHasRecords))

	// schedules
	monday := schedule.TimeSlots[0]
	sch := testutil.CreateSchedule(t, repos.Schedules, prof.ID, true, testutil.Session("Monday", monday, dev101.ID, "A1"))
	testutil.CreateSchedule(t, repos.Schedules, prof.ID, false, testutil.Session("Monday", monday, dev102.ID, "B2"))
	active, err := repos.Schedules.ActiveSchedulesAt(ctx, "Monday", monday, "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, sch.ID, active[0].ID)
	active, err = repos.Schedules.ActiveSchedulesAt(ctx, "Monday", monday, sch.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
	schs, total, err := repos.Schedules.QuerySchedules(ctx, &schedule.QueryFilter{GroupID: dev102.ID}, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, schs, 1)

	// deleting a teacher takes its schedules and keeps its records
	require.NoError(t, repos.Teachers.DeleteTeacher(ctx, prof.ID))
	_, err = repos.Schedules.GetSchedule(ctx, sch.ID)
	assert.True(t, errors.Is(err, schedule.ErrNotFound))
	rec, err = repos.Absences.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, rec.TeacherID)

	// deleting a trainee takes its entries
	require.NoError(t, repos.Trainees.DeleteTrainee(ctx, amine.ID))
	left, err := repos.Absences.QueryEntries(ctx, absence.EntryFilter{RecordIDs: []string{rec.ID}})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, sara.ID, left[0].TraineeID)

	// deleting every trainee keeps the records
	n, err := repos.Trainees.DeleteAllTrainees(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = repos.Absences.GetRecord(ctx, rec.ID)
	assert.NoError(t, err)

	require.NoError(t, repos.Absences.DeleteRecord(ctx, rec.ID))
	require.NoError(t, repos.Groups.DeleteGroup(ctx, dev101.ID))
	_, err = repos.Groups.GetGroup(ctx, group.GetFilter{ID: dev101.ID})
	assert.True(t, errors.Is(err, group.ErrNotFound))
}
