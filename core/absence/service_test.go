package absence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/storage/database"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	"github.com/trezcool/presence/tests"
)

func setup() (*absence.Service, *database.Repositories) {
	repos := database.NewInMemRepositories(inmemdb.Open())
	grpSvc := group.NewService(repos.Groups)
	trnSvc := trainee.NewService(repos.Trainees, grpSvc)
	tchrSvc := teacher.NewService(repos.Teachers, grpSvc, nil)
	return absence.NewService(repos.Absences, grpSvc, trnSvc, tchrSvc), repos
}

func TestWeekStart(t *testing.T) {
	for in, want := range map[string]string{
		"2024-10-07": "2024-10-07", // monday
		"2024-10-10": "2024-10-07",
		"2024-10-12": "2024-10-07", // saturday
		"2024-10-13": "2024-10-07", // sunday
	} {
		d, err := absence.ParseDate(in)
		require.NoError(t, err)
		assert.Equal(t, want, absence.WeekStart(d).Format(absence.DateLayout), in)
	}
}

func TestService_hours(t *testing.T) {
	svc, repos := setup()
	ctx := context.Background()
	grp := testutil.CreateGroup(t, repos.Groups, "DEV101", "", "")
	amine := testutil.CreateTrainee(t, repos.Trainees, "C100", "Alaoui", "Amine", grp)
	sara := testutil.CreateTrainee(t, repos.Trainees, "C200", "Bennani", "Sara", grp)
	rec, entries := testutil.CreateRecord(t, repos.Absences, grp, "", "2024-10-07", "08:30", "11:00",
		testutil.NewEntry(amine, absence.StatusAbsent, "08:30", "11:00"),
		testutil.NewEntry(sara, absence.StatusAbsent, "08:30", "11:00"))
	testutil.CreateRecord(t, repos.Absences, grp, "", "2024-10-08", "13:30", "16:00",
		testutil.NewEntry(amine, absence.StatusAbsent, "13:30", "16:00"))

	// justified entries stay at 0 whatever happens next
	justified, err := svc.Justify(ctx, entries[1].ID, " certificat médical ", "sg1")
	require.NoError(t, err)
	assert.Zero(t, justified.AbsenceHours)
	assert.Equal(t, "certificat médical", justified.Comment)
	late := absence.StatusLate
	justified, err = svc.UpdateEntry(ctx, justified.ID, absence.UpdateEntry{Status: &late})
	require.NoError(t, err)
	assert.Zero(t, justified.AbsenceHours)

	// a longer session makes absences heavier
	_, err = svc.UpdateRecord(ctx, rec.ID, absence.UpdateRecord{StartTime: "08:00"})
	require.NoError(t, err)
	detail, err := svc.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	for _, e := range detail.Entries {
		if e.ID == entries[0].ID {
			assert.Equal(t, 3.0, e.AbsenceHours)
		} else {
			assert.Zero(t, e.AbsenceHours)
		}
	}

	hist, err := svc.ForTrainee(ctx, amine.CEF)
	require.NoError(t, err)
	assert.Len(t, hist.Entries, 2)
	assert.Equal(t, absence.Summary{TotalAbsenceHours: 5.5, AbsenceCount: 2, Note: 19}, hist.Summary)

	stats, err := svc.WithStats(ctx, []trainee.Trainee{amine, sara})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 5.5, stats[0].TotalAbsenceHours)
	assert.Equal(t, 1, stats[1].LateCount)
	assert.Equal(t, 1, stats[1].JustifiedCount)
	assert.Equal(t, 20.0, stats[1].Note)

	// validating a record validates its entries
	vrec, err := svc.ValidateRecord(ctx, rec.ID, "admin1")
	require.NoError(t, err)
	assert.True(t, vrec.IsValidated)
	detail, err = svc.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	for _, e := range detail.Entries {
		assert.True(t, e.IsValidated)
		assert.Equal(t, "admin1", e.ValidatedBy)
	}

	// ranges are inclusive
	recs, err := svc.ByGroup(ctx, "DEV101", time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC), time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	require.NoError(t, svc.DeleteRecord(ctx, rec.ID))
	hist, err = svc.ForTrainee(ctx, amine.CEF)
	require.NoError(t, err)
	assert.Equal(t, 2.5, hist.Summary.TotalAbsenceHours)
}
