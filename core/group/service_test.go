package group_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/group"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	"github.com/trezcool/presence/tests"
)

func TestService(t *testing.T) {
	db := inmemdb.Open()
	repo := inmemdb.NewGroupRepository(db)
	svc := group.NewService(repo)
	ctx := context.Background()

	grp, err := svc.Create(ctx, group.NewGroup{Name: "DEV101", Filiere: "Développement digital"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, group.NewGroup{Name: "DEV101"})
	assert.True(t, core.IsDuplicate(err), "%v", err)

	// resolve by ID or name
	for _, ref := range []string{grp.ID, "DEV101", "  DEV101 "} {
		got, err := svc.Resolve(ctx, ref)
		require.NoError(t, err, ref)
		assert.Equal(t, grp.ID, got.ID)
	}
	_, err = svc.Resolve(ctx, "dev101")
	assert.True(t, core.IsNotFound(err))

	// get or create
	got, created, err := svc.GetOrCreate(ctx, " DEV101")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, grp.ID, got.ID)
	got, created, err = svc.GetOrCreate(ctx, "DEV  102")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "DEV 102", got.Name)
	_, _, err = svc.GetOrCreate(ctx, "   ")
	assert.True(t, core.IsValidationError(err))

	// update keeps untouched fields
	annee := "2A"
	grp, err = svc.Update(ctx, grp.ID, group.UpdateGroup{Annee: &annee})
	require.NoError(t, err)
	assert.Equal(t, "Développement digital", grp.Filiere)
	assert.Equal(t, "2A", grp.Annee)

	// delete guards
	trn := testutil.CreateTrainee(t, inmemdb.NewTraineeRepository(db), "C100", "Alaoui", "Amine", grp)
	assert.True(t, core.IsValidationError(svc.Delete(ctx, grp.ID)))

	absRepo := inmemdb.NewAbsenceRepository(db)
	rec, _ := testutil.CreateRecord(t, absRepo, grp, "", "2024-10-07", "08:30", "11:00",
		testutil.NewEntry(trn, absence.StatusAbsent, "08:30", "11:00"))
	require.NoError(t, inmemdb.NewTraineeRepository(db).DeleteTrainee(ctx, trn.ID))
	assert.Equal(t, group.ErrHasRecords, svc.Delete(ctx, grp.ID))

	require.NoError(t, absRepo.DeleteRecord(ctx, rec.ID))
	require.NoError(t, svc.Delete(ctx, grp.ID))
	_, err = svc.GetByID(ctx, grp.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, grp.ID)))
}
