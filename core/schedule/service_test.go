package schedule_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/schedule"
	"github.com/trezcool/presence/core/teacher"
	inmemdb "github.com/trezcool/presence/storage/database/inmem"
	"github.com/trezcool/presence/tests"
)

type fixture struct {
	svc      *schedule.Service
	groups   group.Repository
	teachers teacher.Repository
	repo     schedule.Repository
}

func setup() fixture {
	db := inmemdb.Open()
	f := fixture{
		groups:   inmemdb.NewGroupRepository(db),
		teachers: inmemdb.NewTeacherRepository(db),
		repo:     inmemdb.NewScheduleRepository(db),
	}
	grpSvc := group.NewService(f.groups)
	f.svc = schedule.NewService(f.repo, teacher.NewService(f.teachers, grpSvc, nil), grpSvc)
	return f
}

func TestService_Create(t *testing.T) {
	f := setup()
	ctx := context.Background()
	grp := testutil.CreateGroup(t, f.groups, "DEV101", "", "")
	t1 := testutil.CreateTeacher(t, f.teachers, "Prof", "prof@test.ma", "T001", "", true)
	t2 := testutil.CreateTeacher(t, f.teachers, "Other", "other@test.ma", "T002", "", true)
	slot := schedule.TimeSlots[2]

	_, err := f.svc.Create(ctx, schedule.NewSchedule{TeacherID: "nope", Sessions: []schedule.Session{testutil.Session("Monday", slot, grp.ID, "A1")}})
	assert.True(t, core.IsValidationError(err), "%v", err)
	_, err = f.svc.Create(ctx, schedule.NewSchedule{TeacherID: t1.ID, Sessions: []schedule.Session{testutil.Session("Monday", slot, "nope", "A1")}})
	assert.True(t, core.IsValidationError(err), "%v", err)

	sch, err := f.svc.Create(ctx, schedule.NewSchedule{TeacherID: t1.ID, Sessions: []schedule.Session{testutil.Session("Monday", slot, grp.ID, "A1")}})
	require.NoError(t, err)
	assert.True(t, sch.IsActive)
	assert.Regexp(t, `^\d{4}-\d{4}$`, sch.AcademicYear)

	// all or nothing: one conflicting session rejects the whole schedule
	_, err = f.svc.Create(ctx, schedule.NewSchedule{TeacherID: t2.ID, Sessions: []schedule.Session{
		testutil.Session("Tuesday", slot, grp.ID, "B2"),
		testutil.Session("Monday", slot, grp.ID, "A1"),
	}})
	require.True(t, schedule.IsConflict(err), "%v", err)
	schs, total, err := f.svc.Query(ctx, &schedule.QueryFilter{TeacherID: t2.ID}, nil, core.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, schs)

	// a teacher's own schedule may be edited without clashing with itself
	us := schedule.UpdateSchedule{Sessions: []schedule.Session{testutil.Session("Monday", slot, grp.ID, "A2")}}
	sch, err = f.svc.Update(ctx, sch.ID, us)
	require.NoError(t, err)
	assert.Equal(t, "A2", sch.Sessions[0].Room)

	mine, err := f.svc.ForTeacher(ctx, t1.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	_, err = f.svc.Deactivate(ctx, sch.ID)
	require.NoError(t, err)
	mine, err = f.svc.ForTeacher(ctx, t1.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestService_Create_concurrent(t *testing.T) {
	f := setup()
	ctx := context.Background()
	grp := testutil.CreateGroup(t, f.groups, "DEV101", "", "")
	slot := schedule.TimeSlots[0]

	const n = 8
	tchrs := make([]teacher.Teacher, n)
	for i := range tchrs {
		id := string(rune('a' + i))
		tchrs[i] = testutil.CreateTeacher(t, f.teachers, "Prof "+id, id+"@test.ma", "T00"+id, "", true)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for _, tchr := range tchrs {
		wg.Add(1)
		go func(teacherID string) {
			defer wg.Done()
			_, err := f.svc.Create(ctx, schedule.NewSchedule{
				TeacherID: teacherID,
				Sessions:  []schedule.Session{testutil.Session("Friday", slot, grp.ID, "A1")},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case schedule.IsConflict(err):
				conflicts++
			default:
				t.Errorf("Create() unexpected error = %v", err)
			}
		}(tchr.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}
