package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/schedule"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/core/user"
)

func stamp(createdAt []time.Time) time.Time {
	if len(createdAt) > 0 {
		return createdAt[0].UTC()
	}
	return time.Now().UTC()
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := stamp(createdAt)
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTeacher(
	t *testing.T,
	repo teacher.Repository,
	name, email, matricule, pwd string,
	isActive bool,
	groupIDs ...string,
) teacher.Teacher {
	t.Helper()
	now := time.Now().UTC()
	if groupIDs == nil {
		groupIDs = []string{}
	}
	tchr := teacher.Teacher{
		Name:      name,
		Email:     email,
		Matricule: matricule,
		IsActive:  isActive,
		GroupIDs:  groupIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := tchr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateTeacher() failed: %v", err)
		}
	}
	tchr, err := repo.CreateTeacher(context.Background(), tchr)
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	return tchr
}

func CreateGroup(t *testing.T, repo group.Repository, name, filiere, annee string, createdAt ...time.Time) group.Group {
	t.Helper()
	tstamp := stamp(createdAt)
	grp, err := repo.CreateGroup(context.Background(), group.Group{
		Name:      name,
		Filiere:   filiere,
		Annee:     annee,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return grp
}

func CreateTrainee(t *testing.T, repo trainee.Repository, cef, name, firstName string, grp group.Group) trainee.Trainee {
	t.Helper()
	now := time.Now().UTC()
	trn, err := repo.CreateTrainee(context.Background(), trainee.Trainee{
		CEF:       cef,
		Name:      name,
		FirstName: firstName,
		GroupID:   grp.ID,
		GroupName: grp.Name,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateTrainee() failed: %v", err)
	}
	return trn
}

// NewEntry returns an unsaved entry of trn, worth the hours of the session between start and end.
func NewEntry(trn trainee.Trainee, status, start, end string) absence.Entry {
	now := time.Now().UTC()
	rec := absence.Record{StartTime: start, EndTime: end}
	return absence.Entry{
		TraineeID:    trn.ID,
		Status:       status,
		AbsenceHours: absence.EntryHours(status, &rec),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateRecord saves a record of grp on date from start to end, with entries.
func CreateRecord(
	t *testing.T,
	repo absence.Repository,
	grp group.Group,
	teacherID, date, start, end string,
	entries ...absence.Entry,
) (absence.Record, []absence.Entry) {
	t.Helper()
	day, err := absence.ParseDate(date)
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	now := time.Now().UTC()
	rec, created, err := repo.CreateRecord(context.Background(), absence.Record{
		Date:      day,
		GroupID:   grp.ID,
		TeacherID: teacherID,
		StartTime: start,
		EndTime:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}, entries)
	if err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	return rec, created
}

func CreateSchedule(t *testing.T, repo schedule.Repository, teacherID string, isActive bool, sessions ...schedule.Session) schedule.Schedule {
	t.Helper()
	now := time.Now().UTC()
	if sessions == nil {
		sessions = []schedule.Session{}
	}
	sch, err := repo.CreateSchedule(context.Background(), schedule.Schedule{
		TeacherID:    teacherID,
		Sessions:     sessions,
		AcademicYear: schedule.AcademicYear(now),
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateSchedule() failed: %v", err)
	}
	return sch
}

func Session(day, slot, groupID, room string) schedule.Session {
	return schedule.Session{
		Day:      day,
		TimeSlot: slot,
		Subject:  "Algorithmique",
		GroupID:  groupID,
		Room:     room,
		Type:     schedule.TypeCours,
	}
}
