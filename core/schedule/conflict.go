package schedule

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Conflict types
const (
	ConflictTeacher = "teacher"
	ConflictRoom    = "room"
	ConflictGroup   = "group"
)

type (
	// Proposal is one session a teacher would like to hold.
	Proposal struct {
		TeacherID string
		Day       string
		TimeSlot  string
		Room      string
		GroupID   string
	}

	Conflict struct {
		Type       string  `json:"type"`
		Message    string  `json:"message"`
		ScheduleID string  `json:"scheduleId"`
		TeacherID  string  `json:"teacherId"`
		Session    Session `json:"session"`
	}

	Result struct {
		HasConflicts bool       `json:"hasConflicts"`
		Conflicts    []Conflict `json:"conflicts"`
	}

	// SlotFinder finds the active schedules holding at least one session on day and timeSlot.
	SlotFinder interface {
		ActiveSchedulesAt(ctx context.Context, day, timeSlot, excludedID string) ([]Schedule, error)
	}

	Checker struct {
		finder SlotFinder
	}
)

func NewChecker(finder SlotFinder) *Checker {
	return &Checker{finder: finder}
}

// Check reports every teacher, room and group double-booking p would cause against active schedules,
// except the one with ID excludedID. A session may raise several conflict types.
func (c *Checker) Check(ctx context.Context, p Proposal, excludedID string) (Result, error) {
	res := Result{Conflicts: []Conflict{}}
	schedules, err := c.finder.ActiveSchedulesAt(ctx, p.Day, p.TimeSlot, excludedID)
	if err != nil {
		return res, errors.Wrap(err, "finding active schedules")
	}

	for _, sch := range schedules {
		if !sch.IsActive || sch.ID == excludedID {
			continue
		}
		for _, s := range sch.Sessions {
			if s.Day != p.Day || s.TimeSlot != p.TimeSlot {
				continue
			}
			if sch.TeacherID == p.TeacherID {
				res.add(ConflictTeacher, fmt.Sprintf("teacher already teaches %s on %s %s", s.Subject, s.Day, s.TimeSlot), sch, s)
			}
			if p.Room != "" && s.Room == p.Room {
				res.add(ConflictRoom, fmt.Sprintf("room %s is already booked on %s %s", s.Room, s.Day, s.TimeSlot), sch, s)
			}
			if p.GroupID != "" && s.GroupID == p.GroupID {
				res.add(ConflictGroup, fmt.Sprintf("group already has %s on %s %s", s.Subject, s.Day, s.TimeSlot), sch, s)
			}
		}
	}
	return res, nil
}

func (r *Result) add(typ, msg string, sch Schedule, s Session) {
	r.HasConflicts = true
	r.Conflicts = append(r.Conflicts, Conflict{
		Type:       typ,
		Message:    msg,
		ScheduleID: sch.ID,
		TeacherID:  sch.TeacherID,
		Session:    s,
	})
}

func (r *Result) merge(other Result) {
	r.HasConflicts = r.HasConflicts || other.HasConflicts
	r.Conflicts = append(r.Conflicts, other.Conflicts...)
}

// ConflictError rejects a schedule write that would double-book a teacher, room or group.
type ConflictError struct {
	Result Result
}

func (err ConflictError) Error() string {
	return fmt.Sprintf("schedule conflicts with %d existing session(s)", len(err.Result.Conflicts))
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}
