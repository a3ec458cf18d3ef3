package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

// Days
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// TimeSlots are the four fixed 2.5h bands of a school day.
var TimeSlots = []string{"08:30-11:00", "11:00-13:30", "13:30-16:00", "16:00-18:30"}

// Session types
const (
	TypeCours = "Cours"
	TypeTD    = "TD"
	TypeTP    = "TP"
)

var SessionTypes = []string{TypeCours, TypeTD, TypeTP}

// frenchDays lets imports and clients use french day names.
var frenchDays = map[string]string{
	"lundi":    "Monday",
	"mardi":    "Tuesday",
	"mercredi": "Wednesday",
	"jeudi":    "Thursday",
	"vendredi": "Friday",
	"samedi":   "Saturday",
}

// Session is one weekly class slot. Sessions have no identity outside their Schedule.
type Session struct {
	Day      string `json:"day" bson:"day" validate:"required,weekday"`
	TimeSlot string `json:"timeSlot" bson:"timeSlot" validate:"required,timeslot"`
	Subject  string `json:"subject" bson:"subject" validate:"required,max=128"`
	GroupID  string `json:"groupId" bson:"groupId" validate:"required"`
	Room     string `json:"room" bson:"room" validate:"max=32"`
	Type     string `json:"type" bson:"type" validate:"required,sessiontype"`
	Notes    string `json:"notes" bson:"notes" validate:"max=512"`
}

func (s *Session) clean() {
	s.Day = CleanDay(s.Day)
	s.TimeSlot = strings.ReplaceAll(core.CleanString(s.TimeSlot), " ", "")
	s.Subject = core.CleanString(s.Subject)
	s.GroupID = core.CleanString(s.GroupID)
	s.Room = strings.ToUpper(core.CleanString(s.Room))
	s.Type = cleanType(s.Type)
	s.Notes = core.CleanString(s.Notes)
}

func (s Session) slotKey() string {
	return s.Day + " " + s.TimeSlot
}

// Schedule is one teacher's weekly plan.
type Schedule struct {
	ID           string    `json:"id"`
	TeacherID    string    `json:"teacherId"`
	Sessions     []Session `json:"sessions"`
	WeekNumber   int       `json:"weekNumber"`
	AcademicYear string    `json:"academicYear"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewSchedule contains information needed to create a new Schedule.
// AcademicYear defaults to the current one.
type NewSchedule struct {
	TeacherID    string    `json:"teacherId" validate:"required"`
	Sessions     []Session `json:"sessions" validate:"required,min=1,dive"`
	WeekNumber   int       `json:"weekNumber" validate:"min=0,max=53"`
	AcademicYear string    `json:"academicYear" validate:"omitempty,academicyear"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.TeacherID = core.CleanString(ns.TeacherID)
	ns.AcademicYear = core.CleanString(ns.AcademicYear)
	for i := range ns.Sessions {
		ns.Sessions[i].clean()
	}
	return validate.Struct(ns)
}

// UpdateSchedule defines what information may be provided to modify an existing Schedule.
// Nil fields are left untouched; Sessions replaces the whole list.
type UpdateSchedule struct {
	Sessions     []Session `json:"sessions" validate:"omitempty,min=1,dive"`
	WeekNumber   *int      `json:"weekNumber" validate:"omitempty,min=0,max=53"`
	AcademicYear *string   `json:"academicYear" validate:"omitempty,academicyear"`
	IsActive     *bool     `json:"isActive"`
}

func (us *UpdateSchedule) Validate(validate *validator.Validate) error {
	if us.AcademicYear != nil {
		y := core.CleanString(*us.AcademicYear)
		us.AcademicYear = &y
	}
	for i := range us.Sessions {
		us.Sessions[i].clean()
	}
	return validate.Struct(us)
}

// CheckRequest asks whether sessions would conflict, without writing anything.
type CheckRequest struct {
	TeacherID         string    `json:"teacherId" validate:"required"`
	Sessions          []Session `json:"sessions" validate:"required,min=1,dive"`
	ExcludeScheduleID string    `json:"excludeScheduleId"`
}

func (cr *CheckRequest) Validate(validate *validator.Validate) error {
	cr.TeacherID = core.CleanString(cr.TeacherID)
	cr.ExcludeScheduleID = core.CleanString(cr.ExcludeScheduleID)
	for i := range cr.Sessions {
		cr.Sessions[i].clean()
	}
	return validate.Struct(cr)
}

type QueryFilter struct {
	TeacherID    string `query:"teacherId"`
	GroupID      string `query:"groupId"`
	AcademicYear string `query:"academicYear"`
	WeekNumber   *int   `query:"weekNumber"`
	IsActive     *bool  `query:"isActive"`
}

func (qf *QueryFilter) Clean() {
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.GroupID = core.CleanString(qf.GroupID)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}

// OrderingFields maps API ordering fields to storage fields.
var OrderingFields = map[string]string{
	"weekNumber":   "week_number",
	"academicYear": "academic_year",
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
}

// AcademicYear returns the academic year t falls in. Years roll over in September.
func AcademicYear(t time.Time) string {
	y := t.Year()
	if t.Month() >= time.September {
		return fmt.Sprintf("%d-%d", y, y+1)
	}
	return fmt.Sprintf("%d-%d", y-1, y)
}

// CleanDay normalizes english or french day names ("lundi", "MONDAY") to their english title.
func CleanDay(day string) string {
	day = strings.ToLower(core.CleanString(day))
	if en, ok := frenchDays[day]; ok {
		return en
	}
	if day == "" {
		return ""
	}
	return strings.ToUpper(day[:1]) + day[1:]
}

func cleanType(t string) string {
	t = core.CleanString(t)
	for _, st := range SessionTypes {
		if strings.EqualFold(st, t) {
			return st
		}
	}
	return t
}
