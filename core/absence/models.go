package absence

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

// DateLayout is the layout of session dates.
const DateLayout = "2006-01-02"

// Statuses
const (
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusPresent = "present"
)

var AllStatuses = []string{StatusAbsent, StatusLate, StatusPresent}

// Record is one scheduled session instance for which attendance was taken.
type Record struct {
	ID          string     `json:"id"`
	Date        time.Time  `json:"date"` // UTC midnight
	GroupID     string     `json:"groupId"`
	TeacherID   string     `json:"teacherId,omitempty"`
	StartTime   string     `json:"startTime"` // HH:mm
	EndTime     string     `json:"endTime"`   // HH:mm
	IsValidated bool       `json:"isValidated"`
	ValidatedBy string     `json:"validatedBy,omitempty"`
	ValidatedAt *time.Time `json:"validatedAt,omitempty"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Entry is one trainee's outcome for one Record.
type Entry struct {
	ID           string     `json:"id"`
	TraineeID    string     `json:"traineeId"`
	RecordID     string     `json:"recordId"`
	Status       string     `json:"status"`
	IsValidated  bool       `json:"isValidated"`
	IsJustified  bool       `json:"isJustified"`
	Comment      string     `json:"comment"`
	AbsenceHours float64    `json:"absenceHours"`
	ValidatedBy  string     `json:"validatedBy,omitempty"`
	ValidatedAt  *time.Time `json:"validatedAt,omitempty"`
	JustifiedBy  string     `json:"justifiedBy,omitempty"`
	JustifiedAt  *time.Time `json:"justifiedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// TakeAttendance contains the outcome of one session.
// Group may be a group ID or name. Trainees missing from Entries are considered present.
type TakeAttendance struct {
	Date      string            `json:"date" validate:"required,datetime=2006-01-02"`
	Group     string            `json:"group" validate:"required"`
	TeacherID string            `json:"teacherId"`
	StartTime string            `json:"startTime" validate:"required,hhmm"`
	EndTime   string            `json:"endTime" validate:"required,hhmm"`
	Entries   []AttendanceEntry `json:"entries" validate:"dive"`
}

// AttendanceEntry is one trainee's status. Trainee may be a trainee ID or CEF.
type AttendanceEntry struct {
	Trainee string `json:"trainee" validate:"required"`
	Status  string `json:"status" validate:"required,status"`
	Comment string `json:"comment" validate:"max=512"`
}

func (ta *TakeAttendance) Validate(validate *validator.Validate) error {
	ta.Date = core.CleanString(ta.Date)
	ta.Group = core.CleanString(ta.Group)
	ta.TeacherID = core.CleanString(ta.TeacherID)
	ta.StartTime = core.CleanString(ta.StartTime)
	ta.EndTime = core.CleanString(ta.EndTime)
	for i := range ta.Entries {
		ta.Entries[i].Trainee = core.CleanString(ta.Entries[i].Trainee)
		ta.Entries[i].Status = core.CleanString(ta.Entries[i].Status, true /* lower */)
		ta.Entries[i].Comment = core.CleanString(ta.Entries[i].Comment)
	}
	return validate.Struct(ta)
}

// UpdateEntry defines what may be changed on an Entry. Nil fields are left untouched.
type UpdateEntry struct {
	Status  *string `json:"status" validate:"omitempty,status"`
	Comment *string `json:"comment" validate:"omitempty,max=512"`
}

func (ue *UpdateEntry) Validate(validate *validator.Validate) error {
	if ue.Status != nil {
		s := core.CleanString(*ue.Status, true /* lower */)
		ue.Status = &s
	}
	if ue.Comment != nil {
		c := core.CleanString(*ue.Comment)
		ue.Comment = &c
	}
	return validate.Struct(ue)
}

// UpdateRecord defines what may be changed on a Record. Blank fields are left untouched.
type UpdateRecord struct {
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	TeacherID string `json:"teacherId"`
	StartTime string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime   string `json:"endTime" validate:"omitempty,hhmm"`
}

func (ur *UpdateRecord) Validate(validate *validator.Validate) error {
	ur.Date = core.CleanString(ur.Date)
	ur.TeacherID = core.CleanString(ur.TeacherID)
	ur.StartTime = core.CleanString(ur.StartTime)
	ur.EndTime = core.CleanString(ur.EndTime)
	return validate.Struct(ur)
}

// Justification marks entries as justified.
type Justification struct {
	Comment string `json:"comment" validate:"max=512"`
}

// RecordFilter filters records. Zero fields are ignored.
type RecordFilter struct {
	IDs         []string
	GroupID     string
	TeacherID   string
	From        time.Time // inclusive
	To          time.Time // inclusive
	IsValidated *bool
}

// EntryFilter filters entries. Zero fields are ignored, except ID lists: a non-nil empty list matches nothing.
type EntryFilter struct {
	IDs         []string
	TraineeIDs  []string
	RecordIDs   []string
	Status      string
	IsJustified *bool
	IsValidated *bool
}

// QueryFilter is the API filter of entries.
type QueryFilter struct {
	Group       string `query:"group"`   // group ID or name
	Trainee     string `query:"trainee"` // trainee ID or CEF
	Status      string `query:"status"`
	From        string `query:"from"` // YYYY-MM-DD
	To          string `query:"to"`   // YYYY-MM-DD
	IsJustified *bool  `query:"isJustified"`
	IsValidated *bool  `query:"isValidated"`
}

func (qf *QueryFilter) Clean() {
	qf.Group = core.CleanString(qf.Group)
	qf.Trainee = core.CleanString(qf.Trainee)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.From = core.CleanString(qf.From)
	qf.To = core.CleanString(qf.To)
}

// ParseDate parses a YYYY-MM-DD date as UTC midnight. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
