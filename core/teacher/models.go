package teacher

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

type Teacher struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Matricule          string    `json:"matricule"`
	PasswordHash       []byte    `json:"-"`
	MustChangePassword bool      `json:"mustChangePassword"`
	IsActive           bool      `json:"isActive"`
	GroupIDs           []string  `json:"groupIds"`
	ScheduleFile       string    `json:"scheduleFile,omitempty"` // path relative to the upload dir
	CreatedAt          time.Time `json:"createdAt"`                // UTC
	UpdatedAt          time.Time `json:"updatedAt"`                // UTC
	LastLogin          time.Time `json:"lastLogin"`                // UTC
}

func (t *Teacher) SetPassword(pwd string) error {
	hash, err := core.HashPassword(pwd)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

func (t *Teacher) CheckPassword(pwd string) error {
	return core.CheckPassword(t.PasswordHash, pwd)
}

// Teaches reports whether the teacher is assigned to the group.
func (t *Teacher) Teaches(groupID string) bool {
	for _, id := range t.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}

// NewTeacher contains information needed to create a new Teacher.
// A temporary password is generated when Password is blank.
type NewTeacher struct {
	Name      string   `json:"name" validate:"required,max=128"`
	Email     string   `json:"email" validate:"required,email"`
	Matricule string   `json:"matricule" validate:"required,max=32,alphanum_"`
	Password  string   `json:"password"`
	GroupIDs  []string `json:"groupIds"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Matricule = CleanMatricule(nt.Matricule)
	return validate.Struct(nt)
}

// UpdateTeacher defines what information may be provided to modify an existing Teacher.
// Nil fields are left untouched.
type UpdateTeacher struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=128"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Matricule *string `json:"matricule" validate:"omitempty,max=32,alphanum_"`
	IsActive  *bool   `json:"isActive"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate) error {
	if ut.Name != nil {
		v := core.CleanString(*ut.Name)
		ut.Name = &v
	}
	if ut.Email != nil {
		v := core.CleanString(*ut.Email, true /* lower */)
		ut.Email = &v
	}
	if ut.Matricule != nil {
		v := CleanMatricule(*ut.Matricule)
		ut.Matricule = &v
	}
	return validate.Struct(ut)
}

// AssignGroups replaces the groups of a teacher.
type AssignGroups struct {
	GroupIDs []string `json:"groupIds" validate:"required,dive,required"`
}

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search   string `query:"search"` // name, email or matricule
	GroupID  string `query:"groupId"`
	IsActive *bool  `query:"isActive"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.GroupID = core.CleanString(qf.GroupID)
}

// OrderingFields maps API ordering fields to storage fields.
var OrderingFields = map[string]string{
	"name":      "name",
	"email":     "email",
	"matricule": "matricule",
	"isActive":  "is_active",
	"createdAt": "created_at",
	"lastLogin": "last_login",
}

// CleanMatricule normalizes a staff number.
func CleanMatricule(m string) string {
	return strings.ToUpper(strings.TrimSpace(m))
}
