package trainee

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

type Trainee struct {
	ID        string    `json:"id"`
	CEF       string    `json:"cef"`
	Name      string    `json:"name"`
	FirstName string    `json:"firstName"`
	GroupName string    `json:"groupName"` // denormalized, kept for query-by-name
	GroupID   string    `json:"groupId,omitempty"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t Trainee) FullName() string {
	if t.FirstName == "" {
		return t.Name
	}
	return t.Name + " " + t.FirstName
}

// NewTrainee contains information needed to create a new Trainee.
// Group is a group ID or name.
type NewTrainee struct {
	CEF       string `json:"cef" validate:"required,max=32,alphanum"`
	Name      string `json:"name" validate:"required,max=128"`
	FirstName string `json:"firstName" validate:"max=128"`
	Group     string `json:"group" validate:"required"`
	Phone     string `json:"phone" validate:"max=32"`
}

func (nt *NewTrainee) Validate(validate *validator.Validate) error {
	nt.CEF = CleanCEF(nt.CEF)
	nt.Name = core.CleanString(nt.Name)
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.Group = core.CleanString(nt.Group)
	nt.Phone = core.CleanString(nt.Phone)
	return validate.Struct(nt)
}

// UpdateTrainee defines what information may be provided to modify an existing Trainee.
// Nil fields are left untouched.
type UpdateTrainee struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=128"`
	FirstName *string `json:"firstName" validate:"omitempty,max=128"`
	Group     *string `json:"group" validate:"omitempty,min=1"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
}

func (ut *UpdateTrainee) Validate(validate *validator.Validate) error {
	for _, fld := range []*string{ut.Name, ut.FirstName, ut.Group, ut.Phone} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	return validate.Struct(ut)
}

type GetFilter struct {
	ID  string
	CEF string
}

type QueryFilter struct {
	Search string `query:"search"` // cef, name or first name
	Group  string `query:"group"`  // group ID or name

	// set by the service once Group is resolved
	GroupID   string
	GroupName string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Group = core.CleanString(qf.Group)
}

// OrderingFields maps API ordering fields to storage fields.
var OrderingFields = map[string]string{
	"cef":       "cef",
	"name":      "name",
	"firstName": "first_name",
	"groupName": "group_name",
	"createdAt": "created_at",
}

// CleanCEF normalizes a CEF code.
func CleanCEF(cef string) string {
	return strings.ToUpper(strings.TrimSpace(cef))
}
