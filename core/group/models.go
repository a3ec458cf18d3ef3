package group

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Filiere   string    `json:"filiere"` // program
	Annee     string    `json:"annee"`   // study year
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name    string `json:"name" validate:"required,max=64"`
	Filiere string `json:"filiere" validate:"max=128"`
	Annee   string `json:"annee" validate:"max=16"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = CleanName(ng.Name)
	ng.Filiere = core.CleanString(ng.Filiere)
	ng.Annee = core.CleanString(ng.Annee)
	return validate.Struct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
// Nil fields are left untouched.
type UpdateGroup struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=64"`
	Filiere *string `json:"filiere" validate:"omitempty,max=128"`
	Annee   *string `json:"annee" validate:"omitempty,max=16"`
}

func (ug *UpdateGroup) Validate(validate *validator.Validate) error {
	if ug.Name != nil {
		name := CleanName(*ug.Name)
		if name == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
		}
		ug.Name = &name
	}
	if ug.Filiere != nil {
		f := core.CleanString(*ug.Filiere)
		ug.Filiere = &f
	}
	if ug.Annee != nil {
		a := core.CleanString(*ug.Annee)
		ug.Annee = &a
	}
	return validate.Struct(ug)
}

type GetFilter struct {
	ID   string
	Name string
}

type QueryFilter struct {
	Search  string `query:"search"`
	Filiere string `query:"filiere"`
	Annee   string `query:"annee"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Filiere = core.CleanString(qf.Filiere)
	qf.Annee = core.CleanString(qf.Annee)
}

// OrderingFields maps API ordering fields to storage fields.
var OrderingFields = map[string]string{
	"name":      "name",
	"filiere":   "filiere",
	"annee":     "annee",
	"createdAt": "created_at",
}

// CleanName trims name and collapses inner whitespace so "DEV  101 " and "DEV 101" are the same group.
func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
