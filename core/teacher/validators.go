package teacher

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

// InitValidators registers the teacher validators.
func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(newTeacherStructValidation, NewTeacher{})
}

// newTeacherStructValidation applies the password policy when a password is provided.
func newTeacherStructValidation(sl validator.StructLevel) {
	nt := sl.Current().Interface().(NewTeacher)
	if nt.Password != "" {
		core.ReportPasswordErrors(sl, "password", nt.Password, nt.Name, nt.Email, nt.Matricule)
	}
}
