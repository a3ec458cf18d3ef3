package absence

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

var (
	statusTag  = "status"
	statusText = "status must be one of: absent, late, present"

	endBeforeStartText = "endTime must be after startTime"
)

// InitValidators registers the absence validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(takeAttendanceStructValidation, TakeAttendance{})
	core.RegisterCustomTranslation(validate, translator, "gtstart", endBeforeStartText)
	core.RegisterCustomTranslation(validate, translator, "uniquetrainee", "a trainee can only appear once")
}

func statusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// takeAttendanceStructValidation checks the session times and that no trainee is listed twice.
func takeAttendanceStructValidation(sl validator.StructLevel) {
	ta := sl.Current().Interface().(TakeAttendance)
	if ta.StartTime != "" && ta.EndTime != "" && SessionHours(ta.StartTime, ta.EndTime) <= 0 {
		sl.ReportError(ta.EndTime, "endTime", "EndTime", "gtstart", "")
	}

	seen := make(map[string]bool, len(ta.Entries))
	for _, e := range ta.Entries {
		if e.Trainee == "" {
			continue
		}
		if seen[e.Trainee] {
			sl.ReportError(ta.Entries, "entries", "Entries", "uniquetrainee", "")
			return
		}
		seen[e.Trainee] = true
	}
}
