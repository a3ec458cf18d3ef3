package schedule

import (
	"regexp"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/presence/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "day must be one of: Monday, Tuesday, Wednesday, Thursday, Friday, Saturday"

	timeSlotTag  = "timeslot"
	timeSlotText = "timeSlot must be one of: 08:30-11:00, 11:00-13:30, 13:30-16:00, 16:00-18:30"

	sessionTypeTag  = "sessiontype"
	sessionTypeText = "type must be one of: Cours, TD, TP"

	academicYearTag   = "academicyear"
	academicYearText  = "{0} must be formatted as YYYY-YYYY with consecutive years"
	academicYearRegex = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

	duplicateSlotTag  = "uniqueslot"
	duplicateSlotText = "two sessions cannot share the same day and time slot"
)

// InitValidators registers the schedule validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, oneOfValidation(Days))
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(timeSlotTag, oneOfValidation(TimeSlots))
	core.RegisterCustomTranslation(validate, translator, timeSlotTag, timeSlotText)

	_ = validate.RegisterValidation(sessionTypeTag, oneOfValidation(SessionTypes))
	core.RegisterCustomTranslation(validate, translator, sessionTypeTag, sessionTypeText)

	_ = validate.RegisterValidation(academicYearTag, academicYearValidation)
	core.RegisterCustomTranslation(validate, translator, academicYearTag, academicYearText)

	validate.RegisterStructValidation(schedulesStructValidation, NewSchedule{}, UpdateSchedule{}, CheckRequest{})
	core.RegisterCustomTranslation(validate, translator, duplicateSlotTag, duplicateSlotText)
}

func oneOfValidation(allowed []string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		val := fl.Field().String()
		for _, a := range allowed {
			if a == val {
				return true
			}
		}
		return false
	}
}

// academicYearValidation only allows "2024-2025" like years.
func academicYearValidation(fl validator.FieldLevel) bool {
	m := academicYearRegex.FindStringSubmatch(fl.Field().String())
	if m == nil {
		return false
	}
	from, _ := strconv.Atoi(m[1])
	to, _ := strconv.Atoi(m[2])
	return to == from+1
}

// schedulesStructValidation rejects payloads booking the same day and time slot twice.
func schedulesStructValidation(sl validator.StructLevel) {
	var sessions []Session
	switch v := sl.Current().Interface().(type) {
	case NewSchedule:
		sessions = v.Sessions
	case UpdateSchedule:
		sessions = v.Sessions
	case CheckRequest:
		sessions = v.Sessions
	}

	seen := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		key := s.slotKey()
		if seen[key] {
			sl.ReportError(sessions, "sessions", "Sessions", duplicateSlotTag, "")
			return
		}
		seen[key] = true
	}
}
