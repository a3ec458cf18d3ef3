package absence

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/trezcool/presence/core"
)

var (
	maxNote        = decimal.NewFromInt(20)
	slotHours      = decimal.NewFromFloat(2.5)
	slotDeduction  = decimal.NewFromFloat(.5)
	latesPerPoint  = decimal.NewFromInt(4)
	lateDeduction  = decimal.NewFromInt(1)
	lateEntryHours = 1.0
	minutesPerHour = decimal.NewFromInt(60)
)

// RecordGetter finds the parent record of an entry.
type RecordGetter interface {
	GetRecord(ctx context.Context, id string) (Record, error)
}

// Summary aggregates the entries of one trainee.
type Summary struct {
	TotalAbsenceHours float64 `json:"totalAbsenceHours"` // absent and not justified
	AbsenceCount      int     `json:"absenceCount"`
	LateCount         int     `json:"lateCount"`
	JustifiedCount    int     `json:"justifiedCount"`
	Note              float64 `json:"note"`
}

// SessionHours returns end - start in hours, rounded half-up to one decimal.
// Malformed or reversed times yield 0.
func SessionHours(start, end string) float64 {
	s, err := core.ParseClock(start)
	if err != nil {
		return 0
	}
	e, err := core.ParseClock(end)
	if err != nil || !e.After(s) {
		return 0
	}
	minutes := decimal.NewFromInt(int64(e.Sub(s).Minutes()))
	hours, _ := minutes.Div(minutesPerHour).Round(1).Float64()
	return hours
}

// EntryHours applies the absence-hour rule of status to a session:
// present -> 0, late -> 1, absent -> session length. A nil record yields 0 for absences.
func EntryHours(status string, rec *Record) float64 {
	switch status {
	case StatusLate:
		return lateEntryHours
	case StatusAbsent:
		if rec == nil {
			return 0
		}
		return SessionHours(rec.StartTime, rec.EndTime)
	default:
		return 0
	}
}

// ComputeHours returns the hours an entry is worth. Justified entries are always worth 0.
// The parent record is looked up through records; a missing record yields 0.
func ComputeHours(ctx context.Context, records RecordGetter, entry Entry) (float64, error) {
	if entry.IsJustified {
		return 0, nil
	}
	if entry.Status != StatusAbsent {
		return EntryHours(entry.Status, nil), nil
	}

	rec, err := records.GetRecord(ctx, entry.RecordID)
	if err != nil {
		if core.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return EntryHours(entry.Status, &rec), nil
}

// Summarize computes the totals and the disciplinary note of a trainee's entries.
func Summarize(entries []Entry) Summary {
	var sum Summary
	total := decimal.Zero
	for _, e := range entries {
		switch e.Status {
		case StatusAbsent:
			sum.AbsenceCount++
			if !e.IsJustified {
				total = total.Add(decimal.NewFromFloat(e.AbsenceHours))
			}
		case StatusLate:
			sum.LateCount++
		}
		if e.IsJustified {
			sum.JustifiedCount++
		}
	}
	sum.TotalAbsenceHours, _ = total.Round(1).Float64()
	sum.Note = disciplinaryNote(total, sum.LateCount)
	return sum
}

// DisciplinaryNote returns max(0, 20 - floor(hours/2.5)*0.5 - floor(lates/4)), rounded to one decimal.
func DisciplinaryNote(totalAbsenceHours float64, lateCount int) float64 {
	return disciplinaryNote(decimal.NewFromFloat(totalAbsenceHours), lateCount)
}

func disciplinaryNote(totalAbsenceHours decimal.Decimal, lateCount int) float64 {
	absenceDeduction := totalAbsenceHours.Div(slotHours).Floor().Mul(slotDeduction)
	latenessDeduction := decimal.NewFromInt(int64(lateCount)).Div(latesPerPoint).Floor().Mul(lateDeduction)

	note := maxNote.Sub(absenceDeduction).Sub(latenessDeduction)
	if note.IsNegative() {
		note = decimal.Zero
	}
	f, _ := note.Round(1).Float64()
	return f
}
