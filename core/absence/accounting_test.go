package absence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/presence/core"
)

type recordMap map[string]Record

func (m recordMap) GetRecord(_ context.Context, id string) (Record, error) {
	if id == "broken" {
		return Record{}, errors.New("connection reset")
	}
	if rec, ok := m[id]; ok {
		return rec, nil
	}
	return Record{}, core.NewNotFoundError("absence record")
}

func TestSessionHours(t *testing.T) {
	tests := []struct {
		start, end string
		want       float64
	}{
		{start: "08:30", end: "11:00", want: 2.5},
		{start: "08:30", end: "09:15", want: .8},
		{start: "13:30", end: "13:33", want: .1},
		{start: "14:00", end: "14:02", want: 0},
		{start: "11:00", end: "08:30", want: 0},
		{start: "08:30", end: "08:30", want: 0},
		{start: "8h30", end: "11:00", want: 0},
		{start: "08:30", end: "", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionHours(tt.start, tt.end))
		})
	}
}

func TestEntryHours(t *testing.T) {
	rec := &Record{StartTime: "13:30", EndTime: "16:00"}
	assert.Equal(t, 2.5, EntryHours(StatusAbsent, rec))
	assert.Equal(t, 0.0, EntryHours(StatusAbsent, nil))
	assert.Equal(t, 1.0, EntryHours(StatusLate, rec))
	assert.Equal(t, 1.0, EntryHours(StatusLate, nil))
	assert.Equal(t, 0.0, EntryHours(StatusPresent, rec))
	assert.Equal(t, 0.0, EntryHours("sick", rec))
}

func TestComputeHours(t *testing.T) {
	records := recordMap{"r1": {ID: "r1", StartTime: "08:30", EndTime: "10:00"}}
	ctx := context.Background()

	tests := []struct {
		name    string
		entry   Entry
		want    float64
		wantErr bool
	}{
		{name: "absent", entry: Entry{RecordID: "r1", Status: StatusAbsent}, want: 1.5},
		{name: "late", entry: Entry{RecordID: "r1", Status: StatusLate}, want: 1},
		{name: "present", entry: Entry{RecordID: "r1", Status: StatusPresent}, want: 0},
		{name: "justified absence", entry: Entry{RecordID: "r1", Status: StatusAbsent, IsJustified: true}, want: 0},
		{name: "justified late", entry: Entry{RecordID: "r1", Status: StatusLate, IsJustified: true}, want: 0},
		{name: "missing record", entry: Entry{RecordID: "nope", Status: StatusAbsent}, want: 0},
		{name: "lookup failure", entry: Entry{RecordID: "broken", Status: StatusAbsent}, wantErr: true},
		{name: "late needs no record", entry: Entry{RecordID: "broken", Status: StatusLate}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeHours(ctx, records, tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummarize(t *testing.T) {
	entries := []Entry{
		{Status: StatusAbsent, AbsenceHours: 2.5},
		{Status: StatusAbsent, AbsenceHours: 2.5},
		{Status: StatusAbsent, IsJustified: true},
		{Status: StatusLate, AbsenceHours: 1},
		{Status: StatusLate, AbsenceHours: 1},
		{Status: StatusLate, AbsenceHours: 1},
		{Status: StatusLate, AbsenceHours: 1},
		{Status: StatusLate, AbsenceHours: 1, IsJustified: true},
		{Status: StatusPresent},
	}
	assert.Equal(t, Summary{
		TotalAbsenceHours: 5,
		AbsenceCount:      3,
		LateCount:         5,
		JustifiedCount:    2,
		Note:              18,
	}, Summarize(entries))

	assert.Equal(t, Summary{Note: 20}, Summarize(nil))
}

func TestDisciplinaryNote(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
		lates int
		want  float64
	}{
		{name: "clean", want: 20},
		{name: "below one slot", hours: 2.4, lates: 3, want: 20},
		{name: "one slot", hours: 2.5, want: 19.5},
		{name: "slots and lates", hours: 7.6, lates: 9, want: 16.5},
		{name: "floored at zero", hours: 200, lates: 10, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisciplinaryNote(tt.hours, tt.lates))
		})
	}
}
