package absence

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/trainee"
)

var (
	// errors
	ErrRecordNotFound = core.NewNotFoundError("absence record")
	ErrEntryNotFound  = core.NewNotFoundError("absence")
)

type (
	Repository interface {
		RecordGetter
		// CreateRecord persists a record with its entries.
		CreateRecord(ctx context.Context, rec Record, entries []Entry) (Record, []Entry, error)
		// QueryRecords returns matching records ordered by date then start time, most recent first.
		QueryRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		// DeleteRecord deletes the record and its entries.
		DeleteRecord(ctx context.Context, id string) error
		GetEntry(ctx context.Context, id string) (Entry, error)
		QueryEntries(ctx context.Context, filter EntryFilter) ([]Entry, error)
		UpdateEntries(ctx context.Context, entries ...Entry) error
	}

	Service struct {
		repo     Repository
		groups   *group.Service
		trainees *trainee.Service
		teachers *teacher.Service
	}
)

func NewService(repo Repository, groups *group.Service, trainees *trainee.Service, teachers *teacher.Service) *Service {
	return &Service{repo: repo, groups: groups, trainees: trainees, teachers: teachers}
}

type (
	// RecordDetail is a record with its entries.
	RecordDetail struct {
		Record
		Group   string        `json:"group"`
		Entries []EntryDetail `json:"entries"`
	}

	// EntryDetail is an entry joined with its trainee and, when listed on its own, its record.
	EntryDetail struct {
		Entry
		CEF       string  `json:"cef"`
		Name      string  `json:"name"`
		FirstName string  `json:"firstName"`
		GroupName string  `json:"groupName"`
		Record    *Record `json:"record,omitempty"`
	}

	// TraineeStats is a trainee with its absence summary.
	TraineeStats struct {
		trainee.Trainee
		Summary
	}

	// TraineeAbsences is the absence history of one trainee.
	TraineeAbsences struct {
		Trainee trainee.Trainee `json:"trainee"`
		Summary Summary         `json:"summary"`
		Entries []EntryDetail   `json:"entries"`
	}
)

// TakeAttendance creates the record of a session and one entry per non-present trainee.
func (svc *Service) TakeAttendance(ctx context.Context, ta TakeAttendance, createdBy string) (RecordDetail, error) {
	date, err := ParseDate(ta.Date)
	if err != nil {
		return RecordDetail{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
	}
	grp, err := svc.resolveGroup(ctx, ta.Group)
	if err != nil {
		return RecordDetail{}, err
	}
	if ta.TeacherID != "" {
		if _, err = svc.teachers.GetByID(ctx, ta.TeacherID); err != nil {
			if core.IsNotFound(err) {
				return RecordDetail{}, core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: "teacher not found"})
			}
			return RecordDetail{}, errors.Wrap(err, "finding teacher")
		}
	}

	now := time.Now().UTC()
	rec := Record{
		Date:      date,
		GroupID:   grp.ID,
		TeacherID: ta.TeacherID,
		StartTime: ta.StartTime,
		EndTime:   ta.EndTime,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	entries := make([]Entry, 0, len(ta.Entries))
	trns := make(map[string]trainee.Trainee, len(ta.Entries))
	for i, ae := range ta.Entries {
		trn, err := svc.resolveTrainee(ctx, ae.Trainee)
		if err != nil {
			if core.IsNotFound(err) {
				return RecordDetail{}, core.NewValidationError(nil, core.FieldError{
					Field: entryField(i), Error: "trainee " + ae.Trainee + " not found",
				})
			}
			return RecordDetail{}, errors.Wrap(err, "finding trainee")
		}
		if trn.GroupID != grp.ID && trn.GroupName != grp.Name {
			return RecordDetail{}, core.NewValidationError(nil, core.FieldError{
				Field: entryField(i), Error: "trainee " + trn.CEF + " is not in group " + grp.Name,
			})
		}
		if _, dup := trns[trn.ID]; dup {
			return RecordDetail{}, core.NewValidationError(nil, core.FieldError{Field: "entries", Error: "a trainee can only appear once"})
		}
		trns[trn.ID] = trn

		if ae.Status == StatusPresent {
			continue
		}
		entries = append(entries, Entry{
			TraineeID:    trn.ID,
			Status:       ae.Status,
			Comment:      ae.Comment,
			AbsenceHours: EntryHours(ae.Status, &rec),
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	rec, entries, err = svc.repo.CreateRecord(ctx, rec, entries)
	if err != nil {
		return RecordDetail{}, errors.Wrap(err, "creating record")
	}

	detail := RecordDetail{Record: rec, Group: grp.Name, Entries: make([]EntryDetail, 0, len(entries))}
	for _, e := range entries {
		detail.Entries = append(detail.Entries, newEntryDetail(e, trns[e.TraineeID], nil))
	}
	return detail, nil
}

// UpdateEntry changes the status and/or comment of an entry and recomputes its hours.
// Justified entries stay worth 0 hours.
func (svc *Service) UpdateEntry(ctx context.Context, id string, ue UpdateEntry) (Entry, error) {
	entry, err := svc.repo.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if ue.Status != nil {
		entry.Status = *ue.Status
	}
	if ue.Comment != nil {
		entry.Comment = *ue.Comment
	}
	if entry.AbsenceHours, err = ComputeHours(ctx, svc.repo, entry); err != nil {
		return Entry{}, errors.Wrap(err, "computing hours")
	}
	entry.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateEntries(ctx, entry); err != nil {
		return Entry{}, errors.Wrap(err, "updating entry")
	}
	return entry, nil
}

// UpdateRecord changes a record and recomputes the hours of its entries.
func (svc *Service) UpdateRecord(ctx context.Context, id string, ur UpdateRecord) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if ur.Date != "" {
		if rec.Date, err = ParseDate(ur.Date); err != nil {
			return Record{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "date must be formatted as YYYY-MM-DD"})
		}
	}
	if ur.StartTime != "" {
		rec.StartTime = ur.StartTime
	}
	if ur.EndTime != "" {
		rec.EndTime = ur.EndTime
	}
	if SessionHours(rec.StartTime, rec.EndTime) <= 0 {
		return Record{}, core.NewValidationError(nil, core.FieldError{Field: "endTime", Error: endBeforeStartText})
	}
	if ur.TeacherID != "" {
		if _, err = svc.teachers.GetByID(ctx, ur.TeacherID); err != nil {
			if core.IsNotFound(err) {
				return Record{}, core.NewValidationError(nil, core.FieldError{Field: "teacherId", Error: "teacher not found"})
			}
			return Record{}, errors.Wrap(err, "finding teacher")
		}
		rec.TeacherID = ur.TeacherID
	}

	now := time.Now().UTC()
	rec.UpdatedAt = now
	if rec, err = svc.repo.UpdateRecord(ctx, rec); err != nil {
		return Record{}, errors.Wrap(err, "updating record")
	}

	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{RecordIDs: []string{rec.ID}})
	if err != nil {
		return Record{}, errors.Wrap(err, "querying entries")
	}
	changed := make([]Entry, 0, len(entries))
	for _, e := range entries {
		hours := EntryHours(e.Status, &rec)
		if e.IsJustified {
			hours = 0
		}
		if hours != e.AbsenceHours {
			e.AbsenceHours = hours
			e.UpdatedAt = now
			changed = append(changed, e)
		}
	}
	if len(changed) > 0 {
		if err = svc.repo.UpdateEntries(ctx, changed...); err != nil {
			return Record{}, errors.Wrap(err, "updating entries")
		}
	}
	return rec, nil
}

// Justify marks an entry as justified, which forces its hours to 0.
func (svc *Service) Justify(ctx context.Context, id, comment, by string) (Entry, error) {
	entry, err := svc.repo.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	now := time.Now().UTC()
	entry.IsJustified = true
	entry.AbsenceHours = 0
	entry.JustifiedBy = by
	entry.JustifiedAt = &now
	if comment = core.CleanString(comment); comment != "" {
		entry.Comment = comment
	}
	entry.UpdatedAt = now
	if err = svc.repo.UpdateEntries(ctx, entry); err != nil {
		return Entry{}, errors.Wrap(err, "updating entry")
	}
	return entry, nil
}

// ValidateEntries marks entries as validated by `by`. Unknown IDs are reported as not found.
func (svc *Service) ValidateEntries(ctx context.Context, ids []string, by string) ([]Entry, error) {
	if len(ids) == 0 {
		return []Entry{}, nil
	}
	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{IDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	if len(entries) != len(uniqueStrings(ids)) {
		return nil, ErrEntryNotFound
	}

	now := time.Now().UTC()
	for i := range entries {
		entries[i].IsValidated = true
		entries[i].ValidatedBy = by
		entries[i].ValidatedAt = &now
		entries[i].UpdatedAt = now
	}
	if err = svc.repo.UpdateEntries(ctx, entries...); err != nil {
		return nil, errors.Wrap(err, "updating entries")
	}
	return entries, nil
}

// ValidateRecord marks a record and all its entries as validated by `by`.
func (svc *Service) ValidateRecord(ctx context.Context, id, by string) (Record, error) {
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, err
	}

	now := time.Now().UTC()
	rec.IsValidated = true
	rec.ValidatedBy = by
	rec.ValidatedAt = &now
	rec.UpdatedAt = now
	if rec, err = svc.repo.UpdateRecord(ctx, rec); err != nil {
		return Record{}, errors.Wrap(err, "updating record")
	}

	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{RecordIDs: []string{id}})
	if err != nil {
		return Record{}, errors.Wrap(err, "querying entries")
	}
	for i := range entries {
		entries[i].IsValidated = true
		entries[i].ValidatedBy = by
		entries[i].ValidatedAt = &now
		entries[i].UpdatedAt = now
	}
	if len(entries) > 0 {
		if err = svc.repo.UpdateEntries(ctx, entries...); err != nil {
			return Record{}, errors.Wrap(err, "updating entries")
		}
	}
	return rec, nil
}

// DeleteRecord deletes a record and its entries.
func (svc *Service) DeleteRecord(ctx context.Context, id string) error {
	if _, err := svc.repo.GetRecord(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteRecord(ctx, id)
}

func (svc *Service) GetRecord(ctx context.Context, id string) (RecordDetail, error) {
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return RecordDetail{}, err
	}
	details, err := svc.recordDetails(ctx, []Record{rec})
	if err != nil {
		return RecordDetail{}, err
	}
	return details[0], nil
}

// Query lists entries, most recent session first.
func (svc *Service) Query(ctx context.Context, filter *QueryFilter, page core.Pagination) ([]EntryDetail, int, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}

	rf := RecordFilter{}
	ef := EntryFilter{Status: filter.Status, IsJustified: filter.IsJustified, IsValidated: filter.IsValidated}
	var err error
	if rf.From, err = ParseDate(filter.From); err != nil {
		return nil, 0, core.NewValidationError(nil, core.FieldError{Field: "from", Error: "date must be formatted as YYYY-MM-DD"})
	}
	if rf.To, err = ParseDate(filter.To); err != nil {
		return nil, 0, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "date must be formatted as YYYY-MM-DD"})
	}
	if filter.Group != "" {
		grp, err := svc.resolveGroup(ctx, filter.Group)
		if err != nil {
			return nil, 0, err
		}
		rf.GroupID = grp.ID
	}
	if filter.Trainee != "" {
		trn, err := svc.resolveTrainee(ctx, filter.Trainee)
		if err != nil {
			return nil, 0, err
		}
		ef.TraineeIDs = []string{trn.ID}
	}

	details, err := svc.entryDetails(ctx, rf, ef)
	if err != nil {
		return nil, 0, err
	}
	return core.Paginate(details, page), len(details), nil
}

// ByGroup returns the records of a group between from and to (inclusive, zero means unbounded).
func (svc *Service) ByGroup(ctx context.Context, groupIDOrName string, from, to time.Time) ([]RecordDetail, error) {
	grp, err := svc.resolveGroup(ctx, groupIDOrName)
	if err != nil {
		return nil, err
	}
	recs, err := svc.repo.QueryRecords(ctx, RecordFilter{GroupID: grp.ID, From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return svc.recordDetails(ctx, recs)
}

// ForTrainee returns the entries of a trainee with their summary.
func (svc *Service) ForTrainee(ctx context.Context, cef string) (TraineeAbsences, error) {
	trn, err := svc.trainees.GetByCEF(ctx, cef)
	if err != nil {
		return TraineeAbsences{}, err
	}
	details, err := svc.entryDetails(ctx, RecordFilter{}, EntryFilter{TraineeIDs: []string{trn.ID}})
	if err != nil {
		return TraineeAbsences{}, err
	}

	entries := make([]Entry, 0, len(details))
	for _, d := range details {
		entries = append(entries, d.Entry)
	}
	return TraineeAbsences{Trainee: trn, Summary: Summarize(entries), Entries: details}, nil
}

// WithStats computes the summary of each trainee.
func (svc *Service) WithStats(ctx context.Context, trns []trainee.Trainee) ([]TraineeStats, error) {
	stats := make([]TraineeStats, 0, len(trns))
	if len(trns) == 0 {
		return stats, nil
	}

	ids := make([]string, 0, len(trns))
	for _, t := range trns {
		ids = append(ids, t.ID)
	}
	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{TraineeIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	byTrainee := groupByTrainee(entries)
	for _, t := range trns {
		stats = append(stats, TraineeStats{Trainee: t, Summary: Summarize(byTrainee[t.ID])})
	}
	return stats, nil
}

type (
	DayTotal struct {
		Date         string  `json:"date"`
		Weekday      string  `json:"weekday"`
		AbsenceHours float64 `json:"absenceHours"`
		LateCount    int     `json:"lateCount"`
	}

	WeeklyLine struct {
		Trainee   trainee.Trainee `json:"trainee"`
		Days      []DayTotal      `json:"days"`
		Week      Summary         `json:"week"`
		Note      float64         `json:"note"` // over the whole history
		Justified int             `json:"justified"`
	}

	WeeklyReport struct {
		Group     group.Group  `json:"group"`
		WeekStart string       `json:"weekStart"`
		WeekEnd   string       `json:"weekEnd"`
		Trainees  []WeeklyLine `json:"trainees"`
	}
)

const schoolDays = 6 // Monday to Saturday

// WeekStart returns the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	d := Day(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}

// WeeklyReport returns per trainee, per school day hours and lates of the week containing `week`.
func (svc *Service) WeeklyReport(ctx context.Context, groupIDOrName string, week time.Time) (WeeklyReport, error) {
	grp, err := svc.resolveGroup(ctx, groupIDOrName)
	if err != nil {
		return WeeklyReport{}, err
	}
	start := WeekStart(week)
	end := start.AddDate(0, 0, schoolDays-1)

	trns, err := svc.trainees.ByGroup(ctx, grp)
	if err != nil {
		return WeeklyReport{}, errors.Wrap(err, "querying trainees")
	}
	recs, err := svc.repo.QueryRecords(ctx, RecordFilter{GroupID: grp.ID, From: start, To: end})
	if err != nil {
		return WeeklyReport{}, errors.Wrap(err, "querying records")
	}
	recByID := make(map[string]Record, len(recs))
	recIDs := make([]string, 0, len(recs))
	for _, r := range recs {
		recByID[r.ID] = r
		recIDs = append(recIDs, r.ID)
	}

	var weekEntries []Entry
	if len(recIDs) > 0 {
		if weekEntries, err = svc.repo.QueryEntries(ctx, EntryFilter{RecordIDs: recIDs}); err != nil {
			return WeeklyReport{}, errors.Wrap(err, "querying entries")
		}
	}
	weekByTrainee := groupByTrainee(weekEntries)

	all, err := svc.WithStats(ctx, trns)
	if err != nil {
		return WeeklyReport{}, err
	}

	report := WeeklyReport{
		Group:     grp,
		WeekStart: start.Format(DateLayout),
		WeekEnd:   end.Format(DateLayout),
		Trainees:  make([]WeeklyLine, 0, len(trns)),
	}
	for _, ts := range all {
		line := WeeklyLine{Trainee: ts.Trainee, Days: make([]DayTotal, schoolDays), Note: ts.Note}
		for i := range line.Days {
			d := start.AddDate(0, 0, i)
			line.Days[i] = DayTotal{Date: d.Format(DateLayout), Weekday: d.Weekday().String()}
		}

		entries := weekByTrainee[ts.ID]
		for _, e := range entries {
			rec, ok := recByID[e.RecordID]
			if !ok {
				continue
			}
			i := int(Day(rec.Date).Sub(start).Hours() / 24)
			if i < 0 || i >= schoolDays {
				continue
			}
			switch {
			case e.Status == StatusLate:
				line.Days[i].LateCount++
			case e.Status == StatusAbsent && !e.IsJustified:
				line.Days[i].AbsenceHours = roundHours(line.Days[i].AbsenceHours + e.AbsenceHours)
			}
		}
		line.Week = Summarize(entries)
		line.Justified = line.Week.JustifiedCount
		report.Trainees = append(report.Trainees, line)
	}
	return report, nil
}

type (
	StatsFilter struct {
		Group string `query:"group"`
		From  string `query:"from"`
		To    string `query:"to"`
	}

	GroupStats struct {
		GroupID      string  `json:"groupId"`
		GroupName    string  `json:"groupName"`
		Records      int     `json:"records"`
		Absent       int     `json:"absent"`
		Late         int     `json:"late"`
		AbsenceHours float64 `json:"absenceHours"`
	}

	Stats struct {
		Records          int          `json:"records"`
		ValidatedRecords int          `json:"validatedRecords"`
		Entries          int          `json:"entries"`
		Absent           int          `json:"absent"`
		Late             int          `json:"late"`
		Justified        int          `json:"justified"`
		Validated        int          `json:"validated"`
		AbsenceHours     float64      `json:"absenceHours"` // absent and not justified
		ByGroup          []GroupStats `json:"byGroup"`
	}
)

// Stats aggregates records and entries matching filter.
func (svc *Service) Stats(ctx context.Context, filter StatsFilter) (Stats, error) {
	rf := RecordFilter{}
	var err error
	if rf.From, err = ParseDate(core.CleanString(filter.From)); err != nil {
		return Stats{}, core.NewValidationError(nil, core.FieldError{Field: "from", Error: "date must be formatted as YYYY-MM-DD"})
	}
	if rf.To, err = ParseDate(core.CleanString(filter.To)); err != nil {
		return Stats{}, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "date must be formatted as YYYY-MM-DD"})
	}
	if g := core.CleanString(filter.Group); g != "" {
		grp, err := svc.resolveGroup(ctx, g)
		if err != nil {
			return Stats{}, err
		}
		rf.GroupID = grp.ID
	}

	recs, err := svc.repo.QueryRecords(ctx, rf)
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying records")
	}
	stats := Stats{Records: len(recs), ByGroup: []GroupStats{}}
	if len(recs) == 0 {
		return stats, nil
	}

	byGroup := make(map[string]*GroupStats)
	recGroup := make(map[string]string, len(recs))
	recIDs := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.IsValidated {
			stats.ValidatedRecords++
		}
		gs, ok := byGroup[r.GroupID]
		if !ok {
			gs = &GroupStats{GroupID: r.GroupID}
			if grp, err := svc.groups.GetByID(ctx, r.GroupID); err == nil {
				gs.GroupName = grp.Name
			}
			byGroup[r.GroupID] = gs
		}
		gs.Records++
		recGroup[r.ID] = r.GroupID
		recIDs = append(recIDs, r.ID)
	}

	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{RecordIDs: recIDs})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying entries")
	}
	stats.Entries = len(entries)
	for _, e := range entries {
		gs := byGroup[recGroup[e.RecordID]]
		switch e.Status {
		case StatusAbsent:
			stats.Absent++
			gs.Absent++
			if !e.IsJustified {
				stats.AbsenceHours = roundHours(stats.AbsenceHours + e.AbsenceHours)
				gs.AbsenceHours = roundHours(gs.AbsenceHours + e.AbsenceHours)
			}
		case StatusLate:
			stats.Late++
			gs.Late++
		}
		if e.IsJustified {
			stats.Justified++
		}
		if e.IsValidated {
			stats.Validated++
		}
	}

	for _, gs := range byGroup {
		stats.ByGroup = append(stats.ByGroup, *gs)
	}
	sort.Slice(stats.ByGroup, func(i, j int) bool { return stats.ByGroup[i].GroupName < stats.ByGroup[j].GroupName })
	return stats, nil
}

// helpers

func (svc *Service) resolveGroup(ctx context.Context, idOrName string) (group.Group, error) {
	grp, err := svc.groups.Resolve(ctx, idOrName)
	if err != nil && !core.IsNotFound(err) {
		return group.Group{}, errors.Wrap(err, "resolving group")
	}
	return grp, err
}

// resolveTrainee finds a trainee by ID, then by CEF.
func (svc *Service) resolveTrainee(ctx context.Context, idOrCEF string) (trainee.Trainee, error) {
	trn, err := svc.trainees.GetByID(ctx, idOrCEF)
	if err == nil || !core.IsNotFound(err) {
		return trn, err
	}
	return svc.trainees.GetByCEF(ctx, idOrCEF)
}

func (svc *Service) recordDetails(ctx context.Context, recs []Record) ([]RecordDetail, error) {
	details := make([]RecordDetail, 0, len(recs))
	if len(recs) == 0 {
		return details, nil
	}

	recIDs := make([]string, 0, len(recs))
	for _, r := range recs {
		recIDs = append(recIDs, r.ID)
	}
	entries, err := svc.repo.QueryEntries(ctx, EntryFilter{RecordIDs: recIDs})
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	trns, err := svc.traineesByID(ctx, entries)
	if err != nil {
		return nil, err
	}
	byRecord := make(map[string][]Entry, len(recs))
	for _, e := range entries {
		byRecord[e.RecordID] = append(byRecord[e.RecordID], e)
	}

	groupNames := make(map[string]string)
	for _, r := range recs {
		name, ok := groupNames[r.GroupID]
		if !ok {
			if grp, err := svc.groups.GetByID(ctx, r.GroupID); err == nil {
				name = grp.Name
			}
			groupNames[r.GroupID] = name
		}
		d := RecordDetail{Record: r, Group: name, Entries: make([]EntryDetail, 0, len(byRecord[r.ID]))}
		for _, e := range byRecord[r.ID] {
			d.Entries = append(d.Entries, newEntryDetail(e, trns[e.TraineeID], nil))
		}
		details = append(details, d)
	}
	return details, nil
}

// entryDetails joins entries with their trainee and record, most recent session first.
func (svc *Service) entryDetails(ctx context.Context, rf RecordFilter, ef EntryFilter) ([]EntryDetail, error) {
	if rf.GroupID != "" || !rf.From.IsZero() || !rf.To.IsZero() {
		recs, err := svc.repo.QueryRecords(ctx, rf)
		if err != nil {
			return nil, errors.Wrap(err, "querying records")
		}
		if len(recs) == 0 {
			return []EntryDetail{}, nil
		}
		for _, r := range recs {
			ef.RecordIDs = append(ef.RecordIDs, r.ID)
		}
	}

	entries, err := svc.repo.QueryEntries(ctx, ef)
	if err != nil {
		return nil, errors.Wrap(err, "querying entries")
	}
	trns, err := svc.traineesByID(ctx, entries)
	if err != nil {
		return nil, err
	}

	recs := make(map[string]*Record)
	details := make([]EntryDetail, 0, len(entries))
	for _, e := range entries {
		rec, ok := recs[e.RecordID]
		if !ok {
			if r, err := svc.repo.GetRecord(ctx, e.RecordID); err == nil {
				rec = &r
			} else if !core.IsNotFound(err) {
				return nil, errors.Wrap(err, "finding record")
			}
			recs[e.RecordID] = rec
		}
		details = append(details, newEntryDetail(e, trns[e.TraineeID], rec))
	}

	sort.SliceStable(details, func(i, j int) bool {
		ri, rj := details[i].Record, details[j].Record
		if ri == nil || rj == nil {
			return rj == nil && ri != nil
		}
		if !ri.Date.Equal(rj.Date) {
			return ri.Date.After(rj.Date)
		}
		if ri.StartTime != rj.StartTime {
			return ri.StartTime > rj.StartTime
		}
		return details[i].Name < details[j].Name
	})
	return details, nil
}

func (svc *Service) traineesByID(ctx context.Context, entries []Entry) (map[string]trainee.Trainee, error) {
	trns := make(map[string]trainee.Trainee)
	for _, e := range entries {
		if _, ok := trns[e.TraineeID]; ok {
			continue
		}
		trn, err := svc.trainees.GetByID(ctx, e.TraineeID)
		if err != nil && !core.IsNotFound(err) {
			return nil, errors.Wrap(err, "finding trainee")
		}
		trns[e.TraineeID] = trn
	}
	return trns, nil
}

func newEntryDetail(e Entry, trn trainee.Trainee, rec *Record) EntryDetail {
	return EntryDetail{
		Entry:     e,
		CEF:       trn.CEF,
		Name:      trn.Name,
		FirstName: trn.FirstName,
		GroupName: trn.GroupName,
		Record:    rec,
	}
}

func groupByTrainee(entries []Entry) map[string][]Entry {
	m := make(map[string][]Entry)
	for _, e := range entries {
		m[e.TraineeID] = append(m[e.TraineeID], e)
	}
	return m
}

func entryField(i int) string {
	return "entries[" + strconv.Itoa(i) + "].trainee"
}

func uniqueStrings(ss []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		m[s] = struct{}{}
	}
	return m
}

func roundHours(h float64) float64 {
	f, _ := decimal.NewFromFloat(h).Round(1).Float64()
	return f
}
