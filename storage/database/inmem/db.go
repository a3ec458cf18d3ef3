package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/presence/core"
	"github.com/trezcool/presence/core/absence"
	"github.com/trezcool/presence/core/group"
	"github.com/trezcool/presence/core/schedule"
	"github.com/trezcool/presence/core/teacher"
	"github.com/trezcool/presence/core/trainee"
	"github.com/trezcool/presence/core/user"
)

// DB is a process-local store. A single lock guards every table so cascades stay consistent.
type DB struct {
	mu        sync.RWMutex
	users     map[string]*user.User
	teachers  map[string]*teacher.Teacher
	groups    map[string]*group.Group
	trainees  map[string]*trainee.Trainee
	records   map[string]*absence.Record
	entries   map[string]*absence.Entry
	schedules map[string]*schedule.Schedule
}

func Open() *DB {
	db := &DB{}
	db.reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.reset()
}

func (db *DB) reset() {
	db.users = make(map[string]*user.User)
	db.teachers = make(map[string]*teacher.Teacher)
	db.groups = make(map[string]*group.Group)
	db.trainees = make(map[string]*trainee.Trainee)
	db.records = make(map[string]*absence.Record)
	db.entries = make(map[string]*absence.Entry)
	db.schedules = make(map[string]*schedule.Schedule)
}

func newID() string {
	return uuid.New().String()
}

// comparator compares two rows on one column: <0, 0 or >0.
type comparator[T any] func(a, b T) int

// sortRows sorts rows by ordering (storage column names), falling back to fallback.
func sortRows[T any](rows []T, ordering []core.DBOrdering, columns map[string]comparator[T], fallback ...core.DBOrdering) {
	ords := ordering
	if len(ords) == 0 {
		ords = fallback
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ords {
			cmp, ok := columns[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(rows[i], rows[j]); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return false
	})
}

func cmpStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func cmpBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func cmpInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// contains reports whether s contains substr, ignoring case and accents.
func contains(s, substr string) bool {
	return strings.Contains(core.FoldString(s), core.FoldString(substr))
}

// stringSet returns nil for a nil slice (no filter) and an empty set for an empty one (match nothing).
func stringSet(ss []string) map[string]bool {
	if ss == nil {
		return nil
	}
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

func isExcluded(id string, excludedIDs []string) bool {
	for _, ex := range excludedIDs {
		if ex == id {
			return true
		}
	}
	return false
}
