package core

import "math"

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CleanOrdering drops orderings on fields that are not in allowed (db column names keyed by API field name).
func CleanOrdering(ordering []DBOrdering, allowed map[string]string) []DBOrdering {
	cleaned := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if col, ok := allowed[ord.Field]; ok {
			cleaned = append(cleaned, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return cleaned
}

// Pagination is a 1-based page request. A zero Limit means "everything".
type Pagination struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

func (p *Pagination) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
}

func (p Pagination) Offset() int {
	if p.Limit == 0 || p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// PageInfo describes a returned page.
type PageInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func NewPageInfo(p Pagination, total int) PageInfo {
	info := PageInfo{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: 1}
	if info.Page < 1 {
		info.Page = 1
	}
	if p.Limit > 0 {
		info.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return info
}

// Paginate slices items according to p. Used by engines that filter in memory.
func Paginate[T any](items []T, p Pagination) []T {
	if p.Limit == 0 {
		return items
	}
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
