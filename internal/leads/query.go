package leads

import "strings"

// Pagination bounds for admin listings.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Filter selects records for the admin listing. Archived is one of
// "true", "false", "all"; empty means "false".
type Filter struct {
	Status   string
	Q        string
	Archived string
}

// Match reports whether a record passes the filter.
func (f Filter) Match(rec *Record) bool {
	switch lower(f.Archived) {
	case "all":
	case "true":
		if !rec.Archived {
			return false
		}
	default:
		if rec.Archived {
			return false
		}
	}

	if f.Status != "" {
		status, ok := ParseStatus(f.Status)
		if !ok || rec.Status != status {
			return false
		}
	}

	if q := lower(f.Q); q != "" && !matchesQuery(rec, q) {
		return false
	}
	return true
}

// matchesQuery scans the searchable fields for a case-insensitive substring.
func matchesQuery(rec *Record, q string) bool {
	haystacks := []string{
		rec.Lead.Name,
		rec.Lead.Phone,
		rec.Lead.Instagram,
		rec.Lead.Service,
		rec.Lead.Availability,
		rec.Lead.Notes,
		string(rec.Status),
		rec.InternalNotes,
	}
	haystacks = append(haystacks, rec.Tags...)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), q) {
			return true
		}
	}
	return false
}

// ClampPage bounds limit to [1, MaxLimit] (default DefaultLimit) and offset
// to >= 0.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Page slices matched records by offset and limit, preserving order.
func Page(records []*Record, limit, offset int) []*Record {
	if offset >= len(records) {
		return []*Record{}
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end]
}
