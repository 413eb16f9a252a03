package leads

import "time"

// Patch caps for admin-writable fields.
const (
	maxInternalNotes = 2000
	maxTagLength     = 40
	maxTagCount      = 25
)

// Patch is a partial update to a record's mutable fields. Tags is loosely
// typed on purpose: non-string elements in the request body are dropped
// rather than rejected.
type Patch struct {
	Status        *string `json:"status,omitempty"`
	InternalNotes *string `json:"internal_notes,omitempty"`
	Tags          []any   `json:"tags,omitempty"`
	Archived      *bool   `json:"archived,omitempty"`
}

// Empty reports whether the patch carries no recognized field.
func (p Patch) Empty() bool {
	return p.Status == nil && p.InternalNotes == nil && p.Tags == nil && p.Archived == nil
}

// Apply mutates rec according to the patch. An unrecognized status value
// rejects the whole patch and leaves rec untouched. Transition stamps are
// first-transition-wins: contacted_at on the first move into contacted,
// closed_at on the first move into booked or closed, never overwritten.
func Apply(rec *Record, p Patch, now time.Time) error {
	var newStatus Status
	if p.Status != nil {
		parsed, ok := ParseStatus(*p.Status)
		if !ok {
			return ErrInvalidStatus
		}
		newStatus = parsed
	}

	if p.Status != nil && newStatus != rec.Status {
		rec.Status = newStatus
		switch newStatus {
		case StatusContacted:
			if rec.ContactedAt == nil {
				stamp := now
				rec.ContactedAt = &stamp
			}
		case StatusBooked, StatusClosed:
			if rec.ClosedAt == nil {
				stamp := now
				rec.ClosedAt = &stamp
			}
		}
	}

	if p.InternalNotes != nil {
		rec.InternalNotes = clean(*p.InternalNotes, maxInternalNotes)
	}

	if p.Tags != nil {
		rec.Tags = sanitizeTags(p.Tags)
	}

	if p.Archived != nil {
		rec.Archived = *p.Archived
	}

	if now.After(rec.UpdatedAt) {
		rec.UpdatedAt = now
	}
	return nil
}

// sanitizeTags keeps order, drops non-strings and empties, caps element
// length and list size.
func sanitizeTags(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = clean(s, maxTagLength)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == maxTagCount {
			break
		}
	}
	return out
}
