package leads

import "time"

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusBooked    Status = "booked"
	StatusClosed    Status = "closed"
	StatusNoShow    Status = "noshow"
)

// ParseStatus matches a raw value against the fixed status set, case-insensitively.
func ParseStatus(raw string) (Status, bool) {
	switch Status(lower(raw)) {
	case StatusNew:
		return StatusNew, true
	case StatusContacted:
		return StatusContacted, true
	case StatusBooked:
		return StatusBooked, true
	case StatusClosed:
		return StatusClosed, true
	case StatusNoShow:
		return StatusNoShow, true
	}
	return "", false
}

// Contact is the sanitized submission payload nested inside a record.
type Contact struct {
	Name              string `json:"name" dynamodbav:"name"`
	Phone             string `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Instagram         string `json:"instagram,omitempty" dynamodbav:"instagram,omitempty"`
	Service           string `json:"service,omitempty" dynamodbav:"service,omitempty"`
	Availability      string `json:"availability,omitempty" dynamodbav:"availability,omitempty"`
	Notes             string `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
	ContactPreference string `json:"contact_preference,omitempty" dynamodbav:"contactPreference,omitempty"`
	Budget            string `json:"budget,omitempty" dynamodbav:"budget,omitempty"`
	Length            string `json:"length,omitempty" dynamodbav:"length,omitempty"`
	Style             string `json:"style,omitempty" dynamodbav:"style,omitempty"`
}

// Meta is the provenance snapshot captured once at creation.
type Meta struct {
	Referrer   string `json:"referrer,omitempty" dynamodbav:"referrer,omitempty"`
	UserAgent  string `json:"user_agent,omitempty" dynamodbav:"userAgent,omitempty"`
	SourceAddr string `json:"source_addr,omitempty" dynamodbav:"sourceAddr,omitempty"`
}

// Record is one stored lead. It is created once by intake and mutated only
// through Apply.
type Record struct {
	ID            string     `json:"id" dynamodbav:"id"`
	CreatedAt     time.Time  `json:"created_at" dynamodbav:"createdAt"`
	UpdatedAt     time.Time  `json:"updated_at" dynamodbav:"updatedAt"`
	Status        Status     `json:"status" dynamodbav:"status"`
	ContactedAt   *time.Time `json:"contacted_at,omitempty" dynamodbav:"contactedAt,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty" dynamodbav:"closedAt,omitempty"`
	Archived      bool       `json:"archived" dynamodbav:"archived"`
	Lead          Contact    `json:"lead" dynamodbav:"lead"`
	SuggestedDM   string     `json:"suggested_dm" dynamodbav:"suggestedDm"`
	InternalNotes string     `json:"internal_notes,omitempty" dynamodbav:"internalNotes,omitempty"`
	Tags          []string   `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
	Meta          Meta       `json:"meta" dynamodbav:"meta"`
	Booking       string     `json:"booking,omitempty" dynamodbav:"booking,omitempty"`
}

// New builds a fresh record from a sanitized payload.
func New(id string, now time.Time, contact Contact, meta Meta, booking string) *Record {
	return &Record{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusNew,
		Lead:      contact,
		Meta:      meta,
		Booking:   booking,
	}
}
