package leads

import "strings"

// Per-field length caps for submitted strings.
const (
	maxName              = 80
	maxPhoneRaw          = 50
	maxInstagram         = 60
	maxService           = 100
	maxAvailability      = 160
	maxNotes             = 1000
	maxContactPreference = 40
	maxBudget            = 40
	maxLength            = 40
	maxStyle             = 80
)

// domesticCountryCode is prefixed onto bare 10-digit numbers.
const domesticCountryCode = "1"

// Submission is the raw, untrusted intake body.
type Submission struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Instagram         string `json:"instagram"`
	Service           string `json:"service"`
	Availability      string `json:"availability"`
	Notes             string `json:"notes"`
	ContactPreference string `json:"contact_preference"`
	Budget            string `json:"budget"`
	Length            string `json:"length"`
	Style             string `json:"style"`

	// Honeypot. Real visitors never fill this in.
	HP string `json:"hp"`
}

// Sanitize normalizes a raw submission into a canonical contact payload.
// It is pure: no I/O, no side effects. A submission with no name, or with
// neither a usable phone nor instagram handle, is rejected.
func Sanitize(sub Submission) (Contact, error) {
	contact := Contact{
		Name:              clean(sub.Name, maxName),
		Phone:             NormalizePhone(clean(sub.Phone, maxPhoneRaw)),
		Instagram:         NormalizeInstagram(clean(sub.Instagram, maxInstagram)),
		Service:           clean(sub.Service, maxService),
		Availability:      clean(sub.Availability, maxAvailability),
		Notes:             clean(sub.Notes, maxNotes),
		ContactPreference: clean(sub.ContactPreference, maxContactPreference),
		Budget:            clean(sub.Budget, maxBudget),
		Length:            clean(sub.Length, maxLength),
		Style:             clean(sub.Style, maxStyle),
	}

	if contact.Name == "" {
		return Contact{}, ErrMissingName
	}
	if contact.Phone == "" && contact.Instagram == "" {
		return Contact{}, ErrMissingContact
	}
	return contact, nil
}

// NormalizePhone reduces a raw phone string to canonical +E.164-ish form.
// International input (leading +) must strip down to 10-15 digits. Input
// without a leading + is treated as domestic: exactly 10 digits get the
// country code, 11 digits already starting with it pass through. Anything
// else is rejected as empty.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	digits := digitsOnly(raw)
	if strings.HasPrefix(raw, "+") {
		if len(digits) < 10 || len(digits) > 15 {
			return ""
		}
		return "+" + digits
	}
	switch {
	case len(digits) == 10:
		return "+" + domesticCountryCode + digits
	case len(digits) == 11 && strings.HasPrefix(digits, domesticCountryCode):
		return "+" + digits
	}
	return ""
}

// NormalizeInstagram strips a leading @ and re-prefixes non-empty handles.
func NormalizeInstagram(raw string) string {
	handle := strings.TrimPrefix(strings.TrimSpace(raw), "@")
	if handle == "" {
		return ""
	}
	return "@" + handle
}

// clean trims, coerces, and truncates one submitted string field.
func clean(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		s = s[:max]
	}
	return s
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
