package suggest

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lunarlash/leadline/internal/leads"
	"github.com/lunarlash/leadline/internal/observability/metrics"
	"github.com/lunarlash/leadline/pkg/logging"
)

// MaxDMLength is the hard cap applied to every suggested DM, generated or
// fallback.
const MaxDMLength = 550

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int32
	Temperature float32
}

// Generator produces a completion for a request. Implementations wrap a
// specific model provider.
type Generator interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Service produces the suggested outreach DM for a new lead. It never
// returns an error: any generation failure substitutes a deterministic
// template so creation is never blocked.
type Service struct {
	gen         Generator
	provider    string
	bookingNote string
	metrics     *metrics.IntakeMetrics
	logger      *logging.Logger
}

// NewService builds the suggestion service. A nil generator means the
// template fallback is always used. The provider name only labels metrics.
func NewService(gen Generator, provider, bookingNote string, m *metrics.IntakeMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if provider == "" {
		provider = "none"
	}
	return &Service{gen: gen, provider: provider, bookingNote: bookingNote, metrics: m, logger: logger}
}

// SuggestDM makes exactly one generation attempt and falls back to the
// template on any failure or empty result.
func (s *Service) SuggestDM(ctx context.Context, contact leads.Contact) string {
	if s.gen == nil {
		s.metrics.RecordSuggestFallback(s.provider)
		return s.fallback(contact.Name)
	}

	text, err := s.gen.Complete(ctx, Request{
		System:      s.systemFrame(),
		Prompt:      leadContext(contact),
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err != nil {
		s.logger.Warn("suggest: generation failed, using template", "provider", s.provider, "error", err)
		s.metrics.RecordSuggestFallback(s.provider)
		return s.fallback(contact.Name)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Warn("suggest: generation returned empty text, using template", "provider", s.provider)
		s.metrics.RecordSuggestFallback(s.provider)
		return s.fallback(contact.Name)
	}
	return capDM(text)
}

func (s *Service) systemFrame() string {
	return "You draft the first Instagram DM a lash studio owner sends to a new inquiry. " +
		"Write one short, warm, unpushy message in the owner's voice. " +
		"Work in this booking detail naturally: " + s.bookingNote + " " +
		"Stay under 500 characters. Plain text only, no sign-off, no placeholders."
}

// leadContext renders the sanitized fields the model may use. Only populated
// fields are included.
func leadContext(contact leads.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", contact.Name)
	for _, field := range []struct{ label, value string }{
		{"Requested service", contact.Service},
		{"Availability", contact.Availability},
		{"Notes", contact.Notes},
		{"Preferred contact", contact.ContactPreference},
		{"Budget", contact.Budget},
		{"Length", contact.Length},
		{"Style", contact.Style},
	} {
		if field.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", field.label, field.value)
		}
	}
	return b.String()
}

func (s *Service) fallback(name string) string {
	if name == "" {
		name = "there"
	}
	return capDM(fmt.Sprintf(
		"Hi %s! Thanks so much for reaching out — I'd love to get you on the books. %s Just let me know what days work best for you!",
		name, s.bookingNote))
}

func capDM(text string) string {
	if len(text) <= MaxDMLength {
		return text
	}
	cut := text[:MaxDMLength]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
