package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/lunarlash/leadline/internal/leads"
	"github.com/lunarlash/leadline/internal/observability/metrics"
	"github.com/lunarlash/leadline/pkg/logging"
)

// Config holds the alert destinations. Empty fields disable the matching
// channel.
type Config struct {
	SMSTo         string
	EmailTo       string
	PublicBaseURL string
}

// Service fans a new-lead alert out to the owner's channels. Every send is
// best effort: failures are logged and recorded, never returned, so intake
// is not blocked by a provider outage.
type Service struct {
	sms     SMSSender
	email   EmailSender
	cfg     Config
	metrics *metrics.IntakeMetrics
	logger  *logging.Logger
}

func NewService(sms SMSSender, email EmailSender, cfg Config, m *metrics.IntakeMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sms: sms, email: email, cfg: cfg, metrics: m, logger: logger}
}

// LeadAlert notifies the owner about a freshly created lead.
func (s *Service) LeadAlert(ctx context.Context, rec *leads.Record) {
	if s == nil || rec == nil {
		return
	}

	body := s.alertBody(rec)

	if s.sms != nil && s.cfg.SMSTo != "" {
		if err := s.sms.SendSMS(ctx, s.cfg.SMSTo, body); err != nil {
			s.logger.Error("lead alert sms failed", "error", err, "lead_id", rec.ID)
			s.metrics.RecordAlert("sms", "error")
		} else {
			s.metrics.RecordAlert("sms", "ok")
		}
	}

	if s.email != nil && s.cfg.EmailTo != "" {
		subject := "New lead: " + displayName(rec.Lead.Name)
		if err := s.email.SendEmail(ctx, s.cfg.EmailTo, subject, body); err != nil {
			s.logger.Error("lead alert email failed", "error", err, "lead_id", rec.ID)
			s.metrics.RecordAlert("email", "error")
		} else {
			s.metrics.RecordAlert("email", "ok")
		}
	}
}

// alertBody renders the owner-facing summary. Only populated fields appear.
func (s *Service) alertBody(rec *leads.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New lead: %s\n", displayName(rec.Lead.Name))
	for _, line := range []struct{ label, value string }{
		{"Phone", rec.Lead.Phone},
		{"Instagram", rec.Lead.Instagram},
		{"Service", rec.Lead.Service},
		{"Availability", rec.Lead.Availability},
		{"Budget", rec.Lead.Budget},
		{"Notes", rec.Lead.Notes},
	} {
		if line.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", line.label, line.value)
		}
	}
	if rec.SuggestedDM != "" {
		fmt.Fprintf(&b, "\nSuggested DM:\n%s\n", rec.SuggestedDM)
	}
	if rec.Booking != "" {
		fmt.Fprintf(&b, "\n%s\n", rec.Booking)
	}
	if s.cfg.PublicBaseURL != "" {
		fmt.Fprintf(&b, "\n%s/admin/leads", strings.TrimRight(s.cfg.PublicBaseURL, "/"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func displayName(name string) string {
	if name == "" {
		return "(no name)"
	}
	return name
}
