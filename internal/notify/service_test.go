package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lunarlash/leadline/internal/leads"
)

type fakeSMS struct {
	err   error
	calls int
	to    string
	body  string
}

func (f *fakeSMS) SendSMS(_ context.Context, to, body string) error {
	f.calls++
	f.to = to
	f.body = body
	return f.err
}

type fakeEmail struct {
	err     error
	calls   int
	subject string
	body    string
}

func (f *fakeEmail) SendEmail(_ context.Context, _, subject, body string) error {
	f.calls++
	f.subject = subject
	f.body = body
	return f.err
}

func alertRecord() *leads.Record {
	rec := leads.New("2025-03-01T10:00:00.000Z_00000000-0000-0000-0000-000000000001",
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		leads.Contact{
			Name:         "Jess",
			Phone:        "+15551234567",
			Instagram:    "@jess.lashes",
			Service:      "volume full set",
			Availability: "weekday evenings",
		},
		leads.Meta{},
		"Booking requires a $20 deposit; the link is in our Instagram bio.")
	rec.SuggestedDM = "Hey Jess! Would love to get you in."
	return rec
}

func TestLeadAlertSendsBothChannels(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}
	svc := NewService(sms, email, Config{
		SMSTo:         "+15550001111",
		EmailTo:       "owner@lunarlash.example",
		PublicBaseURL: "https://lunarlash.example/",
	}, nil, nil)

	svc.LeadAlert(context.Background(), alertRecord())

	if sms.calls != 1 || email.calls != 1 {
		t.Fatalf("expected one send per channel, got sms=%d email=%d", sms.calls, email.calls)
	}
	if sms.to != "+15550001111" {
		t.Errorf("unexpected sms destination: %q", sms.to)
	}
	for _, want := range []string{
		"New lead: Jess",
		"Phone: +15551234567",
		"Instagram: @jess.lashes",
		"Service: volume full set",
		"Availability: weekday evenings",
		"Suggested DM:",
		"$20 deposit",
		"https://lunarlash.example/admin/leads",
	} {
		if !strings.Contains(sms.body, want) {
			t.Errorf("alert body missing %q:\n%s", want, sms.body)
		}
	}
	if email.subject != "New lead: Jess" {
		t.Errorf("unexpected email subject: %q", email.subject)
	}
}

func TestLeadAlertOmitsEmptyFields(t *testing.T) {
	sms := &fakeSMS{}
	svc := NewService(sms, nil, Config{SMSTo: "+15550001111"}, nil, nil)

	rec := leads.New("2025-03-01T10:00:00.000Z_00000000-0000-0000-0000-000000000002",
		time.Now().UTC(), leads.Contact{Name: "Mia", Instagram: "@mia"}, leads.Meta{}, "")

	svc.LeadAlert(context.Background(), rec)

	if strings.Contains(sms.body, "Phone:") || strings.Contains(sms.body, "Notes:") {
		t.Errorf("alert body should omit empty fields:\n%s", sms.body)
	}
	if strings.Contains(sms.body, "/admin/leads") {
		t.Errorf("no admin link expected without a base url:\n%s", sms.body)
	}
}

func TestLeadAlertSwallowsFailures(t *testing.T) {
	sms := &fakeSMS{err: errors.New("telnyx down")}
	email := &fakeEmail{err: errors.New("sendgrid down")}
	svc := NewService(sms, email, Config{SMSTo: "+15550001111", EmailTo: "owner@x.test"}, nil, nil)

	// Must not panic or propagate either failure.
	svc.LeadAlert(context.Background(), alertRecord())

	if sms.calls != 1 || email.calls != 1 {
		t.Fatalf("both channels should still be attempted, got sms=%d email=%d", sms.calls, email.calls)
	}
}

func TestLeadAlertSkipsUnconfiguredChannels(t *testing.T) {
	sms := &fakeSMS{}
	email := &fakeEmail{}

	svc := NewService(sms, email, Config{}, nil, nil)
	svc.LeadAlert(context.Background(), alertRecord())
	if sms.calls != 0 || email.calls != 0 {
		t.Fatalf("no destinations configured, expected no sends, got sms=%d email=%d", sms.calls, email.calls)
	}

	svc = NewService(nil, nil, Config{SMSTo: "+15550001111", EmailTo: "o@x.test"}, nil, nil)
	svc.LeadAlert(context.Background(), alertRecord())
}

func TestLeadAlertNilRecord(t *testing.T) {
	svc := NewService(&fakeSMS{}, nil, Config{SMSTo: "+15550001111"}, nil, nil)
	svc.LeadAlert(context.Background(), nil)
}
