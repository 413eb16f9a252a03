package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/lunarlash/leadline/internal/leads"
	"github.com/lunarlash/leadline/internal/observability/metrics"
	"github.com/lunarlash/leadline/internal/ratelimit"
	"github.com/lunarlash/leadline/pkg/logging"
)

// maxBodyBytes caps the intake request body.
const maxBodyBytes = 10 << 10

// LeadStore is the durable KV surface the handlers need.
type LeadStore interface {
	Put(ctx context.Context, key string, rec *leads.Record) error
	Get(ctx context.Context, key string) (*leads.Record, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	GetMany(ctx context.Context, keys []string, width int) []*leads.Record
}

// DMSuggester produces the suggested outreach DM for a sanitized contact.
type DMSuggester interface {
	SuggestDM(ctx context.Context, contact leads.Contact) string
}

// Alerter fans the new-lead alert out to the owner.
type Alerter interface {
	LeadAlert(ctx context.Context, rec *leads.Record)
}

// IntakeHandler accepts public lead form submissions.
type IntakeHandler struct {
	store       LeadStore
	limiter     ratelimit.Limiter
	suggester   DMSuggester
	alerter     Alerter
	bookingNote string
	metrics     *metrics.IntakeMetrics
	logger      *logging.Logger
	now         func() time.Time
}

func NewIntakeHandler(store LeadStore, limiter ratelimit.Limiter, suggester DMSuggester, alerter Alerter, bookingNote string, m *metrics.IntakeMetrics, logger *logging.Logger) *IntakeHandler {
	if store == nil {
		panic("handlers: lead store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IntakeHandler{
		store:       store,
		limiter:     limiter,
		suggester:   suggester,
		alerter:     alerter,
		bookingNote: bookingNote,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit handles POST /leads.
func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if r.ContentLength > maxBodyBytes {
		h.metrics.RecordSubmission("too_large")
		writeError(w, http.StatusRequestEntityTooLarge, "Request too large")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.RecordSubmission("too_large")
		writeError(w, http.StatusRequestEntityTooLarge, "Request too large")
		return
	}

	var sub leads.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		h.metrics.RecordSubmission("bad_json")
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Honeypot trip. Real visitors never fill this field.
	if sub.HP != "" {
		h.metrics.RecordSubmission("spam")
		writeError(w, http.StatusBadRequest, "Spam detected")
		return
	}

	contact, err := leads.Sanitize(sub)
	if err != nil {
		h.metrics.RecordSubmission("invalid")
		writeError(w, http.StatusBadRequest, submissionError(err))
		return
	}

	source := clientIP(r)
	if h.limiter != nil && !h.limiter.Allow(r.Context(), source) {
		h.metrics.RecordRateLimited()
		h.metrics.RecordSubmission("rate_limited")
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	now := h.now()
	rec := leads.New(leads.NewID(now), now, contact, leads.Meta{
		Referrer:   r.Referer(),
		UserAgent:  r.UserAgent(),
		SourceAddr: source,
	}, h.bookingNote)

	if h.suggester != nil {
		rec.SuggestedDM = h.suggester.SuggestDM(r.Context(), contact)
	}

	if err := h.store.Put(r.Context(), leads.Key(rec.ID), rec); err != nil {
		h.logger.Error("intake: failed to persist lead", "error", err, "lead_id", rec.ID)
		h.metrics.RecordSubmission("store_error")
		writeError(w, http.StatusInternalServerError, "Unable to save your request. Please DM us on Instagram.")
		return
	}

	if h.alerter != nil {
		h.alerter.LeadAlert(r.Context(), rec)
	}

	h.metrics.RecordSubmission("created")
	h.metrics.ObserveIntakeLatency(time.Since(start).Seconds())
	h.logger.Info("lead created", "lead_id", rec.ID, "source", source)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"id":           rec.ID,
		"suggested_dm": rec.SuggestedDM,
	})
}

func submissionError(err error) string {
	switch {
	case errors.Is(err, leads.ErrMissingName):
		return "Please tell us your name."
	case errors.Is(err, leads.ErrMissingContact):
		return "Please include a phone number or Instagram handle."
	default:
		return "Invalid submission"
	}
}

// clientIP prefers the X-Real-Ip header set by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
