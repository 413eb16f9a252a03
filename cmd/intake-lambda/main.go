package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/lunarlash/leadline/cmd/mainconfig"
	appconfig "github.com/lunarlash/leadline/internal/config"
	"github.com/lunarlash/leadline/internal/http/handlers"
	"github.com/lunarlash/leadline/internal/notify"
	"github.com/lunarlash/leadline/internal/ratelimit"
	"github.com/lunarlash/leadline/internal/store"
	"github.com/lunarlash/leadline/internal/suggest"
	"github.com/lunarlash/leadline/pkg/logging"
)

// The lambda serves only the public intake operation. Admin endpoints stay on
// the long-running API server.
func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	kv := store.New(dynamodb.NewFromConfig(awsCfg), cfg.LeadsTable, logger)
	limiter := ratelimit.NewSlidingWindow(kv, cfg.RateWindow, cfg.RateMaxRequests, logger)

	var gen suggest.Generator
	if cfg.SuggestProvider == "bedrock" && cfg.BedrockModelID != "" {
		if g, err := suggest.NewBedrockGenerator(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID); err == nil {
			gen = g
		} else {
			logger.Warn("bedrock generator unavailable, using template fallback", "error", err)
		}
	}
	suggestSvc := suggest.NewService(gen, cfg.SuggestProvider, cfg.BookingNote, nil, logger)

	var smsSender notify.SMSSender
	if cfg.TelnyxAPIKey != "" && cfg.AlertSMSFrom != "" {
		smsSender = notify.NewTelnyxSender(cfg.TelnyxAPIKey, cfg.TelnyxMessagingProfileID, cfg.AlertSMSFrom, logger)
	}
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFromEmail, logger); sg != nil {
		emailSender = sg
	}
	alerts := notify.NewService(smsSender, emailSender, notify.Config{
		SMSTo:         cfg.AlertSMSTo,
		EmailTo:       cfg.AlertEmailTo,
		PublicBaseURL: cfg.PublicBaseURL,
	}, nil, logger)

	intake := handlers.NewIntakeHandler(kv, limiter, suggestSvc, alerts, cfg.BookingNote, nil, logger)

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, intake, evt)
	})
}

func handle(ctx context.Context, intake *handlers.IntakeHandler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := toHTTPRequest(ctx, evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"ok":false,"error":"Invalid request"}`,
		}, nil
	}

	rec := newResponseCapture()
	intake.Submit(rec, req)

	headers := make(map[string]string, len(rec.header))
	for k := range rec.header {
		headers[k] = rec.header.Get(k)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: rec.status,
		Headers:    headers,
		Body:       rec.body.String(),
	}, nil
}

// responseCapture buffers a handler response for translation back into an
// API Gateway payload.
type responseCapture struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseCapture() *responseCapture {
	return &responseCapture{header: make(http.Header), status: http.StatusOK}
}

func (r *responseCapture) Header() http.Header { return r.header }

func (r *responseCapture) Write(p []byte) (int, error) { return r.body.Write(p) }

func (r *responseCapture) WriteHeader(status int) { r.status = status }

func toHTTPRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body := []byte(evt.Body)
	if evt.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(evt.Body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}

	method := strings.ToUpper(evt.RequestContext.HTTP.Method)
	if method == "" {
		method = http.MethodPost
	}
	path := evt.RawPath
	if path == "" {
		path = "/leads"
	}

	req, err := http.NewRequestWithContext(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if ip := evt.RequestContext.HTTP.SourceIP; ip != "" {
		req.Header.Set("X-Real-Ip", ip)
	}
	return req, nil
}
