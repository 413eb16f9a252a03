package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string
	CORSOrigins   []string

	// Lead storage
	LeadsTable string

	// Admin authorization
	AdminAllowlist []string
	AdminRole      string

	// Identity provider (Cognito)
	CognitoRegion     string
	CognitoUserPoolID string
	CognitoClientID   string

	// Suggested-DM generation
	SuggestProvider string
	BedrockModelID  string
	GeminiAPIKey    string
	GeminiModelID   string

	// Operator alerts
	TelnyxAPIKey             string
	TelnyxMessagingProfileID string
	AlertSMSFrom             string
	AlertSMSTo               string
	SendGridAPIKey           string
	SendGridFromEmail        string
	AlertEmailTo             string

	// Booking constraint shown in suggested DMs and alerts
	BookingNote string

	// Submission rate limiting
	RateWindow      time.Duration
	RateMaxRequests int
	RateBackend     string
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// DefaultBookingNote is the fallback booking instruction disclosed in every
// suggested DM and operator alert when BOOKING_NOTE is not set.
const DefaultBookingNote = "Booking requires a $20 deposit; the link is in our Instagram bio."

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		CORSOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS"),

		LeadsTable: getEnv("LEADS_TABLE", "leadline"),

		AdminAllowlist: getEnvAsList("ADMIN_ALLOWLIST"),
		AdminRole:      getEnv("ADMIN_ROLE", ""),

		CognitoRegion:     getEnv("COGNITO_REGION", getEnv("AWS_REGION", "us-east-1")),
		CognitoUserPoolID: getEnv("COGNITO_USER_POOL_ID", ""),
		CognitoClientID:   getEnv("COGNITO_CLIENT_ID", ""),

		SuggestProvider: strings.ToLower(strings.TrimSpace(getEnv("SUGGEST_PROVIDER", "bedrock"))),
		BedrockModelID:  getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:   getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),

		TelnyxAPIKey:             getEnv("TELNYX_API_KEY", ""),
		TelnyxMessagingProfileID: getEnv("TELNYX_MESSAGING_PROFILE_ID", ""),
		AlertSMSFrom:             getEnv("ALERT_SMS_FROM", ""),
		AlertSMSTo:               getEnv("ALERT_SMS_TO", ""),
		SendGridAPIKey:           getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:        getEnv("SENDGRID_FROM_EMAIL", ""),
		AlertEmailTo:             getEnv("ALERT_EMAIL_TO", ""),

		BookingNote: getEnv("BOOKING_NOTE", DefaultBookingNote),

		RateWindow:      getEnvAsDuration("RATE_WINDOW", 10*time.Minute),
		RateMaxRequests: getEnvAsInt("RATE_MAX_REQUESTS", 3),
		RateBackend:     strings.ToLower(strings.TrimSpace(getEnv("RATE_BACKEND", "store"))),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated env var, dropping empty entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
