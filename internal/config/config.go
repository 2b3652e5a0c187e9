package config

import (
	"fmt"
	"os"
	"strconv"
)

// Rough average characters per token for English prose. The original token
// counting used a real tokenizer; an estimate is close enough for sizing
// chunks well under the request limit.
const charsPerToken = 4

// Calendar sink selection values for the CALENDAR_SINK variable.
const (
	SinkGoogle = "google"
	SinkICloud = "icloud"
	SinkNone   = "none"
)

// Settings holds everything the pipeline needs, loaded from the environment.
// A .env file, if present, is loaded into the environment by main before
// Load is called.
type Settings struct {
	OpenAIAPIKey        string
	OpenAIModel         string
	TokenLimitPerMinute int // Provider tokens-per-minute budget; 0 disables the budget
	MaxTokensPerRequest int
	ResponseBuffer      int // Tokens reserved for the model's response
	MaxAttempts         int // Retry budget for a single completion request

	SourceLabel    string // Gmail label marking emails waiting to be processed
	ProcessedLabel string // Gmail label applied once an email is fully processed
	ToEmail        string // Recipient for digest emails; empty disables digests

	GoogleClientID     string
	GoogleClientSecret string

	CalendarSink string // google, icloud or none
	CalendarID   string // Google Calendar ID for the google sink

	ICloudUsername string
	ICloudPassword string
	ICloudCalendar string

	LogLevel string
}

// Load reads settings from the environment, applying defaults.
func Load() *Settings {
	return &Settings{
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         envOr("OPENAI_MODEL", "gpt-4o-mini"),
		TokenLimitPerMinute: envInt("TOKEN_LIMIT_PER_MINUTE", 180_000),
		MaxTokensPerRequest: envInt("MAX_TOKENS_PER_REQUEST", 4000),
		ResponseBuffer:      envInt("RESPONSE_BUFFER", 100),
		MaxAttempts:         envInt("MAX_ATTEMPTS", 6),
		SourceLabel:         envOr("GMAIL_SOURCE_LABEL", "School"),
		ProcessedLabel:      envOr("GMAIL_PROCESSED_LABEL", "SchoolProcessed"),
		ToEmail:             os.Getenv("TO_EMAIL"),
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
		CalendarSink:        envOr("CALENDAR_SINK", SinkGoogle),
		CalendarID:          envOr("GOOGLE_CALENDAR_ID", "primary"),
		ICloudUsername:      os.Getenv("ICLOUD_USERNAME"),
		ICloudPassword:      os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"),
		ICloudCalendar:      os.Getenv("ICLOUD_CALENDAR_NAME"),
		LogLevel:            envOr("LOG_LEVEL", "info"),
	}
}

// Validate checks that the settings are usable. Validation failures are
// fatal at startup; nothing later in the run should fail on configuration.
func (s *Settings) Validate() error {
	if s.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	if s.MaxTokensPerRequest <= 0 {
		return fmt.Errorf("MAX_TOKENS_PER_REQUEST must be positive, got %d", s.MaxTokensPerRequest)
	}
	if s.ResponseBuffer < 0 || s.ResponseBuffer >= s.MaxTokensPerRequest {
		return fmt.Errorf("RESPONSE_BUFFER must be between 0 and MAX_TOKENS_PER_REQUEST, got %d", s.ResponseBuffer)
	}
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("MAX_ATTEMPTS must be positive, got %d", s.MaxAttempts)
	}
	if s.TokenLimitPerMinute < 0 {
		return fmt.Errorf("TOKEN_LIMIT_PER_MINUTE must not be negative, got %d", s.TokenLimitPerMinute)
	}
	switch s.CalendarSink {
	case SinkGoogle, SinkNone:
	case SinkICloud:
		if s.ICloudUsername == "" || s.ICloudPassword == "" || s.ICloudCalendar == "" {
			return fmt.Errorf("CALENDAR_SINK=icloud requires ICLOUD_USERNAME, ICLOUD_APP_SPECIFIC_PASSWORD and ICLOUD_CALENDAR_NAME")
		}
	default:
		return fmt.Errorf("invalid CALENDAR_SINK %q, must be google, icloud or none", s.CalendarSink)
	}
	return nil
}

// MaxChunkChars converts the per-request token budget into a character
// budget for the chunker, leaving room for the model's response.
func (s *Settings) MaxChunkChars() int {
	return (s.MaxTokensPerRequest - s.ResponseBuffer) * charsPerToken
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
