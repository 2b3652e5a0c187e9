package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	s := Load()

	if s.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q", s.OpenAIModel)
	}
	if s.TokenLimitPerMinute != 180_000 {
		t.Errorf("TokenLimitPerMinute = %d", s.TokenLimitPerMinute)
	}
	if s.SourceLabel != "School" || s.ProcessedLabel != "SchoolProcessed" {
		t.Errorf("labels = %q, %q", s.SourceLabel, s.ProcessedLabel)
	}
	if s.CalendarSink != SinkGoogle || s.CalendarID != "primary" {
		t.Errorf("sink = %q, calendar = %q", s.CalendarSink, s.CalendarID)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() with defaults = %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("MAX_TOKENS_PER_REQUEST", "8000")
	t.Setenv("GMAIL_SOURCE_LABEL", "Newsletters")

	s := Load()
	if s.OpenAIModel != "gpt-4o" {
		t.Errorf("OpenAIModel = %q", s.OpenAIModel)
	}
	if s.MaxTokensPerRequest != 8000 {
		t.Errorf("MaxTokensPerRequest = %d", s.MaxTokensPerRequest)
	}
	if s.SourceLabel != "Newsletters" {
		t.Errorf("SourceLabel = %q", s.SourceLabel)
	}
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	setRequired(t)
	t.Setenv("MAX_ATTEMPTS", "lots")

	if s := Load(); s.MaxAttempts != 6 {
		t.Errorf("MaxAttempts = %d, want default 6", s.MaxAttempts)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{
			name:    "missing api key",
			mutate:  func(s *Settings) { s.OpenAIAPIKey = "" },
			wantErr: "OPENAI_API_KEY",
		},
		{
			name:    "non-positive request limit",
			mutate:  func(s *Settings) { s.MaxTokensPerRequest = 0 },
			wantErr: "MAX_TOKENS_PER_REQUEST",
		},
		{
			name:    "buffer swallows whole request",
			mutate:  func(s *Settings) { s.ResponseBuffer = s.MaxTokensPerRequest },
			wantErr: "RESPONSE_BUFFER",
		},
		{
			name:    "negative minute budget",
			mutate:  func(s *Settings) { s.TokenLimitPerMinute = -1 },
			wantErr: "TOKEN_LIMIT_PER_MINUTE",
		},
		{
			name:    "unknown sink",
			mutate:  func(s *Settings) { s.CalendarSink = "outlook" },
			wantErr: "CALENDAR_SINK",
		},
		{
			name:    "icloud sink without credentials",
			mutate:  func(s *Settings) { s.CalendarSink = SinkICloud },
			wantErr: "ICLOUD_USERNAME",
		},
		{
			name:   "none sink needs nothing extra",
			mutate: func(s *Settings) { s.CalendarSink = SinkNone },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			s := Load()
			tt.mutate(s)

			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestMaxChunkChars(t *testing.T) {
	s := &Settings{MaxTokensPerRequest: 4000, ResponseBuffer: 100}
	if got := s.MaxChunkChars(); got != 15600 {
		t.Errorf("MaxChunkChars() = %d, want 15600", got)
	}
}
