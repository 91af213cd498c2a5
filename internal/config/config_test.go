package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080, BaseURL: "https://example.com"},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "receptionist", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "iss", JWTAudience: "aud"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaultsProvidersAndTimeouts(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "receptionist"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Scrape.Timeout != 90*time.Second || c.LLM.Timeout != 60*time.Second || c.Voice.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout defaults: %v %v %v", c.Scrape.Timeout, c.LLM.Timeout, c.Voice.Timeout)
	}
	if c.App.BaseURL != "http://localhost:8080" {
		t.Fatalf("expected local base url default, got %q", c.App.BaseURL)
	}
	if c.Voice.BaseURL == "" || c.LLM.Model == "" {
		t.Fatalf("expected provider defaults")
	}
}

func TestValidate_StagingRequiresProviderKeys(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "staging", Port: 8080, BaseURL: "https://staging.example.com"},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "receptionist", SSLMode: "require"},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for staging without provider credentials")
	}
}

func TestWebhookCallbackURL(t *testing.T) {
	c := Config{App: AppConfig{BaseURL: "https://example.com"}}
	if got := c.WebhookCallbackURL(); got != "https://example.com/webhooks/voice" {
		t.Fatalf("unexpected callback url: %q", got)
	}
}
