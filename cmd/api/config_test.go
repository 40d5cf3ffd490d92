package main

import (
	"strings"
	"testing"
)

func TestLoadConfigRejectsDefaultSecretsInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_TOKEN_SECRET", "")
	t.Setenv("QR_SECRET", "")
	t.Setenv("AUTH_BASIC_PASS", "")

	err := loadConfig().validate()
	if err == nil {
		t.Fatal("expected default secrets to be refused")
	}
	for _, name := range []string{"AUTH_TOKEN_SECRET", "QR_SECRET", "AUTH_BASIC_PASS"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %s in %q", name, err)
		}
	}
}

func TestLoadConfigAcceptsConfiguredSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_TOKEN_SECRET", "a-real-token-secret")
	t.Setenv("QR_SECRET", "a-real-qr-secret")
	t.Setenv("AUTH_BASIC_PASS", "ops-password")

	cfg := loadConfig()
	if err := cfg.validate(); err != nil {
		t.Fatal(err)
	}
	if names := cfg.insecureDefaults(); len(names) != 0 {
		t.Errorf("unexpected defaults %v", names)
	}
}

func TestLoadConfigAllowsDefaultsInDevelopment(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("AUTH_TOKEN_SECRET", "")
	t.Setenv("QR_SECRET", "")

	cfg := loadConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("development must start with defaults: %v", err)
	}
	if len(cfg.insecureDefaults()) == 0 {
		t.Error("defaults should still be reported for a warning")
	}
}
