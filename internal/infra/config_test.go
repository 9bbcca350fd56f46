package infra

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AUTH_BASE_URL", "https://auth.example.com")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("ADMIN_EMAIL", "")
	t.Setenv("INITIAL_CREDITS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port mismatch: got %q", cfg.Port)
	}
	if cfg.AdminEmail != "admin@match.com" {
		t.Fatalf("AdminEmail mismatch: got %q", cfg.AdminEmail)
	}
	if cfg.InitialCredits != 5 {
		t.Fatalf("InitialCredits mismatch: got %d", cfg.InitialCredits)
	}
}

func TestLoadConfigLowercasesAdminEmail(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ADMIN_EMAIL", "Admin@Match.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AdminEmail != "admin@match.com" {
		t.Fatalf("AdminEmail mismatch: got %q", cfg.AdminEmail)
	}
}

func TestLoadConfigRequiresAuthBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AUTH_BASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when AUTH_BASE_URL missing")
	}
}

func TestLoadConfigRejectsNegativeInitialCredits(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("INITIAL_CREDITS", "-1")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for negative INITIAL_CREDITS")
	}
}
