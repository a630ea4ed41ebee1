package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PLATFORM_FEE", "")
	t.Setenv("LEDGER_TIMEOUT_SECONDS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.PlatformFee.String() != "0.2" {
		t.Fatalf("expected default platform fee 0.2, got %s", cfg.PlatformFee)
	}
	if cfg.LedgerTimeout != 15*time.Second {
		t.Fatalf("unexpected ledger timeout: %s", cfg.LedgerTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLATFORM_FEE", "0.35")
	t.Setenv("WALLET_TIMEOUT_SECONDS", "3")
	t.Setenv("DB_DRIVER", "pgx")
	cfg := Load()
	if cfg.PlatformFee.String() != "0.35" {
		t.Fatalf("unexpected platform fee: %s", cfg.PlatformFee)
	}
	if cfg.WalletTimeout != 3*time.Second {
		t.Fatalf("unexpected wallet timeout: %s", cfg.WalletTimeout)
	}
	if cfg.DBDriver != "pgx" {
		t.Fatalf("unexpected driver: %s", cfg.DBDriver)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PLATFORM_FEE", "-1")
	t.Setenv("TOKEN_TTL_MINUTES", "abc")
	cfg := Load()
	if cfg.PlatformFee.String() != "0.2" {
		t.Fatalf("negative fee should fall back, got %s", cfg.PlatformFee)
	}
	if cfg.TokenTTL != 60*time.Minute {
		t.Fatalf("invalid ttl should fall back, got %s", cfg.TokenTTL)
	}
}
