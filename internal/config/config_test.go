package config

import (
	"testing"
	"time"
)

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}

func TestValidateArchiveNeedsS3(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error: archive mode without s3 bucket/region")
	}

	cfg.S3.Bucket = "receipts"
	cfg.S3.Region = "us-east-1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("archive mode with s3 should validate: %v", err)
	}
}

func TestValidatePostgresRequiresDSNOrParts(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres = PostgresConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty postgres config")
	}

	cfg.Postgres.DSN = "postgres://u:p@localhost:5432/db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dsn alone should validate: %v", err)
	}
}

func TestRetentionCutoff(t *testing.T) {
	a := ArchiveConfig{RetentionDays: 30}
	now := time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)
	want := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if got := a.RetentionCutoff(now); !got.Equal(want) {
		t.Fatalf("cutoff=%s want=%s", got, want)
	}
}
