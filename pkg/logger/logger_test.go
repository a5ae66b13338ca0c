package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithUserID(ctx, "user-9")
	ctx = logg.WithActorRole(ctx, "farmer")
	logg.Info(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("expected request_id, got %v", entry["request_id"])
	}
	if entry["user_id"] != "user-9" {
		t.Fatalf("expected user_id, got %v", entry["user_id"])
	}
	if entry["actor_role"] != "farmer" {
		t.Fatalf("expected actor_role, got %v", entry["actor_role"])
	}
	if entry["service"] != "test" {
		t.Fatalf("expected service name, got %v", entry["service"])
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if ParseLevel("nope") != zerolog.InfoLevel {
		t.Fatal("expected info fallback")
	}
	if ParseLevel("debug") != zerolog.DebugLevel {
		t.Fatal("expected debug")
	}
}
