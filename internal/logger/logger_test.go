package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	in := []interface{}{"exercise_id", "push-ups", "playback_url", "https://x/y?sig=1", "api_token", "abc", "dangling"}
	out := sanitizeKVs(in)

	if len(out) != len(in) {
		t.Fatalf("expected %d values, got %d", len(in), len(out))
	}
	if out[1] != "push-ups" {
		t.Errorf("plain value changed: %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Errorf("playback_url not redacted: %v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Errorf("token not redacted: %v", out[5])
	}
	if out[6] != "dangling" {
		t.Errorf("dangling key lost: %v", out[6])
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("dev", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	l, err := New("production", "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.With("component", "test").Info("hello")
}
