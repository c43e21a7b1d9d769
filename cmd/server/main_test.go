package main

import "testing"

func TestStartReportsFailureExitCode(t *testing.T) {
	t.Setenv("LOG_MODE", "prod")
	t.Setenv("PLAYLIST_MISTAKE_INCLUSION_PROBABILITY", "2")

	if code := start(); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
