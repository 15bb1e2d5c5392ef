package instance

import "testing"

func TestIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("CALORIELENS_INSTANCE_ID", "api-7")
	if got := ID(); got != "web.1" {
		t.Fatalf("expected web.1, got %q", got)
	}
}

func TestIDFallsBack(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("CALORIELENS_INSTANCE_ID", "api-7")
	if got := ID(); got != "api-7" {
		t.Fatalf("expected api-7, got %q", got)
	}

	t.Setenv("CALORIELENS_INSTANCE_ID", "  ")
	if got := ID(); got != "local" {
		t.Fatalf("expected local, got %q", got)
	}
}
