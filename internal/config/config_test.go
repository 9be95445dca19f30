package config

import "testing"

func TestLoadFallsBackToDefaultOnMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	if cfg.Server.Port != want.Server.Port {
		t.Errorf("expected default server port, got %q", cfg.Server.Port)
	}
	if cfg.Scheduler.IntervalMinutes != want.Scheduler.IntervalMinutes {
		t.Errorf("expected default scheduler interval, got %d", cfg.Scheduler.IntervalMinutes)
	}
}

func TestDefaultQueueCapacity(t *testing.T) {
	if Default().Queue.Capacity != 10 {
		t.Errorf("expected default queue capacity of 10, got %d", Default().Queue.Capacity)
	}
}
