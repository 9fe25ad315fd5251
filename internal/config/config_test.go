package config

import (
	"testing"
	"time"
)

func TestLoadSchedulerTimeouts(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL_SECONDS", "")
	t.Setenv("SCHEDULER_QUIZ_TIMEOUT_SECONDS", "")

	cfg := Load()
	if cfg.SchedulerInterval != 60*time.Second {
		t.Errorf("SchedulerInterval = %v, want 60s", cfg.SchedulerInterval)
	}
	if cfg.SchedulerQuizTimeout != 5*time.Second {
		t.Errorf("SchedulerQuizTimeout = %v, want 5s", cfg.SchedulerQuizTimeout)
	}
}

func TestLoadSchedulerQuizTimeoutOverride(t *testing.T) {
	t.Setenv("SCHEDULER_QUIZ_TIMEOUT_SECONDS", "12")

	cfg := Load()
	if cfg.SchedulerQuizTimeout != 12*time.Second {
		t.Errorf("SchedulerQuizTimeout = %v, want 12s", cfg.SchedulerQuizTimeout)
	}
}
