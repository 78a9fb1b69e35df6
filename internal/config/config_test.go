package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.OrchestratorAddr != ":8004" {
		t.Errorf("orchestrator addr: %q", cfg.OrchestratorAddr)
	}
	if cfg.JobStoreBackend != "memory" {
		t.Errorf("job store backend: %q", cfg.JobStoreBackend)
	}
	if cfg.RabbitQueue != "notifications" {
		t.Errorf("rabbit queue: %q", cfg.RabbitQueue)
	}
	if cfg.WorkerTimeout != 10*time.Minute {
		t.Errorf("worker timeout: %v", cfg.WorkerTimeout)
	}
	if cfg.DownloadDebitMinutes != 1 {
		t.Errorf("debit minutes: %d", cfg.DownloadDebitMinutes)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("token ttl: %v", cfg.TokenTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORCHESTRATOR_ADDR", ":9999")
	t.Setenv("JOB_STORE", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("WORKER_TIMEOUT_SECONDS", "45")
	t.Setenv("DOWNLOAD_DEBIT_MINUTES", "2")
	t.Setenv("TOKEN_TTL_MINUTES", "5")

	cfg := Load()
	if cfg.OrchestratorAddr != ":9999" {
		t.Errorf("orchestrator addr: %q", cfg.OrchestratorAddr)
	}
	if cfg.JobStoreBackend != "redis" || cfg.RedisDB != 3 {
		t.Errorf("redis settings: backend=%q db=%d", cfg.JobStoreBackend, cfg.RedisDB)
	}
	if cfg.WorkerTimeout != 45*time.Second {
		t.Errorf("worker timeout: %v", cfg.WorkerTimeout)
	}
	if cfg.DownloadDebitMinutes != 2 {
		t.Errorf("debit minutes: %d", cfg.DownloadDebitMinutes)
	}
	if cfg.TokenTTL != 5*time.Minute {
		t.Errorf("token ttl: %v", cfg.TokenTTL)
	}
}

func TestLoad_IgnoresInvalidNumericEnv(t *testing.T) {
	t.Setenv("WORKER_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("DOWNLOAD_DEBIT_MINUTES", "-4")

	cfg := Load()
	if cfg.WorkerTimeout != 10*time.Minute {
		t.Errorf("invalid timeout should keep the default, got %v", cfg.WorkerTimeout)
	}
	if cfg.DownloadDebitMinutes != 1 {
		t.Errorf("negative debit should keep the default, got %d", cfg.DownloadDebitMinutes)
	}
}
