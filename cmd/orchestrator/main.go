package main

import (
	"context"

	"github.com/fluxaudio/fluxaudio/internal/billing"
	"github.com/fluxaudio/fluxaudio/internal/config"
	"github.com/fluxaudio/fluxaudio/internal/httpapi"
	"github.com/fluxaudio/fluxaudio/internal/job"
	"github.com/fluxaudio/fluxaudio/internal/logging"
	"github.com/fluxaudio/fluxaudio/internal/notify"
	"github.com/fluxaudio/fluxaudio/internal/observability"
	"github.com/fluxaudio/fluxaudio/internal/orchestrator"
	"github.com/fluxaudio/fluxaudio/internal/storage"
	"github.com/fluxaudio/fluxaudio/internal/store/redisstore"
	"github.com/fluxaudio/fluxaudio/internal/worker"
)

// logNotifier keeps the orchestrator usable without a broker; delivery
// stays best-effort either way.
type logNotifier struct{ log loggerLike }

type loggerLike interface {
	Infof(format string, args ...any)
}

func (n logNotifier) Publish(_ context.Context, msg notify.Notification) error {
	n.log.Infof("notification (local): user=%s kind=%s %s", msg.UserID, msg.Kind, msg.Message)
	return nil
}

func main() {
	cfg := config.Load()
	log := logging.New("orchestrator")

	var store job.Store
	switch cfg.JobStoreBackend {
	case "redis":
		store = redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		log.Info("using redis job store")
	default:
		store = job.NewMemoryStore()
		log.Info("using in-memory job store")
	}

	registry := worker.NewRegistry()
	registry.Register(job.CapabilityTTS, cfg.TTSURL)
	registry.Register(job.CapabilitySTT, cfg.STTURL)
	registry.Register(job.CapabilityNoiseRemoval, cfg.NoiseURL)
	log.Infof("registered capabilities: %v", registry.Capabilities())

	var notifier notify.Notifier
	if pub, err := notify.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.WithError(err).Warn("rabbit unavailable, notifications will only be logged")
		notifier = logNotifier{log: log}
	} else {
		defer pub.Close()
		notifier = pub
	}

	metrics := observability.NewMetrics()

	svc := orchestrator.NewService(orchestrator.Options{
		Store:         store,
		Blobs:         storage.NewClient(cfg.StorageURL),
		Billing:       billing.NewClient(cfg.AccountsURL),
		Registry:      registry,
		Invoker:       worker.NewClient(),
		Notifier:      notifier,
		Log:           log,
		Metrics:       metrics,
		WorkerTimeout: cfg.WorkerTimeout,
		Estimate:      orchestrator.FixedMinutes(cfg.DownloadDebitMinutes),
	})

	r := httpapi.NewRouter(svc, cfg.JWTSecret, metrics)
	log.Infof("orchestrator listening on %s", cfg.OrchestratorAddr)
	if err := r.Run(cfg.OrchestratorAddr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
