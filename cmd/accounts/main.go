package main

import (
	"context"
	"os"

	"github.com/fluxaudio/fluxaudio/internal/accounts"
	"github.com/fluxaudio/fluxaudio/internal/config"
	"github.com/fluxaudio/fluxaudio/internal/db"
	"github.com/fluxaudio/fluxaudio/internal/logging"
	"github.com/fluxaudio/fluxaudio/internal/notify"
)

func main() {
	cfg := config.Load()
	log := logging.New("accounts")

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	if err := accounts.Migrate(gdb); err != nil {
		log.WithError(err).Fatal("db migrate")
	}

	var notifier notify.Notifier
	if pub, err := notify.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		log.WithError(err).Warn("rabbit unavailable, payment notifications disabled")
	} else {
		defer pub.Close()
		notifier = pub
	}

	repo := accounts.NewRepo(gdb)
	svc := accounts.NewService(repo, notifier, log, cfg.JWTSecret, cfg.TokenTTL)

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin_password_raw"
	}
	if err := svc.SeedAdmin(context.Background(), adminPassword); err != nil {
		log.WithError(err).Fatal("seed admin")
	}

	r := accounts.NewRouter(svc, cfg.JWTSecret)
	log.Infof("accounts listening on %s", cfg.AccountsAddr)
	if err := r.Run(cfg.AccountsAddr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
