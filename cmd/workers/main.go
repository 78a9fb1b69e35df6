package main

import (
	"github.com/fluxaudio/fluxaudio/internal/config"
	"github.com/fluxaudio/fluxaudio/internal/logging"
	"github.com/fluxaudio/fluxaudio/internal/worker/engine"
)

func main() {
	cfg := config.Load()
	log := logging.New("workers")

	r := engine.NewRouter(log, engine.Default())
	log.Infof("workers listening on %s", cfg.WorkersAddr)
	if err := r.Run(cfg.WorkersAddr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
