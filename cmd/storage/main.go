package main

import (
	"github.com/fluxaudio/fluxaudio/internal/config"
	"github.com/fluxaudio/fluxaudio/internal/logging"
	"github.com/fluxaudio/fluxaudio/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logging.New("storage")

	fs, err := storage.NewFSStore(cfg.StorageRoot)
	if err != nil {
		log.WithError(err).Fatal("storage root")
	}
	log.Infof("storage root: %s", cfg.StorageRoot)

	r := storage.NewRouter(fs, log)
	log.Infof("storage listening on %s", cfg.StorageAddr)
	if err := r.Run(cfg.StorageAddr); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
