package main

import (
	"log"

	"findoc-backend/internal/bootstrap"
	"findoc-backend/internal/shared/config"
	"findoc-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	app.StartRetentionSweeper()
	defer app.StopRetentionSweeper()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting API server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
