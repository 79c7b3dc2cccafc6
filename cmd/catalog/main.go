package main

import (
	"context"
	"log"

	"github.com/neogan74/catalog/internal/app"
	"github.com/neogan74/catalog/internal/config"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.NewBuilder(cfg, version).Build(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Run(context.Background()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
