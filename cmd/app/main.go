package main

import (
	"context"
	"flag"
	"log"
	"os"

	"FxCockpit/internal/di"
	"FxCockpit/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}
	if err := cfg.ValidateNarrative(); err != nil {
		if cfg.IsProduction() {
			log.Fatalf("narrative config invalid: %v", err)
		}
		log.Printf("narrative disabled until configured: %v", err)
	}

	log.Printf("env=%s symbol=%s tz=%s", cfg.Environment, cfg.Instrument.Symbol, cfg.Instrument.Timezone)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	err = app.Run(context.Background())
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
