package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burrowhq/burrow/internal/config"
	"github.com/burrowhq/burrow/internal/engine"
	"github.com/burrowhq/burrow/pkg/logger"

	// Engine adapters register themselves at init time.
	_ "github.com/burrowhq/burrow/internal/database/mysql"
	_ "github.com/burrowhq/burrow/internal/database/postgres"
	_ "github.com/burrowhq/burrow/internal/database/sqlite"
)

var version = "dev"

func main() {
	var (
		envPath     = flag.String("env", ".env", "Path to the optional env file")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("burrow %s\n", version)
		return
	}

	log := logger.New("burrow", version)

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	eng := engine.NewEngine(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		log.Fatal("Failed to start engine: %v", err)
	}

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := eng.Stop(shutdownCtx); err != nil {
		log.Error("Shutdown error: %v", err)
		os.Exit(1)
	}
	log.Info("Engine stopped")
}
