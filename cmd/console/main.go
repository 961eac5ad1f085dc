package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/imu_adapter/internal/app"
	"github.com/relabs-tech/imu_adapter/internal/config"
)

func main() {
	configPath := flag.String("config", "./imu_adapter_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting imu-adapter console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsole(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
