// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

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

	log.Println("starting imu-adapter (MQTT imu → imu_fusion with covariances)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunIMUAdapter(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
