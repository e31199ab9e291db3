package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"hospital/client/protocol"
	"hospital/client/ui"
	"hospital/config"
)

func main() {
	cfg := config.Load()

	serverAddr := flag.String("server", fmt.Sprintf("localhost:%d", cfg.Port),
		"hospital server address (host:port)")
	flag.Parse()

	connCfg := protocol.Config{
		WatchdogInterval:  time.Duration(cfg.WatchdogInterval) * time.Second,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    time.Duration(cfg.ReconnectDelay) * time.Second,
		SendWorkers:       cfg.SendWorkers,
	}

	app := ui.NewApp(*serverAddr, connCfg)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
