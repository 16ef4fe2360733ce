package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/thehamish555/49SQN-Automation/internal/config"
	"github.com/thehamish555/49SQN-Automation/internal/server"
	"github.com/thehamish555/49SQN-Automation/internal/util"
)

var (
	port    = flag.Int("port", 0, "listen port (overrides config.toml)")
	devMode = flag.Bool("dev", false, "development mode")
	dataDir = flag.String("dataDir", "", "data directory (overrides config.toml)")
	noOpen  = flag.Bool("no-open", false, "do not open the browser on startup")
)

func main() {
	flag.Parse()

	// Local overrides for development; missing .env is fine.
	_ = godotenv.Load()

	fmt.Println("==========================================")
	fmt.Println("  49SQN Portal - Training Program Server")
	fmt.Println("==========================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer srv.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	go func() {
		fmt.Printf("Listening on port %d ...\n", cfg.Server.Port)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if cfg.Server.DevMode {
		fmt.Printf("Development mode: visit %s\n", url)
	} else if !*noOpen {
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("Could not open a browser, visit %s manually\n", url)
		}
	}

	fmt.Println("\nPress Ctrl+C to stop ...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down ...")
}
