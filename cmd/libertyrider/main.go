package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Guiyomee/LibertyRider-Hacs/internal/config"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/server"
	"github.com/Guiyomee/LibertyRider-Hacs/internal/store"
	"github.com/Guiyomee/LibertyRider-Hacs/web"
)

func main() {
	configPath := flag.String("config", "/etc/libertyrider/config.yaml", "Path to config file")
	demo := flag.Bool("demo", false, "Run with a simulated ride instead of the live API")
	listenAddr := flag.String("listen", "", "Override listen address (e.g. :8099)")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] libertyrider bridge starting")

	cfg := config.LoadConfig(*configPath)

	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *demo && len(cfg.Shares) == 0 {
		cfg.Shares = []config.ShareConfig{{
			ShareURL:            "https://rider.live/fr/a/demo",
			ScanIntervalMinutes: config.MinScanIntervalMin,
		}}
		cfg.Normalize()
	}
	if len(cfg.Shares) == 0 {
		log.Println("[main] no shares configured; add one via the config file or POST /api/shares")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down", sig)
		cancel()
	}()

	// Optional last-seen store; the bridge runs fine without it.
	lastSeen, err := store.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Printf("[main] redis unavailable, running without last-seen store: %v", err)
		lastSeen = nil
	}
	if lastSeen != nil {
		defer lastSeen.Close()
		log.Printf("[main] last-seen store connected at %s", cfg.Redis.Addr)
	}

	srv := server.New(cfg, lastSeen, web.FS, *demo)
	if err := srv.Run(ctx); err != nil {
		log.Printf("[main] server exited: %v", err)
	}
}
