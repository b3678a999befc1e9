package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/client"
	"github.com/miradorstack/mirador-aiops/internal/engine"
)

// run-driver keeps a local engine busy so the websocket feed, hotspot miner
// and metrics have data during development.
func main() {
	var (
		endpoint string
		interval time.Duration
		runs     int
		events   int
	)
	flag.StringVar(&endpoint, "engine", "http://localhost:5000", "aiops-engine HTTP endpoint")
	flag.DurationVar(&interval, "interval", 2*time.Second, "delay between runs")
	flag.IntVar(&runs, "runs", 0, "stop after this many runs (0 = until interrupted)")
	flag.IntVar(&events, "events", 0, "alerts per run (0 = engine default)")
	flag.Parse()

	logger := log.New(log.Writer(), "run-driver ", log.LstdFlags|log.Lmicroseconds)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.NewEngineClient(endpoint, 10*time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

loop:
	for i := 1; runs == 0 || i <= runs; i++ {
		start := time.Now()
		result, err := c.Run(ctx, engine.RunOptions{Events: events})
		if err != nil {
			if ctx.Err() != nil {
				break loop
			}
			logger.Printf("run %d failed: %v", i, err)
		} else {
			logger.Printf("run %d: %d root causes [%s] in %s", i, len(result.RootCauses),
				strings.Join(result.RootCauses, ","), time.Since(start))
		}

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
	}

	hotspots, err := c.Hotspots(context.Background())
	if err != nil {
		logger.Printf("hotspots unavailable: %v", err)
		os.Exit(1)
	}
	for _, h := range hotspots {
		logger.Printf("hotspot %s: %d runs (%.0f%%)", h.Node, h.Count, h.Prevalence*100)
	}
}
