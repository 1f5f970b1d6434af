// Command simulator moves a fleet of fake couriers around Paris and reports
// their positions to the tracking API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/livraison/courier-tracking/internal/simulator"
	"github.com/livraison/courier-tracking/pkg/logger"
)

func main() {
	var (
		baseURL   = pflag.String("url", "http://localhost:8000/api", "base URL of the tracking API")
		interval  = pflag.Duration("interval", simulator.DefaultInterval, "duration of one update cycle")
		spacing   = pflag.Duration("spacing", simulator.DefaultSpacing, "delay between two couriers within a cycle")
		fleetFile = pflag.String("fleet", "", "YAML fleet file (defaults to five Paris couriers)")
		cycles    = pflag.Int("cycles", 0, "number of cycles to run, 0 runs until interrupted")
		debug     = pflag.Bool("debug", false, "enable debug logging")
	)
	pflag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	log := logger.Init(logger.Options{Level: level, Pretty: true, Output: os.Stderr, Service: "simulator"})

	fleet := simulator.DefaultFleet()
	if *fleetFile != "" {
		f, err := simulator.LoadFleet(*fleetFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", *fleetFile).Msg("invalid fleet file")
		}
		fleet = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := simulator.NewRunner(simulator.NewClient(*baseURL, 5*time.Second), fleet, simulator.Options{
		Interval: *interval,
		Spacing:  *spacing,
		Cycles:   *cycles,
		Seed:     uint64(time.Now().UnixNano()),
	}, log)

	if err := runner.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
}
