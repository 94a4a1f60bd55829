// enginectl is a minimal demo binary for the matching engine: it replays a
// market-data CSV file through internal/simulator against a time-sliced
// execution schedule and prints the resulting report. It exists to give
// the core packages a runnable entry point, not as a production CLI —
// flag parsing stays intentionally small scope.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"lobengine/internal/config"
	"lobengine/internal/csvfeed"
	"lobengine/internal/execution"
	"lobengine/internal/simulator"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("enginectl", flag.ContinueOnError)
	dataPath := fs.String("data", "", "path to a market-data CSV file (required)")
	configPath := fs.String("config", "", "path to a YAML config file (optional, defaults applied if omitted)")
	symbol := fs.String("symbol", "BTCUSD", "symbol to replay from the market-data file")
	spreadBps := fs.Float64("spread-bps", 10, "synthetic bid/ask spread, in bps, to apply around each recorded price")
	qty := fs.Float64("qty", 1000, "target quantity for the execution schedule")
	buy := fs.Bool("buy", true, "true for a buy schedule, false for a sell schedule")
	duration := fs.Duration("duration", 10*time.Minute, "execution schedule duration")
	slices := fs.Int("slices", 10, "number of slices")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *dataPath == "" {
		fmt.Fprintln(os.Stderr, "enginectl: -data is required")
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var simCfg config.SimulatorConfig
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err, "path", *configPath)
			return 1
		}
		if err := cfg.Validate(); err != nil {
			logger.Error("invalid config", "error", err)
			return 1
		}
		simCfg = cfg.Simulator
	}

	file, err := os.Open(*dataPath)
	if err != nil {
		logger.Error("failed to open market-data file", "error", err, "path", *dataPath)
		return 1
	}
	defer file.Close()

	records, err := csvfeed.Read(file)
	if err != nil {
		logger.Error("failed to parse market-data file", "error", err)
		return 1
	}
	ticks := csvfeed.ToTicks(records, *symbol, *spreadBps)
	if len(ticks) == 0 {
		logger.Error("no market-data rows matched symbol", "symbol", *symbol)
		return 1
	}

	sched := &execution.TimeSliced{
		Base:      execution.Base{TargetQuantity: *qty, IsBuy: *buy},
		Duration:  *duration,
		NumSlices: *slices,
	}

	sim := simulator.NewReplay(toSimulatorConfig(simCfg), ticks)
	result, err := sim.Run(context.Background(), sched, len(ticks), 0)
	if err != nil {
		logger.Error("simulation run failed", "error", err)
		return 1
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to marshal report", "error", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

// toSimulatorConfig adapts the viper-loaded config.SimulatorConfig into
// internal/simulator's own Config, which stays free of a config-package
// import so it can be used without pulling in viper.
func toSimulatorConfig(c config.SimulatorConfig) simulator.Config {
	return simulator.Config{
		InitialPrice:      c.InitialPrice,
		Volatility:        c.Volatility,
		SpreadBps:         c.SpreadBps,
		ADV:               c.ADV,
		TickSize:          c.TickSize,
		TicksPerSecond:    c.TicksPerSecond,
		FillProbability:   c.FillProbability,
		ApplyMarketImpact: c.ApplyMarketImpact,
		RandomSeed:        c.RandomSeed,
	}
}
