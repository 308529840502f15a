// Command lobsim runs the limit order book simulation: a standalone
// generator driving a book headlessly (stream/profile) or the full
// websocket broadcaster (ws).
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lobsim/internal/broadcaster"
	"lobsim/internal/config"
	"lobsim/internal/sampler"
	"lobsim/internal/simulation"
)

const (
	exitSuccess = 0
	exitBadArgs = 1
	exitFault   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: lobsim <stream|profile|ws> [flags]")
		return exitBadArgs
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitBadArgs
	}
	setupLogging(cfg.Logging)

	switch args[0] {
	case "stream":
		return runStream(cfg, args[1:])
	case "profile":
		return runProfile(cfg, args[1:])
	case "ws":
		return runWS(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[0])
		return exitBadArgs
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("SIM_CONFIG_FILE"))
	if err != nil {
		return cfg, err
	}
	if cfg.Generator.Seed == 0 {
		cfg.Generator.Seed = uint64(rand.Int63())
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogging(lc config.LoggingConfig) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if lc.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func runStream(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	steps := fs.Int("steps", 1000, "number of generator ticks to run")
	sleepSec := fs.Float64("sleep-sec", 0, "seconds to sleep between ticks")
	if err := fs.Parse(args); err != nil {
		return exitBadArgs
	}
	if *steps <= 0 {
		fmt.Fprintln(os.Stderr, "--steps must be > 0")
		return exitBadArgs
	}

	sim := simulation.New(cfg, 100.0)
	sleep := time.Duration(*sleepSec * float64(time.Second))

	for i := 0; i < *steps; i++ {
		tick := sim.Step()
		for _, ev := range tick.Events {
			fmt.Printf("%d\tkind=%d\tid=%d\tside=%d\tprice=%d\tqty=%d\n",
				ev.Timestamp, ev.Kind, ev.ID, ev.Side, ev.PriceTick, ev.Quantity)
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
	return exitSuccess
}

func runProfile(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	steps := fs.Int("steps", 10000, "number of generator ticks to run")
	if err := fs.Parse(args); err != nil {
		return exitBadArgs
	}
	if *steps <= 0 {
		fmt.Fprintln(os.Stderr, "--steps must be > 0")
		return exitBadArgs
	}

	sim := simulation.New(cfg, 100.0)
	start := time.Now()
	for i := 0; i < *steps; i++ {
		sim.Step()
	}
	elapsed := time.Since(start)
	hz := float64(*steps) / elapsed.Seconds()
	fmt.Fprintf(os.Stderr, "steps=%d elapsed=%s throughput=%.1f ticks/s\n", *steps, elapsed, hz)
	return exitSuccess
}

func runWS(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("ws", flag.ContinueOnError)
	host := fs.String("host", cfg.Broadcast.Host, "listen host")
	port := fs.Int("port", cfg.Broadcast.Port, "listen port")
	if err := fs.Parse(args); err != nil {
		return exitBadArgs
	}
	cfg.Broadcast.Host = *host
	cfg.Broadcast.Port = *port

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := simulation.New(cfg, 100.0)
	bc := broadcaster.NewServer(cfg.Broadcast, cfg.Book.TickSize, sim.Sampler())

	hub := bc.Hub()
	publish := func(snap sampler.Snapshot) { hub.Publish(snap) }

	errCh := make(chan error, 1)
	go func() { errCh <- bc.Run(ctx) }()
	go func() {
		if err := sim.RunWithBroadcast(ctx, bc, publish); err != nil {
			log.Error().Err(err).Msg("simulation loop exited")
		}
	}()

	select {
	case <-ctx.Done():
		return exitSuccess
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("broadcaster exited")
			return exitFault
		}
		return exitSuccess
	}
}
