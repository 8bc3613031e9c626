package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jaewoo-dev/upbit-trading-bot/cmd/common"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
	boterrors "github.com/jaewoo-dev/upbit-trading-bot/internal/errors"
	"github.com/jaewoo-dev/upbit-trading-bot/internal/scheduler"
	"github.com/jaewoo-dev/upbit-trading-bot/pkg/reporting"
)

func main() {
	var (
		envFile     = flag.String("env", ".env", "Environment file path")
		once        = flag.Bool("once", false, "Run a single risk cycle and exit")
		interval    = flag.Duration("interval", time.Hour, "Risk cycle interval")
		metricsAddr = flag.String("metrics", "", "Prometheus listen address, e.g. :9090 (disabled when empty)")
		reportDir   = flag.String("report-dir", "", "Directory for xlsx cycle reports (disabled when empty)")
		verbose     = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	common.LoadEnv(*envFile)
	log := common.NewLogger(*verbose)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	// Test mode monitors on a tight cadence unless one was given explicitly.
	intervalSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "interval" {
			intervalSet = true
		}
	})
	if cfg.Trading.TestMode && !intervalSet {
		*interval = 5 * time.Minute
	}

	fmt.Println("🛡  Risk monitor starting...")
	bot := common.BuildTrader(cfg, nil, log)
	common.ServeMetrics(*metricsAddr, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	excel := reporting.NewExcelReporter()
	runCycle := func() error {
		report, err := bot.RunRiskCycle(ctx)
		if err != nil {
			// Credential and configuration failures will not heal between
			// runs; stop instead of retrying on schedule.
			if botErr := boterrors.CategorizeError(err, "trader", "risk_cycle"); botErr.IsFatal() {
				log.Fatal().Err(botErr).Msg("unrecoverable risk cycle failure")
			}
			return err
		}
		if *reportDir != "" && report != nil {
			path := filepath.Join(*reportDir,
				fmt.Sprintf("risk_%s.xlsx", report.StartedAt.Format("20060102_150405")))
			if err := excel.WriteCycleXLSX(report, path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("xlsx report failed")
			}
		}
		return nil
	}

	if *once {
		if err := runCycle(); err != nil {
			log.Fatal().Err(err).Msg("risk cycle failed")
		}
		return
	}

	sched := scheduler.New(cfg.Schedule, log)
	job := scheduler.JobFunc{JobName: "risk-cycle", Fn: runCycle}
	if err := sched.AddJob(fmt.Sprintf("@every %s", *interval), job); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule risk cycle")
	}
	sched.Start()
	defer sched.Stop()

	// Run one cycle immediately rather than waiting a full interval.
	if err := sched.RunNow(job); err != nil {
		log.Error().Err(err).Msg("initial risk cycle failed")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")
	cancel()
}
