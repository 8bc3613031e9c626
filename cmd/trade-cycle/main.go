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
		once        = flag.Bool("once", false, "Run a single trade cycle and exit")
		interval    = flag.Duration("interval", time.Hour, "Trade cycle interval")
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

	fmt.Println("🚀 Trade cycle bot starting...")
	if cfg.Trading.TestMode {
		fmt.Println("🧪 Test mode: order sizes are clamped")
	}
	bot := common.BuildTrader(cfg, trendDecider(), log)
	common.ServeMetrics(*metricsAddr, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	excel := reporting.NewExcelReporter()
	runCycle := func() error {
		report, err := bot.RunTradeCycle(ctx)
		if err != nil {
			// Credential and configuration failures will not heal between
			// runs; stop instead of retrying on schedule.
			if botErr := boterrors.CategorizeError(err, "trader", "trade_cycle"); botErr.IsFatal() {
				log.Fatal().Err(botErr).Msg("unrecoverable trade cycle failure")
			}
			return err
		}
		if *reportDir != "" && report != nil {
			path := filepath.Join(*reportDir,
				fmt.Sprintf("trade_%s.xlsx", report.StartedAt.Format("20060102_150405")))
			if err := excel.WriteCycleXLSX(report, path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("xlsx report failed")
			}
		}
		return nil
	}

	if *once {
		if err := runCycle(); err != nil {
			log.Fatal().Err(err).Msg("trade cycle failed")
		}
		return
	}

	sched := scheduler.New(cfg.Schedule, log)
	job := scheduler.JobFunc{JobName: "trade-cycle", Fn: runCycle}
	if err := sched.AddJob(fmt.Sprintf("@every %s", *interval), job); err != nil {
		log.Fatal().Err(err).Msg("failed to schedule trade cycle")
	}
	sched.Start()
	defer sched.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")
	cancel()
}
