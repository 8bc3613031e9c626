package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/errors"
)

// Config is the complete bot configuration, threaded explicitly through
// component constructors. Values come from the environment (.env supported
// via godotenv in the entrypoints) with defaults matching production use.
type Config struct {
	Upbit    UpbitConfig
	Trading  TradingConfig
	Risk     RiskConfig
	Monitor  MonitorConfig
	Schedule ScheduleConfig
	Slack    SlackConfig
}

// UpbitConfig holds exchange credentials and endpoint settings.
type UpbitConfig struct {
	AccessKey string
	SecretKey string
	BaseURL   string
}

// TradingConfig holds order sizing and allocation settings.
type TradingConfig struct {
	TestMode      bool    // clamp order sizes so live runs risk no material capital
	MinOrderSize  float64 // minimum tradable order value in KRW
	ReserveRatio  float64 // fraction of the budget kept untouched
	MomentumRatio float64 // share of tradeable capital for momentum signals
	TestBuyCapKRW float64 // max quote amount per buy in test mode
	TestSellRatio float64 // fraction of free balance sellable in test mode
	MinSellVolume float64 // floor for clamped sell volume
	FeeRate       float64 // taker fee used for fill estimates
}

// RiskConfig holds the volatility-based exit parameters.
type RiskConfig struct {
	ATRPeriod             int
	StopMultiplier        float64
	ProfitMultiplier      float64
	TrailMultiplier       float64
	FallbackATRPercent    float64 // ATR substitute when history is insufficient
	VolatilityAlertPct    float64 // ATR-percent advisory threshold
	ConcentrationAlertPct float64 // position-risk advisory threshold
}

// MonitorConfig holds order polling settings.
type MonitorConfig struct {
	OrderTimeout    time.Duration
	PollInterval    time.Duration
	MaxPollFailures int
	MaxPollBackoff  time.Duration
}

// ScheduleConfig holds the monitoring schedule settings (hours in KST).
type ScheduleConfig struct {
	StartHour int
	EndHour   int
}

// SlackConfig holds notification settings.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
}

// Load reads configuration from the environment, applies defaults and
// validates. Missing credentials are fatal: the bot refuses to initialize.
func Load() (*Config, error) {
	cfg := &Config{
		Upbit: UpbitConfig{
			AccessKey: os.Getenv("UPBIT_ACCESS_KEY"),
			SecretKey: os.Getenv("UPBIT_SECRET_KEY"),
			BaseURL:   envString("UPBIT_BASE_URL", "https://api.upbit.com"),
		},
		Trading: TradingConfig{
			TestMode:      envBool("TEST_MODE", true),
			MinOrderSize:  envFloat("MIN_ORDER_SIZE", 5000),
			ReserveRatio:  envFloat("RESERVE_RATIO", 0.02),
			MomentumRatio: envFloat("MOMENTUM_CAPITAL_RATIO", 0.6),
			TestBuyCapKRW: 5500,
			TestSellRatio: 0.05,
			MinSellVolume: 0.0001,
			FeeRate:       0.0005,
		},
		Risk: RiskConfig{
			ATRPeriod:             envInt("ATR_PERIOD", 14),
			StopMultiplier:        envFloat("STOP_LOSS_MULTIPLIER", 2.0),
			ProfitMultiplier:      envFloat("TAKE_PROFIT_MULTIPLIER", 3.0),
			TrailMultiplier:       envFloat("TRAILING_STOP_MULTIPLIER", 1.5),
			FallbackATRPercent:    0.02,
			VolatilityAlertPct:    8.0,
			ConcentrationAlertPct: 10.0,
		},
		Monitor: MonitorConfig{
			OrderTimeout:    envDuration("ORDER_TIMEOUT", 60*time.Second),
			PollInterval:    envDuration("ORDER_POLL_INTERVAL", 500*time.Millisecond),
			MaxPollFailures: envInt("ORDER_MAX_POLL_FAILURES", 5),
			MaxPollBackoff:  5 * time.Second,
		},
		Schedule: ScheduleConfig{
			StartHour: envInt("MONITOR_START_HOUR", 6),
			EndHour:   envInt("MONITOR_END_HOUR", 23),
		},
		Slack: SlackConfig{
			Enabled:    os.Getenv("SLACK_WEBHOOK_URL") != "",
			WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Upbit.AccessKey == "" || c.Upbit.SecretKey == "" {
		return errors.NewCredentialsError("config", "validate",
			"UPBIT_ACCESS_KEY and UPBIT_SECRET_KEY must be set")
	}
	if c.Trading.MinOrderSize <= 0 {
		return errors.NewConfigurationError("config", "validate",
			fmt.Sprintf("invalid minimum order size %.0f", c.Trading.MinOrderSize))
	}
	if c.Trading.ReserveRatio < 0 || c.Trading.ReserveRatio >= 1 {
		return errors.NewConfigurationError("config", "validate",
			fmt.Sprintf("reserve ratio %.2f must be in [0, 1)", c.Trading.ReserveRatio))
	}
	if c.Trading.MomentumRatio < 0 || c.Trading.MomentumRatio > 1 {
		return errors.NewConfigurationError("config", "validate",
			fmt.Sprintf("momentum capital ratio %.2f must be in [0, 1]", c.Trading.MomentumRatio))
	}
	if c.Risk.ATRPeriod < 2 {
		return errors.NewConfigurationError("config", "validate",
			fmt.Sprintf("ATR period %d is too short", c.Risk.ATRPeriod))
	}
	if c.Monitor.PollInterval <= 0 || c.Monitor.OrderTimeout <= 0 {
		return errors.NewConfigurationError("config", "validate",
			"order poll interval and timeout must be positive")
	}
	if c.Schedule.StartHour < 0 || c.Schedule.EndHour > 23 || c.Schedule.StartHour > c.Schedule.EndHour {
		return errors.NewConfigurationError("config", "validate",
			fmt.Sprintf("invalid monitoring hours %d-%d", c.Schedule.StartHour, c.Schedule.EndHour))
	}
	return nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return parsed
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}
