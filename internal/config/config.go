package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Journal  Journal  `mapstructure:"journal"`
	Risk     Risk     `mapstructure:"risk"`
	Notify   Notify   `mapstructure:"notify"`
}

// Server holds the configuration for the HTTP server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Journal holds defaults and bounds applied when trades are saved.
type Journal struct {
	DefaultInstrument  string  `mapstructure:"default_instrument"`
	ContractMultiplier float64 `mapstructure:"contract_multiplier"`
	MinLotSize         float64 `mapstructure:"min_lot_size"`
	MaxLotSize         float64 `mapstructure:"max_lot_size"`
}

// Risk holds the default thresholds for the risk alert evaluator.
// Callers may override any of them per request.
type Risk struct {
	RecentTradesCount         int     `mapstructure:"recent_trades_count"`
	ConsecutiveLossThreshold  int     `mapstructure:"consecutive_loss_threshold"`
	MaxTradesPerHour          int     `mapstructure:"max_trades_per_hour"`
	MaxRiskPerTradePercent    float64 `mapstructure:"max_risk_per_trade_percent"`
	DrawdownThresholdPercent  float64 `mapstructure:"drawdown_threshold_percent"`
	AccountRiskCeilingPercent float64 `mapstructure:"account_risk_ceiling_percent"`
}

// Notify holds the configuration for the alert webhook.
// An empty URL disables notification.
type Notify struct {
	WebhookURL     string  `mapstructure:"webhook_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "journal.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("journal.default_instrument", "XAU/USD")
	viper.SetDefault("journal.contract_multiplier", 100.0)
	viper.SetDefault("journal.min_lot_size", 0.01)
	viper.SetDefault("journal.max_lot_size", 0.6)
	viper.SetDefault("risk.recent_trades_count", 10)
	viper.SetDefault("risk.consecutive_loss_threshold", 3)
	viper.SetDefault("risk.max_trades_per_hour", 5)
	viper.SetDefault("risk.max_risk_per_trade_percent", 2.0)
	viper.SetDefault("risk.drawdown_threshold_percent", 10.0)
	viper.SetDefault("risk.account_risk_ceiling_percent", 10.0)
	viper.SetDefault("notify.rate_limit", 1)  // requests per second
	viper.SetDefault("notify.rate_limit_burst", 3)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
