package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type HTTPConfig struct {
	Address         string        `koanf:"address" mapstructure:"address"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type ScheduleConfig struct {
	CheckInterval time.Duration `koanf:"check_interval" mapstructure:"check_interval"`
	DrainInterval time.Duration `koanf:"drain_interval" mapstructure:"drain_interval"`
	CleanupSpec   string        `koanf:"cleanup_spec" mapstructure:"cleanup_spec"`
	StartupDelay  time.Duration `koanf:"startup_delay" mapstructure:"startup_delay"`
}

type ReconcileConfig struct {
	MaxOrders          int           `koanf:"max_orders" mapstructure:"max_orders"`
	MaxAttempts        int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	ProcessedRetention time.Duration `koanf:"processed_retention" mapstructure:"processed_retention"`
	LogRetention       int           `koanf:"log_retention" mapstructure:"log_retention"`
}

type DatabaseConfig struct {
	Driver      string        `koanf:"driver" mapstructure:"driver"`
	DSN         string        `koanf:"dsn" mapstructure:"dsn"`
	Debug       bool          `koanf:"debug" mapstructure:"debug"`
	PingTimeout time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
}

func (c DatabaseConfig) GetDebug() bool {
	return c.Debug
}

func (c DatabaseConfig) GetDriver() string {
	return c.Driver
}

func (c DatabaseConfig) GetServer() string {
	return c.DSN
}

func (c DatabaseConfig) GetPingTimeout() time.Duration {
	return c.PingTimeout
}

func (c DatabaseConfig) GetOtelIdentifier() string {
	return "go-order-notify"
}

type CommerceConfig struct {
	BaseURL        string        `koanf:"base_url" mapstructure:"base_url"`
	ConsumerKey    string        `koanf:"consumer_key" mapstructure:"consumer_key"`
	ConsumerSecret string        `koanf:"consumer_secret" mapstructure:"consumer_secret"`
	Timeout        time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type MessagingConfig struct {
	APIURL        string        `koanf:"api_url" mapstructure:"api_url"`
	APIVersion    string        `koanf:"api_version" mapstructure:"api_version"`
	AccessToken   string        `koanf:"access_token" mapstructure:"access_token"`
	PhoneNumberID string        `koanf:"phone_number_id" mapstructure:"phone_number_id"`
	TargetPhone   string        `koanf:"target_phone" mapstructure:"target_phone"`
	SendTimeout   time.Duration `koanf:"send_timeout" mapstructure:"send_timeout"`
	PingTimeout   time.Duration `koanf:"ping_timeout" mapstructure:"ping_timeout"`
	RatePerSecond float64       `koanf:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int           `koanf:"burst" mapstructure:"burst"`
}

type MessagesConfig struct {
	Timezone string `koanf:"timezone" mapstructure:"timezone"`
}

type CacheConfig struct {
	StatsTTL time.Duration `koanf:"stats_ttl" mapstructure:"stats_ttl"`
}

// Config carries everything the process needs. Missing commerce or
// messaging credentials are not validation errors: the affected dependency
// reports ConfigurationMissing and stays offline.
type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	HTTP        HTTPConfig      `koanf:"http" mapstructure:"http"`
	Schedule    ScheduleConfig  `koanf:"schedule" mapstructure:"schedule"`
	Reconcile   ReconcileConfig `koanf:"reconcile" mapstructure:"reconcile"`
	Database    DatabaseConfig  `koanf:"database" mapstructure:"database"`
	Commerce    CommerceConfig  `koanf:"commerce" mapstructure:"commerce"`
	Messaging   MessagingConfig `koanf:"messaging" mapstructure:"messaging"`
	Messages    MessagesConfig  `koanf:"messages" mapstructure:"messages"`
	Cache       CacheConfig     `koanf:"cache" mapstructure:"cache"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "order-notify",
		HTTP: HTTPConfig{
			Address:         ":3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Schedule: ScheduleConfig{
			CheckInterval: 15 * time.Minute,
			DrainInterval: 5 * time.Minute,
			CleanupSpec:   "0 2 * * *",
			StartupDelay:  2 * time.Second,
		},
		Reconcile: ReconcileConfig{
			MaxOrders:          10,
			MaxAttempts:        5,
			ProcessedRetention: 30 * 24 * time.Hour,
			LogRetention:       1000,
		},
		Database: DatabaseConfig{
			Driver:      DriverSQLite,
			DSN:         "file:order-notify.db?cache=shared&_foreign_keys=on",
			PingTimeout: 5 * time.Second,
		},
		Commerce: CommerceConfig{
			Timeout: 30 * time.Second,
		},
		Messaging: MessagingConfig{
			APIURL:        "https://graph.facebook.com",
			APIVersion:    "v17.0",
			SendTimeout:   15 * time.Second,
			PingTimeout:   10 * time.Second,
			RatePerSecond: 5,
			Burst:         5,
		},
		Messages: MessagesConfig{
			Timezone: "America/Sao_Paulo",
		},
		Cache: CacheConfig{
			StatsTTL: 30 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Reconcile.MaxOrders <= 0 {
		return fmt.Errorf("core: reconcile.max_orders must be positive")
	}
	if c.Reconcile.MaxAttempts <= 0 {
		return fmt.Errorf("core: reconcile.max_attempts must be positive")
	}
	if c.Reconcile.ProcessedRetention <= 0 {
		return fmt.Errorf("core: reconcile.processed_retention must be positive")
	}
	if c.Schedule.CheckInterval < time.Minute {
		return fmt.Errorf("core: schedule.check_interval must be at least one minute")
	}
	if c.Schedule.DrainInterval < time.Minute {
		return fmt.Errorf("core: schedule.drain_interval must be at least one minute")
	}
	switch strings.TrimSpace(c.Database.Driver) {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("core: database.driver %q is invalid", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("core: database.dsn is required")
	}
	return nil
}
