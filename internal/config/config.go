package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/hospital-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-api/pkg/worker"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Booking   BookingConfig   `mapstructure:"booking"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	Mode           string `mapstructure:"mode"`
	// Storage selects the repository backend: "postgres" or "memory".
	Storage string `mapstructure:"storage"`
	// WorkerPort serves the worker's health and metrics endpoints.
	WorkerPort int `mapstructure:"worker_port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open_conns"`
	MaxIdle  int    `mapstructure:"max_idle_conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type BookingConfig struct {
	// Timezone is the hospital's local zone; "today" and the 7-day horizon are computed in it.
	Timezone    string        `mapstructure:"timezone"`
	SlotLock    bool          `mapstructure:"slot_lock"`
	SlotLockTTL time.Duration `mapstructure:"slot_lock_ttl"`
	HorizonDays int           `mapstructure:"horizon_days"`
}

func (c BookingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

type CacheConfig struct {
	DepartmentTTL time.Duration `mapstructure:"department_ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type OutboxConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BatchSize       int           `mapstructure:"batch_size"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RetryAttempts   int           `mapstructure:"retry_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	Channel         string        `mapstructure:"channel"`
	RetentionDays   int           `mapstructure:"retention_days"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

func (c RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
		Channel:       c.Channel,
	}
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SeedConfig provisions doctors at startup; doctors have no sign-up endpoint.
type SeedConfig struct {
	Departments bool               `mapstructure:"departments"`
	Doctors     []DoctorSeedConfig `mapstructure:"doctors"`
}

type DoctorSeedConfig struct {
	FullName        string `mapstructure:"full_name"`
	Email           string `mapstructure:"email"`
	Password        string `mapstructure:"password"`
	DepartmentID    string `mapstructure:"department_id"`
	ExperienceYears int    `mapstructure:"experience_years"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// envOverrides are typed HMS_* environment variables applied on top of the file.
type envOverrides struct {
	DatabaseHost     string `envconfig:"DATABASE_HOST"`
	DatabasePort     int    `envconfig:"DATABASE_PORT"`
	DatabaseUser     string `envconfig:"DATABASE_USER"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	DatabaseName     string `envconfig:"DATABASE_NAME"`
	RedisURL         string `envconfig:"REDIS_URL"`
	JWTSecret        string `envconfig:"JWT_SECRET"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
	AdminPassword    string `envconfig:"ADMIN_PASSWORD"`
	Storage          string `envconfig:"STORAGE"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeoutSeconds", 30)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.storage", "postgres")
	v.SetDefault("server.worker_port", 8081)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("jwt.issuer", "hospital-api")
	v.SetDefault("jwt.expiry_hours", 12)
	v.SetDefault("booking.slot_lock_ttl", 5*time.Second)
	v.SetDefault("booking.horizon_days", 7)
	v.SetDefault("cache.department_ttl", 5*time.Minute)
	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 500*time.Millisecond)
	v.SetDefault("outbox.channel", "hospital.appointments")
	v.SetDefault("outbox.retention_days", 7)
	v.SetDefault("outbox.cleanup_interval", time.Hour)
	v.SetDefault("admin.username", "admin")
	v.SetDefault("log.level", "info")
}

func LoadConfig() (*Config, error) {
	return Load(".", "./config")
}

// Load reads config.yaml from the first matching path, then applies HMS_* overrides.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)

	v.SetEnvPrefix("HMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("HMS", &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	env.apply(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (e envOverrides) apply(c *Config) {
	setString(&c.Database.Host, e.DatabaseHost)
	setString(&c.Database.User, e.DatabaseUser)
	setString(&c.Database.Password, e.DatabasePassword)
	setString(&c.Database.Name, e.DatabaseName)
	setString(&c.Redis.URL, e.RedisURL)
	setString(&c.JWT.Secret, e.JWTSecret)
	setString(&c.SMTP.Password, e.SMTPPassword)
	setString(&c.Admin.Password, e.AdminPassword)
	setString(&c.Server.Storage, e.Storage)
	if e.DatabasePort != 0 {
		c.Database.Port = e.DatabasePort
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Server.Storage {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown server.storage %q", c.Server.Storage)
	}
	if c.Booking.HorizonDays <= 0 {
		return fmt.Errorf("booking.horizon_days must be positive")
	}
	if _, err := c.Booking.Location(); err != nil {
		return fmt.Errorf("invalid booking.timezone: %w", err)
	}
	for i, d := range c.Seed.Doctors {
		if d.DepartmentID == "" {
			continue
		}
		if _, err := uuid.Parse(d.DepartmentID); err != nil {
			return fmt.Errorf("invalid seed.doctors[%d].department_id: %w", i, err)
		}
	}
	return nil
}
