package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"
	"go.uber.org/multierr"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolveDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"USERMGMT_APP_ENV" default:"dev"`
	Port            string        `envconfig:"USERMGMT_APP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"USERMGMT_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"USERMGMT_LOG_WARN_STACK" default:"false"`
	LogFormat       string        `envconfig:"USERMGMT_LOG_FORMAT"`
	ShutdownTimeout time.Duration `envconfig:"USERMGMT_SHUTDOWN_TIMEOUT" default:"15s"`
	CORSOrigins     []string      `envconfig:"USERMGMT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"USERMGMT_DB_DSN"`
	Driver string `envconfig:"USERMGMT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"USERMGMT_DB_HOST"`
	LegacyPort     int    `envconfig:"USERMGMT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"USERMGMT_DB_USER"`
	LegacyPassword string `envconfig:"USERMGMT_DB_PASSWORD"`
	LegacyName     string `envconfig:"USERMGMT_DB_NAME"`
	LegacySSLMode  string `envconfig:"USERMGMT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"USERMGMT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"USERMGMT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"USERMGMT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"USERMGMT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	QueryTimeout    time.Duration `envconfig:"USERMGMT_DB_QUERY_TIMEOUT" default:"5s"`
	SlowQuery       time.Duration `envconfig:"USERMGMT_DB_SLOW_QUERY" default:"200ms"`
}

// IsSQLite reports whether the store runs on the embedded SQLite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

// Redis is optional; leaving both URL and Address empty disables it.
type RedisConfig struct {
	URL          string        `envconfig:"USERMGMT_REDIS_URL"`
	Address      string        `envconfig:"USERMGMT_REDIS_ADDR"`
	Password     string        `envconfig:"USERMGMT_REDIS_PASSWORD"`
	DB           int           `envconfig:"USERMGMT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"USERMGMT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"USERMGMT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"USERMGMT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"USERMGMT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"USERMGMT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type RateLimitConfig struct {
	Enabled  bool          `envconfig:"USERMGMT_RATE_LIMIT_ENABLED" default:"true"`
	Requests int           `envconfig:"USERMGMT_RATE_LIMIT_REQUESTS" default:"100"`
	Window   time.Duration `envconfig:"USERMGMT_RATE_LIMIT_WINDOW" default:"1s"`
	Burst    int           `envconfig:"USERMGMT_RATE_LIMIT_BURST" default:"100"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"USERMGMT_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"USERMGMT_METRICS_PATH" default:"/metrics"`
}

// resolveDSN fills DSN from the legacy host/user/name parts when it is unset.
// Only Postgres can be described that way.
func (db *DBConfig) resolveDSN() error {
	if db.DSN != "" {
		return nil
	}

	parts := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	missing := lo.Filter(legacyDBEnvVars, func(key string, _ int) bool {
		return strings.TrimSpace(parts[key]) == ""
	})
	switch {
	case len(missing) > 0:
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	case db.IsSQLite():
		return fmt.Errorf("%s is required for the %s driver", EnvDBDSN, DriverSQLite)
	}

	db.DSN = db.legacyDSN()
	return nil
}

func (db DBConfig) legacyDSN() string {
	dsn := url.URL{
		Scheme: DriverPostgres,
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		dsn.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		dsn.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	return dsn.String()
}

// validate reports every out-of-range setting at once.
func (c *Config) validate() error {
	var err error
	if c.App.ShutdownTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvShutdownTimeout))
	}
	if c.DB.QueryTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvDBQueryTimeout))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		err = multierr.Append(err, fmt.Errorf("%s and %s must be positive", EnvRateLimitRequests, EnvRateLimitWindow))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		err = multierr.Append(err, fmt.Errorf("%s must start with /", EnvMetricsPath))
	}
	return err
}
