package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angelmondragon/user-management/pkg/config"
	"github.com/angelmondragon/user-management/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client owns the service's GORM handle and its connection pool.
type Client struct {
	conn *gorm.DB
}

// Pinger is what readiness checks need from a store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the configured store, applies pool limits and routes statement
// traces to logg.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := openWithLogger(dialector, newQueryLogger(logg, cfg.SlowQuery))
	if err != nil {
		return nil, err
	}

	client := NewFromGorm(conn)
	pool, err := client.pool()
	if err != nil {
		return nil, err
	}
	applyPoolSettings(pool, cfg)

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":         dialector.Name(),
			"max_open_conns": cfg.MaxOpenConns,
		}), "database connection established")
	}
	return client, nil
}

// Open returns a GORM handle with statement logging off. Tests use it to
// wrap sqlmock and in-memory databases.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return openWithLogger(dialector, gormlogger.Discard)
}

func openWithLogger(dialector gorm.Dialector, queries gormlogger.Interface) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 queries,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s connection: %w", dialector.Name(), err)
	}
	return conn, nil
}

// NewFromGorm wraps an already opened connection.
func NewFromGorm(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	if cfg.IsSQLite() {
		return sqlite.Open(cfg.DSN), nil
	}
	if cfg.Driver != "" && cfg.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), nil
}

// applyPoolSettings leaves database/sql defaults for zero values.
func applyPoolSettings(pool *sql.DB, cfg config.DBConfig) {
	if n := cfg.MaxOpenConns; n > 0 {
		pool.SetMaxOpenConns(n)
	}
	if n := cfg.MaxIdleConns; n > 0 {
		pool.SetMaxIdleConns(n)
	}
	if d := cfg.ConnMaxLifetime; d > 0 {
		pool.SetConnMaxLifetime(d)
	}
	if d := cfg.ConnMaxIdleTime; d > 0 {
		pool.SetConnMaxIdleTime(d)
	}
}

func (c *Client) pool() (*sql.DB, error) {
	pool, err := c.conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	return pool, nil
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

// StatsCollector exports the pool's database/sql stats under dbName.
func (c *Client) StatsCollector(dbName string) (prometheus.Collector, error) {
	pool, err := c.pool()
	if err != nil {
		return nil, err
	}
	return collectors.NewDBStatsCollector(pool, dbName), nil
}

func (c *Client) Close() error {
	pool, err := c.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}
