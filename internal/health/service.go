package health

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
	"github.com/angelmondragon/user-management/pkg/logger"
	"go.uber.org/multierr"
)

const (
	StatusOK   = "OK"
	StatusFail = "FAIL"
)

const defaultPingTimeout = 2 * time.Second

// Pinger is satisfied by the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the readiness snapshot returned by /health/ready and /status.
type Report struct {
	DBStatus    string    `json:"dbStatus"`
	RedisStatus string    `json:"redisStatus,omitempty"`
	Uptime      string    `json:"uptime"`
	MemUsage    string    `json:"memUsage"`
	OnlineSince time.Time `json:"onlineSince"`
}

// Ready reports whether the record store answered. Redis is advisory.
func (r Report) Ready() bool {
	return r.DBStatus == StatusOK
}

type Service struct {
	db          Pinger
	redis       Pinger
	onlineSince time.Time
	timeout     time.Duration
	now         func() time.Time
	logg        *logger.Logger
}

// NewService builds the readiness checker. redis may be nil when the
// deployment runs without it.
func NewService(db Pinger, redis Pinger, onlineSince time.Time, timeout time.Duration, logg *logger.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database pinger required")
	}
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		db:          db,
		redis:       redis,
		onlineSince: onlineSince.UTC(),
		timeout:     timeout,
		now:         time.Now,
		logg:        logg,
	}, nil
}

// Check pings every dependency. The returned error is a DEPENDENCY_ERROR
// aggregating every failed ping, or nil when all answered.
func (s *Service) Check(ctx context.Context) (Report, error) {
	report := Report{
		DBStatus:    StatusOK,
		Uptime:      FormatUptime(s.now().Sub(s.onlineSince)),
		MemUsage:    MemUsage(),
		OnlineSince: s.onlineSince,
	}

	var errs error
	if err := s.ping(ctx, s.db); err != nil {
		report.DBStatus = StatusFail
		errs = multierr.Append(errs, fmt.Errorf("database: %w", err))
	}
	if s.redis != nil {
		report.RedisStatus = StatusOK
		if err := s.ping(ctx, s.redis); err != nil {
			report.RedisStatus = StatusFail
			errs = multierr.Append(errs, fmt.Errorf("redis: %w", err))
		}
	}

	if errs != nil {
		s.logg.Error(ctx, "health.check.failed", errs)
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependency check failed")
	}
	return report, nil
}

func (s *Service) ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return p.Ping(ctx)
}

// FormatUptime renders d as "1h 1m 5s", dropping zero parts. A duration
// under one second renders as "0s".
func FormatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	hours := secs / 3600
	mins := (secs % 3600) / 60
	secs %= 60

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// MemUsage reports the heap currently allocated by the process in MiB.
func MemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return fmt.Sprintf("%d MiB", m.Alloc/1024/1024)
}
