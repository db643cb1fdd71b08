package application

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/classroom/internal/domain"
)

type ReconnectPolicy struct {
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Backoff returns the wait before the given 1-based attempt:
// RetryDelay * 2^(attempt-1), capped at MaxRetryDelay.
func (p ReconnectPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 31 {
		return p.MaxRetryDelay
	}

	delay := p.RetryDelay * time.Duration(1<<uint(attempt-1))
	if delay > p.MaxRetryDelay || delay <= 0 {
		delay = p.MaxRetryDelay
	}
	return delay
}

type IngestPolicy struct {
	RenderScale     float64
	MaxPayloadBytes int
	InitialQuality  int
	MinQuality      int
	QualityStep     int
}

// Policy holds the empirically chosen timings and limits. None of them are
// protocol contracts; all are configurable.
type Policy struct {
	SyncDeadline        time.Duration
	RebindDelay         time.Duration
	HealthCheckInterval time.Duration
	Reconnect           ReconnectPolicy
	Ingest              IngestPolicy
	Fit                 domain.FitMargins
}

func DefaultPolicy() Policy {
	return Policy{
		SyncDeadline:        10 * time.Second,
		RebindDelay:         250 * time.Millisecond,
		HealthCheckInterval: 0,
		Reconnect: ReconnectPolicy{
			MaxRetries:    5,
			RetryDelay:    1 * time.Second,
			MaxRetryDelay: 30 * time.Second,
		},
		Ingest: IngestPolicy{
			RenderScale:     2,
			MaxPayloadBytes: 256 << 10,
			InitialQuality:  85,
			MinQuality:      30,
			QualityStep:     10,
		},
		Fit: domain.DefaultFitMargins(),
	}
}

func (p Policy) Validate() error {
	var errs []error
	if p.SyncDeadline <= 0 {
		errs = append(errs, fmt.Errorf("sync deadline must be positive, got %s", p.SyncDeadline))
	}
	if p.RebindDelay < 0 {
		errs = append(errs, fmt.Errorf("rebind delay must not be negative, got %s", p.RebindDelay))
	}
	if p.HealthCheckInterval < 0 {
		errs = append(errs, fmt.Errorf("health check interval must not be negative, got %s", p.HealthCheckInterval))
	}
	if p.Reconnect.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("reconnect max retries must not be negative, got %d", p.Reconnect.MaxRetries))
	}
	if p.Reconnect.RetryDelay <= 0 || p.Reconnect.MaxRetryDelay < p.Reconnect.RetryDelay {
		errs = append(errs, fmt.Errorf("reconnect delays must satisfy 0 < retry delay <= max retry delay"))
	}
	if p.Ingest.RenderScale <= 0 {
		errs = append(errs, fmt.Errorf("ingest render scale must be positive, got %g", p.Ingest.RenderScale))
	}
	if p.Ingest.MaxPayloadBytes <= 0 {
		errs = append(errs, fmt.Errorf("ingest max payload must be positive, got %d", p.Ingest.MaxPayloadBytes))
	}
	if p.Ingest.MinQuality < 1 || p.Ingest.InitialQuality > 100 || p.Ingest.MinQuality > p.Ingest.InitialQuality {
		errs = append(errs, fmt.Errorf("ingest quality must satisfy 1 <= min <= initial <= 100"))
	}
	if p.Ingest.QualityStep <= 0 {
		errs = append(errs, fmt.Errorf("ingest quality step must be positive, got %d", p.Ingest.QualityStep))
	}
	if p.Fit.NarrowMargin < 0 || p.Fit.WideMargin < 0 {
		errs = append(errs, fmt.Errorf("fit margins must not be negative"))
	}

	return errors.Join(errs...)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
