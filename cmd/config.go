package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bnema/classroom/internal/application"
	"github.com/bnema/classroom/internal/domain"
	"github.com/spf13/viper"
)

const envPrefix = "CLASSROOM"

const (
	keySyncDeadline        = "sync.deadline"
	keyRebindDelay         = "sync.rebind_delay"
	keyHealthInterval      = "sync.health_interval"
	keyReconnectRetries    = "reconnect.max_retries"
	keyReconnectDelay      = "reconnect.retry_delay"
	keyReconnectMaxDelay   = "reconnect.max_retry_delay"
	keyIngestRenderScale   = "ingest.render_scale"
	keyIngestMaxPayload    = "ingest.max_payload_bytes"
	keyIngestQuality       = "ingest.initial_quality"
	keyIngestMinQuality    = "ingest.min_quality"
	keyIngestQualityStep   = "ingest.quality_step"
	keyFitNarrowMargin     = "fit.narrow_margin"
	keyFitWideMargin       = "fit.wide_margin"
	keyFitNarrowBreakpoint = "fit.narrow_breakpoint"
	keyServerListen        = "server.listen"
	keyLogLevel            = "log.level"
	keyLogFormat           = "log.format"
)

// configure registers defaults and environment overrides. A key such as
// sync.deadline is read from CLASSROOM_SYNC_DEADLINE.
func configure(cfg *viper.Viper) {
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	defaults := application.DefaultPolicy()
	cfg.SetDefault(keySyncDeadline, defaults.SyncDeadline)
	cfg.SetDefault(keyRebindDelay, defaults.RebindDelay)
	cfg.SetDefault(keyHealthInterval, defaults.HealthCheckInterval)
	cfg.SetDefault(keyReconnectRetries, defaults.Reconnect.MaxRetries)
	cfg.SetDefault(keyReconnectDelay, defaults.Reconnect.RetryDelay)
	cfg.SetDefault(keyReconnectMaxDelay, defaults.Reconnect.MaxRetryDelay)
	cfg.SetDefault(keyIngestRenderScale, defaults.Ingest.RenderScale)
	cfg.SetDefault(keyIngestMaxPayload, defaults.Ingest.MaxPayloadBytes)
	cfg.SetDefault(keyIngestQuality, defaults.Ingest.InitialQuality)
	cfg.SetDefault(keyIngestMinQuality, defaults.Ingest.MinQuality)
	cfg.SetDefault(keyIngestQualityStep, defaults.Ingest.QualityStep)
	cfg.SetDefault(keyFitNarrowMargin, defaults.Fit.NarrowMargin)
	cfg.SetDefault(keyFitWideMargin, defaults.Fit.WideMargin)
	cfg.SetDefault(keyFitNarrowBreakpoint, defaults.Fit.NarrowBreakpoint)
	cfg.SetDefault(keyServerListen, "127.0.0.1:8787")
	cfg.SetDefault(keyLogLevel, "info")
	cfg.SetDefault(keyLogFormat, "text")
}

func policyFromConfig(cfg *viper.Viper) (application.Policy, error) {
	policy := application.Policy{
		SyncDeadline:        cfg.GetDuration(keySyncDeadline),
		RebindDelay:         cfg.GetDuration(keyRebindDelay),
		HealthCheckInterval: cfg.GetDuration(keyHealthInterval),
		Reconnect: application.ReconnectPolicy{
			MaxRetries:    cfg.GetInt(keyReconnectRetries),
			RetryDelay:    cfg.GetDuration(keyReconnectDelay),
			MaxRetryDelay: cfg.GetDuration(keyReconnectMaxDelay),
		},
		Ingest: application.IngestPolicy{
			RenderScale:     cfg.GetFloat64(keyIngestRenderScale),
			MaxPayloadBytes: cfg.GetInt(keyIngestMaxPayload),
			InitialQuality:  cfg.GetInt(keyIngestQuality),
			MinQuality:      cfg.GetInt(keyIngestMinQuality),
			QualityStep:     cfg.GetInt(keyIngestQualityStep),
		},
		Fit: domain.FitMargins{
			NarrowMargin:     cfg.GetFloat64(keyFitNarrowMargin),
			WideMargin:       cfg.GetFloat64(keyFitWideMargin),
			NarrowBreakpoint: cfg.GetFloat64(keyFitNarrowBreakpoint),
		},
	}

	if err := policy.Validate(); err != nil {
		return application.Policy{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return policy, nil
}

func newLogger(cfg *viper.Viper, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.GetString(keyLogLevel))); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", keyLogLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.GetString(keyLogFormat)) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid %s %q: want text or json", keyLogFormat, cfg.GetString(keyLogFormat))
	}
}
