package types

import (
	"context"
	"time"

	"github.com/mcuadros/go-defaults"
)

func NewEngineOptions() *EngineOptions {
	opts := &EngineOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type EngineOptions struct {
	Ctx context.Context

	/**
	 * default: 3s, the fixed interval between poll ticks of an async job.
	 */
	PollInterval time.Duration `default:"3s"`
	/**
	 * default: 15m, total wall-clock polling budget per async job. The remote
	 * job is not cancelled on expiry; the node is simply marked failed.
	 */
	PollTimeout time.Duration `default:"15m"`
	/**
	 * default: 50, sealed sessions kept in history; oldest evicted beyond it.
	 */
	HistoryLimit int `default:"50"`
	/**
	 * default: 4, workers available for background pipeline runs.
	 */
	RunWorkers int `default:"4"`

	// APIBaseURL is the root of the job service the built-in bio adapters use.
	APIBaseURL string

	// HTTPClient overrides the default http.Client used by the adapters.
	HTTPClient Doer

	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// PostgresConfig takes precedence over MemStore when set.
	PostgresConfig *PostgresConfig
}

// PostgresConfig holds PostgreSQL connection configuration for the durable store.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

type EngineOption func(*EngineOptions)

func WithContext(ctx context.Context) EngineOption {
	return func(opts *EngineOptions) {
		opts.Ctx = ctx
	}
}

func WithPollInterval(interval time.Duration) EngineOption {
	return func(opts *EngineOptions) {
		opts.PollInterval = interval
	}
}

func WithPollTimeout(timeout time.Duration) EngineOption {
	return func(opts *EngineOptions) {
		opts.PollTimeout = timeout
	}
}

func WithHistoryLimit(limit int) EngineOption {
	return func(opts *EngineOptions) {
		opts.HistoryLimit = limit
	}
}

func WithAPIBaseURL(baseURL string) EngineOption {
	return func(opts *EngineOptions) {
		opts.APIBaseURL = baseURL
	}
}

func WithHTTPClient(client Doer) EngineOption {
	return func(opts *EngineOptions) {
		opts.HTTPClient = client
	}
}

func EnableMemStore() EngineOption {
	return func(opts *EngineOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig configures the engine to persist drafts, saved pipelines
// and sealed sessions in PostgreSQL.
func WithPostgresConfig(config *PostgresConfig) EngineOption {
	return func(opts *EngineOptions) {
		opts.PostgresConfig = config
	}
}
