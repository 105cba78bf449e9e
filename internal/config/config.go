// Package config resolves the framework configuration once at startup. The
// resolved Config is immutable apart from the simulated-mode toggle, which is
// flipped by the backtest engine through an explicit setter.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize           = 1024
	defaultExecutionWorkers    = 32
	defaultMarketExpirySeconds = 3600

	// Simulated exchange round-trip latencies per package type.
	defaultPlaceLatency   = 120 * time.Millisecond
	defaultCancelLatency  = 170 * time.Millisecond
	defaultUpdateLatency  = 150 * time.Millisecond
	defaultReplaceLatency = 280 * time.Millisecond

	hostnameLimit = 15
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	QueueSize           int     `json:"queueSize"`
	MaxExecutionWorkers int     `json:"maxExecutionWorkers"`
	RaiseErrors         bool    `json:"raiseErrors"`
	MarketExpirySeconds int     `json:"marketExpirySeconds"`
	PlaceLatencyMs      int     `json:"placeLatencyMs"`
	CancelLatencyMs     int     `json:"cancelLatencyMs"`
	UpdateLatencyMs     int     `json:"updateLatencyMs"`
	ReplaceLatencyMs    int     `json:"replaceLatencyMs"`
	MaxTransactionCount int     `json:"maxTransactionCount"`
	CommissionBase      float64 `json:"commissionBase"`
	InstanceID          string  `json:"instanceId"`
}

// Config is the resolved configuration ready for use.
type Config struct {
	// Hostname is used as the customer strategy reference on orders,
	// truncated the way a container id would be.
	Hostname   string
	InstanceID string
	ProcessID  int

	QueueSize           int
	MaxExecutionWorkers int
	RaiseErrors         bool
	MarketExpiry        time.Duration

	PlaceLatency   time.Duration
	CancelLatency  time.Duration
	UpdateLatency  time.Duration
	ReplaceLatency time.Duration

	MaxTransactionCount int
	CommissionBase      float64

	simulated atomic.Bool
}

// New returns a Config populated with defaults.
func New() *Config {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	if len(host) > hostnameLimit {
		host = host[:hostnameLimit]
	}
	return &Config{
		Hostname:            host,
		ProcessID:           os.Getpid(),
		QueueSize:           defaultQueueSize,
		MaxExecutionWorkers: defaultExecutionWorkers,
		MarketExpiry:        defaultMarketExpirySeconds * time.Second,
		PlaceLatency:        defaultPlaceLatency,
		CancelLatency:       defaultCancelLatency,
		UpdateLatency:       defaultUpdateLatency,
		ReplaceLatency:      defaultReplaceLatency,
		MaxTransactionCount: 5000,
		CommissionBase:      0.05,
	}
}

// Load reads a JSON config file and resolves it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file FileConfig
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return resolve(file)
}

func resolve(file FileConfig) (*Config, error) {
	if file.QueueSize < 0 || file.MaxExecutionWorkers < 0 || file.MarketExpirySeconds < 0 {
		return nil, fmt.Errorf("invalid config: sizes must be >= 0")
	}
	cfg := New()
	if file.QueueSize > 0 {
		cfg.QueueSize = file.QueueSize
	}
	if file.MaxExecutionWorkers > 0 {
		cfg.MaxExecutionWorkers = file.MaxExecutionWorkers
	}
	if file.MarketExpirySeconds > 0 {
		cfg.MarketExpiry = time.Duration(file.MarketExpirySeconds) * time.Second
	}
	if file.PlaceLatencyMs > 0 {
		cfg.PlaceLatency = time.Duration(file.PlaceLatencyMs) * time.Millisecond
	}
	if file.CancelLatencyMs > 0 {
		cfg.CancelLatency = time.Duration(file.CancelLatencyMs) * time.Millisecond
	}
	if file.UpdateLatencyMs > 0 {
		cfg.UpdateLatency = time.Duration(file.UpdateLatencyMs) * time.Millisecond
	}
	if file.ReplaceLatencyMs > 0 {
		cfg.ReplaceLatency = time.Duration(file.ReplaceLatencyMs) * time.Millisecond
	}
	if file.MaxTransactionCount > 0 {
		cfg.MaxTransactionCount = file.MaxTransactionCount
	}
	if file.CommissionBase > 0 {
		cfg.CommissionBase = file.CommissionBase
	}
	cfg.RaiseErrors = file.RaiseErrors
	cfg.InstanceID = file.InstanceID
	return cfg, nil
}

// Simulated reports whether order execution is simulated (backtest or paper).
func (c *Config) Simulated() bool {
	return c.simulated.Load()
}

// SetSimulated flips the simulated-mode toggle. Called once by the backtest
// engine before replay; exposed as a setter rather than ambient global state.
func (c *Config) SetSimulated(v bool) {
	c.simulated.Store(v)
}
