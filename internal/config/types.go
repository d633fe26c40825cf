package config

import "time"

// Config holds all configuration for the gateway.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Routing    RoutingConfig    `yaml:"routing"`
	Balancer   BalancerConfig   `yaml:"balancer"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Health     HealthConfig     `yaml:"health"`
	ClientPool ClientPoolConfig `yaml:"client_pool"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers"`
	TrustedProxyCIDRs []string      `yaml:"trusted_proxy_cidrs"`
}

// RoutingRuleConfig is the YAML-serialisable form of a domain.RoutingRule.
type RoutingRuleConfig struct {
	HostSubstring string `yaml:"host_substring"`
	Prefix        string `yaml:"prefix"`
	Service       string `yaml:"service"`
}

// RoutingConfig holds the routing table. An empty Rules list means "use
// the compiled-in default rule set".
type RoutingConfig struct {
	Rules []RoutingRuleConfig `yaml:"rules"`
}

// BalancerConfig selects the Load Balancer policy.
type BalancerConfig struct {
	Policy string `yaml:"policy"`
}

// BreakerConfig tunes the Circuit Breaker machine.
type BreakerConfig struct {
	FailureThreshold  int           `yaml:"failure_threshold"`
	Cooldown          time.Duration `yaml:"cooldown"`
	HalfOpenProbeQuota int          `yaml:"half_open_probe_quota"`
}

// HealthConfig tunes the Health Checker.
type HealthConfig struct {
	Interval    time.Duration `yaml:"interval"`
	WorkerCount int           `yaml:"worker_count"`
}

// ClientPoolConfig tunes the Outbound Client Pool.
type ClientPoolConfig struct {
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	MaxConnsPerOrigin int           `yaml:"max_conns_per_origin"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	FileOutput bool   `yaml:"file_output"`
	LogDir     string `yaml:"log_dir"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Theme      string `yaml:"theme"`
	PrettyLogs bool   `yaml:"pretty_logs"`
}
