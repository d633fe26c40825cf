package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultPort = 8080
	DefaultHost = "0.0.0.0"

	// DefaultFileWriteDelay gives a config-file write time to settle
	// before the reload callback re-reads it.
	DefaultFileWriteDelay = 150 * time.Millisecond
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// DefaultConfig returns the gateway's zero-config defaults, matching the
// values named throughout the component design.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              DefaultHost,
			Port:              DefaultPort,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			TrustProxyHeaders: false,
			TrustedProxyCIDRs: nil,
		},
		Routing: RoutingConfig{},
		Balancer: BalancerConfig{
			Policy: "weighted-random",
		},
		Breaker: BreakerConfig{
			FailureThreshold:   5,
			Cooldown:           60 * time.Second,
			HalfOpenProbeQuota: 3,
		},
		Health: HealthConfig{
			Interval:    50 * time.Second,
			WorkerCount: 10,
		},
		ClientPool: ClientPoolConfig{
			ConnectTimeout:    50 * time.Second,
			IdleTimeout:       30 * time.Second,
			MaxConnsPerOrigin: 20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			FileOutput: true,
			LogDir:     "./logs",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Theme:      "default",
		},
	}
}

// Load reads configuration from config.yaml (if present) and GATEWAY_*
// environment variables, layered over DefaultConfig. onConfigChange, if
// non-nil, is invoked (debounced) whenever the config file changes on
// disk; only the routing table and breaker/health tuning are expected to
// be re-read on reload, not the listen address.
func Load(onConfigChange func()) (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("GATEWAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows, so bind every
	// Config field's key for GATEWAY_* overrides to reach Unmarshal.
	cfgType := reflect.TypeOf(*cfg)
	for i := 0; i < cfgType.NumField(); i++ {
		section := cfgType.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			_ = viper.BindEnv(strings.ToLower(section.Name + "." + section.Type.Field(j).Name))
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("GATEWAY_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	viper.WatchConfig()

	if onConfigChange != nil {
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				return
			}
			lastReload = now

			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
	}

	return cfg, nil
}
