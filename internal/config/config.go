// Package config loads settings for the API server and the terminal client:
// built-in defaults, then an optional YAML file, then CALC_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is tried when no explicit config path is given.
const DefaultPath = "configs/config.yaml"

const (
	TransportConnect = "connect"
	TransportGRPC    = "grpc"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Client    ClientConfig    `yaml:"client"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	HTTPAddr        string        `yaml:"httpAddr"`
	GRPCAddr        string        `yaml:"grpcAddr"` // empty disables the gRPC listener
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
	RateLimitRPS    float64       `yaml:"rateLimitRPS"` // zero disables rate limiting
	RateLimitBurst  int           `yaml:"rateLimitBurst"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type ClientConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	GRPCTarget string        `yaml:"grpcTarget"`
	Transport  string        `yaml:"transport"`
	Debounce   time.Duration `yaml:"debounce"` // zero selects explicit submit
	Timeout    time.Duration `yaml:"timeout"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			AllowedOrigins:  []string{"*"},
			RateLimitRPS:    30,
			RateLimitBurst:  60,
			ShutdownTimeout: 5 * time.Second,
		},
		Client: ClientConfig{
			BaseURL:    "http://localhost:8080",
			GRPCTarget: "localhost:9090",
			Transport:  TransportConnect,
			Debounce:   300 * time.Millisecond,
			Timeout:    5 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "calculator-api",
		},
	}
}

// Load builds the configuration. An explicit path must exist; without one,
// DefaultPath is used when present.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return errors.New("server.httpAddr is required")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return errors.New("server rate limit must not be negative")
	}
	switch c.Client.Transport {
	case TransportConnect, TransportGRPC:
	default:
		return fmt.Errorf("client.transport %q: want %q or %q", c.Client.Transport, TransportConnect, TransportGRPC)
	}
	if c.Client.Debounce < 0 || c.Client.Timeout < 0 {
		return errors.New("client durations must not be negative")
	}
	return nil
}

// applyEnv overrides cfg from CALC_* variables. Unset or blank variables
// leave the current value alone; malformed ones are an error.
func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("CALC_HTTP_ADDR", &cfg.Server.HTTPAddr)
	// CALC_GRPC_ADDR may be set to "off" to disable the listener.
	if v, ok := os.LookupEnv("CALC_GRPC_ADDR"); ok {
		v = strings.TrimSpace(v)
		if strings.EqualFold(v, "off") {
			v = ""
		}
		cfg.Server.GRPCAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("CALC_ALLOWED_ORIGINS")); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("CALC_RATE_LIMIT_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("CALC_RATE_LIMIT_RPS: %w", err))
		} else {
			cfg.Server.RateLimitRPS = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("CALC_RATE_LIMIT_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CALC_RATE_LIMIT_BURST: %w", err))
		} else {
			cfg.Server.RateLimitBurst = n
		}
	}
	dur("CALC_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	str("CALC_BASE_URL", &cfg.Client.BaseURL)
	str("CALC_GRPC_TARGET", &cfg.Client.GRPCTarget)
	str("CALC_TRANSPORT", &cfg.Client.Transport)
	dur("CALC_DEBOUNCE", &cfg.Client.Debounce)
	dur("CALC_TIMEOUT", &cfg.Client.Timeout)

	if v := strings.TrimSpace(os.Getenv("CALC_TELEMETRY")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CALC_TELEMETRY: %w", err))
		} else {
			cfg.Telemetry.Enabled = b
		}
	}
	str("CALC_SERVICE_NAME", &cfg.Telemetry.ServiceName)

	return errors.Join(errs...)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
