package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHost            = "0.0.0.0"
	defaultUIPort          = 8888
	defaultAPIPort         = 8889
	defaultMultipassBinary = "multipass"
	defaultShutdownTimeout = 15 * time.Second
)

// ServerConfig captures the runtime configuration required by `safepaw start`.
type ServerConfig struct {
	Host            string
	UIPort          int
	APIPort         int
	MultipassBinary string
	ShutdownTimeout time.Duration
	// CommandTimeout bounds each multipass invocation; zero leaves them unbounded.
	CommandTimeout time.Duration
	APIKey         string
	AllowCIDRs     []string
}

// FromEnv loads configuration from environment variables, applying defaults
// when unset. Flags layered on top must call Validate again.
func FromEnv() (ServerConfig, error) {
	cfg := ServerConfig{
		Host:            getenv("SAFEPAW_HOST", defaultHost),
		MultipassBinary: getenv("SAFEPAW_MULTIPASS", defaultMultipassBinary),
		APIKey:          strings.TrimSpace(os.Getenv("SAFEPAW_API_KEY")),
		AllowCIDRs:      splitList(os.Getenv("SAFEPAW_API_ALLOW_CIDR")),
	}

	var err error
	if cfg.UIPort, err = intEnv("SAFEPAW_UI_PORT", defaultUIPort); err != nil {
		return ServerConfig{}, err
	}
	if cfg.APIPort, err = intEnv("SAFEPAW_API_PORT", defaultAPIPort); err != nil {
		return ServerConfig{}, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SAFEPAW_SHUTDOWN_TIMEOUT", defaultShutdownTimeout); err != nil {
		return ServerConfig{}, err
	}
	if cfg.CommandTimeout, err = durationEnv("SAFEPAW_COMMAND_TIMEOUT", 0); err != nil {
		return ServerConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// Validate checks the bind host and ports.
func (c ServerConfig) Validate() error {
	host := strings.TrimSpace(c.Host)
	if host == "" {
		return fmt.Errorf("bind host required")
	}
	if !strings.EqualFold(host, "localhost") && net.ParseIP(strings.Trim(host, "[]")) == nil {
		return fmt.Errorf("invalid host address: %s", c.Host)
	}
	if err := validPort("ui", c.UIPort); err != nil {
		return err
	}
	if err := validPort("api", c.APIPort); err != nil {
		return err
	}
	if c.UIPort == c.APIPort {
		return fmt.Errorf("ui and api ports must differ (both %d)", c.UIPort)
	}
	if c.ShutdownTimeout < 0 || c.CommandTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	for _, raw := range c.AllowCIDRs {
		if _, _, err := net.ParseCIDR(raw); err != nil {
			return fmt.Errorf("invalid allow cidr %q: %w", raw, err)
		}
	}
	return nil
}

// UIAddr is the host:port the asset listener binds.
func (c ServerConfig) UIAddr() string {
	return net.JoinHostPort(strings.Trim(c.Host, "[]"), strconv.Itoa(c.UIPort))
}

// APIAddr is the host:port the API listener binds.
func (c ServerConfig) APIAddr() string {
	return net.JoinHostPort(strings.Trim(c.Host, "[]"), strconv.Itoa(c.APIPort))
}

func validPort(label string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid %s port %d", label, port)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
