package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"swstat/pkg/transport"
)

// ServerConfig selects the server endpoint.
type ServerConfig struct {
	// Host is a hostname or IP for udp, or a listener name for mem.
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Transport: udp or mem
	Transport string `mapstructure:"transport"`
}

// Address is the string passed to the transport dialer.
func (s ServerConfig) Address() string {
	if transport.ParseKind(s.Transport) == transport.KindMem {
		return s.Host
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s *ServerConfig) validate() error {
	s.Transport = strings.ToLower(strings.TrimSpace(s.Transport))
	if transport.ParseKind(s.Transport) == transport.KindUnknown {
		return errors.Errorf("invalid server.transport: %q", s.Transport)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return errors.Errorf("invalid server.port: %d", s.Port)
	}
	return nil
}

// PollConfig controls request pacing.
type PollConfig struct {
	// Interval is the delay before each request.
	Interval time.Duration `mapstructure:"interval"`
	// OneShotTimeout bounds the wait for a command's response.
	OneShotTimeout time.Duration `mapstructure:"oneshot_timeout"`
}

func (p PollConfig) validate() error {
	if p.Interval <= 0 {
		return errors.Errorf("invalid poll.interval: %s", p.Interval)
	}
	if p.OneShotTimeout <= 0 {
		return errors.Errorf("invalid poll.oneshot_timeout: %s", p.OneShotTimeout)
	}
	return nil
}

// RecordConfig enables snapshot recording.
type RecordConfig struct {
	Path string `mapstructure:"path"`
	// Format: json, cbor or proto
	Format string `mapstructure:"format"`
}

// MetricsConfig enables the Prometheus exporter.
type MetricsConfig struct {
	// Listen is the HTTP address, e.g. ":9090"; empty disables the exporter.
	Listen    string `mapstructure:"listen"`
	Namespace string `mapstructure:"namespace"`
}
