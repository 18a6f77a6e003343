package common

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultEndpoint           = "127.0.0.1:6666"
	DefaultMaxFrameSize       = 512 * 1024 // 512 KB
	DefaultReadBufferSize     = 64 * 1024  // 64 KB
	DefaultBacklog            = 200
	DefaultWriteTimeoutSecond = 5
	DefaultAttachTimeoutSec   = 10
	DefaultTransport          = "tcp"
	DefaultSerializer         = "binary"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the server.
type ServerConfig struct {
	// Endpoint the server listens on (host:port for tcp, a socket path for unix)
	Endpoint string `yaml:"endpoint"`
	// Transport and Serializer select the implementations by name (see cmd/util)
	Transport  string `yaml:"transport"`
	Serializer string `yaml:"serializer"`

	// MaxFrameSize is the largest accepted frame payload in bytes
	MaxFrameSize int `yaml:"max_frame_size"`
	// ReadBufferSize bounds a single read per readiness event
	ReadBufferSize int `yaml:"read_buffer_size"`
	// Backlog is the requested connection backlog. Go sizes the listen queue itself,
	// the value is only reported.
	Backlog int `yaml:"backlog"`
	// WriteTimeoutSecond bounds writing one response. It must be positive, a peer that
	// stops reading would otherwise block the event loop for every client.
	WriteTimeoutSecond int64 `yaml:"write_timeout_second"`

	// MetricsEndpoint is the http address for /metrics, empty disables it
	MetricsEndpoint string `yaml:"metrics_endpoint"`

	// Logging configuration
	LogLevel string `yaml:"log_level"`
}

// DefaultServerConfig returns a server configuration with all defaults applied.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:           DefaultEndpoint,
		Transport:          DefaultTransport,
		Serializer:         DefaultSerializer,
		MaxFrameSize:       DefaultMaxFrameSize,
		ReadBufferSize:     DefaultReadBufferSize,
		Backlog:            DefaultBacklog,
		WriteTimeoutSecond: DefaultWriteTimeoutSecond,
		LogLevel:           "info",
	}
}

// LoadServerConfigFile reads a YAML configuration file on top of the defaults.
// Fields missing in the file keep their default value.
func LoadServerConfigFile(path string) (ServerConfig, error) {
	config := DefaultServerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return config, config.Validate()
}

// Validate checks the configuration for values the server cannot work with.
func (c *ServerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max frame size must be positive, got %d", c.MaxFrameSize)
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("read buffer size must be positive, got %d", c.ReadBufferSize)
	}
	if c.WriteTimeoutSecond <= 0 {
		return fmt.Errorf("write timeout must be positive, got %d", c.WriteTimeoutSecond)
	}
	return nil
}

// YAML renders the configuration in the format accepted by LoadServerConfigFile.
func (c *ServerConfig) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Transport", c.Transport)
	addField("Serializer", c.Serializer)
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("Read Buffer Size", fmt.Sprintf("%d bytes", c.ReadBufferSize))
	addField("Backlog", fmt.Sprintf("%d", c.Backlog))
	addField("Write Timeout", fmt.Sprintf("%d sec", c.WriteTimeoutSecond))

	// Observability
	addSection("Logging")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint   string
	Transport  string
	Serializer string
	// TimeoutSecond bounds one round trip; 0 blocks until the server answers
	TimeoutSecond int
	MaxFrameSize  int
}

// DefaultClientConfig returns a client configuration with all defaults applied.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:     DefaultEndpoint,
		Transport:    DefaultTransport,
		Serializer:   DefaultSerializer,
		MaxFrameSize: DefaultMaxFrameSize,
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Transport", c.Transport)
	addField("Serializer", c.Serializer)
	if c.TimeoutSecond > 0 {
		addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	} else {
		addField("Timeout", "none")
	}
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))

	return sb.String()
}
