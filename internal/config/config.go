package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/filebridge/internal/errors"
	"github.com/vango-dev/filebridge/pkg/payload"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "filebridge.json"

	// DefaultPort is the default server port.
	DefaultPort = 8080

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultRoute is the protocol route the bridge is mounted on.
	DefaultRoute = "/graphql"

	// DefaultSpoolDir is the default spool directory for the disk backend.
	DefaultSpoolDir = ".filebridge/spool"

	// DefaultMetricsPath is where Prometheus metrics are served.
	DefaultMetricsPath = "/metrics"
)

// Spool backends.
const (
	BackendDisk = "disk"
	BackendS3   = "s3"
)

// Config represents the complete filebridge.json configuration.
type Config struct {
	// Server contains the HTTP server and bridge settings.
	Server ServerConfig `json:"server,omitempty"`

	// Spool contains the file spool settings.
	Spool SpoolConfig `json:"spool,omitempty"`

	// Observability contains logging, metrics and tracing settings.
	Observability ObservabilityConfig `json:"observability,omitempty"`

	// Client contains defaults for `filebridge send`.
	Client ClientConfig `json:"client,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains server settings.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// Route is the protocol route, e.g. "/graphql".
	Route string `json:"route,omitempty"`

	// PayloadKey is the top-level multipart field holding the operation.
	PayloadKey string `json:"payloadKey,omitempty"`

	// MaxFieldBytes bounds each text part (0 = unbounded).
	MaxFieldBytes int64 `json:"maxFieldBytes,omitempty"`

	// MaxBodyBytes bounds the whole request body (0 = unbounded).
	MaxBodyBytes int64 `json:"maxBodyBytes,omitempty"`

	// ShutdownTimeout is how long to wait for requests on shutdown (e.g., "10s").
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// SpoolConfig contains spool backend settings.
type SpoolConfig struct {
	// Backend is "disk" or "s3".
	Backend string `json:"backend,omitempty"`

	// Dir is the spool directory for the disk backend. For s3 it holds
	// the local staging files.
	Dir string `json:"dir,omitempty"`

	// Bucket is the S3 bucket.
	Bucket string `json:"bucket,omitempty"`

	// Prefix is the S3 key prefix.
	Prefix string `json:"prefix,omitempty"`

	// Region is the AWS region. Empty uses the SDK default chain.
	Region string `json:"region,omitempty"`

	// CleanupInterval is how often stale spool entries are removed (e.g., "5m").
	CleanupInterval string `json:"cleanupInterval,omitempty"`

	// MaxAge is the age after which an unclaimed spool entry is stale (e.g., "1h").
	MaxAge string `json:"maxAge,omitempty"`
}

// ObservabilityConfig contains logging, metrics and tracing settings.
type ObservabilityConfig struct {
	// LogLevel is the slog level name ("debug", "info", "warn", "error").
	LogLevel string `json:"logLevel,omitempty"`

	// MetricsPath is where Prometheus metrics are served. "-" disables it.
	MetricsPath string `json:"metricsPath,omitempty"`

	// TracerName is the OpenTelemetry tracer name.
	TracerName string `json:"tracerName,omitempty"`
}

// ClientConfig contains client defaults.
type ClientConfig struct {
	// Endpoint is the URL operations are sent to.
	Endpoint string `json:"endpoint,omitempty"`

	// Timeout bounds one request (e.g., "30s").
	Timeout string `json:"timeout,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			Route:           DefaultRoute,
			PayloadKey:      payload.DefaultPayloadKey,
			ShutdownTimeout: "10s",
		},
		Spool: SpoolConfig{
			Backend:         BackendDisk,
			Dir:             DefaultSpoolDir,
			CleanupInterval: "5m",
			MaxAge:          "1h",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			MetricsPath: DefaultMetricsPath,
			TracerName:  "filebridge",
		},
		Client: ClientConfig{
			Endpoint: "http://" + DefaultHost + ":" + strconv.Itoa(DefaultPort) + DefaultRoute,
			Timeout:  "30s",
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for filebridge.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("FB151").
				WithDetail("No filebridge.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'filebridge serve' without a config for defaults, or create filebridge.json")
		}
		return nil, errors.New("FB150").Wrap(err)
	}

	// Unmarshal into a zero Config so fields derived from others, like the
	// client endpoint, follow the file rather than the defaults.
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("FB150").
			WithDetail("Failed to parse filebridge.json: " + err.Error()).
			WithSuggestion("Check that filebridge.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("FB150").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("FB150").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Route == "" {
		c.Server.Route = d.Server.Route
	}
	if c.Server.PayloadKey == "" {
		c.Server.PayloadKey = d.Server.PayloadKey
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}

	if c.Spool.Backend == "" {
		c.Spool.Backend = d.Spool.Backend
	}
	if c.Spool.Dir == "" {
		c.Spool.Dir = d.Spool.Dir
	}
	if c.Spool.CleanupInterval == "" {
		c.Spool.CleanupInterval = d.Spool.CleanupInterval
	}
	if c.Spool.MaxAge == "" {
		c.Spool.MaxAge = d.Spool.MaxAge
	}

	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = d.Observability.LogLevel
	}
	if c.Observability.MetricsPath == "" {
		c.Observability.MetricsPath = d.Observability.MetricsPath
	}
	if c.Observability.TracerName == "" {
		c.Observability.TracerName = d.Observability.TracerName
	}

	if c.Client.Endpoint == "" {
		c.Client.Endpoint = "http://" + c.Address() + c.Server.Route
	}
	if c.Client.Timeout == "" {
		c.Client.Timeout = d.Client.Timeout
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("Port must be between 0 and 65535")
	}
	if !strings.HasPrefix(c.Server.Route, "/") {
		return invalid("server.route must start with '/'")
	}
	if c.Server.PayloadKey == "" || strings.ContainsAny(c.Server.PayloadKey, "[]") {
		return invalid("server.payloadKey must be a non-empty name without brackets")
	}
	if c.Server.MaxFieldBytes < 0 || c.Server.MaxBodyBytes < 0 {
		return invalid("Size limits must not be negative")
	}

	switch c.Spool.Backend {
	case BackendDisk:
	case BackendS3:
		if c.Spool.Bucket == "" {
			return invalid("spool.bucket is required for the s3 backend")
		}
	default:
		return invalid("spool.backend must be \"disk\" or \"s3\", got " + strconv.Quote(c.Spool.Backend))
	}

	durations := []struct{ name, value string }{
		{"server.shutdownTimeout", c.Server.ShutdownTimeout},
		{"spool.cleanupInterval", c.Spool.CleanupInterval},
		{"spool.maxAge", c.Spool.MaxAge},
		{"client.timeout", c.Client.Timeout},
	}
	for _, d := range durations {
		if _, err := time.ParseDuration(d.value); err != nil {
			return invalid(d.name + " is not a duration: " + strconv.Quote(d.value))
		}
	}

	if _, err := c.LogLevel(); err != nil {
		return invalid("observability.logLevel: " + err.Error())
	}
	return nil
}

func invalid(detail string) error {
	return errors.New("FB150").WithDetail(detail)
}

// Address returns the listen address for the server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// SpoolPath returns the absolute path to the spool directory.
func (c *Config) SpoolPath() string {
	if filepath.IsAbs(c.Spool.Dir) {
		return c.Spool.Dir
	}
	return filepath.Join(c.Dir(), c.Spool.Dir)
}

// MetricsEnabled reports whether metrics are served.
func (c *Config) MetricsEnabled() bool {
	return c.Observability.MetricsPath != "-"
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Observability.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(c.Observability.LogLevel))
	return level, err
}

// CleanupInterval returns spool.cleanupInterval as a duration.
func (c *Config) CleanupInterval() time.Duration {
	return duration(c.Spool.CleanupInterval, 5*time.Minute)
}

// MaxAge returns spool.maxAge as a duration.
func (c *Config) MaxAge() time.Duration {
	return duration(c.Spool.MaxAge, time.Hour)
}

// ShutdownTimeout returns server.shutdownTimeout as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}

// ClientTimeout returns client.timeout as a duration.
func (c *Config) ClientTimeout() time.Duration {
	return duration(c.Client.Timeout, 30*time.Second)
}

// duration parses s, falling back to def when s is empty or invalid.
// Validate reports invalid values.
func duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindRoot walks up directories to find the one holding filebridge.json.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("FB151").
				WithDetail("No filebridge.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the working directory or
// its nearest parent holding filebridge.json.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
