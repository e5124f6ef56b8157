package forge

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config collects every knob the server, codec, and route dispatcher read
// at startup. Built by hand via DefaultConfig, or loaded from a YAML
// document via LoadConfigFile.
type Config struct {
	// Host is the bind address. Empty means all interfaces.
	Host string `yaml:"host"`
	// Port is the bind port.
	Port int `yaml:"port"`
	// Backlog is the TCP listen backlog.
	Backlog int `yaml:"backlog"`

	// WorkerPoolSize is the number of goroutines in the fixed-size worker
	// pool that services accepted connections.
	WorkerPoolSize int `yaml:"worker_pool_size"`

	// ReadChunkSize is the buffer size used per socket read while
	// assembling a request.
	ReadChunkSize int `yaml:"read_chunk_size"`
	// MaxHeaderBytes caps the request line plus header block.
	MaxHeaderBytes int `yaml:"max_header_bytes"`
	// MaxBodyBytes caps the request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ReadTimeout is the maximum duration for reading an entire request.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout is the maximum duration for writing a response.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// IdleTimeout is loaded and defaulted but not read by the server; each
	// connection carries one request, bounded by ReadTimeout and
	// WriteTimeout, and is then closed.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// NavPathSuffix is the suffix (default "/") that triggers the
	// navigation-fallback HTML index when no route matches.
	NavPathSuffix string `yaml:"nav_path_suffix"`
	// DisableDefaultRoutes turns off the built-in favicon/openapi/swagger
	// routes.
	DisableDefaultRoutes bool `yaml:"disable_default_routes"`
	// DisableStartupMessage suppresses the banner printed when the
	// server starts listening.
	DisableStartupMessage bool `yaml:"disable_startup_message"`

	// ErrorMode is the default error mode applied to
	// handlers that did not specify their own at registration.
	ErrorMode ErrorMode `yaml:"-"`
}

// DefaultConfig returns the configuration the server uses when none is
// supplied: bind-all, port 8080, backlog 1, a worker pool of size 1
//, generic timeouts, and hidden error bodies.
func DefaultConfig() Config {
	return Config{
		Host:                   "",
		Port:                   defaultPort,
		Backlog:                defaultBacklog,
		WorkerPoolSize:         1,
		ReadChunkSize:          defaultReadChunkSize,
		MaxHeaderBytes:         defaultMaxHeaderBytes,
		MaxBodyBytes:           defaultMaxBodyBytes,
		ReadTimeout:            5 * time.Second,
		WriteTimeout:           10 * time.Second,
		IdleTimeout:            15 * time.Second,
		NavPathSuffix:          "/",
		DisableDefaultRoutes:   false,
		DisableStartupMessage:  false,
		ErrorMode:              ErrorModeHide,
	}
}

// configFile mirrors Config's YAML-tagged fields plus a string form of
// ErrorMode, since ErrorMode has no YAML marshaling of its own.
type configFile struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	Backlog                int    `yaml:"backlog"`
	WorkerPoolSize         int    `yaml:"worker_pool_size"`
	ReadChunkSize          int    `yaml:"read_chunk_size"`
	MaxHeaderBytes         int    `yaml:"max_header_bytes"`
	MaxBodyBytes           int64  `yaml:"max_body_bytes"`
	ReadTimeout            string `yaml:"read_timeout"`
	WriteTimeout           string `yaml:"write_timeout"`
	IdleTimeout            string `yaml:"idle_timeout"`
	NavPathSuffix          string `yaml:"nav_path_suffix"`
	DisableDefaultRoutes   bool   `yaml:"disable_default_routes"`
	DisableStartupMessage  bool   `yaml:"disable_startup_message"`
	ErrorMode              string `yaml:"error_mode"`
}

// LoadConfigFile reads a YAML document at path and overlays it onto
// DefaultConfig. Durations are parsed with time.ParseDuration; zero or
// absent fields fall back to the default.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cf configFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return Config{}, err
	}

	if cf.Host != "" {
		cfg.Host = cf.Host
	}
	if cf.Port != 0 {
		cfg.Port = cf.Port
	}
	if cf.Backlog != 0 {
		cfg.Backlog = cf.Backlog
	}
	if cf.WorkerPoolSize != 0 {
		cfg.WorkerPoolSize = cf.WorkerPoolSize
	}
	if cf.ReadChunkSize != 0 {
		cfg.ReadChunkSize = cf.ReadChunkSize
	}
	if cf.MaxHeaderBytes != 0 {
		cfg.MaxHeaderBytes = cf.MaxHeaderBytes
	}
	if cf.MaxBodyBytes != 0 {
		cfg.MaxBodyBytes = cf.MaxBodyBytes
	}
	if d, err := time.ParseDuration(cf.ReadTimeout); err == nil {
		cfg.ReadTimeout = d
	}
	if d, err := time.ParseDuration(cf.WriteTimeout); err == nil {
		cfg.WriteTimeout = d
	}
	if d, err := time.ParseDuration(cf.IdleTimeout); err == nil {
		cfg.IdleTimeout = d
	}
	if cf.NavPathSuffix != "" {
		cfg.NavPathSuffix = cf.NavPathSuffix
	}
	cfg.DisableDefaultRoutes = cf.DisableDefaultRoutes
	cfg.DisableStartupMessage = cf.DisableStartupMessage
	if cf.ErrorMode != "" {
		cfg.ErrorMode = ParseErrorMode(cf.ErrorMode)
	}

	return cfg, nil
}
