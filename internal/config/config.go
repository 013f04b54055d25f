// Package config loads the import service configuration from environment
// variables, optionally layered over a YAML file, and validates it on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Import   ImportConfig   `yaml:"import"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `yaml:"port" env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `yaml:"idleTimeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for running imports.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	RequestTimeout time.Duration `yaml:"requestTimeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is postgres or sqlite (default: postgres)
	Driver string `yaml:"driver" env:"DB_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars.
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `yaml:"sqlitePath" env:"DB_SQLITE_PATH" default:"allocimport.db"`

	MaxConns        int           `yaml:"maxConns" env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `yaml:"minConns" env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// BaseDir is the upload directory relative job paths are resolved against.
	BaseDir string `yaml:"baseDir" env:"IMPORT_BASE_DIR" default:"./uploads"`

	// RejectDir is where the file reject sink writes its CSV files.
	RejectDir string `yaml:"rejectDir" env:"IMPORT_REJECT_DIR" default:"./rejects"`

	// RejectSink is file or table (default: file)
	RejectSink string `yaml:"rejectSink" env:"IMPORT_REJECT_SINK" default:"file"`

	BatchSize int `yaml:"batchSize" env:"IMPORT_BATCH_SIZE" default:"500"`

	// Delimiter, Quote and Escape are single characters. "none" disables
	// quoting or escaping.
	Delimiter string `yaml:"delimiter" env:"IMPORT_CSV_DELIMITER" default:";"`
	Quote     string `yaml:"quote" env:"IMPORT_CSV_QUOTE" default:"\""`
	Escape    string `yaml:"escape" env:"IMPORT_CSV_ESCAPE" default:"\\"`

	// Encoding is the default charset hint for new jobs (default: auto)
	Encoding string `yaml:"encoding" env:"IMPORT_ENCODING" default:"auto"`

	// MaxFileSize is the maximum input file size in bytes (default: 100MB)
	MaxFileSize int64 `yaml:"maxFileSize" env:"IMPORT_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the number of imports allowed to run at once (default: 2)
	MaxConcurrent int `yaml:"maxConcurrent" env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a request waits for a run slot (default: 30s)
	MaxWaitTime time.Duration `yaml:"maxWaitTime" env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// RunTimeout bounds a single background run (default: 30m)
	RunTimeout time.Duration `yaml:"runTimeout" env:"IMPORT_RUN_TIMEOUT" default:"30m"`

	// WorkerEnabled starts the pending-job worker in the server (default: true)
	WorkerEnabled bool `yaml:"workerEnabled" env:"IMPORT_WORKER_ENABLED" default:"true"`

	PollInterval time.Duration `yaml:"pollInterval" env:"IMPORT_POLL_INTERVAL" default:"30s"`

	// TimeZone is the IANA zone the export's local timestamps are in (default: UTC)
	TimeZone string `yaml:"timeZone" env:"IMPORT_TIME_ZONE" default:"UTC"`
}

// SecurityConfig holds HTTP API access settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are honored.
	TrustedProxies []string `yaml:"trustedProxies" env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key authentication on /api routes (default: false)
	RequireAPIKey bool `yaml:"requireApiKey" env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys.
	APIKeys []string `yaml:"apiKeys" env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
