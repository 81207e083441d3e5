package model

import "time"

type DatabaseDriver string

const (
	DatabaseDriverSqlite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

// Config holds the application configuration.
type Config struct {
	Log      Log      `mapstructure:"log"`
	Database Database `mapstructure:"database"`
	Docker   Docker   `mapstructure:"docker"`
	Registry Registry `mapstructure:"registry"`
	Cache    Cache    `mapstructure:"cache"`
	Server   Server   `mapstructure:"server"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Database struct {
	Driver DatabaseDriver `mapstructure:"driver"` // e.g., "sqlite" or "postgres"
	Dsn    string         `mapstructure:"dsn"`
}

// Docker holds the container runtime connection settings.
type Docker struct {
	Host        string        `mapstructure:"host"`         // empty = environment default (DOCKER_HOST or local socket)
	PingTimeout time.Duration `mapstructure:"ping-timeout"` // liveness probe deadline
}

// Registry holds remote digest resolution settings.
type Registry struct {
	Timeout     time.Duration `mapstructure:"timeout"`      // deadline per remote lookup, fallback chain included
	Workers     int           `mapstructure:"workers"`      // parallel lookups during update checks
	AllowPull   bool          `mapstructure:"allow-pull"`   // enable the pull-then-remove fallback
	InsecureTls bool          `mapstructure:"insecure-tls"` // skip registry certificate verification
	Platform    string        `mapstructure:"platform"`     // e.g. "linux/amd64", empty = registry default
}

// Cache holds the optional remote digest cache settings.
type Cache struct {
	Endpoint string        `mapstructure:"endpoint"` // redis://host:port, empty = cache disabled
	Ttl      time.Duration `mapstructure:"ttl"`
}

type Server struct {
	Port int `mapstructure:"port"`
}
