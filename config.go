package connpool

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultDriver          = "mysql"
	DefaultHostname        = "localhost"
	DefaultPort            = 3306
	DefaultPostgresPort    = 5432
	DefaultMaxPoolSize     = 10
	DefaultAcquireTimeout  = 30 * time.Second
	DefaultConnMaxLifetime = 30 * time.Minute
)

// ErrIncompleteConfig is returned when a required configuration value is missing.
var ErrIncompleteConfig = errors.New("configuration is incomplete")

// Config holds the settings used to open the connection pool.
// The Manager never modifies a Config it is given.
type Config struct {
	// Driver selects the database backend: "mysql", "postgres" or "sqlite3".
	Driver string `yaml:"driver"`

	Hostname string `yaml:"host"`

	// Port defaults to 5432 for postgres and 3306 otherwise.
	Port int `yaml:"port"`

	// Database is the schema name. For sqlite3 it is the database file path.
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// MaxPoolSize bounds the number of open connections.
	MaxPoolSize int `yaml:"max_pool_size"`

	// AcquireTimeout bounds the wait for a pooled connection.
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`

	// ConnMaxLifetime is the maximum amount of time a connection may be reused.
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultConfig returns a Config with every optional field set to its default.
// Database, Username and Password are left empty.
func DefaultConfig() *Config {
	return &Config{
		Driver:          DefaultDriver,
		Hostname:        DefaultHostname,
		Port:            DefaultPort,
		MaxPoolSize:     DefaultMaxPoolSize,
		AcquireTimeout:  DefaultAcquireTimeout,
		ConnMaxLifetime: DefaultConnMaxLifetime,
	}
}

// ApplyDefaults fills zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DefaultDriver
	}
	if c.Hostname == "" {
		c.Hostname = DefaultHostname
	}
	if c.Port == 0 {
		c.Port = c.defaultPort()
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = DefaultMaxPoolSize
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = DefaultConnMaxLifetime
	}
}

// Missing returns the names of required fields that are empty.
func (c *Config) Missing() []string {
	var missing []string
	if c.Database == "" {
		missing = append(missing, "database")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	return missing
}

// Validate checks that the configuration is complete and usable.
func (c *Config) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteConfig, strings.Join(missing, ", "))
	}

	if _, ok := openers[c.driver()]; !ok {
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}

	if c.MaxPoolSize < 0 {
		return fmt.Errorf("max_pool_size must not be negative, got %d", c.MaxPoolSize)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", c.Port)
	}

	if c.AcquireTimeout < 0 {
		return fmt.Errorf("acquire_timeout must not be negative, got %s", c.AcquireTimeout)
	}

	return nil
}

// Address returns the hostname:port pair the pool connects to.
func (c *Config) Address() string {
	port := c.Port
	if port == 0 {
		port = c.defaultPort()
	}
	host := c.Hostname
	if host == "" {
		host = DefaultHostname
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *Config) driver() string {
	if c.Driver == "" {
		return DefaultDriver
	}
	return c.Driver
}

func (c *Config) defaultPort() int {
	if c.driver() == "postgres" {
		return DefaultPostgresPort
	}
	return DefaultPort
}

// withDefaults returns a copy of c with defaults applied.
func (c *Config) withDefaults() *Config {
	cp := *c
	cp.ApplyDefaults()
	return &cp
}
