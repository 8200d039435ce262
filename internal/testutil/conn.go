package testutil

import (
	"os"
	"strconv"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MySQLParams holds the connection settings of a MySQL server used by
// integration tests.
type MySQLParams struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// GetMySQLParams reads MySQL settings from the environment. It skips the test
// when MYSQL_DATABASE is not set or when running with -short.
func GetMySQLParams(t *testing.T) MySQLParams {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	database := os.Getenv("MYSQL_DATABASE")
	if database == "" {
		t.Skip("MYSQL_DATABASE is not set")
	}

	port, err := strconv.Atoi(GetEnvOrDefault("MYSQL_PORT", "3306"))
	if err != nil {
		t.Fatalf("invalid MYSQL_PORT: %v", err)
	}

	return MySQLParams{
		Host:     GetEnvOrDefault("MYSQL_HOST", "localhost"),
		Port:     port,
		Database: database,
		User:     GetEnvOrDefault("MYSQL_USER", "root"),
		Password: GetEnvOrDefault("MYSQL_PASSWORD", "root"),
	}
}

// GetEnvOrDefault retrieves an environment variable or returns a default value
// if the variable is not set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ObservedLogger returns a logger that records every entry at debug level
// and above.
func ObservedLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}
