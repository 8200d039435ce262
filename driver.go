package connpool

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// handle owns an open *sql.DB together with whatever backs it.
type handle struct {
	db    *sql.DB
	close func() error
}

// opener opens a bounded pool for cfg. cfg has defaults applied.
type opener func(ctx context.Context, cfg *Config) (*handle, error)

var openers = map[string]opener{
	"mysql":    openMySQL,
	"postgres": openPostgres,
	"sqlite3":  openSQLite,
}

func openMySQL(_ context.Context, cfg *Config) (*handle, error) {
	connector, err := mysql.NewConnector(mysqlConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	limit(db, cfg)
	return &handle{db: db, close: db.Close}, nil
}

// mysqlConfig builds the driver configuration. MultiStatements is enabled
// so that the bootstrap script may contain a statement batch.
func mysqlConfig(cfg *Config) *mysql.Config {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = cfg.Address()
	mc.DBName = cfg.Database
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.MultiStatements = true
	mc.ParseTime = true
	mc.Timeout = cfg.AcquireTimeout
	return mc
}

func openPostgres(ctx context.Context, cfg *Config) (*handle, error) {
	pc, err := pgxpool.ParseConfig(postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}
	pc.MaxConns = int32(cfg.MaxPoolSize)
	pc.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgxpool: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	limit(db, cfg)
	return &handle{
		db: db,
		close: func() error {
			err := db.Close()
			pool.Close()
			return err
		},
	}, nil
}

// postgresDSN builds a connection URL with properly escaped credentials.
func postgresDSN(cfg *Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     cfg.Address(),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable",
	}
	if cfg.AcquireTimeout > 0 {
		u.RawQuery += fmt.Sprintf("&connect_timeout=%d", int(cfg.AcquireTimeout.Seconds())+1)
	}
	return u.String()
}

func openSQLite(_ context.Context, cfg *Config) (*handle, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	limit(db, cfg)
	return &handle{db: db, close: db.Close}, nil
}

// sqliteDSN maps AcquireTimeout onto the busy timeout unless the database
// path already carries parameters.
func sqliteDSN(cfg *Config) string {
	if strings.Contains(cfg.Database, "?") || cfg.AcquireTimeout <= 0 {
		return cfg.Database
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", cfg.Database, cfg.AcquireTimeout.Milliseconds())
}

func limit(db *sql.DB, cfg *Config) {
	db.SetMaxOpenConns(cfg.MaxPoolSize)
	db.SetMaxIdleConns(cfg.MaxPoolSize)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
}
