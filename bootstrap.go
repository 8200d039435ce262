package connpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// loadScript reads the bootstrap script from the configured filesystem.
func (m *Manager) loadScript() (string, error) {
	if m.script == nil {
		return "", fmt.Errorf("%w: no script filesystem configured", ErrScriptMissing)
	}

	data, err := fs.ReadFile(m.script, m.scriptName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrScriptMissing, m.scriptName)
		}
		return "", fmt.Errorf("failed to read %s: %w", m.scriptName, err)
	}

	script := strings.TrimSpace(string(data))
	if script == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrScriptMissing, m.scriptName)
	}
	return script, nil
}

// bootstrap executes script once on a connection borrowed from db and
// returns the connection to the pool.
func bootstrap(ctx context.Context, db *sql.DB, cfg *Config, script string) error {
	conn, err := acquire(ctx, db, cfg.AcquireTimeout)
	if err != nil {
		return &InitError{Reason: ReasonConnect, Err: err}
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, script); err != nil {
		return &InitError{Reason: ReasonBootstrap, Err: fmt.Errorf("failed to execute bootstrap script: %w", err)}
	}
	return nil
}

// acquire borrows a connection from db, waiting at most timeout.
// The returned connection outlives the acquisition deadline.
func acquire(ctx context.Context, db *sql.DB, timeout time.Duration) (*sql.Conn, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}
