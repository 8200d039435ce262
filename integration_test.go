package connpool_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yuku/connpool"
	itestutil "github.com/yuku/connpool/internal/testutil"
)

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS connpool_it_players (
	id INT PRIMARY KEY,
	name VARCHAR(64) NOT NULL
);
CREATE TABLE IF NOT EXISTS connpool_it_visits (
	player_id INT NOT NULL,
	count INT NOT NULL DEFAULT 0
);
`

func mysqlConfig(t *testing.T) *connpool.Config {
	t.Helper()

	p := itestutil.GetMySQLParams(t)
	cfg := connpool.DefaultConfig()
	cfg.Hostname = p.Host
	cfg.Port = p.Port
	cfg.Database = p.Database
	cfg.Username = p.User
	cfg.Password = p.Password
	cfg.MaxPoolSize = 4
	cfg.AcquireTimeout = 5 * time.Second
	return cfg
}

func TestMySQLIntegration(t *testing.T) {
	cfg := mysqlConfig(t)
	ctx := context.Background()

	m, _ := newManager(t, connpool.Options{Name: "it", Script: schemaFS(mysqlSchema)})
	require.NoError(t, m.Initialize(ctx, cfg))

	t.Cleanup(func() {
		_ = m.ExecuteSync(ctx, "drop", func(ctx context.Context, conn *sql.Conn) error {
			_, err := conn.ExecContext(ctx, "DROP TABLE IF EXISTS connpool_it_players, connpool_it_visits")
			return err
		})
	})

	t.Run("SyncAndAsync", func(t *testing.T) {
		const workers = 8
		var inserted atomic.Int32

		for i := range workers {
			err := m.ExecuteAsync(ctx, fmt.Sprintf("insert-%d", i), func(ctx context.Context, conn *sql.Conn) error {
				_, err := conn.ExecContext(ctx,
					"INSERT INTO connpool_it_players (id, name) VALUES (?, ?) ON DUPLICATE KEY UPDATE name = VALUES(name)",
					i, fmt.Sprintf("player-%d", i))
				if err == nil {
					inserted.Add(1)
				}
				return err
			})
			require.NoError(t, err)
		}

		require.Eventually(t, func() bool { return inserted.Load() == workers }, 10*time.Second, 10*time.Millisecond)

		var count int
		require.NoError(t, m.ExecuteSync(ctx, "count", func(ctx context.Context, conn *sql.Conn) error {
			return conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM connpool_it_players").Scan(&count)
		}))
		require.Equal(t, workers, count)
	})

	t.Run("Reinitialize", func(t *testing.T) {
		m.Shutdown()
		require.NoError(t, m.Initialize(ctx, cfg), "bootstrap script must be re-runnable")
	})
}

func TestMySQLIntegration_ConnectFailure(t *testing.T) {
	cfg := mysqlConfig(t)
	cfg.Password = cfg.Password + "-wrong"
	cfg.AcquireTimeout = 2 * time.Second

	m, _ := newManager(t, connpool.Options{Script: schemaFS(mysqlSchema)})
	err := m.Initialize(context.Background(), cfg)

	reason, ok := connpool.InitFailureReason(err)
	require.True(t, ok)
	require.Equal(t, connpool.ReasonConnect, reason)
	require.False(t, m.HasPool())
}
