package connpool_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuku/connpool"
)

func TestManagerConcurrency(t *testing.T) {
	ctx := context.Background()

	t.Run("ConcurrentExecuteSync", func(t *testing.T) {
		m, _ := readyManager(t, connpool.Options{}, sqliteConfig(t))

		const numWorkers = 10
		var wg sync.WaitGroup
		errs := make(chan error, numWorkers)

		for i := range numWorkers {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				errs <- m.ExecuteSync(ctx, "insert-player", func(ctx context.Context, conn *sql.Conn) error {
					_, err := conn.ExecContext(ctx, "INSERT INTO players (id, name) VALUES (?, ?)", id, "worker")
					return err
				})
			}(i)
		}

		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		require.Equal(t, numWorkers, countPlayers(t, m))
		require.Equal(t, 0, m.Stats().InUse)
	})

	t.Run("ConcurrentInitialize", func(t *testing.T) {
		m, _ := newManager(t, connpool.Options{})
		cfg := sqliteConfig(t)

		const callers = 8
		var wg sync.WaitGroup
		var succeeded, rejected atomic.Int32

		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := m.Initialize(ctx, cfg)
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, connpool.ErrAlreadyInitialized):
					rejected.Add(1)
				}
			}()
		}

		wg.Wait()
		require.Equal(t, int32(1), succeeded.Load(), "exactly one Initialize must win")
		require.Equal(t, int32(callers-1), rejected.Load())
		require.Equal(t, connpool.StateReady, m.State())
	})

	t.Run("ShutdownDuringExecution", func(t *testing.T) {
		m, _ := readyManager(t, connpool.Options{}, sqliteConfig(t))

		var completed atomic.Int32
		stop := make(chan struct{})
		var wg sync.WaitGroup

		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-stop:
						return
					default:
					}
					err := m.ExecuteAsync(ctx, "tick", func(ctx context.Context, conn *sql.Conn) error {
						time.Sleep(time.Millisecond)
						completed.Add(1)
						return nil
					})
					if err != nil {
						assert.ErrorIs(t, err, connpool.ErrNotInitialized)
						return
					}
				}
			}()
		}

		time.Sleep(20 * time.Millisecond)
		m.Shutdown()
		close(stop)
		wg.Wait()

		require.Equal(t, connpool.StateClosed, m.State())
		require.Positive(t, completed.Load())
	})
}
