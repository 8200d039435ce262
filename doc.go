// Package connpool manages a shared SQL connection pool for a host
// application and schedules work against it.
//
// A Manager owns exactly one pool. Initialize opens it from a Config and runs
// a bundled bootstrap script once; after that, work is submitted through
// ExecuteSync or ExecuteAsync. Each call borrows one connection, hands it to
// the caller's Work function and returns it to the pool on every exit path.
// Errors raised by Work are logged together with the action label and are
// never propagated to the caller.
//
// # Basic Usage
//
//	//go:embed database.sql
//	var schema embed.FS
//
//	func main() {
//		ctx := context.Background()
//
//		cfg, err := settings.Load("/var/lib/myapp", logger)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		pool := connpool.NewManager(connpool.Options{
//			Name:   "myapp",
//			Logger: logger,
//			Script: schema,
//		})
//		if err := pool.Initialize(ctx, cfg); err != nil {
//			log.Fatal(err) // the schema may not exist, do not proceed
//		}
//		defer pool.Shutdown()
//
//		// Runs on a goroutine labelled "myapp-save-stats-Thread".
//		_ = pool.ExecuteAsync(ctx, "save-stats", func(ctx context.Context, conn *sql.Conn) error {
//			_, err := conn.ExecContext(ctx, "UPDATE stats SET visits = visits + 1")
//			return err
//		})
//	}
//
// # Lifecycle
//
// A Manager moves through Uninitialized, Initializing, Ready, Failed and
// Closed. ExecuteSync and ExecuteAsync are valid only while Ready; anywhere
// else they fail immediately with ErrNotInitialized. A failed Initialize may
// be retried, and a Closed Manager may be initialized again.
//
// # Drivers
//
// The "mysql" driver (default) targets MySQL and MariaDB, "postgres" uses
// pgx, and "sqlite3" opens a local database file. The bootstrap script may
// contain several statements for every driver.
//
// # Resource Bounds
//
// The pool holds at most MaxPoolSize connections and a caller waits at most
// AcquireTimeout for one. Async tasks run at most Options.AsyncLimit at a
// time; further tasks wait for a slot without blocking the caller. There are
// no automatic retries.
package connpool
