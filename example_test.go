package connpool_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing/fstest"

	"go.uber.org/zap"

	"github.com/yuku/connpool"
)

func ExampleManager() {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "connpool-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	cfg := connpool.DefaultConfig()
	cfg.Driver = "sqlite3"
	cfg.Database = filepath.Join(dir, "example.db")
	cfg.Username = "example"
	cfg.Password = "example"

	pool := connpool.NewManager(connpool.Options{
		Name:   "example",
		Logger: zap.NewNop(),
		Script: fstest.MapFS{
			"database.sql": &fstest.MapFile{Data: []byte("CREATE TABLE greetings (text TEXT NOT NULL)")},
		},
	})
	if err := pool.Initialize(ctx, cfg); err != nil {
		panic(err)
	}
	defer pool.Shutdown()

	_ = pool.ExecuteSync(ctx, "greet", func(ctx context.Context, conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, "INSERT INTO greetings (text) VALUES ('hello')"); err != nil {
			return err
		}
		var text string
		if err := conn.QueryRowContext(ctx, "SELECT text FROM greetings").Scan(&text); err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	})

	fmt.Println(pool.WorkerName("greet"))
	// Output:
	// hello
	// example-greet-Thread
}
