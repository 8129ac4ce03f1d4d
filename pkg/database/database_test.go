package database

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"
)

// sqliteConfig returns a config pointing at a fresh database file.
func sqliteConfig(t *testing.T) Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sensors.db")
	return Config{
		ConnectionString: "sqlite://" + path + "?_busy_timeout=5000&_txlock=immediate",
		MaxOpenConns:     4,
		MinIdleConns:     2,
		ConnectTimeout:   2 * time.Second,
		IdleTimeout:      time.Minute,
		AutoMigrate:      true,
	}
}

func TestDialectorFor(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		driver  string
		wantErr bool
	}{
		{"postgres url", "postgres://u:p@localhost:5432/sensors", DriverPostgres, false},
		{"postgresql url", "postgresql://u:p@localhost/sensors", DriverPostgres, false},
		{"postgres keyword", "host=localhost port=5432 dbname=sensors sslmode=disable", DriverPostgres, false},
		{"mysql", "mysql://u:p@tcp(localhost:3306)/sensors", DriverMySQL, false},
		{"sqlite scheme", "sqlite:///tmp/sensors.db", DriverSQLite, false},
		{"sqlite file", "file:sensors.db?cache=shared", DriverSQLite, false},
		{"sqlite without path", "sqlite://", "", true},
		{"jdbc", "jdbc:sqlserver://example.database.windows.net:1433", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, driver, err := dialectorFor(tt.dsn)
			if tt.wantErr {
				if !errors.Is(err, ErrConfiguration) {
					t.Fatalf("dialectorFor() error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("dialectorFor() error = %v", err)
			}
			if driver != tt.driver {
				t.Errorf("driver = %q, want %q", driver, tt.driver)
			}
		})
	}
}

func TestManagerMissingConnectionString(t *testing.T) {
	cfg := sqliteConfig(t)
	var current atomic.Value
	current.Store(Config{})

	m := NewManager(func() Config { return current.Load().(Config) }, nil, nil)
	defer m.Close() //nolint:errcheck

	if _, err := m.DB(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("DB() error = %v, want ErrConfiguration", err)
	}

	err := m.WithConn(context.Background(), func(*gorm.DB) error {
		t.Fatal("fn must not run without a pool")
		return nil
	})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("WithConn() error = %v, want ErrConfiguration", err)
	}

	// Configuration read at call time: fixing the env lets the next caller succeed.
	current.Store(cfg)
	if _, err := m.DB(); err != nil {
		t.Fatalf("DB() after fix error = %v", err)
	}
	if m.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", m.Driver(), DriverSQLite)
	}
}

func TestManagerConcurrentFirstUse(t *testing.T) {
	cfg := sqliteConfig(t)
	var loads atomic.Int32
	m := NewManager(func() Config {
		loads.Add(1)
		return cfg
	}, nil, nil)
	defer m.Close() //nolint:errcheck

	const callers = 16
	handles := make([]*gorm.DB, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			db, err := m.DB()
			if err != nil {
				t.Errorf("DB() error = %v", err)
				return
			}
			handles[i] = db
		}(i)
	}
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("config loaded %d times, want 1", got)
	}
	if m.openCount != 1 {
		t.Errorf("pool built %d times, want 1", m.openCount)
	}
	for i := 1; i < callers; i++ {
		if handles[i] != handles[0] {
			t.Fatalf("caller %d got a different pool handle", i)
		}
	}
}

// silentListener accepts TCP connections and never writes a byte back.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close() //nolint:errcheck
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close() //nolint:errcheck
		}
	})
	return ln.Addr().String()
}

func TestManagerUnresponsiveStore(t *testing.T) {
	addr := silentListener(t)
	cfg := Config{
		ConnectionString: fmt.Sprintf("postgres://u:p@%s/sensors?sslmode=disable", addr),
		MaxOpenConns:     4,
		ConnectTimeout:   300 * time.Millisecond,
	}
	m := NewManager(func() Config { return cfg }, nil, nil)
	defer m.Close() //nolint:errcheck

	const callers = 6
	errs := make(chan error, callers)
	start := time.Now()
	for i := 0; i < callers; i++ {
		go func() {
			errs <- m.WithConn(context.Background(), func(*gorm.DB) error {
				t.Error("fn must not run without a pool")
				return nil
			})
		}()
	}

	// Pool inspection must not queue behind the build.
	statsDone := make(chan struct{})
	go func() {
		m.Stats()
		m.Driver()
		close(statsDone)
	}()
	select {
	case <-statsDone:
	case <-time.After(100 * time.Millisecond):
		t.Error("Stats() blocked while the pool was being built")
	}

	for i := 0; i < callers; i++ {
		if err := <-errs; !errors.Is(err, ErrConfiguration) {
			t.Errorf("WithConn() error = %v, want ErrConfiguration", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("callers waited %v in total, want a single bounded attempt", elapsed)
	}
	if _, ok := m.Stats(); ok {
		t.Error("Stats() reported a pool after a failed build")
	}
}

func TestManagerCallerDeadlineDuringBuild(t *testing.T) {
	addr := silentListener(t)
	cfg := Config{
		ConnectionString: fmt.Sprintf("postgres://u:p@%s/sensors?sslmode=disable", addr),
		ConnectTimeout:   2 * time.Second,
	}
	m := NewManager(func() Config { return cfg }, nil, nil)
	defer m.Close() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := m.WithConn(ctx, func(*gorm.DB) error { return nil })
	if !errors.Is(err, ErrConfiguration) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WithConn() error = %v, want ErrConfiguration wrapping the deadline", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("caller waited %v past its own deadline", elapsed)
	}
}

func TestManagerIdleCapacity(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.MaxOpenConns = 4
	cfg.MinIdleConns = 1
	m := NewManager(func() Config { return cfg }, nil, nil)
	defer m.Close() //nolint:errcheck

	// Hold every connection at once, then hand them all back.
	ctx := context.Background()
	var ready, release sync.WaitGroup
	ready.Add(cfg.MaxOpenConns)
	release.Add(1)
	errs := make(chan error, cfg.MaxOpenConns)
	for i := 0; i < cfg.MaxOpenConns; i++ {
		go func() {
			errs <- m.WithConn(ctx, func(conn *gorm.DB) error {
				ready.Done()
				release.Wait()
				return conn.Exec("SELECT 1").Error
			})
		}()
	}
	ready.Wait()
	release.Done()
	for i := 0; i < cfg.MaxOpenConns; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("WithConn() error = %v", err)
		}
	}

	stats, ok := m.Stats()
	if !ok {
		t.Fatal("Stats() not ok after use")
	}
	if stats.Idle != cfg.MaxOpenConns {
		t.Errorf("Idle = %d, want %d", stats.Idle, cfg.MaxOpenConns)
	}
	if stats.MaxIdleClosed != 0 {
		t.Errorf("MaxIdleClosed = %d, want 0", stats.MaxIdleClosed)
	}
}

func TestManagerWithConnReleases(t *testing.T) {
	cfg := sqliteConfig(t)
	m := NewManager(func() Config { return cfg }, nil, nil)
	defer m.Close() //nolint:errcheck

	ctx := context.Background()
	boom := errors.New("boom")

	for i := 0; i < 10; i++ {
		err := m.WithConn(ctx, func(conn *gorm.DB) error {
			var one int
			if err := conn.Raw("SELECT 1").Scan(&one).Error; err != nil {
				return err
			}
			if i%2 == 0 {
				return boom
			}
			return nil
		})
		if i%2 == 0 && !errors.Is(err, boom) {
			t.Fatalf("WithConn() error = %v, want boom", err)
		}
		if i%2 == 1 && err != nil {
			t.Fatalf("WithConn() error = %v", err)
		}
	}

	stats, ok := m.Stats()
	if !ok {
		t.Fatal("Stats() not available after use")
	}
	if stats.InUse != 0 {
		t.Errorf("InUse = %d, want 0", stats.InUse)
	}
	if stats.MaxOpenConnections != cfg.MaxOpenConns {
		t.Errorf("MaxOpenConnections = %d, want %d", stats.MaxOpenConnections, cfg.MaxOpenConns)
	}
}

func TestManagerPoolExhausted(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.MaxOpenConns = 1
	cfg.MinIdleConns = 1
	cfg.ConnectTimeout = 100 * time.Millisecond

	m := NewManager(func() Config { return cfg }, nil, nil)
	defer m.Close() //nolint:errcheck

	ctx := context.Background()
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- m.WithConn(ctx, func(*gorm.DB) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	start := time.Now()
	err := m.WithConn(ctx, func(*gorm.DB) error {
		t.Error("fn must not run when the pool is exhausted")
		return nil
	})
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("WithConn() error = %v, want ErrPoolExhausted", err)
	}
	if waited := time.Since(start); waited < cfg.ConnectTimeout {
		t.Errorf("gave up after %v, want at least %v", waited, cfg.ConnectTimeout)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("holder WithConn() error = %v", err)
	}

	// The released connection is usable again.
	if err := m.WithConn(ctx, func(*gorm.DB) error { return nil }); err != nil {
		t.Fatalf("WithConn() after release error = %v", err)
	}
}

func TestManagerCloseBeforeUse(t *testing.T) {
	m := NewManager(func() Config { return Config{} }, nil, nil)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := m.Stats(); ok {
		t.Error("Stats() reported ok before the pool was built")
	}
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{MinIdleConns: 50}.withDefaults()
	if got.MaxOpenConns != 20 {
		t.Errorf("MaxOpenConns = %d, want 20", got.MaxOpenConns)
	}
	if got.MinIdleConns != 20 {
		t.Errorf("MinIdleConns = %d, want clamped to 20", got.MinIdleConns)
	}
	if got.ConnectTimeout != 10*time.Second || got.IdleTimeout != 300*time.Second {
		t.Errorf("timeouts = %v/%v", got.ConnectTimeout, got.IdleTimeout)
	}
}
