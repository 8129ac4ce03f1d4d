package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"sensorgrid/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config mirrors config.DBConfig field for field so one converts to the other.
type Config struct {
	ConnectionString string
	MaxOpenConns     int
	MinIdleConns     int
	ConnectTimeout   time.Duration
	IdleTimeout      time.Duration
	AutoMigrate      bool
	LogLevel         string
}

const (
	defaultMaxOpenConns   = 20
	defaultMinIdleConns   = 5
	defaultConnectTimeout = 10 * time.Second
	defaultIdleTimeout    = 300 * time.Second
)

func (c Config) withDefaults() Config {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	if c.MinIdleConns > c.MaxOpenConns {
		c.MinIdleConns = c.MaxOpenConns
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	return c
}

// Manager owns the single connection pool of the process. The pool is built
// on the first call that needs it, from configuration loaded at that moment.
// A failed build is not remembered: the next caller tries again.
type Manager struct {
	load      func() Config
	log       *zap.Logger
	gormLog   gormlogger.Interface
	group     singleflight.Group
	mu        sync.Mutex
	db        *gorm.DB
	cfg       Config
	driver    string
	openCount int
}

// NewManager returns a manager that builds its pool lazily. gormLog may be nil.
func NewManager(load func() Config, log *zap.Logger, gormLog gormlogger.Interface) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if gormLog == nil {
		gormLog = gormlogger.Discard
	}
	return &Manager{
		load:    load,
		log:     log.Named("pool"),
		gormLog: gormLog,
	}
}

// DB returns the shared pool handle, building it on first use. Concurrent
// first callers share one build, so exactly one pool is created.
func (m *Manager) DB() (*gorm.DB, error) {
	return m.dbContext(context.Background())
}

// dbContext is DB with a caller deadline. A caller whose ctx ends stops
// waiting; the shared build keeps going for the others and is bounded by
// the connect timeout.
func (m *Manager) dbContext(ctx context.Context) (*gorm.DB, error) {
	m.mu.Lock()
	db := m.db
	m.mu.Unlock()
	if db != nil {
		return db, nil
	}

	select {
	case res := <-m.group.DoChan("open", m.build):
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*gorm.DB), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: pool not ready: %w", ErrConfiguration, ctx.Err())
	}
}

// build runs outside mu so Stats, Driver and Close never wait on the network.
func (m *Manager) build() (any, error) {
	m.mu.Lock()
	if m.db != nil {
		db := m.db
		m.mu.Unlock()
		return db, nil
	}
	m.mu.Unlock()

	cfg := m.load().withDefaults()
	db, driver, err := m.open(cfg)
	if err != nil {
		m.log.Error("failed to build connection pool", zap.Error(err))
		return nil, err
	}

	m.mu.Lock()
	m.db, m.cfg, m.driver = db, cfg, driver
	m.openCount++
	m.mu.Unlock()
	return db, nil
}

func (m *Manager) open(cfg Config) (*gorm.DB, string, error) {
	if cfg.ConnectionString == "" {
		return nil, "", fmt.Errorf("%w: SQL_CONNECTION_STRING is not set", ErrConfiguration)
	}

	dialector, driver, err := dialectorFor(cfg.ConnectionString)
	if err != nil {
		return nil, "", err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 m.gormLog,
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to open %s: %w", ErrConfiguration, driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to get sql.DB: %w", ErrConfiguration, err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	// Idle capacity covers every open connection so a burst does not close
	// and redial. MinIdleConns is honoured at warm-up only; database/sql has
	// no idle floor and the idle timeout may drain the pool below it later.
	sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxIdleTime(cfg.IdleTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, "", fmt.Errorf("%w: %s unreachable: %w", ErrConfiguration, driver, err)
	}

	if cfg.AutoMigrate {
		if err := Migrate(db); err != nil {
			sqlDB.Close() //nolint:errcheck
			return nil, "", fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	warm(ctx, sqlDB, cfg.MinIdleConns)

	m.log.Info("connection pool ready",
		zap.String("driver", driver),
		zap.Int("max_open", cfg.MaxOpenConns),
		zap.Int("min_idle", cfg.MinIdleConns),
		zap.Duration("connect_timeout", cfg.ConnectTimeout),
		zap.Duration("idle_timeout", cfg.IdleTimeout),
	)
	return db, driver, nil
}

// warm opens n connections and hands them back so they sit idle in the pool.
func warm(ctx context.Context, sqlDB *sql.DB, n int) {
	conns := make([]*sql.Conn, 0, n)
	for i := 0; i < n; i++ {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			break
		}
		conns = append(conns, conn)
	}
	for _, conn := range conns {
		conn.Close() //nolint:errcheck
	}
}

// WithConn borrows one connection from the pool for the duration of fn and
// returns it on every exit path. Borrowing waits at most the connect timeout;
// after that ErrPoolExhausted is returned and fn is not called.
func (m *Manager) WithConn(ctx context.Context, fn func(conn *gorm.DB) error) error {
	db, err := m.dbContext(ctx)
	if err != nil {
		return err
	}

	timeout := m.connectTimeout()
	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	acquired := false
	err = db.WithContext(acquireCtx).Connection(func(conn *gorm.DB) error {
		acquired = true
		return fn(conn.WithContext(ctx))
	})
	if err != nil && !acquired {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: no connection within %s", ErrPoolExhausted, timeout)
		}
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	return err
}

func (m *Manager) connectTimeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.ConnectTimeout
}

// Driver returns the driver of the built pool, or "" before the first build.
func (m *Manager) Driver() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.driver
}

// Stats reports pool statistics. ok is false until the pool exists.
func (m *Manager) Stats() (stats sql.DBStats, ok bool) {
	m.mu.Lock()
	db := m.db
	m.mu.Unlock()

	if db == nil {
		return sql.DBStats{}, false
	}
	sqlDB, err := db.DB()
	if err != nil {
		return sql.DBStats{}, false
	}
	return sqlDB.Stats(), true
}

// Close releases the pool at process exit. It is safe to call before the
// pool was built.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	m.db = nil
	return sqlDB.Close()
}

// Migrate creates the readings table when it does not exist. Deployments
// normally provision the schema themselves; this is for local runs.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ReadingRecord{}); err != nil {
		return fmt.Errorf("failed to migrate readings table: %w", err)
	}
	return nil
}
