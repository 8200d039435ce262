package connpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"runtime/pprof"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/yuku/connpool/internal/metrics"
)

// DefaultScriptName is the bootstrap script looked up in Options.Script.
const DefaultScriptName = "database.sql"

// Work is a unit of work run against a pooled connection. The connection is
// returned to the pool when Work returns; it must not be retained.
type Work func(ctx context.Context, conn *sql.Conn) error

// Options configures a Manager.
type Options struct {
	// Name identifies the owner of the pool. Async workers are named
	// "{Name}-{label}-Thread".
	Name string

	// Logger receives a diagnostic for every failure. Defaults to a zap
	// production logger.
	Logger *zap.Logger

	// Script holds the bootstrap script, usually an embed.FS.
	Script fs.FS

	// ScriptName is the path of the bootstrap script within Script.
	// Defaults to DefaultScriptName.
	ScriptName string

	// AsyncLimit bounds the number of async tasks running at once.
	// Defaults to the configured MaxPoolSize.
	AsyncLimit int

	// Registerer receives the pool metrics. Metrics are not registered when nil.
	Registerer prometheus.Registerer
}

// Manager owns one pooled database resource and mediates all access to it.
// A Manager is safe for concurrent use.
type Manager struct {
	name       string
	logger     *zap.Logger
	script     fs.FS
	scriptName string
	asyncLimit int
	metrics    *metrics.Pool

	mu    sync.RWMutex
	state State
	cur   *session // non-nil only in StateReady

	// attempt identifies the Initialize allowed to leave StateInitializing.
	// Initialize and Shutdown both advance it.
	attempt uint64
}

// session is one Ready period of a Manager, from Initialize to Shutdown.
type session struct {
	cfg    *Config
	handle *handle
	sem    *semaphore.Weighted
	tasks  sync.WaitGroup
}

// NewManager creates a Manager in StateUninitialized.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = zap.NewProduction(); err != nil {
			logger = zap.NewNop()
		}
	}

	scriptName := opts.ScriptName
	if scriptName == "" {
		scriptName = DefaultScriptName
	}

	return &Manager{
		name:       opts.Name,
		logger:     logger.Named("connpool").With(zap.String("pool", opts.Name)),
		script:     opts.Script,
		scriptName: scriptName,
		asyncLimit: opts.AsyncLimit,
		metrics:    metrics.NewPool(opts.Registerer, opts.Name),
	}
}

// Initialize opens the pool described by cfg and runs the bootstrap script
// once against a borrowed connection.
//
// It returns nil only when both steps succeed. Any other outcome is an
// *InitError, already logged, and leaves the Manager in StateFailed; the
// caller may retry. ErrAlreadyInitialized is returned while the Manager is
// Ready or another Initialize is running.
//
// If Shutdown is called before Initialize completes, Initialize closes what
// it opened, fails with ReasonAborted and leaves the state to whoever owns
// it now: StateClosed, or the state reached by a later Initialize.
func (m *Manager) Initialize(ctx context.Context, cfg *Config) error {
	m.mu.Lock()
	if !m.state.canInitialize() {
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.attempt++
	attempt := m.attempt
	m.state = StateInitializing
	m.mu.Unlock()

	s, err := m.open(ctx, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()

	if attempt != m.attempt {
		// Shutdown ran while we were opening.
		if s != nil {
			if cerr := s.handle.close(); cerr != nil {
				m.logger.Warn("failed to close connection pool", zap.Error(cerr))
			}
		}
		if err == nil {
			err = &InitError{Reason: ReasonAborted, Err: ErrShutdownDuringInit}
			m.logger.Error("initialization aborted", zap.Error(err))
		}
		m.metrics.Init(false)
		return err
	}

	if err != nil {
		m.state = StateFailed
		m.metrics.Init(false)
		return err
	}

	m.cur = s
	m.state = StateReady
	m.metrics.Init(true)
	return nil
}

// open validates cfg, opens the driver pool and bootstraps the schema.
func (m *Manager) open(ctx context.Context, cfg *Config) (*session, error) {
	if cfg == nil {
		err := &InitError{Reason: ReasonConfiguration, Err: fmt.Errorf("%w: config is required", ErrIncompleteConfig)}
		m.logger.Error("unable to connect to the database", zap.Error(err))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		ierr := &InitError{Reason: ReasonConfiguration, Err: err}
		m.logger.Error("database settings are invalid, unable to connect", zap.Error(err))
		return nil, ierr
	}

	c := cfg.withDefaults()
	log := m.logger.With(zap.String("driver", c.Driver), zap.String("address", c.Address()), zap.String("database", c.Database))

	script, err := m.loadScript()
	if err != nil {
		log.Error("bootstrap script is unavailable, contact the application developer", zap.Error(err))
		return nil, &InitError{Reason: ReasonScriptMissing, Err: err}
	}

	h, err := openers[c.Driver](ctx, c)
	if err != nil {
		log.Error("failed to open connection pool", zap.Error(err))
		return nil, &InitError{Reason: ReasonConnect, Err: err}
	}

	if err := bootstrap(ctx, h.db, c, script); err != nil {
		log.Error("an error occurred during database creation", zap.Error(err))
		if cerr := h.close(); cerr != nil {
			log.Warn("failed to close connection pool", zap.Error(cerr))
		}
		return nil, err
	}

	log.Info("connected to the database", zap.Int("max_pool_size", c.MaxPoolSize))

	limit := m.asyncLimit
	if limit <= 0 {
		limit = c.MaxPoolSize
	}
	return &session{
		cfg:    c,
		handle: h,
		sem:    semaphore.NewWeighted(int64(limit)),
	}, nil
}

// Shutdown releases the pool and moves the Manager to StateClosed. It waits
// for running tasks to finish before closing connections. Called during
// Initialize, it aborts that attempt, which closes its own pool. Shutdown is
// otherwise a no-op unless the Manager is Ready, and is safe to call from
// cleanup paths any number of times.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	switch m.state {
	case StateReady:
	case StateInitializing:
		m.attempt++
		m.state = StateClosed
		m.mu.Unlock()
		return
	default:
		m.mu.Unlock()
		return
	}
	s := m.cur
	m.cur = nil
	m.state = StateClosed
	m.mu.Unlock()

	s.tasks.Wait()
	if err := s.handle.close(); err != nil {
		m.logger.Warn("failed to close connection pool", zap.Error(err))
		return
	}
	m.logger.Info("connection pool closed")
}

// ExecuteSync acquires a connection, runs work with it and returns the
// connection to the pool before returning.
//
// Errors from acquisition or from work are logged with label and are not
// returned. The only error returned is ErrNotInitialized, when the Manager
// is not Ready.
func (m *Manager) ExecuteSync(ctx context.Context, label string, work Work) error {
	s, err := m.begin()
	if err != nil {
		return err
	}
	defer s.tasks.Done()

	m.run(ctx, s, label, "", metrics.ModeSync, work)
	return nil
}

// ExecuteAsync behaves like ExecuteSync but runs work on its own goroutine
// and returns immediately. The goroutine carries the pprof label
// worker={Name}-{label}-Thread. Cancellation of ctx is not propagated to
// the task; its values are.
func (m *Manager) ExecuteAsync(ctx context.Context, label string, work Work) error {
	s, err := m.begin()
	if err != nil {
		return err
	}

	name := m.WorkerName(label)
	ctx = context.WithoutCancel(ctx)
	m.metrics.AsyncInflight.Inc()

	go func() {
		defer s.tasks.Done()
		defer m.metrics.AsyncInflight.Dec()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("panic during database action",
					zap.String("action", label),
					zap.String("worker", name),
					zap.Any("panic", r),
					zap.Stack("stack"))
				m.metrics.Task(metrics.ModeAsync, metrics.OutcomePanic)
			}
		}()

		pprof.Do(ctx, pprof.Labels("worker", name), func(ctx context.Context) {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				m.logger.Error("failed to schedule database action",
					zap.String("action", label), zap.String("worker", name), zap.Error(err))
				m.metrics.Task(metrics.ModeAsync, metrics.OutcomeAcquireFailed)
				return
			}
			defer s.sem.Release(1)

			m.run(ctx, s, label, name, metrics.ModeAsync, work)
		})
	}()

	return nil
}

// begin registers a task on the current session, or fails when not Ready.
func (m *Manager) begin() (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateReady {
		return nil, fmt.Errorf("%w (state: %s)", ErrNotInitialized, m.state)
	}
	m.cur.tasks.Add(1)
	return m.cur, nil
}

// run executes work on a connection borrowed from s. The connection is
// released on every exit path, including a panic in work.
func (m *Manager) run(ctx context.Context, s *session, label, worker, mode string, work Work) {
	log := m.logger.With(zap.String("action", label))
	if worker != "" {
		log = log.With(zap.String("worker", worker))
	}

	conn, err := acquire(ctx, s.handle.db, s.cfg.AcquireTimeout)
	if err != nil {
		log.Error("failed to acquire database connection", zap.Error(err))
		m.metrics.Task(mode, metrics.OutcomeAcquireFailed)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			log.Warn("failed to release database connection", zap.Error(err))
		}
	}()

	if err := work(ctx, conn); err != nil {
		log.Error("error during database action", zap.Error(err))
		m.metrics.Task(mode, metrics.OutcomeFailed)
		return
	}
	m.metrics.Task(mode, metrics.OutcomeSuccess)
}

// WorkerName returns the name given to the async worker running label.
func (m *Manager) WorkerName(label string) string {
	return fmt.Sprintf("%s-%s-Thread", m.name, label)
}

// Name returns the pool owner name.
func (m *Manager) Name() string {
	return m.name
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Stats returns the statistics of the underlying pool, or the zero value
// when the Manager is not Ready.
func (m *Manager) Stats() sql.DBStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateReady {
		return sql.DBStats{}
	}
	return m.cur.handle.db.Stats()
}
