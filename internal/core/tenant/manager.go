package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cueclub/pkg/logger"
)

// ManagerConfig configures the multi-club connection manager.
type ManagerConfig struct {
	// Database credentials for club databases
	DBUser     string
	DBPassword string

	// Pool settings (per club)
	MaxConnsPerClub int32
	MinConnsPerClub int32

	// Connection settings
	ConnectTimeout time.Duration

	// Lifecycle settings
	MaxTotalPools     int           // Max simultaneous pools (0 = unlimited)
	PoolIdleTimeout   time.Duration // Close pool after inactivity (0 = never)
	HealthCheckPeriod time.Duration // How often to check pool health
}

// DefaultManagerConfig returns production-safe defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxConnsPerClub:   10,
		MinConnsPerClub:   2,
		ConnectTimeout:    10 * time.Second,
		MaxTotalPools:     100,
		PoolIdleTimeout:   30 * time.Minute,
		HealthCheckPeriod: 1 * time.Minute,
	}
}

// ManagedPool wraps pgxpool.Pool with lifecycle tracking.
type ManagedPool struct {
	pool     *pgxpool.Pool
	club     *Club
	lastUsed atomic.Int64 // Unix timestamp
	refCount atomic.Int32 // Active requests using this pool
	// unhealthySince is set when health check fails (unix timestamp). 0 means healthy/unknown.
	unhealthySince atomic.Int64
}

// Touch updates last used timestamp.
func (mp *ManagedPool) Touch() {
	mp.lastUsed.Store(time.Now().Unix())
}

// Pool returns underlying pgxpool.Pool.
func (mp *ManagedPool) Pool() *pgxpool.Pool {
	return mp.pool
}

// Club returns club info.
func (mp *ManagedPool) Club() *Club {
	return mp.club
}

// AcquireRef increments reference count (for tracking active requests).
func (mp *ManagedPool) AcquireRef() {
	mp.refCount.Add(1)
}

// ReleaseRef decrements reference count.
func (mp *ManagedPool) ReleaseRef() {
	mp.refCount.Add(-1)
}

// Manager manages database connections for multiple clubs.
// Thread-safe for concurrent access.
type Manager struct {
	config   ManagerConfig
	registry Registry

	pools     sync.Map // map[clubID]*ManagedPool
	slugIndex sync.Map // map[slug]clubID
	poolCount atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *logger.Logger
}

// NewManager creates a new multi-club connection manager.
func NewManager(cfg ManagerConfig, registry Registry, log *logger.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:   cfg,
		registry: registry,
		ctx:      ctx,
		cancel:   cancel,
		log:      log.WithComponent("club-manager"),
	}

	// Start background workers
	if cfg.PoolIdleTimeout > 0 {
		m.wg.Add(1)
		go m.evictionLoop()
	}

	if cfg.HealthCheckPeriod > 0 {
		m.wg.Add(1)
		go m.healthCheckLoop()
	}

	m.log.Info("multi-club manager started",
		"max_pools", cfg.MaxTotalPools,
		"idle_timeout", cfg.PoolIdleTimeout,
		"health_check_period", cfg.HealthCheckPeriod,
	)

	return m
}

// GetPool returns database pool for club, creating if needed.
func (m *Manager) GetPool(ctx context.Context, clubID string) (*ManagedPool, error) {
	// Fast path: pool exists
	if val, ok := m.pools.Load(clubID); ok {
		mp := val.(*ManagedPool)
		mp.Touch()
		return mp, nil
	}

	// Slow path: create new pool
	club, err := m.registry.GetByID(ctx, clubID)
	if err != nil {
		if errors.Is(err, ErrClubNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("club lookup failed: %w", err)
	}
	return m.createPool(ctx, club)
}

// GetPoolBySlug resolves a club by slug and returns its pool.
// Used by the per-request tenant middleware.
func (m *Manager) GetPoolBySlug(ctx context.Context, slug string) (*ManagedPool, error) {
	if val, ok := m.slugIndex.Load(slug); ok {
		if mp, ok := m.pools.Load(val.(string)); ok {
			pool := mp.(*ManagedPool)
			pool.Touch()
			return pool, nil
		}
	}

	club, err := m.registry.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrClubNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("club lookup failed: %w", err)
	}
	return m.createPool(ctx, club)
}

// createPool creates a new connection pool for a club.
func (m *Manager) createPool(ctx context.Context, club *Club) (*ManagedPool, error) {
	// Check limits
	if m.config.MaxTotalPools > 0 && int(m.poolCount.Load()) >= m.config.MaxTotalPools {
		return nil, fmt.Errorf("%w (%d)", ErrMaxPoolLimit, m.config.MaxTotalPools)
	}

	if !club.IsActive() {
		return nil, fmt.Errorf("%w: status=%s", ErrClubNotActive, club.Status)
	}

	// Build DSN and create pool config
	dsn := club.DSN(m.config.DBUser, m.config.DBPassword)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn for club %s: %w", club.ID, err)
	}

	poolCfg.MaxConns = m.config.MaxConnsPerClub
	poolCfg.MinConns = m.config.MinConnsPerClub
	poolCfg.HealthCheckPeriod = m.config.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = m.config.ConnectTimeout

	// Create pool with timeout
	createCtx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(createCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool for club %s: %w", club.ID, err)
	}

	// Verify connection
	if err := pool.Ping(createCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping club %s: %w", club.ID, err)
	}

	mp := &ManagedPool{
		pool: pool,
		club: club,
	}
	mp.Touch()

	// Store (handle race condition - another goroutine might have created it)
	actual, loaded := m.pools.LoadOrStore(club.ID, mp)
	if loaded {
		// Another goroutine created pool first, close ours and return theirs
		pool.Close()
		return actual.(*ManagedPool), nil
	}

	m.slugIndex.Store(club.Slug, club.ID)
	m.poolCount.Add(1)
	m.log.Info("created pool for club",
		"club_id", club.ID,
		"db_name", club.DBName,
		"total_pools", m.poolCount.Load(),
	)

	return mp, nil
}

// evictionLoop closes idle pools periodically.
func (m *Manager) evictionLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PoolIdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictIdlePools()
		}
	}
}

// evictIdlePools closes pools that haven't been used recently.
func (m *Manager) evictIdlePools() {
	threshold := time.Now().Add(-m.config.PoolIdleTimeout).Unix()

	m.pools.Range(func(key, value any) bool {
		clubID := key.(string)
		mp := value.(*ManagedPool)

		// Don't evict if actively in use
		if mp.refCount.Load() > 0 {
			return true
		}

		// If pool was marked unhealthy and is not in use, close it ASAP.
		if mp.unhealthySince.Load() > 0 {
			m.closePool(clubID, mp, "unhealthy pool (no active refs)")
			return true
		}

		if mp.lastUsed.Load() < threshold {
			m.closePool(clubID, mp, "idle timeout")
		}

		return true
	})
}

// healthCheckLoop monitors pool health.
func (m *Manager) healthCheckLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.HealthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkPoolsHealth()
		}
	}
}

// checkPoolsHealth pings all pools and closes unhealthy ones.
func (m *Manager) checkPoolsHealth() {
	ctx, cancel := context.WithTimeout(m.ctx, 5*time.Second)
	defer cancel()

	m.pools.Range(func(key, value any) bool {
		clubID := key.(string)
		mp := value.(*ManagedPool)

		if err := mp.pool.Ping(ctx); err != nil {
			if mp.unhealthySince.Load() == 0 {
				mp.unhealthySince.Store(time.Now().Unix())
			}
			m.log.Warn("pool health check failed",
				"club_id", clubID,
				"error", err,
			)
			// Never close pools that are currently used by active requests.
			// Close as soon as refCount reaches zero (see eviction loop).
			if mp.refCount.Load() == 0 {
				m.closePool(clubID, mp, "health check failed")
			}
			return true
		}

		// Healthy again.
		if mp.unhealthySince.Load() != 0 {
			mp.unhealthySince.Store(0)
		}
		return true
	})
}

// closePool safely closes a managed pool.
func (m *Manager) closePool(clubID string, mp *ManagedPool, reason string) {
	m.pools.Delete(clubID)
	m.slugIndex.Delete(mp.club.Slug)
	mp.pool.Close()
	m.poolCount.Add(-1)

	m.log.Info("closed pool",
		"club_id", clubID,
		"reason", reason,
		"total_pools", m.poolCount.Load(),
	)
}

// Close shuts down manager and all pools gracefully.
func (m *Manager) Close() {
	m.log.Info("shutting down multi-club manager...")

	// Stop background workers
	m.cancel()
	m.wg.Wait()

	// Close all pools
	var poolsClosed int
	m.pools.Range(func(key, value any) bool {
		mp := value.(*ManagedPool)
		mp.pool.Close()
		poolsClosed++
		return true
	})

	m.log.Info("multi-club manager closed", "pools_closed", poolsClosed)
}

// GetActiveClubs returns list of all active clubs from registry.
func (m *Manager) GetActiveClubs(ctx context.Context) ([]*Club, error) {
	return m.registry.ListActive(ctx)
}

// GetRegistry returns the club registry.
func (m *Manager) GetRegistry() Registry {
	return m.registry
}

// PrewarmPools creates pools for all active clubs.
// Useful for reducing latency on first requests.
func (m *Manager) PrewarmPools(ctx context.Context) error {
	clubs, err := m.registry.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active clubs: %w", err)
	}

	m.log.Info("prewarming pools", "club_count", len(clubs))

	var wg sync.WaitGroup
	errCh := make(chan error, len(clubs))

	for _, c := range clubs {
		wg.Add(1)
		go func(club *Club) {
			defer wg.Done()

			if _, err := m.GetPool(ctx, club.ID); err != nil {
				errCh <- fmt.Errorf("prewarm %s: %w", club.ID, err)
			}
		}(c)
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		m.log.Warn("some pools failed to prewarm", "error_count", len(errs))
		return errs[0]
	}

	m.log.Info("all pools prewarmed successfully")
	return nil
}
