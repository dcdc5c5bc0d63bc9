package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// Store is the state store surface the Manager uses.
type Store interface {
	Get(ctx context.Context, key string) (*domain.Session, error)
	Set(ctx context.Context, key string, sess *domain.Session, ttl time.Duration) (domain.Validation, error)
	Update(ctx context.Context, key string, sess *domain.Session, ttl time.Duration) (domain.Validation, error)
	Delete(ctx context.Context, key string) (domain.Validation, error)
	List(ctx context.Context) ([]string, error)
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager coordinates access to channel sessions.
// Unused lock entries are garbage collected by reference counting.
type Manager struct {
	store Store

	serialize bool
	mu        sync.Mutex
	locks     map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithSerialize enables the in-process per-channel lock.
func WithSerialize() Option {
	return func(m *Manager) {
		m.serialize = true
	}
}

// WithLocker enables distributed locking. It implies WithSerialize.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
		m.serialize = locker != nil || m.serialize
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Serialized reports whether WithLock actually locks.
func (m *Manager) Serialized() bool {
	return m.serialize
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(channelID) after unlocking.
func (m *Manager) acquire(channelID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[channelID]
	if !exists {
		entry = &lockEntry{}
		m.locks[channelID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[channelID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, channelID)
	}
}

// Load returns the session for channelID, creating and persisting the empty
// shell when the channel has never been seen. created reports the latter.
// It does not lock; call it inside WithLock when serialization matters.
func (m *Manager) Load(ctx context.Context, channelID string) (sess *domain.Session, created bool, err error) {
	sess, err = m.store.Get(ctx, channelID)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, false, err
	}

	sess = domain.NewSession(channelID)
	if _, err := m.store.Set(ctx, channelID, sess, 0); err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Save overwrites the stored session.
func (m *Manager) Save(ctx context.Context, sess *domain.Session, ttl time.Duration) (domain.Validation, error) {
	return m.store.Update(ctx, sess.ChannelID, sess, ttl)
}

// ClearFlow removes flow_data and keeps everything else.
func (m *Manager) ClearFlow(ctx context.Context, channelID string) (*domain.Session, error) {
	sess, _, err := m.Load(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if sess.FlowData == nil {
		return sess, nil
	}
	sess.ClearFlow()
	if _, err := m.store.Update(ctx, channelID, sess, 0); err != nil {
		return nil, err
	}
	return sess, nil
}

// ClearAll resets the session to its channel identity.
func (m *Manager) ClearAll(ctx context.Context, channelID string) (*domain.Session, error) {
	sess := domain.NewSession(channelID)
	if _, err := m.store.Update(ctx, channelID, sess, 0); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, channelID string) error {
	_, err := m.store.Delete(ctx, channelID)
	return err
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() Store {
	return m.store
}

// WithLock runs fn while holding the channel's lock. Without serialization it
// just runs fn.
func (m *Manager) WithLock(ctx context.Context, channelID string, fn func(context.Context) error) error {
	if !m.serialize {
		return fn(ctx)
	}

	entry := m.acquire(channelID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(channelID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, channelID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// A fresh context so a cancelled request still releases the lock.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := unlock(releaseCtx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"channel_id", channelID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
