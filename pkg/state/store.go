package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/ledgerchat/pkg/domain"
	"github.com/aretw0/ledgerchat/pkg/observability"
	"github.com/aretw0/ledgerchat/pkg/ports"
)

// DefaultTTL applies when a caller passes a ttl <= 0.
const DefaultTTL = 300 * time.Second

// Operation names, used as telemetry keys and metric labels.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpUpdate = "update"
	OpDelete = "delete"
)

var opCodes = map[string]string{
	OpGet:    domain.CodeStateGet,
	OpSet:    domain.CodeStateSet,
	OpUpdate: domain.CodeStateUpdate,
	OpDelete: domain.CodeStateDelete,
}

// Store persists sessions in a ports.Cache.
type Store struct {
	cache      ports.Cache
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
	metrics    *observability.Metrics
	check      func(*domain.Session) error

	mu       sync.Mutex
	attempts map[attemptKey]int
}

type attemptKey struct {
	key string
	op  string
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix namespaces every storage key.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithDefaultTTL replaces DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics records every operation.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithCommitCheck runs check on a copy of every session before it is written.
// check may normalize the copy; its error is returned as is and nothing is
// written. See validator.CommitCheck.
func WithCommitCheck(check func(*domain.Session) error) Option {
	return func(s *Store) { s.check = check }
}

// WithClock overrides the time source stamped on telemetry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a Store over cache.
func New(cache ports.Cache, opts ...Option) *Store {
	s := &Store{
		cache:      cache,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		logger:     slog.New(slog.DiscardHandler),
		attempts:   make(map[attemptKey]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache returns the underlying cache.
func (s *Store) Cache() ports.Cache {
	return s.cache
}

// Get loads the session stored under key.
// Returns domain.ErrSessionNotFound when the key is absent or expired; that
// case is not a system error.
func (s *Store) Get(ctx context.Context, key string) (*domain.Session, error) {
	started := s.now()
	raw, err := s.cache.Get(ctx, s.prefix+key)
	if errors.Is(err, domain.ErrSessionNotFound) {
		s.record(key, OpGet)
		s.metrics.StateOp(OpGet, started, nil)
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		_, err = s.fail(key, OpGet, started, err)
		return nil, err
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		_, err = s.fail(key, OpGet, started, fmt.Errorf("failed to decode session: %w", err))
		return nil, err
	}
	v := s.record(key, OpGet)
	sess.Validation = &v
	if sess.ChannelID == "" {
		sess.ChannelID = key
	}
	s.metrics.StateOp(OpGet, started, nil)
	return &sess, nil
}

// Set stores sess under key. A ttl <= 0 selects the default.
// On success sess.Validation holds the returned telemetry.
func (s *Store) Set(ctx context.Context, key string, sess *domain.Session, ttl time.Duration) (domain.Validation, error) {
	return s.write(ctx, OpSet, key, sess, ttl)
}

// Update overwrites the whole value stored under key. It is not a merge:
// fields absent from sess are gone after the call.
func (s *Store) Update(ctx context.Context, key string, sess *domain.Session, ttl time.Duration) (domain.Validation, error) {
	return s.write(ctx, OpUpdate, key, sess, ttl)
}

// Delete removes key. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, key string) (domain.Validation, error) {
	started := s.now()
	if err := s.cache.Delete(ctx, s.prefix+key); err != nil {
		return s.fail(key, OpDelete, started, err)
	}
	s.metrics.StateOp(OpDelete, started, nil)
	return s.record(key, OpDelete), nil
}

// List returns the keys of every live session, prefix removed.
func (s *Store) List(ctx context.Context) ([]string, error) {
	keys, err := s.cache.List(ctx)
	if err != nil {
		return nil, &domain.SystemError{Code: domain.CodeStateGet, Service: domain.ServiceState, Action: "list", Err: err}
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if rest, ok := strings.CutPrefix(k, s.prefix); ok {
			out = append(out, rest)
		}
	}
	return out, nil
}

func (s *Store) write(ctx context.Context, op, key string, sess *domain.Session, ttl time.Duration) (domain.Validation, error) {
	started := s.now()
	if sess == nil {
		err := errors.New("session is nil")
		return s.fail(key, op, started, err)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	doc := *sess
	if s.check != nil {
		if err := s.check(&doc); err != nil {
			s.logger.Warn("session refused", "op", op, "key", key, "error", err)
			return domain.Validation{}, err
		}
	}
	if doc.ChannelID == "" {
		doc.ChannelID = key
	}

	// The attempt is reserved once, so the stored copy and the caller see the
	// same telemetry.
	v := s.record(key, op)
	doc.Validation = &v

	raw, err := json.Marshal(&doc)
	if err != nil {
		return s.failed(v, key, op, started, fmt.Errorf("failed to encode session: %w", err))
	}
	if err := s.cache.Set(ctx, s.prefix+key, raw, ttl); err != nil {
		return s.failed(v, key, op, started, err)
	}

	sess.Profile = doc.Profile
	sess.ChannelID = doc.ChannelID
	sess.Validation = &v
	s.metrics.StateOp(op, started, nil)
	return v, nil
}

func (s *Store) fail(key, op string, started time.Time, err error) (domain.Validation, error) {
	return s.failed(s.record(key, op), key, op, started, err)
}

// failed completes the telemetry v already reserved for this attempt.
func (s *Store) failed(v domain.Validation, key, op string, started time.Time, err error) (domain.Validation, error) {
	msg := err.Error()
	v.Error = &msg
	s.metrics.StateOp(op, started, err)
	s.logger.Error("state operation failed", "op", op, "key", key, "error", err)
	return v, &domain.SystemError{
		Code:    opCodes[op],
		Service: domain.ServiceState,
		Action:  op,
		Err:     err,
	}
}

// record bumps the attempt counter for (key, op) and returns the telemetry.
func (s *Store) record(key, op string) domain.Validation {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := attemptKey{key: key, op: op}
	s.attempts[k]++
	return domain.Validation{
		Attempts:    s.attempts[k],
		LastAttempt: s.now().UTC(),
	}
}
