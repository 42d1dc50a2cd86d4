package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Livingbruce/nextstep-mentorship-sub001/config"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/domain/session"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/domain/user"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/infrastructure/api"
	apperrors "github.com/Livingbruce/nextstep-mentorship-sub001/pkg/errors"
	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/jwt"
	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/logger"
)

// LogoutReason records why a session ended.
type LogoutReason string

const (
	// ReasonUser is an explicit user-initiated logout.
	ReasonUser LogoutReason = "user"
	// ReasonIdle is a forced logout after the inactivity timeout.
	ReasonIdle LogoutReason = "idle"
	// ReasonRevoked is an authoritative 401/403 from the backend.
	ReasonRevoked LogoutReason = "revoked"
	// ReasonExpired is a session whose absolute expiry passed.
	ReasonExpired LogoutReason = "expired"
)

// Backend is the slice of the platform API the session service consumes.
type Backend interface {
	Login(ctx context.Context, identifier, secret string) (*api.LoginResult, error)
	Me(ctx context.Context, token string) (*user.User, error)
}

// SessionService is the single source of truth for the authenticated
// session: who is logged in, with which token, and until when. It owns the
// durable snapshot and is the only writer to it. It is constructed once at
// process start and passed by reference to collaborators.
type SessionService struct {
	backend Backend
	store   session.SnapshotStore
	cfg     *config.Config
	log     logger.Logger
	clock   Clock

	mu      sync.Mutex
	current *session.Session
	loading bool

	onUnauthenticated func()
	subscribers       []func()
}

// NewSessionService creates a session service. The service starts in the
// loading state until Restore makes the initial decision.
func NewSessionService(
	backend Backend,
	store session.SnapshotStore,
	cfg *config.Config,
	log logger.Logger,
	clock Clock,
) *SessionService {
	return &SessionService{
		backend: backend,
		store:   store,
		cfg:     cfg,
		log:     log,
		clock:   clock,
		loading: true,
	}
}

// SetUnauthenticatedHook installs the navigation callback invoked by
// HandleAuthError. Injected rather than global so the core stays free of
// any UI dependency.
func (s *SessionService) SetUnauthenticatedHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnauthenticated = fn
}

// Subscribe registers a change listener. Listeners are invoked after every
// state change, outside the service lock.
func (s *SessionService) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Restore attempts to rebuild the session from the durable snapshot.
//
// The decision is optimistic and synchronous: a present, unexpired snapshot
// makes the session authenticated immediately, before any network traffic.
// Loading is false by the time Restore returns. Revalidation against the
// backend then runs in the background: a fresh user extends the session, an
// authoritative 401/403 tears it down, and a transient failure leaves the
// cached session in place.
func (s *SessionService) Restore(ctx context.Context) {
	s.mu.Lock()

	sn, err := s.store.Load()
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSnapshotCorrupt) {
			s.log.Warn("discarding corrupt session snapshot", logger.Component("session"))
		}
		s.current = nil
		s.loading = false
		s.mu.Unlock()
		s.notify()
		return
	}

	if sn.User == nil || sn.Token == "" {
		_ = s.store.Clear()
		s.current = nil
		s.loading = false
		s.mu.Unlock()
		s.log.Warn("discarding incomplete session snapshot", logger.Component("session"))
		s.notify()
		return
	}

	if sn.IsExpired(s.clock.Now()) {
		_ = s.store.Clear()
		s.current = nil
		s.loading = false
		s.mu.Unlock()
		s.log.Info("persisted session expired, starting logged out",
			logger.Component("session"),
			logger.Reason(string(ReasonExpired)),
		)
		s.notify()
		return
	}

	s.current = sn.ToSession()
	s.loading = false
	token := s.current.Token
	s.mu.Unlock()

	s.log.Info("session restored from snapshot",
		logger.Component("session"),
		logger.UserID(sn.User.ID),
	)
	s.notify()

	go s.revalidate(ctx, token)
}

// revalidate asks the backend who the token belongs to and reconciles the
// optimistic session with the answer. The asymmetry is deliberate: an
// explicit rejection always wins over the cached session, a network failure
// never does.
func (s *SessionService) revalidate(ctx context.Context, token string) {
	u, err := s.backend.Me(ctx, token)

	switch {
	case err == nil:
		s.mu.Lock()
		// A logout or re-login may have raced the network call.
		if s.current == nil || s.current.Token != token {
			s.mu.Unlock()
			return
		}
		s.current.User = u
		s.applyExpiry(s.current)
		if err := s.store.Save(session.NewSnapshot(s.current)); err != nil {
			s.log.Warn("failed to persist revalidated session", logger.Error(err))
		}
		s.mu.Unlock()
		s.log.Debug("session revalidated", logger.Component("session"), logger.UserID(u.ID))
		s.notify()

	case apperrors.IsRevoked(err):
		s.mu.Lock()
		if s.current == nil || s.current.Token != token {
			s.mu.Unlock()
			return
		}
		s.current = nil
		_ = s.store.Clear()
		s.mu.Unlock()
		s.log.Info("session revoked by backend",
			logger.Component("session"),
			logger.Reason(string(ReasonRevoked)),
		)
		s.notify()

	default:
		// Fail open: keep the cached identity until the next opportunity.
		s.log.Warn("session revalidation failed, keeping cached session",
			logger.Component("session"),
			logger.Error(err),
		)
	}
}

// Login authenticates against the backend and establishes the session.
// A rejection is returned to the caller (as *errors.AuthError for backend
// rejections) and leaves any prior session untouched.
func (s *SessionService) Login(ctx context.Context, identifier, secret string) (*user.User, error) {
	result, err := s.backend.Login(ctx, identifier, secret)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	deviceID := ""
	if s.current != nil {
		deviceID = s.current.DeviceID
	}
	if deviceID == "" {
		deviceID = uuid.New().String()
	}

	sess := session.New(result.User, result.Token, deviceID, s.cfg.Session.TTL)
	s.applyExpiry(sess)
	s.current = sess
	s.loading = false

	if err := s.store.Save(session.NewSnapshot(sess)); err != nil {
		// The in-memory session is still good; only the restart path suffers.
		s.log.Warn("failed to persist session snapshot", logger.Error(err))
	}
	s.mu.Unlock()

	s.log.Info("session established",
		logger.Component("session"),
		logger.UserID(result.User.ID),
		logger.DeviceID(deviceID),
	)
	s.notify()

	return result.User, nil
}

// Logout tears down the session and clears the durable snapshot. It is
// idempotent: calling it while logged out still clears storage and is safe.
func (s *SessionService) Logout(reason LogoutReason) {
	s.mu.Lock()
	hadSession := s.current != nil
	s.current = nil
	s.loading = false
	_ = s.store.Clear()
	s.mu.Unlock()

	if hadSession {
		s.log.Info("session ended",
			logger.Component("session"),
			logger.Reason(string(reason)),
		)
	}
	s.notify()
}

// HandleAuthError is the composite used by any collaborator that receives
// a 401/403 from a protected call: silent logout plus redirect to the
// login entry point.
func (s *SessionService) HandleAuthError() {
	s.Logout(ReasonRevoked)

	s.mu.Lock()
	hook := s.onUnauthenticated
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Current returns a copy of the session, or nil when logged out.
func (s *SessionService) Current() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// IsAuthenticated reports whether a valid, unexpired session is active.
func (s *SessionService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.IsValid()
}

// Token returns the bearer token, or empty when logged out.
func (s *SessionService) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Loading reports whether the initial restore decision is still pending.
func (s *SessionService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// applyExpiry sets the session expiry: the configured TTL from now, unless
// the token is a JWT carrying its own exp claim, which is authoritative.
func (s *SessionService) applyExpiry(sess *session.Session) {
	sess.SetExpiry(s.clock.Now().Add(s.cfg.Session.TTL))
	if exp, ok := jwt.PeekExpiry(sess.Token); ok {
		sess.SetExpiry(exp)
	}
}

// notify invokes subscribers outside the lock.
func (s *SessionService) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
