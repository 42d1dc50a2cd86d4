package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Livingbruce/nextstep-mentorship-sub001/config"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/domain/session"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/domain/user"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/infrastructure/api"
	apperrors "github.com/Livingbruce/nextstep-mentorship-sub001/pkg/errors"
	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/jwt"
	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/logger"
)

type fakeBackend struct {
	mu          sync.Mutex
	loginResult *api.LoginResult
	loginErr    error
	meUser      *user.User
	meErr       error
	meCalls     int
	meGate      chan struct{} // when set, Me blocks until the gate closes
}

func (f *fakeBackend) Login(ctx context.Context, identifier, secret string) (*api.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginResult, nil
}

func (f *fakeBackend) Me(ctx context.Context, token string) (*user.User, error) {
	f.mu.Lock()
	gate := f.meGate
	f.meCalls++
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.meErr != nil {
		return nil, f.meErr
	}
	return f.meUser, nil
}

type memStore struct {
	mu     sync.Mutex
	sn     *session.Snapshot
	saves  int
	clears int
}

func (m *memStore) Load() (*session.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sn == nil {
		return nil, apperrors.ErrSnapshotNotFound
	}
	return m.sn, nil
}

func (m *memStore) Save(sn *session.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sn = sn
	m.saves++
	return nil
}

func (m *memStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sn = nil
	m.clears++
	return nil
}

func (m *memStore) snapshot() *session.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sn
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{TTL: time.Hour},
	}
}

func newTestService(backend *fakeBackend, store *memStore) *SessionService {
	return NewSessionService(backend, store, testConfig(), logger.Nop(), SystemClock())
}

func validSnapshot(ttl time.Duration) *session.Snapshot {
	return &session.Snapshot{
		Token:     "t1",
		User:      &user.User{ID: "u1", Email: "counselor@nextstep.dev"},
		ExpiresAt: time.Now().Add(ttl).UnixMilli(),
		DeviceID:  "d1",
		SavedAt:   time.Now().UnixMilli(),
	}
}

func TestRestoreWithoutSnapshotStartsLoggedOut(t *testing.T) {
	backend := &fakeBackend{}
	store := &memStore{}
	svc := newTestService(backend, store)

	require.True(t, svc.Loading())
	svc.Restore(context.Background())

	assert.False(t, svc.Loading())
	assert.False(t, svc.IsAuthenticated())
	assert.Equal(t, 0, backend.meCalls)
}

func TestRestoreExpiredSnapshotClearsWithoutFlash(t *testing.T) {
	backend := &fakeBackend{}
	store := &memStore{sn: validSnapshot(-10 * time.Minute)}
	svc := newTestService(backend, store)

	authedDuringChange := false
	svc.Subscribe(func() {
		if svc.IsAuthenticated() {
			authedDuringChange = true
		}
	})

	svc.Restore(context.Background())

	assert.False(t, svc.IsAuthenticated())
	assert.False(t, authedDuringChange, "expired snapshot must not flash an authenticated state")
	assert.Nil(t, store.snapshot())
	assert.Equal(t, 0, backend.meCalls)
}

func TestRestoreValidSnapshotAuthenticatesBeforeNetwork(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{
		meUser: &user.User{ID: "u1", Email: "counselor@nextstep.dev", Name: "Dana"},
		meGate: gate,
	}
	store := &memStore{sn: validSnapshot(10 * time.Minute)}
	svc := newTestService(backend, store)

	svc.Restore(context.Background())

	// The optimistic decision is synchronous; the network call has not
	// resolved yet.
	require.False(t, svc.Loading())
	require.True(t, svc.IsAuthenticated())
	require.Equal(t, "t1", svc.Token())

	close(gate)

	require.Eventually(t, func() bool {
		current := svc.Current()
		return current != nil && current.User.Name == "Dana"
	}, time.Second, 5*time.Millisecond, "revalidation should refresh the user")

	assert.True(t, svc.IsAuthenticated())
	assert.NotNil(t, store.snapshot())
}

func TestRestoreRevalidationRejectionDropsSession(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{meErr: apperrors.ErrSessionRevoked, meGate: gate}
	store := &memStore{sn: validSnapshot(10 * time.Minute)}
	svc := newTestService(backend, store)

	svc.Restore(context.Background())
	require.True(t, svc.IsAuthenticated())

	close(gate)

	require.Eventually(t, func() bool {
		return !svc.IsAuthenticated()
	}, time.Second, 5*time.Millisecond, "401 on revalidation is authoritative")
	assert.Nil(t, store.snapshot())
}

func TestRestoreRevalidationNetworkErrorFailsOpen(t *testing.T) {
	backend := &fakeBackend{meErr: context.DeadlineExceeded}
	store := &memStore{sn: validSnapshot(10 * time.Minute)}
	svc := newTestService(backend, store)

	svc.Restore(context.Background())

	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.meCalls == 1
	}, time.Second, 5*time.Millisecond)

	// Transient failure keeps the cached identity.
	assert.True(t, svc.IsAuthenticated())
	assert.NotNil(t, store.snapshot())
}

func TestLoginEstablishesSession(t *testing.T) {
	backend := &fakeBackend{
		loginResult: &api.LoginResult{
			Token: "fresh-token",
			User:  &user.User{ID: "u2", Email: "admin@nextstep.dev"},
		},
	}
	store := &memStore{}
	svc := newTestService(backend, store)

	u, err := svc.Login(context.Background(), "admin@nextstep.dev", "admin123")
	require.NoError(t, err)
	require.Equal(t, "u2", u.ID)

	assert.True(t, svc.IsAuthenticated())
	assert.Equal(t, "fresh-token", svc.Token())

	sn := store.snapshot()
	require.NotNil(t, sn)
	assert.Equal(t, "fresh-token", sn.Token)
	assert.NotEmpty(t, sn.DeviceID)

	current := svc.Current()
	assert.WithinDuration(t, time.Now().Add(time.Hour), current.ExpiresAt, 5*time.Second)
}

func TestLoginJWTExpiryWinsOverTTL(t *testing.T) {
	manager := jwt.NewManager("test", []byte("secret"))
	token, err := manager.CreateAccessToken("u2", "admin@nextstep.dev", "", "counselor", false, 30*time.Minute)
	require.NoError(t, err)

	backend := &fakeBackend{
		loginResult: &api.LoginResult{
			Token: token,
			User:  &user.User{ID: "u2", Email: "admin@nextstep.dev"},
		},
	}
	svc := newTestService(backend, &memStore{})

	_, err = svc.Login(context.Background(), "admin@nextstep.dev", "admin123")
	require.NoError(t, err)

	// Configured TTL is 1h; the token says 30m, and the token wins.
	current := svc.Current()
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), current.ExpiresAt, 5*time.Second)
}

func TestLoginRejectionLeavesPriorSessionUntouched(t *testing.T) {
	backend := &fakeBackend{
		loginResult: &api.LoginResult{
			Token: "t-first",
			User:  &user.User{ID: "u1"},
		},
	}
	store := &memStore{}
	svc := newTestService(backend, store)

	_, err := svc.Login(context.Background(), "counselor@nextstep.dev", "counselor123")
	require.NoError(t, err)
	savesBefore := store.saves

	backend.mu.Lock()
	backend.loginErr = apperrors.NewAuthError("invalid_credentials", "invalid email or password", 401)
	backend.mu.Unlock()

	_, err = svc.Login(context.Background(), "counselor@nextstep.dev", "wrong")
	require.Error(t, err)

	var authErr *apperrors.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "invalid_credentials", authErr.Code)

	assert.True(t, svc.IsAuthenticated())
	assert.Equal(t, "t-first", svc.Token())
	assert.Equal(t, savesBefore, store.saves, "a rejected login must not write storage")
}

func TestLogoutIsIdempotentAndClearsEverything(t *testing.T) {
	backend := &fakeBackend{
		loginResult: &api.LoginResult{Token: "t1", User: &user.User{ID: "u1"}},
	}
	store := &memStore{}
	svc := newTestService(backend, store)

	_, err := svc.Login(context.Background(), "counselor@nextstep.dev", "counselor123")
	require.NoError(t, err)

	svc.Logout(ReasonUser)
	assert.False(t, svc.IsAuthenticated())
	assert.Nil(t, svc.Current())
	assert.Empty(t, svc.Token())
	assert.Nil(t, store.snapshot())

	// Second logout while logged out is safe.
	svc.Logout(ReasonUser)
	assert.False(t, svc.IsAuthenticated())
}

func TestHandleAuthErrorLogsOutAndRedirects(t *testing.T) {
	backend := &fakeBackend{
		loginResult: &api.LoginResult{Token: "t1", User: &user.User{ID: "u1"}},
	}
	store := &memStore{}
	svc := newTestService(backend, store)

	redirected := false
	svc.SetUnauthenticatedHook(func() { redirected = true })

	_, err := svc.Login(context.Background(), "counselor@nextstep.dev", "counselor123")
	require.NoError(t, err)

	svc.HandleAuthError()

	assert.False(t, svc.IsAuthenticated())
	assert.Nil(t, store.snapshot())
	assert.True(t, redirected)
}

func TestSubscribersSeeAuthenticationEdges(t *testing.T) {
	backend := &fakeBackend{
		loginResult: &api.LoginResult{Token: "t1", User: &user.User{ID: "u1"}},
	}
	svc := newTestService(backend, &memStore{})

	var states []bool
	svc.Subscribe(func() { states = append(states, svc.IsAuthenticated()) })

	_, err := svc.Login(context.Background(), "counselor@nextstep.dev", "counselor123")
	require.NoError(t, err)
	svc.Logout(ReasonUser)

	require.Len(t, states, 2)
	assert.True(t, states[0])
	assert.False(t, states[1])
}
