package session

import (
	"encoding/json"
	"time"

	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/domain/user"
)

// Session is the in-memory authenticated session. It is owned and mutated
// exclusively by the session service; collaborators read it through copies.
type Session struct {
	User      *user.User
	Token     string
	ExpiresAt time.Time
	DeviceID  string
}

// New creates a session expiring ttl from now.
func New(u *user.User, token string, deviceID string, ttl time.Duration) *Session {
	return &Session{
		User:      u,
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(ttl),
		DeviceID:  deviceID,
	}
}

// IsValid returns true if the session has a user, a token, and has not expired.
func (s *Session) IsValid() bool {
	if s == nil || s.User == nil || s.Token == "" {
		return false
	}
	return time.Now().UTC().Before(s.ExpiresAt)
}

// TimeLeft returns the remaining lifetime, zero if already expired.
func (s *Session) TimeLeft() time.Duration {
	if s == nil {
		return 0
	}
	left := time.Until(s.ExpiresAt)
	if left < 0 {
		return 0
	}
	return left
}

// ExtendExpiry pushes the expiry to ttl from now. Expiry is never pulled
// back: establishment and revalidation both land here.
func (s *Session) ExtendExpiry(ttl time.Duration) {
	s.ExpiresAt = time.Now().UTC().Add(ttl)
}

// SetExpiry pins the expiry to an absolute instant, used when the issued
// token carries its own exp claim.
func (s *Session) SetExpiry(at time.Time) {
	s.ExpiresAt = at.UTC()
}

// Snapshot is the durable on-disk form of a session.
type Snapshot struct {
	Token     string     `json:"token"`
	User      *user.User `json:"user"`
	ExpiresAt int64      `json:"expires_at"` // milliseconds since epoch
	DeviceID  string     `json:"device_id,omitempty"`
	SavedAt   int64      `json:"saved_at"`
}

// NewSnapshot captures the session for persistence.
func NewSnapshot(s *Session) *Snapshot {
	return &Snapshot{
		Token:     s.Token,
		User:      s.User,
		ExpiresAt: s.ExpiresAt.UnixMilli(),
		DeviceID:  s.DeviceID,
		SavedAt:   time.Now().UTC().UnixMilli(),
	}
}

// IsExpired reports whether the snapshot's expiry has passed.
func (sn *Snapshot) IsExpired(now time.Time) bool {
	return now.UnixMilli() >= sn.ExpiresAt
}

// ToSession rebuilds an in-memory session from the snapshot.
func (sn *Snapshot) ToSession() *Session {
	return &Session{
		User:      sn.User,
		Token:     sn.Token,
		ExpiresAt: time.UnixMilli(sn.ExpiresAt).UTC(),
		DeviceID:  sn.DeviceID,
	}
}

// Marshal encodes the snapshot as JSON.
func (sn *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(sn)
}

// ParseSnapshot decodes a JSON snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var sn Snapshot
	if err := json.Unmarshal(data, &sn); err != nil {
		return nil, err
	}
	return &sn, nil
}
