package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/domain/session"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/infrastructure/crypto"
	apperrors "github.com/Livingbruce/nextstep-mentorship-sub001/pkg/errors"
)

// Store persists the session snapshot as a single encrypted file.
// Writes go through a temp file and rename so a crash mid-write never
// leaves a half-written snapshot behind.
type Store struct {
	mu     sync.Mutex
	path   string
	sealer *crypto.Sealer
}

// NewStore creates a snapshot store at the given path.
func NewStore(path string, sealer *crypto.Sealer) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &Store{
		path:   path,
		sealer: sealer,
	}, nil
}

// Load reads and decrypts the persisted snapshot. A corrupt or
// undecryptable file is cleared and reported as ErrSnapshotCorrupt.
func (s *Store) Load() (*session.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	plaintext, err := s.sealer.Open(data)
	if err != nil {
		_ = os.Remove(s.path)
		return nil, apperrors.ErrSnapshotCorrupt
	}

	sn, err := session.ParseSnapshot(plaintext)
	if err != nil {
		_ = os.Remove(s.path)
		return nil, apperrors.ErrSnapshotCorrupt
	}

	return sn, nil
}

// Save encrypts and atomically writes the snapshot.
func (s *Store) Save(sn *session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := sn.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	sealed, err := s.sealer.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("failed to seal snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	return nil
}

// Clear removes the persisted snapshot.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}
