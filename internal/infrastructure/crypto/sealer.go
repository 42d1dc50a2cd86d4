package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	apperrors "github.com/Livingbruce/nextstep-mentorship-sub001/pkg/errors"
)

const sealerKeyLength = 32 // AES-256

// Sealer encrypts small payloads with AES-256-GCM under a key derived from
// a passphrase. Each sealed blob carries its own salt and nonce, so the
// passphrase is the only state the caller has to keep.
type Sealer struct {
	passphrase string
	hasher     *Argon2Hasher
}

// NewSealer creates a sealer for the given passphrase.
func NewSealer(passphrase string, hasher *Argon2Hasher) *Sealer {
	return &Sealer{
		passphrase: passphrase,
		hasher:     hasher,
	}
}

// Seal encrypts plaintext and returns salt || nonce || ciphertext.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	salt := make([]byte, s.hasher.SaltLength())
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := make([]byte, 0, len(salt)+len(nonce)+len(plaintext)+gcm.Overhead())
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	return gcm.Seal(sealed, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal. Any structural or authentication
// failure is reported as ErrSnapshotCorrupt so callers can treat bad data
// uniformly.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	saltLen := s.hasher.SaltLength()
	if len(sealed) < saltLen {
		return nil, apperrors.ErrSnapshotCorrupt
	}
	salt := sealed[:saltLen]

	gcm, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(sealed) < saltLen+nonceSize {
		return nil, apperrors.ErrSnapshotCorrupt
	}
	nonce := sealed[saltLen : saltLen+nonceSize]
	ciphertext := sealed[saltLen+nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, apperrors.ErrSnapshotCorrupt
	}
	return plaintext, nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := s.hasher.DeriveKey(s.passphrase, salt, sealerKeyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return cipher.NewGCM(block)
}
