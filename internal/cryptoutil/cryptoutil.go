// Package cryptoutil provides the hashing, ID generation, and
// password-based encryption primitives shared by the audit log and the
// encrypted credential store.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"

	"github.com/tech4242/aquaman-broker/internal/apperror"
)

const (
	saltSize       = 16
	nonceSize      = 12
	keySize        = 32
	pbkdf2Iterations = 600_000
)

// Hash returns the hex-encoded SHA-256 digest of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChainedHash returns hex(sha256(prevHash || data)), the per-record audit
// log hash. prevHash must already be hex-encoded.
func ChainedHash(data []byte, prevHash string) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RandomID returns a fresh UUID v4 string.
func RandomID() string {
	return uuid.NewString()
}

// deriveKey runs PBKDF2-HMAC-SHA256 over password and salt.
func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keySize, sha256.New)
}

// EncryptWithPassword encrypts plaintext under a key derived from password
// via PBKDF2-HMAC-SHA256 (600,000 iterations) with a fresh random salt, then
// seals it with AES-256-GCM under a fresh random nonce. The result is the
// colon-joined base64 tuple "salt:nonce:tag:ciphertext" — the tag is kept
// separate from the ciphertext for readability even though GCM appends it
// to the sealed output internally.
func EncryptWithPassword(plaintext []byte, password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	tag := sealed[len(sealed)-gcm.Overhead():]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, ":"), nil
}

// DecryptWithPassword reverses EncryptWithPassword. It returns
// *apperror.InvalidFormat when the tuple is malformed and
// *apperror.IntegrityFailure when the GCM authentication tag does not
// verify (wrong password or tampered ciphertext).
func DecryptWithPassword(tuple string, password string) ([]byte, error) {
	parts := strings.Split(tuple, ":")
	if len(parts) != 4 {
		return nil, &apperror.InvalidFormat{Reason: fmt.Sprintf("expected 4 colon-separated parts, got %d", len(parts))}
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, &apperror.InvalidFormat{Reason: "salt is not valid base64"}
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, &apperror.InvalidFormat{Reason: "nonce is not valid base64"}
	}
	tag, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, &apperror.InvalidFormat{Reason: "tag is not valid base64"}
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, &apperror.InvalidFormat{Reason: "ciphertext is not valid base64"}
	}

	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &apperror.InvalidFormat{Reason: "deriving cipher: " + err.Error()}
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &apperror.InvalidFormat{Reason: "deriving GCM: " + err.Error()}
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, &apperror.InvalidFormat{Reason: "nonce has wrong length"}
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, &apperror.IntegrityFailure{Reason: "authentication tag mismatch"}
	}
	return plaintext, nil
}
