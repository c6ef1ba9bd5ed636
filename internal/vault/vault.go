package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Blob layout: salt || nonce || tag || ciphertext, base64-encoded as one string.
const (
	saltSize   = 16
	nonceSize  = 12
	tagSize    = 16
	keySize    = 32
	iterations = 120000
)

var (
	// ErrEmptySecret is returned when the vault is constructed without key material.
	ErrEmptySecret = errors.New("vault: empty server secret")
	// ErrInvalidBlob is returned when a stored blob cannot be decoded or authenticated.
	ErrInvalidBlob = errors.New("vault: invalid credential blob")
)

// Vault encrypts long-lived third-party credentials at rest. Each encryption
// derives a fresh key from the server secret and a random salt, so key material
// is never reused across blobs.
type Vault struct {
	secret []byte
}

// New constructs a Vault keyed by the server-wide secret.
func New(secret string) (*Vault, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Vault{secret: []byte(secret)}, nil
}

// Encrypt seals plaintext into an opaque base64 blob. Failure here is fatal to
// the caller's operation; plaintext must never be stored as a fallback.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	// gcm.Seal appends the tag; reorder to salt || nonce || tag || ciphertext.
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, saltSize+nonceSize+tagSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. Any decode or authentication
// failure yields ErrInvalidBlob and never partial plaintext.
func (v *Vault) Decrypt(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidBlob
	}
	if len(blob) < saltSize+nonceSize+tagSize {
		return "", ErrInvalidBlob
	}
	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	tag := blob[saltSize+nonceSize : saltSize+nonceSize+tagSize]
	ciphertext := blob[saltSize+nonceSize+tagSize:]

	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}
	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidBlob
	}
	return string(plain), nil
}

func (v *Vault) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(v.secret, salt, iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
