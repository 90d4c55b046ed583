// Package cryptox holds the cryptographic primitives used by the artifact
// store: AES-256-GCM sealing of payloads and keys, argon2id password hashes,
// and HKDF derivation of the key-encryption key.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/qrshare/qrshare/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// NonceSize is the AES-GCM nonce length prepended to every sealed blob.
	NonceSize = 12

	// TagSize is the GCM authentication tag length.
	TagSize = 16

	// MinSealedSize is nonce + tag; anything shorter cannot be a sealed blob.
	MinSealedSize = NonceSize + TagSize
)

// argon2id parameters for artifact passwords.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

var (
	// ErrMalformed is returned when sealed data is too short to contain a
	// nonce and tag.
	ErrMalformed = errors.New("cryptox: malformed ciphertext")

	// ErrInvalidHash is returned when a stored password hash cannot be parsed.
	ErrInvalidHash = errors.New("cryptox: invalid password hash")
)

// NewKey returns a fresh random AES-256 key.
func NewKey() []byte {
	return common.GenerateRandByteArray(common.KeySize)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext under key with AES-GCM and returns
// nonce || ciphertext || tag. A new random nonce is drawn for each call.
// additionalData is authenticated but not encrypted; pass the artifact id to
// bind the ciphertext to it.
func Seal(key, plaintext, additionalData []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return aesgcm.Seal(nonce, nonce, plaintext, additionalData), nil
}

// Open reverses Seal. Any tampering with the nonce, ciphertext, tag or
// additional data makes it fail with common.ErrCorrupt.
func Open(key, sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < MinSealedSize {
		return nil, fmt.Errorf("%w: %w", common.ErrCorrupt, ErrMalformed)
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, sealed[:NonceSize], sealed[NonceSize:], additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrCorrupt, err)
	}
	return plaintext, nil
}

// DeriveKEK expands a configured master secret into a 32-byte key-encryption
// key with HKDF-SHA256. The info string scopes the key to its purpose.
func DeriveKEK(secret []byte, info string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("cryptox: empty master secret")
	}
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	kek := make([]byte, common.KeySize)
	if _, err := io.ReadFull(r, kek); err != nil {
		return nil, fmt.Errorf("cryptox: hkdf: %w", err)
	}
	return kek, nil
}

// HashPassword returns an argon2id hash of password in the encoded form
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
//
// with a fresh random salt. The encoding carries its own parameters so they
// can be raised later without invalidating stored hashes.
func HashPassword(password []byte) string {
	salt := common.GenerateRandByteArray(argonSaltLen)
	sum := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum))
}

// VerifyPassword reports whether password matches an encoded hash produced
// by HashPassword. The final comparison is constant time.
func VerifyPassword(encoded string, password []byte) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrInvalidHash
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrInvalidHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey(password, salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
