// Blowfish symmetric-key capability for the WON auth layer.
// Sessions own exactly one SymmetricKey; the encryption protocols use it to
// seal and open message payloads and never see the raw key bytes.

package crypt

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/blowfish"
)

// Key size constants.
const (
	// MinKeySize is the smallest key Blowfish accepts, in bytes.
	MinKeySize = 1

	// MaxKeySize is the largest key Blowfish accepts, in bytes.
	MaxKeySize = 56

	// DefaultKeySize is the key size GenerateKey uses when given 0.
	DefaultKeySize = 16

	// blockSize is the Blowfish block size.
	blockSize = blowfish.BlockSize
)

// Errors for symmetric-key operations.
var (
	// ErrInvalidKeySize is returned when a key is outside the 1-56 byte range.
	ErrInvalidKeySize = errors.New("crypt: invalid key size, must be 1-56 bytes")

	// ErrKeyZeroized is returned when using a key after Zeroize.
	ErrKeyZeroized = errors.New("crypt: key has been zeroized")

	// ErrMalformedCiphertext is returned when ciphertext is too short or not
	// block-aligned.
	ErrMalformedCiphertext = errors.New("crypt: malformed ciphertext")

	// ErrBadPadding is returned when decrypted padding fails validation,
	// typically meaning the wrong key was used.
	ErrBadPadding = errors.New("crypt: bad padding")
)

// SymmetricKey is an owned Blowfish key plus its expanded cipher state.
// It is the opaque cryptographic capability attached to authenticated
// sessions. The key bytes never leave the struct; String renders only the
// length and a fingerprint.
//
// A SymmetricKey is safe for concurrent Encrypt/Decrypt calls. Zeroize must
// only be called once no other user remains (the session state guarantees
// this by zeroizing on the last handle drop).
type SymmetricKey struct {
	key    []byte
	cipher *blowfish.Cipher
}

// NewSymmetricKey creates a key from existing key material.
// The material is copied; the caller's slice is not retained.
func NewSymmetricKey(key []byte) (*SymmetricKey, error) {
	if len(key) < MinKeySize || len(key) > MaxKeySize {
		return nil, ErrInvalidKeySize
	}

	c, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}

	k := &SymmetricKey{
		key:    make([]byte, len(key)),
		cipher: c,
	}
	copy(k.key, key)
	return k, nil
}

// GenerateKey creates a new random key of the given size in bytes.
// A size of 0 uses DefaultKeySize.
func GenerateKey(size int) (*SymmetricKey, error) {
	if size == 0 {
		size = DefaultKeySize
	}
	if size < MinKeySize || size > MaxKeySize {
		return nil, ErrInvalidKeySize
	}

	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return NewSymmetricKey(key)
}

// Size returns the key length in bytes.
func (k *SymmetricKey) Size() int {
	return len(k.key)
}

// Encrypt seals plaintext with Blowfish-CBC under a fresh random IV.
// The IV is prepended to the returned ciphertext.
func (k *SymmetricKey) Encrypt(plaintext []byte) ([]byte, error) {
	if k.cipher == nil {
		return nil, ErrKeyZeroized
	}

	padded := pad(plaintext)
	out := make([]byte, blockSize+len(padded))

	iv := out[:blockSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	cipher.NewCBCEncrypter(k.cipher, iv).CryptBlocks(out[blockSize:], padded)
	return out, nil
}

// Decrypt opens ciphertext produced by Encrypt.
// Returns ErrBadPadding if the key does not match (or the data was tampered
// with); callers treat that as "drop the message".
func (k *SymmetricKey) Decrypt(ciphertext []byte) ([]byte, error) {
	if k.cipher == nil {
		return nil, ErrKeyZeroized
	}
	if len(ciphertext) < 2*blockSize || len(ciphertext)%blockSize != 0 {
		return nil, ErrMalformedCiphertext
	}

	iv := ciphertext[:blockSize]
	body := make([]byte, len(ciphertext)-blockSize)
	cipher.NewCBCDecrypter(k.cipher, iv).CryptBlocks(body, ciphertext[blockSize:])

	return unpad(body)
}

// Zeroize clears the key material from memory and invalidates the cipher.
// Any further Encrypt/Decrypt returns ErrKeyZeroized.
func (k *SymmetricKey) Zeroize() {
	for i := range k.key {
		k.key[i] = 0
	}
	k.cipher = nil
}

// String renders the key length and a short fingerprint, never key bytes.
// Safe to include in session dumps and logs.
func (k *SymmetricKey) String() string {
	if k.cipher == nil {
		return "(SymmetricKey: zeroized)"
	}
	sum := sha256.Sum256(k.key)
	return fmt.Sprintf("(SymmetricKey: %d bytes %x)", len(k.key), sum[:4])
}

// pad applies PKCS#7 padding to the Blowfish block size.
func pad(data []byte) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// unpad validates and strips PKCS#7 padding.
func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrBadPadding
	}

	// Constant-time check of all padding bytes.
	var bad byte
	for _, b := range data[len(data)-n:] {
		bad |= b ^ byte(n)
	}
	if subtle.ConstantTimeByteEq(bad, 0) != 1 {
		return nil, ErrBadPadding
	}
	return data[:len(data)-n], nil
}
