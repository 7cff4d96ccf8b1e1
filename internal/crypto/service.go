// Package crypto implements the symmetric encryption and password hashing
// primitives used to protect PHI fields, stored files, and credentials.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrCryptoFailure wraps any failure inside the encryption primitives.
// Callers must never see partial plaintext; they see this error instead.
var ErrCryptoFailure = errors.New("crypto: operation failed")

// HashCost is the bcrypt work factor. Verification stays tolerant of hashes
// produced under a different cost, so this can be tuned without migrations.
const HashCost = 12

const keyLength = 32

// Service performs AES-256-CBC encryption with a random per-message IV
// prepended to the ciphertext, and bcrypt password hashing.
type Service struct {
	cost int
}

// NewService constructs a Service. A cost of 0 selects HashCost.
func NewService(cost int) *Service {
	if cost <= 0 {
		cost = HashCost
	}
	return &Service{cost: cost}
}

// EncryptString encrypts plaintext with a base64-encoded key and returns a
// base64 blob laid out as [16-byte IV][ciphertext].
func (s *Service) EncryptString(plaintext, key string) (string, error) {
	raw, err := decodeKey(key)
	if err != nil {
		return "", err
	}
	blob, err := encrypt([]byte(plaintext), raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptString reverses EncryptString.
func (s *Service) DecryptString(ciphertext, key string) (string, error) {
	raw, err := decodeKey(key)
	if err != nil {
		return "", err
	}
	blob, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrCryptoFailure, err)
	}
	plain, err := decrypt(blob, raw)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptBytes encrypts a binary payload (file content) and returns the raw
// [16-byte IV][ciphertext] blob.
func (s *Service) EncryptBytes(data []byte, key string) ([]byte, error) {
	raw, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	return encrypt(data, raw)
}

// DecryptBytes reverses EncryptBytes.
func (s *Service) DecryptBytes(blob []byte, key string) ([]byte, error) {
	raw, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	return decrypt(blob, raw)
}

// GenerateKey returns fresh AES-256 key material in base64.
func (s *Service) GenerateKey() (string, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("%w: generate key: %v", ErrCryptoFailure, err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// HashPassword produces a salted bcrypt hash of password.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("%w: hash password: %v", ErrCryptoFailure, err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Malformed hashes
// return false rather than an error, the comparison is constant time.
func (s *Service) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func decodeKey(key string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("%w: decode key: %v", ErrCryptoFailure, err)
	}
	if len(raw) != keyLength {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrCryptoFailure, keyLength, len(raw))
	}
	return raw, nil
}

func encrypt(plain, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	padded := pad(plain, aes.BlockSize)
	blob := make([]byte, aes.BlockSize+len(padded))
	iv := blob[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("%w: generate iv: %v", ErrCryptoFailure, err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(blob[aes.BlockSize:], padded)
	return blob, nil
}

func decrypt(blob, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	if len(blob) < aes.BlockSize || (len(blob)-aes.BlockSize)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext truncated", ErrCryptoFailure)
	}
	iv := blob[:aes.BlockSize]
	body := blob[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	return unpad(plain)
}

// PKCS#7 padding keeps the blob layout byte-compatible with existing stored
// records.
func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext block", ErrCryptoFailure)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("%w: corrupt padding", ErrCryptoFailure)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: corrupt padding", ErrCryptoFailure)
		}
	}
	return data[:len(data)-n], nil
}
