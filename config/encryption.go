package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

// Sealer encrypts small blobs with AES-256-GCM. The key is derived from a
// signature over a fixed message, so the same SSH key always yields the same
// AES key and nothing key-related is written to disk.
type Sealer struct {
	aead cipher.AEAD
}

var errCiphertextTooShort = errors.New("ciphertext too short")

// NewSSHSealer loads the private key at keyPath and derives the sealing key.
func NewSSHSealer(keyPath, passphrase string) (*Sealer, error) {
	signer, err := LoadSSHSigner(keyPath, passphrase)
	if err != nil {
		return nil, err
	}
	key, err := DeriveAESKeyFromSSH(signer)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	return newSealer(key)
}

func newSealer(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead}, nil
}

// Seal returns [nonce][ciphertext+tag].
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, errCiphertextTooShort
	}
	plain, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plain, nil
}

// DeriveAESKeyFromSSH derives a 32-byte key from an SSH signature. Ed25519
// and RSA PKCS#1 v1.5 signatures are deterministic, which this relies on.
func DeriveAESKeyFromSSH(signer ssh.Signer) ([]byte, error) {
	signature, err := signer.Sign(rand.Reader, []byte("hackmate-credential-key-v1"))
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	sum := sha256.Sum256(signature.Blob)
	return sum[:], nil
}
