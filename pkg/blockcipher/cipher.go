// Package blockcipher implements the deterministic AES block cipher shared by the
// quiz token and attendance QR protocols. The cipher runs in an IV-free per-block
// mode with PKCS#7 padding, so identical plaintext always produces identical
// ciphertext. That is an accepted weakness of the wire format: payloads already
// carry a nonce, and compatibility with existing clients fixes the mode.
package blockcipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// KeySize is the fixed key length in bytes. Shorter keys are zero-padded,
// longer keys truncated; this exact behaviour is part of the compatibility
// contract and must not change.
const KeySize = 16

var (
	// ErrCiphertextLength indicates input that is not a whole number of blocks.
	ErrCiphertextLength = errors.New("ciphertext is not a multiple of the block size")
	// ErrBadPadding indicates the decrypted payload carried invalid PKCS#7 padding.
	ErrBadPadding = errors.New("invalid padding")
)

// Cipher wraps an AES block primed with a normalized key. Safe for concurrent use.
type Cipher struct {
	block cipher.Block
}

// New builds a Cipher from arbitrary key material.
func New(key []byte) (*Cipher, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("cipher key must not be empty")
	}

	block, err := aes.NewCipher(NormalizeKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise cipher: %w", err)
	}

	return &Cipher{block: block}, nil
}

// NormalizeKey forces key material to exactly KeySize bytes.
func NormalizeKey(key []byte) []byte {
	normalized := make([]byte, KeySize)
	copy(normalized, key)
	return normalized
}

// Encrypt pads the plaintext with PKCS#7 and encrypts it block by block.
func (c *Cipher) Encrypt(plain []byte) ([]byte, error) {
	padded := pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		c.block.Encrypt(out[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}
	return out, nil
}

// Decrypt reverses Encrypt. It fails closed on any structural defect.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrCiphertextLength
	}

	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		c.block.Decrypt(out[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}

	return unpad(out, aes.BlockSize)
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrBadPadding
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrBadPadding
		}
	}

	return data[:len(data)-n], nil
}
