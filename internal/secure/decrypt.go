// Package secure is the opaque credential decryption collaborator
// (SPEC_FULL.md §6.2). Credential at-rest encryption itself is out of
// scope for the engine; this package only defines the
// Decrypt(opaque) -> plain contract the Scanner calls before dialing a
// target.
package secure

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const tagPrefix = "enc:v1:"

// Decryptor decrypts opaque password material using a fixed 32-byte key.
// The core treats the opaque string purely as a token; it never inspects
// its structure beyond the tag prefix.
type Decryptor struct {
	key [32]byte
}

// NewDecryptor builds a Decryptor from a 32-byte key (e.g. loaded from the
// JWT/encryption section of config). Shorter keys are zero-padded, longer
// keys are truncated — callers are expected to supply exactly 32 bytes in
// production.
func NewDecryptor(key []byte) *Decryptor {
	var k [32]byte
	copy(k[:], key)
	return &Decryptor{key: k}
}

// Decrypt returns the plain password for an opaque, tag-prefixed value. A
// value without the tag prefix is returned unchanged, matching the
// teacher's "actual application should encrypt storage" stub semantics —
// this package upgrades that stub into a real (if self-contained) cipher.
func (d *Decryptor) Decrypt(opaque string) (string, error) {
	if !strings.HasPrefix(opaque, tagPrefix) {
		return opaque, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(opaque, tagPrefix))
	if err != nil {
		return "", fmt.Errorf("secure: decode: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("secure: ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &d.key)
	if !ok {
		return "", fmt.Errorf("secure: decryption failed")
	}
	return string(plain), nil
}

// Encrypt is provided for symmetry (seeding test fixtures and the
// operational CLI's credential-import path); the engine itself only ever
// calls Decrypt.
func (d *Decryptor) Encrypt(plain string, nonce [24]byte) string {
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &d.key)
	return tagPrefix + base64.StdEncoding.EncodeToString(sealed)
}
