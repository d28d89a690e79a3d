// Package encryption seals catalog backups so they can be stored
// alongside the exports they describe without exposing note content.
package encryption

import (
	"errors"
	"io"
)

var (
	// ErrNoKeys is returned when the key pair has not been generated yet.
	ErrNoKeys = errors.New("backup keys not generated")
	// ErrWrongPassphrase is returned when the private key cannot be unlocked.
	ErrWrongPassphrase = errors.New("wrong passphrase")
)

// Sealer encrypts backups to a public key. Unsealing needs the private
// key, which is itself protected by a passphrase.
type Sealer interface {
	// GenerateKeys creates the key pair, protecting the private key with passphrase.
	GenerateKeys(passphrase string) error
	// HasKeys reports whether a key pair is present.
	HasKeys() bool
	Seal(r io.Reader, w io.Writer) error
	// Open unlocks the private key for the duration of a restore.
	Open(passphrase string) (Opener, error)
}

// Opener decrypts sealed backups with an unlocked private key.
type Opener interface {
	Unseal(r io.Reader, w io.Writer) error
}
