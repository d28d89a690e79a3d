package encryption

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// plainHeader marks backups written by PlainSealer.
var plainHeader = []byte("XDTBAK\x00\x01")

// PlainSealer frames backups with a fixed header instead of encrypting
// them. The passphrase given to GenerateKeys is remembered so Open can
// reject a wrong one. Intended for tests.
type PlainSealer struct {
	mu         sync.Mutex
	passphrase string
	hasKeys    bool
}

var _ Sealer = (*PlainSealer)(nil)

func NewPlainSealer() *PlainSealer {
	return &PlainSealer{}
}

func (s *PlainSealer) GenerateKeys(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passphrase = passphrase
	s.hasKeys = true
	return nil
}

func (s *PlainSealer) HasKeys() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasKeys
}

func (s *PlainSealer) Seal(r io.Reader, w io.Writer) error {
	if !s.HasKeys() {
		return ErrNoKeys
	}
	if _, err := w.Write(plainHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying backup: %w", err)
	}
	return nil
}

func (s *PlainSealer) Open(passphrase string) (Opener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasKeys {
		return nil, ErrNoKeys
	}
	if passphrase != s.passphrase {
		return nil, ErrWrongPassphrase
	}
	return plainOpener{}, nil
}

type plainOpener struct{}

func (plainOpener) Unseal(r io.Reader, w io.Writer) error {
	header := make([]byte, len(plainHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, plainHeader) {
		return fmt.Errorf("not a sealed backup")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying backup: %w", err)
	}
	return nil
}
