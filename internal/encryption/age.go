package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"

	"xdt-go/internal/config"
)

// AgeSealer seals backups with filippo.io/age to an X25519 recipient.
// The public key is stored in plaintext; the private key is encrypted with
// age's scrypt passphrase recipient.
type AgeSealer struct {
	publicKeyPath  string
	privateKeyPath string
}

var _ Sealer = (*AgeSealer)(nil)

func NewAgeSealer(cfg config.BackupConfig) *AgeSealer {
	return &AgeSealer{
		publicKeyPath:  cfg.PublicKeyPath,
		privateKeyPath: cfg.PrivateKeyPath,
	}
}

func (s *AgeSealer) GenerateKeys(passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	for _, p := range []string{s.publicKeyPath, s.privateKeyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	if err := os.WriteFile(s.publicKeyPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing public key: %w", err)
	}

	privFile, err := os.OpenFile(s.privateKeyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating private key file: %w", err)
	}
	defer privFile.Close()

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	w, err := age.Encrypt(privFile, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, identity.String()+"\n"); err != nil {
		return fmt.Errorf("writing encrypted private key: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted private key: %w", err)
	}
	return nil
}

func (s *AgeSealer) HasKeys() bool {
	for _, p := range []string{s.publicKeyPath, s.privateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Seal only needs the public key, so backups can be taken unattended.
func (s *AgeSealer) Seal(r io.Reader, w io.Writer) error {
	recipient, err := s.recipient()
	if err != nil {
		return err
	}

	enc, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(enc, r); err != nil {
		return fmt.Errorf("encrypting backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

func (s *AgeSealer) Open(passphrase string) (Opener, error) {
	privData, err := os.ReadFile(s.privateKeyPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoKeys
		}
		return nil, fmt.Errorf("reading private key file: %w", err)
	}

	scrypt, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	dec, err := age.Decrypt(bytes.NewReader(privData), scrypt)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) || errors.Is(err, age.ErrIncorrectIdentity) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("decrypting private key: %w", err)
	}
	keyData, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted private key: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in private key")
	}
	return &ageOpener{identity: identities[0]}, nil
}

func (s *AgeSealer) recipient() (age.Recipient, error) {
	pubData, err := os.ReadFile(s.publicKeyPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoKeys
		}
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(pubData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in public key file")
	}
	return recipients[0], nil
}

type ageOpener struct {
	identity age.Identity
}

func (o *ageOpener) Unseal(r io.Reader, w io.Writer) error {
	dec, err := age.Decrypt(r, o.identity)
	if err != nil {
		return fmt.Errorf("opening sealed backup: %w", err)
	}
	if _, err := io.Copy(w, dec); err != nil {
		return fmt.Errorf("decrypting backup: %w", err)
	}
	return nil
}
