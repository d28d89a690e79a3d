package encryption

import (
	"bytes"
	"errors"
	"testing"

	"xdt-go/internal/config"
)

func TestPlainSealer_RoundTrip(t *testing.T) {
	t.Parallel()
	s := NewPlainSealer()
	if err := s.GenerateKeys("pw"); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}

	var sealed bytes.Buffer
	if err := s.Seal(bytes.NewReader([]byte("snapshot")), &sealed); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if !bytes.HasPrefix(sealed.Bytes(), plainHeader) {
		t.Errorf("sealed output = %q, want header prefix", sealed.Bytes())
	}

	opener, err := s.Open("pw")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	var out bytes.Buffer
	if err := opener.Unseal(&sealed, &out); err != nil {
		t.Fatalf("Unseal() error = %v", err)
	}
	if out.String() != "snapshot" {
		t.Errorf("Unseal() = %q, want %q", out.String(), "snapshot")
	}
}

func TestPlainSealer_Errors(t *testing.T) {
	t.Parallel()
	s := NewPlainSealer()

	if err := s.Seal(bytes.NewReader(nil), &bytes.Buffer{}); !errors.Is(err, ErrNoKeys) {
		t.Errorf("Seal() before GenerateKeys error = %v, want %v", err, ErrNoKeys)
	}
	if _, err := s.Open("pw"); !errors.Is(err, ErrNoKeys) {
		t.Errorf("Open() before GenerateKeys error = %v, want %v", err, ErrNoKeys)
	}

	if err := s.GenerateKeys("pw"); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	if _, err := s.Open("nope"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Open() error = %v, want %v", err, ErrWrongPassphrase)
	}

	opener, err := s.Open("pw")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := opener.Unseal(bytes.NewReader([]byte("SQLite format 3")), &bytes.Buffer{}); err == nil {
		t.Error("Unseal() of unsealed data should return error")
	}
}

func TestNewSealerFromConfig(t *testing.T) {
	tests := []struct {
		typ     string
		wantAge bool
		wantErr bool
	}{
		{typ: "", wantAge: true},
		{typ: "age", wantAge: true},
		{typ: "test"},
		{typ: "rot13", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			s, err := NewSealerFromConfig(config.BackupConfig{Type: tt.typ})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSealerFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			_, isAge := s.(*AgeSealer)
			if isAge != tt.wantAge {
				t.Errorf("NewSealerFromConfig(%q) = %T", tt.typ, s)
			}
		})
	}
}
