package encryption

import (
	"fmt"

	"xdt-go/internal/config"
)

// NewSealerFromConfig creates a Sealer based on the backup type.
func NewSealerFromConfig(cfg config.BackupConfig) (Sealer, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeSealer(cfg), nil
	case "test":
		return NewPlainSealer(), nil
	default:
		return nil, fmt.Errorf("unknown backup encryption type: %q", cfg.Type)
	}
}
