package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"xdt-go/internal/config"
	"xdt-go/internal/database"
	"xdt-go/internal/encryption"
)

const backupSuffix = ".db.age"

// SetupBackupKeys generates the backup key pair. Existing keys are kept.
func (a *XDTApp) SetupBackupKeys(passphrase string) error {
	if a.sealer.HasKeys() {
		return fmt.Errorf("backup keys already exist at %s", a.cfg.Backup.PublicKeyPath)
	}
	return a.sealer.GenerateKeys(passphrase)
}

// Backup snapshots the catalog with VACUUM INTO and seals the snapshot
// into the backup directory. It returns the path of the sealed file.
func (a *XDTApp) Backup(ctx context.Context) (string, error) {
	var dest string
	err := a.mutate(ctx, nil, func() error {
		if !a.sealer.HasKeys() {
			return fmt.Errorf("%w: run `xdt backup init` first", encryption.ErrNoKeys)
		}

		tmpDir, err := os.MkdirTemp("", "xdt-backup-*")
		if err != nil {
			return fmt.Errorf("creating temp dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		// VACUUM INTO refuses to overwrite, so the snapshot path must not exist.
		snapshot := filepath.Join(tmpDir, "catalog.db")
		if err := a.db.BackupTo(ctx, snapshot); err != nil {
			return err
		}

		if err := os.MkdirAll(a.cfg.Backup.Dir, 0700); err != nil {
			return fmt.Errorf("creating backup dir: %w", err)
		}
		name := "catalog_" + time.Now().UTC().Format("20060102T150405Z") + backupSuffix
		dest = filepath.Join(a.cfg.Backup.Dir, name)
		if err := sealFile(a.sealer, snapshot, dest); err != nil {
			return err
		}
		a.logger.Info("catalog backed up", "dest", dest)
		return nil
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

// sealFile writes the sealed form of src to dest via a temp file and rename.
func sealFile(sealer encryption.Sealer, src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".xdt-backup-*")
	if err != nil {
		return fmt.Errorf("creating backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := sealer.Seal(in, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("sealing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing backup file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("moving backup into place: %w", err)
	}
	return nil
}

// RestoreCatalog replaces the on-disk catalog with a sealed backup. It
// must run without an open XDTApp. The backup is unsealed next to the
// catalog and checked for a current schema before it replaces anything.
func RestoreCatalog(cfg *config.Config, src, passphrase string) error {
	if cfg.Database.Type != "sqlite" {
		return fmt.Errorf("restore needs a sqlite database, got %q", cfg.Database.Type)
	}
	sealer, err := encryption.NewSealerFromConfig(cfg.Backup)
	if err != nil {
		return err
	}
	opener, err := sealer.Open(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking backup key: %w", err)
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	target := filepath.Join(cfg.Database.DataDir, "catalog.db")
	staged := target + ".restore"
	defer os.Remove(staged)

	if err := unsealFile(opener, src, staged); err != nil {
		return err
	}
	if err := checkCatalog(staged); err != nil {
		return fmt.Errorf("backup is not a usable catalog: %w", err)
	}

	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(target + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", target+suffix, err)
		}
	}
	if err := os.Rename(staged, target); err != nil {
		return fmt.Errorf("replacing catalog: %w", err)
	}
	return nil
}

func unsealFile(opener encryption.Opener, src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening backup: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating restore file: %w", err)
	}
	if err := opener.Unseal(in, out); err != nil {
		out.Close()
		return fmt.Errorf("unsealing backup: %w", err)
	}
	return out.Close()
}

func checkCatalog(path string) error {
	db, err := database.NewSQLiteDatabase(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.CheckMigrations()
}
