package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/memebox/internal/config"
	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/store"
)

// BackupFile is the on-disk backup format: a marker, a creation time and
// the durable snapshot fields inline.
type BackupFile struct {
	MemeboxBackup bool      `json:"_memebox_backup"`
	CreatedAt     time.Time `json:"created_at"`
	store.Snapshot
}

// BackupInput contains parameters for the Backup operation.
type BackupInput struct {
	Path string // optional, default: ~/.memebox/backups/memebox-<timestamp>.json
}

// BackupOutput contains the result of the Backup operation.
type BackupOutput struct {
	Path          string    `json:"path"`
	SavedMemes    int       `json:"saved_memes"`
	RecentImages  int       `json:"recent_images"`
	ExportHistory int       `json:"export_history"`
	CreatedAt     time.Time `json:"created_at"`
}

// Backup writes the durable snapshot to a JSON file. The file is written to a
// temp name and renamed into place, so an existing backup survives a failure.
func Backup(ctx context.Context, st *store.Store, cfg *config.Config, input BackupInput) (*BackupOutput, error) {
	now := time.Now().UTC()

	path := input.Path
	if path == "" {
		dir, err := DefaultBackupsDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "memebox-"+now.Format("2006-01-02T150405")+BackupExt)
	}
	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	snap := st.Snapshot()
	data, err := json.MarshalIndent(BackupFile{
		MemeboxBackup: true,
		CreatedAt:     now,
		Snapshot:      snap,
	}, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create backup directory: %w", err))
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}

	return &BackupOutput{
		Path:          path,
		SavedMemes:    len(snap.SavedMemes),
		RecentImages:  len(snap.RecentImages),
		ExportHistory: len(snap.ExportHistory),
		CreatedAt:     now,
	}, nil
}

// writeFileAtomic writes data to a random temp file next to path, syncs it and
// renames it over path. The temp file is removed on any failure.
func writeFileAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_EXCL, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create backup file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close backup file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("backup path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		// Windows refuses to rename over an existing file.
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewConflict("backup destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize backup: %w", err))
	}

	success = true
	return nil
}
