package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/memebox/internal/config"
	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/store"
)

// MaxBackupBytes caps how much of a backup file Restore will read.
const MaxBackupBytes int64 = 32 * 1024 * 1024

// RestoreMode controls how a backup is combined with the current data.
type RestoreMode string

const (
	RestoreModeReplace RestoreMode = "replace" // discard current durable data
	RestoreModeMerge   RestoreMode = "merge"   // upsert memes by id, union histories
)

// RestoreInput contains parameters for the Restore operation.
type RestoreInput struct {
	Path string      // required
	Mode RestoreMode // default: merge
}

// RestoreOutput contains the result of the Restore operation.
type RestoreOutput struct {
	Mode          RestoreMode `json:"mode"`
	Restored      int         `json:"restored"`
	SavedMemes    int         `json:"saved_memes"`
	RecentImages  int         `json:"recent_images"`
	ExportHistory int         `json:"export_history"`
}

// Restore reads a backup written by Backup and loads it into the store.
// The working meme, selection and notifications are not touched.
func Restore(ctx context.Context, st *store.Store, cfg *config.Config, input RestoreInput) (*RestoreOutput, error) {
	if input.Mode == "" {
		input.Mode = RestoreModeMerge
	}
	if input.Mode != RestoreModeReplace && input.Mode != RestoreModeMerge {
		return nil, errors.NewInvalidRequest("mode must be one of: replace, merge")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	backup, err := readBackup(input.Path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	next := st.Do("restore_"+string(input.Mode), true, func(env store.Env, s store.State) store.State {
		if input.Mode == RestoreModeReplace {
			return store.Hydrate(env, s, backup.Snapshot)
		}
		return store.MergeSnapshot(env, s, backup.Snapshot)
	})

	return &RestoreOutput{
		Mode:          input.Mode,
		Restored:      len(backup.SavedMemes),
		SavedMemes:    len(next.SavedMemes),
		RecentImages:  len(next.RecentImages),
		ExportHistory: len(next.ExportHistory),
	}, nil
}

func readBackup(path string) (*BackupFile, error) {
	file, err := openFileNoFollowRead(path)
	if err != nil {
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open backup file: %w", err))
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if info.Size() > MaxBackupBytes {
		return nil, errors.NewFileTooLarge(MaxBackupBytes, info.Size())
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxBackupBytes+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if int64(len(data)) > MaxBackupBytes {
		return nil, errors.NewFileTooLarge(MaxBackupBytes, int64(len(data)))
	}

	var backup BackupFile
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid backup file: %v", err))
	}
	if !backup.MemeboxBackup {
		return nil, errors.NewInvalidRequest("not a memebox backup file")
	}

	// Re-decode through the snapshot codec for its version check.
	snap, err := store.DecodeSnapshot(data)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	backup.Snapshot = snap
	return &backup, nil
}
