package store

import (
	"encoding/json"
	"fmt"

	"github.com/hpungsan/memebox/internal/meme"
)

// SnapshotVersion is the current durable snapshot format.
// Bump this when the shape changes and teach DecodeSnapshot the old one.
const SnapshotVersion = 1

// Snapshot is the durable subset of State: what survives a restart.
// The working meme, the selection and notifications are never included.
type Snapshot struct {
	Version       int                 `json:"version"`
	SavedMemes    []meme.Meme         `json:"saved_memes"`
	RecentImages  []string            `json:"recent_images"`
	ExportHistory []meme.ExportRecord `json:"export_history"`
}

// Durable extracts the durable subset of s.
func (s State) Durable() Snapshot {
	c := s.Clone()
	return Snapshot{
		Version:       SnapshotVersion,
		SavedMemes:    c.SavedMemes,
		RecentImages:  c.RecentImages,
		ExportHistory: c.ExportHistory,
	}
}

// EncodeSnapshot serializes snap. Times are written as RFC 3339 with nanoseconds.
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	if snap.Version == 0 {
		snap.Version = SnapshotVersion
	}
	if snap.SavedMemes == nil {
		snap.SavedMemes = []meme.Meme{}
	}
	if snap.RecentImages == nil {
		snap.RecentImages = []string{}
	}
	if snap.ExportHistory == nil {
		snap.ExportHistory = []meme.ExportRecord{}
	}
	return json.Marshal(snap)
}

// DecodeSnapshot parses a serialized snapshot. Empty input yields an empty snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	snap := Snapshot{Version: SnapshotVersion}
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version > SnapshotVersion {
		return Snapshot{}, fmt.Errorf("snapshot version %d is newer than supported version %d", snap.Version, SnapshotVersion)
	}
	return snap, nil
}
