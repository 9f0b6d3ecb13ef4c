// Package store owns the meme editing state.
//
// State transitions are pure functions: each takes the prior State and returns
// the next one without mutating or aliasing the prior State's slices. Store
// (store.go) wraps them in a single owned instance that persists the durable
// subset after each transition that touches it.
//
// Missing targets (unknown meme or overlay id, no current meme) are silent
// no-ops: the transition returns the prior State unchanged.
package store

import (
	"sort"
	"time"

	"github.com/hpungsan/memebox/internal/meme"
)

// Default caps for the bounded history buffers.
const (
	DefaultRecentImagesMax  = 10
	DefaultExportHistoryMax = 50
)

// Limits bounds the capped buffers.
type Limits struct {
	RecentImages  int
	ExportHistory int
}

// DefaultLimits returns the standard caps.
func DefaultLimits() Limits {
	return Limits{
		RecentImages:  DefaultRecentImagesMax,
		ExportHistory: DefaultExportHistoryMax,
	}
}

// Env carries the side inputs of every transition: id generation, time and caps.
type Env struct {
	IDs    meme.IDGenerator
	Now    meme.Clock
	Limits Limits
}

// State is a complete, consistent snapshot of the store.
type State struct {
	// CurrentMeme is the working copy. Never nil in a State produced by this package.
	CurrentMeme *meme.Meme `json:"current_meme"`

	// SelectedOverlayID is empty when nothing is selected.
	SelectedOverlayID string `json:"selected_overlay_id,omitempty"`

	SavedMemes    []meme.Meme         `json:"saved_memes"`
	RecentImages  []string            `json:"recent_images"`
	ExportHistory []meme.ExportRecord `json:"export_history"`
	Notifications []meme.Notification `json:"notifications"`
}

// Initial returns the state of a freshly initialized store.
func Initial(env Env) State {
	return State{
		CurrentMeme:   newMeme(env),
		SavedMemes:    []meme.Meme{},
		RecentImages:  []string{},
		ExportHistory: []meme.ExportRecord{},
		Notifications: []meme.Notification{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	c.CurrentMeme = s.CurrentMeme.Clone()
	c.SavedMemes = cloneMemes(s.SavedMemes)
	c.RecentImages = append([]string{}, s.RecentImages...)
	c.ExportHistory = append([]meme.ExportRecord{}, s.ExportHistory...)
	c.Notifications = append([]meme.Notification{}, s.Notifications...)
	return c
}

// SavedIndex returns the index of the saved meme with id, or -1.
func (s State) SavedIndex(id string) int {
	for i := range s.SavedMemes {
		if s.SavedMemes[i].ID == id {
			return i
		}
	}
	return -1
}

// CreateNewMeme replaces the current meme with a fresh empty one and clears the selection.
func CreateNewMeme(env Env, s State) State {
	s.CurrentMeme = newMeme(env)
	s.SelectedOverlayID = ""
	return s
}

// SaveMeme stamps the current meme with name and upserts it into SavedMemes.
// An existing id is replaced in place; a new id is appended.
func SaveMeme(env Env, s State, name string) State {
	if s.CurrentMeme == nil {
		return s
	}
	m := s.CurrentMeme.Clone()
	m.Name = name
	m.UpdatedAt = env.Now()

	saved := cloneMemes(s.SavedMemes)
	if i := s.SavedIndex(m.ID); i >= 0 {
		saved[i] = *m.Clone()
	} else {
		saved = append(saved, *m.Clone())
	}

	s.CurrentMeme = m
	s.SavedMemes = saved
	return s
}

// LoadMeme makes a copy of the saved meme with id the current meme.
func LoadMeme(env Env, s State, id string) State {
	i := s.SavedIndex(id)
	if i < 0 {
		return s
	}
	s.CurrentMeme = s.SavedMemes[i].Clone()
	s.SelectedOverlayID = ""
	return s
}

// DeleteMeme removes a saved meme and every export record that references it.
// If it was the current meme, the current meme is reset to an empty one.
func DeleteMeme(env Env, s State, id string) State {
	i := s.SavedIndex(id)
	if i < 0 {
		return s
	}

	saved := make([]meme.Meme, 0, len(s.SavedMemes)-1)
	for j := range s.SavedMemes {
		if j != i {
			saved = append(saved, *s.SavedMemes[j].Clone())
		}
	}
	s.SavedMemes = saved

	history := make([]meme.ExportRecord, 0, len(s.ExportHistory))
	for _, r := range s.ExportHistory {
		if r.MemeID != id {
			history = append(history, r)
		}
	}
	s.ExportHistory = history

	if s.CurrentMeme != nil && s.CurrentMeme.ID == id {
		s.CurrentMeme = newMeme(env)
		s.SelectedOverlayID = ""
	}
	return s
}

// DuplicateMeme deep-copies a saved meme under new meme and overlay ids,
// appends the copy to SavedMemes and makes it current.
func DuplicateMeme(env Env, s State, id string) State {
	i := s.SavedIndex(id)
	if i < 0 {
		return s
	}

	now := env.Now()
	dup := s.SavedMemes[i].Clone()
	dup.ID = env.IDs.NewID()
	dup.Name = s.SavedMemes[i].Name + meme.CopySuffix
	dup.CreatedAt = now
	dup.UpdatedAt = now
	for j := range dup.TextOverlays {
		dup.TextOverlays[j].ID = env.IDs.NewID()
	}

	s.SavedMemes = append(cloneMemes(s.SavedMemes), *dup.Clone())
	s.CurrentMeme = dup
	s.SelectedOverlayID = ""
	return s
}

// SetImage sets the background image of the current meme.
func SetImage(env Env, s State, image string) State {
	if s.CurrentMeme == nil {
		return s
	}
	m := s.CurrentMeme.Clone()
	m.Image = image
	m.UpdatedAt = env.Now()
	s.CurrentMeme = m
	return s
}

// AddToRecentImages moves image to the front of RecentImages, dropping any
// earlier occurrence and trimming to the cap.
func AddToRecentImages(env Env, s State, image string) State {
	recent := make([]string, 0, len(s.RecentImages)+1)
	recent = append(recent, image)
	for _, r := range s.RecentImages {
		if r != image {
			recent = append(recent, r)
		}
	}
	if limit := env.Limits.RecentImages; limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	s.RecentImages = recent
	return s
}

// AddTextOverlay appends a new overlay at the default position and selects it.
func AddTextOverlay(env Env, s State, in meme.OverlayInput) State {
	if s.CurrentMeme == nil {
		return s
	}
	o := in.Build(env.IDs.NewID())
	m := s.CurrentMeme.Clone()
	m.TextOverlays = append(m.TextOverlays, o)
	m.UpdatedAt = env.Now()
	s.CurrentMeme = m
	s.SelectedOverlayID = o.ID
	return s
}

// UpdateTextOverlay merges patch into the overlay with id.
func UpdateTextOverlay(env Env, s State, id string, patch meme.OverlayPatch) State {
	if s.CurrentMeme == nil {
		return s
	}
	i := s.CurrentMeme.Overlay(id)
	if i < 0 {
		return s
	}
	m := s.CurrentMeme.Clone()
	m.TextOverlays[i] = patch.Apply(m.TextOverlays[i])
	m.UpdatedAt = env.Now()
	s.CurrentMeme = m
	return s
}

// DeleteTextOverlay removes the overlay with id, clearing the selection if it was selected.
func DeleteTextOverlay(env Env, s State, id string) State {
	if s.CurrentMeme == nil {
		return s
	}
	i := s.CurrentMeme.Overlay(id)
	if i < 0 {
		return s
	}
	m := s.CurrentMeme.Clone()
	m.TextOverlays = append(m.TextOverlays[:i], m.TextOverlays[i+1:]...)
	m.UpdatedAt = env.Now()
	s.CurrentMeme = m
	if s.SelectedOverlayID == id {
		s.SelectedOverlayID = ""
	}
	return s
}

// SelectOverlay sets the selection. An empty id clears it; an id that is not
// an overlay of the current meme is ignored.
func SelectOverlay(env Env, s State, id string) State {
	if id == "" {
		s.SelectedOverlayID = ""
		return s
	}
	if s.CurrentMeme == nil || s.CurrentMeme.Overlay(id) < 0 {
		return s
	}
	s.SelectedOverlayID = id
	return s
}

// ClearAllOverlays removes every overlay from the current meme.
func ClearAllOverlays(env Env, s State) State {
	if s.CurrentMeme == nil {
		return s
	}
	m := s.CurrentMeme.Clone()
	m.TextOverlays = []meme.TextOverlay{}
	m.UpdatedAt = env.Now()
	s.CurrentMeme = m
	s.SelectedOverlayID = ""
	return s
}

// RecordExport prepends an export record for the current meme and trims the
// history to the cap, oldest first.
func RecordExport(env Env, s State, format meme.Format) State {
	if s.CurrentMeme == nil {
		return s
	}
	rec := meme.ExportRecord{
		ID:         env.IDs.NewID(),
		MemeID:     s.CurrentMeme.ID,
		MemeName:   s.CurrentMeme.Name,
		Format:     format,
		ExportedAt: env.Now(),
	}
	history := make([]meme.ExportRecord, 0, len(s.ExportHistory)+1)
	history = append(history, rec)
	history = append(history, s.ExportHistory...)
	if limit := env.Limits.ExportHistory; limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	s.ExportHistory = history
	return s
}

// AddNotification appends a notification with a fresh id.
func AddNotification(env Env, s State, message string, kind meme.NotificationKind) State {
	if kind == "" {
		kind = meme.KindInfo
	}
	n := meme.Notification{
		ID:        env.IDs.NewID(),
		Message:   message,
		Kind:      kind,
		CreatedAt: env.Now(),
	}
	s.Notifications = append(append([]meme.Notification{}, s.Notifications...), n)
	return s
}

// RemoveNotification removes the notification with id.
func RemoveNotification(env Env, s State, id string) State {
	out := make([]meme.Notification, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		if n.ID != id {
			out = append(out, n)
		}
	}
	s.Notifications = out
	return s
}

// ResetCurrentMeme discards the working copy. The durable subset is untouched.
func ResetCurrentMeme(env Env, s State) State {
	return CreateNewMeme(env, s)
}

// ClearAll returns the store to its initial state.
func ClearAll(env Env, _ State) State {
	return Initial(env)
}

// Hydrate replaces the durable subset of s with the snapshot's contents.
// Duplicate saved ids and recent images are dropped so the invariants hold
// even for a hand-edited snapshot.
//
// Export records whose meme is not saved are kept. Exporting an unsaved
// working meme is allowed, and its record looks the same as one for a meme
// that was deleted outside DeleteMeme. DeleteMeme is the only path that
// removes a saved meme, and it purges that meme's records itself.
func Hydrate(env Env, s State, snap Snapshot) State {
	seen := make(map[string]bool, len(snap.SavedMemes))
	saved := make([]meme.Meme, 0, len(snap.SavedMemes))
	for i := range snap.SavedMemes {
		m := snap.SavedMemes[i].Clone()
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		if m.TextOverlays == nil {
			m.TextOverlays = []meme.TextOverlay{}
		}
		saved = append(saved, *m)
	}
	s.SavedMemes = saved

	s.RecentImages = []string{}
	for i := len(snap.RecentImages) - 1; i >= 0; i-- {
		s = AddToRecentImages(env, s, snap.RecentImages[i])
	}

	s.ExportHistory = append([]meme.ExportRecord{}, snap.ExportHistory...)
	if limit := env.Limits.ExportHistory; limit > 0 && len(s.ExportHistory) > limit {
		s.ExportHistory = s.ExportHistory[:limit]
	}
	return s
}

// MergeSnapshot folds snap into the durable subset of s. Incoming saved
// memes replace saved memes with the same id and are appended otherwise.
// Incoming recent images go to the front. Export records are unioned by id
// and kept newest first.
func MergeSnapshot(env Env, s State, snap Snapshot) State {
	saved := cloneMemes(s.SavedMemes)
	for i := range snap.SavedMemes {
		m := snap.SavedMemes[i].Clone()
		if m.TextOverlays == nil {
			m.TextOverlays = []meme.TextOverlay{}
		}
		replaced := false
		for j := range saved {
			if saved[j].ID == m.ID {
				saved[j] = *m
				replaced = true
				break
			}
		}
		if !replaced {
			saved = append(saved, *m)
		}
	}
	s.SavedMemes = saved

	for i := len(snap.RecentImages) - 1; i >= 0; i-- {
		s = AddToRecentImages(env, s, snap.RecentImages[i])
	}

	seen := make(map[string]bool, len(s.ExportHistory)+len(snap.ExportHistory))
	history := make([]meme.ExportRecord, 0, len(s.ExportHistory)+len(snap.ExportHistory))
	for _, r := range append(append([]meme.ExportRecord{}, s.ExportHistory...), snap.ExportHistory...) {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		history = append(history, r)
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].ExportedAt.After(history[j].ExportedAt)
	})
	if limit := env.Limits.ExportHistory; limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	s.ExportHistory = history
	return s
}

func newMeme(env Env) *meme.Meme {
	return meme.New(env.IDs.NewID(), env.Now())
}

func cloneMemes(in []meme.Meme) []meme.Meme {
	out := make([]meme.Meme, len(in))
	for i := range in {
		out[i] = *in[i].Clone()
	}
	return out
}

// withDefaults fills in a clock, id generator and caps where unset.
func (e Env) withDefaults() Env {
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.IDs == nil {
		e.IDs = meme.NewULIDGenerator(e.Now)
	}
	if e.Limits == (Limits{}) {
		e.Limits = DefaultLimits()
	}
	return e
}
