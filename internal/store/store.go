package store

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/memebox/internal/meme"
)

// DefaultStorageKey names the durable snapshot when no key is configured.
const DefaultStorageKey = "meme-store"

// maxPersistAttempts bounds how often a durable transition is replayed on top
// of a snapshot written by another store sharing the same persister.
const maxPersistAttempts = 3

// ErrStaleSnapshot is returned by Persister.Save when the stored revision no
// longer matches the one the caller last read.
var ErrStaleSnapshot = stderrors.New("snapshot changed since it was last read")

// Persister reads and writes the serialized durable snapshot under a key.
//
// Every successful Save bumps a revision. Load and Revision report 0 when
// nothing has been stored yet. Save must fail with ErrStaleSnapshot when the
// stored revision differs from rev.
type Persister interface {
	Load(ctx context.Context, key string) (data []byte, rev int64, err error)
	Revision(ctx context.Context, key string) (int64, error)
	Save(ctx context.Context, key string, data []byte, rev int64) (int64, error)
}

// Store is the single owned instance of the meme state. Every mutation runs
// under one lock: it reads the prior State, applies one transition and
// publishes the result before the next mutation starts.
//
// Several processes may share one persister. Before each mutation or read the
// store compares the stored revision with the one it last saw and reloads the
// durable subset when another writer moved it.
type Store struct {
	mu        sync.Mutex
	state     State
	env       Env
	persister Persister
	key       string
	log       zerolog.Logger

	rev   int64 // revision of the last snapshot read or written
	dirty bool  // the durable subset has changes the persister has not accepted
}

// Option configures a Store.
type Option func(*Store)

// WithPersister sets where the durable snapshot is written.
// Without one the store is memory-only.
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithStorageKey sets the snapshot key (default DefaultStorageKey).
func WithStorageKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithIDGenerator overrides the ULID generator.
func WithIDGenerator(g meme.IDGenerator) Option {
	return func(s *Store) { s.env.IDs = g }
}

// WithClock overrides time.Now.
func WithClock(now meme.Clock) Option {
	return func(s *Store) { s.env.Now = now }
}

// WithLimits overrides the history caps. Zero fields keep their defaults.
func WithLimits(l Limits) Option {
	return func(s *Store) {
		if l.RecentImages > 0 {
			s.env.Limits.RecentImages = l.RecentImages
		}
		if l.ExportHistory > 0 {
			s.env.Limits.ExportHistory = l.ExportHistory
		}
	}
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New builds a store in its initial state. Call Hydrate to load the durable snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		env: Env{Now: time.Now, Limits: DefaultLimits()},
		key: DefaultStorageKey,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.env = s.env.withDefaults()
	s.state = Initial(s.env)
	return s
}

// Hydrate loads the durable snapshot, replacing saved memes, recent images and
// export history. The working meme, selection and notifications are left as is.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	s.log.Debug().
		Str("key", s.key).
		Int64("revision", s.rev).
		Int("saved_memes", len(s.state.SavedMemes)).
		Int("export_history", len(s.state.ExportHistory)).
		Msg("store hydrated")
	return nil
}

// Flush retries a durable write that previously failed. It is a no-op when
// everything has been persisted, and it never overwrites a snapshot that
// another writer has moved on.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.saveLocked(ctx)
}

// Do runs f as one transition under the store lock, so callers can compose
// several transitions without another caller interleaving. When durable is
// true the result is persisted once. f may run more than once if another
// writer moved the snapshot, so it must only depend on its arguments.
// Do returns a copy of the resulting state.
func (s *Store) Do(op string, durable bool, f func(Env, State) State) State {
	return s.apply(op, durable, f).Clone()
}

// apply runs one transition. Durable transitions are followed by a
// best-effort write; a failed write is logged and memory state is kept.
func (s *Store) apply(op string, durable bool, f func(Env, State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	s.refreshLocked(ctx)

	for attempt := 1; ; attempt++ {
		prev := s.state
		s.state = f(s.env, prev)
		if !durable {
			return s.state
		}

		err := s.saveLocked(ctx)
		if err == nil {
			return s.state
		}
		if stderrors.Is(err, ErrStaleSnapshot) && attempt < maxPersistAttempts {
			next := s.state
			s.state = prev
			if s.syncLocked(ctx) == nil {
				continue
			}
			s.state = next
		}
		s.dirty = true
		s.log.Warn().Err(err).Str("op", op).Str("key", s.key).Msg("failed to persist snapshot")
		return s.state
	}
}

// refreshLocked is syncLocked for callers that carry on with memory state on failure.
func (s *Store) refreshLocked(ctx context.Context) {
	if err := s.syncLocked(ctx); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to refresh snapshot")
	}
}

// syncLocked reloads the durable subset when the stored revision moved.
func (s *Store) syncLocked(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	rev, err := s.persister.Revision(ctx, s.key)
	if err != nil {
		return err
	}
	if rev == s.rev {
		return nil
	}
	if s.dirty {
		s.log.Warn().Str("key", s.key).Int64("revision", rev).Msg("snapshot changed by another writer; dropping unsaved changes")
	}
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	data, rev, err := s.persister.Load(ctx, s.key)
	if err != nil {
		return err
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}
	s.state = Hydrate(s.env, s.state, snap)
	s.rev = rev
	s.dirty = false
	return nil
}

func (s *Store) saveLocked(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	data, err := EncodeSnapshot(s.state.Durable())
	if err != nil {
		return err
	}
	rev, err := s.persister.Save(ctx, s.key, data, s.rev)
	if err != nil {
		return err
	}
	s.rev = rev
	s.dirty = false
	return nil
}

// CreateNewMeme starts a fresh working meme.
func (s *Store) CreateNewMeme() {
	s.apply("create_new_meme", false, CreateNewMeme)
}

// SaveMeme names the working meme and upserts it into the saved memes.
func (s *Store) SaveMeme(name string) {
	s.apply("save_meme", true, func(env Env, st State) State {
		return SaveMeme(env, st, name)
	})
}

// LoadMeme replaces the working meme with a copy of a saved one.
func (s *Store) LoadMeme(id string) {
	s.apply("load_meme", false, func(env Env, st State) State {
		return LoadMeme(env, st, id)
	})
}

// DeleteMeme removes a saved meme and its export records.
func (s *Store) DeleteMeme(id string) {
	s.apply("delete_meme", true, func(env Env, st State) State {
		return DeleteMeme(env, st, id)
	})
}

// DuplicateMeme copies a saved meme, makes the copy current and returns its
// id. It returns "" when id is not a saved meme.
func (s *Store) DuplicateMeme(id string) string {
	var newID string
	s.apply("duplicate_meme", true, func(env Env, st State) State {
		newID = ""
		next := DuplicateMeme(env, st, id)
		if len(next.SavedMemes) > len(st.SavedMemes) {
			newID = next.CurrentMeme.ID
		}
		return next
	})
	return newID
}

// SetImage sets the working meme's background image.
func (s *Store) SetImage(image string) {
	s.apply("set_image", false, func(env Env, st State) State {
		return SetImage(env, st, image)
	})
}

// AddToRecentImages records image as the most recently used.
func (s *Store) AddToRecentImages(image string) {
	s.apply("add_to_recent_images", true, func(env Env, st State) State {
		return AddToRecentImages(env, st, image)
	})
}

// AddTextOverlay adds and selects a new overlay, returning its id.
func (s *Store) AddTextOverlay(in meme.OverlayInput) string {
	next := s.apply("add_text_overlay", false, func(env Env, st State) State {
		return AddTextOverlay(env, st, in)
	})
	return next.SelectedOverlayID
}

// UpdateTextOverlay merges patch into an overlay of the working meme.
func (s *Store) UpdateTextOverlay(id string, patch meme.OverlayPatch) {
	s.apply("update_text_overlay", false, func(env Env, st State) State {
		return UpdateTextOverlay(env, st, id, patch)
	})
}

// DeleteTextOverlay removes an overlay from the working meme.
func (s *Store) DeleteTextOverlay(id string) {
	s.apply("delete_text_overlay", false, func(env Env, st State) State {
		return DeleteTextOverlay(env, st, id)
	})
}

// SelectOverlay selects an overlay; "" clears the selection.
func (s *Store) SelectOverlay(id string) {
	s.apply("select_overlay", false, func(env Env, st State) State {
		return SelectOverlay(env, st, id)
	})
}

// ClearAllOverlays removes every overlay from the working meme.
func (s *Store) ClearAllOverlays() {
	s.apply("clear_all_overlays", false, ClearAllOverlays)
}

// RecordExport logs an export of the working meme.
func (s *Store) RecordExport(format meme.Format) {
	s.apply("record_export", true, func(env Env, st State) State {
		return RecordExport(env, st, format)
	})
}

// AddNotification queues a notification and returns its id.
func (s *Store) AddNotification(message string, kind meme.NotificationKind) string {
	next := s.apply("add_notification", false, func(env Env, st State) State {
		return AddNotification(env, st, message, kind)
	})
	return next.Notifications[len(next.Notifications)-1].ID
}

// RemoveNotification dismisses a notification.
func (s *Store) RemoveNotification(id string) {
	s.apply("remove_notification", false, func(env Env, st State) State {
		return RemoveNotification(env, st, id)
	})
}

// ResetCurrentMeme discards the working meme.
func (s *Store) ResetCurrentMeme() {
	s.apply("reset_current_meme", false, ResetCurrentMeme)
}

// ClearAll wipes every piece of state, durable or not.
func (s *Store) ClearAll() {
	s.apply("clear_all", true, ClearAll)
}

// Snapshot returns the durable subset.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	return s.state.Durable()
}

// State returns a deep copy of the full state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	return s.state.Clone()
}

// Current returns a copy of the working meme.
func (s *Store) Current() *meme.Meme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentMeme.Clone()
}

// SelectedOverlayID returns the selected overlay id, or "".
func (s *Store) SelectedOverlayID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SelectedOverlayID
}

// SavedMeme returns a copy of the saved meme with id.
func (s *Store) SavedMeme(id string) (*meme.Meme, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	i := s.state.SavedIndex(id)
	if i < 0 {
		return nil, false
	}
	return s.state.SavedMemes[i].Clone(), true
}

// SavedMemes returns copies of all saved memes in save order.
func (s *Store) SavedMemes() []meme.Meme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	return cloneMemes(s.state.SavedMemes)
}

// RecentImages returns the recent images, most recent first.
func (s *Store) RecentImages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	return append([]string{}, s.state.RecentImages...)
}

// ExportHistory returns the export log, most recent first.
func (s *Store) ExportHistory() []meme.ExportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(context.Background())
	return append([]meme.ExportRecord{}, s.state.ExportHistory...)
}

// Notifications returns pending notifications, oldest first.
func (s *Store) Notifications() []meme.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]meme.Notification{}, s.state.Notifications...)
}
