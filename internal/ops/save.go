package ops

import (
	"time"

	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	Name string // required
}

// SaveOutput contains the result of the Save operation.
type SaveOutput struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Created   bool      `json:"created"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Save names the working meme and upserts it into the saved memes.
func Save(st *store.Store, input SaveInput) (*SaveOutput, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}

	var existed bool
	next := st.Do("save_meme", true, func(env store.Env, s store.State) store.State {
		existed = s.SavedIndex(s.CurrentMeme.ID) >= 0
		return store.SaveMeme(env, s, name)
	})

	m := next.CurrentMeme
	return &SaveOutput{ID: m.ID, Name: m.Name, Created: !existed, UpdatedAt: m.UpdatedAt}, nil
}

// LoadInput contains parameters for the Load operation.
type LoadInput struct {
	ID string
}

// Load makes a copy of a saved meme the working meme.
func Load(st *store.Store, input LoadInput) (*meme.Meme, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}
	var found bool
	next := st.Do("load_meme", false, func(env store.Env, s store.State) store.State {
		found = s.SavedIndex(id) >= 0
		return store.LoadMeme(env, s, id)
	})
	if !found {
		return nil, errors.NewNotFound("meme", id)
	}
	return next.CurrentMeme, nil
}
