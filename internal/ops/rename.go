package ops

import (
	"time"

	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/store"
)

// RenameInput contains parameters for the Rename operation.
type RenameInput struct {
	ID   string
	Name string
}

// RenameOutput contains the result of the Rename operation.
type RenameOutput struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rename loads a saved meme and saves it again under a new name.
// The renamed meme is left as the working meme.
func Rename(st *store.Store, input RenameInput) (*RenameOutput, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	if _, err := savedMeme(st, id); err != nil {
		return nil, err
	}

	var found bool
	next := st.Do("rename_meme", true, func(env store.Env, s store.State) store.State {
		found = s.SavedIndex(id) >= 0
		if !found {
			return s
		}
		return store.SaveMeme(env, store.LoadMeme(env, s, id), name)
	})
	if !found {
		return nil, errors.NewNotFound("meme", id)
	}

	m := next.CurrentMeme
	return &RenameOutput{ID: m.ID, Name: m.Name, UpdatedAt: m.UpdatedAt}, nil
}
