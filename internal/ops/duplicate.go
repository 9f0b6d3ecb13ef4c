package ops

import (
	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/store"
)

// DuplicateInput contains parameters for the Duplicate operation.
type DuplicateInput struct {
	ID string
}

// DuplicateOutput contains the result of the Duplicate operation.
type DuplicateOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SourceID string `json:"source_id"`
}

// Duplicate copies a saved meme under fresh ids. The copy becomes the working meme.
func Duplicate(st *store.Store, input DuplicateInput) (*DuplicateOutput, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}
	if _, err := savedMeme(st, id); err != nil {
		return nil, err
	}

	var found bool
	next := st.Do("duplicate_meme", true, func(env store.Env, s store.State) store.State {
		found = s.SavedIndex(id) >= 0
		return store.DuplicateMeme(env, s, id)
	})
	if !found {
		return nil, errors.NewNotFound("meme", id)
	}

	dup := next.CurrentMeme
	return &DuplicateOutput{
		ID:       dup.ID,
		Name:     dup.Name,
		SourceID: id,
	}, nil
}
