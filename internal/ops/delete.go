package ops

import (
	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/store"
)

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	ID string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	ID             string `json:"id"`
	Deleted        bool   `json:"deleted"`
	ExportsRemoved int    `json:"exports_removed"`
	WasCurrent     bool   `json:"was_current"`
}

// Delete removes a saved meme together with its export history.
func Delete(st *store.Store, input DeleteInput) (*DeleteOutput, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}
	if _, err := savedMeme(st, id); err != nil {
		return nil, err
	}

	var found, wasCurrent bool
	var removed int
	st.Do("delete_meme", true, func(env store.Env, s store.State) store.State {
		found = s.SavedIndex(id) >= 0
		removed = len(exportsFor(s.ExportHistory, id))
		wasCurrent = s.CurrentMeme.ID == id
		return store.DeleteMeme(env, s, id)
	})
	if !found {
		return nil, errors.NewNotFound("meme", id)
	}

	return &DeleteOutput{
		ID:             id,
		Deleted:        true,
		ExportsRemoved: removed,
		WasCurrent:     wasCurrent,
	}, nil
}
