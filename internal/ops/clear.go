package ops

import (
	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/store"
)

// ClearInput contains parameters for the ClearAll operation.
type ClearInput struct {
	Confirm bool // must be true
}

// ClearOutput contains the result of the ClearAll operation.
type ClearOutput struct {
	SavedMemes    int `json:"saved_memes"`
	RecentImages  int `json:"recent_images"`
	ExportHistory int `json:"export_history"`
}

// ClearAll wipes every saved meme, recent image and export record, and resets
// the working meme. The counts report what was removed.
func ClearAll(st *store.Store, input ClearInput) (*ClearOutput, error) {
	if !input.Confirm {
		return nil, errors.NewInvalidRequest("confirm must be true to clear all data")
	}
	var out ClearOutput
	st.Do("clear_all", true, func(env store.Env, s store.State) store.State {
		out = ClearOutput{
			SavedMemes:    len(s.SavedMemes),
			RecentImages:  len(s.RecentImages),
			ExportHistory: len(s.ExportHistory),
		}
		return store.ClearAll(env, s)
	})
	return &out, nil
}
