package ops

import (
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID string
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	Meme    *meme.Meme          `json:"meme"`
	Exports []meme.ExportRecord `json:"exports"`
}

// Fetch returns a saved meme and its export records, newest first.
func Fetch(st *store.Store, input FetchInput) (*FetchOutput, error) {
	id, err := requireID(input.ID, "id")
	if err != nil {
		return nil, err
	}
	m, err := savedMeme(st, id)
	if err != nil {
		return nil, err
	}
	return &FetchOutput{
		Meme:    m,
		Exports: exportsFor(st.ExportHistory(), id),
	}, nil
}

func exportsFor(history []meme.ExportRecord, memeID string) []meme.ExportRecord {
	out := []meme.ExportRecord{}
	for _, r := range history {
		if r.MemeID == memeID {
			out = append(out, r)
		}
	}
	return out
}
