package ops

import (
	"sort"

	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []meme.MemeSummary `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"`
}

// List returns saved meme summaries, most recently updated first.
func List(st *store.Store, input ListInput) (*ListOutput, error) {
	saved := st.SavedMemes()
	sort.SliceStable(saved, func(i, j int) bool {
		if !saved[i].UpdatedAt.Equal(saved[j].UpdatedAt) {
			return saved[i].UpdatedAt.After(saved[j].UpdatedAt)
		}
		return saved[i].ID > saved[j].ID
	})

	start, end, p := page(input.Limit, input.Offset, len(saved), DefaultListLimit, MaxListLimit)
	items := make([]meme.MemeSummary, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, saved[i].ToSummary())
	}

	return &ListOutput{
		Items:      items,
		Pagination: p,
		Sort:       "updated_at_desc",
	}, nil
}
