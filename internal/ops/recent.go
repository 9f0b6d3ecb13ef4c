package ops

import (
	"github.com/hpungsan/memebox/internal/store"
)

// RecentOutput contains the result of the Recent operation.
type RecentOutput struct {
	Images []string `json:"images"`
}

// Recent returns recently used images, most recent first.
func Recent(st *store.Store) (*RecentOutput, error) {
	return &RecentOutput{Images: st.RecentImages()}, nil
}
