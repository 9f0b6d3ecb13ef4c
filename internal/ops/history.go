package ops

import (
	"strings"

	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	MemeID string // optional filter
	Limit  int
	Offset int
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Items      []meme.ExportRecord `json:"items"`
	Pagination Pagination          `json:"pagination"`
}

// History returns export records, most recent first.
func History(st *store.Store, input HistoryInput) (*HistoryOutput, error) {
	records := st.ExportHistory()
	if id := strings.TrimSpace(input.MemeID); id != "" {
		records = exportsFor(records, id)
	}

	start, end, p := page(input.Limit, input.Offset, len(records), DefaultHistoryLimit, store.DefaultExportHistoryMax)
	return &HistoryOutput{
		Items:      append([]meme.ExportRecord{}, records[start:end]...),
		Pagination: p,
	}, nil
}
