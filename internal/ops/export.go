package ops

import (
	"strings"

	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

// RecordExportInput contains parameters for the RecordExport operation.
type RecordExportInput struct {
	ID     string // optional; loads this saved meme first, otherwise the working meme is used
	Format string // required: png, jpeg (jpg), webp, gif or svg
}

// RecordExportOutput contains the result of the RecordExport operation.
type RecordExportOutput struct {
	Record meme.ExportRecord `json:"record"`
}

// RecordExport logs an export of a meme. Rendering the image is the caller's job.
func RecordExport(st *store.Store, input RecordExportInput) (*RecordExportOutput, error) {
	if strings.TrimSpace(input.Format) == "" {
		return nil, errors.NewInvalidRequest("format is required")
	}
	format, err := meme.ParseFormat(input.Format)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}

	id := strings.TrimSpace(input.ID)
	if id != "" {
		if _, err := savedMeme(st, id); err != nil {
			return nil, err
		}
	}

	var found bool
	next := st.Do("record_export", true, func(env store.Env, s store.State) store.State {
		found = true
		if id != "" && s.CurrentMeme.ID != id {
			found = s.SavedIndex(id) >= 0
			if !found {
				return s
			}
			s = store.LoadMeme(env, s, id)
		}
		return store.RecordExport(env, s, format)
	})
	if !found {
		return nil, errors.NewNotFound("meme", id)
	}
	if len(next.ExportHistory) == 0 {
		return nil, errors.NewInternal(nil)
	}
	return &RecordExportOutput{Record: next.ExportHistory[0]}, nil
}
