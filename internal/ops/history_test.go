package ops

import (
	"sync"
	"testing"

	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

func TestRecordExport(t *testing.T) {
	st := newTestStore(t)
	id := compose(t, st, "cat")

	out, err := RecordExport(st, RecordExportInput{Format: " JPG "})
	if err != nil {
		t.Fatalf("RecordExport() error = %v", err)
	}
	if out.Record.Format != meme.FormatJPEG {
		t.Errorf("Format = %q, want jpeg", out.Record.Format)
	}
	if out.Record.MemeID != id || out.Record.MemeName != "cat" {
		t.Errorf("Record = %+v", out.Record)
	}
}

func TestRecordExport_LoadsSavedMeme(t *testing.T) {
	st := newTestStore(t)
	first := compose(t, st, "first")
	compose(t, st, "second")

	out, err := RecordExport(st, RecordExportInput{ID: first, Format: "svg"})
	if err != nil {
		t.Fatalf("RecordExport() error = %v", err)
	}
	if out.Record.MemeID != first {
		t.Errorf("MemeID = %q, want %q", out.Record.MemeID, first)
	}
	if st.Current().ID != first {
		t.Error("exported meme was not loaded as the working meme")
	}
}

func TestRecordExport_Errors(t *testing.T) {
	st := newTestStore(t)

	_, err := RecordExport(st, RecordExportInput{})
	assertCode(t, err, errors.ErrInvalidRequest)

	_, err = RecordExport(st, RecordExportInput{Format: "bmp"})
	assertCode(t, err, errors.ErrInvalidRequest)

	_, err = RecordExport(st, RecordExportInput{ID: "missing", Format: "png"})
	assertCode(t, err, errors.ErrNotFound)

	if len(st.ExportHistory()) != 0 {
		t.Error("failed exports were recorded")
	}
}

func TestHistory(t *testing.T) {
	st := newTestStore(t)
	a := compose(t, st, "a")
	for i := 0; i < 3; i++ {
		if _, err := RecordExport(st, RecordExportInput{Format: "png"}); err != nil {
			t.Fatalf("RecordExport() error = %v", err)
		}
	}
	compose(t, st, "b")
	if _, err := RecordExport(st, RecordExportInput{Format: "gif"}); err != nil {
		t.Fatalf("RecordExport() error = %v", err)
	}

	all, err := History(st, HistoryInput{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if all.Pagination.Total != 4 || all.Items[0].Format != meme.FormatGIF {
		t.Errorf("all = %+v", all)
	}

	onlyA, err := History(st, HistoryInput{MemeID: a, Limit: 2})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if onlyA.Pagination.Total != 3 || len(onlyA.Items) != 2 || !onlyA.Pagination.HasMore {
		t.Errorf("onlyA = %+v", onlyA)
	}
	for _, r := range onlyA.Items {
		if r.MemeID != a {
			t.Errorf("record %q belongs to %q", r.ID, r.MemeID)
		}
	}
}

func TestHistory_CappedAtFifty(t *testing.T) {
	st := newTestStore(t)
	compose(t, st, "busy")
	for i := 0; i < 60; i++ {
		if _, err := RecordExport(st, RecordExportInput{Format: "png"}); err != nil {
			t.Fatalf("RecordExport() error = %v", err)
		}
	}

	out, err := History(st, HistoryInput{Limit: 1000})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if out.Pagination.Total != store.DefaultExportHistoryMax || len(out.Items) != store.DefaultExportHistoryMax {
		t.Errorf("Total = %d, len = %d; want %d", out.Pagination.Total, len(out.Items), store.DefaultExportHistoryMax)
	}
}

func TestRecent(t *testing.T) {
	st := newTestStore(t)
	compose(t, st, "a")
	compose(t, st, "b")
	compose(t, st, "a")

	out, err := Recent(st)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(out.Images) != 2 || out.Images[0] != "a.png" || out.Images[1] != "b.png" {
		t.Errorf("Images = %v, want [a.png b.png]", out.Images)
	}
}

func TestRecordExport_ConcurrentWithIDs(t *testing.T) {
	st := newTestStore(t)
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = compose(t, st, "m")
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			out, err := RecordExport(st, RecordExportInput{ID: id, Format: "png"})
			if err != nil {
				t.Errorf("RecordExport(%s) error = %v", id, err)
				return
			}
			if out.Record.MemeID != id {
				t.Errorf("RecordExport(%s) recorded meme %s", id, out.Record.MemeID)
			}
		}(id)
	}
	wg.Wait()

	history := st.ExportHistory()
	if len(history) != len(ids) {
		t.Fatalf("len(ExportHistory) = %d, want %d", len(history), len(ids))
	}
	seen := map[string]bool{}
	for _, r := range history {
		seen[r.MemeID] = true
	}
	if len(seen) != len(ids) {
		t.Errorf("export records cover %d memes, want %d", len(seen), len(ids))
	}
}
