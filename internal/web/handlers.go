package web

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/ops"
	"github.com/hpungsan/memebox/internal/store"
)

// Handlers contains HTTP route handlers for the gallery.
type Handlers struct {
	st       *store.Store
	log      zerolog.Logger
	renderer *Renderer
}

// HandleList handles GET /memes.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(h.st, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData:   h.renderer.page("Memes", "memes"),
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleDetail handles GET /memes/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Fetch(h.st, ops.FetchInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData:     h.renderer.page(meme.DisplayName(result.Meme), "memes"),
		Meme:         result.Meme,
		Exports:      result.Exports,
		RenderedHTML: renderMarkdown(result.Meme.Markdown()),
	})
}

// HandleDuplicate handles POST /memes/{id}/duplicate.
func (h *Handlers) HandleDuplicate(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Duplicate(h.st, ops.DuplicateInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info().Str("source_id", result.SourceID).Str("id", result.ID).Msg("meme duplicated")

	target := "/memes/" + result.ID
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, result)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// HandleDelete handles DELETE /memes/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("meme id is required"))
		return
	}

	result, err := ops.Delete(h.st, ops.DeleteInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info().Str("id", result.ID).Int("exports_removed", result.ExportsRemoved).Msg("meme deleted")

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/memes")
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/memes", http.StatusSeeOther)
}

// HandleHistory handles GET /history, optionally filtered by ?meme_id=.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	memeID := r.URL.Query().Get("meme_id")
	result, err := ops.History(h.st, ops.HistoryInput{
		MemeID: memeID,
		Limit:  parseIntParam(r, "limit", ops.DefaultHistoryLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "history", HistoryPageData{
		PageData:   h.renderer.page("Export history", "history"),
		Items:      result.Items,
		Pagination: result.Pagination,
		MemeID:     memeID,
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
