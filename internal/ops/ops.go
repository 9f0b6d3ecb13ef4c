// Package ops implements the request/response operations shared by the CLI,
// the MCP server and the web gallery. Each operation validates its input,
// drives the store, and reports misses as NOT_FOUND where the store itself
// would silently do nothing.
package ops

import (
	"fmt"
	"strings"

	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

// Pagination and size limits
const (
	DefaultListLimit    = 20
	MaxListLimit        = 100
	DefaultHistoryLimit = 50
	MaxNameChars        = 200
	MaxComposeOverlays  = 50
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// page clamps limit and offset and returns the bounds of the requested page.
func page(limit, offset, total, defaultLimit, maxLimit int) (start, end int, p Pagination) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = max(offset, 0)

	start = min(offset, total)
	end = min(start+limit, total)
	return start, end, Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
		Total:   total,
	}
}

// requireID trims id and rejects it when empty.
func requireID(id, field string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return id, nil
}

// validateName trims name and enforces the length cap. Empty is allowed.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := meme.CountChars(name); n > MaxNameChars {
		return "", errors.NewInvalidRequest(fmt.Sprintf("name exceeds %d characters (got %d)", MaxNameChars, n))
	}
	return name, nil
}

// savedMeme returns the saved meme with id or NOT_FOUND.
func savedMeme(st *store.Store, id string) (*meme.Meme, error) {
	m, ok := st.SavedMeme(id)
	if !ok {
		return nil, errors.NewNotFound("meme", id)
	}
	return m, nil
}
