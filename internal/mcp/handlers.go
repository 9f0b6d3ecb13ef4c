package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hpungsan/memebox/internal/config"
	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/ops"
	"github.com/hpungsan/memebox/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	st  *store.Store
	cfg *config.Config
	log zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store, cfg *config.Config, log zerolog.Logger) *Handlers {
	return &Handlers{st: st, cfg: cfg, log: log}
}

// Request types for each tool

// SetImageRequest represents the arguments for meme_set_image.
type SetImageRequest struct {
	Image       string `json:"image"`
	AddToRecent *bool  `json:"add_to_recent,omitempty"`
}

// OverlayUpdateRequest represents the arguments for overlay_update.
type OverlayUpdateRequest struct {
	ID string `json:"id"`
	meme.OverlayPatch
}

// IDRequest represents tools that take a single id.
type IDRequest struct {
	ID string `json:"id"`
}

// NameRequest represents the arguments for meme_save.
type NameRequest struct {
	Name string `json:"name"`
}

// RenameRequest represents the arguments for meme_rename.
type RenameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListRequest represents the arguments for meme_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportRecordRequest represents the arguments for export_record.
type ExportRecordRequest struct {
	Format string `json:"format"`
	ID     string `json:"id,omitempty"`
}

// ExportHistoryRequest represents the arguments for export_history.
type ExportHistoryRequest struct {
	MemeID string `json:"meme_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// NotifyRequest represents the arguments for notify.
type NotifyRequest struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// BackupRequest represents the arguments for store_backup.
type BackupRequest struct {
	Path string `json:"path,omitempty"`
}

// RestoreRequest represents the arguments for store_restore.
type RestoreRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// ClearRequest represents the arguments for store_clear.
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// CurrentOutput describes the working meme.
type CurrentOutput struct {
	Meme              *meme.Meme `json:"meme"`
	SelectedOverlayID string     `json:"selected_overlay_id,omitempty"`
	Saved             bool       `json:"saved"`
}

func (h *Handlers) current() CurrentOutput {
	return currentOf(h.st.State())
}

func currentOf(s store.State) CurrentOutput {
	return CurrentOutput{
		Meme:              s.CurrentMeme,
		SelectedOverlayID: s.SelectedOverlayID,
		Saved:             s.SavedIndex(s.CurrentMeme.ID) >= 0,
	}
}

// findOverlay returns NOT_FOUND unless the working meme in s has an overlay with id.
func findOverlay(s store.State, id string) (meme.TextOverlay, error) {
	i := s.CurrentMeme.Overlay(id)
	if i < 0 {
		return meme.TextOverlay{}, errors.NewNotFound("overlay", id)
	}
	return s.CurrentMeme.TextOverlays[i], nil
}

func overlayID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// HandleNew handles the meme_new tool.
func (h *Handlers) HandleNew(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	next := h.st.Do("create_new_meme", false, store.CreateNewMeme)
	return successResult(currentOf(next))
}

// HandleSetImage handles the meme_set_image tool.
func (h *Handlers) HandleSetImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetImageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	image := strings.TrimSpace(input.Image)
	if image == "" {
		return errorResult(errors.NewInvalidRequest("image is required")), nil
	}

	addToRecent := input.AddToRecent == nil || *input.AddToRecent
	next := h.st.Do("set_image", addToRecent, func(env store.Env, s store.State) store.State {
		s = store.SetImage(env, s, image)
		if addToRecent {
			s = store.AddToRecentImages(env, s, image)
		}
		return s
	})
	return successResult(currentOf(next))
}

// HandleOverlayAdd handles the overlay_add tool.
func (h *Handlers) HandleOverlayAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[meme.OverlayInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Text) == "" {
		return errorResult(errors.NewInvalidRequest("text is required")), nil
	}

	next := h.st.Do("add_text_overlay", false, func(env store.Env, s store.State) store.State {
		return store.AddTextOverlay(env, s, input)
	})
	o, err := findOverlay(next, next.SelectedOverlayID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(o)
}

// HandleOverlayUpdate handles the overlay_update tool.
func (h *Handlers) HandleOverlayUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[OverlayUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id, err := overlayID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	if _, err := findOverlay(h.st.State(), id); err != nil {
		return errorResult(err), nil
	}
	if input.OverlayPatch.IsEmpty() {
		return errorResult(errors.NewInvalidRequest("at least one field to update is required")), nil
	}

	next := h.st.Do("update_text_overlay", false, func(env store.Env, s store.State) store.State {
		return store.UpdateTextOverlay(env, s, id, input.OverlayPatch)
	})
	o, err := findOverlay(next, id)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(o)
}

// HandleOverlayDelete handles the overlay_delete tool.
func (h *Handlers) HandleOverlayDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id, err := overlayID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	var missing error
	h.st.Do("delete_text_overlay", false, func(env store.Env, s store.State) store.State {
		if _, missing = findOverlay(s, id); missing != nil {
			return s
		}
		return store.DeleteTextOverlay(env, s, id)
	})
	if missing != nil {
		return errorResult(missing), nil
	}
	return successResult(map[string]any{"id": id, "deleted": true})
}

// HandleOverlaySelect handles the overlay_select tool. An empty id clears the selection.
func (h *Handlers) HandleOverlaySelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id := strings.TrimSpace(input.ID)

	var missing error
	next := h.st.Do("select_overlay", false, func(env store.Env, s store.State) store.State {
		missing = nil
		if id != "" {
			if _, missing = findOverlay(s, id); missing != nil {
				return s
			}
		}
		return store.SelectOverlay(env, s, id)
	})
	if missing != nil {
		return errorResult(missing), nil
	}
	return successResult(map[string]any{"selected_overlay_id": next.SelectedOverlayID})
}

// HandleOverlayClear handles the overlay_clear tool.
func (h *Handlers) HandleOverlayClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var removed int
	h.st.Do("clear_all_overlays", false, func(env store.Env, s store.State) store.State {
		removed = len(s.CurrentMeme.TextOverlays)
		return store.ClearAllOverlays(env, s)
	})
	return successResult(map[string]any{"removed": removed})
}

// HandleSave handles the meme_save tool.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Save(h.st, ops.SaveInput{Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleLoad handles the meme_load tool.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	m, err := ops.Load(h.st, ops.LoadInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(CurrentOutput{Meme: m, Saved: true})
}

// HandleDelete handles the meme_delete tool.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(h.st, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDuplicate handles the meme_duplicate tool.
func (h *Handlers) HandleDuplicate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Duplicate(h.st, ops.DuplicateInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRename handles the meme_rename tool.
func (h *Handlers) HandleRename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Rename(h.st, ops.RenameInput{ID: input.ID, Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCompose handles the meme_compose tool.
func (h *Handlers) HandleCompose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ops.ComposeInput](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Name) == "" {
		return errorResult(errors.NewInvalidRequest("name is required")), nil
	}

	result, err := ops.Compose(h.st, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCurrent handles the meme_current tool.
func (h *Handlers) HandleCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.current())
}

// HandleFetch handles the meme_fetch tool.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(h.st, ops.FetchInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the meme_list tool.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.st, ops.ListInput{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExportRecord handles the export_record tool.
func (h *Handlers) HandleExportRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRecordRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RecordExport(h.st, ops.RecordExportInput{ID: input.ID, Format: input.Format})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExportHistory handles the export_history tool.
func (h *Handlers) HandleExportHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportHistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(h.st, ops.HistoryInput{
		MemeID: input.MemeID,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecentImages handles the recent_images tool.
func (h *Handlers) HandleRecentImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Recent(h.st)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNotify handles the notify tool.
func (h *Handlers) HandleNotify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NotifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Message) == "" {
		return errorResult(errors.NewInvalidRequest("message is required")), nil
	}
	kind, err := meme.ParseKind(input.Kind)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	next := h.st.Do("add_notification", false, func(env store.Env, s store.State) store.State {
		return store.AddNotification(env, s, input.Message, kind)
	})
	if len(next.Notifications) == 0 {
		return errorResult(errors.NewInternal(nil)), nil
	}
	return successResult(next.Notifications[len(next.Notifications)-1])
}

// HandleNotificationDismiss handles the notification_dismiss tool.
func (h *Handlers) HandleNotificationDismiss(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	var found bool
	h.st.Do("remove_notification", false, func(env store.Env, s store.State) store.State {
		found = false
		for _, n := range s.Notifications {
			if n.ID == id {
				found = true
				break
			}
		}
		return store.RemoveNotification(env, s, id)
	})
	if !found {
		return errorResult(errors.NewNotFound("notification", id)), nil
	}
	return successResult(map[string]any{"id": id, "dismissed": true})
}

// HandleNotificationList handles the notification_list tool.
func (h *Handlers) HandleNotificationList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(map[string]any{"items": h.st.Notifications()})
}

// HandleReset handles the meme_reset tool.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	next := h.st.Do("reset_current_meme", false, store.ResetCurrentMeme)
	return successResult(currentOf(next))
}

// HandleBackup handles the store_backup tool.
func (h *Handlers) HandleBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BackupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Backup(ctx, h.st, h.cfg, ops.BackupInput{Path: input.Path})
	if err != nil {
		h.logFailure("store_backup", err)
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRestore handles the store_restore tool.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RestoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Restore(ctx, h.st, h.cfg, ops.RestoreInput{
		Path: input.Path,
		Mode: ops.RestoreMode(input.Mode),
	})
	if err != nil {
		h.logFailure("store_restore", err)
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleClear handles the store_clear tool.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClearRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ClearAll(h.st, ops.ClearInput{Confirm: input.Confirm})
	if err != nil {
		return errorResult(err), nil
	}
	h.log.Info().Int("saved_memes", result.SavedMemes).Msg("store cleared")
	return successResult(result)
}

func (h *Handlers) logFailure(tool string, err error) {
	if mErr, ok := errors.As(err); ok && mErr.Code == errors.ErrInternal {
		h.log.Error().Str("tool", tool).Interface("details", mErr.Details).Msg("tool failed")
	}
}

// errorResult creates an MCP error result from an error.
// The code comes from the first MemeError in the chain; wrapping context
// stays in the message.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if mErr, ok := errors.As(err); ok {
		msg := mErr.Message
		if outer := err.Error(); outer != mErr.Error() {
			msg = strings.Replace(outer, mErr.Error(), mErr.Message, 1)
		}
		errorObj := map[string]any{
			"code":    mErr.Code,
			"message": msg,
			"status":  mErr.Status,
		}
		// INTERNAL details can carry file paths or SQL errors
		if mErr.Code != errors.ErrInternal && mErr.Details != nil {
			errorObj["details"] = mErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
