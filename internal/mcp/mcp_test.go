package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hpungsan/memebox/internal/config"
	"github.com/hpungsan/memebox/internal/db"
	"github.com/hpungsan/memebox/internal/errors"
	"github.com/hpungsan/memebox/internal/meme"
	"github.com/hpungsan/memebox/internal/store"
)

// testSetup creates a database-backed store and config for testing.
func testSetup(t *testing.T) (*Handlers, *sql.DB, func()) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests

	st := store.New(
		store.WithPersister(db.NewSnapshotPersister(database)),
		store.WithIDGenerator(meme.NewSequenceGenerator("m")),
		store.WithClock(func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }),
	)

	cleanup := func() {
		database.Close()
	}

	return NewHandlers(st, cfg, zerolog.Nop()), database, cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

type handlerFunc func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h handlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := h(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func TestHandleWorkingMemeFlow(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	out := parseOutput(t, call(t, h.HandleSetImage, map[string]any{"image": "cat.png"}))
	m := out["meme"].(map[string]any)
	if m["image"] != "cat.png" {
		t.Errorf("image = %v, want cat.png", m["image"])
	}
	if got := h.st.RecentImages(); len(got) != 1 || got[0] != "cat.png" {
		t.Errorf("recent = %v, want [cat.png]", got)
	}

	overlay := parseOutput(t, call(t, h.HandleOverlayAdd, map[string]any{
		"text":      "TOP",
		"font_size": 64,
		"bold":      true,
	}))
	overlayID := overlay["id"].(string)
	if overlay["font_size"] != float64(64) || overlay["font_family"] != meme.DefaultFontFamily {
		t.Errorf("overlay = %v", overlay)
	}

	cur := parseOutput(t, call(t, h.HandleCurrent, nil))
	if cur["selected_overlay_id"] != overlayID {
		t.Errorf("selected = %v, want %s", cur["selected_overlay_id"], overlayID)
	}
	if cur["saved"] != false {
		t.Errorf("saved = %v, want false", cur["saved"])
	}

	updated := parseOutput(t, call(t, h.HandleOverlayUpdate, map[string]any{
		"id":       overlayID,
		"text":     "NEW",
		"position": map[string]any{"top": 10, "left": 20},
	}))
	if updated["text"] != "NEW" {
		t.Errorf("text = %v, want NEW", updated["text"])
	}
	pos := updated["position"].(map[string]any)
	if pos["top"] != float64(10) || pos["left"] != float64(20) {
		t.Errorf("position = %v", pos)
	}
	if updated["font_size"] != float64(64) {
		t.Errorf("font_size changed to %v", updated["font_size"])
	}

	parseOutput(t, call(t, h.HandleOverlaySelect, map[string]any{}))
	if h.st.SelectedOverlayID() != "" {
		t.Errorf("selection not cleared")
	}

	saved := parseOutput(t, call(t, h.HandleSave, map[string]any{"name": "Cat"}))
	if saved["created"] != true || saved["name"] != "Cat" {
		t.Errorf("save = %v", saved)
	}

	parseOutput(t, call(t, h.HandleOverlayDelete, map[string]any{"id": overlayID}))
	if n := len(h.st.Current().TextOverlays); n != 0 {
		t.Errorf("overlays = %d after delete, want 0", n)
	}
}

func TestHandleSetImage_SkipRecent(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	parseOutput(t, call(t, h.HandleSetImage, map[string]any{"image": "a.png", "add_to_recent": false}))
	if got := h.st.RecentImages(); len(got) != 0 {
		t.Errorf("recent = %v, want empty", got)
	}

	assertErrorCode(t, call(t, h.HandleSetImage, map[string]any{"image": "  "}), "INVALID_REQUEST")
}

func TestHandleOverlay_Errors(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	assertErrorCode(t, call(t, h.HandleOverlayAdd, map[string]any{"text": ""}), "INVALID_REQUEST")
	assertErrorCode(t, call(t, h.HandleOverlayUpdate, map[string]any{"id": "missing", "text": "x"}), "NOT_FOUND")
	assertErrorCode(t, call(t, h.HandleOverlayDelete, map[string]any{"id": "missing"}), "NOT_FOUND")
	assertErrorCode(t, call(t, h.HandleOverlaySelect, map[string]any{"id": "missing"}), "NOT_FOUND")
	assertErrorCode(t, call(t, h.HandleOverlayAdd, map[string]any{"text": 42}), "INVALID_REQUEST")

	o := parseOutput(t, call(t, h.HandleOverlayAdd, map[string]any{"text": "x"}))
	assertErrorCode(t, call(t, h.HandleOverlayUpdate, map[string]any{"id": o["id"]}), "INVALID_REQUEST")
}

func TestHandleOverlayClear(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	for _, text := range []string{"a", "b"} {
		parseOutput(t, call(t, h.HandleOverlayAdd, map[string]any{"text": text}))
	}
	out := parseOutput(t, call(t, h.HandleOverlayClear, nil))
	if out["removed"] != float64(2) {
		t.Errorf("removed = %v, want 2", out["removed"])
	}
	if h.st.SelectedOverlayID() != "" {
		t.Error("selection should be cleared")
	}
}

func TestHandleCompose_PersistsToDatabase(t *testing.T) {
	h, database, cleanup := testSetup(t)
	defer cleanup()

	out := parseOutput(t, call(t, h.HandleCompose, map[string]any{
		"name":  "Drake",
		"image": "drake.png",
		"overlays": []any{
			map[string]any{"text": "no"},
			map[string]any{"text": "yes", "color": "#ff0000"},
		},
	}))
	if ids := out["overlay_ids"].([]any); len(ids) != 2 {
		t.Errorf("overlay_ids = %v", ids)
	}

	row, err := db.GetSnapshot(context.Background(), database, store.DefaultStorageKey)
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if row == nil {
		t.Fatal("expected snapshot row after compose")
	}
	snap, err := store.DecodeSnapshot(row.Payload)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if len(snap.SavedMemes) != 1 || snap.SavedMemes[0].Name != "Drake" {
		t.Errorf("persisted memes = %+v", snap.SavedMemes)
	}

	assertErrorCode(t, call(t, h.HandleCompose, map[string]any{"name": ""}), "INVALID_REQUEST")
}

// The stdio server dispatches tool calls on several workers, so compose calls
// can overlap.
func TestHandleCompose_Concurrent(t *testing.T) {
	h, database, cleanup := testSetup(t)
	defer cleanup()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.HandleCompose(context.Background(), makeRequest(map[string]any{
				"name":     fmt.Sprintf("m%d", i),
				"image":    fmt.Sprintf("%d.png", i),
				"overlays": []any{map[string]any{"text": "top"}, map[string]any{"text": "bottom"}},
			}))
			if err != nil || res.IsError {
				t.Errorf("compose %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	row, err := db.GetSnapshot(context.Background(), database, store.DefaultStorageKey)
	if err != nil || row == nil {
		t.Fatalf("GetSnapshot() = %v, %v", row, err)
	}
	snap, err := store.DecodeSnapshot(row.Payload)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if len(snap.SavedMemes) != n {
		t.Fatalf("persisted %d memes, want %d", len(snap.SavedMemes), n)
	}
	for _, m := range snap.SavedMemes {
		if m.Image != strings.TrimPrefix(m.Name, "m")+".png" || len(m.TextOverlays) != 2 {
			t.Errorf("malformed meme %s: image %q, %d overlays", m.Name, m.Image, len(m.TextOverlays))
		}
	}
}

func TestHandleSavedMemes(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	first := parseOutput(t, call(t, h.HandleCompose, map[string]any{"name": "one", "overlays": []any{map[string]any{"text": "x"}}}))
	id := first["id"].(string)
	parseOutput(t, call(t, h.HandleCompose, map[string]any{"name": "two"}))

	list := parseOutput(t, call(t, h.HandleList, map[string]any{"limit": 1}))
	items := list["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	pag := list["pagination"].(map[string]any)
	if pag["has_more"] != true || pag["total"] != float64(2) {
		t.Errorf("pagination = %v", pag)
	}

	loaded := parseOutput(t, call(t, h.HandleLoad, map[string]any{"id": id}))
	if loaded["meme"].(map[string]any)["id"] != id || loaded["saved"] != true {
		t.Errorf("load = %v", loaded)
	}

	dup := parseOutput(t, call(t, h.HandleDuplicate, map[string]any{"id": id}))
	if dup["name"] != "one"+meme.CopySuffix || dup["source_id"] != id {
		t.Errorf("duplicate = %v", dup)
	}

	renamed := parseOutput(t, call(t, h.HandleRename, map[string]any{"id": id, "name": "uno"}))
	if renamed["name"] != "uno" {
		t.Errorf("rename = %v", renamed)
	}

	fetched := parseOutput(t, call(t, h.HandleFetch, map[string]any{"id": id}))
	if fetched["meme"].(map[string]any)["name"] != "uno" {
		t.Errorf("fetch = %v", fetched)
	}

	del := parseOutput(t, call(t, h.HandleDelete, map[string]any{"id": id}))
	if del["deleted"] != true {
		t.Errorf("delete = %v", del)
	}

	for _, handler := range []handlerFunc{h.HandleLoad, h.HandleDelete, h.HandleDuplicate, h.HandleFetch} {
		assertErrorCode(t, call(t, handler, map[string]any{"id": id}), "NOT_FOUND")
	}
	assertErrorCode(t, call(t, h.HandleRename, map[string]any{"id": id, "name": "x"}), "NOT_FOUND")
}

func TestHandleExports(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	out := parseOutput(t, call(t, h.HandleCompose, map[string]any{"name": "cat"}))
	id := out["id"].(string)
	parseOutput(t, call(t, h.HandleNew, nil))

	rec := parseOutput(t, call(t, h.HandleExportRecord, map[string]any{"format": "JPG", "id": id}))
	record := rec["record"].(map[string]any)
	if record["format"] != "jpeg" || record["meme_id"] != id || record["meme_name"] != "cat" {
		t.Errorf("record = %v", record)
	}
	parseOutput(t, call(t, h.HandleExportRecord, map[string]any{"format": "png"}))

	hist := parseOutput(t, call(t, h.HandleExportHistory, map[string]any{"meme_id": id}))
	if items := hist["items"].([]any); len(items) != 2 {
		t.Errorf("history items = %d, want 2", len(items))
	}

	assertErrorCode(t, call(t, h.HandleExportRecord, map[string]any{"format": "bmp"}), "INVALID_REQUEST")
	assertErrorCode(t, call(t, h.HandleExportRecord, map[string]any{"format": "png", "id": "nope"}), "NOT_FOUND")
}

func TestHandleRecentImages(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	for _, img := range []string{"a.png", "b.png", "a.png"} {
		parseOutput(t, call(t, h.HandleSetImage, map[string]any{"image": img}))
	}
	out := parseOutput(t, call(t, h.HandleRecentImages, nil))
	images := out["images"].([]any)
	if len(images) != 2 || images[0] != "a.png" || images[1] != "b.png" {
		t.Errorf("images = %v, want [a.png b.png]", images)
	}
}

func TestHandleNotifications(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	n := parseOutput(t, call(t, h.HandleNotify, map[string]any{"message": "saved", "kind": "Success"}))
	if n["kind"] != "success" {
		t.Errorf("notification = %v", n)
	}
	parseOutput(t, call(t, h.HandleNotify, map[string]any{"message": "hello"}))

	list := parseOutput(t, call(t, h.HandleNotificationList, nil))
	if items := list["items"].([]any); len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}

	parseOutput(t, call(t, h.HandleNotificationDismiss, map[string]any{"id": n["id"]}))
	if got := h.st.Notifications(); len(got) != 1 || got[0].Message != "hello" {
		t.Errorf("notifications = %+v", got)
	}

	assertErrorCode(t, call(t, h.HandleNotificationDismiss, map[string]any{"id": n["id"]}), "NOT_FOUND")
	assertErrorCode(t, call(t, h.HandleNotify, map[string]any{"message": ""}), "INVALID_REQUEST")
	assertErrorCode(t, call(t, h.HandleNotify, map[string]any{"message": "x", "kind": "loud"}), "INVALID_REQUEST")
}

func TestHandleReset(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	parseOutput(t, call(t, h.HandleCompose, map[string]any{"name": "keep"}))
	before := h.st.Current().ID

	out := parseOutput(t, call(t, h.HandleReset, nil))
	if out["meme"].(map[string]any)["id"] == before {
		t.Error("reset should start a new working meme")
	}
	if len(h.st.SavedMemes()) != 1 {
		t.Error("reset must keep saved memes")
	}
}

func TestHandleBackupRestoreClear(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	parseOutput(t, call(t, h.HandleCompose, map[string]any{"name": "cat", "image": "cat.png"}))

	path := filepath.Join(t.TempDir(), "backup.json")
	backup := parseOutput(t, call(t, h.HandleBackup, map[string]any{"path": path}))
	if backup["saved_memes"] != float64(1) {
		t.Errorf("backup = %v", backup)
	}

	assertErrorCode(t, call(t, h.HandleClear, map[string]any{"confirm": false}), "INVALID_REQUEST")
	cleared := parseOutput(t, call(t, h.HandleClear, map[string]any{"confirm": true}))
	if cleared["saved_memes"] != float64(1) {
		t.Errorf("clear = %v", cleared)
	}
	if len(h.st.SavedMemes()) != 0 {
		t.Fatal("memes should be cleared")
	}

	restored := parseOutput(t, call(t, h.HandleRestore, map[string]any{"path": path, "mode": "replace"}))
	if restored["saved_memes"] != float64(1) || restored["recent_images"] != float64(1) {
		t.Errorf("restore = %v", restored)
	}

	assertErrorCode(t, call(t, h.HandleRestore, map[string]any{"path": path, "mode": "bogus"}), "INVALID_REQUEST")
	assertErrorCode(t, call(t, h.HandleRestore, map[string]any{"path": filepath.Join(t.TempDir(), "missing.json")}), "FILE_NOT_FOUND")
}

func TestServerRegistration(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(h.st, h.cfg, zerolog.Nop(), "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"meme_new", "meme_set_image", "overlay_add", "overlay_update",
		"overlay_delete", "overlay_select", "overlay_clear", "meme_save",
		"meme_load", "meme_delete", "meme_duplicate", "meme_rename",
		"meme_compose", "meme_current", "meme_fetch", "meme_list",
		"export_record", "export_history", "recent_images", "notify",
		"notification_dismiss", "notification_list", "meme_reset",
		"store_backup", "store_restore", "store_clear",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	disabled := []string{"store_clear", "store_restore", "store_clear", "not_a_tool"}
	cfg := *h.cfg
	cfg.DisabledTools = disabled
	tools := NewServer(h.st, &cfg, zerolog.Nop(), "test").ListTools()

	// Duplicates and unknown names are ignored
	if want := len(toolRegistry) - 2; len(tools) != want {
		t.Errorf("registered tool count = %d, want %d", len(tools), want)
	}
	for _, name := range []string{"store_clear", "store_restore"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["meme_list"]; !ok {
		t.Error("meme_list should still be registered")
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	h, _, cleanup := testSetup(t)
	defer cleanup()

	cfg := *h.cfg
	cfg.DisabledTools = AllToolNames()
	if tools := NewServer(h.st, &cfg, zerolog.Nop(), "test").ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"store_clear", "notify"}, wantLen: 0},
		{name: "one unknown", input: []string{"store_clear", "fake_tool"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Errorf("AllToolNames() returned %d names, want %d", len(names), len(toolRegistry))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
	for name, entry := range toolRegistry {
		if entry.def.Name != name {
			t.Errorf("registry key %q has tool def %q", name, entry.def.Name)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrappedErr := fmt.Errorf("overlays[2]: %w", errors.NewInvalidRequest("text is required"))

	errObj := errorObject(t, errorResult(wrappedErr))
	if errObj["code"] != string(errors.ErrInvalidRequest) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrInvalidRequest)
	}
	if msg := errObj["message"].(string); msg != "overlays[2]: text is required" {
		t.Errorf("message = %q", msg)
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorObject(t, errorResult(errors.NewNotFound("meme", "abc")))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != string(errors.ErrInternal) || strings.Contains(errObj["message"].(string), "boom") {
		t.Errorf("error = %v", errObj)
	}
}

// Helper functions

func errorObject(t *testing.T, r *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error %s, got success", expectedCode)
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	code, _ := errorObject(t, result)["code"].(string)
	if code != expectedCode {
		t.Errorf("got error code %q, want %q (%s)", code, expectedCode, extractErrorMessage(result))
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}

func TestDecode(t *testing.T) {
	got, err := decode[RenameRequest](makeRequest(map[string]any{"id": "m1", "name": "Cat"}))
	if err != nil {
		t.Fatalf("decode() error = %v", err)
	}
	if got.ID != "m1" || got.Name != "Cat" {
		t.Errorf("decode() = %+v", got)
	}

	empty, err := decode[RenameRequest](makeRequest(nil))
	if err != nil {
		t.Fatalf("decode(nil) error = %v", err)
	}
	if empty != (RenameRequest{}) {
		t.Errorf("decode(nil) = %+v, want zero value", empty)
	}

	if _, err := decode[RenameRequest](makeRequest(map[string]any{"name": 7})); err == nil {
		t.Error("decode() accepted a number for a string field")
	}
}
