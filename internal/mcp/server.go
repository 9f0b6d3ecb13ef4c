package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/hpungsan/memebox/internal/config"
	"github.com/hpungsan/memebox/internal/store"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"meme_new":             {memeNewToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNew }},
	"meme_set_image":       {memeSetImageToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSetImage }},
	"overlay_add":          {overlayAddToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleOverlayAdd }},
	"overlay_update":       {overlayUpdateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleOverlayUpdate }},
	"overlay_delete":       {overlayDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleOverlayDelete }},
	"overlay_select":       {overlaySelectToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleOverlaySelect }},
	"overlay_clear":        {overlayClearToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleOverlayClear }},
	"meme_save":            {memeSaveToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave }},
	"meme_load":            {memeLoadToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleLoad }},
	"meme_delete":          {memeDeleteToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete }},
	"meme_duplicate":       {memeDuplicateToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleDuplicate }},
	"meme_rename":          {memeRenameToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRename }},
	"meme_compose":         {memeComposeToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleCompose }},
	"meme_current":         {memeCurrentToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleCurrent }},
	"meme_fetch":           {memeFetchToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetch }},
	"meme_list":            {memeListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleList }},
	"export_record":        {exportRecordToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleExportRecord }},
	"export_history":       {exportHistoryToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleExportHistory }},
	"recent_images":        {recentImagesToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecentImages }},
	"notify":               {notifyToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotify }},
	"notification_dismiss": {notificationDismissToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotificationDismiss }},
	"notification_list":    {notificationListToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotificationList }},
	"meme_reset":           {memeResetToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleReset }},
	"store_backup":         {storeBackupToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackup }},
	"store_restore":        {storeRestoreToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore }},
	"store_clear":          {storeClearToolDef, func(h *Handlers) server.ToolHandlerFunc { return h.HandleClear }},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the names that are not registered tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server exposing the store as tools.
// Tools listed in cfg.DisabledTools are not registered.
func NewServer(st *store.Store, cfg *config.Config, log zerolog.Logger, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"memebox",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(st, cfg, log)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}
	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	log.Debug().Int("tools", len(toolRegistry)-len(disabled)).Msg("mcp tools registered")

	return s
}

// Run serves the MCP protocol over stdio until stdin closes.
func Run(st *store.Store, cfg *config.Config, log zerolog.Logger, version string) error {
	return server.ServeStdio(NewServer(st, cfg, log, version))
}
