package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Overlay style properties shared by overlay_add and overlay_update.
func overlayStyleOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("font_family", mcp.Description("Font family (default Impact)")),
		mcp.WithNumber("font_size", mcp.Description("Font size in px (default 48)")),
		mcp.WithString("color", mcp.Description("Text color, e.g. #ffffff (default white)")),
		mcp.WithString("text_align", mcp.Description("left, center or right")),
		mcp.WithBoolean("bold", mcp.Description("Bold text")),
		mcp.WithBoolean("italic", mcp.Description("Italic text")),
		mcp.WithString("stroke_color", mcp.Description("Outline color")),
		mcp.WithNumber("stroke_width", mcp.Description("Outline width in px")),
	}
}

var memeNewToolDef = mcp.NewTool("meme_new",
	mcp.WithDescription("Start a fresh, empty working meme. Unsaved edits to the current working meme are discarded."),
)

var memeSetImageToolDef = mcp.NewTool("meme_set_image",
	mcp.WithDescription("Set the background image of the working meme."),
	mcp.WithString("image", mcp.Required(), mcp.Description("Image URL or data URI")),
	mcp.WithBoolean("add_to_recent", mcp.Description("Also record the image as recently used (default true)")),
)

var overlayAddToolDef = mcp.NewTool("overlay_add", append([]mcp.ToolOption{
	mcp.WithDescription("Add a text overlay to the working meme at the default position and select it."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Overlay text")),
}, overlayStyleOptions()...)...)

var overlayUpdateToolDef = mcp.NewTool("overlay_update", append([]mcp.ToolOption{
	mcp.WithDescription("Change fields of an overlay on the working meme. Omitted fields are left as they are."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Overlay id")),
	mcp.WithString("text", mcp.Description("New text")),
	mcp.WithObject("position", mcp.Description("New position as {\"top\": px, \"left\": px}")),
	mcp.WithNumber("width", mcp.Description("Box width in px")),
	mcp.WithNumber("height", mcp.Description("Box height in px")),
	mcp.WithNumber("rotation", mcp.Description("Rotation in degrees")),
}, overlayStyleOptions()...)...)

var overlayDeleteToolDef = mcp.NewTool("overlay_delete",
	mcp.WithDescription("Remove an overlay from the working meme."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Overlay id")),
)

var overlaySelectToolDef = mcp.NewTool("overlay_select",
	mcp.WithDescription("Select an overlay of the working meme. Omit id to clear the selection."),
	mcp.WithString("id", mcp.Description("Overlay id; empty clears the selection")),
)

var overlayClearToolDef = mcp.NewTool("overlay_clear",
	mcp.WithDescription("Remove every overlay from the working meme."),
)

var memeSaveToolDef = mcp.NewTool("meme_save",
	mcp.WithDescription("Save the working meme under a name. Saving again updates the same saved meme."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Meme name")),
)

var memeLoadToolDef = mcp.NewTool("meme_load",
	mcp.WithDescription("Load a copy of a saved meme as the working meme."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Saved meme id")),
)

var memeDeleteToolDef = mcp.NewTool("meme_delete",
	mcp.WithDescription("Delete a saved meme and its export history."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Saved meme id")),
)

var memeDuplicateToolDef = mcp.NewTool("meme_duplicate",
	mcp.WithDescription("Copy a saved meme under a new id with \" (Copy)\" appended to its name. The copy becomes the working meme."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Saved meme id")),
)

var memeRenameToolDef = mcp.NewTool("meme_rename",
	mcp.WithDescription("Rename a saved meme. The meme becomes the working meme."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Saved meme id")),
	mcp.WithString("name", mcp.Required(), mcp.Description("New name")),
)

var memeComposeToolDef = mcp.NewTool("meme_compose",
	mcp.WithDescription("Create and save a meme in one call from an image and a list of overlays."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Meme name")),
	mcp.WithString("image", mcp.Description("Image URL or data URI")),
	mcp.WithArray("overlays",
		mcp.Description("Overlays in z-order, each {\"text\": ..., optional style fields}"),
		mcp.Items(map[string]any{"type": "object"}),
	),
)

var memeCurrentToolDef = mcp.NewTool("meme_current",
	mcp.WithDescription("Show the working meme and the selected overlay."),
)

var memeFetchToolDef = mcp.NewTool("meme_fetch",
	mcp.WithDescription("Show a saved meme with its export records."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Saved meme id")),
)

var memeListToolDef = mcp.NewTool("meme_list",
	mcp.WithDescription("List saved memes, most recently updated first."),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var exportRecordToolDef = mcp.NewTool("export_record",
	mcp.WithDescription("Record that a meme was exported. Uses the working meme unless id is given."),
	mcp.WithString("format", mcp.Required(), mcp.Description("Export format"), mcp.Enum("png", "jpeg", "jpg", "webp", "gif", "svg")),
	mcp.WithString("id", mcp.Description("Saved meme id to export instead of the working meme")),
)

var exportHistoryToolDef = mcp.NewTool("export_history",
	mcp.WithDescription("List export records, most recent first."),
	mcp.WithString("meme_id", mcp.Description("Only records for this meme")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 50)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var recentImagesToolDef = mcp.NewTool("recent_images",
	mcp.WithDescription("List recently used images, most recent first."),
)

var notifyToolDef = mcp.NewTool("notify",
	mcp.WithDescription("Queue a notification."),
	mcp.WithString("message", mcp.Required(), mcp.Description("Notification text")),
	mcp.WithString("kind", mcp.Description("Severity (default info)"), mcp.Enum("info", "success", "warning", "error")),
)

var notificationDismissToolDef = mcp.NewTool("notification_dismiss",
	mcp.WithDescription("Dismiss a notification."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Notification id")),
)

var notificationListToolDef = mcp.NewTool("notification_list",
	mcp.WithDescription("List pending notifications, oldest first."),
)

var memeResetToolDef = mcp.NewTool("meme_reset",
	mcp.WithDescription("Discard the working meme and start an empty one. Saved memes are kept."),
)

var storeBackupToolDef = mcp.NewTool("store_backup",
	mcp.WithDescription("Write saved memes, recent images and export history to a JSON backup file."),
	mcp.WithString("path", mcp.Description("Output .json path (default ~/.memebox/backups/memebox-<timestamp>.json)")),
)

var storeRestoreToolDef = mcp.NewTool("store_restore",
	mcp.WithDescription("Load a JSON backup file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Backup .json path")),
	mcp.WithString("mode", mcp.Description("merge (default) or replace"), mcp.Enum("merge", "replace")),
)

var storeClearToolDef = mcp.NewTool("store_clear",
	mcp.WithDescription("Delete all saved memes, recent images and export history. Cannot be undone."),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
)
