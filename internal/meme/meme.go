package meme

import "time"

// Default overlay placement and styling applied by AddTextOverlay.
const (
	DefaultTop        = 20
	DefaultLeft       = 20
	DefaultFontFamily = "Impact"
	DefaultFontSize   = 48
	DefaultColor      = "#ffffff"
)

// CopySuffix is appended to the name of a duplicated meme.
const CopySuffix = " (Copy)"

// Position is the offset of an overlay from the top-left corner of the image.
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// TextOverlay is one styled, positioned text element drawn over the image.
type TextOverlay struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	FontFamily string `json:"font_family"`
	FontSize   int    `json:"font_size"`
	Color      string `json:"color"`
	TextAlign  string `json:"text_align,omitempty"`
	Bold       bool   `json:"bold,omitempty"`
	Italic     bool   `json:"italic,omitempty"`

	// Stroke is optional; nil means no outline.
	StrokeColor *string  `json:"stroke_color,omitempty"`
	StrokeWidth *float64 `json:"stroke_width,omitempty"`

	Position Position `json:"position"`

	// Geometry written back by the editor after resize/rotate gestures.
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation float64  `json:"rotation,omitempty"`
}

// Meme is a user's editable composition: a background image plus overlays.
// TextOverlays is ordered; index order is display (z) order.
type Meme struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Image        string        `json:"image,omitempty"`
	TextOverlays []TextOverlay `json:"text_overlays"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HasImage reports whether a background image has been set.
func (m *Meme) HasImage() bool {
	return m.Image != ""
}

// Overlay returns the index of the overlay with the given id, or -1.
func (m *Meme) Overlay(id string) int {
	for i := range m.TextOverlays {
		if m.TextOverlays[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of m. Overlay pointer fields are not shared.
func (m *Meme) Clone() *Meme {
	if m == nil {
		return nil
	}
	c := *m
	c.TextOverlays = cloneOverlays(m.TextOverlays)
	return &c
}

// Clone returns a deep copy of o.
func (o TextOverlay) Clone() TextOverlay {
	c := o
	c.StrokeColor = clonePtr(o.StrokeColor)
	c.StrokeWidth = clonePtr(o.StrokeWidth)
	c.Width = clonePtr(o.Width)
	c.Height = clonePtr(o.Height)
	return c
}

func cloneOverlays(in []TextOverlay) []TextOverlay {
	if in == nil {
		return []TextOverlay{}
	}
	out := make([]TextOverlay, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// New returns an empty meme with the given id, stamped at now.
func New(id string, now time.Time) *Meme {
	return &Meme{
		ID:           id,
		TextOverlays: []TextOverlay{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ExportRecord is one entry of the export log.
type ExportRecord struct {
	ID         string    `json:"id"`
	MemeID     string    `json:"meme_id"`
	MemeName   string    `json:"meme_name,omitempty"`
	Format     Format    `json:"format"`
	ExportedAt time.Time `json:"exported_at"`
}

// NotificationKind is the severity of a notification.
type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindWarning NotificationKind = "warning"
	KindError   NotificationKind = "error"
)

// Notification is a transient UI message. It is never persisted.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Kind      NotificationKind `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
}
