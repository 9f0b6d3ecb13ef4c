package meme

import (
	"fmt"
	"strings"
	"time"
)

// MemeSummary is a meme's metadata without its overlays.
// Used for browse operations (list, gallery) to reduce data transfer.
type MemeSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Image        string    `json:"image,omitempty"`
	OverlayCount int       `json:"overlay_count"`
	Caption      string    `json:"caption,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToSummary converts a Meme to a MemeSummary.
func (m *Meme) ToSummary() MemeSummary {
	return MemeSummary{
		ID:           m.ID,
		Name:         m.Name,
		Image:        m.Image,
		OverlayCount: len(m.TextOverlays),
		Caption:      m.Caption(),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Caption joins overlay texts in z-order with " / ".
func (m *Meme) Caption() string {
	parts := make([]string, 0, len(m.TextOverlays))
	for _, o := range m.TextOverlays {
		if t := strings.TrimSpace(o.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " / ")
}

// Markdown renders a human-readable card for the meme.
func (m *Meme) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", DisplayName(m))
	if m.HasImage() {
		fmt.Fprintf(&b, "Image: `%s`\n\n", m.Image)
	} else {
		b.WriteString("_No image selected._\n\n")
	}
	if len(m.TextOverlays) == 0 {
		b.WriteString("_No text overlays._\n")
		return b.String()
	}
	b.WriteString("| # | Text | Font | Position |\n|---|---|---|---|\n")
	for i, o := range m.TextOverlays {
		fmt.Fprintf(&b, "| %d | %s | %s %dpx %s | (%g, %g) |\n",
			i+1, escapeCell(o.Text), o.FontFamily, o.FontSize, o.Color,
			o.Position.Top, o.Position.Left)
	}
	return b.String()
}

// escapeCell keeps overlay text from breaking the markdown table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
