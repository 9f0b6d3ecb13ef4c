package meme

// OverlayInput is the caller-supplied part of a new overlay.
// The id and position are assigned by the store.
type OverlayInput struct {
	Text        string   `json:"text"`
	FontFamily  string   `json:"font_family,omitempty"`
	FontSize    int      `json:"font_size,omitempty"`
	Color       string   `json:"color,omitempty"`
	TextAlign   string   `json:"text_align,omitempty"`
	Bold        bool     `json:"bold,omitempty"`
	Italic      bool     `json:"italic,omitempty"`
	StrokeColor *string  `json:"stroke_color,omitempty"`
	StrokeWidth *float64 `json:"stroke_width,omitempty"`
}

// Build turns the input into an overlay with the given id at the default
// position. Empty styling fields fall back to the defaults.
func (in OverlayInput) Build(id string) TextOverlay {
	o := TextOverlay{
		ID:          id,
		Text:        in.Text,
		FontFamily:  in.FontFamily,
		FontSize:    in.FontSize,
		Color:       in.Color,
		TextAlign:   in.TextAlign,
		Bold:        in.Bold,
		Italic:      in.Italic,
		StrokeColor: clonePtr(in.StrokeColor),
		StrokeWidth: clonePtr(in.StrokeWidth),
		Position:    Position{Top: DefaultTop, Left: DefaultLeft},
	}
	if o.FontFamily == "" {
		o.FontFamily = DefaultFontFamily
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultFontSize
	}
	if o.Color == "" {
		o.Color = DefaultColor
	}
	return o
}

// OverlayPatch is a partial overlay update. Nil fields are left unchanged.
type OverlayPatch struct {
	Text        *string   `json:"text,omitempty"`
	FontFamily  *string   `json:"font_family,omitempty"`
	FontSize    *int      `json:"font_size,omitempty"`
	Color       *string   `json:"color,omitempty"`
	TextAlign   *string   `json:"text_align,omitempty"`
	Bold        *bool     `json:"bold,omitempty"`
	Italic      *bool     `json:"italic,omitempty"`
	StrokeColor *string   `json:"stroke_color,omitempty"`
	StrokeWidth *float64  `json:"stroke_width,omitempty"`
	Position    *Position `json:"position,omitempty"`
	Width       *float64  `json:"width,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Rotation    *float64  `json:"rotation,omitempty"`
}

// Apply merges the patch into o and returns the result. o is not modified.
func (p OverlayPatch) Apply(o TextOverlay) TextOverlay {
	out := o.Clone()
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.FontFamily != nil {
		out.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		out.FontSize = *p.FontSize
	}
	if p.Color != nil {
		out.Color = *p.Color
	}
	if p.TextAlign != nil {
		out.TextAlign = *p.TextAlign
	}
	if p.Bold != nil {
		out.Bold = *p.Bold
	}
	if p.Italic != nil {
		out.Italic = *p.Italic
	}
	if p.StrokeColor != nil {
		out.StrokeColor = clonePtr(p.StrokeColor)
	}
	if p.StrokeWidth != nil {
		out.StrokeWidth = clonePtr(p.StrokeWidth)
	}
	if p.Position != nil {
		out.Position = *p.Position
	}
	if p.Width != nil {
		out.Width = clonePtr(p.Width)
	}
	if p.Height != nil {
		out.Height = clonePtr(p.Height)
	}
	if p.Rotation != nil {
		out.Rotation = *p.Rotation
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p OverlayPatch) IsEmpty() bool {
	return p == OverlayPatch{}
}
