// merge.go - Apply partial edits to text boxes without mutating the originals.
package template

// BoxChange is a partial edit from a drag, resize or property panel.
// Nil fields are left unchanged.
type BoxChange struct {
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	FieldKey   *string  `json:"jsonKey,omitempty"`
	FontSize   *float64 `json:"fontSize,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Align      *Align   `json:"textAlign,omitempty"`
}

// ApplyChange returns box with change applied. Width and height are clamped
// to the editor minimum and font size must stay positive; the ID never changes.
func ApplyChange(box TextBox, change BoxChange) TextBox {
	out := box

	if change.X != nil {
		out.X = *change.X
	}
	if change.Y != nil {
		out.Y = *change.Y
	}
	if change.Width != nil {
		out.Width = max(*change.Width, MinBoxWidth)
	}
	if change.Height != nil {
		out.Height = max(*change.Height, MinBoxHeight)
	}
	if change.FieldKey != nil {
		out.FieldKey = *change.FieldKey
	}
	if change.FontSize != nil && *change.FontSize > 0 {
		out.FontSize = *change.FontSize
	}
	if change.FontFamily != nil && *change.FontFamily != "" {
		out.FontFamily = *change.FontFamily
	}
	if change.Color != nil && *change.Color != "" {
		out.Color = *change.Color
	}
	if change.Align != nil {
		out.Align, _ = ParseAlign(string(*change.Align))
	}

	return out
}

// UpdateBoxes returns a copy of boxes with change applied to the box whose ID
// matches. The input slice is not modified.
func UpdateBoxes(boxes []TextBox, id string, change BoxChange) []TextBox {
	out := make([]TextBox, len(boxes))
	for i, b := range boxes {
		if b.ID == id {
			b = ApplyChange(b, change)
		}
		out[i] = b
	}
	return out
}
