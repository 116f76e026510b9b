package domain

import "strings"

// Color is a label badge color.
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
	ColorGray   Color = "gray"
)

// Label tags an item. Items reference labels by ID.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

var builtinLabels = []Label{
	{ID: "1", Name: "FIX", Color: ColorRed},
	{ID: "2", Name: "ANNOUNCEMENT", Color: ColorBlue},
	{ID: "3", Name: "IMPROVEMENT", Color: ColorGreen},
	{ID: "4", Name: "FEATURE", Color: ColorPurple},
	{ID: "5", Name: "BUG", Color: ColorYellow},
}

// BuiltinLabels returns the fixed label set shared by the board and the widget.
func BuiltinLabels() []Label {
	return append([]Label(nil), builtinLabels...)
}

// LabelByID looks up a built-in label.
func LabelByID(id string) (Label, bool) {
	for _, l := range builtinLabels {
		if l.ID == id {
			return l, true
		}
	}
	return Label{}, false
}

// ResolveLabel finds a built-in label by id or, case-insensitively, by name.
func ResolveLabel(ref string) (Label, bool) {
	if l, ok := LabelByID(ref); ok {
		return l, true
	}
	for _, l := range builtinLabels {
		if strings.EqualFold(l.Name, ref) {
			return l, true
		}
	}
	return Label{}, false
}

// LabelsByID resolves ids against the built-in set, dropping unknown ones.
func LabelsByID(ids []string) []Label {
	out := make([]Label, 0, len(ids))
	for _, id := range ids {
		if l, ok := LabelByID(id); ok {
			out = append(out, l)
		}
	}
	return out
}

// HasAnyLabel reports whether the item carries at least one of ids.
func (i Item) HasAnyLabel(ids []string) bool {
	for _, l := range i.Labels {
		for _, id := range ids {
			if l.ID == id {
				return true
			}
		}
	}
	return false
}
