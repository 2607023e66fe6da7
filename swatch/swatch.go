// Package swatch implements the color radio group: a single-choice
// selection over a list of color items that derives each control's
// presentation from the item data and reports the chosen color.
package swatch

import (
	"strings"
	"sync"
)

const (
	// ControlPrefix is prepended to an item ID to form its control ID.
	ControlPrefix = "mainCl-"
	// GroupName is the name shared by every control of a group.
	GroupName = "mainColor-radio"
)

// Item is one selectable color.
type Item struct {
	ID          string `json:"id" yaml:"id" bson:"id" validate:"required,max=64"`
	Color       string `json:"color" yaml:"color" bson:"color" validate:"required,max=64"`
	BorderColor string `json:"borderColor" yaml:"borderColor" bson:"borderColor" validate:"max=64"`
}

// ControlID returns the control ID for an item ID.
func ControlID(itemID string) string {
	return ControlPrefix + itemID
}

// ItemID strips ControlPrefix from a control ID. ok is false when the
// prefix is missing.
func ItemID(controlID string) (id string, ok bool) {
	return strings.CutPrefix(controlID, ControlPrefix)
}

// Control is the derived presentation of one item.
type Control struct {
	ID         string
	Name       string
	Value      string
	Checked    bool
	Background string
	Outline    string
}

// Group holds the selection state of one radio group. It is safe for
// concurrent use; onChange is never called with the lock held.
type Group struct {
	mu       sync.Mutex
	items    []Item
	selected int
	mounted  bool
	onChange func(color string)
}

// NewGroup returns an unmounted group over a copy of items. onChange may be
// nil.
func NewGroup(items []Item, onChange func(color string)) *Group {
	return &Group{
		items:    append([]Item(nil), items...),
		onChange: onChange,
	}
}

func (g *Group) notify(color string) {
	if g.onChange != nil {
		g.onChange(color)
	}
}

// lookup returns the first item with the given ID.
func (g *Group) lookup(id string) (int, bool) {
	for i := range g.items {
		if g.items[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Mount selects the first item and reports its color. Later calls do
// nothing. An empty group reports nothing.
func (g *Group) Mount() {
	g.mu.Lock()
	if g.mounted {
		g.mu.Unlock()
		return
	}
	g.mounted = true
	g.selected = 0
	if len(g.items) == 0 {
		g.mu.Unlock()
		return
	}
	color := g.items[0].Color
	g.mu.Unlock()

	g.notify(color)
}

// Select makes the control with the given ID the selected one and reports
// its color. Selecting the current control does nothing. When no item
// matches, the selection is kept, "" is reported and ok is false.
func (g *Group) Select(controlID string) (item Item, ok bool) {
	g.mu.Lock()
	idx := -1
	if id, prefixed := ItemID(controlID); prefixed {
		idx, _ = g.lookup(id)
	}
	if idx < 0 {
		g.mu.Unlock()
		g.notify("")
		return Item{}, false
	}

	item = g.items[idx]
	changed := !g.mounted || idx != g.selected
	g.mounted = true
	g.selected = idx
	g.mu.Unlock()

	if changed {
		g.notify(item.Color)
	}
	return item, true
}

// Selected returns the selected item. ok is false for an empty group.
func (g *Group) Selected() (Item, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.items) == 0 {
		return Item{}, false
	}
	return g.items[g.selected], true
}

// Value returns the selected color, or "" for an empty group.
func (g *Group) Value() string {
	item, _ := g.Selected()
	return item.Color
}

// Items returns a copy of the group's items.
func (g *Group) Items() []Item {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Item(nil), g.items...)
}

// Controls derives one Control per item. Before Mount the first control is
// reported as checked.
func (g *Group) Controls() []Control {
	g.mu.Lock()
	defer g.mu.Unlock()

	controls := make([]Control, len(g.items))
	for i, item := range g.items {
		c := Control{
			ID:      ControlID(item.ID),
			Name:    GroupName,
			Value:   ControlID(item.ID),
			Checked: i == g.selected,
		}
		if id, ok := ItemID(c.ID); ok {
			if j, found := g.lookup(id); found {
				c.Background = g.items[j].Color
				c.Outline = g.items[j].BorderColor
			}
		}
		controls[i] = c
	}
	return controls
}
