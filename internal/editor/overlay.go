package editor

import (
	"unicode"

	"thoughtbox/internal/domain/models/doctree"
)

// TopLayer is the stacking order of overlays; it sits above all document content.
const TopLayer = 1000

// DefaultToolbarHeight is used until the client reports a measured height.
const DefaultToolbarHeight = 40

// Rect is a client-measured bounding box in viewport pixels.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// OverlayView is what the client renders for a floating UI. Pointer-down
// on an overlay must call preventDefault so the live selection survives.
type OverlayView struct {
	Open                  bool      `json:"open"`
	Top                   float64   `json:"top"`
	Left                  float64   `json:"left"`
	ZIndex                int       `json:"z_index"`
	PreventPointerDefault bool      `json:"prevent_pointer_default"`
	Query                 string    `json:"query,omitempty"`
	Items                 []Command `json:"items,omitempty"`
}

// SlashMenu tracks the inline command palette. It opens on an independent
// "/" and filters entries by the text typed after it.
type SlashMenu struct {
	open  bool
	slash doctree.LinearPoint // position of the "/" that opened the menu
	query string
	rect  Rect
}

func isBoundary(r rune, present bool) bool {
	return !present || unicode.IsSpace(r)
}

// OnTextInput is called after text was inserted, with the caret after it.
// A lone "/" opens the menu when the characters on both sides of it are
// absent or whitespace; while open, the query follows the typed text.
func (m *SlashMenu) OnTextInput(doc doctree.Document, caret doctree.Point, text string, caretRect Rect) {
	lp, ok := doctree.ToLinear(doc, caret)
	if !ok {
		m.Close()
		return
	}

	if m.open {
		m.track(doc, lp)
		return
	}
	if text != "/" {
		return
	}

	slashAt := doctree.LinearPoint{Line: lp.Line, Offset: lp.Offset - 1}
	before, _ := doctree.CaretAt(doc, doctree.FromLinear(doc, slashAt))
	after, _ := doctree.CaretAt(doc, caret)
	if !isBoundary(before.Before, before.HasBefore) || !isBoundary(after.After, after.HasAfter) {
		return
	}
	m.open, m.slash, m.query, m.rect = true, slashAt, "", caretRect
}

// OnSelectionChange closes the menu when the caret reaches the start of
// its block or leaves the line holding the "/".
func (m *SlashMenu) OnSelectionChange(doc doctree.Document, sel *doctree.Selection) {
	if !m.open {
		return
	}
	if sel == nil || !sel.IsCollapsed() {
		m.Close()
		return
	}
	lp, ok := doctree.ToLinear(doc, sel.Focus)
	if !ok {
		m.Close()
		return
	}
	m.track(doc, lp)
}

func (m *SlashMenu) track(doc doctree.Document, caret doctree.LinearPoint) {
	if caret.Offset == 0 || caret.Line != m.slash.Line || caret.Offset <= m.slash.Offset {
		m.Close()
		return
	}
	m.query = doctree.TextBetween(doc, caret.Line, m.slash.Offset+1, caret.Offset)
}

// Close hides the menu. Backspace and Escape call it.
func (m *SlashMenu) Close() {
	m.open, m.query = false, ""
}

// IsOpen reports whether the menu is showing.
func (m *SlashMenu) IsOpen() bool {
	return m.open
}

// Items returns the entries matching the current query.
func (m *SlashMenu) Items() []Command {
	if !m.open {
		return nil
	}
	return SlashCommands(m.query)
}

// View positions the menu just below the caret.
func (m *SlashMenu) View() OverlayView {
	if !m.open {
		return OverlayView{ZIndex: TopLayer, PreventPointerDefault: true}
	}
	return OverlayView{
		Open:                  true,
		Top:                   m.rect.Top + m.rect.Height,
		Left:                  m.rect.Left,
		ZIndex:                TopLayer,
		PreventPointerDefault: true,
		Query:                 m.query,
		Items:                 m.Items(),
	}
}

// Toolbar tracks the floating formatting toolbar. It only opens on
// mouse-up over a non-collapsed selection, so caret movement never flashes
// it, and a manual close is latched until a different selection is made.
type Toolbar struct {
	open   bool
	hidden *doctree.Selection // manually closed for this selection
	height float64
	rect   Rect
}

// SetHeight records the toolbar's measured height.
func (t *Toolbar) SetHeight(h float64) {
	if h > 0 {
		t.height = h
	}
}

func (t *Toolbar) measuredHeight() float64 {
	if t.height > 0 {
		return t.height
	}
	return DefaultToolbarHeight
}

// OnMouseUp opens the toolbar above rect for a non-collapsed selection.
func (t *Toolbar) OnMouseUp(sel *doctree.Selection, rect Rect) {
	if sel == nil || sel.IsCollapsed() {
		t.open = false
		return
	}
	if t.hidden != nil && t.hidden.Equal(*sel) {
		return
	}
	t.open, t.hidden, t.rect = true, nil, rect
}

// OnSelectionChange closes the toolbar once the selection collapses, which
// also re-arms the latch.
func (t *Toolbar) OnSelectionChange(sel *doctree.Selection) {
	if sel == nil || sel.IsCollapsed() {
		t.open, t.hidden = false, nil
	}
}

// Close hides the toolbar for the current selection (close button, click
// outside).
func (t *Toolbar) Close(sel *doctree.Selection) {
	t.open = false
	if sel != nil && !sel.IsCollapsed() {
		cp := *sel
		t.hidden = &cp
	}
}

// OnCommand closes the toolbar after commands that collapse the selection.
func (t *Toolbar) OnCommand(c Command) {
	if c.CollapsesSelection {
		t.open, t.hidden = false, nil
	}
}

// IsOpen reports whether the toolbar is showing.
func (t *Toolbar) IsOpen() bool {
	return t.open
}

// View places the toolbar its own height above the selection.
func (t *Toolbar) View() OverlayView {
	v := OverlayView{ZIndex: TopLayer, PreventPointerDefault: true}
	if t.open {
		v.Open = true
		v.Top = t.rect.Top - t.measuredHeight()
		v.Left = t.rect.Left
		v.Items = ToolbarCommands()
	}
	return v
}
