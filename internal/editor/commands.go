// Package editor is the headless rich-text editing core: the command
// catalog, keyboard shortcuts, the slash menu and selection toolbar
// controllers, the status state machine and the version controller, all
// tied together by Session.
package editor

import (
	"strings"

	"thoughtbox/internal/domain/models/doctree"

	"github.com/sahilm/fuzzy"
)

type CommandID string

const (
	CmdResetToParagraph   CommandID = "resetToParagraph"
	CmdToggleHeading1     CommandID = "toggleHeading1"
	CmdToggleHeading2     CommandID = "toggleHeading2"
	CmdToggleHeading3     CommandID = "toggleHeading3"
	CmdToggleBulletList   CommandID = "toggleBulletList"
	CmdToggleNumberedList CommandID = "toggleNumberedList"
	CmdToggleCode         CommandID = "toggleCode"
	CmdToggleBold         CommandID = "toggleBold"
	CmdToggleItalic       CommandID = "toggleItalic"
	CmdToggleUnderline    CommandID = "toggleUnderline"
	CmdToggleLinethrough  CommandID = "toggleLinethrough"
	CmdToggleHighlight    CommandID = "toggleHighlight"
)

type commandKind int

const (
	kindParagraph commandKind = iota
	kindBlock
	kindList
	kindMark
)

// Command is one entry of the catalog.
type Command struct {
	ID       CommandID `json:"id"`
	Label    string    `json:"label"`
	Icon     string    `json:"icon"`
	Shortcut string    `json:"shortcut,omitempty"`

	// InSlashMenu and InToolbar select where the command is offered.
	InSlashMenu bool `json:"-"`
	InToolbar   bool `json:"-"`

	// CollapsesSelection commands leave a caret behind, which also closes
	// the selection toolbar.
	CollapsesSelection bool `json:"-"`

	kind  commandKind
	block doctree.BlockType
	level int
	mark  doctree.Mark
}

var catalog = []Command{
	{ID: CmdResetToParagraph, Label: "Text", Icon: "pilcrow", InSlashMenu: true, kind: kindParagraph},
	{ID: CmdToggleHeading1, Label: "Heading 1", Icon: "heading-1", InSlashMenu: true, InToolbar: true, kind: kindBlock, block: doctree.BlockHeading, level: 1},
	{ID: CmdToggleHeading2, Label: "Heading 2", Icon: "heading-2", InSlashMenu: true, InToolbar: true, kind: kindBlock, block: doctree.BlockHeading, level: 2},
	{ID: CmdToggleHeading3, Label: "Heading 3", Icon: "heading-3", InSlashMenu: true, InToolbar: true, kind: kindBlock, block: doctree.BlockHeading, level: 3},
	{ID: CmdToggleBulletList, Label: "Bullet List", Icon: "list", InSlashMenu: true, InToolbar: true, kind: kindList, block: doctree.BlockBulletList},
	{ID: CmdToggleNumberedList, Label: "Numbered List", Icon: "list-ordered", InSlashMenu: true, InToolbar: true, kind: kindList, block: doctree.BlockNumberedList},
	{ID: CmdToggleCode, Label: "Code", Icon: "code", Shortcut: "Ctrl+`", InSlashMenu: true, InToolbar: true, CollapsesSelection: true, kind: kindBlock, block: doctree.BlockCode},
	{ID: CmdToggleBold, Label: "Bold", Icon: "bold", Shortcut: "Ctrl+B", InToolbar: true, kind: kindMark, mark: doctree.MarkBold},
	{ID: CmdToggleItalic, Label: "Italic", Icon: "italic", InToolbar: true, kind: kindMark, mark: doctree.MarkItalic},
	{ID: CmdToggleUnderline, Label: "Underline", Icon: "underline", InToolbar: true, kind: kindMark, mark: doctree.MarkUnderline},
	{ID: CmdToggleLinethrough, Label: "Strikethrough", Icon: "strikethrough", InToolbar: true, kind: kindMark, mark: doctree.MarkLinethrough},
	{ID: CmdToggleHighlight, Label: "Highlight", Icon: "highlighter", Shortcut: "Ctrl+H", InToolbar: true, kind: kindMark, mark: doctree.MarkHighlight},
}

// Commands returns the catalog in its fixed order.
func Commands() []Command {
	out := make([]Command, len(catalog))
	copy(out, catalog)
	return out
}

// LookupCommand finds a command by ID.
func LookupCommand(id CommandID) (Command, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Command{}, false
}

// Mark returns the mark a mark toggle flips.
func (c Command) Mark() (doctree.Mark, bool) {
	return c.mark, c.kind == kindMark
}

// IsActive reports whether applying c would remove its formatting.
func (c Command) IsActive(doc doctree.Document, sel *doctree.Selection) bool {
	switch c.kind {
	case kindParagraph:
		return doctree.IsBlockActive(doc, sel, doctree.BlockParagraph, 0)
	case kindBlock:
		return doctree.IsBlockActive(doc, sel, c.block, c.level)
	case kindList:
		return doctree.IsListActive(doc, sel, c.block)
	case kindMark:
		return doctree.IsMarkActive(doc, sel, c.mark)
	}
	return false
}

// Apply runs c against the selection. Mark toggles need a non-collapsed
// selection; Session turns collapsed ones into pending marks.
func (c Command) Apply(doc doctree.Document, sel *doctree.Selection) (doctree.Document, *doctree.Selection) {
	var out doctree.Document
	var outSel *doctree.Selection
	switch c.kind {
	case kindParagraph:
		out, outSel = doctree.ResetToParagraph(doc, sel)
	case kindBlock:
		out, outSel = doctree.ToggleBlock(doc, sel, c.block, c.level)
	case kindList:
		out, outSel = doctree.ToggleList(doc, sel, c.block)
	case kindMark:
		out, outSel = doctree.ToggleMark(doc, sel, c.mark)
	default:
		return doc, sel
	}
	if c.CollapsesSelection && outSel != nil {
		outSel = doctree.Caret(outSel.Focus)
	}
	return out, outSel
}

type commandSource []Command

func (s commandSource) String(i int) string { return s[i].Label }
func (s commandSource) Len() int            { return len(s) }

// SlashCommands returns the slash menu entries matching query, best match
// first. An empty query lists them all in catalog order.
func SlashCommands(query string) []Command {
	var entries commandSource
	for _, c := range catalog {
		if c.InSlashMenu {
			entries = append(entries, c)
		}
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	matches := fuzzy.FindFrom(query, entries)
	out := make([]Command, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}

// ToolbarCommands returns the selection toolbar entries in catalog order.
func ToolbarCommands() []Command {
	var out []Command
	for _, c := range catalog {
		if c.InToolbar {
			out = append(out, c)
		}
	}
	return out
}
