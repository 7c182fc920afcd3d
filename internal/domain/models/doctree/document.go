// Package doctree is the structured rich-text model behind every thought.
//
// A Document is an ordered list of blocks. Blocks form a closed set of
// variants (see Block); leaf blocks hold Text runs, list containers hold
// list items. All functions in this package are pure: transforms return a
// new Document and leave their input untouched.
package doctree

import (
	"fmt"
	"reflect"
)

// BlockType is the wire tag of a block variant.
type BlockType string

const (
	BlockParagraph    BlockType = "paragraph"
	BlockHeading      BlockType = "heading"
	BlockBulletList   BlockType = "bullet-list"
	BlockNumberedList BlockType = "numbered-list"
	BlockListItem     BlockType = "list-item"
	BlockCode         BlockType = "code"
)

// IsList reports whether t is a list container type.
func (t BlockType) IsList() bool {
	return t == BlockBulletList || t == BlockNumberedList
}

// MaxHeadingLevel is the deepest heading the editor supports.
const MaxHeadingLevel = 3

// Block is implemented by *Paragraph, *Heading, *BulletList, *NumberedList,
// *ListItem and *Code. The set is closed: the unexported method keeps other
// packages from adding variants, so every type switch over Block in this
// module handles exactly these six.
type Block interface {
	Type() BlockType
	isBlock()
}

// TextBlock is a block whose children are text runs.
type TextBlock interface {
	Block
	Texts() []Text
}

type (
	Paragraph struct {
		Children []Text
	}

	Heading struct {
		Level    int
		Children []Text
	}

	Code struct {
		Children []Text
	}

	ListItem struct {
		Children []Text
	}

	BulletList struct {
		Items []*ListItem
	}

	NumberedList struct {
		Items []*ListItem
	}
)

func (*Paragraph) Type() BlockType    { return BlockParagraph }
func (*Heading) Type() BlockType      { return BlockHeading }
func (*Code) Type() BlockType         { return BlockCode }
func (*ListItem) Type() BlockType     { return BlockListItem }
func (*BulletList) Type() BlockType   { return BlockBulletList }
func (*NumberedList) Type() BlockType { return BlockNumberedList }

func (*Paragraph) isBlock()    {}
func (*Heading) isBlock()      {}
func (*Code) isBlock()         {}
func (*ListItem) isBlock()     {}
func (*BulletList) isBlock()   {}
func (*NumberedList) isBlock() {}

func (b *Paragraph) Texts() []Text { return b.Children }
func (b *Heading) Texts() []Text   { return b.Children }
func (b *Code) Texts() []Text      { return b.Children }
func (b *ListItem) Texts() []Text  { return b.Children }

// Document is the full content of one version.
type Document []Block

// New returns the content every new thought starts with: one empty paragraph.
func New() Document {
	return Document{&Paragraph{Children: []Text{{}}}}
}

// Mark is one of the independent inline formatting flags.
type Mark string

const (
	MarkBold        Mark = "bold"
	MarkItalic      Mark = "italic"
	MarkUnderline   Mark = "underline"
	MarkLinethrough Mark = "linethrough"
	MarkHighlight   Mark = "highlight"
)

// Marks is the set of flags carried by a text run.
type Marks struct {
	Bold        bool `json:"bold,omitempty"`
	Italic      bool `json:"italic,omitempty"`
	Underline   bool `json:"underline,omitempty"`
	Linethrough bool `json:"linethrough,omitempty"`
	Highlight   bool `json:"highlight,omitempty"`
}

// Has reports whether m is set.
func (ms Marks) Has(m Mark) bool {
	switch m {
	case MarkBold:
		return ms.Bold
	case MarkItalic:
		return ms.Italic
	case MarkUnderline:
		return ms.Underline
	case MarkLinethrough:
		return ms.Linethrough
	case MarkHighlight:
		return ms.Highlight
	}
	return false
}

// With returns a copy of ms with m set to on.
func (ms Marks) With(m Mark, on bool) Marks {
	switch m {
	case MarkBold:
		ms.Bold = on
	case MarkItalic:
		ms.Italic = on
	case MarkUnderline:
		ms.Underline = on
	case MarkLinethrough:
		ms.Linethrough = on
	case MarkHighlight:
		ms.Highlight = on
	}
	return ms
}

// Text is a run of characters sharing one set of marks.
type Text struct {
	Text string `json:"text"`
	Marks
}

// Equal reports whether a and b hold the same blocks and runs.
func Equal(a, b Document) bool {
	return reflect.DeepEqual(a, b)
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for i, b := range d {
		out[i] = cloneBlock(b)
	}
	return out
}

func cloneBlock(b Block) Block {
	switch v := b.(type) {
	case *Paragraph:
		return &Paragraph{Children: cloneTexts(v.Children)}
	case *Heading:
		return &Heading{Level: v.Level, Children: cloneTexts(v.Children)}
	case *Code:
		return &Code{Children: cloneTexts(v.Children)}
	case *ListItem:
		return &ListItem{Children: cloneTexts(v.Children)}
	case *BulletList:
		return &BulletList{Items: cloneItems(v.Items)}
	case *NumberedList:
		return &NumberedList{Items: cloneItems(v.Items)}
	default:
		panic(fmt.Sprintf("doctree: unhandled block %T", b))
	}
}

func cloneTexts(ts []Text) []Text {
	out := make([]Text, len(ts))
	copy(out, ts)
	return out
}

func cloneItems(items []*ListItem) []*ListItem {
	out := make([]*ListItem, len(items))
	for i, it := range items {
		out[i] = &ListItem{Children: cloneTexts(it.Children)}
	}
	return out
}

// PlainText joins the text of a leaf block.
func PlainText(b TextBlock) string {
	var n int
	for _, t := range b.Texts() {
		n += len(t.Text)
	}
	buf := make([]byte, 0, n)
	for _, t := range b.Texts() {
		buf = append(buf, t.Text...)
	}
	return string(buf)
}
