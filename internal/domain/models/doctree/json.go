package doctree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidDocument is returned for content that does not match the block grammar.
var ErrInvalidDocument = errors.New("invalid document")

type blockJSON struct {
	Type     BlockType `json:"type"`
	Level    int       `json:"level,omitempty"`
	Children any       `json:"children"`
}

type rawBlock struct {
	Type     *string           `json:"type"`
	Level    *int              `json:"level"`
	Children []json.RawMessage `json:"children"`
}

type rawText struct {
	Text *string `json:"text"`
	Marks
}

// MarshalJSON encodes the document in its wire shape.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make([]blockJSON, len(d))
	for i, b := range d {
		out[i] = encodeBlock(b)
	}
	return json.Marshal(out)
}

func encodeBlock(b Block) blockJSON {
	switch v := b.(type) {
	case *Paragraph:
		return blockJSON{Type: BlockParagraph, Children: nonNilTexts(v.Children)}
	case *Heading:
		return blockJSON{Type: BlockHeading, Level: v.Level, Children: nonNilTexts(v.Children)}
	case *Code:
		return blockJSON{Type: BlockCode, Children: nonNilTexts(v.Children)}
	case *ListItem:
		return blockJSON{Type: BlockListItem, Children: nonNilTexts(v.Children)}
	case *BulletList:
		return blockJSON{Type: BlockBulletList, Children: encodeItems(v.Items)}
	case *NumberedList:
		return blockJSON{Type: BlockNumberedList, Children: encodeItems(v.Items)}
	default:
		panic(fmt.Sprintf("doctree: unhandled block %T", b))
	}
}

func nonNilTexts(ts []Text) []Text {
	if len(ts) == 0 {
		return []Text{{}}
	}
	return ts
}

func encodeItems(items []*ListItem) []blockJSON {
	out := make([]blockJSON, len(items))
	for i, it := range items {
		out[i] = encodeBlock(it)
	}
	return out
}

// UnmarshalJSON decodes with the same strict rules as Parse.
func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Parse decodes and validates a document. It is the only way untrusted
// content (client payloads, stored rows, model output) becomes a Document:
// unknown block types, unknown text attributes, out of range heading levels
// and misplaced children are all rejected.
func Parse(data []byte) (Document, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: document has no blocks", ErrInvalidDocument)
	}

	doc := make(Document, 0, len(raws))
	for i, raw := range raws {
		b, err := parseBlock(raw, false)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d: %v", ErrInvalidDocument, i, err)
		}
		doc = append(doc, b)
	}
	return Normalize(doc), nil
}

func strictDecode(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func parseBlock(data []byte, inList bool) (Block, error) {
	var raw rawBlock
	if err := strictDecode(data, &raw); err != nil {
		return nil, err
	}
	if raw.Type == nil {
		return nil, errors.New("missing type")
	}
	typ := BlockType(*raw.Type)
	if raw.Level != nil && typ != BlockHeading {
		return nil, fmt.Errorf("level is only valid on headings, got %q", typ)
	}
	if inList != (typ == BlockListItem) {
		if inList {
			return nil, fmt.Errorf("lists may only contain list items, got %q", typ)
		}
		return nil, errors.New("list item outside a list")
	}

	switch typ {
	case BlockParagraph:
		texts, err := parseTexts(raw.Children)
		return &Paragraph{Children: texts}, err
	case BlockHeading:
		if raw.Level == nil || *raw.Level < 1 || *raw.Level > MaxHeadingLevel {
			return nil, fmt.Errorf("heading level must be 1..%d", MaxHeadingLevel)
		}
		texts, err := parseTexts(raw.Children)
		return &Heading{Level: *raw.Level, Children: texts}, err
	case BlockCode:
		texts, err := parseTexts(raw.Children)
		return &Code{Children: texts}, err
	case BlockListItem:
		texts, err := parseTexts(raw.Children)
		return &ListItem{Children: texts}, err
	case BlockBulletList:
		items, err := parseItems(raw.Children)
		return &BulletList{Items: items}, err
	case BlockNumberedList:
		items, err := parseItems(raw.Children)
		return &NumberedList{Items: items}, err
	default:
		return nil, fmt.Errorf("unknown block type %q", typ)
	}
}

func parseTexts(children []json.RawMessage) ([]Text, error) {
	texts := make([]Text, 0, len(children))
	for i, child := range children {
		var rt rawText
		if err := strictDecode(child, &rt); err != nil {
			return nil, fmt.Errorf("text %d: %v", i, err)
		}
		if rt.Text == nil {
			return nil, fmt.Errorf("text %d: missing text", i)
		}
		texts = append(texts, Text{Text: *rt.Text, Marks: rt.Marks})
	}
	return texts, nil
}

func parseItems(children []json.RawMessage) ([]*ListItem, error) {
	if len(children) == 0 {
		return nil, errors.New("list has no items")
	}
	items := make([]*ListItem, 0, len(children))
	for i, child := range children {
		b, err := parseBlock(child, true)
		if err != nil {
			return nil, fmt.Errorf("item %d: %v", i, err)
		}
		items = append(items, b.(*ListItem))
	}
	return items, nil
}
