package editor

import (
	"fmt"

	"thoughtbox/internal/domain/models/doctree"
)

// DefaultPlaceholder is shown in an empty paragraph.
const DefaultPlaceholder = "Type '/' for commands"

type Placeholder struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text,omitempty"`
}

// PlaceholderFor derives the placeholder from the active block: the
// default text for an empty paragraph, "Heading N" for a heading holding
// only "/", nothing otherwise.
func PlaceholderFor(b doctree.BlockState) Placeholder {
	switch {
	case b.Type == doctree.BlockParagraph && b.IsEmpty:
		return Placeholder{Visible: true, Text: DefaultPlaceholder}
	case b.Type == doctree.BlockHeading && b.IsSlashOnly:
		return Placeholder{Visible: true, Text: fmt.Sprintf("Heading %d", b.HeadingLevel)}
	default:
		return Placeholder{}
	}
}
