package editor

import "strings"

// KeyEvent is a keyboard event as reported by the client.
type KeyEvent struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
	Alt   bool   `json:"alt"`

	// InEditor is set when the event target is inside the editing surface.
	InEditor bool `json:"in_editor"`
}

var shortcuts = map[string]CommandID{
	"`": CmdToggleCode,
	"b": CmdToggleBold,
	"h": CmdToggleHighlight,
}

// ResolveShortcut maps Ctrl+` / Ctrl+B / Ctrl+H to their commands. Events
// from outside the editing surface never resolve, so browser shortcuts
// elsewhere on the page keep working.
func ResolveShortcut(ev KeyEvent) (CommandID, bool) {
	if !ev.InEditor || !ev.Ctrl || ev.Alt || ev.Meta {
		return "", false
	}
	id, ok := shortcuts[strings.ToLower(ev.Key)]
	return id, ok
}
