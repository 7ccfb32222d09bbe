package domain

import "context"

// ItemKind discriminates reply items.
type ItemKind string

const (
	ItemText     ItemKind = "text"
	ItemMenu     ItemKind = "menu"
	ItemDocument ItemKind = "document"
)

// MenuOption is one selectable entry in a menu item.
type MenuOption struct {
	Code  string
	Label string
}

// ReplyItem is one ordered piece of a turn's output.
type ReplyItem struct {
	Kind     ItemKind
	Text     string       // text body, or the document caption
	Options  []MenuOption // menu only
	Document *Binary      // document only
}

// Reply is the full intended output of one conversation turn. How it reaches
// the user depends on the active channel mode: sequential channels emit one
// outbound call per item, consolidated channels collapse everything into a
// single payload.
type Reply struct {
	Items []ReplyItem
}

// AddText appends a text item.
func (r *Reply) AddText(text string) {
	r.Items = append(r.Items, ReplyItem{Kind: ItemText, Text: text})
}

// AddMenu appends a menu item with its options.
func (r *Reply) AddMenu(text string, opts []MenuOption) {
	r.Items = append(r.Items, ReplyItem{Kind: ItemMenu, Text: text, Options: opts})
}

// AddDocument appends a document item with its caption.
func (r *Reply) AddDocument(caption string, bin *Binary) {
	r.Items = append(r.Items, ReplyItem{Kind: ItemDocument, Text: caption, Document: bin})
}

// Empty reports whether the reply carries no items.
func (r *Reply) Empty() bool { return len(r.Items) == 0 }

// Channel delivers a turn's reply to the user through the active provider.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, to Identity, reply *Reply) error
}
