// Package reply describes the single outbound response an inbound event may
// produce. Delivery is left to the connection adapter.
package reply

// Kind selects how a Response is delivered.
type Kind int

const (
	KindNone Kind = iota
	KindText
	KindReact
	KindDirect
	KindError
	KindPanel
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindText:
		return "text"
	case KindReact:
		return "react"
	case KindDirect:
		return "direct"
	case KindError:
		return "error"
	case KindPanel:
		return "panel"
	default:
		return "unknown"
	}
}

// Panel colours.
const (
	ColorError   = 0xFF0000
	ColorAllowed = 0x00FF00
	ColorDenied  = 0xAA5533
	ColorInfo    = 0x3498DB
)

// Field is one titled section of a panel.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich panel.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
}

// AddField appends a field and returns the embed for chaining.
func (e *Embed) AddField(name, value string, inline bool) *Embed {
	e.Fields = append(e.Fields, Field{Name: name, Value: value, Inline: inline})
	return e
}

// Response is what a handler returns. Only the fields relevant to Kind are set.
type Response struct {
	Kind Kind
	Text string
	// Emoji is the reaction for KindReact. Empty means the configured default.
	Emoji string
	Embed *Embed
}

// IsNone reports whether r produces no output.
func (r Response) IsNone() bool {
	return r.Kind == KindNone
}

// None produces nothing.
func None() Response {
	return Response{Kind: KindNone}
}

// Text sends plain text to the channel of the event.
func Text(s string) Response {
	return Response{Kind: KindText, Text: s}
}

// React reacts to the inbound message. An empty emoji uses the default.
func React(emoji string) Response {
	return Response{Kind: KindReact, Emoji: emoji}
}

// Direct sends text to the actor privately.
func Direct(s string) Response {
	return Response{Kind: KindDirect, Text: s}
}

// DirectPanel sends a panel to the actor privately.
func DirectPanel(e Embed) Response {
	return Response{Kind: KindDirect, Embed: &e}
}

// Error sends a red panel titled msg, with optional detail as its body.
func Error(msg string, detail ...string) Response {
	e := Embed{Title: msg, Color: ColorError}
	if len(detail) > 0 {
		e.Description = detail[0]
	}
	if len(detail) > 1 {
		e.Footer = detail[1]
	}
	return Response{Kind: KindError, Text: msg, Embed: &e}
}

// Panel sends a rich panel to the channel of the event.
func Panel(e Embed) Response {
	return Response{Kind: KindPanel, Embed: &e}
}
