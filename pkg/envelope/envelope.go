// Package envelope models the request/response JSON bodies the relay passes
// between client and provider. It is deliberately a tagged tree rather than
// a full interface hierarchy: translation only ever needs to look at a
// message's role and its content blocks' type, so that is all the tree
// exposes. Everything else round-trips through json.RawMessage untouched.
package envelope

import "encoding/json"

// Role is the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// BlockType is the discriminator on a content block.
type BlockType string

const (
	BlockText BlockType = "text"
)

// Block is one element of a message's content array. Text is populated only
// when Type == BlockText; every other field of the original JSON object is
// preserved verbatim in Raw so re-marshaling reproduces it byte-for-byte.
type Block struct {
	Type BlockType
	Text string
	Raw  json.RawMessage
}

// MarshalJSON re-emits Raw with Text patched in when the block is text; any
// other block type is emitted exactly as received.
func (b Block) MarshalJSON() ([]byte, error) {
	if b.Type != BlockText {
		return b.Raw, nil
	}
	var obj map[string]json.RawMessage
	if len(b.Raw) > 0 {
		if err := json.Unmarshal(b.Raw, &obj); err != nil {
			return nil, err
		}
	}
	if obj == nil {
		obj = make(map[string]json.RawMessage, 2)
	}
	textJSON, err := json.Marshal(b.Text)
	if err != nil {
		return nil, err
	}
	obj["text"] = textJSON
	obj["type"] = json.RawMessage(`"text"`)
	return json.Marshal(obj)
}

// UnmarshalJSON keeps the full object in Raw and, for text blocks, lifts the
// text field out for easy access and mutation.
func (b *Block) UnmarshalJSON(data []byte) error {
	b.Raw = append(json.RawMessage(nil), data...)

	var head struct {
		Type BlockType `json:"type"`
		Text string    `json:"text"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	b.Type = head.Type
	if head.Type == BlockText {
		b.Text = head.Text
	}
	return nil
}

// Clone returns a deep copy of the block. For non-text blocks this merely
// copies the raw bytes; no further structural interpretation is needed since
// translation never touches them.
func (b Block) Clone() Block {
	clone := Block{Type: b.Type, Text: b.Text}
	if b.Raw != nil {
		clone.Raw = append(json.RawMessage(nil), b.Raw...)
	}
	return clone
}

// Content is a message's content, which on the wire is either a bare string
// or an array of blocks. Exactly one of Text/Blocks is meaningful, selected
// by IsString.
type Content struct {
	IsString bool
	Text     string
	Blocks   []Block
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsString {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Blocks)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.IsString = true
		c.Text = s
		c.Blocks = nil
		return nil
	}
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	c.IsString = false
	c.Blocks = blocks
	return nil
}

// Clone deep-copies the content. A string content shares no backing storage
// with the original (strings are immutable in Go, so this is trivial); a
// block content clones every block independently.
func (c Content) Clone() Content {
	if c.IsString {
		return Content{IsString: true, Text: c.Text}
	}
	blocks := make([]Block, len(c.Blocks))
	for i, b := range c.Blocks {
		blocks[i] = b.Clone()
	}
	return Content{Blocks: blocks}
}

// Message is one turn in the conversation.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// Clone deep-copies the message's content; Role is a value type and copies
// for free.
func (m Message) Clone() Message {
	return Message{Role: m.Role, Content: m.Content.Clone()}
}

// Envelope is the request body shape the relay understands. Unknown fields
// round-trip through Extra so the relay never drops provider-specific
// parameters it doesn't itself interpret.
type Envelope struct {
	Model     string                     `json:"model"`
	Stream    bool                       `json:"stream"`
	Messages  []Message                  `json:"messages"`
	System    *Content                   `json:"system,omitempty"`
	MaxTokens int                        `json:"max_tokens,omitempty"`
	SessionID string                     `json:"session_id,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

type envelopeAlias Envelope

// MarshalJSON folds Extra back into the top-level object alongside the
// named fields.
func (e Envelope) MarshalJSON() ([]byte, error) {
	named, err := json.Marshal(envelopeAlias(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return named, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(named, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON parses the named fields and stashes anything else in Extra.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var alias envelopeAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*e = Envelope(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, known := range []string{"model", "stream", "messages", "system", "max_tokens", "session_id"} {
		delete(raw, known)
	}
	if len(raw) > 0 {
		e.Extra = raw
	}
	return nil
}

// Clone returns a deep copy of the envelope. Messages and System are cloned
// node by node; Extra's raw bytes are copied wholesale since the relay never
// mutates fields it doesn't model.
func (e Envelope) Clone() Envelope {
	clone := Envelope{
		Model:     e.Model,
		Stream:    e.Stream,
		MaxTokens: e.MaxTokens,
		SessionID: e.SessionID,
	}
	if e.Messages != nil {
		clone.Messages = make([]Message, len(e.Messages))
		for i, m := range e.Messages {
			clone.Messages[i] = m.Clone()
		}
	}
	if e.System != nil {
		sys := e.System.Clone()
		clone.System = &sys
	}
	if e.Extra != nil {
		clone.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			clone.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return clone
}
