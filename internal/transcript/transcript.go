package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FunctionCall is one tool invocation the agent made in place of speech.
// Raw keeps the original item so entries without a function name can still be
// rendered.
type FunctionCall struct {
	Name      string
	Arguments string
	Raw       json.RawMessage
}

// Entry is one turn of a conversation. Exactly one of Text or FunctionCalls is
// meaningful: FunctionCalls is non-nil only for tool-call turns.
type Entry struct {
	Speaker       string
	Text          string
	FunctionCalls []FunctionCall
}

func (e Entry) IsFunctionCall() bool { return e.FunctionCalls != nil }

// Line renders the entry as "speaker: message".
func (e Entry) Line() string {
	if !e.IsFunctionCall() {
		return e.Speaker + ": " + e.Text
	}
	parts := make([]string, 0, len(e.FunctionCalls))
	for _, fc := range e.FunctionCalls {
		if fc.Name == "" {
			parts = append(parts, string(fc.Raw))
			continue
		}
		parts = append(parts, fc.Name+"("+fc.Arguments+")")
	}
	msg := strings.Join(parts, "; ")
	if msg == "" {
		msg = "[Function call]"
	}
	return e.Speaker + ": " + msg
}

// UnmarshalJSON decodes the single-key form {"<speaker>": <value>} where value
// is either a string or a list of tool calls. Only the first key is used.
func (e *Entry) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("transcript entry: expected object, got %v", tok)
	}
	if !dec.More() {
		*e = Entry{}
		return nil
	}
	keyTok, err := dec.Token()
	if err != nil {
		return err
	}
	speaker, _ := keyTok.(string)

	var value json.RawMessage
	if err := dec.Decode(&value); err != nil {
		return err
	}

	out := Entry{Speaker: speaker}
	value = bytes.TrimSpace(value)
	switch {
	case len(value) == 0 || string(value) == "null":
	case value[0] == '"':
		if err := json.Unmarshal(value, &out.Text); err != nil {
			return err
		}
	case value[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return err
		}
		out.FunctionCalls = make([]FunctionCall, 0, len(items))
		for _, it := range items {
			out.FunctionCalls = append(out.FunctionCalls, decodeFunctionCall(it))
		}
	default:
		out.Text = string(value)
	}
	*e = out
	return nil
}

func (e Entry) MarshalJSON() ([]byte, error) {
	if !e.IsFunctionCall() {
		return json.Marshal(map[string]string{e.Speaker: e.Text})
	}
	items := make([]json.RawMessage, 0, len(e.FunctionCalls))
	for _, fc := range e.FunctionCalls {
		if len(fc.Raw) > 0 {
			items = append(items, fc.Raw)
			continue
		}
		b, err := json.Marshal(map[string]any{
			"function": map[string]string{"name": fc.Name, "arguments": fc.Arguments},
		})
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return json.Marshal(map[string][]json.RawMessage{e.Speaker: items})
}

func decodeFunctionCall(raw json.RawMessage) FunctionCall {
	fc := FunctionCall{Raw: raw}
	var item struct {
		Function *struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &item); err != nil || item.Function == nil {
		return fc
	}
	fc.Name = item.Function.Name
	args := bytes.TrimSpace(item.Function.Arguments)
	switch {
	case len(args) == 0 || string(args) == "null":
	case args[0] == '"':
		_ = json.Unmarshal(args, &fc.Arguments)
	default:
		fc.Arguments = string(args)
	}
	return fc
}

// Metadata describes the conversation around the transcript. Optional fields
// are empty or nil when the source did not report them.
type Metadata struct {
	Type            string   `json:"type"`
	AgentName       string   `json:"agentName,omitempty"`
	Status          string   `json:"status,omitempty"`
	CallDuration    *float64 `json:"callDuration,omitempty"`
	ChannelType     string   `json:"channelType,omitempty"`
	GreetingMessage string   `json:"greetingMessage,omitempty"`
}

type Transcript struct {
	Entries  []Entry  `json:"entries"`
	Metadata Metadata `json:"metadata"`
}

// Text is the newline-joined rendering of all entries.
func (t *Transcript) Text() string {
	if t == nil {
		return ""
	}
	return Format(t.Entries)
}

func Format(entries []Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Line())
	}
	return strings.Join(lines, "\n")
}
