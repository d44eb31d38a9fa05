// Package intent decodes a model reply into a typed variant: either a
// structured capability call or plain conversational text. All downstream
// routing switches on the decoded kind instead of re-inspecting strings.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the decoded variant of a model reply.
type Kind int

const (
	// KindPlainText is a free-text reply, including anything that fails
	// to decode as a capability call.
	KindPlainText Kind = iota
	// KindFunctionCall is a well-formed capability invocation.
	KindFunctionCall
	// KindMalformed is a reply that names a function but has an unusable
	// shape (non-string name, non-object arguments).
	KindMalformed
)

// Intent is the decoded model reply.
type Intent struct {
	Kind Kind
	Name string
	Args map[string]string
	Raw  string
}

// envelope mirrors the JSON contract the system prompt demands from the model.
type envelope struct {
	Function  json.RawMessage `json:"function"`
	Arguments json.RawMessage `json:"arguments"`
}

// Parse decodes raw into an Intent. A function call is recognized only when
// raw is a valid JSON object carrying a "function" key; everything else,
// including valid JSON without that key, degrades to plain text carrying the
// original input. Parse never fails.
func Parse(raw string) Intent {
	text := strings.TrimSpace(raw)

	// Smaller models tend to wrap their JSON in a markdown code fence.
	text = stripCodeFence(text)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return Intent{Kind: KindPlainText, Raw: raw}
	}
	if _, ok := fields["function"]; !ok {
		return Intent{Kind: KindPlainText, Raw: raw}
	}

	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return Intent{Kind: KindMalformed, Raw: raw}
	}

	var name string
	if err := json.Unmarshal(env.Function, &name); err != nil || name == "" {
		return Intent{Kind: KindMalformed, Raw: raw}
	}

	args, err := decodeArguments(env.Arguments)
	if err != nil {
		return Intent{Kind: KindMalformed, Name: name, Raw: raw}
	}

	return Intent{Kind: KindFunctionCall, Name: name, Args: args, Raw: raw}
}

// decodeArguments flattens the arguments object into string values. Models
// occasionally emit numbers or booleans where strings are expected; those are
// stringified rather than rejected.
func decodeArguments(raw json.RawMessage) (map[string]string, error) {
	args := make(map[string]string)
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}

	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	for k, v := range values {
		switch s := v.(type) {
		case string:
			args[k] = s
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", k, err)
			}
			args[k] = string(b)
		}
	}
	return args, nil
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) >= 3 && strings.HasPrefix(lines[len(lines)-1], "```") {
		return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
	}
	return text
}
