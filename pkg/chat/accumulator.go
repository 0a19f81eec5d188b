package chat

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ToolCallDelta is a partial tool call inside one streamed fragment.
// Deltas with the same Index belong to the same call; ID and Name usually
// arrive once and Arguments arrives as consecutive pieces of a JSON string.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

// Fragment is one piece of a streamed model response
type Fragment struct {
	Content   string
	ToolCalls []ToolCallDelta
}

type partialCall struct {
	id   string
	name string
	args strings.Builder
}

// Accumulator folds streamed fragments into a single assistant message.
// Content is concatenated; tool-call deltas are merged by index.
type Accumulator struct {
	content strings.Builder
	calls   map[int]*partialCall
}

func NewAccumulator() *Accumulator {
	return &Accumulator{calls: make(map[int]*partialCall)}
}

// Add merges one fragment
func (a *Accumulator) Add(f Fragment) {
	a.content.WriteString(f.Content)
	for _, d := range f.ToolCalls {
		pc, ok := a.calls[d.Index]
		if !ok {
			pc = &partialCall{}
			a.calls[d.Index] = pc
		}
		if d.ID != "" {
			pc.id = d.ID
		}
		if d.Name != "" {
			pc.name = d.Name
		}
		pc.args.WriteString(d.Arguments)
	}
}

// Content returns the text accumulated so far
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Message returns the merged assistant message. Tool calls are ordered by
// index. A call whose arguments are not a JSON object keeps the raw text
// under "_raw" so dispatch can report the malformed input instead of
// losing the call.
func (a *Accumulator) Message() Message {
	msg := Message{Role: RoleAssistant, Content: a.content.String()}
	indexes := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)

	for _, i := range indexes {
		pc := a.calls[i]
		if pc.name == "" {
			continue
		}
		args, err := ParseArguments(pc.args.String())
		if err != nil {
			args = map[string]any{RawArgumentsKey: pc.args.String()}
		}
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{ID: pc.id, Name: pc.name, Arguments: args})
	}
	return msg
}

// RawArgumentsKey holds unparseable tool arguments
const RawArgumentsKey = "_raw"

// ParseArguments decodes a JSON argument object. An empty string is an
// empty argument set.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
