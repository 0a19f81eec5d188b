package events

import (
	"context"
	"sync"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

// Kind tags an event on the wire
type Kind string

const (
	KindUserEcho          Kind = "user-echo"
	KindPartialContent    Kind = "ai-partial-content"
	KindComplete          Kind = "ai-complete"
	KindToolCallAnnounced Kind = "tool-call-announced"
	KindToolOutput        Kind = "tool-output"
	KindObservationResult Kind = "observation-result"
	KindCharacterSnapshot Kind = "character-snapshot"
	KindSystemNotice      Kind = "system-notice"
	KindError             Kind = "error"

	// Request lifecycle, published by the worker around a turn
	KindRequestQueued     Kind = "request.queued"
	KindRequestProcessing Kind = "request.processing"
	KindRequestCompleted  Kind = "request.completed"
	KindRequestFailed     Kind = "request.failed"
)

// ToolCallInfo describes a tool call for the UI
type ToolCallInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Output    string         `json:"output,omitempty"`
	Phase     string         `json:"phase,omitempty"`
}

// Event is one notification for the UI. Which payload fields are set
// depends on Type.
type Event struct {
	Type      Kind                `json:"type"`
	StoryID   string              `json:"story_id,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
	Content   string              `json:"content,omitempty"`
	ToolCall  *ToolCallInfo       `json:"tool_call,omitempty"`
	Character *character.Snapshot `json:"character,omitempty"`
	Data      map[string]any      `json:"data,omitempty"`
}

func UserEcho(text string) Event {
	return Event{Type: KindUserEcho, Content: text}
}

// PartialContent carries one streamed chunk of assistant text
func PartialContent(chunk string) Event {
	return Event{Type: KindPartialContent, Content: chunk}
}

// Complete marks the end of a turn and carries the final narration
func Complete(text string) Event {
	return Event{Type: KindComplete, Content: text}
}

func ToolCallAnnounced(phase string, call chat.ToolCall) Event {
	return Event{Type: KindToolCallAnnounced, ToolCall: &ToolCallInfo{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: call.Arguments,
		Phase:     phase,
	}}
}

func ToolOutput(phase string, call chat.ToolCall, output string) Event {
	return Event{Type: KindToolOutput, ToolCall: &ToolCallInfo{
		ID:     call.ID,
		Name:   call.Name,
		Output: output,
		Phase:  phase,
	}}
}

// ObservationResult carries the prose note appended by the observation pass
func ObservationResult(note string) Event {
	return Event{Type: KindObservationResult, Content: note}
}

func CharacterSnapshot(snap character.Snapshot) Event {
	return Event{Type: KindCharacterSnapshot, Character: &snap}
}

func SystemNotice(text string) Event {
	return Event{Type: KindSystemNotice, Content: text}
}

// Failure reports a transport or model error, distinct from narration
func Failure(err error) Event {
	return Event{Type: KindError, Content: err.Error()}
}

// Sink receives the events of a turn in order
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Emit(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Discard drops every event
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// Recorder keeps every event it receives
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind filters the recorded events
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == k {
			out = append(out, e)
		}
	}
	return out
}
