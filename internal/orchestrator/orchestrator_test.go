package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gamemaster-agent/internal/services"
	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/events"
	"github.com/jwebster45206/gamemaster-agent/pkg/prompts"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

const (
	actionModel      = "gm-large"
	creationModel    = "gm-create"
	observationModel = "gm-small"
)

const createArgs = `{
	"name": "Aria Swiftwind",
	"lore": "A ranger of the northern woods.",
	"level_and_experience": {"level": 1, "experience": 0, "experience_to_next_level": 10},
	"health_and_mana": {"current_health": 12, "max_health": 12, "current_mana": 5, "max_mana": 5},
	"equipment": {"main_hand": {"name": "Longbow", "description": "Yew bow", "weight": 1.5}, "head": null}
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(llm services.LLMService, maxCalls int) *Orchestrator {
	return New(llm, prompts.Default(), Config{
		ActionModel:      actionModel,
		CreationModel:    creationModel,
		ObservationModel: observationModel,
		MaxToolCalls:     maxCalls,
		PhaseTimeout:     5 * time.Second,
	}, testLogger())
}

func newSession(created bool) *story.Session {
	rec := story.NewRecord("tester", "Test", "", "")
	s := story.NewSession(rec, prompts.Default(), testLogger())
	if created {
		s.Character.Create(character.CreateParams{
			Name:          "Aria",
			HealthAndMana: character.HealthAndMana{CurrentHealth: 10, MaxHealth: 10, CurrentMana: 10, MaxMana: 10},
		})
	}
	return s
}

func countRole(msgs []chat.Message, role string) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

func TestCreateCharacter(t *testing.T) {
	llm := services.NewMockLLMAPI().
		Script(creationModel, services.ToolCallChunk(0, "", "create_character", createArgs))
	o := newTestOrchestrator(llm, 0)
	s := newSession(false)
	s.Append(chat.UserMessage("stale"))
	rec := &events.Recorder{}

	err := o.CreateCharacter(context.Background(), s, "A ranger named Aria", rec)
	require.NoError(t, err)

	assert.True(t, s.Character.IsCreated())
	assert.Equal(t, "Aria Swiftwind", s.Character.Name())
	bow, ok := s.Character.Equipped(character.SlotMainHand)
	require.True(t, ok)
	assert.Equal(t, "Longbow", bow.Name)

	// transcript is back to the game-master system message only
	require.Len(t, s.Transcript, 1)
	assert.Equal(t, chat.RoleSystem, s.Transcript[0].Role)
	assert.Equal(t, prompts.Default().GameMaster, s.Transcript[0].Content)

	calls := llm.CallsFor(creationModel)
	require.Len(t, calls, 1, "creation is single shot")
	require.Len(t, calls[0].Tools, 1)
	assert.Equal(t, "create_character", calls[0].Tools[0].Name)
	assert.Equal(t, "A ranger named Aria", calls[0].Messages[1].Content)

	outputs := rec.OfKind(events.KindToolOutput)
	require.Len(t, outputs, 1)
	assert.Contains(t, outputs[0].ToolCall.Output, "Character 'Aria Swiftwind' created!")
	assert.NotEmpty(t, outputs[0].ToolCall.ID)
	assert.Len(t, rec.OfKind(events.KindCharacterSnapshot), 1)
}

func TestCreateCharacter_NoToolCall(t *testing.T) {
	llm := services.NewMockLLMAPI().Script(creationModel, services.StreamChunk{Content: "Who are you?"})
	o := newTestOrchestrator(llm, 0)
	s := newSession(false)
	rec := &events.Recorder{}

	err := o.CreateCharacter(context.Background(), s, "???", rec)

	assert.ErrorIs(t, err, ErrNotCreatable)
	assert.Len(t, rec.OfKind(events.KindSystemNotice), 1)
	assert.Len(t, s.Transcript, 1)
}

func TestProcessTurn_RequiresCharacter(t *testing.T) {
	o := newTestOrchestrator(services.NewMockLLMAPI(), 0)
	s := newSession(false)

	_, err := o.ProcessTurn(context.Background(), s, "hello", events.Discard)

	assert.ErrorIs(t, err, ErrCharacterNotCreated)
	assert.Len(t, s.Transcript, 1)
}

func TestProcessTurn_LoopsUntilNoToolCalls(t *testing.T) {
	llm := services.NewMockLLMAPI().
		Script(actionModel, services.ToolCallChunk(0, "c1", "add_item", `{"name":"Torch","description":"Pine torch","weight":0.5}`)).
		Script(actionModel, services.ToolCallChunk(0, "c2", "add_item", `{"name":"Torch","description":"Pine torch","weight":0.5}`)).
		Script(actionModel, services.ToolCallChunk(0, "c3", "adjust_health", `{"amount":-3}`)).
		Script(actionModel, services.StreamChunk{Content: "You light "}, services.StreamChunk{Content: "a torch."})
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)
	rec := &events.Recorder{}

	res, err := o.ProcessTurn(context.Background(), s, "I grab two torches", rec)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Rounds)
	assert.Equal(t, 3, res.ToolCalls)
	assert.False(t, res.BudgetExhausted)
	assert.Equal(t, "You light a torch.", res.Reply)

	assert.Equal(t, 3, countRole(s.Transcript, chat.RoleTool))
	assert.Equal(t, 4, countRole(s.Transcript, chat.RoleAssistant))
	assert.Len(t, rec.OfKind(events.KindComplete), 1)
	assert.Equal(t, "You light a torch.", rec.OfKind(events.KindComplete)[0].Content)

	// each tool result follows its request with the same id
	var ids []string
	for i, m := range s.Transcript {
		if m.Role == chat.RoleTool {
			prev := s.Transcript[i-1]
			require.True(t, prev.HasToolCalls())
			assert.Equal(t, prev.ToolCalls[0].ID, m.ToolCallID)
			ids = append(ids, m.ToolCallID)
		}
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids)

	torch, ok := s.Character.Inventory().Get("Torch")
	require.True(t, ok)
	assert.Equal(t, 2, torch.Amount)
	assert.Equal(t, 7, s.Character.SeeHealthAndMana().CurrentHealth)

	partials := rec.OfKind(events.KindPartialContent)
	require.Len(t, partials, 2)
	assert.Equal(t, "You light ", partials[0].Content)

	// the user echo comes first and every event carries the story id
	all := rec.Events()
	assert.Equal(t, events.KindUserEcho, all[0].Type)
	for _, e := range all {
		assert.Equal(t, s.ID.String(), e.StoryID)
	}
	assert.Equal(t, events.KindCharacterSnapshot, all[len(all)-1].Type)

	// each round saw the whole transcript so far
	calls := llm.CallsFor(actionModel)
	require.Len(t, calls, 4)
	assert.Len(t, calls[3].Messages, len(s.Transcript)-1)
}

func TestProcessTurn_BatchRunsInOrder(t *testing.T) {
	llm := services.NewMockLLMAPI().
		Script(actionModel,
			services.ToolCallChunk(0, "a", "add_item", `{"name":"Sword","description":"Steel","weight":3}`),
			services.ToolCallChunk(1, "b", "equip_item", `{"item_name":"Sword","slot":"main_hand"}`)).
		Script(actionModel, services.StreamChunk{Content: "You ready the blade."})
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)

	_, err := o.ProcessTurn(context.Background(), s, "I draw a sword", events.Discard)
	require.NoError(t, err)

	sword, ok := s.Character.Equipped(character.SlotMainHand)
	require.True(t, ok)
	assert.Equal(t, "Sword", sword.Name)
	_, held := s.Character.Inventory().Get("Sword")
	assert.False(t, held)
}

func TestProcessTurn_BudgetExhausted(t *testing.T) {
	llm := services.NewMockLLMAPI()
	for i := 0; i < 5; i++ {
		llm.Script(actionModel, services.ToolCallChunk(0, "", "see_health", `{}`))
	}
	o := newTestOrchestrator(llm, 2)
	s := newSession(true)
	rec := &events.Recorder{}

	res, err := o.ProcessTurn(context.Background(), s, "wait", rec)
	require.NoError(t, err)

	assert.True(t, res.BudgetExhausted)
	assert.Equal(t, 2, res.ToolCalls)
	assert.Len(t, llm.CallsFor(actionModel), 3)
	assert.Equal(t, 3, countRole(s.Transcript, chat.RoleTool), "the refused call still gets a result")
	last := s.Transcript[len(s.Transcript)-1]
	assert.Contains(t, last.Content, "was not executed")
	assert.Len(t, rec.OfKind(events.KindSystemNotice), 1)
	assert.Len(t, rec.OfKind(events.KindComplete), 1)
}

func TestProcessTurn_ObservationNote(t *testing.T) {
	llm := services.NewMockLLMAPI().
		Script(observationModel, services.ToolCallChunk(0, "", "see_health", `{}`)).
		Script(actionModel, services.StreamChunk{Content: "You feel fine."})
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)
	s.Append(chat.AssistantMessage("A goblin appears."))
	rec := &events.Recorder{}

	_, err := o.ProcessTurn(context.Background(), s, "How do I feel?", rec)
	require.NoError(t, err)

	obs := llm.CallsFor(observationModel)
	require.Len(t, obs, 1)
	assert.Equal(t, chat.RoleSystem, obs[0].Messages[0].Role)
	assert.Equal(t, "A goblin appears.", obs[0].Messages[1].Content)
	assert.Equal(t, "How do I feel?", obs[0].Messages[2].Content)
	for _, spec := range obs[0].Tools {
		assert.True(t, strings.HasPrefix(spec.Name, "see_"), spec.Name)
	}

	notes := rec.OfKind(events.KindObservationResult)
	require.Len(t, notes, 1)
	assert.Equal(t, "Observation AI called Tool see_health and got response:\n Health: 10/10, Mana: 10/10", notes[0].Content)

	// the note is prose in the main transcript, never a tool round
	action := llm.CallsFor(actionModel)[0].Messages
	note := action[len(action)-1]
	assert.Equal(t, chat.RoleAssistant, note.Role)
	assert.Empty(t, note.ToolCalls)
	assert.Equal(t, notes[0].Content, note.Content)
	assert.Equal(t, 0, countRole(s.Transcript, chat.RoleTool))
}

func TestProcessTurn_ObservationCannotMutate(t *testing.T) {
	llm := services.NewMockLLMAPI().
		Script(observationModel, services.ToolCallChunk(0, "", "adjust_health", `{"amount":-5}`))
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)
	rec := &events.Recorder{}

	_, err := o.ProcessTurn(context.Background(), s, "ouch", rec)
	require.NoError(t, err)

	assert.Equal(t, 10, s.Character.SeeHealthAndMana().CurrentHealth)
	notes := rec.OfKind(events.KindObservationResult)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Content, "is not available to the observation agent")
}

func TestProcessTurn_StreamError(t *testing.T) {
	llm := services.NewMockLLMAPI().
		Script(actionModel, services.ToolCallChunk(0, "c1", "adjust_mana", `{"amount":-4}`)).
		Script(actionModel, services.StreamChunk{Content: "The spell"}, services.ErrorChunk("connection reset"))
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)
	rec := &events.Recorder{}

	_, err := o.ProcessTurn(context.Background(), s, "I cast a spell", rec)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	failures := rec.OfKind(events.KindError)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Content, "round 2")
	assert.Empty(t, rec.OfKind(events.KindComplete))
	// mutations from the first round are kept
	assert.Equal(t, 6, s.Character.SeeHealthAndMana().CurrentMana)
}

func TestProcessTurn_ObservationErrorIsNotFatal(t *testing.T) {
	llm := services.NewMockLLMAPI().
		Script(observationModel, services.ErrorChunk("observer down")).
		Script(actionModel, services.StreamChunk{Content: "Onward."})
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)
	rec := &events.Recorder{}

	res, err := o.ProcessTurn(context.Background(), s, "go on", rec)
	require.NoError(t, err)

	assert.Equal(t, "Onward.", res.Reply)
	assert.Len(t, rec.OfKind(events.KindError), 1)
	assert.Len(t, rec.OfKind(events.KindComplete), 1)
}

func TestProcessTurn_PhaseTimeout(t *testing.T) {
	llm := services.NewMockLLMAPI()
	llm.ChatStreamFunc = func(ctx context.Context, req services.StreamRequest) (<-chan services.StreamChunk, error) {
		return make(chan services.StreamChunk), nil
	}
	o := New(llm, nil, Config{ActionModel: actionModel, PhaseTimeout: 20 * time.Millisecond}, testLogger())
	s := newSession(true)

	_, err := o.ProcessTurn(context.Background(), s, "hello?", events.Discard)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcessTurn_CancelledDuringObservationReportsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llm := services.NewMockLLMAPI()
	llm.ChatStreamFunc = func(_ context.Context, req services.StreamRequest) (<-chan services.StreamChunk, error) {
		cancel()
		return make(chan services.StreamChunk), nil
	}
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)

	type emitted struct {
		event  events.Event
		ctxErr error
	}
	var got []emitted
	sink := events.SinkFunc(func(ctx context.Context, e events.Event) error {
		got = append(got, emitted{event: e, ctxErr: ctx.Err()})
		return nil
	})

	_, err := o.ProcessTurn(ctx, s, "I listen at the door.", sink)
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, llm.CallsFor(actionModel), 0, "no action phase after cancellation")
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.Equal(t, events.KindError, last.event.Type)
	assert.Contains(t, last.event.Content, "observation phase failed")
	assert.NoError(t, last.ctxErr, "error is emitted on a live context")
}

func TestBegin_SkipsObservation(t *testing.T) {
	llm := services.NewMockLLMAPI().Script(actionModel, services.StreamChunk{Content: "The road stretches north."})
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)

	res, err := o.Begin(context.Background(), s, prompts.Default().OpeningMessage("A ranger."), events.Discard)
	require.NoError(t, err)

	assert.Equal(t, "The road stretches north.", res.Reply)
	assert.Empty(t, llm.CallsFor(observationModel))
	assert.Equal(t, "A ranger. Begin the adventure.", s.Transcript[1].Content)
}

func TestEmit_SinkFailureDoesNotStopTurn(t *testing.T) {
	llm := services.NewMockLLMAPI().Script(actionModel, services.StreamChunk{Content: "ok"})
	o := newTestOrchestrator(llm, 0)
	s := newSession(true)
	sink := events.SinkFunc(func(context.Context, events.Event) error { return io.ErrClosedPipe })

	res, err := o.ProcessTurn(context.Background(), s, "hi", sink)

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Reply)
}
