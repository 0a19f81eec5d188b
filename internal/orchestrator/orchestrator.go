// Package orchestrator runs the three agents of a story: the one-shot
// creation agent, the read-only observation agent and the action agent
// that loops over tool rounds until the model stops calling tools.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/internal/services"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/events"
	"github.com/jwebster45206/gamemaster-agent/pkg/prompts"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
	"github.com/jwebster45206/gamemaster-agent/pkg/tools"
)

const (
	PhaseCreation    = "creation"
	PhaseObservation = "observation"
	PhaseAction      = "action"

	DefaultMaxToolCalls = 24
	DefaultPhaseTimeout = 60 * time.Second
)

var (
	// ErrCharacterNotCreated is returned for turns on a story whose
	// character does not exist yet.
	ErrCharacterNotCreated = errors.New("character has not been created")

	// ErrNotCreatable is returned when the creation agent did not produce
	// a character.
	ErrNotCreatable = errors.New("creation agent did not create a character")
)

// Config selects the models and limits of each phase
type Config struct {
	ActionModel      string
	CreationModel    string
	ObservationModel string

	// MaxToolCalls caps the tool calls the action agent may run in one turn
	MaxToolCalls int
	// PhaseTimeout bounds every model invocation
	PhaseTimeout time.Duration
}

// TurnResult summarizes one action phase
type TurnResult struct {
	Reply           string
	Rounds          int
	ToolCalls       int
	BudgetExhausted bool
}

// Orchestrator drives sessions through their phases. It holds no session
// state and may serve many sessions concurrently; each session must only
// be used by one turn at a time.
type Orchestrator struct {
	llm     services.LLMService
	prompts *prompts.Pack
	cfg     Config
	logger  *slog.Logger
}

func New(llm services.LLMService, pack *prompts.Pack, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = DefaultMaxToolCalls
	}
	if cfg.PhaseTimeout <= 0 {
		cfg.PhaseTimeout = DefaultPhaseTimeout
	}
	if cfg.CreationModel == "" {
		cfg.CreationModel = cfg.ActionModel
	}
	if cfg.ObservationModel == "" {
		cfg.ObservationModel = cfg.ActionModel
	}
	if pack == nil {
		pack = prompts.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{llm: llm, prompts: pack, cfg: cfg, logger: logger}
}

// Prompts returns the prompt pack sessions should be built with
func (o *Orchestrator) Prompts() *prompts.Pack {
	return o.prompts
}

// CreateCharacter runs the creation agent once against description. Its
// tool calls are dispatched but never fed back to the model. Afterwards
// the transcript is reset to the game-master system message.
func (o *Orchestrator) CreateCharacter(ctx context.Context, s *story.Session, description string, sink events.Sink) error {
	log := o.logger.With("story_id", s.ID.String(), "phase", PhaseCreation)

	phaseCtx, cancel := context.WithTimeout(ctx, o.cfg.PhaseTimeout)
	defer cancel()

	msg, err := o.stream(phaseCtx, o.cfg.CreationModel, o.prompts.CreationMessages(description), s.Tools.Specs(tools.CreationSet), nil)
	if err != nil {
		err = fmt.Errorf("creation phase failed: %w", err)
		o.emit(ctx, sink, s, events.Failure(err))
		return err
	}

	for _, call := range withCallIDs(msg).ToolCalls {
		o.emit(ctx, sink, s, events.ToolCallAnnounced(PhaseCreation, call))
		out := s.Tools.DispatchIn(tools.CreationSet, call)
		log.Info("Creation tool executed", "tool", call.Name, "result", out)
		o.emit(ctx, sink, s, events.ToolOutput(PhaseCreation, call, out))
	}

	s.Reset(o.prompts)

	if !s.Character.IsCreated() {
		log.Warn("Creation agent made no character", "content", msg.Content)
		o.emit(ctx, sink, s, events.SystemNotice("The character could not be created. Try describing them again."))
		return ErrNotCreatable
	}
	o.emit(ctx, sink, s, events.CharacterSnapshot(s.Character.Snapshot()))
	return nil
}

// Begin runs an opening action phase seeded by a human message, without
// an observation pass.
func (o *Orchestrator) Begin(ctx context.Context, s *story.Session, opening string, sink events.Sink) (*TurnResult, error) {
	if !s.Character.IsCreated() {
		return nil, ErrCharacterNotCreated
	}
	s.Append(chat.UserMessage(opening))
	o.emit(ctx, sink, s, events.UserEcho(opening))
	return o.finish(ctx, s, sink)
}

// ProcessTurn handles one user input: the observation pass, then the
// action loop. An observation failure is reported and the turn goes on;
// an action failure ends the turn with the mutations made so far kept.
func (o *Orchestrator) ProcessTurn(ctx context.Context, s *story.Session, input string, sink events.Sink) (*TurnResult, error) {
	if !s.Character.IsCreated() {
		return nil, ErrCharacterNotCreated
	}
	s.Append(chat.UserMessage(input))
	o.emit(ctx, sink, s, events.UserEcho(input))

	if err := o.observe(ctx, s, sink); err != nil {
		if ctx.Err() != nil {
			// the request is gone; report on a context that can still publish
			o.emit(context.WithoutCancel(ctx), sink, s, events.Failure(err))
			return nil, err
		}
		o.logger.Warn("Observation phase failed", "story_id", s.ID.String(), "error", err)
		o.emit(ctx, sink, s, events.Failure(err))
	}
	return o.finish(ctx, s, sink)
}

func (o *Orchestrator) finish(ctx context.Context, s *story.Session, sink events.Sink) (*TurnResult, error) {
	res, err := o.act(ctx, s, sink)
	if err != nil {
		o.emit(context.WithoutCancel(ctx), sink, s, events.Failure(err))
		return res, err
	}
	o.emit(ctx, sink, s, events.CharacterSnapshot(s.Character.Snapshot()))
	return res, nil
}

// observe asks the observation agent about the last exchange. Each read
// tool result becomes an assistant note in the main transcript.
func (o *Orchestrator) observe(ctx context.Context, s *story.Session, sink events.Sink) error {
	phaseCtx, cancel := context.WithTimeout(ctx, o.cfg.PhaseTimeout)
	defer cancel()

	msg, err := o.stream(phaseCtx, o.cfg.ObservationModel, o.prompts.ObservationMessages(s.Transcript), s.Tools.Specs(tools.ObservationSet), nil)
	if err != nil {
		return fmt.Errorf("observation phase failed: %w", err)
	}

	for _, call := range withCallIDs(msg).ToolCalls {
		o.emit(ctx, sink, s, events.ToolCallAnnounced(PhaseObservation, call))
		out := s.Tools.DispatchIn(tools.ObservationSet, call)
		o.emit(ctx, sink, s, events.ToolOutput(PhaseObservation, call, out))

		note := fmt.Sprintf("Observation AI called Tool %s and got response:\n %s", call.Name, out)
		s.Append(chat.AssistantMessage(note))
		o.emit(ctx, sink, s, events.ObservationResult(note))
	}
	return nil
}

// act loops the action agent until it answers without tool calls or the
// turn's tool-call budget runs out. Calls past the budget get a
// not-executed result so every call in the transcript stays paired.
func (o *Orchestrator) act(ctx context.Context, s *story.Session, sink events.Sink) (*TurnResult, error) {
	res := &TurnResult{}
	log := o.logger.With("story_id", s.ID.String(), "phase", PhaseAction)
	specs := s.Tools.Specs(tools.ActionSet)

	for round := 1; ; round++ {
		phaseCtx, cancel := context.WithTimeout(ctx, o.cfg.PhaseTimeout)
		msg, err := o.stream(phaseCtx, o.cfg.ActionModel, s.Transcript, specs, func(chunk string) {
			o.emit(ctx, sink, s, events.PartialContent(chunk))
		})
		cancel()
		if err != nil {
			return res, fmt.Errorf("action phase failed in round %d: %w", round, err)
		}

		msg = withCallIDs(msg)
		s.Append(msg)
		res.Reply = msg.Content

		if !msg.HasToolCalls() {
			log.Debug("Action phase complete", "rounds", res.Rounds, "tool_calls", res.ToolCalls)
			o.emit(ctx, sink, s, events.Complete(msg.Content))
			return res, nil
		}

		res.Rounds++
		for _, call := range msg.ToolCalls {
			if res.ToolCalls >= o.cfg.MaxToolCalls {
				res.BudgetExhausted = true
				s.Append(chat.ToolResult(call, fmt.Sprintf("Tool '%s' was not executed: the turn's tool call limit was reached.", call.Name)))
				continue
			}
			res.ToolCalls++

			o.emit(ctx, sink, s, events.ToolCallAnnounced(PhaseAction, call))
			out := s.Tools.DispatchIn(tools.ActionSet, call)
			log.Debug("Tool executed", "tool", call.Name, "round", round)
			s.Append(chat.ToolResult(call, out))
			o.emit(ctx, sink, s, events.ToolOutput(PhaseAction, call, out))
		}

		if res.BudgetExhausted {
			log.Warn("Tool call budget exhausted", "limit", o.cfg.MaxToolCalls, "rounds", res.Rounds)
			o.emit(ctx, sink, s, events.SystemNotice(fmt.Sprintf("The turn stopped after %d tool calls.", o.cfg.MaxToolCalls)))
			o.emit(ctx, sink, s, events.Complete(msg.Content))
			return res, nil
		}
	}
}

// stream runs one model call and folds its fragments into a message.
// onContent, when set, sees each text chunk as it arrives.
func (o *Orchestrator) stream(ctx context.Context, model string, msgs []chat.Message, specs []chat.ToolSpec, onContent func(string)) (chat.Message, error) {
	ch, err := o.llm.ChatStream(ctx, services.StreamRequest{Model: model, Messages: msgs, Tools: specs})
	if err != nil {
		return chat.Message{}, err
	}

	acc := chat.NewAccumulator()
	for {
		select {
		case <-ctx.Done():
			return chat.Message{}, ctx.Err()
		case c, ok := <-ch:
			if !ok {
				if err := ctx.Err(); err != nil {
					return chat.Message{}, err
				}
				return acc.Message(), nil
			}
			if c.Error != nil {
				return chat.Message{}, c.Error
			}
			acc.Add(c.Fragment())
			if c.Content != "" && onContent != nil {
				onContent(c.Content)
			}
			if c.Done {
				return acc.Message(), nil
			}
		}
	}
}

// withCallIDs gives every tool call a correlation id
func withCallIDs(msg chat.Message) chat.Message {
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].ID == "" {
			msg.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
	}
	return msg
}

// emit stamps the story id and delivers e. A failing sink never stops a
// turn.
func (o *Orchestrator) emit(ctx context.Context, sink events.Sink, s *story.Session, e events.Event) {
	if sink == nil {
		return
	}
	e.StoryID = s.ID.String()
	if err := sink.Emit(ctx, e); err != nil {
		o.logger.Warn("Failed to emit event", "story_id", e.StoryID, "type", e.Type, "error", err)
	}
}
