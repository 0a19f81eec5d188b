package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/internal/orchestrator"
	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/events"
	"github.com/jwebster45206/gamemaster-agent/pkg/prompts"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

// ErrAlreadyCreated is returned when creation is requested for a story
// that already has a character.
var ErrAlreadyCreated = errors.New("story already has a character")

// Processor loads a story, runs one request through the orchestrator and
// persists the result. Callers hold the story lock.
type Processor struct {
	storage      storage.Storage
	orchestrator *orchestrator.Orchestrator
	charOpts     []character.Option
	logger       *slog.Logger
}

// NewProcessor creates a new processor. opts configure every character
// the processor builds or restores.
func NewProcessor(store storage.Storage, orch *orchestrator.Orchestrator, logger *slog.Logger, opts ...character.Option) *Processor {
	return &Processor{
		storage:      store,
		orchestrator: orch,
		charOpts:     opts,
		logger:       logger,
	}
}

// ProcessCreate runs the creation agent on the story's descriptions, then
// the opening scene.
func (p *Processor) ProcessCreate(ctx context.Context, storyID uuid.UUID, sink events.Sink) (*orchestrator.TurnResult, error) {
	rec, err := p.storage.LoadStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}
	if rec.Character != nil && rec.Character.Created {
		return nil, ErrAlreadyCreated
	}

	pack := p.orchestrator.Prompts()
	s := story.NewSession(rec, pack, p.logger, p.charOpts...)

	desc := prompts.CharacterDescription(rec.WorldDescription, rec.CharacterDescription)
	if err := p.orchestrator.CreateCharacter(ctx, s, desc, sink); err != nil {
		return nil, err
	}
	if err := p.save(ctx, s); err != nil {
		return nil, err
	}

	opening := pack.OpeningMessage(prompts.StorySummary(rec.WorldDescription, rec.CharacterDescription, s.Character.Lore()))
	res, turnErr := p.orchestrator.Begin(ctx, s, opening, sink)
	// applied mutations are kept even when the turn failed
	if err := p.save(ctx, s); err != nil {
		return res, err
	}
	return res, turnErr
}

// ProcessChat runs one player turn. The story is saved once with the
// player's message and again after the turn.
func (p *Processor) ProcessChat(ctx context.Context, storyID uuid.UUID, message string, sink events.Sink) (*orchestrator.TurnResult, error) {
	rec, err := p.storage.LoadStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	s := story.Restore(rec, p.orchestrator.Prompts(), p.logger, p.charOpts...)
	if !s.Character.IsCreated() {
		return nil, orchestrator.ErrCharacterNotCreated
	}

	pending := s.Sync()
	pending.ChatHistory = append(pending.ChatHistory, chat.Entry{Role: chat.RoleUser, Content: message})
	if err := p.storage.SaveStory(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to save story: %w", err)
	}

	res, turnErr := p.orchestrator.ProcessTurn(ctx, s, message, sink)
	if err := p.save(ctx, s); err != nil {
		return res, err
	}
	return res, turnErr
}

func (p *Processor) save(ctx context.Context, s *story.Session) error {
	if err := p.storage.SaveStory(ctx, s.Sync()); err != nil {
		p.logger.Error("Failed to save story", "story_id", s.ID.String(), "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}
