package story

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/prompts"
	"github.com/jwebster45206/gamemaster-agent/pkg/tools"
)

// Record is the persisted form of a story
type Record struct {
	ID                   uuid.UUID           `json:"id"`
	Owner                string              `json:"owner"`
	Title                string              `json:"title,omitempty"`
	WorldDescription     string              `json:"world_description,omitempty"`
	CharacterDescription string              `json:"character_description,omitempty"`
	Character            *character.Snapshot `json:"character,omitempty"`
	ChatHistory          []chat.Entry        `json:"chat_history"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// NewRecord starts an empty story for owner
func NewRecord(owner, title, world, characterDesc string) *Record {
	now := time.Now().UTC()
	return &Record{
		ID:                   uuid.New(),
		Owner:                owner,
		Title:                strings.TrimSpace(title),
		WorldDescription:     world,
		CharacterDescription: characterDesc,
		ChatHistory:          []chat.Entry{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// Summary is the listing view of a story
type Summary struct {
	ID            uuid.UUID `json:"id"`
	Owner         string    `json:"owner"`
	Title         string    `json:"title,omitempty"`
	CharacterName string    `json:"character_name,omitempty"`
	Level         int       `json:"level,omitempty"`
	Messages      int       `json:"messages"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (r *Record) Summary() Summary {
	s := Summary{
		ID:        r.ID,
		Owner:     r.Owner,
		Title:     r.Title,
		Messages:  len(r.ChatHistory),
		UpdatedAt: r.UpdatedAt,
	}
	if r.Character != nil {
		s.CharacterName = r.Character.Name
		s.Level = r.Character.LevelAndExperience.Level
	}
	return s
}

func (r *Record) Validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("story id is required")
	}
	if strings.TrimSpace(r.Owner) == "" {
		return fmt.Errorf("story owner is required")
	}
	return nil
}

// Session is a live story: one character, its transcript and the tool
// registry bound to that character. Sessions share nothing.
type Session struct {
	ID         uuid.UUID
	Owner      string
	Record     *Record
	Character  *character.Character
	Transcript []chat.Message
	Tools      *tools.Registry
}

// NewSession builds a fresh session for rec with an uncreated character
func NewSession(rec *Record, pack *prompts.Pack, logger *slog.Logger, opts ...character.Option) *Session {
	c := character.New(opts...)
	return &Session{
		ID:         rec.ID,
		Owner:      rec.Owner,
		Record:     rec,
		Character:  c,
		Transcript: pack.Transcript(),
		Tools:      tools.NewRegistry(c, logger.With("story_id", rec.ID.String())),
	}
}

// Restore rebuilds a live session from a persisted record. Tool-result
// entries and empty assistant entries are dropped because their tool-call
// pairing is not persisted. The transcript always starts with the current
// game-master system message.
func Restore(rec *Record, pack *prompts.Pack, logger *slog.Logger, opts ...character.Option) *Session {
	s := NewSession(rec, pack, logger, opts...)
	if rec.Character != nil {
		s.Character = character.FromSnapshot(*rec.Character)
		s.Tools = tools.NewRegistry(s.Character, logger.With("story_id", rec.ID.String()))
	}

	for i, e := range rec.ChatHistory {
		switch {
		case e.Role == chat.RoleTool:
			continue
		case e.Role == chat.RoleAssistant && strings.TrimSpace(e.Content) == "":
			continue
		case e.Role == chat.RoleSystem && i == 0:
			// replaced by the current game-master message
			continue
		}
		s.Transcript = append(s.Transcript, chat.Message{Role: e.Role, Content: e.Content})
	}
	return s
}

// Reset discards the transcript and starts over from the system message
func (s *Session) Reset(pack *prompts.Pack) {
	s.Transcript = pack.Transcript()
}

// Append adds messages to the transcript
func (s *Session) Append(msgs ...chat.Message) {
	s.Transcript = append(s.Transcript, msgs...)
}

// Sync writes the live state back into the session's record and returns it
func (s *Session) Sync() *Record {
	snap := s.Character.Snapshot()
	s.Record.Character = &snap
	s.Record.ChatHistory = chat.Entries(s.Transcript)
	s.Record.UpdatedAt = time.Now().UTC()
	return s.Record
}
