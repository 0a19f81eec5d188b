package story

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/prompts"
)

func TestNewSession(t *testing.T) {
	pack := prompts.Default()
	rec := NewRecord("alice", "The Ashlands", "volcanic", "a smith")

	s := NewSession(rec, pack, slog.Default())

	assert.Equal(t, rec.ID, s.ID)
	assert.False(t, s.Character.IsCreated())
	require.Len(t, s.Transcript, 1)
	assert.Equal(t, chat.SystemMessage(pack.GameMaster), s.Transcript[0])
	assert.Same(t, s.Character, s.Tools.Character())
}

func TestSyncRestore_RoundTrip(t *testing.T) {
	pack := prompts.Default()
	rec := NewRecord("alice", "", "", "")
	s := NewSession(rec, pack, slog.Default())

	s.Tools.Dispatch("create_character", map[string]any{
		"name":                 "Korga",
		"lore":                 "A smith.",
		"level_and_experience": map[string]any{"level": 1.0, "experience": 0.0, "experience_to_next_level": 10.0},
		"health_and_mana":      map[string]any{"current_health": 10.0, "max_health": 10.0, "current_mana": 2.0, "max_mana": 2.0},
		"equipment":            map[string]any{},
	})
	s.Tools.Dispatch("add_item", map[string]any{"name": "Hammer", "weight": 3.0})
	s.Tools.Dispatch("equip_item", map[string]any{"item_name": "Hammer", "slot": "main_hand"})
	s.Tools.Dispatch("add_item", map[string]any{"name": "Torch", "amount": 2.0})

	call := chat.ToolCall{ID: "c1", Name: "adjust_health", Arguments: map[string]any{"amount": -3.0}}
	s.Append(
		chat.UserMessage("I swing at the goblin."),
		chat.Message{Role: chat.RoleAssistant, ToolCalls: []chat.ToolCall{call}},
		chat.ToolResult(call, s.Tools.Dispatch(call.Name, call.Arguments)),
		chat.AssistantMessage("The goblin strikes back."),
	)

	raw, err := json.Marshal(s.Sync())
	require.NoError(t, err)
	var decoded Record
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored := Restore(&decoded, pack, slog.Default())

	assert.Equal(t, s.Character.Snapshot(), restored.Character.Snapshot())
	assert.Equal(t, []chat.Message{
		chat.SystemMessage(pack.GameMaster),
		chat.UserMessage("I swing at the goblin."),
		chat.AssistantMessage("The goblin strikes back."),
	}, restored.Transcript)

	// the restored registry mutates the restored character
	restored.Tools.Dispatch("unequip_item", map[string]any{"slot": "main_hand"})
	_, ok := restored.Character.Inventory().Get("hammer")
	assert.True(t, ok)
	_, ok = s.Character.Inventory().Get("hammer")
	assert.False(t, ok, "sessions must not share a character")
}

func TestRestore_WithoutCharacter(t *testing.T) {
	rec := NewRecord("bob", "", "", "")
	rec.ChatHistory = []chat.Entry{{Role: chat.RoleSystem, Content: "old system prompt"}, {Role: chat.RoleUser, Content: "hi"}}

	s := Restore(rec, prompts.Default(), slog.Default())

	assert.False(t, s.Character.IsCreated())
	require.Len(t, s.Transcript, 2)
	assert.Equal(t, prompts.Default().GameMaster, s.Transcript[0].Content)
}

func TestRecord_SummaryAndValidate(t *testing.T) {
	rec := NewRecord("alice", " Title ", "", "")
	snap := character.New().Snapshot()
	snap.Name = "Korga"
	rec.Character = &snap

	sum := rec.Summary()
	assert.Equal(t, "Title", sum.Title)
	assert.Equal(t, "Korga", sum.CharacterName)
	assert.Equal(t, 1, sum.Level)
	assert.NoError(t, rec.Validate())

	rec.Owner = ""
	assert.Error(t, rec.Validate())
}
