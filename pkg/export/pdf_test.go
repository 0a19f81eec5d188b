package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

func TestPDF(t *testing.T) {
	rec := story.NewRecord("owner", "", "", "")
	c := character.New()
	c.Create(character.CreateParams{Name: "Éowyn", Lore: "Shieldmaiden of Rohan."})
	c.AddItem(character.Item{Name: "Shield", Weight: 4, Amount: 1})
	snap := c.Snapshot()
	rec.Character = &snap
	rec.ChatHistory = []chat.Entry{
		{Role: chat.RoleSystem, Content: "system prompt"},
		{Role: chat.RoleUser, Content: "I ride to war."},
		{Role: chat.RoleAssistant, Content: "The horns of the Rohirrim sound."},
	}

	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, rec))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestSpeaker(t *testing.T) {
	assert.Equal(t, "You", Speaker(chat.Entry{Role: chat.RoleUser, Content: "hi"}))
	assert.Equal(t, "Game Master", Speaker(chat.Entry{Role: chat.RoleAssistant, Content: "hello"}))
	assert.Empty(t, Speaker(chat.Entry{Role: chat.RoleAssistant, Content: " "}))
	assert.Empty(t, Speaker(chat.Entry{Role: chat.RoleSystem, Content: "x"}))
	assert.Empty(t, Speaker(chat.Entry{Role: chat.RoleTool, Content: "x"}))
}

func TestTitle(t *testing.T) {
	rec := story.NewRecord("o", "My Saga", "", "")
	assert.Equal(t, "My Saga", title(rec))

	rec.Title = ""
	assert.Equal(t, "Untitled story", title(rec))

	rec.Character = &character.Snapshot{Name: "Bree"}
	assert.Equal(t, "The tale of Bree", title(rec))
}
