package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jwebster45206/gamemaster-agent/internal/orchestrator"
	"github.com/jwebster45206/gamemaster-agent/internal/services"
	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/events"
	"github.com/jwebster45206/gamemaster-agent/pkg/prompts"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage"
	"github.com/jwebster45206/gamemaster-agent/pkg/storage/mocks"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

const (
	testModel  = "gm"
	createArgs = `{"name":"Mira","lore":"A lighthouse keeper.","level_and_experience":{"level":1,"experience":0,"experience_to_next_level":10},"health_and_mana":{"current_health":8,"max_health":8,"current_mana":3,"max_mana":3},"equipment":{}}`
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestOrchestrator(llm services.LLMService) *orchestrator.Orchestrator {
	return orchestrator.New(llm, prompts.Default(), orchestrator.Config{
		ActionModel:      testModel,
		CreationModel:    "creator",
		ObservationModel: "observer",
		PhaseTimeout:     5 * time.Second,
	}, testLogger())
}

func createdRecord(t *testing.T) *story.Record {
	t.Helper()
	rec := story.NewRecord("owner-1", "Lighthouse", "A stormy coast", "A keeper")
	s := story.NewSession(rec, prompts.Default(), testLogger())
	s.Character.Create(character.CreateParams{
		Name:          "Mira",
		HealthAndMana: character.HealthAndMana{CurrentHealth: 8, MaxHealth: 8, CurrentMana: 3, MaxMana: 3},
	})
	s.Append(chat.UserMessage("I climb the stairs."), chat.AssistantMessage("The lamp flickers."))
	return s.Sync()
}

func TestProcessor_ProcessCreate(t *testing.T) {
	store := storage.NewMockStorage()
	rec := story.NewRecord("owner-1", "Lighthouse", "A stormy coast", "A keeper named Mira")
	require.NoError(t, store.SaveStory(context.Background(), rec))

	llm := services.NewMockLLMAPI().
		Script("creator", services.ToolCallChunk(0, "c1", "create_character", createArgs)).
		Script(testModel, services.StreamChunk{Content: "Waves crash below."})
	p := NewProcessor(store, newTestOrchestrator(llm), testLogger())

	res, err := p.ProcessCreate(context.Background(), rec.ID, events.Discard)
	require.NoError(t, err)
	assert.Equal(t, "Waves crash below.", res.Reply)

	creation := llm.CallsFor("creator")
	require.Len(t, creation, 1)
	assert.Equal(t, "World: A stormy coast\n\nCharacter: A keeper named Mira", creation[0].Messages[1].Content)

	opening := llm.CallsFor(testModel)[0].Messages
	require.Len(t, opening, 2)
	assert.Equal(t, "World Description:\nA stormy coast\n\nCharacter Description:\nA keeper named Mira\n\nLore:\nA lighthouse keeper. Begin the adventure.", opening[1].Content)

	saved, err := store.LoadStory(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.Character)
	assert.True(t, saved.Character.Created)
	assert.Equal(t, "Mira", saved.Character.Name)
	require.Len(t, saved.ChatHistory, 3)
	assert.Equal(t, chat.RoleSystem, saved.ChatHistory[0].Role)
	assert.Equal(t, "Waves crash below.", saved.ChatHistory[2].Content)
	// the initial save plus one after creation and one after the opening
	assert.Equal(t, 3, store.Saves())
}

func TestProcessor_ProcessCreate_AlreadyCreated(t *testing.T) {
	store := storage.NewMockStorage()
	rec := createdRecord(t)
	require.NoError(t, store.SaveStory(context.Background(), rec))
	p := NewProcessor(store, newTestOrchestrator(services.NewMockLLMAPI()), testLogger())

	_, err := p.ProcessCreate(context.Background(), rec.ID, events.Discard)

	assert.ErrorIs(t, err, ErrAlreadyCreated)
}

func TestProcessor_ProcessChat_SavesTwice(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStorage(ctrl)
	rec := createdRecord(t)

	llm := services.NewMockLLMAPI().
		Script(testModel, services.ToolCallChunk(0, "c1", "adjust_health", `{"amount":-2}`)).
		Script(testModel, services.StreamChunk{Content: "A shard of glass cuts you."})
	p := NewProcessor(store, newTestOrchestrator(llm), testLogger())

	var saved []story.Record
	store.EXPECT().LoadStory(gomock.Any(), rec.ID).Return(rec, nil)
	store.EXPECT().SaveStory(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *story.Record) error {
		cp := *r
		cp.ChatHistory = append([]chat.Entry(nil), r.ChatHistory...)
		saved = append(saved, cp)
		return nil
	}).Times(2)

	res, err := p.ProcessChat(context.Background(), rec.ID, "I touch the lens.", events.Discard)
	require.NoError(t, err)
	assert.Equal(t, "A shard of glass cuts you.", res.Reply)

	require.Len(t, saved, 2)
	first := saved[0].ChatHistory
	assert.Equal(t, chat.Entry{Role: chat.RoleUser, Content: "I touch the lens."}, first[len(first)-1])

	final := saved[1]
	assert.Equal(t, 6, final.Character.HealthAndMana.CurrentHealth)
	last := final.ChatHistory[len(final.ChatHistory)-1]
	assert.Equal(t, "A shard of glass cuts you.", last.Content)
}

func TestProcessor_ProcessChat_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStorage(ctrl)
	rec := createdRecord(t)
	store.EXPECT().LoadStory(gomock.Any(), rec.ID).Return(nil, storage.ErrStoryNotFound)
	p := NewProcessor(store, newTestOrchestrator(services.NewMockLLMAPI()), testLogger())

	_, err := p.ProcessChat(context.Background(), rec.ID, "hello", events.Discard)

	assert.ErrorIs(t, err, storage.ErrStoryNotFound)
}

func TestProcessor_ProcessChat_NoCharacter(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStorage(ctrl)
	rec := story.NewRecord("owner-1", "", "", "")
	store.EXPECT().LoadStory(gomock.Any(), rec.ID).Return(rec, nil)
	p := NewProcessor(store, newTestOrchestrator(services.NewMockLLMAPI()), testLogger())

	_, err := p.ProcessChat(context.Background(), rec.ID, "hello", events.Discard)

	assert.ErrorIs(t, err, orchestrator.ErrCharacterNotCreated)
}

func TestProcessor_ProcessChat_KeepsStateOnStreamError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStorage(ctrl)
	rec := createdRecord(t)

	llm := services.NewMockLLMAPI().
		Script(testModel, services.ToolCallChunk(0, "c1", "add_item", `{"name":"Lens","description":"Cracked","weight":1}`)).
		Script(testModel, services.ErrorChunk("upstream closed"))
	p := NewProcessor(store, newTestOrchestrator(llm), testLogger())

	var last *story.Record
	store.EXPECT().LoadStory(gomock.Any(), rec.ID).Return(rec, nil)
	store.EXPECT().SaveStory(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *story.Record) error {
		last = r
		return nil
	}).Times(2)

	_, err := p.ProcessChat(context.Background(), rec.ID, "I take the lens.", events.Discard)

	require.Error(t, err)
	require.NotNil(t, last)
	require.Len(t, last.Character.Inventory.Items, 1)
	assert.Equal(t, "Lens", last.Character.Inventory.Items[0].Name)
}

func TestProcessor_ProcessChat_SaveFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStorage(ctrl)
	rec := createdRecord(t)
	store.EXPECT().LoadStory(gomock.Any(), rec.ID).Return(rec, nil)
	store.EXPECT().SaveStory(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	llm := services.NewMockLLMAPI()
	p := NewProcessor(store, newTestOrchestrator(llm), testLogger())

	_, err := p.ProcessChat(context.Background(), rec.ID, "hello", events.Discard)

	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, llm.CallsFor(testModel), "no turn runs when the message cannot be saved")
}
