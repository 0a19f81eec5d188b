package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

func ptr[T any](v T) *T { return &v }

func sampleRecord() *story.Record {
	c := character.New()
	c.Rename("Mira Quell")
	snap := c.Snapshot()
	snap.Created = true
	snap.Inventory.Items = []character.Item{{Name: "Dagger", Weight: 0.5, Amount: 1}}
	snap.Equipment[character.SlotMainHand] = &character.Item{Name: "Longsword", Weight: 1.5, Amount: 1}

	rec := story.NewRecord("tester", "", "world", "thief")
	rec.Character = &snap
	rec.ChatHistory = []chat.Entry{
		{Role: chat.RoleUser, Content: "hello"},
		{Role: chat.RoleAssistant, Content: "The tavern falls quiet."},
		{Role: chat.RoleAssistant, Content: ""},
	}
	return rec
}

func TestCheckExpectations(t *testing.T) {
	rec := sampleRecord()
	resp := LastResponse(rec)
	assert.Equal(t, "The tavern falls quiet.", resp)

	tests := []struct {
		name    string
		exp     Expectations
		wantErr string
	}{
		{name: "empty", exp: Expectations{}},
		{name: "name ignores case", exp: Expectations{CharacterName: ptr("mira quell")}},
		{name: "wrong name", exp: Expectations{CharacterName: ptr("Bram")}, wantErr: "character name"},
		{name: "min level", exp: Expectations{MinLevel: ptr(2)}, wantErr: "level >= 2"},
		{name: "inventory", exp: Expectations{Inventory: []string{" dagger "}}},
		{name: "missing item", exp: Expectations{Inventory: []string{"rope"}}, wantErr: `"rope"`},
		{name: "unwanted item", exp: Expectations{InventoryMissing: []string{"Dagger"}}, wantErr: "not to contain"},
		{name: "equipped", exp: Expectations{Equipped: map[string]string{"main_hand": "longsword"}}},
		{name: "empty slot", exp: Expectations{Equipped: map[string]string{"head": "helm"}}, wantErr: "slot is empty"},
		{name: "contains", exp: Expectations{ResponseContains: []string{"TAVERN"}}},
		{name: "not contains", exp: Expectations{ResponseNotContains: []string{"quiet"}}, wantErr: "not to contain"},
		{name: "regex", exp: Expectations{ResponseRegex: `^The \w+`}},
		{name: "bad regex", exp: Expectations{ResponseRegex: `(`}, wantErr: "invalid response_regex"},
		{name: "too short", exp: Expectations{ResponseMinLength: ptr(100)}, wantErr: "below minimum"},
		{name: "too long", exp: Expectations{ResponseMaxLength: ptr(5)}, wantErr: "exceeds maximum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExpectations(tt.exp, rec, resp)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	rec.Character = nil
	assert.ErrorContains(t, CheckExpectations(Expectations{MinLevel: ptr(1)}, rec, resp), "no character")
}

func TestUpdatedSince(t *testing.T) {
	prev := sampleRecord()
	done := UpdatedSince(prev)

	same := *prev
	assert.False(t, done(&same))

	grown := *prev
	grown.UpdatedAt = prev.UpdatedAt.Add(time.Second)
	grown.ChatHistory = append(append([]chat.Entry{}, prev.ChatHistory...),
		chat.Entry{Role: chat.RoleUser, Content: "next"})
	assert.False(t, done(&grown), "must end on a Game Master message")

	grown.ChatHistory = append(grown.ChatHistory, chat.Entry{Role: chat.RoleAssistant, Content: "ok"})
	assert.True(t, done(&grown))
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	write("a.json", `{"name":"A","steps":[{"user_prompt":"hi","expect":{"inventory":["rope"]}}]}`)
	write("b.json", `{"steps":[{"user_prompt":"bye"}]}`)
	seq := write("seq.json", `{"name":"Seq","cases":["a.json","b.json"]}`)

	jobs, err := LoadTestSuiteWithExpansion(seq, dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "A", jobs[0].Name)
	assert.Equal(t, []string{"rope"}, jobs[0].Suite.Steps[0].Expectations.Inventory)
	assert.Equal(t, "b", jobs[1].Name, "name falls back to the file name")

	write("broken.json", `{"name":"Broken","cases":["missing.json"]}`)
	_, err = LoadTestSuiteWithExpansion(filepath.Join(dir, "broken.json"), dir)
	assert.ErrorContains(t, err, "missing.json")
}

// fakeAPI serves just enough of the story endpoints for one suite: the
// character appears on the second fetch and every chat appends a reply.
type fakeAPI struct {
	mu      sync.Mutex
	rec     *story.Record
	fetches atomic.Int32
	deleted atomic.Bool
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/stories", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"story_id": f.rec.ID, "request_id": "req-1"})
	})
	mux.HandleFunc("GET /v1/stories/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		rec := *f.rec
		f.mu.Unlock()
		if f.fetches.Add(1) < 2 {
			rec.Character = nil
		}
		_ = json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("POST /v1/stories/{id}/chat", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.rec.ChatHistory = append(f.rec.ChatHistory,
			chat.Entry{Role: chat.RoleUser, Content: body.Message},
			chat.Entry{Role: chat.RoleAssistant, Content: "You pocket the dagger."})
		f.rec.UpdatedAt = f.rec.UpdatedAt.Add(time.Second)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{"story_id": f.rec.ID, "request_id": "req-2"})
	})
	mux.HandleFunc("DELETE /v1/stories/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.deleted.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestRunSuite(t *testing.T) {
	api := &fakeAPI{rec: sampleRecord()}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	r := NewRunner(srv.URL + "/")
	r.Timeout = 5 * time.Second
	suite := TestSuite{
		Name:    "smoke",
		Created: Expectations{CharacterName: ptr("Mira Quell")},
		Steps: []TestStep{
			{Name: "take", UserPrompt: "I take the dagger.", Expectations: Expectations{ResponseContains: []string{"dagger"}}},
			{Name: "fail", UserPrompt: "I look up.", Expectations: Expectations{ResponseContains: []string{"dragon"}}},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Equal(t, api.rec.ID, result.StoryID)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Success)
	assert.Equal(t, "You pocket the dagger.", result.Results[0].ResponseText)
	assert.False(t, result.Results[1].Success)
	assert.ErrorContains(t, result.Results[1].Error, "dragon")
	assert.True(t, api.deleted.Load())
	assert.NotEqual(t, uuid.Nil, result.StoryID)
}
