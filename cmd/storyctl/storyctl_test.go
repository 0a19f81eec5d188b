package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSummaries(&buf, []story.Summary{
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Title: "Saga", CharacterName: "Aria", Level: 3, Messages: 12, UpdatedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Messages: 1, UpdatedAt: time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Aria")
	assert.Contains(t, lines[1], "2025-03-01 09:30")
	assert.Contains(t, lines[2], " - ")
}

func TestValidatePromptsCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("game_master: Narrate.\n"), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scenario: nope\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"validate-prompts", good})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "creation is empty")
	assert.Contains(t, out.String(), "Prompt pack is valid!")

	rootCmd.SetArgs([]string{"validate-prompts", bad})
	assert.Error(t, rootCmd.Execute())
}

func TestEnqueueRejectsBadInput(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"enqueue", "--story-id", "not-a-uuid", "--message", "hi"})
	assert.ErrorContains(t, rootCmd.Execute(), "invalid story id")

	// flag values persist between executions
	rootCmd.SetArgs([]string{"enqueue", "--story-id", uuid.NewString(), "--message", "", "--create=false"})
	assert.ErrorContains(t, rootCmd.Execute(), "chat request requires a message")
}
