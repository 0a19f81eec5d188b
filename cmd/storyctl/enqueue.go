package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/gamemaster-agent/internal/services/queue"
	queuePkg "github.com/jwebster45206/gamemaster-agent/pkg/queue"
	"github.com/jwebster45206/gamemaster-agent/pkg/prompts"
)

var (
	enqueueStoryID string
	enqueueMessage string
	enqueueCreate  bool
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a chat or create request for the workers",
	Long: `Queue a request directly on the Redis request queue, bypassing the API.
Useful for exercising workers without the HTTP layer.`,
	RunE: runEnqueue,
}

var validatePromptsCmd = &cobra.Command{
	Use:   "validate-prompts <file.yaml>",
	Short: "Check a prompt pack file",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidatePrompts,
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueStoryID, "story-id", "", "Story ID (required)")
	enqueueCmd.Flags().StringVar(&enqueueMessage, "message", "", "Player message for a chat request")
	enqueueCmd.Flags().BoolVar(&enqueueCreate, "create", false, "Queue character creation instead of a chat message")
	_ = enqueueCmd.MarkFlagRequired("story-id") // nolint:errcheck // safe to ignore in init
}

func runEnqueue(cmd *cobra.Command, _ []string) error {
	id, err := uuid.Parse(enqueueStoryID)
	if err != nil {
		return fmt.Errorf("invalid story id %q: %w", enqueueStoryID, err)
	}

	reqType := queuePkg.RequestTypeChat
	if enqueueCreate {
		reqType = queuePkg.RequestTypeCreateStory
	}
	req := queuePkg.NewRequest(reqType, id, "", enqueueMessage)
	if err := req.Validate(); err != nil {
		return err
	}

	cfg, log := loadConfig()
	client, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	q := queue.NewRequestQueue(client)
	if err := q.EnqueueRequest(ctx, req); err != nil {
		return err
	}
	depth, err := q.RequestQueueDepth(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Enqueued %s request: %s\n", req.Type, req.RequestID)
	fmt.Fprintf(cmd.OutOrStdout(), "Queue depth: %d\n", depth)
	return nil
}

func runValidatePrompts(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	blank, err := prompts.Validate(data)
	if err != nil {
		return err
	}
	for _, name := range blank {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  %s is empty; the built-in prompt will be used\n", name)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Prompt pack is valid!")
	return nil
}
