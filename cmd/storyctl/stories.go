package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/gamemaster-agent/pkg/export"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

var (
	listOwner  string
	showJSON   bool
	exportPath string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List an owner's stories, newest first",
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <story-id>",
	Short: "Show a story's character and transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <story-id>",
	Short: "Delete a story",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var exportCmd = &cobra.Command{
	Use:   "export <story-id>",
	Short: "Render a story to PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	listCmd.Flags().StringVar(&listOwner, "owner", "", "Story owner (required)")
	_ = listCmd.MarkFlagRequired("owner") // nolint:errcheck // safe to ignore in init

	showCmd.Flags().BoolVar(&showJSON, "json", false, "Print the raw story record")

	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "Output file (default story-<id>.pdf)")
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := store.ListStories(ctx, listOwner)
	if err != nil {
		return fmt.Errorf("failed to list stories: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No stories for %s\n", listOwner)
		return nil
	}
	return writeSummaries(cmd.OutOrStdout(), summaries)
}

func writeSummaries(w io.Writer, summaries []story.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCHARACTER\tLEVEL\tMESSAGES\tUPDATED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, orDash(s.Title), orDash(s.CharacterName), s.Level, s.Messages, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func loadRecord(cmd *cobra.Command, rawID string) (*story.Record, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid story id %q: %w", rawID, err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := openStorage(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	return store.LoadStory(ctx, id)
}

func runShow(cmd *cobra.Command, args []string) error {
	rec, err := loadRecord(cmd, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if showJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Fprintf(out, "Story:   %s\n", rec.ID)
	fmt.Fprintf(out, "Owner:   %s\n", rec.Owner)
	fmt.Fprintf(out, "Title:   %s\n", orDash(rec.Title))
	fmt.Fprintf(out, "Updated: %s\n\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))

	if c := rec.Character; c != nil {
		fmt.Fprintf(out, "%s, level %d (%d/%d XP)\n", c.Name, c.LevelAndExperience.Level, c.LevelAndExperience.Experience, c.LevelAndExperience.ExperienceToNextLevel)
		fmt.Fprintf(out, "Health %d/%d, Mana %d/%d\n", c.HealthAndMana.CurrentHealth, c.HealthAndMana.MaxHealth, c.HealthAndMana.CurrentMana, c.HealthAndMana.MaxMana)
		fmt.Fprintf(out, "Inventory: %d stacks\n\n", len(c.Inventory.Items))
	} else {
		fmt.Fprint(out, "Character not created yet\n\n")
	}

	for _, e := range rec.ChatHistory {
		if who := export.Speaker(e); who != "" {
			fmt.Fprintf(out, "%s: %s\n\n", who, e.Content)
		}
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid story id %q: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.DeleteStory(ctx, id); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Deleted story %s\n", id)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	rec, err := loadRecord(cmd, args[0])
	if err != nil {
		return err
	}

	path := exportPath
	if path == "" {
		path = fmt.Sprintf("story-%s.pdf", rec.ID)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := export.PDF(f, rec); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅ Exported story %s to %s\n", rec.ID, path)
	return nil
}
