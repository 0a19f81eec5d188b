// Package export renders stories for download.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

const (
	fontFamily = "Helvetica"
	lineHeight = 6.0
)

// Speaker labels a transcript entry in the export, or returns "" for
// entries that are not shown.
func Speaker(e chat.Entry) string {
	switch e.Role {
	case chat.RoleUser:
		return "You"
	case chat.RoleAssistant:
		if strings.TrimSpace(e.Content) == "" {
			return ""
		}
		return "Game Master"
	}
	return ""
}

// PDF writes the story as a PDF: a character sheet followed by the
// conversation between the player and the game master.
func PDF(w io.Writer, rec *story.Record) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title(rec), true)
	pdf.SetAuthor(rec.Owner, true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 18)
	pdf.MultiCell(0, 10, tr(title(rec)), "", "L", false)
	pdf.Ln(2)

	if rec.Character != nil {
		writeSheet(pdf, tr, rec.Character)
	}

	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(0, 8, "Story", "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	for _, e := range rec.ChatHistory {
		who := Speaker(e)
		if who == "" {
			continue
		}
		pdf.SetFont(fontFamily, "B", 11)
		pdf.CellFormat(0, lineHeight, who, "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 11)
		pdf.MultiCell(0, lineHeight, tr(e.Content), "", "L", false)
		pdf.Ln(2)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf.Output(w)
}

func title(rec *story.Record) string {
	switch {
	case rec.Title != "":
		return rec.Title
	case rec.Character != nil && rec.Character.Name != "":
		return "The tale of " + rec.Character.Name
	}
	return "Untitled story"
}

func writeSheet(pdf *gofpdf.Fpdf, tr func(string) string, c *character.Snapshot) {
	pdf.SetFont(fontFamily, "B", 13)
	pdf.CellFormat(0, 8, tr(c.Name), "B", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont(fontFamily, "", 10)
	lines := []string{
		fmt.Sprintf("Level %d (XP %d/%d)", c.LevelAndExperience.Level, c.LevelAndExperience.Experience, c.LevelAndExperience.ExperienceToNextLevel),
		fmt.Sprintf("Health %d/%d   Mana %d/%d", c.HealthAndMana.CurrentHealth, c.HealthAndMana.MaxHealth, c.HealthAndMana.CurrentMana, c.HealthAndMana.MaxMana),
		fmt.Sprintf("STR %d  DEX %d  CON %d  INT %d  WIS %d  CHA %d",
			c.Stats.Strength, c.Stats.Dexterity, c.Stats.Constitution, c.Stats.Intelligence, c.Stats.Wisdom, c.Stats.Charisma),
	}
	for _, l := range lines {
		pdf.CellFormat(0, 5, l, "", 1, "L", false, 0, "")
	}
	if c.Lore != "" {
		pdf.Ln(1)
		pdf.SetFont(fontFamily, "I", 10)
		pdf.MultiCell(0, 5, tr(c.Lore), "", "L", false)
		pdf.SetFont(fontFamily, "", 10)
	}

	pdf.Ln(1)
	for _, slot := range character.Slots {
		itm := c.Equipment[slot]
		worn := "empty"
		if itm != nil {
			worn = itm.Name
		}
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s: %s", slot.DisplayName(), worn)), "", 1, "L", false, 0, "")
	}
	if len(c.Inventory.Items) > 0 {
		pdf.Ln(1)
		names := make([]string, 0, len(c.Inventory.Items))
		for _, itm := range c.Inventory.Items {
			names = append(names, fmt.Sprintf("%s x%d", itm.Name, itm.Amount))
		}
		pdf.MultiCell(0, 5, tr("Inventory: "+strings.Join(names, ", ")), "", "L", false)
	}
	pdf.Ln(4)
}
