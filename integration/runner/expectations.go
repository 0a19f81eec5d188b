package runner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/story"
)

// CheckExpectations validates exp against the saved story and the latest
// Game Master response. Text comparisons ignore case.
func CheckExpectations(exp Expectations, rec *story.Record, responseText string) error {
	if err := checkCharacter(exp, rec.Character); err != nil {
		return err
	}

	lower := strings.ToLower(responseText)
	for _, want := range exp.ResponseContains {
		if !strings.Contains(lower, strings.ToLower(want)) {
			return fmt.Errorf("expected response to contain %q", want)
		}
	}
	for _, unwanted := range exp.ResponseNotContains {
		if strings.Contains(lower, strings.ToLower(unwanted)) {
			return fmt.Errorf("expected response not to contain %q", unwanted)
		}
	}
	if exp.ResponseRegex != "" {
		re, err := regexp.Compile(exp.ResponseRegex)
		if err != nil {
			return fmt.Errorf("invalid response_regex %q: %w", exp.ResponseRegex, err)
		}
		if !re.MatchString(responseText) {
			return fmt.Errorf("response does not match %q", exp.ResponseRegex)
		}
	}
	if exp.ResponseMinLength != nil && len(responseText) < *exp.ResponseMinLength {
		return fmt.Errorf("response length %d is below minimum %d", len(responseText), *exp.ResponseMinLength)
	}
	if exp.ResponseMaxLength != nil && len(responseText) > *exp.ResponseMaxLength {
		return fmt.Errorf("response length %d exceeds maximum %d", len(responseText), *exp.ResponseMaxLength)
	}
	return nil
}

func checkCharacter(exp Expectations, snap *character.Snapshot) error {
	needsSheet := exp.CharacterName != nil || exp.MinLevel != nil || exp.MinExperience != nil ||
		len(exp.Inventory) > 0 || len(exp.InventoryMissing) > 0 || len(exp.Equipped) > 0
	if !needsSheet {
		return nil
	}
	if snap == nil {
		return fmt.Errorf("story has no character")
	}

	if exp.CharacterName != nil && !strings.EqualFold(snap.Name, *exp.CharacterName) {
		return fmt.Errorf("expected character name %q, got %q", *exp.CharacterName, snap.Name)
	}
	if exp.MinLevel != nil && snap.LevelAndExperience.Level < *exp.MinLevel {
		return fmt.Errorf("expected level >= %d, got %d", *exp.MinLevel, snap.LevelAndExperience.Level)
	}
	if exp.MinExperience != nil && snap.LevelAndExperience.Experience < *exp.MinExperience {
		return fmt.Errorf("expected experience >= %d, got %d", *exp.MinExperience, snap.LevelAndExperience.Experience)
	}

	carried := make(map[string]bool, len(snap.Inventory.Items))
	for _, itm := range snap.Inventory.Items {
		carried[itm.Key()] = true
	}
	for _, name := range exp.Inventory {
		if !carried[strings.ToLower(strings.TrimSpace(name))] {
			return fmt.Errorf("expected inventory to contain %q, got %v", name, itemNames(snap.Inventory.Items))
		}
	}
	for _, name := range exp.InventoryMissing {
		if carried[strings.ToLower(strings.TrimSpace(name))] {
			return fmt.Errorf("expected inventory not to contain %q", name)
		}
	}

	for slot, name := range exp.Equipped {
		itm := snap.Equipment[character.Slot(slot)]
		if itm == nil {
			return fmt.Errorf("expected %q equipped in %s, slot is empty", name, slot)
		}
		if !strings.EqualFold(itm.Name, name) {
			return fmt.Errorf("expected %q equipped in %s, got %q", name, slot, itm.Name)
		}
	}
	return nil
}

func itemNames(items []character.Item) []string {
	out := make([]string, 0, len(items))
	for _, itm := range items {
		out = append(out, itm.Name)
	}
	return out
}
