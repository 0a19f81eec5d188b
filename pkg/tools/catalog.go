package tools

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/gamemaster-agent/pkg/character"
	"github.com/jwebster45206/gamemaster-agent/pkg/chat"
)

// ID names a tool the model can call
type ID string

const (
	CreateCharacter          ID = "create_character"
	AddItem                  ID = "add_item"
	RemoveItem               ID = "remove_item"
	EquipItem                ID = "equip_item"
	UnequipItem              ID = "unequip_item"
	AdjustHealth             ID = "adjust_health"
	AdjustMana               ID = "adjust_mana"
	AdjustExperience         ID = "adjust_experience"
	LevelUp                  ID = "level_up"
	SeeInventory             ID = "see_inventory"
	SeeEquipment             ID = "see_equipment"
	SeeInventoryAndEquipment ID = "see_inventory_and_equipment"
	SeeHealth                ID = "see_health"
	SeeMana                  ID = "see_mana"
	SeeLevel                 ID = "see_level"
	SeeExperience            ID = "see_experience"
	SeeName                  ID = "see_name"
	SeeLore                  ID = "see_lore"
	SeeStats                 ID = "see_stats"
)

// Set is one of the capability sets handed to an agent
type Set int

const (
	// CreationSet holds only create_character
	CreationSet Set = iota
	// ActionSet holds every mutating tool plus the read tools
	ActionSet
	// ObservationSet is the read-only subset of ActionSet
	ObservationSet
)

func (s Set) String() string {
	switch s {
	case CreationSet:
		return "creation"
	case ActionSet:
		return "action"
	case ObservationSet:
		return "observation"
	}
	return fmt.Sprintf("set(%d)", int(s))
}

// handler runs a tool against a character with validated arguments
type handler func(c *character.Character, args Args) (string, error)

type definition struct {
	spec     chat.ToolSpec
	run      handler
	readOnly bool
}

var (
	slotNames   = enumOf(character.Slots)
	rarityNames = enumOf(character.Rarities)
)

func enumOf[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}

func itemParams() []chat.Param {
	return []chat.Param{
		{Name: "name", Type: chat.TypeString, Description: "Item name", Required: true},
		{Name: "description", Type: chat.TypeString, Description: "Short description of the item", Default: ""},
		{Name: "weight", Type: chat.TypeNumber, Description: "Weight of one unit in kg", Default: 0.0},
		{Name: "amount", Type: chat.TypeInteger, Description: "Number of units", Default: 1},
		{Name: "rarity", Type: chat.TypeString, Enum: rarityNames, Default: string(character.RarityCommon)},
	}
}

func equipmentParams() []chat.Param {
	params := make([]chat.Param, 0, len(character.Slots))
	for _, s := range character.Slots {
		params = append(params, chat.Param{
			Name:        string(s),
			Type:        chat.TypeObject,
			Description: fmt.Sprintf("Item worn in the %s slot, or null", s.DisplayName()),
			Properties:  itemParams(),
		})
	}
	return params
}

var statNames = []string{"strength", "dexterity", "constitution", "intelligence", "wisdom", "charisma"}

func statParams() []chat.Param {
	params := make([]chat.Param, 0, len(statNames))
	for _, n := range statNames {
		params = append(params, chat.Param{Name: n, Type: chat.TypeInteger, Default: 10})
	}
	return params
}

func amountParam(desc string) []chat.Param {
	return []chat.Param{{Name: "amount", Type: chat.TypeInteger, Description: desc, Required: true}}
}

// catalog is the table of every tool, built once at startup
var catalog = map[ID]definition{
	CreateCharacter: {
		spec: chat.ToolSpec{
			Name:        string(CreateCharacter),
			Description: "Creates the player character with comprehensive attributes.",
			Params: []chat.Param{
				{Name: "name", Type: chat.TypeString, Description: "Character name, 2-5 words", Required: true},
				{Name: "lore", Type: chat.TypeString, Description: "Descriptive backstory", Required: true},
				{Name: "level_and_experience", Type: chat.TypeObject, Required: true, Properties: []chat.Param{
					{Name: "level", Type: chat.TypeInteger, Required: true},
					{Name: "experience", Type: chat.TypeInteger, Required: true},
					{Name: "experience_to_next_level", Type: chat.TypeInteger, Required: true},
				}},
				{Name: "health_and_mana", Type: chat.TypeObject, Required: true, Properties: []chat.Param{
					{Name: "current_health", Type: chat.TypeInteger, Required: true},
					{Name: "max_health", Type: chat.TypeInteger, Required: true},
					{Name: "current_mana", Type: chat.TypeInteger, Required: true},
					{Name: "max_mana", Type: chat.TypeInteger, Required: true},
				}},
				{Name: "equipment", Type: chat.TypeObject, Required: true, Properties: equipmentParams()},
				{Name: "stats", Type: chat.TypeObject, Description: "Ability scores", Properties: statParams()},
			},
		},
		run: runCreate,
	},
	AddItem: {
		spec: chat.ToolSpec{Name: string(AddItem), Description: "Adds an item to the player's inventory.", Params: itemParams()},
		run: func(c *character.Character, a Args) (string, error) {
			return c.AddItem(itemFromArgs(a)), nil
		},
	},
	RemoveItem: {
		spec: chat.ToolSpec{
			Name:        string(RemoveItem),
			Description: "Removes an item from the player's inventory.",
			Params: []chat.Param{
				{Name: "name", Type: chat.TypeString, Required: true},
				{Name: "amount", Type: chat.TypeInteger, Default: 1},
			},
		},
		run: func(c *character.Character, a Args) (string, error) {
			return c.RemoveItem(a.String("name"), a.Int("amount")), nil
		},
	},
	EquipItem: {
		spec: chat.ToolSpec{
			Name:        string(EquipItem),
			Description: "Equips an item from inventory to a specific slot.",
			Params: []chat.Param{
				{Name: "item_name", Type: chat.TypeString, Required: true},
				{Name: "slot", Type: chat.TypeString, Required: true, Enum: slotNames},
			},
		},
		run: func(c *character.Character, a Args) (string, error) {
			return c.Equip(a.String("slot"), a.String("item_name")), nil
		},
	},
	UnequipItem: {
		spec: chat.ToolSpec{
			Name:        string(UnequipItem),
			Description: "Removes an item from an equipment slot and returns it to the inventory.",
			Params:      []chat.Param{{Name: "slot", Type: chat.TypeString, Required: true, Enum: slotNames}},
		},
		run: func(c *character.Character, a Args) (string, error) {
			return c.Unequip(a.String("slot")), nil
		},
	},
	AdjustHealth: {
		spec: chat.ToolSpec{Name: string(AdjustHealth), Description: "Modifies character's current health.", Params: amountParam("Positive heals, negative damages")},
		run: func(c *character.Character, a Args) (string, error) {
			return c.AdjustHealth(a.Int("amount")), nil
		},
	},
	AdjustMana: {
		spec: chat.ToolSpec{Name: string(AdjustMana), Description: "Modifies character's current mana.", Params: amountParam("Positive restores, negative spends")},
		run: func(c *character.Character, a Args) (string, error) {
			return c.AdjustMana(a.Int("amount")), nil
		},
	},
	AdjustExperience: {
		spec: chat.ToolSpec{Name: string(AdjustExperience), Description: "Modifies character's experience points and handles level up if needed.", Params: amountParam("Experience to grant")},
		run: func(c *character.Character, a Args) (string, error) {
			return c.AdjustExperience(a.Int("amount")), nil
		},
	},
	LevelUp: {
		spec: chat.ToolSpec{Name: string(LevelUp), Description: "Advances character to next level with benefits."},
		run: func(c *character.Character, _ Args) (string, error) {
			return c.LevelUp(), nil
		},
	},
	SeeInventory: readTool(SeeInventory, "Returns detailed inventory contents", func(c *character.Character) (string, error) {
		return c.SeeInventory(), nil
	}),
	SeeEquipment: readTool(SeeEquipment, "Returns currently equipped items in all slots", func(c *character.Character) (string, error) {
		return c.SeeEquipment(), nil
	}),
	SeeInventoryAndEquipment: readTool(SeeInventoryAndEquipment, "Returns detailed list of all inventory items and equipment.", func(c *character.Character) (string, error) {
		return fmt.Sprintf("Inventory:\n%s\nEquipment:\n%s", c.SeeInventory(), c.SeeEquipment()), nil
	}),
	SeeHealth: readTool(SeeHealth, "Returns current health and mana status", func(c *character.Character) (string, error) {
		v := c.SeeHealthAndMana()
		return fmt.Sprintf("Health: %d/%d, Mana: %d/%d", v.CurrentHealth, v.MaxHealth, v.CurrentMana, v.MaxMana), nil
	}),
	SeeMana: readTool(SeeMana, "Returns current mana status", func(c *character.Character) (string, error) {
		v := c.SeeHealthAndMana()
		return fmt.Sprintf("Mana: %d/%d", v.CurrentMana, v.MaxMana), nil
	}),
	SeeLevel: readTool(SeeLevel, "Returns current level and experience progress", func(c *character.Character) (string, error) {
		p := c.SeeLevelAndExperience()
		return fmt.Sprintf("Level: %d, XP: %d/%d", p.Level, p.Experience, p.ExperienceToNextLevel), nil
	}),
	SeeExperience: readTool(SeeExperience, "Returns current experience and XP to next level", func(c *character.Character) (string, error) {
		p := c.SeeLevelAndExperience()
		return fmt.Sprintf("XP: %d/%d", p.Experience, p.ExperienceToNextLevel), nil
	}),
	SeeName: readTool(SeeName, "Returns the character's name", func(c *character.Character) (string, error) {
		return c.Name(), nil
	}),
	SeeLore: readTool(SeeLore, "Returns the character's lore", func(c *character.Character) (string, error) {
		return c.Lore(), nil
	}),
	SeeStats: readTool(SeeStats, "Returns ability scores, modifiers and armor class", runSeeStats),
}

func readTool(id ID, desc string, fn func(c *character.Character) (string, error)) definition {
	return definition{
		spec:     chat.ToolSpec{Name: string(id), Description: desc},
		run:      func(c *character.Character, _ Args) (string, error) { return fn(c) },
		readOnly: true,
	}
}

var (
	creationIDs    = []ID{CreateCharacter}
	actionIDs      = []ID{AddItem, RemoveItem, EquipItem, UnequipItem, AdjustHealth, AdjustMana, AdjustExperience, LevelUp, SeeInventory, SeeEquipment, SeeInventoryAndEquipment, SeeHealth, SeeMana, SeeLevel, SeeExperience, SeeName, SeeLore, SeeStats}
	observationIDs = []ID{SeeInventory, SeeEquipment, SeeInventoryAndEquipment, SeeHealth, SeeMana, SeeLevel, SeeExperience, SeeName, SeeLore, SeeStats}
)

// IDs lists the members of a set in the order the model sees them
func (s Set) IDs() []ID {
	switch s {
	case CreationSet:
		return creationIDs
	case ActionSet:
		return actionIDs
	case ObservationSet:
		return observationIDs
	}
	return nil
}

// Contains reports whether id belongs to the set
func (s Set) Contains(id ID) bool {
	for _, member := range s.IDs() {
		if member == id {
			return true
		}
	}
	return false
}

func itemFromArgs(a Args) character.Item {
	rarity, _ := character.ParseRarity(a.String("rarity"))
	return character.Item{
		Name:        a.String("name"),
		Description: a.String("description"),
		Weight:      a.Float("weight"),
		Amount:      a.Int("amount"),
		Rarity:      rarity,
	}
}

func runCreate(c *character.Character, a Args) (string, error) {
	le := a.Object("level_and_experience")
	hm := a.Object("health_and_mana")

	equipment := make(map[character.Slot]*character.Item)
	eq := a.Object("equipment")
	for _, s := range character.Slots {
		if slotArgs := eq.Object(string(s)); slotArgs != nil {
			itm := itemFromArgs(slotArgs)
			equipment[s] = &itm
		}
	}

	params := character.CreateParams{
		Name: a.String("name"),
		Lore: a.String("lore"),
		LevelAndExperience: character.LevelAndExperience{
			Level:                 le.Int("level"),
			Experience:            le.Int("experience"),
			ExperienceToNextLevel: le.Int("experience_to_next_level"),
		},
		HealthAndMana: character.HealthAndMana{
			CurrentHealth: hm.Int("current_health"),
			MaxHealth:     hm.Int("max_health"),
			CurrentMana:   hm.Int("current_mana"),
			MaxMana:       hm.Int("max_mana"),
		},
		Equipment: equipment,
	}
	if st := a.Object("stats"); st != nil {
		params.Stats = &character.Stats{
			Strength:     st.Int("strength"),
			Dexterity:    st.Int("dexterity"),
			Constitution: st.Int("constitution"),
			Intelligence: st.Int("intelligence"),
			Wisdom:       st.Int("wisdom"),
			Charisma:     st.Int("charisma"),
		}
	}
	c.Create(params)

	return fmt.Sprintf("Character '%s' created!\nLore: %s\nEquipment Slots: %s\nStarting Inventory: %s",
		c.Name(), c.Lore(), c.SeeEquipment(), c.SeeInventory()), nil
}

func runSeeStats(c *character.Character) (string, error) {
	actor, err := c.Actor()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "HP: %d/%d, AC: %d", actor.HP(), actor.MaxHP(), actor.AC())
	for _, name := range statNames {
		score, _ := actor.Attribute(name)
		fmt.Fprintf(&b, "\n%s: %d (%+d)", name, score, character.Modifier(score))
	}
	return b.String(), nil
}
