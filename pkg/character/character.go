package character

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slot is an equipment position on the character's body
type Slot string

const (
	SlotHead     Slot = "head"
	SlotChest    Slot = "chest"
	SlotLegs     Slot = "legs"
	SlotFeet     Slot = "feet"
	SlotHands    Slot = "hands"
	SlotMainHand Slot = "main_hand"
	SlotOffHand  Slot = "off_hand"
)

// Slots lists the seven equipment slots in display order
var Slots = []Slot{SlotHead, SlotChest, SlotLegs, SlotFeet, SlotHands, SlotMainHand, SlotOffHand}

// ParseSlot resolves a slot name such as "main_hand"
func ParseSlot(s string) (Slot, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, slot := range Slots {
		if s == string(slot) {
			return slot, true
		}
	}
	return "", false
}

// DisplayName returns "Main Hand" for SlotMainHand
func (s Slot) DisplayName() string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(s), "_", " "))
}

func slotList() string {
	names := make([]string, len(Slots))
	for i, s := range Slots {
		names[i] = string(s)
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// LevelAndExperience tracks progression
type LevelAndExperience struct {
	Level                 int `json:"level"`
	Experience            int `json:"experience"`
	ExperienceToNextLevel int `json:"experience_to_next_level"`
}

// HealthAndMana holds the character's vitals
type HealthAndMana struct {
	CurrentHealth int `json:"current_health"`
	MaxHealth     int `json:"max_health"`
	CurrentMana   int `json:"current_mana"`
	MaxMana       int `json:"max_mana"`
}

// Character is the player character of one story. All mutation goes through
// its methods; results are human-readable strings the game master narrates.
type Character struct {
	name      string
	lore      string
	progress  LevelAndExperience
	vitals    HealthAndMana
	stats     Stats
	equipped  map[Slot]*Item
	inventory *Inventory
	created   bool
}

// Option customizes a new Character
type Option func(*Character)

// WithInventoryLimit sets the carrying capacity and whether it is enforced
func WithInventoryLimit(maxWeight float64, policy WeightPolicy) Option {
	return func(c *Character) {
		c.inventory = NewInventory(maxWeight, policy)
	}
}

// New returns an uncreated character with beginner defaults
func New(opts ...Option) *Character {
	c := &Character{
		name: "Unnamed",
		lore: "No lore available.",
		progress: LevelAndExperience{
			Level:                 1,
			Experience:            0,
			ExperienceToNextLevel: 10,
		},
		vitals: HealthAndMana{
			CurrentHealth: 10,
			MaxHealth:     10,
			CurrentMana:   10,
			MaxMana:       10,
		},
		stats:     DefaultStats(),
		equipped:  emptyEquipment(),
		inventory: NewInventory(DefaultMaxWeight, WeightAdvisory),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func emptyEquipment() map[Slot]*Item {
	eq := make(map[Slot]*Item, len(Slots))
	for _, s := range Slots {
		eq[s] = nil
	}
	return eq
}

// CreateParams is everything the creation agent supplies
type CreateParams struct {
	Name               string
	Lore               string
	LevelAndExperience LevelAndExperience
	HealthAndMana      HealthAndMana
	Stats              *Stats
	Equipment          map[Slot]*Item
}

// Create overwrites the whole character. Calling it twice replaces the first
// character entirely; the inventory starts empty either way.
func (c *Character) Create(p CreateParams) {
	c.name = strings.TrimSpace(p.Name)
	if c.name == "" {
		c.name = "Unnamed"
	}
	c.lore = p.Lore
	c.progress = normalizeProgress(p.LevelAndExperience)
	c.vitals = normalizeVitals(p.HealthAndMana)
	if p.Stats != nil {
		c.stats = *p.Stats
	} else {
		c.stats = DefaultStats()
	}

	c.equipped = emptyEquipment()
	for _, slot := range Slots {
		itm := p.Equipment[slot]
		if itm == nil || itemKey(itm.Name) == "" {
			continue
		}
		worn := itm.normalized()
		if worn.Amount < 1 {
			worn.Amount = 1
		}
		c.equipped[slot] = &worn
	}

	c.inventory = NewInventory(c.inventory.MaxWeight(), c.inventory.Policy())
	c.created = true
}

func normalizeProgress(p LevelAndExperience) LevelAndExperience {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.Experience < 0 {
		p.Experience = 0
	}
	if p.ExperienceToNextLevel < 1 {
		p.ExperienceToNextLevel = 10
	}
	return p
}

func normalizeVitals(v HealthAndMana) HealthAndMana {
	v.MaxHealth = max(v.MaxHealth, 0)
	v.MaxMana = max(v.MaxMana, 0)
	v.CurrentHealth = min(max(v.CurrentHealth, 0), v.MaxHealth)
	v.CurrentMana = min(max(v.CurrentMana, 0), v.MaxMana)
	return v
}

// IsCreated reports whether Create has run
func (c *Character) IsCreated() bool { return c.created }

// Name returns the character's name
func (c *Character) Name() string { return c.name }

// Lore returns the character's backstory
func (c *Character) Lore() string { return c.lore }

// Rename changes the name; blank names are ignored
func (c *Character) Rename(name string) {
	if name = strings.TrimSpace(name); name != "" {
		c.name = name
	}
}

// SetLore replaces the backstory; blank lore is ignored
func (c *Character) SetLore(lore string) {
	if strings.TrimSpace(lore) != "" {
		c.lore = lore
	}
}

// Inventory exposes the owned inventory for item adds and removals
func (c *Character) Inventory() *Inventory { return c.inventory }

// AddItem adds to the inventory
func (c *Character) AddItem(item Item) string {
	return c.inventory.Add(item)
}

// RemoveItem removes from the inventory
func (c *Character) RemoveItem(name string, amount int) string {
	return c.inventory.Remove(name, amount)
}

// Equip moves one unit of itemName from the inventory into slot. Anything
// already in the slot goes back to the inventory first, so no unit is lost.
func (c *Character) Equip(slot string, itemName string) string {
	s, ok := ParseSlot(slot)
	if !ok {
		return fmt.Sprintf("Invalid slot: %s, list of valid slots: %s", slot, slotList())
	}

	key := itemKey(itemName)
	held, ok := c.inventory.items[key]
	if !ok {
		return fmt.Sprintf("You don't have '%s' in your inventory.", itemName)
	}
	if held.Amount < 1 {
		return fmt.Sprintf("No more of '%s' left in inventory.", itemName)
	}

	var swapped string
	if prev := c.equipped[s]; prev != nil {
		c.inventory.merge(*prev)
		c.equipped[s] = nil
		swapped = fmt.Sprintf(" %s was returned to your inventory.", prev.Name)
	}

	unit, _ := c.inventory.takeOne(key)
	c.equipped[s] = &unit
	return fmt.Sprintf("Equipped %s in %s slot.%s", itemName, s, swapped)
}

// Unequip returns the item in slot to the inventory.
//
// The whole equipped stack goes back, not a single unit. Equip only ever
// moves one unit, but a stack can be larger when it was equipped at creation.
func (c *Character) Unequip(slot string) string {
	s, ok := ParseSlot(slot)
	if !ok {
		return fmt.Sprintf("Invalid slot: %s, list of valid slots: %s", slot, slotList())
	}

	itm := c.equipped[s]
	if itm == nil {
		return fmt.Sprintf("There's no item equipped in %s slot.", s)
	}

	c.inventory.merge(*itm)
	c.equipped[s] = nil
	return fmt.Sprintf("Unequipped %s from %s slot.", itm.Name, s)
}

// Equipped returns a copy of the item in slot, if any
func (c *Character) Equipped(slot Slot) (Item, bool) {
	itm := c.equipped[slot]
	if itm == nil {
		return Item{}, false
	}
	return *itm, true
}

// AdjustHealth adds delta to current health, clamped into [0, max]
func (c *Character) AdjustHealth(delta int) string {
	c.vitals.CurrentHealth = clampAdd(c.vitals.CurrentHealth, delta, c.vitals.MaxHealth)
	return fmt.Sprintf("Health: %d/%d", c.vitals.CurrentHealth, c.vitals.MaxHealth)
}

// AdjustMana adds delta to current mana, clamped into [0, max]
func (c *Character) AdjustMana(delta int) string {
	c.vitals.CurrentMana = clampAdd(c.vitals.CurrentMana, delta, c.vitals.MaxMana)
	return fmt.Sprintf("Mana: %d/%d", c.vitals.CurrentMana, c.vitals.MaxMana)
}

// clampAdd computes current+delta bounded to [0, hi] without overflowing.
func clampAdd(current, delta, hi int) int {
	if delta >= 0 {
		if delta > hi-current {
			return hi
		}
		return current + delta
	}
	if delta < -current {
		return 0
	}
	return current + delta
}

// AdjustExperience adds delta experience and applies every level-up it pays
// for. Each level consumes the current threshold and doubles the next one.
func (c *Character) AdjustExperience(delta int) string {
	p := &c.progress
	switch {
	case delta > 0 && p.Experience > math.MaxInt-delta:
		p.Experience = math.MaxInt
	case p.Experience+delta < 0:
		p.Experience = 0
	default:
		p.Experience += delta
	}

	leveled := false
	for p.Experience >= p.ExperienceToNextLevel {
		p.Experience -= p.ExperienceToNextLevel
		p.ExperienceToNextLevel = doubled(p.ExperienceToNextLevel)
		c.advanceLevel()
		leveled = true
	}

	if leveled {
		return fmt.Sprintf("Level up! Now level %d. XP: %d/%d", p.Level, p.Experience, p.ExperienceToNextLevel)
	}
	return fmt.Sprintf("XP: %d/%d", p.Experience, p.ExperienceToNextLevel)
}

// LevelUp grants one level directly. Experience restarts at zero and the
// threshold doubles.
func (c *Character) LevelUp() string {
	c.advanceLevel()
	c.progress.Experience = 0
	c.progress.ExperienceToNextLevel = doubled(c.progress.ExperienceToNextLevel)
	return fmt.Sprintf("LEVEL UP! Now level %d.\nMax Health: %d\nMax Mana: %d\nNext Level Requires: %d XP",
		c.progress.Level, c.vitals.MaxHealth, c.vitals.MaxMana, c.progress.ExperienceToNextLevel)
}

// advanceLevel increments the level, grows max health and mana by 10%
// (rounded down) and refills both.
func (c *Character) advanceLevel() {
	c.progress.Level++
	c.vitals.MaxHealth = grow(c.vitals.MaxHealth)
	c.vitals.CurrentHealth = c.vitals.MaxHealth
	c.vitals.MaxMana = grow(c.vitals.MaxMana)
	c.vitals.CurrentMana = c.vitals.MaxMana
}

func grow(n int) int {
	if n > math.MaxInt/11 {
		return n
	}
	return n * 11 / 10
}

func doubled(n int) int {
	if n > math.MaxInt/2 {
		return math.MaxInt
	}
	return n * 2
}

// SeeHealthAndMana returns the vitals
func (c *Character) SeeHealthAndMana() HealthAndMana { return c.vitals }

// SeeLevelAndExperience returns level progression
func (c *Character) SeeLevelAndExperience() LevelAndExperience { return c.progress }

// SeeStats returns the ability scores
func (c *Character) SeeStats() Stats { return c.stats }

// SeeInventory lists the inventory
func (c *Character) SeeInventory() string { return c.inventory.Describe() }

// SeeEquipment lists every slot, one per line.
//
// Example output:
//
//	Head: Iron Helm (x1, Rare)
//	Chest: empty
func (c *Character) SeeEquipment() string {
	lines := make([]string, 0, len(Slots))
	for _, s := range Slots {
		itm := c.equipped[s]
		if itm == nil {
			lines = append(lines, fmt.Sprintf("%s: empty", s.DisplayName()))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s (x%d, %s)", s.DisplayName(), itm.Name, itm.Amount, itm.Rarity))
	}
	return strings.Join(lines, "\n")
}
