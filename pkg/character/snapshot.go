package character

// Snapshot is the persisted form of a Character. Equipment slots are written
// as item objects (or null), never as display strings, so a snapshot restores
// into an equivalent character.
type Snapshot struct {
	Name               string             `json:"name"`
	Lore               string             `json:"lore"`
	Created            bool               `json:"created"`
	LevelAndExperience LevelAndExperience `json:"level_and_experience"`
	HealthAndMana      HealthAndMana      `json:"health_and_mana"`
	Stats              Stats              `json:"stats"`
	Equipment          map[Slot]*Item     `json:"equipment"`
	Inventory          InventorySnapshot  `json:"inventory"`
}

// Snapshot deep-copies the character
func (c *Character) Snapshot() Snapshot {
	eq := make(map[Slot]*Item, len(Slots))
	for _, s := range Slots {
		if itm := c.equipped[s]; itm != nil {
			cp := *itm
			eq[s] = &cp
		} else {
			eq[s] = nil
		}
	}
	return Snapshot{
		Name:               c.name,
		Lore:               c.lore,
		Created:            c.created,
		LevelAndExperience: c.progress,
		HealthAndMana:      c.vitals,
		Stats:              c.stats,
		Equipment:          eq,
		Inventory:          c.inventory.Snapshot(),
	}
}

// FromSnapshot rebuilds a live character. Out-of-range values are pulled
// back inside their bounds and empty stacks are dropped.
func FromSnapshot(s Snapshot) *Character {
	c := New()
	c.name = s.Name
	c.lore = s.Lore
	c.created = s.Created
	c.progress = normalizeProgress(s.LevelAndExperience)
	c.vitals = normalizeVitals(s.HealthAndMana)
	if s.Stats != (Stats{}) {
		c.stats = s.Stats
	}
	for _, slot := range Slots {
		itm := s.Equipment[slot]
		if itm == nil || itm.Amount < 1 {
			continue
		}
		worn := itm.normalized()
		c.equipped[slot] = &worn
	}
	c.inventory = inventoryFromSnapshot(s.Inventory)
	return c
}
