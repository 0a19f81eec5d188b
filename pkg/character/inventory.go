package character

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// DefaultMaxWeight is the carrying capacity shown against the inventory total
const DefaultMaxWeight = 30.0

// WeightPolicy decides whether MaxWeight is only displayed or also enforced
type WeightPolicy int

const (
	// WeightAdvisory displays the total against the max but never refuses an add
	WeightAdvisory WeightPolicy = iota
	// WeightEnforced refuses adds that would push the total past the max
	WeightEnforced
)

// Inventory holds item stacks keyed by lower-cased item name.
// A stack never has an amount below 1; depleted stacks are deleted.
type Inventory struct {
	items     map[string]*Item
	maxWeight float64
	policy    WeightPolicy
}

// NewInventory creates an empty inventory
func NewInventory(maxWeight float64, policy WeightPolicy) *Inventory {
	if maxWeight <= 0 {
		maxWeight = DefaultMaxWeight
	}
	return &Inventory{
		items:     make(map[string]*Item),
		maxWeight: maxWeight,
		policy:    policy,
	}
}

// MaxWeight returns the carrying capacity
func (inv *Inventory) MaxWeight() float64 { return inv.maxWeight }

// Policy returns the weight policy
func (inv *Inventory) Policy() WeightPolicy { return inv.policy }

// Len returns the number of distinct stacks
func (inv *Inventory) Len() int { return len(inv.items) }

// TotalWeight sums weight × amount over every stack
func (inv *Inventory) TotalWeight() float64 {
	var total float64
	for _, itm := range inv.items {
		total += itm.TotalWeight()
	}
	return total
}

// Get returns a copy of the stack held under name
func (inv *Inventory) Get(name string) (Item, bool) {
	itm, ok := inv.items[itemKey(name)]
	if !ok {
		return Item{}, false
	}
	return *itm, true
}

// Items returns copies of every stack ordered by key
func (inv *Inventory) Items() []Item {
	keys := slices.Sorted(maps.Keys(inv.items))
	out := make([]Item, 0, len(keys))
	for _, k := range keys {
		out = append(out, *inv.items[k])
	}
	return out
}

// Add puts item.Amount units into the inventory, merging with an existing
// stack of the same name. The result is a message for the game master; Add
// never fails.
func (inv *Inventory) Add(item Item) string {
	if item.Amount < 1 {
		return fmt.Sprintf("Nothing added: amount of %s must be at least 1.", item.Name)
	}
	if inv.policy == WeightEnforced {
		next := inv.TotalWeight() + item.TotalWeight()
		if next > inv.maxWeight {
			return fmt.Sprintf("Cannot add %d %s(s): total weight would be %skg of %skg max.",
				item.Amount, item.Name, formatWeight(next), formatWeight(inv.maxWeight))
		}
	}
	return inv.merge(item)
}

// merge is Add without the weight policy. Items coming back from an
// equipment slot were already being carried, so they always fit.
func (inv *Inventory) merge(item Item) string {
	key := item.Key()
	if existing, ok := inv.items[key]; ok {
		if item.Amount > math.MaxInt-existing.Amount {
			existing.Amount = math.MaxInt
		} else {
			existing.Amount += item.Amount
		}
		return fmt.Sprintf("Added %d more %s(s). You now have %d in your inventory. Total weight: %skg",
			item.Amount, item.Name, existing.Amount, formatWeight(existing.TotalWeight()))
	}

	stored := item.normalized()
	inv.items[key] = &stored
	return fmt.Sprintf("Added %s to your inventory.\n"+
		"  - Description: %s\n"+
		"  - Rarity: %s\n"+
		"  - Amount: %d\n"+
		"  - Weight of 1 item: %skg\n"+
		"  - Total weight: %skg",
		stored.Name, stored.Description, stored.Rarity, stored.Amount,
		formatWeight(stored.Weight), formatWeight(stored.TotalWeight()))
}

// Remove takes amount units of name out of the inventory. Asking for more
// than is held removes the whole stack. A missing item is reported, not an
// error.
func (inv *Inventory) Remove(name string, amount int) string {
	key := itemKey(name)
	itm, ok := inv.items[key]
	if !ok {
		return fmt.Sprintf("'%s' is not in your inventory.", name)
	}
	if amount < 1 {
		return fmt.Sprintf("Nothing removed: amount of %s must be at least 1.", itm.Name)
	}

	if amount >= itm.Amount {
		delete(inv.items, key)
		return fmt.Sprintf("Removed all %s(s). None left in your inventory.", itm.Name)
	}

	itm.Amount -= amount
	return fmt.Sprintf("Removed %d %s(s). You have %d left now. Total weight: %skg",
		amount, itm.Name, itm.Amount, formatWeight(itm.TotalWeight()))
}

// takeOne removes a single unit from the stack under key and returns it.
func (inv *Inventory) takeOne(key string) (Item, bool) {
	itm, ok := inv.items[key]
	if !ok || itm.Amount < 1 {
		return Item{}, false
	}
	unit := *itm
	unit.Amount = 1
	itm.Amount--
	if itm.Amount <= 0 {
		delete(inv.items, key)
	}
	return unit, true
}

// Describe lists the inventory for the game master and the UI.
func (inv *Inventory) Describe() string {
	if len(inv.items) == 0 {
		return "Your inventory is empty."
	}

	lines := []string{
		"=== Your Inventory ===",
		fmt.Sprintf("Total weight: %skg of %skg max", formatWeight(inv.TotalWeight()), formatWeight(inv.maxWeight)),
	}
	for _, itm := range inv.Items() {
		lines = append(lines, itm.String())
	}
	return strings.Join(lines, "\n")
}

// InventorySnapshot is the persisted form of an Inventory
type InventorySnapshot struct {
	MaxWeight float64 `json:"max_weight"`
	Enforced  bool    `json:"enforce_max_weight,omitempty"`
	Items     []Item  `json:"items"`
}

// Snapshot copies the inventory into its persisted form
func (inv *Inventory) Snapshot() InventorySnapshot {
	return InventorySnapshot{
		MaxWeight: inv.maxWeight,
		Enforced:  inv.policy == WeightEnforced,
		Items:     inv.Items(),
	}
}

func inventoryFromSnapshot(s InventorySnapshot) *Inventory {
	policy := WeightAdvisory
	if s.Enforced {
		policy = WeightEnforced
	}
	inv := NewInventory(s.MaxWeight, policy)
	for _, itm := range s.Items {
		if itm.Amount < 1 || itemKey(itm.Name) == "" {
			continue
		}
		inv.merge(itm)
	}
	return inv
}
