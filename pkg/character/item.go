package character

import (
	"fmt"
	"strconv"
	"strings"
)

// Rarity grades an item
type Rarity string

const (
	RarityCommon    Rarity = "Common"
	RarityUncommon  Rarity = "Uncommon"
	RarityRare      Rarity = "Rare"
	RarityEpic      Rarity = "Epic"
	RarityLegendary Rarity = "Legendary"
)

// Rarities lists every rarity from lowest to highest
var Rarities = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}

// ParseRarity matches a rarity name case-insensitively.
func ParseRarity(s string) (Rarity, bool) {
	s = strings.TrimSpace(s)
	for _, r := range Rarities {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// Item is a stack of identical objects carried or worn by the character.
// Weight is the weight of a single unit in kilograms.
type Item struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	Amount      int     `json:"amount"`
	Rarity      Rarity  `json:"rarity"`
}

// Key returns the inventory identity of the item (its lower-cased name)
func (i Item) Key() string {
	return itemKey(i.Name)
}

// TotalWeight is the weight of the whole stack
func (i Item) TotalWeight() float64 {
	return i.Weight * float64(i.Amount)
}

// String renders the item the way inventory listings show it.
//
// Example output:
//
//	Torch (x2) totaling 1kg - Common
//	  A wooden stick wrapped in oil-soaked cloth.
func (i Item) String() string {
	return fmt.Sprintf("%s (x%d) totaling %skg - %s\n  %s",
		i.Name, i.Amount, formatWeight(i.TotalWeight()), i.Rarity, i.Description)
}

func itemKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalized fills defaults for fields the model tends to leave out.
func (i Item) normalized() Item {
	if i.Rarity == "" {
		i.Rarity = RarityCommon
	} else if r, ok := ParseRarity(string(i.Rarity)); ok {
		i.Rarity = r
	}
	if i.Weight < 0 {
		i.Weight = 0
	}
	return i
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
