package character

import (
	"fmt"

	"github.com/jwebster45206/d20"
)

// Stats are the six ability scores
type Stats struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// DefaultStats gives a score of 10 in everything
func DefaultStats() Stats {
	return Stats{10, 10, 10, 10, 10, 10}
}

// ToAttributes converts Stats to a map for d20.Actor compatibility
func (s Stats) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     s.Strength,
		"dexterity":    s.Dexterity,
		"constitution": s.Constitution,
		"intelligence": s.Intelligence,
		"wisdom":       s.Wisdom,
		"charisma":     s.Charisma,
	}
}

// Modifier is the standard ability modifier for a score
func Modifier(score int) int {
	m := score - 10
	if m < 0 {
		return (m - 1) / 2
	}
	return m / 2
}

// Actor builds a d20 actor from the character's health and ability scores
func (c *Character) Actor() (*d20.Actor, error) {
	mods := make(map[string]int, 6)
	for ability, score := range c.stats.ToAttributes() {
		mods[ability] = Modifier(score)
	}

	actor, err := d20.NewActor(c.name).
		WithHP(c.vitals.MaxHealth).
		WithAC(10 + Modifier(c.stats.Dexterity)).
		WithAttributes(c.stats.ToAttributes()).
		WithCombatModifiers(mods).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	// Set current HP if different from max
	if c.vitals.CurrentHealth != c.vitals.MaxHealth && c.vitals.CurrentHealth > 0 {
		if err := actor.SetHP(c.vitals.CurrentHealth); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return actor, nil
}
