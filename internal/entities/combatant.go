// Package entities provides core data structures for cyber-arena.
package entities

// Stats are the level-derived combat attributes of a combatant
type Stats struct {
	MaxHealth int `json:"max_health"`
	MaxMana   int `json:"max_mana"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
}

// Combatant is either side of a battle
type Combatant struct {
	Name      string `json:"name"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
	Attack    int    `json:"attack"`
	Defense   int    `json:"defense"`
	Mana      int    `json:"mana"`
	MaxMana   int    `json:"max_mana"`
	Level     int    `json:"level"`
}

// NewCombatant creates a combatant at full health and mana
func NewCombatant(name string, level int, stats Stats) Combatant {
	return Combatant{
		Name:      name,
		Health:    stats.MaxHealth,
		MaxHealth: stats.MaxHealth,
		Attack:    stats.Attack,
		Defense:   stats.Defense,
		Mana:      stats.MaxMana,
		MaxMana:   stats.MaxMana,
		Level:     level,
	}
}

// WithHealth returns a copy with health clamped to [0, MaxHealth]
func (c Combatant) WithHealth(health int) Combatant {
	c.Health = clamp(health, c.MaxHealth)
	return c
}

// WithMana returns a copy with mana clamped to [0, MaxMana]
func (c Combatant) WithMana(mana int) Combatant {
	c.Mana = clamp(mana, c.MaxMana)
	return c
}

// Defeated reports whether the combatant has no health left
func (c Combatant) Defeated() bool {
	return c.Health <= 0
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
