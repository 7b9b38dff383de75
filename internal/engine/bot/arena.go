package bot

import (
	"github.com/KirkDiggler/cyber-arena/internal/entities"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
)

// ArenaType selects the enemy roster and difficulty of a local campaign
type ArenaType string

const (
	ArenaCyberFortress ArenaType = "cyber_fortress"
	ArenaDataVault     ArenaType = "data_vault"
	ArenaNetworkMaze   ArenaType = "network_maze"
)

// Arena describes one arena. XPPercent is the experience multiplier in
// percent, 120 meaning x1.2.
type Arena struct {
	Type       ArenaType
	Name       string
	Enemies    []string
	Difficulty string
	// Multiplier of enemy stats in percent
	StatPercent int
	XPPercent   int
	Bot         Difficulty
}

var arenas = map[ArenaType]Arena{
	ArenaCyberFortress: {
		Type:        ArenaCyberFortress,
		Name:        "Cyber Fortress",
		Enemies:     []string{"AI Guardian", "Cyber Sentinel", "Firewall Boss"},
		Difficulty:  "normal",
		StatPercent: 100,
		XPPercent:   120,
		Bot:         DifficultyEasy,
	},
	ArenaDataVault: {
		Type:        ArenaDataVault,
		Name:        "Data Vault",
		Enemies:     []string{"Elite Encryptor", "Rogue Scanner", "Cipher Master"},
		Difficulty:  "hard",
		StatPercent: 140,
		XPPercent:   150,
		Bot:         DifficultyMedium,
	},
	ArenaNetworkMaze: {
		Type:        ArenaNetworkMaze,
		Name:        "Network Maze",
		Enemies:     []string{"Trapped Router", "Malicious Proxy", "Network Overlord"},
		Difficulty:  "expert",
		StatPercent: 180,
		XPPercent:   180,
		Bot:         DifficultyHard,
	},
}

// ArenaCompletionMana is restored when an arena is cleared
const ArenaCompletionMana = 30

// GetArena returns the arena definition
func GetArena(t ArenaType) (Arena, error) {
	a, ok := arenas[t]
	if !ok {
		return Arena{}, errors.InvalidArgumentf("unknown arena %q", t)
	}
	return a, nil
}

// EnemiesInArena returns how many enemies must be beaten to clear arena
// level n: three in the first arena, growing by one every two arenas up to five.
func EnemiesInArena(level int) int {
	if level <= 1 {
		return 3
	}
	return min(5, 3+(level-1)/2)
}

// SpawnEnemy builds the next enemy of an arena. Names cycle through the
// arena roster by the number already defeated; stats scale with the arena
// difficulty and with the arena level by 30% per level.
func SpawnEnemy(t ArenaType, level, defeated int) (entities.Combatant, error) {
	a, err := GetArena(t)
	if err != nil {
		return entities.Combatant{}, err
	}
	if level < 1 {
		level = 1
	}

	// stat% * (100 + 30*(level-1))% computed in integers, divided once
	multiplier := a.StatPercent * (100 + 30*(level-1))
	scale := func(base int) int { return base * multiplier / 10000 }

	name := a.Enemies[defeated%len(a.Enemies)]
	return entities.NewCombatant(name, level, entities.Stats{
		MaxHealth: scale(100 + 20*level),
		Attack:    scale(18 + 4*level),
		Defense:   scale(8 + 2*level),
	}), nil
}

// CompletionXP is the reward for clearing an arena: floor(level*100*xp%)
func CompletionXP(t ArenaType, level int) int {
	a, err := GetArena(t)
	if err != nil {
		return 0
	}
	return level * 100 * a.XPPercent / 100
}
