package testutils

import (
	"fmt"
	"sync"

	"github.com/KirkDiggler/rpg-toolkit/dice"
)

var _ dice.Roller = (*ScriptedRoller)(nil)

// ScriptedRoller returns queued results in order. Once the script runs out
// it keeps returning Fallback, or 1 when Fallback is zero.
//
// Rolls larger than the requested size are a test bug and return an error.
type ScriptedRoller struct {
	mu       sync.Mutex
	rolls    []int
	Fallback int
	Calls    []int
}

// NewScriptedRoller creates a roller that plays back rolls
func NewScriptedRoller(rolls ...int) *ScriptedRoller {
	return &ScriptedRoller{rolls: rolls}
}

// Push queues more results
func (r *ScriptedRoller) Push(rolls ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rolls = append(r.rolls, rolls...)
}

// Roll implements dice.Roller
func (r *ScriptedRoller) Roll(size int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, size)

	next := r.Fallback
	if next == 0 {
		next = 1
	}
	if len(r.rolls) > 0 {
		next = r.rolls[0]
		r.rolls = r.rolls[1:]
	}
	if next < 1 || next > size {
		return 0, fmt.Errorf("scripted roll %d out of range for d%d", next, size)
	}
	return next, nil
}

// RollN implements dice.Roller
func (r *ScriptedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		v, err := r.Roll(size)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
