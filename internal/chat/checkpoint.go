package chat

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"
)

// checkpoints holds pipeline state for in-flight queries. Entries are
// removed when the query finishes.
type checkpoints struct {
	mu     sync.Mutex
	states map[string]state.State
}

func newCheckpoints() *checkpoints {
	return &checkpoints{states: make(map[string]state.State)}
}

func (c *checkpoints) Save(st state.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[st.RunID] = st
	return nil
}

func (c *checkpoints) Load(runID string) (state.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.states[runID]
	if !ok {
		return state.State{}, fmt.Errorf("checkpoint not found: %s", runID)
	}
	return st, nil
}

func (c *checkpoints) Delete(runID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, runID)
	return nil
}

func (c *checkpoints) List() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.states)), nil
}

func (c *checkpoints) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}
