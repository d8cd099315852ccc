package state

import (
	"log"
	"sync"
	"time"
)

// Manager guards the agent state and writes it through on every change.
// An empty file path keeps the state in memory only.
type Manager struct {
	mu       sync.Mutex
	state    *AgentState
	filePath string
}

// NewManager creates a Manager, loading state from disk.
func NewManager(filePath string) (*Manager, error) {
	st := &AgentState{LastBidRun: map[string]time.Time{}}
	if filePath != "" {
		var err error
		if st, err = LoadState(filePath); err != nil {
			return nil, err
		}
	}
	return &Manager{state: st, filePath: filePath}, nil
}

// LastBidRun returns when segment last ran a buy cycle; zero if never.
func (m *Manager) LastBidRun(segment string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.LastBidRun[segment]
}

// SetLastBidRun records a buy cycle run for segment.
func (m *Manager) SetLastBidRun(segment string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.LastBidRun[segment] = at
	m.save()
}

func (m *Manager) save() {
	if m.filePath == "" {
		return
	}
	if err := SaveState(m.filePath, m.state); err != nil {
		log.Printf("[ERROR] save agent state: %v", err)
	}
}
