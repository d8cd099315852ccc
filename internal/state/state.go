// Package state persists scheduler bookkeeping across restarts.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// AgentState is the on-disk scheduler state.
type AgentState struct {
	LastBidRun map[string]time.Time `json:"last_bid_run"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// LoadState reads the state from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*AgentState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &AgentState{LastBidRun: map[string]time.Time{}}, nil
		}
		return nil, err
	}
	var st AgentState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.LastBidRun == nil {
		st.LastBidRun = map[string]time.Time{}
	}
	return &st, nil
}

// SaveState writes the state to a JSON file, creating its directory.
func SaveState(filePath string, st *AgentState) error {
	st.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
