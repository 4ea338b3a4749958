package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// StoreBlobKey is the key used to persist the task store.
const StoreBlobKey = "taskflow-store"

// Blob is a value of the persisted key-value store shared by the tabs of an origin.
type Blob struct {
	Key       string
	Value     []byte
	Revision  int64
	WriterID  string
	UpdatedAt time.Time
}

// PersistedStore is the persisted representation of a task store. Only tasks are persisted.
type PersistedStore struct {
	State   PersistedState `json:"state"`
	Version int            `json:"version"`
}

// PersistedState is the state section of a persisted store.
type PersistedState struct {
	Tasks TaskMap `json:"tasks"`
}

// EncodeStoreBlob returns the persisted representation of the tasks.
func EncodeStoreBlob(tasks TaskMap) ([]byte, error) {
	if tasks == nil {
		tasks = TaskMap{}
	}
	data, err := json.Marshal(PersistedStore{State: PersistedState{Tasks: tasks}})
	if err != nil {
		return nil, fmt.Errorf("could not marshal store: %w", err)
	}
	return data, nil
}

// DecodeStoreBlob returns the tasks of a persisted store. A missing task mapping is
// returned as an empty one.
func DecodeStoreBlob(data []byte) (TaskMap, error) {
	var ps PersistedStore
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("could not unmarshal store: %w", err)
	}
	if ps.State.Tasks == nil {
		return TaskMap{}, nil
	}
	return ps.State.Tasks, nil
}
