package service

import (
	"sync"

	"atkform/internal/model"
)

// AppContext is the state the top-level controller owns and hands to the services: the
// current settings and the latest record snapshot published by the store.
type AppContext struct {
	mu       sync.RWMutex
	settings model.Settings
	records  []model.Request
}

func NewAppContext(settings model.Settings) *AppContext {
	return &AppContext{settings: settings, records: []model.Request{}}
}

func (a *AppContext) Settings() model.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

func (a *AppContext) SetSettings(s model.Settings) {
	a.mu.Lock()
	a.settings = s
	a.mu.Unlock()
}

// OnRecordsChanged replaces the snapshot. It is registered as a store subscriber.
func (a *AppContext) OnRecordsChanged(records []model.Request) {
	snapshot := model.CloneRequests(records)
	a.mu.Lock()
	a.records = snapshot
	a.mu.Unlock()
}

// Records returns a copy of the current snapshot.
func (a *AppContext) Records() []model.Request {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return model.CloneRequests(a.records)
}

// Find returns a copy of the record with the given backend id.
func (a *AppContext) Find(id string) (model.Request, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := range a.records {
		if a.records[i].ID == id {
			return a.records[i].Clone(), true
		}
	}
	return model.Request{}, false
}
