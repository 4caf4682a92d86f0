package calendar

import "sync"

// RepositoryStub keeps the saved snapshot in memory. Tests use SetSaveError
// to simulate a failing disk.
type RepositoryStub struct {
	mu       sync.Mutex
	initial  []Event
	warnings []DecodeWarning
	saved    []Event
	saves    int
	saveErr  error
}

func NewRepositoryStub(initial ...Event) *RepositoryStub {
	return &RepositoryStub{initial: initial}
}

func (r *RepositoryStub) Load() ([]Event, []DecodeWarning, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.initial...), r.warnings, nil
}

func (r *RepositoryStub) Save(events []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append([]Event(nil), events...)
	return nil
}

func (r *RepositoryStub) SetSaveError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveErr = err
}

// Saved returns the last successfully saved snapshot.
func (r *RepositoryStub) Saved() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.saved...)
}

// Saves counts Save calls, failed ones included.
func (r *RepositoryStub) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
