// Package store persists workspace records: the identity, root path, lifecycle
// status and recorded process id of each agent workspace.
//
// The workspace and process packages never own this data; they read and update
// it through the Store interface so the backing database can change freely.
package store

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a workspace's supervised process
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusStopped, StatusRunning, StatusError:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound is returned when a workspace record does not exist
	ErrNotFound = errors.New("workspace not found")

	// ErrInvalidStatus is returned when a record carries an unknown status
	ErrInvalidStatus = errors.New("invalid workspace status")
)

// Workspace is the persisted record for one agent workspace.
// PID is zero when no process id is recorded.
type Workspace struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Path      string    `json:"path" yaml:"path"`
	Status    Status    `json:"status" yaml:"status"`
	PID       int       `json:"pid,omitempty" yaml:"pid,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// HasPID reports whether a process id is recorded
func (w *Workspace) HasPID() bool {
	return w.PID > 0
}

// Store is the persistence port for workspace records
type Store interface {
	// Create inserts a new record, assigning an ID when empty
	Create(ctx context.Context, ws *Workspace) error

	// Get returns the record with the given id or ErrNotFound
	Get(ctx context.Context, id string) (*Workspace, error)

	// Update replaces the stored record or returns ErrNotFound
	Update(ctx context.Context, ws *Workspace) error

	// Delete removes the record or returns ErrNotFound
	Delete(ctx context.Context, id string) error

	// List returns all records ordered by creation time
	List(ctx context.Context) ([]*Workspace, error)

	// Close releases resources held by the store
	Close() error
}

func prepareNew(ws *Workspace, now time.Time) error {
	if ws.ID == "" {
		ws.ID = newID()
	}
	if ws.Status == "" {
		ws.Status = StatusStopped
	}
	if !ws.Status.Valid() {
		return ErrInvalidStatus
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	ws.UpdatedAt = now
	return nil
}
