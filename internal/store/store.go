package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Role defines the access level of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User represents an account in the system.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Case is a teaching case used as the blueprint for simulations.
type Case struct {
	ID            int64
	UserID        int64
	CaseName      string
	PatientName   string
	PatientID     string
	BaseValues    map[string]any // vital-sign baseline, stored as JSON
	BaseProblem   string
	LearningGoals string
	StartPoint    string
	CreatedAt     time.Time
}

// CaseUpdate carries partial changes for a case. Nil fields are left as-is.
type CaseUpdate struct {
	CaseName      *string
	PatientName   *string
	PatientID     *string
	BaseProblem   *string
	LearningGoals *string
	StartPoint    *string
}

// Simulation is one running or finished teaching session built from a case.
type Simulation struct {
	ID           int64
	UserID       int64
	CaseID       int64
	PatientNotes string
	Passphrase   string
	Active       bool
	CreatedAt    time.Time
}

// File is an uploaded artifact attached to a simulation.
type File struct {
	ID           int64
	UserID       int64
	SimulationID int64
	FileName     string
	FilePath     string
	CreatedAt    time.Time
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser creates a new user with a pre-hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// CaseStore handles case persistence.
type CaseStore interface {
	// CreateCase creates a new teaching case owned by a user.
	CreateCase(ctx context.Context, c *Case) (*Case, error)

	// GetCaseByID retrieves a case by ID.
	GetCaseByID(ctx context.Context, id int64) (*Case, error)

	// ListCases lists all cases.
	ListCases(ctx context.Context) ([]*Case, error)

	// UpdateCase applies a partial update and returns the updated case.
	UpdateCase(ctx context.Context, id int64, upd CaseUpdate) (*Case, error)

	// DeleteCase removes a case.
	DeleteCase(ctx context.Context, id int64) error
}

// SimulationStore handles simulation persistence.
type SimulationStore interface {
	// CreateSimulation creates a simulation for a case.
	CreateSimulation(ctx context.Context, sim *Simulation) (*Simulation, error)

	// GetSimulationByID retrieves a simulation by ID.
	GetSimulationByID(ctx context.Context, id int64) (*Simulation, error)

	// ListSimulations lists simulations owned by a user.
	ListSimulations(ctx context.Context, userID int64) ([]*Simulation, error)

	// SetSimulationState marks a simulation active or finished.
	SetSimulationState(ctx context.Context, id int64, active bool) error

	// DeleteSimulation removes a simulation.
	DeleteSimulation(ctx context.Context, id int64) error
}

// FileStore handles uploaded file metadata.
type FileStore interface {
	// CreateFile records an uploaded file.
	CreateFile(ctx context.Context, f *File) (*File, error)

	// GetFileByID retrieves a file record by ID.
	GetFileByID(ctx context.Context, id int64) (*File, error)

	// ListFilesBySimulation lists files attached to a simulation.
	ListFilesBySimulation(ctx context.Context, simulationID int64) ([]*File, error)

	// DeleteFile removes a file record.
	DeleteFile(ctx context.Context, id int64) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	CaseStore
	SimulationStore
	FileStore

	// Close closes the underlying database connection.
	Close() error
}
