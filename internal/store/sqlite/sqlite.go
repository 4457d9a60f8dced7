package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Beds-2-Bytes/backend/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'student',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cases (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        INTEGER NOT NULL,
	case_name      TEXT NOT NULL,
	patient_name   TEXT NOT NULL,
	patient_id     TEXT NOT NULL,
	base_values    TEXT NOT NULL DEFAULT '{}',
	base_problem   TEXT NOT NULL,
	learning_goals TEXT NOT NULL,
	start_point    TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS simulations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       INTEGER NOT NULL,
	case_id       INTEGER NOT NULL,
	patient_notes TEXT NOT NULL DEFAULT '',
	passphrase    TEXT NOT NULL DEFAULT 'beds2bytes',
	active        BOOLEAN NOT NULL DEFAULT 1,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS files (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       INTEGER NOT NULL,
	simulation_id INTEGER NOT NULL,
	file_name     TEXT NOT NULL,
	file_path     TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
	FOREIGN KEY (simulation_id) REFERENCES simulations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cases_user ON cases(user_id);
CREATE INDEX IF NOT EXISTS idx_simulations_user ON simulations(user_id);
CREATE INDEX IF NOT EXISTS idx_files_simulation ON files(simulation_id);
`

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewWithSetup creates a new SQLite store and runs a setup function after the
// schema is applied. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if setup != nil {
		if err := setup(s.db); err != nil {
			s.db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with a pre-hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash string, role store.Role) (*store.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, role)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, email, passwordHash, string(role))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	var role string
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Role = store.Role(role)
	return &user, nil
}

// ==== CaseStore implementation ====

// CreateCase creates a new teaching case owned by a user.
func (s *SQLiteStore) CreateCase(ctx context.Context, c *store.Case) (*store.Case, error) {
	baseValues, err := marshalBaseValues(c.BaseValues)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO cases (user_id, case_name, patient_name, patient_id, base_values, base_problem, learning_goals, start_point)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		c.UserID, c.CaseName, c.PatientName, c.PatientID,
		baseValues, c.BaseProblem, c.LearningGoals, c.StartPoint,
	)
	if err != nil {
		return nil, fmt.Errorf("insert case: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetCaseByID(ctx, id)
}

// GetCaseByID retrieves a case by ID.
func (s *SQLiteStore) GetCaseByID(ctx context.Context, id int64) (*store.Case, error) {
	query := `
		SELECT id, user_id, case_name, patient_name, patient_id, base_values, base_problem, learning_goals, start_point, created_at
		FROM cases
		WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)

	var c store.Case
	var baseValues string
	err := row.Scan(
		&c.ID, &c.UserID, &c.CaseName, &c.PatientName, &c.PatientID,
		&baseValues, &c.BaseProblem, &c.LearningGoals, &c.StartPoint, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("case: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query case: %w", err)
	}
	if err := json.Unmarshal([]byte(baseValues), &c.BaseValues); err != nil {
		return nil, fmt.Errorf("decode base values: %w", err)
	}
	return &c, nil
}

// ListCases lists all cases.
func (s *SQLiteStore) ListCases(ctx context.Context) ([]*store.Case, error) {
	query := `
		SELECT id, user_id, case_name, patient_name, patient_id, base_values, base_problem, learning_goals, start_point, created_at
		FROM cases
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	cases := make([]*store.Case, 0)
	for rows.Next() {
		var c store.Case
		var baseValues string
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.CaseName, &c.PatientName, &c.PatientID,
			&baseValues, &c.BaseProblem, &c.LearningGoals, &c.StartPoint, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		if err := json.Unmarshal([]byte(baseValues), &c.BaseValues); err != nil {
			return nil, fmt.Errorf("decode base values: %w", err)
		}
		cases = append(cases, &c)
	}
	return cases, rows.Err()
}

// UpdateCase applies a partial update and returns the updated case.
func (s *SQLiteStore) UpdateCase(ctx context.Context, id int64, upd store.CaseUpdate) (*store.Case, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)

	appendSet := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	appendSet("case_name", upd.CaseName)
	appendSet("patient_name", upd.PatientName)
	appendSet("patient_id", upd.PatientID)
	appendSet("base_problem", upd.BaseProblem)
	appendSet("learning_goals", upd.LearningGoals)
	appendSet("start_point", upd.StartPoint)

	if len(sets) > 0 {
		args = append(args, id)
		query := "UPDATE cases SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("update case: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return nil, fmt.Errorf("case: %w", store.ErrNotFound)
		}
	}

	return s.GetCaseByID(ctx, id)
}

// DeleteCase removes a case.
func (s *SQLiteStore) DeleteCase(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("case: %w", store.ErrNotFound)
	}
	return nil
}

// ==== SimulationStore implementation ====

// CreateSimulation creates a simulation for a case.
func (s *SQLiteStore) CreateSimulation(ctx context.Context, sim *store.Simulation) (*store.Simulation, error) {
	passphrase := sim.Passphrase
	if passphrase == "" {
		passphrase = "beds2bytes"
	}

	query := `
		INSERT INTO simulations (user_id, case_id, patient_notes, passphrase, active)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, sim.UserID, sim.CaseID, sim.PatientNotes, passphrase, sim.Active)
	if err != nil {
		return nil, fmt.Errorf("insert simulation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetSimulationByID(ctx, id)
}

// GetSimulationByID retrieves a simulation by ID.
func (s *SQLiteStore) GetSimulationByID(ctx context.Context, id int64) (*store.Simulation, error) {
	query := `
		SELECT id, user_id, case_id, patient_notes, passphrase, active, created_at
		FROM simulations
		WHERE id = ?
	`
	var sim store.Simulation
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&sim.ID, &sim.UserID, &sim.CaseID, &sim.PatientNotes, &sim.Passphrase, &sim.Active, &sim.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("simulation: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query simulation: %w", err)
	}
	return &sim, nil
}

// ListSimulations lists simulations owned by a user.
func (s *SQLiteStore) ListSimulations(ctx context.Context, userID int64) ([]*store.Simulation, error) {
	query := `
		SELECT id, user_id, case_id, patient_notes, passphrase, active, created_at
		FROM simulations
		WHERE user_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query simulations: %w", err)
	}
	defer rows.Close()

	sims := make([]*store.Simulation, 0)
	for rows.Next() {
		var sim store.Simulation
		if err := rows.Scan(
			&sim.ID, &sim.UserID, &sim.CaseID, &sim.PatientNotes, &sim.Passphrase, &sim.Active, &sim.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan simulation: %w", err)
		}
		sims = append(sims, &sim)
	}
	return sims, rows.Err()
}

// SetSimulationState marks a simulation active or finished.
func (s *SQLiteStore) SetSimulationState(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE simulations SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("update simulation state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("simulation: %w", store.ErrNotFound)
	}
	return nil
}

// DeleteSimulation removes a simulation.
func (s *SQLiteStore) DeleteSimulation(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM simulations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete simulation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("simulation: %w", store.ErrNotFound)
	}
	return nil
}

// ==== FileStore implementation ====

// CreateFile records an uploaded file.
func (s *SQLiteStore) CreateFile(ctx context.Context, f *store.File) (*store.File, error) {
	query := `
		INSERT INTO files (user_id, simulation_id, file_name, file_path)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, f.UserID, f.SimulationID, f.FileName, f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetFileByID(ctx, id)
}

// GetFileByID retrieves a file record by ID.
func (s *SQLiteStore) GetFileByID(ctx context.Context, id int64) (*store.File, error) {
	query := `
		SELECT id, user_id, simulation_id, file_name, file_path, created_at
		FROM files
		WHERE id = ?
	`
	var f store.File
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.UserID, &f.SimulationID, &f.FileName, &f.FilePath, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query file: %w", err)
	}
	return &f, nil
}

// ListFilesBySimulation lists files attached to a simulation.
func (s *SQLiteStore) ListFilesBySimulation(ctx context.Context, simulationID int64) ([]*store.File, error) {
	query := `
		SELECT id, user_id, simulation_id, file_name, file_path, created_at
		FROM files
		WHERE simulation_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, simulationID)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	files := make([]*store.File, 0)
	for rows.Next() {
		var f store.File
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.SimulationID, &f.FileName, &f.FilePath, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file record.
func (s *SQLiteStore) DeleteFile(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("file: %w", store.ErrNotFound)
	}
	return nil
}

func marshalBaseValues(values map[string]any) (string, error) {
	if values == nil {
		return "{}", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode base values: %w", err)
	}
	return string(data), nil
}
