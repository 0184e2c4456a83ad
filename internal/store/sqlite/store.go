// Package sqlite is the single-file backend used for local runs and demos.
// Overlap protection comes from triggers instead of an exclusion constraint.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/store"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// timeLayout sorts lexically in the same order as the instants it encodes.
const timeLayout = "2006-01-02 15:04:05.000000"

const overlapMessage = "shift_overlap"

const shiftColumns = `id, employee_id, branch_id, start_time, end_time, position, notes`

type Store struct {
	db *sql.DB
}

// Open creates the database file if needed and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	st := NewStore(db)
	if err := st.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) ListEmployeeShifts(ctx context.Context, employeeID string) ([]models.Shift, error) {
	return s.queryShifts(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE employee_id = ?
		ORDER BY start_time ASC, id ASC
	`, employeeID)
}

func (s *Store) ListBranchShiftsBetween(ctx context.Context, branchID int64, from, to time.Time) ([]models.Shift, error) {
	return s.queryShifts(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE branch_id = ? AND start_time >= ? AND start_time <= ?
		ORDER BY start_time ASC, id ASC
	`, branchID, formatTime(from), formatTime(to))
}

func (s *Store) ListBranchShifts(ctx context.Context, branchID int64) ([]models.Shift, error) {
	return s.queryShifts(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE branch_id = ?
		ORDER BY start_time ASC, id ASC
	`, branchID)
}

func (s *Store) GetShift(ctx context.Context, shiftID int64) (models.Shift, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, shiftID)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Shift{}, store.ErrShiftNotFound
		}
		return models.Shift{}, err
	}
	return shift, nil
}

func (s *Store) InsertShift(ctx context.Context, shift models.Shift) (models.Shift, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (employee_id, branch_id, start_time, end_time, position, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, shift.EmployeeID, shift.BranchID, formatTime(shift.StartTime), formatTime(shift.EndTime), shift.Position, shift.Notes)
	if err != nil {
		return models.Shift{}, mapWriteError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return models.Shift{}, err
	}
	return s.GetShift(ctx, id)
}

func (s *Store) UpdateShift(ctx context.Context, shift models.Shift) (models.Shift, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE shifts
		SET employee_id = ?, branch_id = ?, start_time = ?, end_time = ?, position = ?, notes = ?
		WHERE id = ?
	`, shift.EmployeeID, shift.BranchID, formatTime(shift.StartTime), formatTime(shift.EndTime), shift.Position, shift.Notes, shift.ID)
	if err != nil {
		return models.Shift{}, mapWriteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Shift{}, err
	}
	if affected == 0 {
		return models.Shift{}, store.ErrShiftNotFound
	}
	return s.GetShift(ctx, shift.ID)
}

func (s *Store) DeleteShift(ctx context.Context, shiftID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM shifts WHERE id = ?`, shiftID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (models.Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, role, branch_id, password_hash
		FROM employees
		WHERE id = ?
	`, employeeID)
	return scanEmployee(row)
}

func (s *Store) GetEmployeeByEmail(ctx context.Context, email string) (models.Employee, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, role, branch_id, password_hash
		FROM employees
		WHERE email = ? COLLATE NOCASE
	`, strings.TrimSpace(email))
	return scanEmployee(row)
}

func (s *Store) CreateEmployee(ctx context.Context, input store.CreateEmployeeInput) (models.Employee, error) {
	employee := models.Employee{
		ID:           strings.TrimSpace(input.ID),
		Email:        strings.TrimSpace(input.Email),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		BranchID:     input.BranchID,
		PasswordHash: input.PasswordHash,
	}
	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, email, first_name, last_name, role, branch_id, password_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, employee.ID, employee.Email, employee.FirstName, employee.LastName, employee.Role, nullableID(employee.BranchID), employee.PasswordHash)
	if err != nil {
		return models.Employee{}, mapWriteError(err)
	}
	return employee, nil
}

func (s *Store) GetBranch(ctx context.Context, branchID int64) (models.Branch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, location FROM branches WHERE id = ?`, branchID)
	return scanBranch(row)
}

func (s *Store) GetBranchByName(ctx context.Context, name string) (models.Branch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, location FROM branches WHERE name = ?`, strings.TrimSpace(name))
	return scanBranch(row)
}

func (s *Store) CreateBranch(ctx context.Context, branch models.Branch) (models.Branch, error) {
	branch.Name = strings.TrimSpace(branch.Name)
	branch.Location = strings.TrimSpace(branch.Location)
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO branches (name, location) VALUES (?, ?)
	`, branch.Name, branch.Location)
	if err != nil {
		return models.Branch{}, mapWriteError(err)
	}
	if branch.ID, err = result.LastInsertId(); err != nil {
		return models.Branch{}, err
	}
	return branch, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]models.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, location FROM branches ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	branches := []models.Branch{}
	for rows.Next() {
		var branch models.Branch
		if err := rows.Scan(&branch.ID, &branch.Name, &branch.Location); err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	return branches, rows.Err()
}

func (s *Store) CreateSession(ctx context.Context, employeeID string, expiresAt time.Time) (models.Session, error) {
	employee, err := s.GetEmployee(ctx, employeeID)
	if err != nil {
		return models.Session{}, err
	}
	session := models.Session{
		ID:         uuid.NewString(),
		EmployeeID: employee.ID,
		Role:       employee.Role,
		BranchID:   employee.BranchID,
		ExpiresAt:  expiresAt.UTC(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, employee_id, expires_at) VALUES (?, ?, ?)
	`, session.ID, session.EmployeeID, formatTime(session.ExpiresAt))
	if err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.session_id, s.employee_id, e.role, e.branch_id, s.expires_at
		FROM sessions s
		JOIN employees e ON e.id = s.employee_id
		WHERE s.session_id = ? AND s.expires_at > ?
	`, sessionID, formatTime(time.Now().UTC()))

	var session models.Session
	var branchID sql.NullInt64
	var expiresAt string
	if err := row.Scan(&session.ID, &session.EmployeeID, &session.Role, &branchID, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, store.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	session.BranchID = idPointer(branchID)
	parsed, err := parseTime(expiresAt)
	if err != nil {
		return models.Session{}, err
	}
	session.ExpiresAt = parsed
	return session, nil
}

func (s *Store) queryShifts(ctx context.Context, query string, args ...any) ([]models.Shift, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := []models.Shift{}
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shifts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanShift(row scanner) (models.Shift, error) {
	var shift models.Shift
	var start, end string
	if err := row.Scan(&shift.ID, &shift.EmployeeID, &shift.BranchID, &start, &end, &shift.Position, &shift.Notes); err != nil {
		return models.Shift{}, err
	}
	var err error
	if shift.StartTime, err = parseTime(start); err != nil {
		return models.Shift{}, err
	}
	if shift.EndTime, err = parseTime(end); err != nil {
		return models.Shift{}, err
	}
	return shift, nil
}

func scanEmployee(row scanner) (models.Employee, error) {
	var employee models.Employee
	var branchID sql.NullInt64
	if err := row.Scan(&employee.ID, &employee.Email, &employee.FirstName, &employee.LastName, &employee.Role, &branchID, &employee.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Employee{}, store.ErrEmployeeNotFound
		}
		return models.Employee{}, err
	}
	employee.BranchID = idPointer(branchID)
	return employee, nil
}

func scanBranch(row scanner) (models.Branch, error) {
	var branch models.Branch
	if err := row.Scan(&branch.ID, &branch.Name, &branch.Location); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Branch{}, store.ErrBranchNotFound
		}
		return models.Branch{}, err
	}
	return branch, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, value, time.UTC)
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPointer(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	id := value.Int64
	return &id
}

func mapWriteError(err error) error {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return err
	}
	message := sqliteErr.Error()
	switch {
	case strings.Contains(message, overlapMessage):
		return store.ErrOverlapViolation
	case strings.Contains(message, "UNIQUE constraint failed"):
		return store.ErrDuplicate
	}
	return err
}
