package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	codeExclusionViolation = "23P01"
	codeUniqueViolation    = "23505"
)

const shiftColumns = `id, employee_id, branch_id, start_time, end_time, position, notes`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent so Migrate can run on each start.
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
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) ListEmployeeShifts(ctx context.Context, employeeID string) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE employee_id = $1
		ORDER BY start_time ASC, id ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	return collectShifts(rows)
}

func (s *Store) ListBranchShiftsBetween(ctx context.Context, branchID int64, from, to time.Time) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE branch_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC, id ASC
	`, branchID, from, to)
	if err != nil {
		return nil, err
	}
	return collectShifts(rows)
}

func (s *Store) ListBranchShifts(ctx context.Context, branchID int64) ([]models.Shift, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE branch_id = $1
		ORDER BY start_time ASC, id ASC
	`, branchID)
	if err != nil {
		return nil, err
	}
	return collectShifts(rows)
}

func (s *Store) GetShift(ctx context.Context, shiftID int64) (models.Shift, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE id = $1
	`, shiftID)
	shift, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Shift{}, store.ErrShiftNotFound
		}
		return models.Shift{}, err
	}
	return shift, nil
}

func (s *Store) InsertShift(ctx context.Context, shift models.Shift) (models.Shift, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO shifts (employee_id, branch_id, start_time, end_time, position, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+shiftColumns+`
	`, shift.EmployeeID, shift.BranchID, shift.StartTime, shift.EndTime, shift.Position, shift.Notes)
	created, err := scanShift(row)
	if err != nil {
		return models.Shift{}, mapWriteError(err)
	}
	return created, nil
}

func (s *Store) UpdateShift(ctx context.Context, shift models.Shift) (models.Shift, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE shifts
		SET employee_id = $2, branch_id = $3, start_time = $4, end_time = $5, position = $6, notes = $7
		WHERE id = $1
		RETURNING `+shiftColumns+`
	`, shift.ID, shift.EmployeeID, shift.BranchID, shift.StartTime, shift.EndTime, shift.Position, shift.Notes)
	updated, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Shift{}, store.ErrShiftNotFound
		}
		return models.Shift{}, mapWriteError(err)
	}
	return updated, nil
}

func (s *Store) DeleteShift(ctx context.Context, shiftID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, shiftID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (models.Employee, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, role, branch_id, password_hash
		FROM employees
		WHERE id = $1
	`, employeeID)
	employee, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Employee{}, store.ErrEmployeeNotFound
		}
		return models.Employee{}, err
	}
	return employee, nil
}

func (s *Store) GetEmployeeByEmail(ctx context.Context, email string) (models.Employee, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, role, branch_id, password_hash
		FROM employees
		WHERE lower(email) = lower($1)
	`, strings.TrimSpace(email))
	employee, err := scanEmployee(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Employee{}, store.ErrEmployeeNotFound
		}
		return models.Employee{}, err
	}
	return employee, nil
}

func (s *Store) CreateEmployee(ctx context.Context, input store.CreateEmployeeInput) (models.Employee, error) {
	employeeID := strings.TrimSpace(input.ID)
	if employeeID == "" {
		employeeID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, email, first_name, last_name, role, branch_id, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, employeeID, strings.TrimSpace(input.Email), input.FirstName, input.LastName, input.Role, input.BranchID, input.PasswordHash)
	if err != nil {
		return models.Employee{}, mapWriteError(err)
	}
	return models.Employee{
		ID:           employeeID,
		Email:        strings.TrimSpace(input.Email),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		BranchID:     input.BranchID,
		PasswordHash: input.PasswordHash,
	}, nil
}

func (s *Store) GetBranch(ctx context.Context, branchID int64) (models.Branch, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, location
		FROM branches
		WHERE id = $1
	`, branchID)
	var branch models.Branch
	if err := row.Scan(&branch.ID, &branch.Name, &branch.Location); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Branch{}, store.ErrBranchNotFound
		}
		return models.Branch{}, err
	}
	return branch, nil
}

func (s *Store) GetBranchByName(ctx context.Context, name string) (models.Branch, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, location
		FROM branches
		WHERE name = $1
	`, strings.TrimSpace(name))
	var branch models.Branch
	if err := row.Scan(&branch.ID, &branch.Name, &branch.Location); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Branch{}, store.ErrBranchNotFound
		}
		return models.Branch{}, err
	}
	return branch, nil
}

func (s *Store) CreateBranch(ctx context.Context, branch models.Branch) (models.Branch, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO branches (name, location)
		VALUES ($1, $2)
		RETURNING id, name, location
	`, strings.TrimSpace(branch.Name), strings.TrimSpace(branch.Location))
	var created models.Branch
	if err := row.Scan(&created.ID, &created.Name, &created.Location); err != nil {
		return models.Branch{}, mapWriteError(err)
	}
	return created, nil
}

func (s *Store) ListBranches(ctx context.Context) ([]models.Branch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, location
		FROM branches
		ORDER BY id ASC
	`)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *Store) CreateSession(ctx context.Context, employeeID string, expiresAt time.Time) (models.Session, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Session{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var session models.Session
	row := tx.QueryRow(ctx, `
		SELECT role, branch_id
		FROM employees
		WHERE id = $1
	`, employeeID)
	if err = row.Scan(&session.Role, &session.BranchID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, store.ErrEmployeeNotFound
		}
		return models.Session{}, err
	}

	session.ID = uuid.NewString()
	session.EmployeeID = employeeID
	session.ExpiresAt = expiresAt.UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (session_id, employee_id, expires_at)
		VALUES ($1, $2, $3)
	`, session.ID, session.EmployeeID, session.ExpiresAt)
	if err != nil {
		return models.Session{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (models.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT s.session_id, s.employee_id, e.role, e.branch_id, s.expires_at
		FROM sessions s
		JOIN employees e ON e.id = s.employee_id
		WHERE s.session_id = $1 AND s.expires_at > NOW()
	`, sessionID)
	var session models.Session
	if err := row.Scan(&session.ID, &session.EmployeeID, &session.Role, &session.BranchID, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, store.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

func collectShifts(rows pgx.Rows) ([]models.Shift, error) {
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

func scanShift(row pgx.Row) (models.Shift, error) {
	var shift models.Shift
	if err := row.Scan(&shift.ID, &shift.EmployeeID, &shift.BranchID, &shift.StartTime, &shift.EndTime, &shift.Position, &shift.Notes); err != nil {
		return models.Shift{}, err
	}
	shift.StartTime = shift.StartTime.UTC()
	shift.EndTime = shift.EndTime.UTC()
	return shift, nil
}

func scanEmployee(row pgx.Row) (models.Employee, error) {
	var employee models.Employee
	err := row.Scan(&employee.ID, &employee.Email, &employee.FirstName, &employee.LastName, &employee.Role, &employee.BranchID, &employee.PasswordHash)
	return employee, err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeExclusionViolation:
			return store.ErrOverlapViolation
		case codeUniqueViolation:
			return store.ErrDuplicate
		}
	}
	return err
}
