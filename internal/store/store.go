package store

import (
	"context"
	"time"

	"shifter/shift-service/internal/models"
)

// ShiftStore is the persistence surface the scheduling engine consumes.
// Shift lists are ordered by start_time ASC, id ASC unless stated otherwise.
type ShiftStore interface {
	ListEmployeeShifts(ctx context.Context, employeeID string) ([]models.Shift, error)
	// ListBranchShiftsBetween returns shifts whose start falls in [from, to], both inclusive.
	ListBranchShiftsBetween(ctx context.Context, branchID int64, from, to time.Time) ([]models.Shift, error)
	ListBranchShifts(ctx context.Context, branchID int64) ([]models.Shift, error)
	GetShift(ctx context.Context, shiftID int64) (models.Shift, error)
	InsertShift(ctx context.Context, shift models.Shift) (models.Shift, error)
	UpdateShift(ctx context.Context, shift models.Shift) (models.Shift, error)
	DeleteShift(ctx context.Context, shiftID int64) (bool, error)
	GetEmployee(ctx context.Context, employeeID string) (models.Employee, error)
	GetBranch(ctx context.Context, branchID int64) (models.Branch, error)
}

type CreateEmployeeInput struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	BranchID     *int64
	PasswordHash string
}

type Store interface {
	ShiftStore

	CreateBranch(ctx context.Context, branch models.Branch) (models.Branch, error)
	ListBranches(ctx context.Context) ([]models.Branch, error)
	GetBranchByName(ctx context.Context, name string) (models.Branch, error)

	CreateEmployee(ctx context.Context, input CreateEmployeeInput) (models.Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (models.Employee, error)

	CreateSession(ctx context.Context, employeeID string, expiresAt time.Time) (models.Session, error)
	GetSession(ctx context.Context, sessionID string) (models.Session, error)
}
