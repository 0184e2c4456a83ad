package schedule

import (
	"fmt"

	"shifter/shift-service/internal/models"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ConflictError reports the existing shift a candidate interval collides with.
// A zero Existing.ID means storage rejected the write but the colliding shift
// could not be read back.
type ConflictError struct {
	Existing     models.Shift
	EmployeeID   string
	EmployeeName string
}

func (e *ConflictError) Error() string {
	who := e.EmployeeName
	if who == "" {
		who = e.EmployeeID
	}
	if e.Existing.ID == 0 {
		return who + " already has an overlapping shift"
	}
	return fmt.Sprintf("%s already has a shift on %s from %s to %s",
		who,
		e.Existing.StartTime.Format("2006-01-02"),
		e.Existing.StartTime.Format("15:04"),
		e.Existing.EndTime.Format("15:04"),
	)
}

type NotFoundKind string

const (
	KindShift    NotFoundKind = "shift"
	KindEmployee NotFoundKind = "employee"
	KindBranch   NotFoundKind = "branch"
)

type NotFoundError struct {
	Kind NotFoundKind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
