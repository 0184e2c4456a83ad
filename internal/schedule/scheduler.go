package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const writeAttempts = 2

type ShiftInput struct {
	EmployeeID string
	BranchID   int64
	Start      time.Time
	End        time.Time
	Position   string
	Notes      string
}

func (in ShiftInput) normalized() ShiftInput {
	in.EmployeeID = strings.TrimSpace(in.EmployeeID)
	in.Position = strings.TrimSpace(in.Position)
	in.Notes = strings.TrimSpace(in.Notes)
	// Both backends store microseconds; the overlap check must see the same value.
	in.Start = WallClock(in.Start).Truncate(time.Microsecond)
	in.End = WallClock(in.End).Truncate(time.Microsecond)
	return in
}

func (in ShiftInput) validate() error {
	if in.Start.IsZero() {
		return &ValidationError{Field: "start_time", Message: "is required"}
	}
	if in.End.IsZero() {
		return &ValidationError{Field: "end_time", Message: "is required"}
	}
	if !in.End.After(in.Start) {
		return &ValidationError{Field: "end_time", Message: "must be after start_time"}
	}
	return nil
}

func (in ShiftInput) shift(id int64) models.Shift {
	return models.Shift{
		ID:         id,
		EmployeeID: in.EmployeeID,
		BranchID:   in.BranchID,
		StartTime:  in.Start,
		EndTime:    in.End,
		Position:   in.Position,
		Notes:      in.Notes,
	}
}

type Options struct {
	Logger *zap.Logger
	Locks  *KeyedMutex
}

// Scheduler is the single gate for shift writes and the read side for
// coverage reports.
type Scheduler struct {
	store  store.ShiftStore
	locks  *KeyedMutex
	logger *zap.Logger
	tracer trace.Tracer
}

func New(st store.ShiftStore, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locks := opts.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &Scheduler{
		store:  st,
		locks:  locks,
		logger: logger,
		tracer: otel.Tracer("shifter/shift-service/internal/schedule"),
	}
}

func (s *Scheduler) CreateShift(ctx context.Context, in ShiftInput) (models.Shift, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.CreateShift")
	defer span.End()

	in = in.normalized()
	span.SetAttributes(attribute.String("employee_id", in.EmployeeID), attribute.Int64("branch_id", in.BranchID))
	if err := in.validate(); err != nil {
		return models.Shift{}, err
	}
	employee, err := s.requireReferences(ctx, in)
	if err != nil {
		recordError(span, err)
		return models.Shift{}, err
	}

	unlock, err := s.locks.Lock(ctx, in.EmployeeID)
	if err != nil {
		return models.Shift{}, err
	}
	defer unlock()

	var created models.Shift
	err = s.checkAndWrite(ctx, employee, in, 0, func() error {
		var writeErr error
		created, writeErr = s.store.InsertShift(ctx, in.shift(0))
		return writeErr
	})
	if err != nil {
		recordError(span, err)
		return models.Shift{}, err
	}

	s.logger.Info("shift created",
		zap.Int64("shift_id", created.ID),
		zap.String("employee_id", created.EmployeeID),
		zap.Int64("branch_id", created.BranchID),
		zap.Time("start_time", created.StartTime),
		zap.Time("end_time", created.EndTime),
	)
	return created, nil
}

// UpdateShift replaces every field of an existing shift after re-running the
// overlap check against the employee's other shifts.
func (s *Scheduler) UpdateShift(ctx context.Context, shiftID int64, in ShiftInput) (models.Shift, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.UpdateShift")
	defer span.End()
	span.SetAttributes(attribute.Int64("shift_id", shiftID))

	current, err := s.getShift(ctx, shiftID)
	if err != nil {
		recordError(span, err)
		return models.Shift{}, err
	}

	in = in.normalized()
	if err := in.validate(); err != nil {
		return models.Shift{}, err
	}
	employee, err := s.requireReferences(ctx, in)
	if err != nil {
		recordError(span, err)
		return models.Shift{}, err
	}

	unlock, err := s.locks.LockAll(ctx, current.EmployeeID, in.EmployeeID)
	if err != nil {
		return models.Shift{}, err
	}
	defer unlock()

	// The shift may have been deleted or reassigned while we waited.
	if current, err = s.getShift(ctx, shiftID); err != nil {
		recordError(span, err)
		return models.Shift{}, err
	}

	var updated models.Shift
	err = s.checkAndWrite(ctx, employee, in, shiftID, func() error {
		var writeErr error
		updated, writeErr = s.store.UpdateShift(ctx, in.shift(shiftID))
		if errors.Is(writeErr, store.ErrShiftNotFound) {
			return notFound(KindShift, shiftID)
		}
		return writeErr
	})
	if err != nil {
		recordError(span, err)
		return models.Shift{}, err
	}

	s.logger.Info("shift updated",
		zap.Int64("shift_id", updated.ID),
		zap.String("employee_id", updated.EmployeeID),
		zap.String("previous_employee_id", current.EmployeeID),
		zap.Time("start_time", updated.StartTime),
		zap.Time("end_time", updated.EndTime),
	)
	return updated, nil
}

func (s *Scheduler) DeleteShift(ctx context.Context, shiftID int64) error {
	ctx, span := s.tracer.Start(ctx, "schedule.DeleteShift")
	defer span.End()
	span.SetAttributes(attribute.Int64("shift_id", shiftID))

	current, err := s.getShift(ctx, shiftID)
	if err != nil {
		recordError(span, err)
		return err
	}

	unlock, err := s.locks.Lock(ctx, current.EmployeeID)
	if err != nil {
		return err
	}
	defer unlock()

	deleted, err := s.store.DeleteShift(ctx, shiftID)
	if err != nil {
		recordError(span, err)
		return err
	}
	if !deleted {
		return notFound(KindShift, shiftID)
	}
	s.logger.Info("shift deleted", zap.Int64("shift_id", shiftID), zap.String("employee_id", current.EmployeeID))
	return nil
}

func (s *Scheduler) BranchShifts(ctx context.Context, branchID int64) ([]models.Shift, error) {
	shifts, err := s.store.ListBranchShifts(ctx, branchID)
	if err != nil {
		return nil, err
	}
	if shifts == nil {
		shifts = []models.Shift{}
	}
	return shifts, nil
}

// EmployeeShifts lists an employee's shifts at one branch, latest first.
func (s *Scheduler) EmployeeShifts(ctx context.Context, branchID int64, employeeID string) ([]models.Shift, error) {
	shifts, err := s.store.ListEmployeeShifts(ctx, strings.TrimSpace(employeeID))
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Shift, 0, len(shifts))
	for _, shift := range shifts {
		if shift.BranchID == branchID {
			filtered = append(filtered, shift)
		}
	}
	sortLatestFirst(filtered)
	return filtered, nil
}

// MyShifts lists every shift of an employee across branches, latest first.
func (s *Scheduler) MyShifts(ctx context.Context, employeeID string) ([]models.Shift, error) {
	shifts, err := s.store.ListEmployeeShifts(ctx, strings.TrimSpace(employeeID))
	if err != nil {
		return nil, err
	}
	if shifts == nil {
		shifts = []models.Shift{}
	}
	sortLatestFirst(shifts)
	return shifts, nil
}

// checkAndWrite runs the overlap check followed by write. A storage-level
// overlap violation means another writer slipped past the check; the sequence
// is retried once and then reported as a conflict.
func (s *Scheduler) checkAndWrite(ctx context.Context, employee models.Employee, in ShiftInput, excludeID int64, write func() error) error {
	for attempt := 1; ; attempt++ {
		existing, err := s.store.ListEmployeeShifts(ctx, in.EmployeeID)
		if err != nil {
			return fmt.Errorf("list employee shifts: %w", err)
		}
		if conflict, found := ConflictOf(existing, in.Start, in.End, excludeID); found {
			return newConflict(employee, conflict)
		}

		err = write()
		if !errors.Is(err, store.ErrOverlapViolation) {
			return err
		}
		if attempt >= writeAttempts {
			existing, listErr := s.store.ListEmployeeShifts(ctx, in.EmployeeID)
			if listErr == nil {
				if conflict, found := ConflictOf(existing, in.Start, in.End, excludeID); found {
					return newConflict(employee, conflict)
				}
			}
			s.logger.Warn("overlap violation persisted but the colliding shift could not be identified",
				zap.String("employee_id", in.EmployeeID),
				zap.Time("start_time", in.Start),
				zap.Time("end_time", in.End),
			)
			return &ConflictError{EmployeeID: employee.ID, EmployeeName: employee.FullName()}
		}
		s.logger.Warn("overlap violation on write, retrying",
			zap.String("employee_id", in.EmployeeID),
			zap.Int("attempt", attempt),
		)
	}
}

func (s *Scheduler) requireReferences(ctx context.Context, in ShiftInput) (models.Employee, error) {
	employee, err := s.store.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		if errors.Is(err, store.ErrEmployeeNotFound) {
			return models.Employee{}, &NotFoundError{Kind: KindEmployee, ID: in.EmployeeID}
		}
		return models.Employee{}, fmt.Errorf("get employee: %w", err)
	}
	if _, err := s.store.GetBranch(ctx, in.BranchID); err != nil {
		if errors.Is(err, store.ErrBranchNotFound) {
			return models.Employee{}, notFound(KindBranch, in.BranchID)
		}
		return models.Employee{}, fmt.Errorf("get branch: %w", err)
	}
	return employee, nil
}

func (s *Scheduler) getShift(ctx context.Context, shiftID int64) (models.Shift, error) {
	shift, err := s.store.GetShift(ctx, shiftID)
	if err != nil {
		if errors.Is(err, store.ErrShiftNotFound) {
			return models.Shift{}, notFound(KindShift, shiftID)
		}
		return models.Shift{}, fmt.Errorf("get shift: %w", err)
	}
	return shift, nil
}

func newConflict(employee models.Employee, existing models.Shift) *ConflictError {
	return &ConflictError{
		Existing:     existing,
		EmployeeID:   employee.ID,
		EmployeeName: employee.FullName(),
	}
}

func notFound(kind NotFoundKind, id int64) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: strconv.FormatInt(id, 10)}
}

func sortLatestFirst(shifts []models.Shift) {
	slices.SortStableFunc(shifts, func(a, b models.Shift) int {
		return b.StartTime.Compare(a.StartTime)
	})
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
