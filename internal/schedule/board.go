package schedule

import (
	"context"
	"errors"
	"time"

	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const boardDays = 7

type BoardEntry struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// DayBoard is one calendar day of the weekly board. Lists keep store order.
type DayBoard struct {
	Date                string                  `json:"date"`
	Morning             []string                `json:"morning"`
	Afternoon           []string                `json:"afternoon"`
	Evening             []string                `json:"evening"`
	MorningByPosition   map[string][]BoardEntry `json:"morning_by_position"`
	AfternoonByPosition map[string][]BoardEntry `json:"afternoon_by_position"`
	EveningByPosition   map[string][]BoardEntry `json:"evening_by_position"`
	Counts              map[models.Bucket]int   `json:"counts"`
}

func newDayBoard(day time.Time) DayBoard {
	return DayBoard{
		Date:                day.Format(DateLayout),
		Morning:             []string{},
		Afternoon:           []string{},
		Evening:             []string{},
		MorningByPosition:   map[string][]BoardEntry{},
		AfternoonByPosition: map[string][]BoardEntry{},
		EveningByPosition:   map[string][]BoardEntry{},
		Counts: map[models.Bucket]int{
			models.BucketMorning:   0,
			models.BucketAfternoon: 0,
			models.BucketEvening:   0,
		},
	}
}

func (d *DayBoard) add(bucket models.Bucket, name, position, notes string) {
	entry := BoardEntry{Name: name, Notes: notes}
	position = models.NormalizePosition(position)
	switch bucket {
	case models.BucketMorning:
		d.Morning = append(d.Morning, name)
		d.MorningByPosition[position] = append(d.MorningByPosition[position], entry)
	case models.BucketAfternoon:
		d.Afternoon = append(d.Afternoon, name)
		d.AfternoonByPosition[position] = append(d.AfternoonByPosition[position], entry)
	default:
		bucket = models.BucketEvening
		d.Evening = append(d.Evening, name)
		d.EveningByPosition[position] = append(d.EveningByPosition[position], entry)
	}
	d.Counts[bucket]++
}

// Names returns the staff list for bucket.
func (d DayBoard) Names(bucket models.Bucket) []string {
	switch bucket {
	case models.BucketMorning:
		return d.Morning
	case models.BucketAfternoon:
		return d.Afternoon
	default:
		return d.Evening
	}
}

// ByPosition returns the position breakdown for bucket.
func (d DayBoard) ByPosition(bucket models.Bucket) map[string][]BoardEntry {
	switch bucket {
	case models.BucketMorning:
		return d.MorningByPosition
	case models.BucketAfternoon:
		return d.AfternoonByPosition
	default:
		return d.EveningByPosition
	}
}

func (d DayBoard) Total() int {
	total := 0
	for _, count := range d.Counts {
		total += count
	}
	return total
}

// WeeklyBoard builds seven day boards starting at startDate. Day fetches run
// concurrently; an unknown branch yields seven empty days.
func (s *Scheduler) WeeklyBoard(ctx context.Context, branchID int64, startDate time.Time) ([]DayBoard, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.WeeklyBoard")
	defer span.End()
	span.SetAttributes(attribute.Int64("branch_id", branchID), attribute.String("start_date", startDate.Format(DateLayout)))

	first, _ := DayBounds(startDate)
	perDay := make([][]models.Shift, boardDays)

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < boardDays; i++ {
		i := i
		group.Go(func() error {
			from, to := DayBounds(first.AddDate(0, 0, i))
			shifts, err := s.store.ListBranchShiftsBetween(groupCtx, branchID, from, to)
			if err != nil {
				return err
			}
			perDay[i] = shifts
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		recordError(span, err)
		return nil, err
	}

	names := make(map[string]string)
	days := make([]DayBoard, boardDays)
	for i := range days {
		day := newDayBoard(first.AddDate(0, 0, i))
		for _, shift := range perDay[i] {
			name := s.displayName(ctx, names, shift.EmployeeID)
			bucket := WeeklyBoardBucket(shift.StartTime.Hour(), shift.StartTime.Minute())
			day.add(bucket, name, shift.Position, shift.Notes)
		}
		days[i] = day
	}
	return days, nil
}

// displayName resolves an employee's full name, memoised per board. A lookup
// failure yields a placeholder carrying the raw id.
func (s *Scheduler) displayName(ctx context.Context, cache map[string]string, employeeID string) string {
	if name, ok := cache[employeeID]; ok {
		return name
	}
	name := "Unknown (" + employeeID + ")"
	employee, err := s.store.GetEmployee(ctx, employeeID)
	switch {
	case err == nil:
		if full := employee.FullName(); full != "" {
			name = full
		}
	case errors.Is(err, store.ErrEmployeeNotFound):
		s.logger.Warn("unresolved employee reference on board", zap.String("employee_id", employeeID))
	default:
		s.logger.Warn("employee lookup failed on board", zap.String("employee_id", employeeID), zap.Error(err))
	}
	cache[employeeID] = name
	return name
}
