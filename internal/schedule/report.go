package schedule

import (
	"context"
	"time"

	"shifter/shift-service/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

type Summary struct {
	Date      string `json:"date"`
	Morning   int    `json:"morning"`
	Afternoon int    `json:"afternoon"`
	Evening   int    `json:"evening"`
	Total     int    `json:"total"`
}

// ShiftSummary counts the shifts starting on date per bucket, using the
// summary policy.
func (s *Scheduler) ShiftSummary(ctx context.Context, branchID int64, date time.Time) (Summary, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.ShiftSummary")
	defer span.End()
	span.SetAttributes(attribute.Int64("branch_id", branchID))

	from, to := DayBounds(date)
	shifts, err := s.store.ListBranchShiftsBetween(ctx, branchID, from, to)
	if err != nil {
		recordError(span, err)
		return Summary{}, err
	}
	return summarize(from, shifts), nil
}

func summarize(day time.Time, shifts []models.Shift) Summary {
	summary := Summary{Date: day.Format(DateLayout), Total: len(shifts)}
	for _, shift := range shifts {
		switch SummaryBucket(shift.StartTime.Hour()) {
		case models.BucketMorning:
			summary.Morning++
		case models.BucketAfternoon:
			summary.Afternoon++
		default:
			summary.Evening++
		}
	}
	return summary
}

// HoursByPosition totals worked hours per position for the seven days starting
// at startDate. A shift counts in full toward the day it starts on.
func (s *Scheduler) HoursByPosition(ctx context.Context, branchID int64, startDate time.Time) (map[string]float64, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.HoursByPosition")
	defer span.End()
	span.SetAttributes(attribute.Int64("branch_id", branchID))

	from, to := WeekBounds(startDate)
	shifts, err := s.store.ListBranchShiftsBetween(ctx, branchID, from, to)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return sumHours(shifts), nil
}

func sumHours(shifts []models.Shift) map[string]float64 {
	totals := make(map[string]float64)
	for _, shift := range shifts {
		totals[models.NormalizePosition(shift.Position)] += shift.Hours()
	}
	return totals
}
