package schedule

import "shifter/shift-service/internal/models"

// SummaryBucket classifies a start hour for single-day summaries:
// 08-10 morning, 11-14 afternoon, everything else evening.
func SummaryBucket(hour int) models.Bucket {
	switch {
	case hour >= 8 && hour < 11:
		return models.BucketMorning
	case hour >= 11 && hour < 15:
		return models.BucketAfternoon
	default:
		return models.BucketEvening
	}
}

// WeeklyBoardBucket classifies a start time for the weekly board. It differs
// from SummaryBucket only at 19:00-19:29, which belongs to the middle shift.
func WeeklyBoardBucket(hour, minute int) models.Bucket {
	switch {
	case hour >= 8 && hour < 11:
		return models.BucketMorning
	case hour >= 11 && hour < 15:
		return models.BucketAfternoon
	case hour == 19 && minute < 30:
		return models.BucketAfternoon
	default:
		// 15:00-18:59, 19:30-23:59 and 00:00-07:59
		return models.BucketEvening
	}
}
