// Package export renders weekly boards as spreadsheets.
package export

import (
	"fmt"
	"sort"

	"shifter/shift-service/internal/models"
	"shifter/shift-service/internal/schedule"

	"github.com/xuri/excelize/v2"
)

const (
	BoardSheet  = "Weekly Board"
	CountsSheet = "Counts"
)

var (
	boardHeader  = []any{"Date", "Shift", "Position", "Employee", "Notes"}
	countsHeader = []any{"Date", "Morning", "Afternoon", "Evening", "Total"}
)

// WeeklyBoardWorkbook writes one row per (day, bucket, position, employee) on
// the board sheet and one row per day on the counts sheet. Positions are
// sorted; entries keep board order. The caller closes the file.
func WeeklyBoardWorkbook(days []schedule.DayBoard) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", BoardSheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(CountsSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeRow(f, BoardSheet, 1, boardHeader); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeRow(f, CountsSheet, 1, countsHeader); err != nil {
		f.Close()
		return nil, err
	}

	row := 2
	for i, day := range days {
		for _, bucket := range models.Buckets {
			byPosition := day.ByPosition(bucket)
			for _, position := range sortedKeys(byPosition) {
				for _, entry := range byPosition[position] {
					if err := writeRow(f, BoardSheet, row, []any{day.Date, string(bucket), position, entry.Name, entry.Notes}); err != nil {
						f.Close()
						return nil, err
					}
					row++
				}
			}
		}
		counts := []any{
			day.Date,
			day.Counts[models.BucketMorning],
			day.Counts[models.BucketAfternoon],
			day.Counts[models.BucketEvening],
			day.Total(),
		}
		if err := writeRow(f, CountsSheet, i+2, counts); err != nil {
			f.Close()
			return nil, err
		}
	}

	if headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	}); err == nil {
		_ = f.SetCellStyle(BoardSheet, "A1", "E1", headerStyle)
		_ = f.SetCellStyle(CountsSheet, "A1", "E1", headerStyle)
	}
	_ = f.SetColWidth(BoardSheet, "A", "A", 12)
	_ = f.SetColWidth(BoardSheet, "C", "E", 24)
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func sortedKeys(m map[string][]schedule.BoardEntry) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
