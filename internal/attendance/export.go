package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

// ExportCSV streams events in the date range as CSV, newest first.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, start, end time.Time) error {
	events, _, err := s.repo.List(ctx, ListFilter{Start: &start, End: &end, Limit: 100000})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Student ID", "Student Name", "Date", "Time", "Status", "Method", "Confidence", "Location"}); err != nil {
		return err
	}
	for _, evt := range events {
		confidence := "N/A"
		if evt.Confidence != nil {
			confidence = fmt.Sprintf("%.0f%%", *evt.Confidence)
		}
		record := []string{
			evt.StudentCode,
			evt.StudentName,
			evt.Day.Format("2006-01-02"),
			evt.TimeOfDay,
			evt.Status,
			evt.Method,
			confidence,
			evt.Location,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
