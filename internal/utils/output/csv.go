package output

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/law-makers/tracktime/pkg/models"
)

// CSVHeader is the first row of every CSV export
var CSVHeader = []string{
	"tracking_code",
	"delivery_status",
	"handoff_moment",
	"delivery_moment",
	"last_update",
	"duration",
	"duration_days",
	"events",
	"source",
	"processing_time_ms",
	"message",
	"fetched_at",
}

// WriteCSV writes one row per result. Every field is double-quoted and
// embedded quotes are doubled, so spreadsheet imports never guess types.
func WriteCSV(w io.Writer, results []models.TrackingResult) error {
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, CSVHeader); err != nil {
		return err
	}
	for _, r := range results {
		if err := writeRow(bw, csvRow(r)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveCSV writes results to a CSV file
func SaveCSV(results []models.TrackingResult, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteCSV(file, results); err != nil {
		return err
	}
	return file.Close()
}

func csvRow(r models.TrackingResult) []string {
	days := ""
	if r.DurationDays != nil {
		days = strconv.FormatFloat(*r.DurationDays, 'f', 2, 64)
	}
	return []string{
		r.TrackingCode,
		string(r.DeliveryStatus),
		formatTime(r.HandoffMoment),
		formatTime(r.DeliveryMoment),
		formatTime(r.LastUpdate),
		r.Duration,
		days,
		strconv.Itoa(len(r.TimelineEvents)),
		r.Source,
		strconv.FormatInt(r.ProcessingTimeMs, 10),
		r.Message,
		formatTime(&r.FetchedAt),
	}
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
