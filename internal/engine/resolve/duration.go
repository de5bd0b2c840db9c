package resolve

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/law-makers/tracktime/pkg/models"
)

const (
	msgStartUnknown    = "bezorgd, startdatum onbekend"
	msgDurationUnknown = "bezorgd, tijdsduur onbekend"
	msgInTransit       = "nog onderweg"
	msgProcessing      = "in verwerking"
	msgUndetermined    = "kan niet worden bepaald"
)

// transit is the computed duration of a shipment
type transit struct {
	text    string
	days    *float64
	partial bool
}

// computeDuration applies the duration rules in priority order. now is only
// consulted for shipments that are still on their way.
func computeDuration(handoff, delivery *time.Time, status models.DeliveryStatus, now time.Time) transit {
	switch {
	case handoff != nil && delivery != nil:
		if delivery.Before(*handoff) {
			return transit{text: msgUndetermined}
		}
		d := delivery.Sub(*handoff)
		days := d.Hours() / 24
		return transit{text: formatElapsed(d), days: &days}

	case delivery != nil:
		return transit{text: msgStartUnknown}

	case handoff != nil && status != models.StatusDelivered:
		d := now.Sub(*handoff)
		if d < 0 {
			d = 0
		}
		days := d.Hours() / 24
		return transit{
			text:    fmt.Sprintf("%s onderweg (tot nu toe)", formatDays(days)),
			days:    &days,
			partial: true,
		}
	}

	switch status {
	case models.StatusDelivered:
		return transit{text: msgDurationUnknown}
	case models.StatusInTransit:
		return transit{text: msgInTransit}
	case models.StatusProcessing:
		return transit{text: msgProcessing}
	default:
		return transit{text: msgUndetermined}
	}
}

// formatElapsed renders d as minutes below an hour, hours below a day and
// days with one decimal otherwise.
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Hour:
		m := int(math.Round(d.Minutes()))
		if m == 1 {
			return "1 minuut"
		}
		return fmt.Sprintf("%d minuten", m)
	case d < 24*time.Hour:
		return oneDecimal(d.Hours()) + " uur"
	default:
		return formatDays(d.Hours() / 24)
	}
}

func formatDays(days float64) string {
	s := oneDecimal(days)
	if s == "1" {
		return "1 dag"
	}
	return s + " dagen"
}

func oneDecimal(v float64) string {
	r := math.Round(v*10) / 10
	if r == math.Trunc(r) {
		return strconv.FormatFloat(r, 'f', 0, 64)
	}
	return strconv.FormatFloat(r, 'f', 1, 64)
}
