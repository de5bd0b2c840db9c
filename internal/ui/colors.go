package ui

import (
	"os"

	"github.com/law-makers/tracktime/pkg/models"
)

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// Enabled is false when NO_COLOR is set
var Enabled = os.Getenv("NO_COLOR") == ""

func paint(color, s string) string {
	if !Enabled {
		return s
	}
	return color + s + ColorReset
}

func Bold(s string) string {
	return paint(ColorBold, s)
}

func Success(s string) string {
	return paint(ColorGreen, s)
}

func Info(s string) string {
	return paint(ColorDim+ColorYellow, s)
}

func Warn(s string) string {
	return paint(ColorYellow, s)
}

func Error(s string) string {
	return paint(ColorRed, s)
}

func Dim(s string) string {
	return paint(ColorDim, s)
}

// StatusColor picks the colour for a delivery status
func StatusColor(status models.DeliveryStatus) string {
	switch status {
	case models.StatusDelivered:
		return ColorGreen
	case models.StatusInTransit, models.StatusProcessing:
		return ColorCyan
	case models.StatusNotFound:
		return ColorYellow
	case models.StatusError:
		return ColorRed
	default:
		return ColorWhite
	}
}

// Status renders a delivery status in its colour
func Status(status models.DeliveryStatus) string {
	return paint(ColorBold+StatusColor(status), string(status))
}
