package ui

import (
	"testing"

	"github.com/law-makers/tracktime/pkg/models"
)

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status models.DeliveryStatus
		want   string
	}{
		{models.StatusDelivered, ColorGreen},
		{models.StatusInTransit, ColorCyan},
		{models.StatusNotFound, ColorYellow},
		{models.StatusError, ColorRed},
		{models.StatusUnknown, ColorWhite},
	}
	for _, tt := range tests {
		if got := StatusColor(tt.status); got != tt.want {
			t.Errorf("StatusColor(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestPaintDisabled(t *testing.T) {
	prev := Enabled
	Enabled = false
	defer func() { Enabled = prev }()

	if got := Status(models.StatusDelivered); got != "delivered" {
		t.Errorf("expected plain text, got %q", got)
	}
	if got := Error("boom"); got != "boom" {
		t.Errorf("expected plain text, got %q", got)
	}
}
