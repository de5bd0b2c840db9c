// internal/cli/track.go
package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/law-makers/tracktime/internal/ui"
	"github.com/law-makers/tracktime/internal/utils/output"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/spf13/cobra"
)

var showTimeline bool

// errAcquisitionFailed makes the process exit non-zero after the result was printed
var errAcquisitionFailed = errors.New("acquisition failed")

var trackCmd = &cobra.Command{
	Use:   "track <code>",
	Short: "Look up one tracking code",
	Long: `Looks up a single tracking code and prints its delivery status, handoff
and delivery moments and transit time.

Delivered and not-found results are cached, so asking again is instant.`,
	Example: `  # Look up a parcel
  tracktime track JVGL06123456789

  # Include every timeline event
  tracktime track JVGL06123456789 --timeline

  # Machine-readable output
  tracktime track JVGL06123456789 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
	trackCmd.Flags().BoolVarP(&showTimeline, "timeline", "t", false, "Print every timeline event")
}

func runTrack(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}

	result := a.Track(cmd.Context(), args[0])

	out := cmd.OutOrStdout()
	if a.Config.JSONLog {
		if err := output.WriteJSON(out, result); err != nil {
			return err
		}
	} else {
		printResult(out, result, showTimeline)
	}

	if result.Failed() {
		return fmt.Errorf("%w: %s", errAcquisitionFailed, result.Message)
	}
	return nil
}

// printResult writes a human-readable result block
func printResult(w io.Writer, r models.TrackingResult, timeline bool) {
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-12s %s\n", label, value)
		}
	}

	fmt.Fprintf(w, "\n%s  %s\n", ui.Bold(r.TrackingCode), ui.Status(r.DeliveryStatus))
	row("Handoff:", localTime(r.HandoffMoment))
	row("Delivered:", localTime(r.DeliveryMoment))
	if r.DeliveryMoment == nil {
		row("Last update:", localTime(r.LastUpdate))
	}
	row("Duration:", r.Duration)
	row("Events:", fmt.Sprint(len(r.TimelineEvents)))
	row("Source:", r.Source)
	row("Took:", fmt.Sprintf("%dms", r.ProcessingTimeMs))
	if r.Message != "" && r.Message != r.Duration {
		row("Note:", ui.Info(r.Message))
	}

	if timeline && len(r.TimelineEvents) > 0 {
		fmt.Fprintln(w)
		for _, ev := range r.TimelineEvents {
			line := ev.Description
			if ev.Location != "" {
				line += ui.Dim(" (" + ev.Location + ")")
			}
			fmt.Fprintf(w, "  %s  %s\n", ui.Dim(ev.Timestamp.Local().Format("02-01-2006 15:04")), line)
		}
	}
	fmt.Fprintln(w)
}

func localTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("Mon 02-01-2006 15:04")
}
