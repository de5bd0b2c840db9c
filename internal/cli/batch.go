// internal/cli/batch.go
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/law-makers/tracktime/internal/app"
	"github.com/law-makers/tracktime/internal/config"
	"github.com/law-makers/tracktime/internal/engine/batch"
	"github.com/law-makers/tracktime/internal/ui"
	"github.com/law-makers/tracktime/internal/utils/output"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	codesFile    string
	outputPath   string
	outputFormat string
)

var batchCmd = &cobra.Command{
	Use:   "batch [codes...]",
	Short: "Look up many tracking codes in rounds",
	Long: `Looks up tracking codes a few at a time, pausing between rounds, and
retries codes whose lookup failed. Codes come from the arguments, from --file,
or from both.

A file holds one code per line; commas also separate codes and lines
starting with # are ignored. Use --file - to read from standard input.`,
	Example: `  # Two codes, summary on screen
  tracktime batch JVGL0612345 3SABC1234567

  # A file of codes to a CSV report
  tracktime batch --file codes.txt --out report.csv

  # Markdown report, five codes per round, metrics on :9090
  tracktime batch -f codes.txt -o report.md --batch-size 5 --metrics-addr :9090

  # CSV straight to stdout
  tracktime batch -f codes.txt -o - --quiet`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	config.RegisterBatchFlags(batchCmd)
	batchCmd.Flags().StringVarP(&codesFile, "file", "f", "", "File with tracking codes (- for stdin)")
	batchCmd.Flags().StringVarP(&outputPath, "out", "o", "", "Write the report to this file (- for CSV on stdout)")
	batchCmd.Flags().StringVar(&outputFormat, "format", "", "Report format: "+strings.Join(output.Formats, ", ")+" (default from --out extension)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return fmt.Errorf("application not initialized")
	}

	codes, err := collectCodes(args, codesFile, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return fmt.Errorf("no tracking codes given")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if addr := a.Config.MetricsAddr; addr != "" {
		go func() {
			if err := a.Metrics.Serve(ctx, addr); err != nil {
				log.Warn().Err(err).Str("addr", addr).Msg("Metrics server stopped")
			}
		}()
	}

	var bar *progressbar.ProgressBar
	if showProgress(a, outputPath) {
		bar = newProgressBar(len(codes))
	}

	runner := a.NewRunner(a.BatchOptions(), progressFunc(bar))
	summary := runner.Run(ctx, codes)
	if bar != nil {
		_ = bar.Finish()
	}

	if err := writeReport(cmd.OutOrStdout(), summary, outputPath, outputFormat); err != nil {
		return err
	}
	if outputPath != "-" {
		printSummary(cmd.OutOrStdout(), summary, a.Config.JSONLog)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	return nil
}

// collectCodes merges argument codes with codes read from file
func collectCodes(args []string, file string, stdin io.Reader) ([]string, error) {
	codes := splitCodes(args)
	if file == "" {
		return codes, nil
	}

	var r io.Reader = stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open codes file: %w", err)
		}
		defer f.Close()
		r = f
	}

	fromFile, err := readCodes(r)
	if err != nil {
		return nil, err
	}
	return append(codes, fromFile...), nil
}

// readCodes reads one code per line, skipping blanks and # comments
func readCodes(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read codes: %w", err)
	}
	return splitCodes(lines), nil
}

func splitCodes(in []string) []string {
	var out []string
	for _, s := range in {
		for _, code := range strings.Split(s, ",") {
			if code = strings.TrimSpace(code); code != "" {
				out = append(out, code)
			}
		}
	}
	return out
}

func showProgress(a *app.Application, out string) bool {
	return out != "-" && !a.Config.JSONLog && a.Config.LogLevel != "error"
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Tracking"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(ui.Enabled),
	)
}

func progressFunc(bar *progressbar.ProgressBar) batch.ProgressFunc {
	if bar == nil {
		return nil
	}
	return func(done, total int, result models.TrackingResult) {
		bar.Describe(fmt.Sprintf("%-20s", result.TrackingCode))
		_ = bar.Add(1)
	}
}

func writeReport(stdout io.Writer, summary models.BatchRunSummary, path, format string) error {
	switch path {
	case "":
		return nil
	case "-":
		if format != "" && format != "csv" {
			return output.WriteJSON(stdout, summary)
		}
		return output.WriteCSV(stdout, summary.Results)
	}
	if err := output.Save(summary, path, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	log.Info().Str("file", path).Msg("Report saved")
	return nil
}

// printSummary writes the per-code lines and the run totals
func printSummary(w io.Writer, s models.BatchRunSummary, asJSON bool) {
	if asJSON {
		_ = output.WriteJSON(w, s)
		return
	}

	fmt.Fprintln(w)
	for _, r := range s.Results {
		detail := r.Duration
		if r.Failed() {
			detail = ui.Error(r.Message)
		}
		fmt.Fprintf(w, "  %-22s %-22s %s\n", r.TrackingCode, ui.Status(r.DeliveryStatus), detail)
	}
	fmt.Fprintf(w, "\n%s %d codes, %s, %s in %.1fs (avg %dms)\n\n",
		ui.Bold("Done:"),
		s.Total,
		ui.Success(fmt.Sprintf("%d successful", s.Successful)),
		failedText(s.Failed),
		float64(s.TotalTimeMs)/1000,
		s.AverageTimeMs,
	)
}

func failedText(n int) string {
	text := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return ui.Error(text)
	}
	return text
}
