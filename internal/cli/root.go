// internal/cli/root.go
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/tracktime/internal/app"
	"github.com/law-makers/tracktime/internal/config"
	"github.com/law-makers/tracktime/internal/ui"
)

// skipAppAnnotation marks commands that run without the acquisition pipeline
const skipAppAnnotation = "tracktime/skip-app"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracktime",
	Short: "Measure how long parcels take from handoff to delivery",
	Long: `tracktime looks up tracking codes at the carrier and reports the delivery
status, the handoff and delivery moments, and the transit time.

Each code is tried through the carrier API first, then the tracking page in a
headless browser, until one source returns a usable timeline.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// active is the Application of the running command. Cobra skips the post-run
// hook when RunE fails, so Execute closes it as well.
var active *app.Application

// Execute runs the command tree under ctx
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	closeActive()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error("Error: "+err.Error()))
	}
	return err
}

func init() {
	config.RegisterFlags(rootCmd)

	// The application is built after flag parsing so -h and --version stay cheap
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Annotations[skipAppAnnotation] != "" {
			return nil
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, a)
		active = a
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		SetApp(cmd, nil)
		return closeActive()
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		printHelp(os.Stdout, cmd)
	})
	rootCmd.SetUsageFunc(func(cmd *cobra.Command) error {
		printUsage(os.Stderr, cmd)
		return nil
	})
}

func closeActive() error {
	if active == nil {
		return nil
	}
	a := active
	active = nil
	return a.Close(context.Background())
}

// loadConfig reads the configuration and sets up logging for commands that
// do not build an Application
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	app.SetupLogging(cfg)
	log.Debug().Str("command", cmd.CommandPath()).Msg("Configuration loaded")
	return cfg, nil
}

// printHelp renders colourised help for cmd
func printHelp(w io.Writer, cmd *cobra.Command) {
	fmt.Fprintf(w, "\n%s\n", ui.Bold(strings.ToUpper(cmd.Name())))
	if cmd.Short != "" {
		fmt.Fprintln(w, cmd.Short)
	}
	if cmd.Long != "" && cmd.Long != cmd.Short {
		fmt.Fprintf(w, "\n%s\n", cmd.Long)
	}

	printUsage(w, cmd)

	if cmd.HasExample() {
		section(w, "Examples")
		for _, line := range strings.Split(cmd.Example, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				fmt.Fprintln(w)
			case strings.HasPrefix(line, "#"):
				fmt.Fprintf(w, "  %s\n", ui.Dim(line))
			default:
				fmt.Fprintf(w, "  %s\n", ui.Success("$ "+line))
			}
		}
	}

	if cmd.HasAvailableInheritedFlags() {
		section(w, "Global Flags")
		printFlags(w, cmd.InheritedFlags().FlagUsages())
	}
	fmt.Fprintln(w)
}

func printUsage(w io.Writer, cmd *cobra.Command) {
	section(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s%s%s\n", ui.ColorCyan, cmd.UseLine(), ui.ColorReset)
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s%s <command>%s [flags]\n", ui.ColorCyan, cmd.CommandPath(), ui.ColorReset)

		section(w, "Commands")
		width := 0
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() && len(c.Name()) > width {
				width = len(c.Name())
			}
		}
		for _, c := range cmd.Commands() {
			if !c.IsAvailableCommand() {
				continue
			}
			fmt.Fprintf(w, "  %s%-*s%s  %s\n", ui.ColorCyan, width, c.Name(), ui.ColorReset, ui.Dim(c.Short))
		}
	}
	if cmd.HasAvailableLocalFlags() {
		section(w, "Flags")
		printFlags(w, cmd.LocalFlags().FlagUsages())
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", ui.ColorBold+ui.ColorWhite, title, ui.ColorReset)
}

// printFlags colours the flag names of pflag's usage block
func printFlags(w io.Writer, usages string) {
	for _, line := range strings.Split(strings.TrimRight(usages, "\n"), "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if !strings.HasPrefix(trimmed, "-") {
			fmt.Fprintf(w, "%s\n", ui.Dim(line))
			continue
		}
		name, desc, _ := strings.Cut(trimmed, "   ")
		fmt.Fprintf(w, "  %s%-30s%s %s\n", ui.ColorGreen, name, ui.ColorReset, ui.Dim(strings.TrimSpace(desc)))
	}
}
