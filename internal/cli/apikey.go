// internal/cli/apikey.go
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/law-makers/tracktime/internal/auth"
	"github.com/law-makers/tracktime/internal/ui"
	"github.com/spf13/cobra"
)

// newKeyStore is swapped in tests
var newKeyStore = auth.NewKeyStore

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the stored carrier API key",
	Long: `Stores the carrier API key in your OS keyring, or in ~/.tracktime when no
keyring is available (CI, containers).

A key passed with --api-key or TRACKTIME_API_KEY always wins over the stored one.
Without any key the API step is skipped and only the tracking page is used.`,
	Example: `  # Store a key (prompts when omitted)
  tracktime apikey set

  # Show which key is in use
  tracktime apikey show

  # Forget it
  tracktime apikey delete`,
	Annotations: map[string]string{skipAppAnnotation: "true"},
}

var apikeySetCmd = &cobra.Command{
	Use:         "set [key]",
	Short:       "Store the API key",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipAppAnnotation: "true"},
	RunE:        runAPIKeySet,
}

var apikeyShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the stored API key, masked",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipAppAnnotation: "true"},
	RunE:        runAPIKeyShow,
}

var apikeyDeleteCmd = &cobra.Command{
	Use:         "delete",
	Short:       "Delete the stored API key",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipAppAnnotation: "true"},
	RunE:        runAPIKeyDelete,
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeySetCmd, apikeyShowCmd, apikeyDeleteCmd)
}

func runAPIKeySet(cmd *cobra.Command, args []string) error {
	store, err := newKeyStore()
	if err != nil {
		return err
	}

	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read key: %w", err)
		}
		key = line
	}

	if err := store.Set(strings.TrimSpace(key)); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success("✓ API key saved to "+store.Backend()))
	return nil
}

func runAPIKeyShow(cmd *cobra.Command, args []string) error {
	store, err := newKeyStore()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	key, err := store.Get()
	if errors.Is(err, auth.ErrNoKey) {
		fmt.Fprintln(out, "No API key stored.")
		fmt.Fprintln(out, "Store one with: tracktime apikey set")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s %s\n", ui.Bold("API key:"), auth.Mask(key), ui.Dim("("+store.Backend()+")"))
	return nil
}

func runAPIKeyDelete(cmd *cobra.Command, args []string) error {
	store, err := newKeyStore()
	if err != nil {
		return err
	}
	if err := store.Delete(); err != nil {
		if errors.Is(err, auth.ErrNoKey) {
			fmt.Fprintln(cmd.OutOrStdout(), "No API key stored.")
			return nil
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success("✓ API key deleted"))
	return nil
}
