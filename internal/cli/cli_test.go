package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/law-makers/tracktime/internal/auth"
	"github.com/law-makers/tracktime/internal/ui"
	"github.com/law-makers/tracktime/pkg/models"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	ui.Enabled = false
	os.Exit(m.Run())
}

func TestReadCodes(t *testing.T) {
	in := strings.NewReader("# shipments\nJVGL0612\n\n  3SABC1, 3SABC2 \n#skip\nCODE9\n")
	codes, err := readCodes(in)
	require.NoError(t, err)
	require.Equal(t, []string{"JVGL0612", "3SABC1", "3SABC2", "CODE9"}, codes)
}

func TestCollectCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")
	require.NoError(t, os.WriteFile(path, []byte("B1\nB2\n"), 0o644))

	codes, err := collectCodes([]string{"A1,A2"}, path, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"A1", "A2", "B1", "B2"}, codes)

	codes, err = collectCodes(nil, "-", strings.NewReader("S1\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"S1"}, codes)

	_, err = collectCodes(nil, filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	handoff := time.Date(2025, 1, 14, 9, 30, 0, 0, time.UTC)
	delivered := time.Date(2025, 1, 16, 14, 5, 0, 0, time.UTC)
	r := models.TrackingResult{
		TrackingCode:   "JVGL0612",
		DeliveryStatus: models.StatusDelivered,
		HandoffMoment:  &handoff,
		DeliveryMoment: &delivered,
		Duration:       "2 dagen",
		Source:         "api",
		TimelineEvents: []models.TimelineEvent{
			{Timestamp: handoff, Description: "Zending ontvangen"},
			{Timestamp: delivered, Description: "Bezorgd", Location: "mailbox"},
		},
	}

	var buf bytes.Buffer
	printResult(&buf, r, true)
	out := buf.String()
	for _, want := range []string{"JVGL0612", "delivered", "Duration:", "2 dagen", "Source:", "api", "Bezorgd (mailbox)"} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "Last update:")
}

func TestPrintSummary(t *testing.T) {
	s := models.BatchRunSummary{
		Total:         2,
		Successful:    1,
		Failed:        1,
		TotalTimeMs:   2500,
		AverageTimeMs: 1250,
		Results: []models.TrackingResult{
			{TrackingCode: "A", DeliveryStatus: models.StatusInTransit, Duration: "1 dag onderweg (tot nu toe)"},
			{TrackingCode: "B", DeliveryStatus: models.StatusError, Message: "browser unavailable"},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, s, false)
	out := buf.String()
	require.Contains(t, out, "browser unavailable")
	require.Contains(t, out, "2 codes, 1 successful, 1 failed in 2.5s (avg 1250ms)")
}

func TestWriteReportToStdout(t *testing.T) {
	s := models.BatchRunSummary{Results: []models.TrackingResult{{TrackingCode: "A", DeliveryStatus: models.StatusNotFound}}}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, s, "-", ""))
	require.True(t, strings.HasPrefix(buf.String(), `"tracking_code",`))
	require.Contains(t, buf.String(), `"A","not_found"`)

	buf.Reset()
	require.NoError(t, writeReport(&buf, s, "", ""))
	require.Empty(t, buf.String())
}

func TestPrintChecks(t *testing.T) {
	var buf bytes.Buffer
	failed := printChecks(&buf, []check{
		{name: "Browser", ok: true, detail: "Chromium 131"},
		{name: "Cache", ok: false, detail: "redis unreachable"},
	})
	require.Equal(t, 1, failed)
	require.Contains(t, buf.String(), "✓ Browser")
	require.Contains(t, buf.String(), "✗ Cache")
}

func TestAPIKeyCommands(t *testing.T) {
	store := &auth.FileStore{Path: filepath.Join(t.TempDir(), "api-key")}
	prev := newKeyStore
	newKeyStore = func() (auth.KeyStore, error) { return store, nil }
	defer func() { newKeyStore = prev }()

	run := func(args ...string) string {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetIn(strings.NewReader("prompted-key-1234\n"))
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.ExecuteContext(context.Background()))
		return out.String()
	}

	require.Contains(t, run("apikey", "show"), "No API key stored")
	require.Contains(t, run("apikey", "set", "abcd1234"), "API key saved")
	require.Contains(t, run("apikey", "show"), "****1234")

	run("apikey", "set")
	key, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "prompted-key-1234", key)

	require.Contains(t, run("apikey", "delete"), "API key deleted")
	require.Contains(t, run("apikey", "delete"), "No API key stored")
}
