package sink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/tracktime/internal/obs"
	"github.com/law-makers/tracktime/pkg/models"
)

type recorder struct {
	got []Outcome
	err error
}

func (r *recorder) Record(_ context.Context, o Outcome) error {
	r.got = append(r.got, o)
	return r.err
}

func TestFromResult(t *testing.T) {
	at := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	ok := FromResult(models.TrackingResult{
		TrackingCode:     "A",
		DeliveryStatus:   models.StatusNotFound,
		ProcessingTimeMs: 42,
		Source:           "api",
		FetchedAt:        at,
	}, "req-1")
	require.True(t, ok.Success, "not_found is a successful acquisition")
	require.Empty(t, ok.Error)
	require.Equal(t, at, ok.Timestamp)

	failed := FromResult(models.TrackingResult{
		TrackingCode:   "B",
		DeliveryStatus: models.StatusError,
		Message:        "browser unavailable",
	}, "req-2")
	require.False(t, failed.Success)
	require.Equal(t, "browser unavailable", failed.Error)
}

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("disk full")}
	m := Multi{a, nil, b}

	err := m.Record(context.Background(), Outcome{TrackingCode: "A"})
	require.Error(t, err)
	require.Len(t, a.got, 1)
	require.Len(t, b.got, 1)
}

func TestMetricsSink(t *testing.T) {
	metrics := obs.NewMetrics()
	s := Multi{LogSink{}, MetricsSink{Metrics: metrics}}

	require.NoError(t, s.Record(context.Background(), Outcome{
		TrackingCode:     "A",
		Status:           models.StatusDelivered,
		Success:          true,
		ProcessingTimeMs: 300,
		Source:           "broad",
	}))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Acquisitions.WithLabelValues("broad", "delivered")))

	require.NoError(t, s.Record(context.Background(), Outcome{TrackingCode: "B", Status: models.StatusNotFound, Source: "cache"}))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHits))
	require.NoError(t, MetricsSink{}.Record(context.Background(), Outcome{}))
}
