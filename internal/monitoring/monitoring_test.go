package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/goout-id/goout/internal/cache"
	"github.com/goout-id/goout/internal/database/testutil"
	"github.com/goout-id/goout/internal/monitoring"
	"github.com/goout-id/goout/internal/monitoring/checks"
)

type brokenStore struct {
	cache.Store
}

func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(
		monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: monitoring.StatusUp}
		}),
		monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
		}),
		monitoring.NewCheck("", nil),
	)

	report := manager.Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "cache", report.Checks[1].Component)
}

func TestHealthManagerRecoversPanics(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager(monitoring.NewCheck("flaky", func(ctx context.Context) monitoring.ProbeResult {
		panic("boom")
	}))

	report := manager.Evaluate(context.Background())
	require.False(t, report.Success)
	require.Equal(t, "boom", report.Checks[0].Details)
	require.Equal(t, "flaky", report.Checks[0].Component)
}

func TestResultFromErrorTreatsTimeoutAsDegraded(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusUp, monitoring.ResultFromError("db", nil, time.Millisecond).Status)
	require.Equal(t, monitoring.StatusDown, monitoring.ResultFromError("db", errors.New("x"), 0).Status)
	require.Equal(t, monitoring.StatusDegraded, monitoring.ResultFromError("db", context.DeadlineExceeded, 0).Status)
}

func TestDatabaseAndCacheChecks(t *testing.T) {
	t.Parallel()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	manager := monitoring.NewHealthManager(
		checks.Database(db, time.Second),
		checks.Cache(cache.NewDatabaseStore(db), time.Second),
	)

	report := manager.Evaluate(context.Background())
	require.True(t, report.Success, report)
	require.Equal(t, monitoring.StatusUp, report.Status)

	degraded := checks.Cache(brokenStore{}, time.Second).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, degraded.Status)

	missing := checks.Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, missing.Status)
}
