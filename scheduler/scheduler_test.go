package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingCatalog struct {
	calls atomic.Int32
	err   error
}

func (cc *countingCatalog) Refresh(ctx context.Context) error {
	cc.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	return cc.err
}

type recordingPurger struct {
	retention time.Duration
	calls     atomic.Int32
}

func (rp *recordingPurger) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	rp.calls.Add(1)
	rp.retention = retention
	return 3, nil
}

func newTestScheduler(ctx context.Context, catalog *countingCatalog, purger *recordingPurger) *Scheduler {
	return New(ctx, Config{
		CatalogRefreshSpec:    "*/5 * * * *",
		NotificationPurgeSpec: "0 3 * * *",
		NotificationRetention: 48 * time.Hour,
	}, catalog, purger, zap.NewNop())
}

func TestStartRegistersJobs(t *testing.T) {
	s := newTestScheduler(context.Background(), &countingCatalog{}, &recordingPurger{})
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Len(t, s.cron.Entries(), 2)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(context.Background(), Config{
		CatalogRefreshSpec:    "every now and then",
		NotificationPurgeSpec: "0 3 * * *",
	}, &countingCatalog{}, &recordingPurger{}, zap.NewNop())
	assert.Error(t, s.Start())
}

func TestJobsRunWithTimeout(t *testing.T) {
	catalog := &countingCatalog{err: errors.New("db down")}
	purger := &recordingPurger{}
	s := newTestScheduler(context.Background(), catalog, purger)

	s.refreshCatalog()
	s.purgeNotifications()

	assert.Equal(t, int32(1), catalog.calls.Load())
	assert.Equal(t, int32(1), purger.calls.Load())
	assert.Equal(t, 48*time.Hour, purger.retention)
}

func TestJobsSkippedAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	catalog := &countingCatalog{}
	purger := &recordingPurger{}
	s := newTestScheduler(ctx, catalog, purger)

	s.refreshCatalog()
	s.purgeNotifications()

	assert.Zero(t, catalog.calls.Load())
	assert.Zero(t, purger.calls.Load())
}
