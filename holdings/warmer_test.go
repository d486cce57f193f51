package holdings_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/holdings-engine/fifo"
	"github.com/warp/holdings-engine/holdings"
	"github.com/warp/holdings-engine/holdings/store"
)

func TestWarmer_RunNowFillsCache(t *testing.T) {
	mem := store.NewMemory()
	svc := holdings.NewService(mem, holdings.WithLogger(quietLogger()))
	ctx := context.Background()
	require.NoError(t, svc.Import(ctx, summaryBatch()))

	w := holdings.NewWarmer(svc, time.Hour)
	status := w.RunNow(ctx)

	assert.Equal(t, 2, status.Accounts)
	assert.Equal(t, 0, status.Failures)
	assert.False(t, status.LastRun.IsZero())

	// WHEN: a row lands behind the service's back
	require.NoError(t, mem.AppendTransactions(ctx, []holdings.TransactionRecord{
		txn("A1", "NEW", "Newco", "2024-01-01", "BY-", "1", "1"),
	}))

	// THEN: the warmed summary is served from cache
	got, err := svc.Summary(ctx, "A1", fifo.Date{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

type failingAccounts struct {
	*store.Memory
}

func (failingAccounts) Accounts(context.Context) ([]string, error) {
	return nil, errors.New("unavailable")
}

func TestWarmer_ListFailure(t *testing.T) {
	svc := holdings.NewService(failingAccounts{store.NewMemory()}, holdings.WithLogger(quietLogger()))
	w := holdings.NewWarmer(svc, time.Hour)

	status := w.RunNow(context.Background())
	assert.Equal(t, 1, status.Failures)
	assert.Equal(t, status, w.Status())
}

func TestWarmer_StartStop(t *testing.T) {
	svc := holdings.NewService(store.NewMemory(), holdings.WithLogger(quietLogger()))
	w := holdings.NewWarmer(svc, time.Hour)

	w.Start()
	w.Start() // no-op
	assert.True(t, w.Status().Running)
	assert.Equal(t, time.Hour, w.Status().Interval)

	w.Stop()
	w.Stop() // no-op
	assert.False(t, w.Status().Running)
	assert.False(t, w.Status().LastRun.IsZero(), "first run happens on start")
}

func TestWarmer_DisabledWithoutInterval(t *testing.T) {
	svc := holdings.NewService(store.NewMemory(), holdings.WithLogger(quietLogger()))
	w := holdings.NewWarmer(svc, 0)

	w.Start()
	assert.False(t, w.Status().Running)
	w.Stop()
}
