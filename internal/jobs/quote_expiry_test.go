package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"garagehub/internal/jobs"
)

type fakeExpirer struct {
	calls atomic.Int32
	n     int
	err   error
	seen  atomic.Pointer[time.Time]
}

func (f *fakeExpirer) ExpireQuotes(_ context.Context, now time.Time) (int, error) {
	f.calls.Add(1)
	f.seen.Store(&now)
	return f.n, f.err
}

func TestQuoteExpirySweepPassesClock(t *testing.T) {
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	fe := &fakeExpirer{n: 3}
	core, logs := observer.New(zap.InfoLevel)

	j := jobs.NewQuoteExpiry(fe, time.Minute, zap.New(core))
	j.Now = func() time.Time { return fixed }

	assert.Equal(t, 3, j.Sweep(context.Background()))
	assert.Equal(t, fixed, *fe.seen.Load())
	require.Equal(t, 1, logs.FilterMessage("jobs.quote_expiry").Len())
}

func TestQuoteExpirySweepLogsFailure(t *testing.T) {
	fe := &fakeExpirer{err: errors.New("database is locked")}
	core, logs := observer.New(zap.InfoLevel)

	jobs.NewQuoteExpiry(fe, time.Minute, zap.New(core)).Sweep(context.Background())
	assert.Equal(t, 1, logs.FilterMessage("jobs.quote_expiry.failed").Len())
}

func TestQuoteExpiryRunStopsOnCancel(t *testing.T) {
	fe := &fakeExpirer{}
	j := jobs.NewQuoteExpiry(fe, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return fe.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestQuoteExpiryDisabled(t *testing.T) {
	fe := &fakeExpirer{}
	jobs.NewQuoteExpiry(fe, 0, nil).Run(context.Background())
	assert.Zero(t, fe.calls.Load())
}
