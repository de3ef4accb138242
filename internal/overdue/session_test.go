package overdue

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"loanadmin/internal/domain"
)

// fakeFetcher serves a fixed item list in slices of the requested limit and
// can be told to fail, or to run a callback mid-fetch to simulate events
// arriving while a request is outstanding.
type fakeFetcher struct {
	items   []domain.OverdueLineItem
	failOn  int
	calls   int
	midCall func()
}

func (f *fakeFetcher) FetchPage(ctx context.Context, params domain.Params) (Page, error) {
	f.calls++
	if f.midCall != nil {
		f.midCall()
	}
	if f.failOn != 0 && f.calls == f.failOn {
		return Page{}, errors.New("backend unavailable")
	}

	start := (params.Page - 1) * params.Limit
	if start > len(f.items) {
		start = len(f.items)
	}
	end := start + params.Limit
	if end > len(f.items) {
		end = len(f.items)
	}
	return Page{
		Items:      f.items[start:end],
		TotalCount: int64(len(f.items)),
	}, nil
}

func lineItems(n int) []domain.OverdueLineItem {
	items := make([]domain.OverdueLineItem, n)
	for i := range items {
		items[i] = domain.OverdueLineItem{
			LoanID:    uint64(i + 1),
			LoanCode:  "LN",
			EmiNumber: 1,
			EmiDate:   day("2024-01-05"),
			Amount:    decimal.NewFromInt(500),
			Status:    domain.EmiOverdue,
		}
	}
	return items
}

func TestSessionDrainsAllPages(t *testing.T) {
	fetcher := &fakeFetcher{items: lineItems(5)}
	s := NewSession(fetcher, 2, zap.NewNop())
	s.Reset("", 0)

	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.HasMore())

	require.NoError(t, s.FetchNext(context.Background()))
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, 2, s.Loaded())
	assert.Equal(t, int64(5), s.TotalCount())

	require.NoError(t, s.FetchAll(context.Background()))
	assert.Equal(t, StateExhausted, s.State())
	assert.Equal(t, 5, s.Loaded())
	assert.Equal(t, 3, fetcher.calls)
	assert.False(t, s.HasMore())

	// Exhausted sessions refuse further work without erroring.
	require.NoError(t, s.FetchNext(context.Background()))
	assert.Equal(t, 3, fetcher.calls)
}

func TestSessionEmptyFirstPageExhausts(t *testing.T) {
	s := NewSession(&fakeFetcher{}, 20, zap.NewNop())
	s.Reset("nothing-matches", 0)

	require.NoError(t, s.FetchNext(context.Background()))

	assert.Equal(t, StateExhausted, s.State())
	assert.Equal(t, 0, s.Loaded())
	assert.False(t, s.HasMore())
	assert.False(t, s.ShouldFetchNextPage(0, 5))
}

func TestSessionErrorPreservesAggregates(t *testing.T) {
	fetcher := &fakeFetcher{items: lineItems(5), failOn: 2}
	s := NewSession(fetcher, 2, zap.NewNop())
	s.Reset("", 0)

	require.NoError(t, s.FetchNext(context.Background()))
	require.Error(t, s.FetchNext(context.Background()))

	assert.Equal(t, StateError, s.State())
	assert.Error(t, s.Err())
	assert.Equal(t, 2, s.Loaded(), "already merged pages survive the failure")
	assert.False(t, s.HasMore())
	assert.False(t, s.ShouldFetchNextPage(100, 5))

	// Re-triggering without a reset returns the stored error, no new fetch.
	calls := fetcher.calls
	assert.Error(t, s.FetchNext(context.Background()))
	assert.Equal(t, calls, fetcher.calls)

	// A reset clears the error and starts over.
	fetcher.failOn = 0
	s.Reset("", 0)
	assert.Equal(t, StateIdle, s.State())
	require.NoError(t, s.FetchAll(context.Background()))
	assert.Equal(t, StateExhausted, s.State())
	assert.Equal(t, 5, s.Loaded())
}

func TestShouldFetchNextPageThreshold(t *testing.T) {
	fetcher := &fakeFetcher{items: lineItems(40)}
	s := NewSession(fetcher, 20, zap.NewNop())
	s.Reset("", 0)

	// Idle: always fetch page 1.
	assert.True(t, s.ShouldFetchNextPage(0, 5))

	require.NoError(t, s.FetchNext(context.Background()))
	assert.Equal(t, 20, s.Loaded())

	// Far from the end of the loaded rows: no fetch.
	assert.False(t, s.ShouldFetchNextPage(10, 5))
	// Within threshold of the end: fetch.
	assert.True(t, s.ShouldFetchNextPage(15, 5))
	assert.True(t, s.ShouldFetchNextPage(20, 5))

	require.NoError(t, s.FetchNext(context.Background()))
	assert.Equal(t, StateExhausted, s.State())
	assert.False(t, s.ShouldFetchNextPage(40, 5))
}

func TestShouldFetchNextPageFalseWhileInFlight(t *testing.T) {
	fetcher := &fakeFetcher{items: lineItems(40)}
	s := NewSession(fetcher, 20, zap.NewNop())
	fetcher.midCall = func() {
		assert.False(t, s.ShouldFetchNextPage(100, 100), "no duplicate fetch while one is outstanding")
	}
	s.Reset("", 0)

	require.NoError(t, s.FetchNext(context.Background()))
}

func TestStaleResponseDiscardedAfterReset(t *testing.T) {
	fetcher := &fakeFetcher{items: lineItems(5)}
	s := NewSession(fetcher, 2, zap.NewNop())
	s.Reset("old-filter", 0)

	// The filter changes while page 1 is outstanding; its response must not
	// leak into the new filter's aggregates.
	fetcher.midCall = func() {
		fetcher.midCall = nil
		s.Reset("new-filter", 0)
	}

	require.NoError(t, s.FetchNext(context.Background()))

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 0, s.Loaded())
	assert.Equal(t, int64(0), s.TotalCount())

	require.NoError(t, s.FetchAll(context.Background()))
	assert.Equal(t, 5, s.Loaded())
}

func TestFetchAllHonorsContextCancellation(t *testing.T) {
	fetcher := &fakeFetcher{items: lineItems(100)}
	s := NewSession(fetcher, 10, zap.NewNop())
	s.Reset("", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.FetchAll(ctx), context.Canceled)
	assert.Less(t, fetcher.calls, 10)
}
