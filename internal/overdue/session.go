package overdue

import (
	"context"

	"go.uber.org/zap"

	"loanadmin/internal/domain"
)

type SessionState string

const (
	StateIdle         SessionState = "IDLE"
	StateLoadingFirst SessionState = "LOADING_FIRST_PAGE"
	StateReady        SessionState = "READY"
	StateLoadingMore  SessionState = "LOADING_MORE"
	StateExhausted    SessionState = "EXHAUSTED"
	StateError        SessionState = "ERROR"
)

// Page is one server page of overdue line items plus the server-reported
// total across all pages for the active filter.
type Page struct {
	Items      []domain.OverdueLineItem
	TotalCount int64
}

// PageFetcher supplies pages for the session's current filter. Page numbers
// start at 1.
type PageFetcher interface {
	FetchPage(ctx context.Context, params domain.Params) (Page, error)
}

// Session drives sequential page fetches for one search/filter combination
// and feeds each page into the aggregator. Only one fetch is ever
// outstanding, so pages arrive and merge in increasing page order. A filter
// change bumps the generation counter; a page that resolves under an old
// generation is discarded rather than folded into the new filter's
// aggregates.
//
// Session is single-threaded by design, mirroring the event-loop model of
// the console it serves. It must not be shared across goroutines.
type Session struct {
	fetcher PageFetcher
	agg     *Aggregator
	log     *zap.Logger

	search     string
	customerID uint64
	limit      int

	state      SessionState
	nextPage   int
	totalCount int64
	inFlight   bool
	generation uint64
	lastErr    error
}

func NewSession(fetcher PageFetcher, limit int, log *zap.Logger) *Session {
	if limit <= 0 {
		limit = 20
	}
	return &Session{
		fetcher:  fetcher,
		agg:      NewAggregator(),
		log:      log,
		limit:    limit,
		state:    StateIdle,
		nextPage: 1,
	}
}

// Reset installs a new search/filter combination. Aggregates are cleared,
// paging restarts at 1 and any in-flight page becomes stale.
func (s *Session) Reset(search string, customerID uint64) {
	s.generation++
	s.search = search
	s.customerID = customerID
	s.agg.Reset()
	s.state = StateIdle
	s.nextPage = 1
	s.totalCount = 0
	s.lastErr = nil

	s.log.Debug("overdue session reset",
		zap.String("search", search),
		zap.Uint64("customer_id", customerID),
		zap.Uint64("generation", s.generation),
	)
}

func (s *Session) State() SessionState { return s.state }

func (s *Session) Aggregator() *Aggregator { return s.agg }

// Err returns the failure that moved the session into StateError, if any.
func (s *Session) Err() error { return s.lastErr }

// Loaded reports how many line items have been merged for the active filter.
func (s *Session) Loaded() int { return s.agg.Items() }

// TotalCount is the server-reported item total for the active filter; zero
// until the first page resolves.
func (s *Session) TotalCount() int64 { return s.totalCount }

// HasMore reports whether another page exists. Before the first fetch it is
// optimistically true so the consumer issues page 1.
func (s *Session) HasMore() bool {
	switch s.state {
	case StateIdle:
		return true
	case StateExhausted, StateError:
		return false
	default:
		return int64(s.agg.Items()) < s.totalCount
	}
}

// ShouldFetchNextPage is the scroll predicate: true when the consumer's
// visible end row is within threshold rows of the loaded summary rows, more
// data exists server-side, and no fetch is already in flight. Repeated calls
// without new data never trigger duplicate fetches; the in-flight flag is
// the guard.
func (s *Session) ShouldFetchNextPage(visibleEnd, threshold int) bool {
	if s.inFlight {
		return false
	}
	if !s.HasMore() {
		return false
	}
	return visibleEnd >= s.agg.Loans()-threshold
}

// FetchNext requests and merges the next page. From StateError it refuses
// with the stored error: the consumer re-triggers via Reset, never by
// silent retry.
func (s *Session) FetchNext(ctx context.Context) error {
	switch s.state {
	case StateExhausted:
		return nil
	case StateError:
		return s.lastErr
	}
	if s.inFlight {
		return nil
	}

	first := s.nextPage == 1
	if first {
		s.state = StateLoadingFirst
	} else {
		s.state = StateLoadingMore
	}
	s.inFlight = true
	generation := s.generation

	page, err := s.fetcher.FetchPage(ctx, domain.Params{
		Search:     s.search,
		CustomerID: s.customerID,
		Page:       s.nextPage,
		Limit:      s.limit,
	})

	s.inFlight = false

	if generation != s.generation {
		// Filter changed while the page was outstanding; the response
		// belongs to the previous generation and must not pollute the
		// new aggregates.
		s.log.Debug("discarding stale page response",
			zap.Uint64("stale_generation", generation),
			zap.Uint64("current_generation", s.generation),
		)
		return nil
	}

	if err != nil {
		// Pages already merged stay merged; only the session state flips.
		s.state = StateError
		s.lastErr = err
		s.log.Warn("overdue page fetch failed",
			zap.Int("page", s.nextPage),
			zap.Error(err),
		)
		return err
	}

	s.agg.IngestPage(page.Items, first)
	s.totalCount = page.TotalCount
	s.nextPage++

	if int64(s.agg.Items()) >= s.totalCount {
		s.state = StateExhausted
	} else {
		s.state = StateReady
	}
	return nil
}

// FetchAll drains every remaining page for the active filter. Used by the
// summary endpoint and the report exporter, which want the complete rollup
// rather than scroll-driven increments.
func (s *Session) FetchAll(ctx context.Context) error {
	for s.HasMore() {
		if err := s.FetchNext(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
