package collector

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smartvalue/internal/provider"
	"github.com/seenimoa/smartvalue/internal/store"
	"github.com/seenimoa/smartvalue/pkg/models"
)

// scriptedFetcher returns, per ticker, the queued errors in order and then
// succeeds. Tickers in always fail with the same error on every call.
type scriptedFetcher struct {
	mu      sync.Mutex
	scripts map[string][]error
	always  map[string]error
	calls   map[string]int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		scripts: make(map[string][]error),
		always:  make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *scriptedFetcher) FetchStatements(ctx context.Context, ticker string) (*models.Statements, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ticker]++

	if err, ok := f.always[ticker]; ok {
		return nil, err
	}
	if q := f.scripts[ticker]; len(q) > 0 {
		f.scripts[ticker] = q[1:]
		return nil, q[0]
	}

	periods := []time.Time{time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)}
	bs := models.NewStatementTable(models.KindBalanceSheet, periods)
	bs.Set(models.TotalAssets, 0, null.FloatFrom(100))
	return &models.Statements{
		Ticker:          ticker,
		BalanceSheet:    bs,
		IncomeStatement: models.NewStatementTable(models.KindIncomeStatement, periods),
		CashFlow:        models.NewStatementTable(models.KindCashFlow, periods),
		Intro:           models.IntroInfo{Symbol: ticker, FinancialCurrency: "USD"},
	}, nil
}

type sleepLog struct {
	mu    sync.Mutex
	calls []struct {
		kind SleepKind
		d    time.Duration
	}
}

func (s *sleepLog) sleep(kind SleepKind, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, struct {
		kind SleepKind
		d    time.Duration
	}{kind, d})
}

func (s *sleepLog) count(kind SleepKind) int {
	n := 0
	for _, c := range s.calls {
		if c.kind == kind {
			n++
		}
	}
	return n
}

func transient() error {
	return provider.NewProviderError("test", "", errors.New("timeout"))
}

func newTestCollector(f Fetcher, sl *sleepLog, o Options, extra ...Option) *Collector {
	opts := append([]Option{
		WithOptions(o),
		WithSleeper(sl.sleep),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, extra...)
	return New("test", f, opts...)
}

// ── Retry bound ──

func TestAlwaysFailingTickerIsAttemptedMaxRetriesPlusOne(t *testing.T) {
	f := newScriptedFetcher()
	f.always["BAD"] = transient()
	sl := &sleepLog{}

	o := DefaultOptions()
	rep := newTestCollector(f, sl, o).Collect(context.Background(), []string{"BAD"})

	assert.Equal(t, o.MaxRetries+1, f.calls["BAD"])
	assert.Equal(t, []string{"BAD"}, rep.Failures)
	assert.Equal(t, o.MaxRetries, sl.count(RetryCooldown))
	require.Len(t, rep.Outcomes, 1)
	assert.Equal(t, PermanentFailure, rep.Outcomes[0].State)
	assert.True(t, provider.IsRetryable(rep.Outcomes[0].Err))
}

func TestTotalAttemptsBoundedAcrossBatch(t *testing.T) {
	f := newScriptedFetcher()
	tickers := []string{"A", "B", "C", "D", "E"}
	for _, tk := range tickers {
		f.always[tk] = transient()
	}
	sl := &sleepLog{}
	o := DefaultOptions()
	o.MaxRetries = 3

	rep := newTestCollector(f, sl, o).Collect(context.Background(), tickers)

	assert.LessOrEqual(t, rep.TotalAttempts(), len(tickers)*(o.MaxRetries+1))
	assert.Equal(t, len(tickers)*(o.MaxRetries+1), rep.TotalAttempts())
	assert.ElementsMatch(t, tickers, rep.Failures)
}

// ── End-to-end scenarios ──

func TestRecoversAfterTransientErrors(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["BBB"] = []error{transient(), transient()}
	sl := &sleepLog{}

	o := DefaultOptions()
	o.BatchSize = 1
	st, err := store.NewJSONStore(t.TempDir())
	require.NoError(t, err)

	rep := newTestCollector(f, sl, o, WithStore(st)).Collect(context.Background(), []string{"AAA", "BBB"})

	assert.Empty(t, rep.Failures)
	require.Len(t, rep.Records(), 2)
	assert.Equal(t, 1, f.calls["AAA"])
	assert.Equal(t, 3, f.calls["BBB"])
	assert.GreaterOrEqual(t, sl.count(RetryCooldown), 2)
	for _, c := range sl.calls {
		if c.kind == RetryCooldown {
			assert.Equal(t, 60*time.Second, c.d)
		}
	}

	stored, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestDataUnavailableIsNotRetried(t *testing.T) {
	f := newScriptedFetcher()
	f.always["ZZZ"] = provider.NewDataUnavailable("test", "ZZZ", "delisted")
	sl := &sleepLog{}

	rep := newTestCollector(f, sl, DefaultOptions()).Collect(context.Background(), []string{"ZZZ"})

	assert.Equal(t, []string{"ZZZ"}, rep.Failures)
	assert.Equal(t, 1, f.calls["ZZZ"])
	assert.Equal(t, 0, sl.count(RetryCooldown))
	assert.True(t, provider.IsDataUnavailable(rep.Outcomes[0].Err))
}

func TestUnclassifiedErrorsAreRetried(t *testing.T) {
	f := newScriptedFetcher()
	f.scripts["AAA"] = []error{errors.New("connection reset")}
	sl := &sleepLog{}

	rep := newTestCollector(f, sl, DefaultOptions()).Collect(context.Background(), []string{"AAA"})
	assert.Empty(t, rep.Failures)
	assert.Equal(t, 2, f.calls["AAA"])
}

// nilOnceFetcher returns no statements and no error on the first call for
// each ticker, then delegates.
type nilOnceFetcher struct {
	*scriptedFetcher
	seen map[string]bool
}

func (f *nilOnceFetcher) FetchStatements(ctx context.Context, ticker string) (*models.Statements, error) {
	f.mu.Lock()
	first := !f.seen[ticker]
	f.seen[ticker] = true
	if first {
		f.calls[ticker]++
		f.mu.Unlock()
		return nil, nil
	}
	f.mu.Unlock()
	return f.scriptedFetcher.FetchStatements(ctx, ticker)
}

func TestNilStatementsAreRetried(t *testing.T) {
	f := &nilOnceFetcher{scriptedFetcher: newScriptedFetcher(), seen: make(map[string]bool)}
	sl := &sleepLog{}

	rep := newTestCollector(f, sl, DefaultOptions()).Collect(context.Background(), []string{"AAA"})

	assert.Empty(t, rep.Failures)
	assert.Equal(t, 2, f.calls["AAA"])
	assert.Equal(t, 1, sl.count(RetryCooldown))
	require.Len(t, rep.Records(), 1)
}

// ── Batching ──

func TestBatchDelaysOnlyBetweenBatches(t *testing.T) {
	f := newScriptedFetcher()
	sl := &sleepLog{}
	o := DefaultOptions() // batches of 3

	newTestCollector(f, sl, o).Collect(context.Background(), []string{"A", "B", "C", "D", "E", "F", "G"})

	// 7 tickers → 3 batches → 2 pauses.
	require.Equal(t, 2, sl.count(BatchDelay))
	for _, c := range sl.calls {
		assert.GreaterOrEqual(t, c.d, o.MinBatchDelay)
		assert.LessOrEqual(t, c.d, o.MaxBatchDelay)
	}
}

func TestSingleBatchNeverPauses(t *testing.T) {
	f := newScriptedFetcher()
	sl := &sleepLog{}
	newTestCollector(f, sl, DefaultOptions()).Collect(context.Background(), []string{"A", "B"})
	assert.Empty(t, sl.calls)
}

func TestBatchDelayFixedWhenBoundsEqual(t *testing.T) {
	o := DefaultOptions()
	o.MinBatchDelay, o.MaxBatchDelay = 5*time.Second, 5*time.Second
	c := newTestCollector(newScriptedFetcher(), &sleepLog{}, o)
	assert.Equal(t, 5*time.Second, c.batchDelay())
}

func TestEmptyInput(t *testing.T) {
	rep := newTestCollector(newScriptedFetcher(), &sleepLog{}, DefaultOptions()).Collect(context.Background(), nil)
	assert.Empty(t, rep.Outcomes)
	assert.Empty(t, rep.Failures)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", rep.RunID.String())
}

// failingStore rejects every write.
type failingStore struct{ store.RecordStore }

func (failingStore) Put(ctx context.Context, rec *models.CompanyRecord) error {
	return errors.New("disk full")
}

func TestPersistFailureIsPermanent(t *testing.T) {
	f := newScriptedFetcher()
	sl := &sleepLog{}
	rep := newTestCollector(f, sl, DefaultOptions(), WithStore(failingStore{})).
		Collect(context.Background(), []string{"AAA"})

	assert.Equal(t, []string{"AAA"}, rep.Failures)
	assert.Equal(t, 1, f.calls["AAA"])
}

// ── Job state machine ──

func TestJobStates(t *testing.T) {
	j := NewJob([]string{"A", "B", "A", ""})
	assert.Equal(t, []string{"A", "B"}, j.Tickers())

	s, _ := j.State("A")
	assert.Equal(t, Pending, s)

	tk, ok := j.Next()
	require.True(t, ok)
	assert.Equal(t, "A", tk)

	// Only one ticker may be in flight.
	_, ok = j.Next()
	assert.False(t, ok)

	assert.Equal(t, 1, j.Attempt("A"))
	j.Retry("A")
	s, _ = j.State("A")
	assert.Equal(t, Retrying, s)
	assert.Equal(t, 2, j.Attempt("A"))
	j.Fail("A")

	tk, _ = j.Next()
	j.Attempt(tk)
	j.Succeed(tk)

	sa, _ := j.State("A")
	sb, _ := j.State("B")
	assert.Equal(t, PermanentFailure, sa)
	assert.Equal(t, Success, sb)
	assert.Equal(t, []string{"A"}, j.Failures())
	assert.Equal(t, 2, j.Attempts("A"))
	assert.Equal(t, 0, j.Remaining())

	assert.Panics(t, func() { j.Succeed("A") })
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "retrying", Retrying.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestCanceledRunDoesNotSleepOrRetry(t *testing.T) {
	f := newScriptedFetcher()
	for _, tk := range []string{"A", "B", "C", "D"} {
		f.always[tk] = transient()
	}
	sl := &sleepLog{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := DefaultOptions()
	o.BatchSize = 2
	rep := newTestCollector(f, sl, o).Collect(ctx, []string{"A", "B", "C", "D"})

	assert.Equal(t, []string{"A", "B", "C", "D"}, rep.Failures)
	assert.Empty(t, sl.calls)
	for _, tk := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, 1, f.calls[tk], tk)
	}
}
