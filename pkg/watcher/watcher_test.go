package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"safehdr/pkg/config"
	"safehdr/pkg/models"
	"safehdr/pkg/store"
)

type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) FetchSafeInfo(ctx context.Context, rpcURLs []string, address string) (models.SafeOnChain, error) {
	args := m.Called(rpcURLs, address)
	return args.Get(0).(models.SafeOnChain), args.Error(1)
}

func (m *MockDataSource) FetchHoldings(ctx context.Context, chain config.ChainConfig, address string) (models.Holdings, error) {
	args := m.Called(chain, address)
	return args.Get(0).(models.Holdings), args.Error(1)
}

func (m *MockDataSource) FetchPrices(ctx context.Context, coinIDs []string, currency string) (map[string]decimal.Decimal, error) {
	args := m.Called(coinIDs, currency)
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

const (
	mainSafe = "0x1111222233334444555566667777888899990000"
	opsSafe  = "0x2222222233334444555566667777888899990000"
)

func testStore() *store.Store {
	return store.New(config.Config{
		Safes: []config.SafeConfig{
			{Address: mainSafe, Name: "Main", Chain: "Ethereum"},
			{Address: opsSafe, Name: "Ops", Chain: "Ethereum"},
		},
		Chains: []config.ChainConfig{{
			Name:        "Ethereum",
			ShortName:   "eth",
			RPCURLs:     []string{"http://eth"},
			CoinGeckoID: "ethereum",
			Tokens:      []config.TokenConfig{{Symbol: "USDC", CoinGeckoID: "usd-coin"}},
		}},
		Currency: "USD",
	}, "", nil)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func drain(t *testing.T, sub Subscriber, n int) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(time.Second)
	for len(events) < n {
		select {
		case ev := <-sub:
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d of %d", len(events), n)
		}
	}
	return events
}

func TestNewWatcher(t *testing.T) {
	w := NewWatcher(testStore(), 0, nil)

	require.NotNil(t, w)
	info := w.SafeInfo()
	assert.Equal(t, mainSafe, info.Address)
	assert.True(t, info.Loading)
	assert.Equal(t, "", w.Balances().FiatTotal)
}

func TestNewWatcher_NoSafes(t *testing.T) {
	w := NewWatcher(store.New(config.Config{Currency: "USD"}, "", nil), 0, nil)
	assert.Equal(t, models.SafeInfo{}, w.SafeInfo())
}

func TestSubscribeUnsubscribe(t *testing.T) {
	w := NewWatcher(testStore(), 0, nil)
	sub := w.Subscribe()
	assert.NotNil(t, sub)

	w.mu.RLock()
	assert.Equal(t, 1, len(w.subscribers))
	w.mu.RUnlock()

	w.Unsubscribe(sub)
	w.mu.RLock()
	assert.Equal(t, 0, len(w.subscribers))
	w.mu.RUnlock()
}

func TestFetchAll(t *testing.T) {
	mockDS := new(MockDataSource)
	w := NewWatcher(testStore(), 0, nil)
	w.SetDataSource(mockDS)

	mockDS.On("FetchSafeInfo", []string{"http://eth"}, mainSafe).Return(models.SafeOnChain{
		Address: mainSafe, Threshold: 2, Owners: []string{"0xA", "0xB", "0xC"},
	}, nil)
	mockDS.On("FetchHoldings", mock.Anything, mainSafe).Return(models.Holdings{
		Native: d("0.5"),
		Tokens: map[string]decimal.Decimal{"USDC": d("234.5")},
	}, nil)
	mockDS.On("FetchPrices", []string{"ethereum", "usd-coin"}, "USD").Return(map[string]decimal.Decimal{
		"ethereum": d("2000"),
		"usd-coin": d("1"),
	}, nil)

	sub := w.Subscribe()
	w.fetchAll(context.Background())
	mockDS.AssertExpectations(t)

	info := w.SafeInfo()
	assert.False(t, info.Loading)
	assert.Equal(t, 2, info.Threshold.OrElse(0))
	assert.Len(t, info.Owners.OrElse(nil), 3)
	assert.Equal(t, "1234.5", w.Balances().FiatTotal)

	events := drain(t, sub, 2)
	assert.Equal(t, EventSafeInfoUpdated, events[0].Type)
	assert.Equal(t, EventBalancesUpdated, events[1].Type)
}

func TestFetchAll_PartialFailure(t *testing.T) {
	mockDS := new(MockDataSource)
	w := NewWatcher(testStore(), 0, nil)
	w.SetDataSource(mockDS)

	mockDS.On("FetchSafeInfo", mock.Anything, mock.Anything).Return(models.SafeOnChain{}, errors.New("rpc down"))
	mockDS.On("FetchHoldings", mock.Anything, mock.Anything).Return(models.Holdings{Native: d("1")}, nil)
	mockDS.On("FetchPrices", mock.Anything, mock.Anything).Return(map[string]decimal.Decimal(nil), errors.New("rate limited"))

	sub := w.Subscribe()
	w.fetchAll(context.Background())

	info := w.SafeInfo()
	assert.False(t, info.Loading, "a failed fetch must not leave the header loading forever")
	assert.Equal(t, mainSafe, info.Address)
	assert.False(t, info.Threshold.IsSet())
	assert.Equal(t, "0", w.Balances().FiatTotal)

	var failures int
	for _, ev := range drain(t, sub, 4) {
		if ev.Type == EventFetchFailed {
			failures++
		}
	}
	assert.Equal(t, 2, failures)
}

func TestActivate_DiscardsStaleResults(t *testing.T) {
	s := testStore()
	mockDS := new(MockDataSource)
	w := NewWatcher(s, 0, nil)
	w.SetDataSource(mockDS)

	release := make(chan struct{})
	mockDS.On("FetchSafeInfo", mock.Anything, mainSafe).
		Run(func(mock.Arguments) { <-release }).
		Return(models.SafeOnChain{Address: mainSafe, Threshold: 1, Owners: []string{"0xA"}}, nil)
	mockDS.On("FetchHoldings", mock.Anything, mainSafe).Return(models.Holdings{Native: d("1")}, nil)
	mockDS.On("FetchPrices", mock.Anything, mock.Anything).Return(map[string]decimal.Decimal{"ethereum": d("10")}, nil)

	done := make(chan struct{})
	go func() {
		w.fetchAll(context.Background())
		close(done)
	}()

	// Wait until the fetch captured its generation, then switch Safes.
	time.Sleep(20 * time.Millisecond)
	s.SelectSafe(1)
	w.Activate()
	close(release)
	<-done

	info := w.SafeInfo()
	assert.Equal(t, opsSafe, info.Address)
	assert.True(t, info.Loading)
	assert.Equal(t, "", w.Balances().FiatTotal)
}

func TestCurrencyChanged_Reprices(t *testing.T) {
	s := testStore()
	mockDS := new(MockDataSource)
	w := NewWatcher(s, 0, nil)
	w.SetDataSource(mockDS)

	mockDS.On("FetchSafeInfo", mock.Anything, mock.Anything).Return(models.SafeOnChain{Threshold: 1, Owners: []string{"0xA"}}, nil)
	mockDS.On("FetchHoldings", mock.Anything, mock.Anything).Return(models.Holdings{Native: d("2")}, nil).Once()
	mockDS.On("FetchPrices", mock.Anything, "USD").Return(map[string]decimal.Decimal{"ethereum": d("100")}, nil)
	mockDS.On("FetchPrices", mock.Anything, "EUR").Return(map[string]decimal.Decimal{"ethereum": d("90")}, nil)

	w.fetchAll(context.Background())
	assert.Equal(t, "200", w.Balances().FiatTotal)

	require.NoError(t, s.SetCurrency("EUR"))
	w.fetchPrices(context.Background())
	assert.Equal(t, models.BalancesView{FiatTotal: "180", Currency: "EUR"}, w.Balances())

	mockDS.AssertNumberOfCalls(t, "FetchHoldings", 1)
}

func TestCurrencyChanged_RepriceFailureKeepsOldCurrency(t *testing.T) {
	s := testStore()
	mockDS := new(MockDataSource)
	w := NewWatcher(s, 0, nil)
	w.SetDataSource(mockDS)

	mockDS.On("FetchSafeInfo", mock.Anything, mock.Anything).Return(models.SafeOnChain{Threshold: 1, Owners: []string{"0xA"}}, nil)
	mockDS.On("FetchHoldings", mock.Anything, mock.Anything).Return(models.Holdings{Native: d("1")}, nil)
	mockDS.On("FetchPrices", mock.Anything, "USD").Return(map[string]decimal.Decimal{"ethereum": d("2000")}, nil)
	mockDS.On("FetchPrices", mock.Anything, "JPY").Return(map[string]decimal.Decimal(nil), errors.New("429 too many requests"))

	w.fetchAll(context.Background())
	assert.Equal(t, models.BalancesView{FiatTotal: "2000", Currency: "USD"}, w.Balances())

	require.NoError(t, s.SetCurrency("JPY"))
	sub := w.Subscribe()
	w.fetchPrices(context.Background())
	assert.Equal(t, models.BalancesView{FiatTotal: "2000", Currency: "USD"}, w.Balances())
	events := drain(t, sub, 1)
	assert.Equal(t, EventFetchFailed, events[0].Type)

	// The next poll still cannot price in JPY.
	w.fetchAll(context.Background())
	assert.Equal(t, models.BalancesView{FiatTotal: "2000", Currency: "USD"}, w.Balances())
}

func TestFiatTotal(t *testing.T) {
	chain := config.ChainConfig{
		CoinGeckoID: "ethereum",
		Tokens: []config.TokenConfig{
			{Symbol: "USDC", CoinGeckoID: "usd-coin"},
			{Symbol: "ODD", CoinGeckoID: "unknown"},
		},
	}
	h := models.Holdings{
		Native: d("1.25"),
		Tokens: map[string]decimal.Decimal{"USDC": d("10"), "ODD": d("99")},
	}

	total := FiatTotal(chain, h, map[string]decimal.Decimal{"ethereum": d("2000"), "usd-coin": d("1")})
	assert.True(t, total.Equal(d("2510")), "total = %s", total)

	assert.True(t, FiatTotal(chain, h, nil).IsZero())
}

func TestPollingLoop(t *testing.T) {
	mockDS := new(MockDataSource)
	w := NewWatcher(testStore(), time.Hour, nil)
	w.SetDataSource(mockDS)

	mockDS.On("FetchSafeInfo", mock.Anything, mock.Anything).Return(models.SafeOnChain{}, nil).Maybe()
	mockDS.On("FetchHoldings", mock.Anything, mock.Anything).Return(models.Holdings{}, nil).Maybe()
	mockDS.On("FetchPrices", mock.Anything, mock.Anything).Return(map[string]decimal.Decimal{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := w.Subscribe()
	w.Start(ctx)

	drain(t, sub, 2)
	w.Refresh()
	drain(t, sub, 2)
	w.Stop()
	w.Stop()
}
