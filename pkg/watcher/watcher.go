package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"safehdr/pkg/config"
	"safehdr/pkg/metrics"
	"safehdr/pkg/models"
	"safehdr/pkg/rpc"
)

// DataSource defines the interface for fetching data.
type DataSource interface {
	FetchSafeInfo(ctx context.Context, rpcURLs []string, address string) (models.SafeOnChain, error)
	FetchHoldings(ctx context.Context, chain config.ChainConfig, address string) (models.Holdings, error)
	FetchPrices(ctx context.Context, coinIDs []string, currency string) (map[string]decimal.Decimal, error)
}

// RealDataSource implements DataSource using the rpc package.
type RealDataSource struct{}

func (d *RealDataSource) FetchSafeInfo(ctx context.Context, rpcURLs []string, address string) (models.SafeOnChain, error) {
	return rpc.FetchSafeInfo(ctx, rpcURLs, address)
}

func (d *RealDataSource) FetchHoldings(ctx context.Context, chain config.ChainConfig, address string) (models.Holdings, error) {
	return rpc.FetchHoldings(ctx, chain, address)
}

func (d *RealDataSource) FetchPrices(ctx context.Context, coinIDs []string, currency string) (map[string]decimal.Decimal, error) {
	return rpc.FetchPrices(ctx, coinIDs, currency)
}

// Session is the part of the session store the watcher reads.
type Session interface {
	ActiveSafe() (config.SafeConfig, bool)
	ChainConfig(name string) (config.ChainConfig, bool)
	Currency() string
}

// Watcher keeps the active Safe's info and fiat total fresh. It serves as
// both the Safe info provider and the balance aggregator of the header.
type Watcher struct {
	session  Session
	interval time.Duration
	logger   *zap.Logger

	mu             sync.RWMutex
	generation     uint64
	safeInfo       models.SafeInfo
	chain          config.ChainConfig
	holdings       *models.Holdings
	prices         map[string]decimal.Decimal
	pricesCurrency string
	fiatTotal      string
	totalCurrency  string

	subscribers []Subscriber
	refresh     chan struct{}
	reprice     chan struct{}
	stopChan    chan struct{}
	stopOnce    sync.Once
	dataSource  DataSource
}

// NewWatcher creates a new Watcher instance.
func NewWatcher(session Session, interval time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Watcher{
		session:    session,
		interval:   interval,
		logger:     logger,
		safeInfo:   initialSafeInfo(session),
		prices:     make(map[string]decimal.Decimal),
		refresh:    make(chan struct{}, 1),
		reprice:    make(chan struct{}, 1),
		stopChan:   make(chan struct{}),
		dataSource: &RealDataSource{},
	}
}

func initialSafeInfo(session Session) models.SafeInfo {
	safe, ok := session.ActiveSafe()
	if !ok {
		return models.SafeInfo{}
	}
	return models.SafeInfo{Address: safe.Address, Loading: true}
}

// SetDataSource allows overriding the data source (useful for testing).
func (w *Watcher) SetDataSource(ds DataSource) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dataSource = ds
}

func (w *Watcher) source() DataSource {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dataSource
}

// SafeInfo returns the current Safe snapshot.
func (w *Watcher) SafeInfo() models.SafeInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.safeInfo
}

// Balances returns the current fiat total of the active Safe and the
// currency it was valued in.
func (w *Watcher) Balances() models.BalancesView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balancesLocked()
}

func (w *Watcher) balancesLocked() models.BalancesView {
	return models.BalancesView{FiatTotal: w.fiatTotal, Currency: w.totalCurrency}
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (w *Watcher) Subscribe() Subscriber {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(Subscriber, 100)
	w.subscribers = append(w.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber.
func (w *Watcher) Unsubscribe(ch Subscriber) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, sub := range w.subscribers {
		if sub == ch {
			w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

func (w *Watcher) notify(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.subscribers {
		select {
		case sub <- event:
		default:
			w.logger.Debug("dropping event for slow subscriber", zap.String("type", string(event.Type)))
		}
	}
}

// Activate resets the state after the active Safe changed. The Safe is
// reported as loading until the next fetch completes.
func (w *Watcher) Activate() {
	w.mu.Lock()
	w.generation++
	w.safeInfo = initialSafeInfo(w.session)
	w.holdings = nil
	w.fiatTotal = ""
	w.totalCurrency = ""
	info := w.safeInfo
	w.mu.Unlock()

	w.notify(Event{Type: EventActiveChanged, Data: info})
	w.Refresh()
}

// Refresh asks the polling loop for an immediate full fetch.
func (w *Watcher) Refresh() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

// CurrencyChanged re-prices the current holdings without refetching them.
// The previous total is kept, still in its own currency, until prices in the
// new currency arrive.
func (w *Watcher) CurrencyChanged() {
	select {
	case w.reprice <- struct{}{}:
	default:
	}
}

// Start begins the monitoring loop.
func (w *Watcher) Start(ctx context.Context) {
	go w.pollingLoop(ctx)
}

// Stop stops the monitoring loop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *Watcher) pollingLoop(ctx context.Context) {
	// Initial fetch
	w.fetchAll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.fetchAll(ctx)
		case <-w.refresh:
			w.fetchAll(ctx)
		case <-w.reprice:
			w.fetchPrices(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func coinIDs(chain config.ChainConfig) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(chain.CoinGeckoID)
	for _, t := range chain.Tokens {
		add(t.CoinGeckoID)
	}
	return ids
}

func observe(kind string, start time.Time, err error) {
	metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchErrors.WithLabelValues(kind).Inc()
	}
}

func (w *Watcher) fetchAll(ctx context.Context) {
	w.mu.RLock()
	gen := w.generation
	w.mu.RUnlock()

	safe, ok := w.session.ActiveSafe()
	if !ok {
		w.mu.Lock()
		w.safeInfo = models.SafeInfo{}
		w.mu.Unlock()
		w.notify(Event{Type: EventSafeInfoUpdated, Data: models.SafeInfo{}})
		return
	}
	chain, ok := w.session.ChainConfig(safe.Chain)
	if !ok {
		w.logger.Warn("safe references unknown chain", zap.String("safe", safe.Address), zap.String("chain", safe.Chain))
		w.mu.Lock()
		if gen == w.generation {
			w.safeInfo.Loading = false
		}
		info := w.safeInfo
		w.mu.Unlock()
		w.notify(Event{Type: EventSafeInfoUpdated, Data: info})
		return
	}
	currency := w.session.Currency()
	ds := w.source()

	var (
		wg               sync.WaitGroup
		info             models.SafeOnChain
		holdings         models.Holdings
		prices           map[string]decimal.Decimal
		infoErr, holdErr error
		priceErr         error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		start := time.Now()
		info, infoErr = ds.FetchSafeInfo(ctx, chain.RPCURLs, safe.Address)
		observe("safe_info", start, infoErr)
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		holdings, holdErr = ds.FetchHoldings(ctx, chain, safe.Address)
		observe("holdings", start, holdErr)
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		prices, priceErr = ds.FetchPrices(ctx, coinIDs(chain), currency)
		observe("prices", start, priceErr)
	}()
	wg.Wait()

	w.mu.Lock()
	if gen != w.generation {
		// The active Safe changed while we were fetching.
		w.mu.Unlock()
		return
	}
	w.chain = chain
	if infoErr == nil {
		w.safeInfo = models.SafeInfo{
			Address:   safe.Address,
			Threshold: models.Some(info.Threshold),
			Owners:    models.Some(info.Owners),
		}
	} else {
		w.safeInfo.Address = safe.Address
		w.safeInfo.Loading = false
	}
	if holdErr == nil {
		h := holdings
		w.holdings = &h
	}
	if priceErr == nil {
		w.prices = prices
		w.pricesCurrency = currency
	}
	w.recomputeLocked()
	safeInfo := w.safeInfo
	balances := w.balancesLocked()
	w.mu.Unlock()

	for kind, err := range map[string]error{"safe_info": infoErr, "holdings": holdErr, "prices": priceErr} {
		if err != nil {
			w.logger.Warn("fetch failed", zap.String("kind", kind), zap.String("safe", safe.Address), zap.Error(err))
			w.notify(Event{Type: EventFetchFailed, Data: FetchFailure{Kind: kind, Error: err.Error()}})
		}
	}
	w.notify(Event{Type: EventSafeInfoUpdated, Data: safeInfo})
	w.notify(Event{Type: EventBalancesUpdated, Data: balances})
}

func (w *Watcher) fetchPrices(ctx context.Context) {
	w.mu.RLock()
	gen := w.generation
	chain := w.chain
	w.mu.RUnlock()

	currency := w.session.Currency()
	start := time.Now()
	prices, err := w.source().FetchPrices(ctx, coinIDs(chain), currency)
	observe("prices", start, err)
	if err != nil {
		w.logger.Warn("re-pricing failed", zap.String("currency", currency), zap.Error(err))
		w.notify(Event{Type: EventFetchFailed, Data: FetchFailure{Kind: "prices", Error: err.Error()}})
		return
	}

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		return
	}
	w.prices = prices
	w.pricesCurrency = currency
	w.recomputeLocked()
	balances := w.balancesLocked()
	w.mu.Unlock()

	w.notify(Event{Type: EventBalancesUpdated, Data: balances})
}

// recomputeLocked values the holdings at the last prices. The total keeps
// the currency those prices were quoted in, which differs from the selected
// currency while a re-price is outstanding or failing.
func (w *Watcher) recomputeLocked() {
	if w.holdings == nil {
		return
	}
	w.fiatTotal = FiatTotal(w.chain, *w.holdings, w.prices).String()
	w.totalCurrency = w.pricesCurrency
}

// FiatTotal values holdings on chain at the given prices. Assets without a
// price do not count.
func FiatTotal(chain config.ChainConfig, h models.Holdings, prices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	if p, ok := prices[chain.CoinGeckoID]; ok {
		total = total.Add(h.Native.Mul(p))
	}
	for _, t := range chain.Tokens {
		bal, ok := h.Tokens[t.Symbol]
		if !ok {
			continue
		}
		if p, ok := prices[t.CoinGeckoID]; ok {
			total = total.Add(bal.Mul(p))
		}
	}
	return total
}
