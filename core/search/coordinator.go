package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/torahstudy/limud/core/loader"
	"github.com/torahstudy/limud/core/torah"
	"github.com/torahstudy/limud/internal/logging"
)

// State is the coordinator's lifecycle state.
type State int

const (
	// StateClosed means search is not open; no corpus work happens.
	StateClosed State = iota
	// StateLoadingCorpus means the five sefarim are being warmed.
	StateLoadingCorpus
	// StateIdle means the corpus is ready and no scan is in flight.
	StateIdle
	// StateSearching means a scan is in flight for the latest query.
	StateSearching
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateLoadingCorpus:
		return "loadingCorpus"
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	default:
		return "unknown"
	}
}

const (
	// DefaultDebounce is the quiet period after the last keystroke
	// before a scan is dispatched.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultTimeout is how long a dispatched scan may run before the
	// coordinator gives up on it (soft failure, not an error state).
	DefaultTimeout = 5 * time.Second
)

// Coordinator owns the engine handle and drives lazy corpus loading,
// query debouncing, and last-query-wins result application.
//
// The corpus is warmed only when search is first opened; closing search
// keeps the warmed corpus so reopening is cheap. Every dispatched query
// gets a monotonically increasing sequence number and only the response
// matching the latest number is applied, so a slow scan for a
// superseded query can never overwrite newer results.
type Coordinator struct {
	loader *loader.Loader
	engine *Engine

	mu       sync.Mutex
	state    State
	query    string
	filters  Filters
	results  []torah.FlatPasuk
	corpus   []torah.FlatPasuk
	warmed   bool
	latest   uint64 // seq of the most recently dispatched query
	debounce *time.Timer
	timeout  *time.Timer

	debounceDelay time.Duration
	timeoutDelay  time.Duration

	onUpdate func()
	ctx      context.Context
	cancel   context.CancelFunc
	routerWG sync.WaitGroup
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithDebounce overrides the query debounce delay.
func WithDebounce(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.debounceDelay = d }
}

// WithTimeout overrides the scan timeout.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.timeoutDelay = d }
}

// WithOnUpdate registers a callback invoked (on the coordinator's
// internal goroutines) whenever results or searching state change.
func WithOnUpdate(fn func()) CoordinatorOption {
	return func(c *Coordinator) { c.onUpdate = fn }
}

// NewCoordinator creates a coordinator over the given loader and starts
// its engine worker. Call Shutdown to release both.
func NewCoordinator(l *loader.Loader, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		loader:        l,
		engine:        NewEngine(),
		state:         StateClosed,
		filters:       Filters{Scope: ScopeAll},
		results:       []torah.FlatPasuk{},
		debounceDelay: DefaultDebounce,
		timeoutDelay:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.routerWG.Add(1)
	go c.routeResponses()
	return c
}

// Shutdown stops timers, the response router, and the engine worker.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	c.stopTimersLocked()
	c.mu.Unlock()
	c.cancel()
	c.engine.Close()
	c.routerWG.Wait()
}

// OpenSearch transitions closed -> loadingCorpus and warms all five
// sefarim through the loader. Once every sefer is resident (or has
// individually failed; a partial corpus is acceptable) the state moves
// to idle and any pending query is dispatched.
func (c *Coordinator) OpenSearch() {
	c.mu.Lock()
	if c.state != StateClosed {
		c.mu.Unlock()
		return
	}
	if c.warmed {
		c.state = StateIdle
		c.mu.Unlock()
		c.notify()
		return
	}
	c.state = StateLoadingCorpus
	c.mu.Unlock()
	c.notify()

	go func() {
		sefarim := c.loader.ResolveAll(c.ctx)
		corpus := torah.FlattenAll(sefarim)

		c.mu.Lock()
		c.corpus = corpus
		c.warmed = true
		pending := c.query
		if c.state == StateLoadingCorpus {
			c.state = StateIdle
		}
		c.mu.Unlock()
		c.notify()

		logging.Info("search corpus warmed",
			"sefarim", len(sefarim), "pesukim", len(corpus))
		if strings.TrimSpace(pending) != "" {
			c.dispatch()
		}
	}()
}

// CloseSearch clears the query and results and returns to closed. The
// warmed corpus is retained so reopening is cheap.
func (c *Coordinator) CloseSearch() {
	c.mu.Lock()
	c.stopTimersLocked()
	c.latest++ // orphan any in-flight response
	c.query = ""
	c.results = []torah.FlatPasuk{}
	c.state = StateClosed
	c.mu.Unlock()
	c.notify()
}

// SetQuery updates the query text. The scan is debounced: it dispatches
// only after a quiet period with no further updates.
func (c *Coordinator) SetQuery(text string) {
	c.mu.Lock()
	c.query = text
	c.armDebounceLocked()
	c.mu.Unlock()
}

// SetFilters updates the active filters and re-dispatches under the
// same debounce rules as a query change.
func (c *Coordinator) SetFilters(f Filters) {
	c.mu.Lock()
	c.filters = f
	c.armDebounceLocked()
	c.mu.Unlock()
}

// Query returns the current query text.
func (c *Coordinator) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Results returns the latest applied result list.
func (c *Coordinator) Results() []torah.FlatPasuk {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]torah.FlatPasuk, len(c.results))
	copy(out, c.results)
	return out
}

// IsSearching reports whether the UI should show a busy indicator:
// either the corpus is still warming or a scan is in flight.
func (c *Coordinator) IsSearching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateLoadingCorpus || c.state == StateSearching
}

// State returns the coordinator state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// armDebounceLocked (re)arms the debounce timer. Caller holds c.mu.
func (c *Coordinator) armDebounceLocked() {
	if c.state == StateClosed {
		return
	}
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.debounceDelay, c.dispatch)
}

// stopTimersLocked cancels pending debounce and timeout timers.
func (c *Coordinator) stopTimersLocked() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
	if c.timeout != nil {
		c.timeout.Stop()
		c.timeout = nil
	}
}

// dispatch sends the current query to the engine under a fresh sequence
// number. An empty query short-circuits to empty results without
// touching the engine.
func (c *Coordinator) dispatch() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}

	c.latest++
	seq := c.latest

	if strings.TrimSpace(c.query) == "" {
		c.results = []torah.FlatPasuk{}
		if c.state == StateSearching {
			c.state = StateIdle
		}
		c.mu.Unlock()
		c.notify()
		return
	}

	if c.state == StateLoadingCorpus {
		// Corpus warm-up completion re-dispatches the pending query.
		c.mu.Unlock()
		return
	}

	c.state = StateSearching
	req := Request{
		Seq:     seq,
		Pesukim: c.corpus,
		Query:   c.query,
		Filters: c.filters,
	}
	if c.timeout != nil {
		c.timeout.Stop()
	}
	c.timeout = time.AfterFunc(c.timeoutDelay, func() { c.expire(seq) })
	c.mu.Unlock()

	logging.SearchEvent("dispatch", seq, "query", req.Query)
	c.engine.Submit(req)
}

// expire resolves a scan that produced no response in time: searching
// goes back to idle with the last-known results. Soft failure only.
func (c *Coordinator) expire(seq uint64) {
	c.mu.Lock()
	if seq != c.latest || c.state != StateSearching {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.mu.Unlock()
	logging.SearchEvent("timeout", seq)
	c.notify()
}

// routeResponses applies engine responses, discarding any whose Seq no
// longer matches the latest dispatched query.
func (c *Coordinator) routeResponses() {
	defer c.routerWG.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case res := <-c.engine.Responses():
			c.mu.Lock()
			if res.Seq != c.latest {
				c.mu.Unlock()
				logging.SearchEvent("stale_discard", res.Seq)
				continue
			}
			c.results = res.Results
			if c.state == StateSearching {
				c.state = StateIdle
			}
			if c.timeout != nil {
				c.timeout.Stop()
				c.timeout = nil
			}
			c.mu.Unlock()
			c.notify()
		}
	}
}

func (c *Coordinator) notify() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}
