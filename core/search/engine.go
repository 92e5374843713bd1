package search

import (
	"github.com/torahstudy/limud/core/torah"
	"github.com/torahstudy/limud/internal/logging"
)

// Request is a search job posted to the engine. Seq is assigned by the
// dispatcher and echoed back on the response so stale results can be
// discarded on arrival.
type Request struct {
	Seq     uint64
	Pesukim []torah.FlatPasuk
	Query   string
	Filters Filters
}

// Response carries the ranked results for one request.
type Response struct {
	Seq     uint64
	Results []torah.FlatPasuk
}

// Engine runs search scans on a dedicated goroutine. Requests and
// responses cross the boundary by value; the worker never touches cache
// state, only the pesukim handed to it per request.
type Engine struct {
	requests  chan Request
	responses chan Response
	quit      chan struct{}
	done      chan struct{}
}

// NewEngine starts the worker goroutine. Call Close when the consuming
// view goes away.
func NewEngine() *Engine {
	e := &Engine{
		requests:  make(chan Request, 8),
		responses: make(chan Response, 8),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go e.run()
	return e
}

// Submit posts a request to the worker. It never blocks the caller: if
// the queue is full the request is dropped, which is safe because a
// newer request with a higher Seq is what filled it.
func (e *Engine) Submit(req Request) {
	select {
	case e.requests <- req:
	case <-e.quit:
	default:
		logging.SearchEvent("queue_full_drop", req.Seq)
	}
}

// Responses returns the channel ranked results arrive on. Responses may
// arrive out of submission order relative to newer requests only in the
// sense that stale ones are still delivered; consumers compare Seq.
func (e *Engine) Responses() <-chan Response {
	return e.responses
}

// Close stops the worker and waits for it to exit.
func (e *Engine) Close() {
	close(e.quit)
	<-e.done
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.quit:
			return
		case req := <-e.requests:
			results := Search(req.Pesukim, req.Query, req.Filters)
			logging.SearchEvent("scan_complete", req.Seq,
				"query", req.Query, "results", len(results))
			select {
			case e.responses <- Response{Seq: req.Seq, Results: results}:
			case <-e.quit:
				return
			}
		}
	}
}
