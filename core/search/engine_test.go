package search

import (
	"testing"
	"time"

	"github.com/torahstudy/limud/core/torah"
)

func receiveResponse(t *testing.T, e *Engine) Response {
	t.Helper()
	select {
	case res := <-e.Responses():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("no response from engine")
		return Response{}
	}
}

func TestEngineEchoesSeq(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	e.Submit(Request{Seq: 7, Pesukim: testCorpus(), Query: "אור"})
	res := receiveResponse(t, e)
	if res.Seq != 7 {
		t.Errorf("Seq = %d, want 7", res.Seq)
	}
	if len(res.Results) == 0 {
		t.Error("no results for a matching query")
	}
}

func TestEngineProcessesInOrder(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	corpus := testCorpus()
	e.Submit(Request{Seq: 1, Pesukim: corpus, Query: "אור"})
	e.Submit(Request{Seq: 2, Pesukim: corpus, Query: "משה"})

	first := receiveResponse(t, e)
	second := receiveResponse(t, e)
	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("response order = %d, %d", first.Seq, second.Seq)
	}
}

func TestEngineEmptyQuery(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	e.Submit(Request{Seq: 1, Pesukim: testCorpus(), Query: "  "})
	res := receiveResponse(t, e)
	if res.Results == nil || len(res.Results) != 0 {
		t.Errorf("Results = %v, want empty slice", res.Results)
	}
}

func TestEngineSubmitAfterCloseDoesNotBlock(t *testing.T) {
	e := NewEngine()
	e.Close()

	done := make(chan struct{})
	go func() {
		e.Submit(Request{Seq: 1, Query: "אור"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked after Close")
	}
}

func TestEngineSubmitNeverBlocksWhenFull(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	// Flood well past the queue capacity; Submit must drop, not block.
	big := make([]torah.FlatPasuk, 0, 2000)
	for i := 0; i < 2000; i++ {
		big = append(big, flatPasuk(i, torah.Bereishit, 1, 1, i+1, "אור אור אור"))
	}
	done := make(chan struct{})
	go func() {
		for i := uint64(1); i <= 100; i++ {
			e.Submit(Request{Seq: i, Pesukim: big, Query: "אור"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
}
