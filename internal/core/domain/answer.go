package domain

import (
	"errors"
	"fmt"
	"sort"
)

// Answer is the outcome of a query, suggest or diff request.
type Answer struct {
	// Text is the answer; empty unless State is StateAnswered.
	Text string

	// State is the terminal request state.
	State RequestState

	// Trace lists every state the request passed through.
	Trace []RequestState

	// Retrieved is the number of items that reached context assembly.
	Retrieved int
}

// Answered reports whether the request produced an answer.
func (a *Answer) Answered() bool {
	return a != nil && a.State == StateAnswered
}

// IngestReport summarises a batch or file ingestion.
type IngestReport struct {
	// Ingested lists documents written to the store.
	Ingested []string

	// Unchanged lists documents skipped because their content was already stored.
	Unchanged []string

	// Failed maps document ids to their ingestion error.
	Failed map[string]error
}

// NewIngestReport returns an empty report.
func NewIngestReport() *IngestReport {
	return &IngestReport{Failed: make(map[string]error)}
}

// OK reports whether every document succeeded.
func (r *IngestReport) OK() bool {
	return len(r.Failed) == 0
}

// Err joins the per-document failures in document id order.
func (r *IngestReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]string, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	errs := make([]error, len(ids))
	for i, id := range ids {
		errs[i] = fmt.Errorf("document %s: %w", id, r.Failed[id])
	}
	return errors.Join(errs...)
}
