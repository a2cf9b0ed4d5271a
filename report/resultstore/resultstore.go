// Package resultstore persists finished check runs as JSON documents so they
// can be diffed across migration cutover attempts.
package resultstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/qvet/qvet/check"
	"github.com/rs/zerolog"
)

// Store persists one run document and returns its location.
type Store interface {
	WriteRun(ctx context.Context, runID string, doc RunDocument) (string, error)
}

// RunDocument is the serialized artifact of one full suite run.
type RunDocument struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Results    []check.Result `json:"results"`
}

func marshalRun(doc RunDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Reporter buffers results as they complete and flushes them to the store
// when the run closes.
type Reporter struct {
	ctx    context.Context
	logger zerolog.Logger
	store  Store
	runID  string

	mu struct {
		sync.Mutex
		doc RunDocument
	}
}

func NewReporter(ctx context.Context, logger zerolog.Logger, store Store, runID string) *Reporter {
	r := &Reporter{
		ctx:    ctx,
		logger: logger,
		store:  store,
		runID:  runID,
	}
	r.mu.doc = RunDocument{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Results:   []check.Result{},
	}
	return r
}

var _ check.Reporter = (*Reporter)(nil)

func (r *Reporter) Report(result check.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.doc.Results = append(r.mu.doc.Results, result)
}

func (r *Reporter) Close() {
	r.mu.Lock()
	doc := r.mu.doc
	doc.FinishedAt = time.Now().UTC()
	r.mu.Unlock()

	loc, err := r.store.WriteRun(r.ctx, r.runID, doc)
	if err != nil {
		r.logger.Err(err).Str("run_id", r.runID).Msg("error persisting run results")
		return
	}
	r.logger.Info().Str("run_id", r.runID).Str("location", loc).Msg("run results persisted")
}
