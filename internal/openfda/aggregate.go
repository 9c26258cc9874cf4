package openfda

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/KennyGael/Hazard-Atlas/internal/config"
	"github.com/KennyGael/Hazard-Atlas/internal/model"
	"github.com/KennyGael/Hazard-Atlas/internal/resilience"
)

// sourceDelay separates the food and drug fetches so we never have two
// requests in flight against openFDA at once.
const sourceDelay = 250 * time.Millisecond

// UpstreamDownError is returned when both sources failed and the fallback
// path is exhausted. It carries the per-source failures for the 502 body.
type UpstreamDownError struct {
	Errors []model.FetchError
}

func (e *UpstreamDownError) Error() string {
	return fmt.Sprintf("both enforcement sources failed (%d errors recorded)", len(e.Errors))
}

// Aggregator pulls both enforcement feeds sequentially and unifies them.
type Aggregator struct {
	client *Client
	cfg    config.OpenFDAConfig
}

// NewAggregator creates an Aggregator using the given client and limits.
func NewAggregator(client *Client, cfg config.OpenFDAConfig) *Aggregator {
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = 500
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.RetryMaxRecords <= 0 {
		cfg.RetryMaxRecords = cfg.MaxRecords * 2
	}
	if cfg.RetryPageSize <= 0 {
		cfg.RetryPageSize = 50
	}
	return &Aggregator{client: client, cfg: cfg}
}

// sourceFailure keeps the original error alongside its endpoint name so the
// fallback decision can classify it.
type sourceFailure struct {
	endpoint string
	err      error
}

func (f sourceFailure) fetchError() model.FetchError {
	return model.FetchError{Endpoint: f.endpoint, Reason: f.err.Error()}
}

// Fetch pulls food then drug enforcement records, normalizes them, and
// returns partial results with per-source errors. When both sources come back
// empty it runs the connectivity-probe fallback before giving up with an
// UpstreamDownError.
func (a *Aggregator) Fetch(ctx context.Context) (*Result, error) {
	records, failures := a.fetchBoth(ctx, a.cfg.MaxRecords, a.cfg.PageSize)

	if len(records) > 0 {
		return a.result(records, failures, false), nil
	}

	// Both sources empty. A hard network failure means the probe would just
	// fail the same way, so skip straight to the error.
	for _, f := range failures {
		if resilience.IsHardNetwork(f.err) {
			return nil, &UpstreamDownError{Errors: fetchErrors(failures)}
		}
	}

	zap.L().Warn("both sources empty, probing upstream connectivity")
	probe, err := a.client.Probe(ctx)
	if err != nil || !probe.OK {
		if err != nil {
			failures = append(failures, sourceFailure{endpoint: "probe", err: err})
		}
		return nil, &UpstreamDownError{Errors: fetchErrors(failures)}
	}

	// Upstream is reachable: one more pass with a larger budget and smaller
	// pages in case the first run tripped over transient paging errors.
	zap.L().Info("upstream reachable, retrying both sources",
		zap.Int("max_records", a.cfg.RetryMaxRecords),
		zap.Int("page_size", a.cfg.RetryPageSize),
	)
	records, retryFailures := a.fetchBoth(ctx, a.cfg.RetryMaxRecords, a.cfg.RetryPageSize)
	if len(records) > 0 {
		return a.result(records, retryFailures, true), nil
	}

	return nil, &UpstreamDownError{Errors: fetchErrors(append(failures, retryFailures...))}
}

// fetchBoth fetches food then drug, strictly sequentially, collecting a
// failure per endpoint instead of aborting on the first error.
func (a *Aggregator) fetchBoth(ctx context.Context, maxRecords, pageSize int) ([]model.Recall, []sourceFailure) {
	sources := []struct {
		endpoint string
		source   model.Source
	}{
		{foodEndpoint, model.SourceFood},
		{drugEndpoint, model.SourceDrug},
	}

	var records []model.Recall
	var failures []sourceFailure
	for i, src := range sources {
		if i > 0 {
			if err := sleepCtx(ctx, sourceDelay); err != nil {
				failures = append(failures, sourceFailure{endpoint: src.endpoint, err: err})
				break
			}
		}

		raw, err := a.client.FetchAll(ctx, src.endpoint, maxRecords, pageSize)
		if err != nil {
			zap.L().Warn("source fetch failed",
				zap.String("endpoint", src.endpoint),
				zap.Error(err),
			)
			failures = append(failures, sourceFailure{endpoint: src.endpoint, err: err})
			continue
		}

		for _, r := range raw {
			records = append(records, Normalize(r, src.source))
		}
		zap.L().Info("source fetched",
			zap.String("endpoint", src.endpoint),
			zap.Int("records", len(raw)),
		)
	}

	return records, failures
}

func (a *Aggregator) result(records []model.Recall, failures []sourceFailure, retried bool) *Result {
	return &Result{
		Count:   len(records),
		Results: records,
		Errors:  fetchErrors(failures),
		Retried: retried,
	}
}

func fetchErrors(failures []sourceFailure) []model.FetchError {
	if len(failures) == 0 {
		return nil
	}
	out := make([]model.FetchError, len(failures))
	for i, f := range failures {
		out[i] = f.fetchError()
	}
	return out
}

// Probe exposes the client's connectivity check for the diagnose surface.
func (a *Aggregator) Probe(ctx context.Context) (*ProbeResult, error) {
	res, err := a.client.Probe(ctx)
	return res, eris.Wrap(err, "aggregator: probe")
}
