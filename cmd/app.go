package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/KennyGael/Hazard-Atlas/internal/geoqueue"
	"github.com/KennyGael/Hazard-Atlas/internal/openfda"
	"github.com/KennyGael/Hazard-Atlas/internal/store"
	"github.com/KennyGael/Hazard-Atlas/pkg/geocode"
)

// app bundles the long-lived pieces every command builds from config: the
// aggregator, the persistent geocode cache, and the lookup queue.
type app struct {
	agg   *openfda.Aggregator
	cache store.Store
	queue *geoqueue.Queue
}

func newApp() (*app, error) {
	client := openfda.NewClient(cfg.OpenFDA)
	agg := openfda.NewAggregator(client, cfg.OpenFDA)

	cache, err := store.New(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}

	geocoder := geocode.NewClient(
		geocode.WithBaseURL(cfg.Geocode.BaseURL),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
	)
	queue := geoqueue.New(geocoder, cache,
		time.Duration(cfg.Geocode.MinIntervalMS)*time.Millisecond)

	return &app{agg: agg, cache: cache, queue: queue}, nil
}

func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		zap.L().Warn("closing geocode cache", zap.Error(err))
	}
}
