package search

import (
	"log/slog"

	"github.com/cx-tal-miterani/fare-booking/internal/models"
	"github.com/cx-tal-miterani/fare-booking/internal/offers"
	"github.com/cx-tal-miterani/fare-booking/internal/provider"
)

const DefaultBatchSize = 5

type Dependency struct {
	Gateway   provider.Gateway
	Offers    offers.Store
	Fallback  func(models.SearchQuery) []models.Route
	BatchSize int
	Logger    *slog.Logger
}

// Aggregator turns a raw search request into itinerary cards backed by stored offers
type Aggregator struct {
	gateway   provider.Gateway
	offers    offers.Store
	fallback  func(models.SearchQuery) []models.Route
	batchSize int
	logger    *slog.Logger
}

func New(dep Dependency) *Aggregator {
	a := &Aggregator{
		gateway:   dep.Gateway,
		offers:    dep.Offers,
		fallback:  dep.Fallback,
		batchSize: dep.BatchSize,
		logger:    dep.Logger,
	}
	if a.fallback == nil {
		a.fallback = provider.FallbackRoutes
	}
	if a.batchSize <= 0 {
		a.batchSize = DefaultBatchSize
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}
