package index

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	facetRecomputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskfacets_recomputations_total",
		Help: "The total number of facet recomputations",
	}, []string{"kind"})
	facetCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskfacets_cache_hits_total",
		Help: "The total number of facet cache hits",
	}, []string{"kind"})
	tableMutations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfacets_table_mutations_total",
		Help: "The total number of table state changes",
	})
	rejectedRows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfacets_rejected_rows_total",
		Help: "The total number of rows dropped for ids out of range",
	})
	tableRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "slaskfacets_rows_total",
		Help: "The number of top level rows in the table",
	})
)
