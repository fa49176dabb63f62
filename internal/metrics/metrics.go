package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
)

const namespace = "tft_tracker"

// Metrics holds the collectors recorded by the submission and standings services.
type Metrics struct {
	Registry *prometheus.Registry

	GamesSubmitted       *prometheus.CounterVec
	Recalculations       *prometheus.CounterVec
	RecalculationSeconds prometheus.Histogram
	StandingsPlayers     *prometheus.GaugeVec
}

const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
)

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		GamesSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_submitted_total",
			Help:      "Game submissions, corrections and deletions by outcome.",
		}, []string{"operation", "outcome"}),
		Recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculations_total",
			Help:      "Standings recalculations by outcome.",
		}, []string{"outcome"}),
		RecalculationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Time spent rebuilding one tournament's standings.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		StandingsPlayers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "standings_players",
			Help:      "Players in the latest stored snapshot.",
		}, []string{"tournament_id"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.GamesSubmitted,
		m.Recalculations,
		m.RecalculationSeconds,
		m.StandingsPlayers,
	)
	return m
}

var Module = fx.Provide(New)
