package api

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gmllt/taskboard/internal/board"
)

// Metrics holds the board collectors. They are registered on the
// registry passed to NewMetrics so tests can use a private one.
type Metrics struct {
	operations *prometheus.CounterVec
	cards      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kban",
			Name:      "card_operations_total",
			Help:      "Card store operations by operation and result.",
		}, []string{"op", "result"}),
		cards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kban",
			Name:      "cards",
			Help:      "Number of cards on the board.",
		}),
	}
	reg.MustRegister(m.operations, m.cards)
	return m
}

// observe records the outcome of a store operation. The result label
// is "ok", the error kind, or "error".
func (m *Metrics) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if kind, ok := board.KindOf(err); ok {
			result = kind.String()
		}
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) setCards(n int) {
	m.cards.Set(float64(n))
}
