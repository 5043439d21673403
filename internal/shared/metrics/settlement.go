package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Settlement agrupa as métricas do fluxo de liquidação
type Settlement struct {
	Requests    *prometheus.CounterVec // por resultado (won|lost|void)
	Adjustments *prometheus.CounterVec // dead_heat | rule4
	Errors      *prometheus.CounterVec // por estágio
	Duration    prometheus.Histogram
}

// NewSettlement cria e registra as métricas no registry informado
func NewSettlement(reg prometheus.Registerer) *Settlement {
	m := &Settlement{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_requests_total",
			Help: "liquidações concluídas por resultado",
		}, []string{"result"}),
		Adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_adjustments_total",
			Help: "ajustes de dead-heat/rule4 aplicados",
		}, []string{"kind"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_errors_total",
			Help: "erros por estágio",
		}, []string{"stage"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_duration_seconds",
			Help:    "duração da liquidação (transação + efeitos colaterais)",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Requests, m.Adjustments, m.Errors, m.Duration)
	return m
}

func (m *Settlement) OnSettled(result string) { m.Requests.WithLabelValues(result).Inc() }

func (m *Settlement) OnAdjusted(kind string) { m.Adjustments.WithLabelValues(kind).Inc() }

func (m *Settlement) OnError(stage string) { m.Errors.WithLabelValues(stage).Inc() }

func (m *Settlement) Observe(start time.Time) { m.Duration.Observe(time.Since(start).Seconds()) }
