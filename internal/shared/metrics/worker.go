package metrics

import "github.com/prometheus/client_golang/prometheus"

// Worker agrupa as métricas do consumidor de settlement_requests
type Worker struct {
	Consumed    prometheus.Counter
	DeadLetters *prometheus.CounterVec // decode | invalid | not_found | exhausted
}

func NewWorker(reg prometheus.Registerer) *Worker {
	m := &Worker{
		Consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_worker_consumed_total",
			Help: "mensagens lidas de settlement_requests",
		}),
		DeadLetters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_worker_dlq_total",
			Help: "mensagens enviadas para a DLQ por motivo",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.Consumed, m.DeadLetters)
	return m
}

func (m *Worker) OnConsumed() { m.Consumed.Inc() }

func (m *Worker) OnDLQ(reason string) { m.DeadLetters.WithLabelValues(reason).Inc() }
