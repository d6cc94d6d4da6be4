package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del ciclo de vida de claves y de las firmas. Variables de paquete para
// que cualquier KeySigner las use sin cablear un registry; Register las expone.

var (
	KeyLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spore_key_loads_total",
		Help: "Load-or-generate exitosos por resultado (loaded|generated)",
	}, []string{"outcome"})

	KeyReadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spore_key_read_failures_total",
		Help: "Lecturas de clave fallidas que terminaron en regeneración",
	})

	KeyLoadErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spore_key_load_errors_total",
		Help: "Load-or-generate fallidos por etapa (generate|persist)",
	}, []string{"stage"})

	Signatures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spore_signatures_total",
		Help: "Registros firmados por modo (record|fields)",
	}, []string{"mode"})

	SignErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spore_sign_errors_total",
		Help: "Operaciones de firma fallidas por modo",
	}, []string{"mode"})

	SignDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spore_sign_duration_seconds",
		Help:    "Latencia de SignRecord/SignFields por registro",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
	}, []string{"mode"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{KeyLoads, KeyReadFailures, KeyLoadErrors, Signatures, SignErrors, SignDuration}
}

// Register registra las métricas en reg (o el default si es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
