package reactssr

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the collectors of one Renderer. They are always live; they
// are only exported when Config.Registerer is set.
type metrics struct {
	contextBuilds  prometheus.Counter
	renderDuration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		contextBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reactssr",
			Name:      "context_builds_total",
			Help:      "Number of render context compilations.",
		}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "reactssr",
			Name:      "render_duration_seconds",
			Help:      "Server render latency by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	if reg == nil {
		return m, nil
	}
	builds, err := register(reg, m.contextBuilds)
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, m.renderDuration)
	if err != nil {
		return nil, err
	}
	m.contextBuilds, m.renderDuration = builds, duration
	return m, nil
}

// register adds c to reg, reusing the collector already registered under
// the same descriptor so several Renderers can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// outcome maps a render error to a low-cardinality label value.
func outcome(err error) string {
	var (
		notFound *ComponentNotFoundError
		badName  *InvalidComponentNameError
		ser      *SerializationError
		rnf      *ResourceNotFoundError
		comp     *CompilationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &notFound), errors.As(err, &badName):
		return "component_not_found"
	case errors.As(err, &ser):
		return "serialization_error"
	case errors.As(err, &rnf), errors.As(err, &comp):
		return "context_error"
	case errors.Is(err, ErrRenderTimeout):
		return "timeout"
	default:
		return "render_error"
	}
}
