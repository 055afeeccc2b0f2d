package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

// Recorder counts committed purchases and pushes them to a Prometheus
// Pushgateway. With no gateway URL configured it only counts.
type Recorder struct {
	purchases prometheus.Counter
	pusher    *push.Pusher
	dirty     chan struct{}
}

func NewRecorder(pushgatewayURL string) *Recorder {
	registry := prometheus.NewRegistry()
	purchases := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seckill_purchases_total",
		Help: "Total number of committed purchases.",
	})
	registry.MustRegister(purchases)

	r := &Recorder{purchases: purchases}
	if pushgatewayURL != "" {
		r.pusher = push.New(pushgatewayURL, "seckill_api").Gatherer(registry)
		r.dirty = make(chan struct{}, 1)
		go r.pushLoop()
	}

	return r
}

// pushLoop serializes gateway pushes: a burst of commits collapses into one
// push carrying the latest counter value, so the gateway never observes the
// counter move backwards.
func (r *Recorder) pushLoop() {
	for range r.dirty {
		if err := r.pusher.Add(); err != nil {
			log.Warn().Err(err).Msg("failed to push metrics to gateway")
		}
	}
}

// PurchaseRecorded increments the counter and nudges the push worker without
// blocking. Push failures are logged and swallowed; telemetry never fails a
// purchase.
func (r *Recorder) PurchaseRecorded() {
	r.purchases.Inc()

	if r.pusher == nil {
		return
	}

	select {
	case r.dirty <- struct{}{}:
	default:
	}
}
