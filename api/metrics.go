// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"strconv"

	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	calls  *prometheus.CounterVec
	errors *prometheus.CounterVec
}

func newMetrics(namespace string, registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "calls",
			Help:      "Number of API calls by method",
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "errors",
			Help:      "Number of failed API calls by method and error code",
		}, []string{"method", "code"}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(m.calls),
		registerer.Register(m.errors),
	)
	return m, errs.Err
}

func (m *metrics) observe(method string, code *int) {
	m.calls.WithLabelValues(method).Inc()
	if code != nil {
		m.errors.WithLabelValues(method, strconv.Itoa(*code)).Inc()
	}
}
