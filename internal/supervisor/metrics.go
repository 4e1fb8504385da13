/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package supervisor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the supervisor's operational counters.
// A nil *Metrics records nothing.
// Metrics 是监督器的运行指标，nil 时不记录。
type Metrics struct {
	liveness        *prometheus.GaugeVec
	operations      *prometheus.CounterVec
	startupDuration prometheus.Histogram
	schemaRepairs   prometheus.Counter
}

// NewMetrics creates the supervisor metrics and registers them with registry.
// NewMetrics 创建监督器指标并注册到 registry。
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		liveness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "m2ee_api_liveness",
				Help: "Last probed liveness of the runtime (1 alive, 0 not), by signal",
			},
			[]string{"signal"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "m2ee_api_lifecycle_operations_total",
				Help: "Lifecycle operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		startupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "m2ee_api_startup_duration_seconds",
				Help:    "Duration of runtime startup attempts",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		schemaRepairs: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "m2ee_api_schema_repairs_total",
				Help: "Schema repair plans applied during startup",
			},
		),
	}
	registry.MustRegister(m.liveness, m.operations, m.startupDuration, m.schemaRepairs)
	return m
}

func (m *Metrics) observeLiveness(st LivenessState) {
	if m == nil {
		return
	}
	m.liveness.WithLabelValues("process").Set(boolGauge(st.ProcessAlive))
	m.liveness.WithLabelValues("protocol").Set(boolGauge(st.ProtocolAlive))
}

func (m *Metrics) observeOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) observeStartup(o StartupOutcome, took time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues("start", o.Kind.String()).Inc()
	m.startupDuration.Observe(took.Seconds())
}

func (m *Metrics) schemaRepaired() {
	if m == nil {
		return
	}
	m.schemaRepairs.Inc()
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
