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

package runtimestats

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/runtimectl/m2ee-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	stats map[string]any
	err   error
}

func (s staticSource) Statistics(ctx context.Context) (map[string]any, error) {
	return s.stats, s.err
}

// blockingSource never answers before its context ends.
type blockingSource struct{}

func (blockingSource) Statistics(ctx context.Context) (map[string]any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func sampleStats() map[string]any {
	return map[string]any{
		"requests":      map[string]any{"/xas/": 120.0, "/api/": 7.0},
		"connectionbus": map[string]any{"select": 50.0, "insert": 5.0, "update": 3.0, "delete": 1.0},
		"sessions":      map[string]any{"named_user_sessions": 4.0, "anonymous_sessions": 2.0, "named_users": 10.0},
		"memory": map[string]any{
			"tenured": 100.0, "survivor": 10.0, "eden": 40.0,
			"max_heap": 512.0, "used_heap": 150.0,
		},
		"threadpool": map[string]any{"min_threads": 8.0, "max_threads": 254.0, "threads": 12.0, "idle_threads": 9.0},
		"cache":      map[string]any{"total_count": 42.0},
		"threads":    33.0,
	}
}

func TestCollector_ExportsStatistics(t *testing.T) {
	c := NewCollector(staticSource{stats: sampleStats()}, time.Second, logger.NewNop())

	expected := `
# HELP m2ee_runtime_jvm_heap_bytes JVM heap usage by area
# TYPE m2ee_runtime_jvm_heap_bytes gauge
m2ee_runtime_jvm_heap_bytes{area="eden"} 40
m2ee_runtime_jvm_heap_bytes{area="free"} 362
m2ee_runtime_jvm_heap_bytes{area="limit"} 512
m2ee_runtime_jvm_heap_bytes{area="survivor"} 10
m2ee_runtime_jvm_heap_bytes{area="tenured"} 100
# HELP m2ee_runtime_requests_total Requests handled by the runtime, by request handler
# TYPE m2ee_runtime_requests_total counter
m2ee_runtime_requests_total{handler="api"} 7
m2ee_runtime_requests_total{handler="xas"} 120
# HELP m2ee_runtime_threadpool_threads Request thread pool size and usage
# TYPE m2ee_runtime_threadpool_threads gauge
m2ee_runtime_threadpool_threads{kind="active"} 3
m2ee_runtime_threadpool_threads{kind="max"} 254
m2ee_runtime_threadpool_threads{kind="min"} 8
m2ee_runtime_threadpool_threads{kind="size"} 12
# HELP m2ee_runtime_up Whether the runtime answered the statistics request
# TYPE m2ee_runtime_up gauge
m2ee_runtime_up 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"m2ee_runtime_jvm_heap_bytes",
		"m2ee_runtime_requests_total",
		"m2ee_runtime_threadpool_threads",
		"m2ee_runtime_up",
	))

	// up + 2 requests + 4 connectionbus + 3 sessions + 5 heap + 4 threadpool + cache + threads
	assert.Equal(t, 21, testutil.CollectAndCount(c))
}

func TestCollector_PartialStatistics(t *testing.T) {
	c := NewCollector(staticSource{stats: map[string]any{
		"requests": map[string]any{"/xas/": 1.0, "/bad/": "n/a"},
		"memory":   map[string]any{"max_heap": 512.0},
	}}, time.Second, logger.NewNop())

	assert.Equal(t, 1, testutil.CollectAndCount(c, "m2ee_runtime_requests_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "m2ee_runtime_jvm_heap_bytes"))
	assert.Zero(t, testutil.CollectAndCount(c, "m2ee_runtime_threadpool_threads"))
}

func TestCollector_RuntimeDown(t *testing.T) {
	tests := []struct {
		name   string
		source Source
	}{
		{"error reply", staticSource{err: errors.New("connection refused")}},
		{"no answer", blockingSource{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.source, 50*time.Millisecond, logger.NewNop())

			start := time.Now()
			assert.Equal(t, 1, testutil.CollectAndCount(c))
			assert.Less(t, time.Since(start), 2*time.Second)
			assert.Equal(t, 0.0, testutil.ToFloat64(prometheus.Collector(upOnly{c})))
		})
	}
}

// upOnly exposes just the up gauge so it can be read with ToFloat64.
type upOnly struct{ *Collector }

func (u upOnly) Describe(ch chan<- *prometheus.Desc) { ch <- u.up }

func TestCollector_Registers(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(NewCollector(staticSource{stats: sampleStats()}, time.Second, logger.NewNop())))

	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 8)
}
