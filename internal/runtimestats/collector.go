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

// Package runtimestats exports the runtime's own statistics as Prometheus
// metrics. Values are fetched over the admin protocol on every scrape.
// runtimestats 包将运行时自身的统计数据导出为 Prometheus 指标，每次抓取时通过管理协议获取。
package runtimestats

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const namespace = "m2ee_runtime"

// Source returns the merged runtime and server statistics.
type Source interface {
	Statistics(ctx context.Context) (map[string]any, error)
}

// Collector is a prometheus.Collector over the runtime statistics.
// A runtime that does not answer yields only m2ee_runtime_up 0.
// Collector 是基于运行时统计数据的 prometheus.Collector，运行时无响应时只输出 m2ee_runtime_up 0。
type Collector struct {
	source  Source
	timeout time.Duration
	log     *otelzap.Logger

	up            *prometheus.Desc
	requests      *prometheus.Desc
	connectionBus *prometheus.Desc
	sessions      *prometheus.Desc
	jvmHeap       *prometheus.Desc
	threadPool    *prometheus.Desc
	cacheObjects  *prometheus.Desc
	jvmThreads    *prometheus.Desc
}

// NewCollector creates a Collector; each scrape waits at most timeout.
// NewCollector 创建 Collector，每次抓取最多等待 timeout。
func NewCollector(source Source, timeout time.Duration, log *otelzap.Logger) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		source:        source,
		timeout:       timeout,
		log:           log,
		up:            desc("up", "Whether the runtime answered the statistics request"),
		requests:      desc("requests_total", "Requests handled by the runtime, by request handler", "handler"),
		connectionBus: desc("connectionbus_operations_total", "Database operations issued by the runtime", "operation"),
		sessions:      desc("sessions", "Current sessions and named users", "type"),
		jvmHeap:       desc("jvm_heap_bytes", "JVM heap usage by area", "area"),
		threadPool:    desc("threadpool_threads", "Request thread pool size and usage", "kind"),
		cacheObjects:  desc("cache_objects", "Objects held in the runtime object cache"),
		jvmThreads:    desc("jvm_threads", "Threads in the runtime JVM"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.up, c.requests, c.connectionBus, c.sessions,
		c.jvmHeap, c.threadPool, c.cacheObjects, c.jvmThreads,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.source.Statistics(ctx)
	if err != nil {
		c.log.Debug("runtime statistics unavailable", zap.Error(err))
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	if requests, ok := section(stats, "requests"); ok {
		for handler, v := range requests {
			if n, ok := toFloat(v); ok {
				ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, n, strings.Trim(handler, "/"))
			}
		}
	}

	if bus, ok := section(stats, "connectionbus"); ok {
		for _, op := range []string{"select", "insert", "update", "delete"} {
			if n, ok := number(bus, op); ok {
				ch <- prometheus.MustNewConstMetric(c.connectionBus, prometheus.CounterValue, n, op)
			}
		}
	}

	if sessions, ok := section(stats, "sessions"); ok {
		for _, kind := range []string{"named_user_sessions", "anonymous_sessions", "named_users"} {
			if n, ok := number(sessions, kind); ok {
				ch <- prometheus.MustNewConstMetric(c.sessions, prometheus.GaugeValue, n, kind)
			}
		}
	}

	if memory, ok := section(stats, "memory"); ok {
		for _, area := range []string{"tenured", "survivor", "eden"} {
			if n, ok := number(memory, area); ok {
				ch <- prometheus.MustNewConstMetric(c.jvmHeap, prometheus.GaugeValue, n, area)
			}
		}
		if maxHeap, ok := number(memory, "max_heap"); ok {
			ch <- prometheus.MustNewConstMetric(c.jvmHeap, prometheus.GaugeValue, maxHeap, "limit")
			if used, ok := number(memory, "used_heap"); ok {
				ch <- prometheus.MustNewConstMetric(c.jvmHeap, prometheus.GaugeValue, maxHeap-used, "free")
			}
		}
	}

	if pool, ok := section(stats, "threadpool"); ok {
		c.collectThreadPool(ch, pool)
	}

	if cache, ok := section(stats, "cache"); ok {
		if n, ok := number(cache, "total_count"); ok {
			ch <- prometheus.MustNewConstMetric(c.cacheObjects, prometheus.GaugeValue, n)
		}
	}

	if n, ok := number(stats, "threads"); ok {
		ch <- prometheus.MustNewConstMetric(c.jvmThreads, prometheus.GaugeValue, n)
	}
}

func (c *Collector) collectThreadPool(ch chan<- prometheus.Metric, pool map[string]any) {
	for key, kind := range map[string]string{"min_threads": "min", "max_threads": "max", "threads": "size"} {
		if n, ok := number(pool, key); ok {
			ch <- prometheus.MustNewConstMetric(c.threadPool, prometheus.GaugeValue, n, kind)
		}
	}
	threads, ok1 := number(pool, "threads")
	idle, ok2 := number(pool, "idle_threads")
	if ok1 && ok2 {
		ch <- prometheus.MustNewConstMetric(c.threadPool, prometheus.GaugeValue, threads-idle, "active")
	}
}

func section(stats map[string]any, key string) (map[string]any, bool) {
	m, ok := stats[key].(map[string]any)
	return m, ok
}

func number(m map[string]any, key string) (float64, bool) {
	return toFloat(m[key])
}

// toFloat accepts the numeric types a JSON decoder produces.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
