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

// Package supervisor sequences the runtime's startup and shutdown and probes
// its liveness.
// supervisor 包负责运行时的启动/停止编排以及存活探测。
//
// Failures are returned as outcome values; no error escapes a sequencer.
package supervisor

import (
	"context"
	"syscall"
	"time"

	"github.com/runtimectl/m2ee-api/internal/m2ee"
	"github.com/runtimectl/m2ee-api/internal/process"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

// ProtocolClient is the subset of the admin protocol the supervisor uses.
// ProtocolClient 是监督器使用的管理协议子集。
type ProtocolClient interface {
	Echo(ctx context.Context) error
	About(ctx context.Context) (*m2ee.About, error)
	RuntimeStatus(ctx context.Context) (string, error)
	UpdateAppContainerConfiguration(ctx context.Context, params map[string]any) error
	UpdateConfiguration(ctx context.Context, doc map[string]any) error
	Start(ctx context.Context) (*m2ee.Response, error)
	GetDDLCommands(ctx context.Context) ([]string, error)
	ExecuteDDLCommands(ctx context.Context) error
	Shutdown(ctx context.Context, timeout time.Duration) error
}

// ProcessRunner launches and tracks the runtime OS process.
// ProcessRunner 启动并跟踪运行时操作系统进程。
type ProcessRunner interface {
	Launch(ctx context.Context) (*process.Handle, error)
	Handle() *process.Handle
	Alive(h *process.Handle) bool
	Signal(h *process.Handle, sig syscall.Signal) error
	WaitExit(ctx context.Context, h *process.Handle, timeout time.Duration) bool
	Forget()
}

// RepairPlanStore persists schema repair plans for later inspection.
// RepairPlanStore 持久化数据库结构修复计划以供审计。
type RepairPlanStore interface {
	SaveRepairPlan(ctx context.Context, plan *RepairPlan) error
}

// DocumentSource provides the runtime configuration document.
// DocumentSource 提供运行时配置文档。
type DocumentSource interface {
	RuntimeDocument() (map[string]any, error)
}

// Options holds the supervisor's timeouts and runtime listener settings.
// Every admin protocol call made by a sequencer is bounded by one of them:
// ProbeTimeout for echo, configure and fetching DDL, ActivateTimeout for
// start and executing DDL, StopTimeout plus ProbeTimeout for shutdown.
// Options 保存监督器的超时时间和运行时监听参数，每个管理协议调用都受其中一个超时约束。
type Options struct {
	StartTimeout     time.Duration
	StopTimeout      time.Duration
	ProbeTimeout     time.Duration
	ActivateTimeout  time.Duration
	AutoRepairSchema bool
	RuntimePort      int
	ListenAddresses  string
}

// Fallbacks for zero timeouts / 超时为零时的默认值
const (
	defaultStartTimeout    = 60 * time.Second
	defaultStopTimeout     = 30 * time.Second
	defaultProbeTimeout    = 5 * time.Second
	defaultActivateTimeout = 10 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.StartTimeout <= 0 {
		o.StartTimeout = defaultStartTimeout
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = defaultStopTimeout
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = defaultProbeTimeout
	}
	if o.ActivateTimeout <= 0 {
		o.ActivateTimeout = defaultActivateTimeout
	}
	return o
}

// Supervisor owns the lifecycle of one managed runtime process.
// Supervisor 管理一个受管运行时进程的生命周期。
type Supervisor struct {
	runner  ProcessRunner
	client  ProtocolClient
	plans   RepairPlanStore
	docs    DocumentSource
	opts    Options
	log     *otelzap.Logger
	metrics *Metrics
}

// New creates a Supervisor. plans and metrics may be nil.
// New 创建 Supervisor，plans 和 metrics 可以为 nil。
func New(runner ProcessRunner, client ProtocolClient, plans RepairPlanStore, docs DocumentSource,
	opts Options, log *otelzap.Logger, metrics *Metrics) *Supervisor {
	return &Supervisor{
		runner:  runner,
		client:  client,
		plans:   plans,
		docs:    docs,
		opts:    opts.withDefaults(),
		log:     log,
		metrics: metrics,
	}
}

// About returns the runtime identification over the admin protocol.
func (s *Supervisor) About(ctx context.Context) (*m2ee.About, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()
	return s.client.About(ctx)
}

// RuntimeStatus returns the runtime's own status string.
func (s *Supervisor) RuntimeStatus(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()
	return s.client.RuntimeStatus(ctx)
}
