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
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/runtimectl/m2ee-api/internal/m2ee"
	"github.com/runtimectl/m2ee-api/internal/otel_trace"
	"github.com/runtimectl/m2ee-api/internal/process"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OutcomeKind enumerates startup results.
// OutcomeKind 枚举启动结果。
type OutcomeKind int

const (
	Started OutcomeKind = iota
	StartupFailed
	SchemaInvalid
	SchemaRepaired
)

func (k OutcomeKind) String() string {
	switch k {
	case Started:
		return "started"
	case StartupFailed:
		return "startup_failed"
	case SchemaInvalid:
		return "schema_invalid"
	case SchemaRepaired:
		return "schema_repaired"
	default:
		return "unknown"
	}
}

// Stage names the startup step that failed.
// Stage 表示失败的启动步骤。
type Stage string

const (
	StageLaunch    Stage = "launch"
	StageConfigure Stage = "configure"
	StageActivate  Stage = "activate"
)

// StartupOutcome is the result of one startup attempt.
// Stage is only set for StartupFailed. Result is the admin protocol result
// code behind a failure, -1 when the failure was not a protocol reply.
// StartupOutcome 是一次启动尝试的结果，仅 StartupFailed 时设置 Stage。
type StartupOutcome struct {
	Kind    OutcomeKind
	Stage   Stage
	Message string
	Result  int
}

// OK reports whether the application is serving.
func (o StartupOutcome) OK() bool {
	return o.Kind == Started || o.Kind == SchemaRepaired
}

func (o StartupOutcome) String() string {
	if o.Kind == StartupFailed {
		return fmt.Sprintf("%s(%s): %s", o.Kind, o.Stage, o.Message)
	}
	if o.Message != "" {
		return fmt.Sprintf("%s: %s", o.Kind, o.Message)
	}
	return o.Kind.String()
}

// RepairPlan is the ordered list of DDL commands fetched during one repair.
// RepairPlan 是一次修复中获取的有序 DDL 命令列表。
type RepairPlan struct {
	ID             string
	RuntimeVersion string
	Commands       []string
	CreatedAt      time.Time
}

// Errors
// 错误定义
var (
	ErrExitedEarly = errors.New("supervisor: runtime process exited during startup")
	ErrNoAnswer    = errors.New("supervisor: runtime admin protocol did not answer in time")
)

var echoInterval = 250 * time.Millisecond

func failed(stage Stage, err error) StartupOutcome {
	return StartupOutcome{Kind: StartupFailed, Stage: stage, Message: err.Error(), Result: m2ee.ResultOf(err)}
}

// Start brings the runtime up: launch, configure, activate, and on a schema
// mismatch one repair followed by one more activation.
// Start 启动运行时：启动进程、下发配置、激活应用；数据库结构不匹配时修复一次并重试一次。
func (s *Supervisor) Start(ctx context.Context) StartupOutcome {
	ctx, span := otel_trace.Start(ctx, "supervisor.Start")
	defer span.End()

	begin := time.Now()
	outcome := s.start(ctx)

	span.SetAttributes(
		attribute.String("outcome", outcome.Kind.String()),
		attribute.String("stage", string(outcome.Stage)),
	)
	s.metrics.observeStartup(outcome, time.Since(begin))

	log := s.log.Ctx(ctx)
	if outcome.OK() {
		log.Info("runtime started", zap.Stringer("outcome", outcome.Kind), zap.Duration("took", time.Since(begin)))
	} else {
		log.Error("runtime startup failed",
			zap.Stringer("outcome", outcome.Kind),
			zap.String("stage", string(outcome.Stage)),
			zap.Int("result", outcome.Result),
			zap.String("message", outcome.Message))
	}
	return outcome
}

func (s *Supervisor) start(ctx context.Context) StartupOutcome {
	if err := s.launch(ctx); err != nil {
		return failed(StageLaunch, err)
	}

	if err := s.configure(ctx); err != nil {
		// Don't leak a half-configured process / 不遗留未完成配置的进程
		if res := s.Stop(ctx, s.Probe(ctx)); res.Outcome == ShutdownFailed {
			s.log.Ctx(ctx).Warn("stop after failed configure did not succeed", zap.String("reason", res.Reason))
		}
		return failed(StageConfigure, err)
	}

	resp, err := s.activate(ctx)
	if err != nil {
		return failed(StageActivate, err)
	}
	switch resp.Result {
	case m2ee.ResultSuccess:
		return StartupOutcome{Kind: Started}
	case m2ee.StartInvalidDBStructure:
		return s.repairSchema(ctx, resp)
	default:
		// process left running for inspection / 保留进程以便排查
		return failed(StageActivate, resp.Err(m2ee.ActionStart))
	}
}

// launch spawns the runtime and waits until its admin protocol answers.
// A process that exits or never answers is killed and forgotten.
// launch 启动运行时并等待管理协议可用，失败时杀掉半启动的进程。
func (s *Supervisor) launch(ctx context.Context) error {
	ctx, span := otel_trace.Start(ctx, "supervisor.launch")
	defer span.End()

	h, err := s.runner.Launch(ctx)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.StartTimeout)
	defer cancel()

	ticker := time.NewTicker(echoInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		if !s.runner.Alive(h) {
			s.runner.Forget()
			return ErrExitedEarly
		}

		echoCtx, echoCancel := context.WithTimeout(waitCtx, s.opts.ProbeTimeout)
		lastErr = s.client.Echo(echoCtx)
		echoCancel()
		if lastErr == nil {
			return nil
		}

		select {
		case <-waitCtx.Done():
			s.abandon(ctx, h)
			return fmt.Errorf("%w: %v", ErrNoAnswer, lastErr)
		case <-ticker.C:
		}
	}
}

// abandon kills a half-started runtime.
func (s *Supervisor) abandon(ctx context.Context, h *process.Handle) {
	if err := s.runner.Signal(h, syscall.SIGKILL); err != nil && !errors.Is(err, process.ErrNotRunning) {
		s.log.Ctx(ctx).Warn("failed to kill half-started runtime", zap.Int("pid", h.PID), zap.Error(err))
	}
	// the request context may already be done; the wait must still happen
	if s.runner.WaitExit(context.WithoutCancel(ctx), h, s.opts.StopTimeout) {
		s.runner.Forget()
	}
}

// configure sends the listener settings and then the configuration document.
// configure 下发监听参数和运行时配置文档。
func (s *Supervisor) configure(ctx context.Context) error {
	ctx, span := otel_trace.Start(ctx, "supervisor.configure")
	defer span.End()

	err := s.bounded(ctx, s.opts.ProbeTimeout, func(ctx context.Context) error {
		return s.client.UpdateAppContainerConfiguration(ctx, map[string]any{
			"runtime_port":             s.opts.RuntimePort,
			"runtime_listen_addresses": s.opts.ListenAddresses,
		})
	})
	if err != nil {
		return err
	}

	doc, err := s.docs.RuntimeDocument()
	if err != nil {
		return fmt.Errorf("supervisor: build runtime configuration: %w", err)
	}
	return s.bounded(ctx, s.opts.ProbeTimeout, func(ctx context.Context) error {
		return s.client.UpdateConfiguration(ctx, doc)
	})
}

func (s *Supervisor) activate(ctx context.Context) (resp *m2ee.Response, err error) {
	ctx, span := otel_trace.Start(ctx, "supervisor.activate")
	defer span.End()

	err = s.bounded(ctx, s.opts.ActivateTimeout, func(ctx context.Context) error {
		resp, err = s.client.Start(ctx)
		return err
	})
	return resp, err
}

// bounded runs one admin protocol call under its own deadline.
// bounded 在独立的超时内执行一次管理协议调用。
func (s *Supervisor) bounded(ctx context.Context, d time.Duration, call func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return call(ctx)
}

// repairSchema fetches, records and applies the DDL plan, then activates once more.
// repairSchema 获取、记录并执行 DDL 修复计划，然后再激活一次。
func (s *Supervisor) repairSchema(ctx context.Context, first *m2ee.Response) StartupOutcome {
	ctx, span := otel_trace.Start(ctx, "supervisor.repairSchema")
	defer span.End()

	log := s.log.Ctx(ctx)
	if !s.opts.AutoRepairSchema {
		return StartupOutcome{Kind: SchemaInvalid, Message: first.Message, Result: first.Result}
	}

	var commands []string
	err := s.bounded(ctx, s.opts.ProbeTimeout, func(ctx context.Context) (err error) {
		commands, err = s.client.GetDDLCommands(ctx)
		return err
	})
	if err != nil {
		return StartupOutcome{Kind: SchemaInvalid, Message: err.Error(), Result: m2ee.ResultOf(err)}
	}

	plan := &RepairPlan{
		ID:             uuid.NewString(),
		RuntimeVersion: s.runtimeVersion(ctx),
		Commands:       commands,
		CreatedAt:      time.Now(),
	}
	if s.plans != nil {
		if err := s.plans.SaveRepairPlan(ctx, plan); err != nil {
			log.Error("failed to persist schema repair plan", zap.String("plan_id", plan.ID), zap.Error(err))
		}
	}
	log.Info("applying schema repair plan", zap.String("plan_id", plan.ID), zap.Strings("commands", commands))

	if err := s.bounded(ctx, s.opts.ActivateTimeout, s.client.ExecuteDDLCommands); err != nil {
		return StartupOutcome{Kind: SchemaInvalid, Message: err.Error(), Result: m2ee.ResultOf(err)}
	}
	s.metrics.schemaRepaired()

	resp, err := s.activate(ctx)
	if err != nil {
		return failed(StageActivate, err)
	}
	if !resp.OK() {
		return failed(StageActivate, resp.Err(m2ee.ActionStart))
	}
	return StartupOutcome{Kind: SchemaRepaired}
}

// runtimeVersion is best effort; an unknown version does not block the repair.
func (s *Supervisor) runtimeVersion(ctx context.Context) string {
	about, err := s.About(ctx)
	if err != nil {
		return ""
	}
	return about.Version
}
