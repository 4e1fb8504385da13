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

	"github.com/runtimectl/m2ee-api/internal/process"
	"go.uber.org/zap"
)

// ShutdownOutcome enumerates shutdown results.
// ShutdownOutcome 枚举停止结果。
type ShutdownOutcome int

const (
	Stopped ShutdownOutcome = iota
	NothingToDo
	ShutdownFailed
)

func (o ShutdownOutcome) String() string {
	switch o {
	case Stopped:
		return "stopped"
	case NothingToDo:
		return "nothing_to_do"
	case ShutdownFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ShutdownResult carries the outcome and, on failure, the reason.
// ShutdownResult 包含停止结果以及失败原因。
type ShutdownResult struct {
	Outcome ShutdownOutcome
	Reason  string
}

// OK reports whether nothing is left running.
func (r ShutdownResult) OK() bool {
	return r.Outcome != ShutdownFailed
}

// Stop asks the runtime to shut down over the admin protocol and waits for
// the process to exit. A process that does not answer the protocol, or does
// not answer the shutdown request in time, gets SIGTERM instead.
// Stop 通过管理协议请求运行时优雅退出并等待进程结束；协议无响应时改为发送 SIGTERM。
func (s *Supervisor) Stop(ctx context.Context, live LivenessState) ShutdownResult {
	if live.IsDown() {
		return s.finish(ctx, "stop", live, ShutdownResult{Outcome: NothingToDo})
	}

	if !live.ProtocolAlive {
		s.log.Ctx(ctx).Info("admin protocol not answering, falling back to SIGTERM",
			zap.String("failure", live.ProtocolFailure()))
		return s.finish(ctx, "stop", live, s.signalAndWait(ctx, live.Handle, syscall.SIGTERM))
	}

	if err := s.requestShutdown(ctx); err != nil {
		s.log.Ctx(ctx).Warn("shutdown request failed, falling back to SIGTERM", zap.Error(err))
		res := s.signalAndWait(ctx, live.Handle, syscall.SIGTERM)
		if !res.OK() {
			res.Reason = fmt.Sprintf("shutdown request failed: %v; %s", err, res.Reason)
		}
		return s.finish(ctx, "stop", live, res)
	}
	return s.finish(ctx, "stop", live, s.waitExit(ctx, live.Handle))
}

// requestShutdown gives the runtime StopTimeout to exit and one probe window
// on top of that to reply.
func (s *Supervisor) requestShutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StopTimeout+s.opts.ProbeTimeout)
	defer cancel()
	return s.client.Shutdown(ctx, s.opts.StopTimeout)
}

// Terminate sends SIGTERM to the runtime's process group and waits.
// Terminate 向运行时进程组发送 SIGTERM 并等待退出。
func (s *Supervisor) Terminate(ctx context.Context, live LivenessState) ShutdownResult {
	if live.IsDown() {
		return s.finish(ctx, "terminate", live, ShutdownResult{Outcome: NothingToDo})
	}
	return s.finish(ctx, "terminate", live, s.signalAndWait(ctx, live.Handle, syscall.SIGTERM))
}

// Kill sends SIGKILL to the runtime's process group and waits.
// Kill 向运行时进程组发送 SIGKILL 并等待退出。
func (s *Supervisor) Kill(ctx context.Context, live LivenessState) ShutdownResult {
	if live.IsDown() {
		return s.finish(ctx, "kill", live, ShutdownResult{Outcome: NothingToDo})
	}
	return s.finish(ctx, "kill", live, s.signalAndWait(ctx, live.Handle, syscall.SIGKILL))
}

func (s *Supervisor) signalAndWait(ctx context.Context, h *process.Handle, sig syscall.Signal) ShutdownResult {
	if h == nil {
		// protocol answered without a known process; nothing to signal
		return ShutdownResult{Outcome: ShutdownFailed, Reason: "no process handle to signal"}
	}
	if err := s.runner.Signal(h, sig); err != nil {
		if errors.Is(err, process.ErrNotRunning) {
			s.runner.Forget()
			return ShutdownResult{Outcome: Stopped}
		}
		return ShutdownResult{Outcome: ShutdownFailed, Reason: err.Error()}
	}
	return s.waitExit(ctx, h)
}

func (s *Supervisor) waitExit(ctx context.Context, h *process.Handle) ShutdownResult {
	if h == nil {
		return ShutdownResult{Outcome: Stopped}
	}
	if !s.runner.WaitExit(ctx, h, s.opts.StopTimeout) {
		return ShutdownResult{
			Outcome: ShutdownFailed,
			Reason:  fmt.Sprintf("process %d still running after %s", h.PID, s.opts.StopTimeout),
		}
	}
	s.runner.Forget()
	return ShutdownResult{Outcome: Stopped}
}

func (s *Supervisor) finish(ctx context.Context, op string, live LivenessState, res ShutdownResult) ShutdownResult {
	s.metrics.observeOperation(op, res.Outcome.String())

	fields := []zap.Field{
		zap.String("operation", op),
		zap.Stringer("outcome", res.Outcome),
		zap.Bool("process_alive", live.ProcessAlive),
		zap.Bool("protocol_alive", live.ProtocolAlive),
	}
	if res.Outcome == ShutdownFailed {
		s.log.Ctx(ctx).Error("runtime shutdown failed", append(fields, zap.String("reason", res.Reason))...)
	} else {
		s.log.Ctx(ctx).Info("runtime shutdown finished", fields...)
	}
	return res
}
