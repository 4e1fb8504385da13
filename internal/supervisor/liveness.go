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

	"github.com/runtimectl/m2ee-api/internal/m2ee"
	"github.com/runtimectl/m2ee-api/internal/process"
	"go.uber.org/zap"
)

// LivenessState is a point-in-time snapshot of the two liveness signals.
// LivenessState 是两个存活信号的时间点快照。
type LivenessState struct {
	ProcessAlive  bool
	ProtocolAlive bool
	// ProtocolErr is set when the process exists but the echo call failed.
	// ProtocolErr 在进程存在但 echo 调用失败时设置。
	ProtocolErr error
	// Handle is the process seen by this probe, nil when down.
	Handle *process.Handle
}

// IsDown reports that nothing is running.
func (l LivenessState) IsDown() bool {
	return !l.ProcessAlive && !l.ProtocolAlive
}

// IsDegraded reports a process that exists but does not answer.
func (l LivenessState) IsDegraded() bool {
	return l.ProcessAlive && !l.ProtocolAlive
}

// IsRunning reports that either signal is up.
func (l LivenessState) IsRunning() bool {
	return l.ProcessAlive || l.ProtocolAlive
}

// ProtocolFailure names the kind of protocol failure for operators.
// ProtocolFailure 返回协议失败的类型，便于运维区分"响应慢"与"已崩溃"。
func (l LivenessState) ProtocolFailure() string {
	switch {
	case l.ProtocolErr == nil:
		return ""
	case errors.Is(l.ProtocolErr, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(l.ProtocolErr, m2ee.ErrUnreachable):
		return "connection failed"
	case errors.Is(l.ProtocolErr, m2ee.ErrActionFailed):
		return "error reply"
	default:
		return "invalid reply"
	}
}

// Probe computes the liveness state. The protocol is only asked when the
// OS process exists, and it is asked once with the probe timeout.
// Probe 计算存活状态；只有进程存在时才发起一次带超时的协议调用，不做重试。
func (s *Supervisor) Probe(ctx context.Context) LivenessState {
	st := LivenessState{Handle: s.runner.Handle()}
	if st.Handle == nil {
		s.metrics.observeLiveness(st)
		return st
	}
	st.ProcessAlive = true

	pctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	defer cancel()

	if err := s.client.Echo(pctx); err != nil {
		st.ProtocolErr = err
		s.log.Ctx(ctx).Warn("runtime process alive but admin protocol not answering",
			zap.Int("pid", st.Handle.PID),
			zap.String("failure", st.ProtocolFailure()),
			zap.Error(err))
	} else {
		st.ProtocolAlive = true
	}

	s.metrics.observeLiveness(st)
	return st
}
