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

// Package guard serializes lifecycle-mutating requests and enforces the
// liveness preconditions of the control surface.
// guard 包串行化会改变生命周期的请求，并检查控制面的存活前置条件。
package guard

import (
	"context"
	"errors"

	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"golang.org/x/sync/semaphore"
)

// Errors
// 错误定义
var (
	ErrRunning = errors.New("guard: the application is still running")
)

// Prober computes the current liveness state.
type Prober interface {
	Probe(ctx context.Context) supervisor.LivenessState
}

// Guard holds the single lifecycle lock.
// Guard 持有唯一的生命周期锁。
type Guard struct {
	sem    *semaphore.Weighted
	prober Prober
}

// New creates a Guard.
func New(prober Prober) *Guard {
	return &Guard{sem: semaphore.NewWeighted(1), prober: prober}
}

// Acquire waits for the lifecycle lock. It fails when ctx is done first,
// so a client that goes away stops waiting.
// Acquire 等待生命周期锁，ctx 结束时放弃等待。
func (g *Guard) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}

// RequireDown probes and returns ErrRunning when either liveness signal is up.
// The state is returned in both cases for logging.
// RequireDown 探测存活状态，任一信号为真时返回 ErrRunning。
func (g *Guard) RequireDown(ctx context.Context) (supervisor.LivenessState, error) {
	live := g.prober.Probe(ctx)
	if live.IsRunning() {
		return live, ErrRunning
	}
	return live, nil
}
