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
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/runtimectl/m2ee-api/internal/logger"
	"github.com/runtimectl/m2ee-api/internal/m2ee"
	"github.com/runtimectl/m2ee-api/internal/process"
)

const fakePID = 4242

// fakeRunner simulates one runtime process.
type fakeRunner struct {
	mu sync.Mutex

	launchErr       error
	exitAfterLaunch bool
	ignoreSignals   bool

	alive    bool
	launches int
	forgets  int
	signals  []syscall.Signal
}

func (r *fakeRunner) Launch(ctx context.Context) (*process.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launches++
	if r.launchErr != nil {
		return nil, r.launchErr
	}
	r.alive = !r.exitAfterLaunch
	return &process.Handle{PID: fakePID}, nil
}

func (r *fakeRunner) Handle() *process.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.alive {
		return nil
	}
	return &process.Handle{PID: fakePID}
}

func (r *fakeRunner) Alive(h *process.Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return h != nil && r.alive
}

func (r *fakeRunner) Signal(h *process.Handle, sig syscall.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, sig)
	if !r.alive {
		return process.ErrNotRunning
	}
	if sig == syscall.SIGKILL || !r.ignoreSignals {
		r.alive = false
	}
	return nil
}

func (r *fakeRunner) WaitExit(ctx context.Context, h *process.Handle, timeout time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.alive
}

func (r *fakeRunner) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgets++
}

func (r *fakeRunner) setAlive(alive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alive = alive
}

func (r *fakeRunner) signalsSent() []syscall.Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]syscall.Signal(nil), r.signals...)
}

type startReply struct {
	resp *m2ee.Response
	err  error
}

// fakeClient simulates the admin protocol of the fake runtime.
type fakeClient struct {
	mu sync.Mutex

	runner *fakeRunner

	echoErr         error
	appContainerErr error
	updateErr       error
	startReplies    []startReply
	ddlCommands     []string
	ddlErr          error
	executeErr      error
	shutdownErr     error
	// shutdownIgnored leaves the process running after a successful shutdown call
	shutdownIgnored bool

	calls []string
	docs  []map[string]any
}

func (c *fakeClient) record(action string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, action)
}

func (c *fakeClient) Echo(ctx context.Context) error {
	c.record(m2ee.ActionEcho)
	return c.echoErr
}

func (c *fakeClient) About(ctx context.Context) (*m2ee.About, error) {
	c.record(m2ee.ActionAbout)
	return &m2ee.About{Name: "Mendix", Version: "5.21.0"}, nil
}

func (c *fakeClient) RuntimeStatus(ctx context.Context) (string, error) {
	c.record(m2ee.ActionRuntimeStatus)
	return "running", nil
}

func (c *fakeClient) UpdateAppContainerConfiguration(ctx context.Context, params map[string]any) error {
	c.record(m2ee.ActionUpdateAppContainerConfiguration)
	return c.appContainerErr
}

func (c *fakeClient) UpdateConfiguration(ctx context.Context, doc map[string]any) error {
	c.record(m2ee.ActionUpdateConfiguration)
	c.mu.Lock()
	c.docs = append(c.docs, doc)
	c.mu.Unlock()
	return c.updateErr
}

func (c *fakeClient) Start(ctx context.Context) (*m2ee.Response, error) {
	c.record(m2ee.ActionStart)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.startReplies) == 0 {
		return &m2ee.Response{Result: m2ee.ResultSuccess}, nil
	}
	reply := c.startReplies[0]
	c.startReplies = c.startReplies[1:]
	return reply.resp, reply.err
}

func (c *fakeClient) GetDDLCommands(ctx context.Context) ([]string, error) {
	c.record(m2ee.ActionGetDDLCommands)
	return c.ddlCommands, c.ddlErr
}

func (c *fakeClient) ExecuteDDLCommands(ctx context.Context) error {
	c.record(m2ee.ActionExecuteDDLCommands)
	return c.executeErr
}

func (c *fakeClient) Shutdown(ctx context.Context, timeout time.Duration) error {
	c.record(m2ee.ActionShutdown)
	if c.shutdownErr != nil {
		return c.shutdownErr
	}
	if !c.shutdownIgnored && c.runner != nil {
		c.runner.setAlive(false)
	}
	return nil
}

func (c *fakeClient) count(action string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, a := range c.calls {
		if a == action {
			n++
		}
	}
	return n
}

func (c *fakeClient) callsMade() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakePlanStore struct {
	mu    sync.Mutex
	err   error
	plans []*RepairPlan
}

func (s *fakePlanStore) SaveRepairPlan(ctx context.Context, plan *RepairPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.plans = append(s.plans, plan)
	return nil
}

type fakeDocs struct {
	doc map[string]any
	err error
}

func (d fakeDocs) RuntimeDocument() (map[string]any, error) {
	return d.doc, d.err
}

type fixture struct {
	runner  *fakeRunner
	client  *fakeClient
	plans   *fakePlanStore
	sup     *Supervisor
	metrics *Metrics
}

var errBoom = errors.New("boom")

func testOptions() Options {
	return Options{
		StartTimeout:     200 * time.Millisecond,
		StopTimeout:      100 * time.Millisecond,
		ProbeTimeout:     50 * time.Millisecond,
		ActivateTimeout:  100 * time.Millisecond,
		AutoRepairSchema: true,
		RuntimePort:      8000,
		ListenAddresses:  "*",
	}
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	runner := &fakeRunner{}
	client := &fakeClient{runner: runner}
	plans := &fakePlanStore{}
	metrics := NewMetrics(prometheus.NewRegistry())
	docs := fakeDocs{doc: map[string]any{"DatabaseType": "PostgreSQL"}}
	sup := New(runner, client, plans, docs, testOptions(), logger.NewNop(), metrics)
	return &fixture{runner: runner, client: client, plans: plans, sup: sup, metrics: metrics}
}
