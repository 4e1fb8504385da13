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
	"syscall"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/runtimectl/m2ee-api/internal/m2ee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func reply(result int, message string) startReply {
	return startReply{resp: &m2ee.Response{Result: result, Message: message}}
}

func TestStart_Started(t *testing.T) {
	f := newFixture(t)

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupOutcome{Kind: Started}, out)
	assert.True(t, out.OK())
	assert.Equal(t, []string{
		m2ee.ActionEcho,
		m2ee.ActionUpdateAppContainerConfiguration,
		m2ee.ActionUpdateConfiguration,
		m2ee.ActionStart,
	}, f.client.callsMade())
	assert.Equal(t, []map[string]any{{"DatabaseType": "PostgreSQL"}}, f.client.docs)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues("start", "started")))
}

func TestStart_LaunchFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.launchErr = errBoom

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupFailed, out.Kind)
	assert.Equal(t, StageLaunch, out.Stage)
	assert.Contains(t, out.Message, "boom")
	assert.Empty(t, f.client.callsMade())
}

func TestStart_ExitedDuringLaunch(t *testing.T) {
	f := newFixture(t)
	f.runner.exitAfterLaunch = true

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupFailed, out.Kind)
	assert.Equal(t, StageLaunch, out.Stage)
	assert.Equal(t, ErrExitedEarly.Error(), out.Message)
	assert.Equal(t, 1, f.runner.forgets)
}

func TestStart_NeverAnswersKillsProcess(t *testing.T) {
	f := newFixture(t)
	f.client.echoErr = errBoom

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupFailed, out.Kind)
	assert.Equal(t, StageLaunch, out.Stage)
	assert.Contains(t, out.Message, "did not answer")
	assert.Equal(t, []syscall.Signal{syscall.SIGKILL}, f.runner.signalsSent())
	assert.Nil(t, f.runner.Handle())
	assert.Zero(t, f.client.count(m2ee.ActionUpdateConfiguration))
}

func TestStart_ConfigureFailureStops(t *testing.T) {
	tests := []struct {
		name        string
		appErr      error
		updateErr   error
		shutdownErr error
	}{
		{"appcontainer fails, stop succeeds", errBoom, nil, nil},
		{"update fails, stop succeeds", nil, errBoom, nil},
		{"update fails, shutdown request fails", nil, errBoom, errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.client.appContainerErr = tt.appErr
			f.client.updateErr = tt.updateErr
			f.client.shutdownErr = tt.shutdownErr

			out := f.sup.Start(context.Background())

			assert.Equal(t, StartupFailed, out.Kind)
			assert.Equal(t, StageConfigure, out.Stage)
			assert.Equal(t, 1, f.client.count(m2ee.ActionShutdown), "a stop must be attempted")
			assert.Zero(t, f.client.count(m2ee.ActionStart))
		})
	}
}

func TestStart_ConfigureDocumentFailure(t *testing.T) {
	f := newFixture(t)
	f.sup.docs = fakeDocs{err: errBoom}

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupFailed, out.Kind)
	assert.Equal(t, StageConfigure, out.Stage)
	assert.Zero(t, f.client.count(m2ee.ActionUpdateConfiguration))
	assert.Equal(t, 1, f.client.count(m2ee.ActionShutdown))
}

func TestStart_ActivateFailureLeavesProcessRunning(t *testing.T) {
	f := newFixture(t)
	f.client.startReplies = []startReply{reply(m2ee.StartMissingMFConstant, "missing constant Module.X")}

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupFailed, out.Kind)
	assert.Equal(t, StageActivate, out.Stage)
	assert.Contains(t, out.Message, "missing constant Module.X")
	assert.Equal(t, m2ee.StartMissingMFConstant, out.Result)
	assert.Zero(t, f.client.count(m2ee.ActionShutdown))
	assert.Empty(t, f.runner.signalsSent())
	assert.NotNil(t, f.runner.Handle())
}

func TestStart_ActivateTransportError(t *testing.T) {
	f := newFixture(t)
	f.client.startReplies = []startReply{{err: errBoom}}

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupFailed, out.Kind)
	assert.Equal(t, StageActivate, out.Stage)
	assert.Equal(t, -1, out.Result)
}

func TestStart_SchemaRepaired(t *testing.T) {
	f := newFixture(t)
	f.client.startReplies = []startReply{reply(m2ee.StartInvalidDBStructure, "invalid structure"), reply(m2ee.ResultSuccess, "")}
	f.client.ddlCommands = []string{"CREATE TABLE a (id bigint);", "ALTER TABLE b ADD c int;"}

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupOutcome{Kind: SchemaRepaired}, out)
	assert.True(t, out.OK())
	assert.Equal(t, 2, f.client.count(m2ee.ActionStart))
	assert.Equal(t, 1, f.client.count(m2ee.ActionGetDDLCommands))
	assert.Equal(t, 1, f.client.count(m2ee.ActionExecuteDDLCommands))

	require.Len(t, f.plans.plans, 1)
	plan := f.plans.plans[0]
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "5.21.0", plan.RuntimeVersion)
	assert.Equal(t, f.client.ddlCommands, plan.Commands)
	assert.False(t, plan.CreatedAt.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.schemaRepairs))
}

func TestStart_SecondInvalidStructureFails(t *testing.T) {
	f := newFixture(t)
	f.client.startReplies = []startReply{
		reply(m2ee.StartInvalidDBStructure, "invalid structure"),
		reply(m2ee.StartInvalidDBStructure, "still invalid"),
	}

	out := f.sup.Start(context.Background())

	assert.Equal(t, StartupFailed, out.Kind)
	assert.Equal(t, StageActivate, out.Stage)
	assert.Contains(t, out.Message, "still invalid")
	assert.Equal(t, m2ee.StartInvalidDBStructure, out.Result)
	assert.Equal(t, 2, f.client.count(m2ee.ActionStart))
	assert.Equal(t, 1, f.client.count(m2ee.ActionGetDDLCommands))
}

func TestStart_PersistFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.plans.err = errBoom
	f.client.startReplies = []startReply{reply(m2ee.StartInvalidDBStructure, ""), reply(m2ee.ResultSuccess, "")}

	out := f.sup.Start(context.Background())

	assert.Equal(t, SchemaRepaired, out.Kind)
	assert.Equal(t, 1, f.client.count(m2ee.ActionExecuteDDLCommands))
}

func TestStart_NilPlanStoreLogsCommands(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	f.sup.log = otelzap.New(zap.New(core))
	f.sup.plans = nil
	f.client.startReplies = []startReply{reply(m2ee.StartInvalidDBStructure, ""), reply(m2ee.ResultSuccess, "")}
	f.client.ddlCommands = []string{"CREATE TABLE a (id bigint);"}

	assert.Equal(t, SchemaRepaired, f.sup.Start(context.Background()).Kind)

	entries := logs.FilterMessage("applying schema repair plan").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.NotEmpty(t, fields["plan_id"])
	assert.Equal(t, []interface{}{"CREATE TABLE a (id bigint);"}, fields["commands"])
}

func TestStart_SchemaInvalid(t *testing.T) {
	tests := []struct {
		name       string
		autoRepair bool
		ddlErr     error
		executeErr error
		wantDDL    int
	}{
		{"auto repair disabled", false, nil, nil, 0},
		{"fetch fails", true, errBoom, nil, 1},
		{"execute fails", true, nil, errBoom, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.sup.opts.AutoRepairSchema = tt.autoRepair
			f.client.ddlErr = tt.ddlErr
			f.client.executeErr = tt.executeErr
			f.client.startReplies = []startReply{reply(m2ee.StartInvalidDBStructure, "invalid structure")}

			out := f.sup.Start(context.Background())

			assert.Equal(t, SchemaInvalid, out.Kind)
			assert.False(t, out.OK())
			assert.Equal(t, 1, f.client.count(m2ee.ActionStart), "no retry")
			assert.Equal(t, tt.wantDDL, f.client.count(m2ee.ActionGetDDLCommands))
		})
	}
}

func TestStartupOutcome_String(t *testing.T) {
	assert.Equal(t, "started", StartupOutcome{Kind: Started}.String())
	assert.Equal(t, "startup_failed(configure): boom", StartupOutcome{Kind: StartupFailed, Stage: StageConfigure, Message: "boom"}.String())
	assert.Equal(t, "schema_invalid: bad", StartupOutcome{Kind: SchemaInvalid, Message: "bad"}.String())
}
