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
	"testing"

	"github.com/runtimectl/m2ee-api/internal/m2ee"
	"pgregory.net/rapid"
)

// Property: stop, terminate and kill on a runtime that is down report
// NothingToDo and touch neither the process nor the admin protocol,
// however often and in whatever order they are called.
// 属性：运行时未运行时，stop/terminate/kill 无论调用多少次、顺序如何，
// 都返回 NothingToDo，且不发送信号也不调用管理协议。
func TestProperty_ShutdownOnDownIsNoop(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ops := rapid.SliceOfN(rapid.SampledFrom([]string{"stop", "terminate", "kill"}), 1, 10).Draw(rt, "ops")

		for _, op := range ops {
			live := f.sup.Probe(context.Background())
			var res ShutdownResult
			switch op {
			case "stop":
				res = f.sup.Stop(context.Background(), live)
			case "terminate":
				res = f.sup.Terminate(context.Background(), live)
			case "kill":
				res = f.sup.Kill(context.Background(), live)
			}
			if res.Outcome != NothingToDo {
				rt.Fatalf("%s on down runtime returned %v", op, res.Outcome)
			}
		}

		if calls := f.client.callsMade(); len(calls) != 0 {
			rt.Fatalf("admin protocol called on down runtime: %v", calls)
		}
		if sigs := f.runner.signalsSent(); len(sigs) != 0 {
			rt.Fatalf("signals sent on down runtime: %v", sigs)
		}
		if f.runner.forgets != 0 || f.runner.Handle() != nil {
			rt.Fatalf("process state changed on down runtime")
		}
	})
}

// Property: whatever the runtime answers to the start command, startup
// repairs the schema at most once, activates at most twice, and reports
// SchemaRepaired only after a repair followed by a successful activation.
// 属性：无论 start 命令返回什么结果，最多修复一次、最多激活两次，
// 且只有在修复后激活成功时才返回 SchemaRepaired。
func TestProperty_SchemaRepairRunsAtMostOnce(t *testing.T) {
	codes := []int{
		m2ee.ResultSuccess,
		1,
		m2ee.StartNoExistingDB,
		m2ee.StartInvalidDBStructure,
		m2ee.StartMissingMFConstant,
		m2ee.StartAdmin1,
	}

	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		first := rapid.SampledFrom(codes).Draw(rt, "first")
		second := rapid.SampledFrom(codes).Draw(rt, "second")
		f.client.startReplies = []startReply{reply(first, "first"), reply(second, "second")}

		out := f.sup.Start(context.Background())

		starts := f.client.count(m2ee.ActionStart)
		repairs := f.client.count(m2ee.ActionGetDDLCommands)
		if repairs > 1 || starts > 2 {
			rt.Fatalf("repairs=%d starts=%d", repairs, starts)
		}

		var want OutcomeKind
		switch {
		case first == m2ee.ResultSuccess:
			want = Started
		case first != m2ee.StartInvalidDBStructure:
			want = StartupFailed
		case second == m2ee.ResultSuccess:
			want = SchemaRepaired
		default:
			want = StartupFailed
		}
		if out.Kind != want {
			rt.Fatalf("first=%d second=%d: got %v, want %v", first, second, out, want)
		}
		if out.Kind == StartupFailed && out.Stage != StageActivate {
			rt.Fatalf("unexpected stage %q", out.Stage)
		}
		if out.Kind == StartupFailed {
			failing := first
			if first == m2ee.StartInvalidDBStructure {
				failing = second
			}
			if out.Result != failing {
				rt.Fatalf("result code %d, want %d", out.Result, failing)
			}
		}
		if first == m2ee.StartInvalidDBStructure && repairs != 1 {
			rt.Fatalf("expected exactly one repair, got %d", repairs)
		}
	})
}
