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

package audit

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/runtimectl/m2ee-api/internal/supervisor"
)

// Recorder writes operation logs for the control surface.
// A nil *Recorder or a Recorder without repository records nothing.
// Recorder 为控制面写入操作日志，repo 为 nil 时不记录。
type Recorder struct {
	repo *Repository
}

// NewRecorder creates a Recorder; repo may be nil when the audit store is disabled.
func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

// RecordFromGin writes an operation log entry for the current request.
// RecordFromGin 根据当前 HTTP 请求写入操作日志。
func (r *Recorder) RecordFromGin(c *gin.Context, operation, outcome, message string, live supervisor.LivenessState, took time.Duration) error {
	if r == nil || r.repo == nil {
		return nil
	}
	// the client may have gone away; the record is still wanted
	ctx := context.WithoutCancel(c.Request.Context())
	return r.repo.RecordOperation(ctx, &OperationLog{
		Operation:     operation,
		Outcome:       outcome,
		Message:       message,
		ProcessAlive:  live.ProcessAlive,
		ProtocolAlive: live.ProtocolAlive,
		DurationMs:    took.Milliseconds(),
		ClientIP:      c.ClientIP(),
	})
}
