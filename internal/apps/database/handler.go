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

package database

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/runtimectl/m2ee-api/internal/apps/audit"
	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Emptier empties the runtime database.
type Emptier interface {
	IsSupported() bool
	Empty(ctx context.Context) (*EmptyResult, error)
}

// DownGuard refuses when the runtime is running.
type DownGuard interface {
	RequireDown(ctx context.Context) (supervisor.LivenessState, error)
}

// Handler provides the HTTP handler for emptying the runtime database.
// Handler 提供清空运行时数据库的 HTTP 处理器。
type Handler struct {
	emptier  Emptier
	guard    DownGuard
	recorder *audit.Recorder
	log      *otelzap.Logger
}

// NewHandler creates a new Handler instance.
// NewHandler 创建一个新的 Handler 实例。
func NewHandler(emptier Emptier, guard DownGuard, recorder *audit.Recorder, log *otelzap.Logger) *Handler {
	return &Handler{emptier: emptier, guard: guard, recorder: recorder, log: log}
}

func say(c *gin.Context, status int, lines ...string) {
	c.String(status, strings.Join(lines, "\n")+"\n")
}

// EmptyDB handles POST /emptydb/.
// EmptyDB 处理 POST /emptydb/ - 运行时停止时清空其数据库。
// @Summary 清空数据库 / Empty the application database
// @Tags Database
// @Produce plain
// @Success 200 {string} string "Database is emtpy now."
// @Failure 400 {string} string "Only PostgreSQL is supported right now."
// @Failure 409 {string} string "app still running"
// @Failure 500 {string} string "Couldn't empty the database."
// @Router /emptydb/ [post]
func (h *Handler) EmptyDB(c *gin.Context) {
	began := time.Now()
	ctx := c.Request.Context()

	if !h.emptier.IsSupported() {
		say(c, http.StatusBadRequest, "Only PostgreSQL is supported right now.")
		return
	}

	live, err := h.guard.RequireDown(ctx)
	if err != nil {
		msg := "The app is still running, refusing to empty the database."
		h.record(c, "refused", msg, live, began)
		say(c, http.StatusConflict, msg)
		return
	}

	result, err := h.emptier.Empty(ctx)
	if err != nil {
		h.log.Ctx(ctx).Error("[Database] empty database failed", zap.Error(err))
		h.record(c, "failed", err.Error(), live, began)
		if errors.Is(err, ErrInvalidPort) {
			say(c, http.StatusBadRequest, "Couldn't empty the database: invalid DatabaseHost.")
			return
		}
		say(c, http.StatusInternalServerError, "Couldn't empty the database.")
		return
	}

	h.record(c, "emptied", formatResult(result), live, began)
	say(c, http.StatusOK, "Database is emtpy now.")
}

func formatResult(r *EmptyResult) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("tables=%d sequences=%d", r.Tables, r.Sequences)
}

func (h *Handler) record(c *gin.Context, outcome, message string, live supervisor.LivenessState, began time.Time) {
	if err := h.recorder.RecordFromGin(c, "emptydb", outcome, message, live, time.Since(began)); err != nil {
		h.log.Ctx(c.Request.Context()).Warn("[Database] record operation failed", zap.Error(err))
	}
}
