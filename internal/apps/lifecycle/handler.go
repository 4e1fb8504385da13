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

// Package lifecycle serves the runtime lifecycle endpoints of the control surface.
// lifecycle 包提供控制面的运行时生命周期接口。
package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-version"
	"github.com/runtimectl/m2ee-api/internal/apps/audit"
	"github.com/runtimectl/m2ee-api/internal/m2ee"
	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Banner is the identity line served on /.
const Banner = "M2EE REST API v0.1"

const msgNotRunning = "The application process is not running."

var (
	companyPartnerSince = version.Must(version.NewVersion("2.5"))
	modelVersionSince   = version.Must(version.NewVersion("4.4"))
)

// Supervisor is the lifecycle surface the handlers drive.
// Supervisor 是处理器驱动的生命周期接口。
type Supervisor interface {
	Probe(ctx context.Context) supervisor.LivenessState
	Start(ctx context.Context) supervisor.StartupOutcome
	Stop(ctx context.Context, live supervisor.LivenessState) supervisor.ShutdownResult
	Terminate(ctx context.Context, live supervisor.LivenessState) supervisor.ShutdownResult
	Kill(ctx context.Context, live supervisor.LivenessState) supervisor.ShutdownResult
	About(ctx context.Context) (*m2ee.About, error)
	RuntimeStatus(ctx context.Context) (string, error)
}

// Handler serves the lifecycle endpoints.
// Handler 提供生命周期相关的 HTTP 处理器。
type Handler struct {
	sup      Supervisor
	recorder *audit.Recorder
	log      *otelzap.Logger
	version  string
}

// NewHandler creates a new Handler instance. recorder may be nil.
// NewHandler 创建一个新的 Handler 实例。
func NewHandler(sup Supervisor, recorder *audit.Recorder, log *otelzap.Logger, toolVersion string) *Handler {
	return &Handler{sup: sup, recorder: recorder, log: log, version: toolVersion}
}

// say writes newline-terminated plain text lines.
func say(c *gin.Context, status int, lines ...string) {
	c.String(status, strings.Join(lines, "\n")+"\n")
}

// Index handles GET /.
// @Summary 横幅 / Banner
// @Tags Lifecycle
// @Produce plain
// @Success 200 {string} string "M2EE REST API v0.1"
// @Router / [get]
func (h *Handler) Index(c *gin.Context) {
	say(c, http.StatusOK, Banner)
}

// About handles GET /about/ - tool version plus the runtime's identification.
// About 处理 GET /about/ - 返回工具版本以及运行时信息。
// @Summary 运行时信息 / Runtime identification
// @Tags Lifecycle
// @Produce plain
// @Success 200 {string} string
// @Failure 503 {string} string "admin protocol not answering"
// @Router /about/ [get]
func (h *Handler) About(c *gin.Context) {
	ctx := c.Request.Context()
	lines := []string{fmt.Sprintf("Using m2ee-api version %s", h.version)}

	live := h.sup.Probe(ctx)
	if !live.ProtocolAlive {
		say(c, http.StatusServiceUnavailable, append(lines, notAnswering(live))...)
		return
	}

	about, err := h.sup.About(ctx)
	if err != nil {
		h.log.Ctx(ctx).Warn("[Lifecycle] about failed", zap.Error(err))
		say(c, http.StatusServiceUnavailable, append(lines, fmt.Sprintf("Couldn't query the runtime: %v", err))...)
		return
	}

	lines = append(lines, fmt.Sprintf("Using %s version %s", about.Name, about.Version))
	if about.Copyright != "" {
		lines = append(lines, about.Copyright)
	}
	if v, err := version.NewVersion(about.Version); err == nil {
		if v.GreaterThanOrEqual(companyPartnerSince) {
			if about.Company != "" {
				lines = append(lines, fmt.Sprintf("Project company name is %s", about.Company))
			}
			if about.Partner != "" {
				lines = append(lines, fmt.Sprintf("Project partner name is %s", about.Partner))
			}
		}
		if v.GreaterThanOrEqual(modelVersionSince) && about.ModelVersion != "" {
			lines = append(lines, fmt.Sprintf("Model version: %s", about.ModelVersion))
		}
	}
	say(c, http.StatusOK, lines...)
}

// Status handles GET /status/ - the runtime's own status string.
// Status 处理 GET /status/ - 返回运行时自身的状态。
// @Summary 运行时状态 / Runtime status
// @Tags Lifecycle
// @Produce plain
// @Success 200 {string} string
// @Failure 503 {string} string "not running or not answering"
// @Router /status/ [get]
func (h *Handler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	live := h.sup.Probe(ctx)
	if !live.ProtocolAlive {
		say(c, http.StatusServiceUnavailable, notAnswering(live))
		return
	}

	status, err := h.sup.RuntimeStatus(ctx)
	if err != nil {
		h.log.Ctx(ctx).Warn("[Lifecycle] runtime_status failed", zap.Error(err))
		say(c, http.StatusServiceUnavailable, fmt.Sprintf("Couldn't query the runtime: %v", err))
		return
	}
	say(c, http.StatusOK, fmt.Sprintf("The application process is running, the MxRuntime has status: %s", status))
}

// notAnswering renders the down or degraded state.
func notAnswering(live supervisor.LivenessState) string {
	if live.IsDegraded() {
		return fmt.Sprintf("The application process is running but the admin protocol is not answering (%s).", live.ProtocolFailure())
	}
	return msgNotRunning
}

// Start handles POST /start/.
// Start 处理 POST /start/ - 执行启动编排。
// @Summary 启动应用 / Start the application
// @Tags Lifecycle
// @Produce plain
// @Success 200 {string} string "App started."
// @Failure 409 {string} string "already running"
// @Failure 500 {string} string "startup failed"
// @Router /start/ [post]
func (h *Handler) Start(c *gin.Context) {
	began := time.Now()
	// the sequence runs to completion even if the client goes away
	ctx := context.WithoutCancel(c.Request.Context())

	live := h.sup.Probe(ctx)
	if live.IsRunning() {
		msg := "The application is already running, refusing to start."
		h.record(c, "start", "refused", msg, live, began)
		say(c, http.StatusConflict, msg)
		return
	}

	outcome := h.sup.Start(ctx)
	status, msg := renderStartup(outcome)
	h.record(c, "start", outcome.Kind.String(), outcome.String(), live, began)
	say(c, status, msg)
}

func renderStartup(o supervisor.StartupOutcome) (int, string) {
	switch o.Kind {
	case supervisor.Started:
		return http.StatusOK, "App started."
	case supervisor.SchemaRepaired:
		return http.StatusOK, "App started. (Database updated)"
	case supervisor.SchemaInvalid:
		return http.StatusInternalServerError, fmt.Sprintf("Couldn't start app, the database structure is invalid: %s", o.Message)
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Couldn't start app, %s failed: %s", o.Stage, o.Message)
	}
}

// shutdownTexts are the replies of one shutdown operation.
type shutdownTexts struct {
	nothing, done, failed string
}

var (
	stopTexts = shutdownTexts{
		nothing: "Nothing to stop, the application is not running.",
		done:    "App stopped.",
		failed:  "Couldn't stop app.",
	}
	terminateTexts = shutdownTexts{
		nothing: "Nothing to terminate, the application is not running.",
		done:    "App terminated.",
		failed:  "Couldn't terminate app.",
	}
	killTexts = shutdownTexts{
		nothing: "Nothing to kill, the application is not running.",
		done:    "App killed.",
		failed:  "Couldn't kill app.",
	}
)

// Stop handles POST /stop/.
// @Summary 停止应用 / Stop the application
// @Tags Lifecycle
// @Produce plain
// @Success 200 {string} string "App stopped."
// @Failure 500 {string} string "Couldn't stop app."
// @Router /stop/ [post]
func (h *Handler) Stop(c *gin.Context) {
	h.shutdown(c, "stop", h.sup.Stop, stopTexts)
}

// Terminate handles POST /terminate/.
// @Summary 终止应用 / Terminate the application (SIGTERM)
// @Tags Lifecycle
// @Produce plain
// @Success 200 {string} string "App terminated."
// @Failure 500 {string} string "Couldn't terminate app."
// @Router /terminate/ [post]
func (h *Handler) Terminate(c *gin.Context) {
	h.shutdown(c, "terminate", h.sup.Terminate, terminateTexts)
}

// Kill handles POST /kill/.
// @Summary 强制结束应用 / Kill the application (SIGKILL)
// @Tags Lifecycle
// @Produce plain
// @Success 200 {string} string "App killed."
// @Failure 500 {string} string "Couldn't kill app."
// @Router /kill/ [post]
func (h *Handler) Kill(c *gin.Context) {
	h.shutdown(c, "kill", h.sup.Kill, killTexts)
}

func (h *Handler) shutdown(c *gin.Context, op string,
	run func(context.Context, supervisor.LivenessState) supervisor.ShutdownResult, texts shutdownTexts) {
	began := time.Now()
	ctx := context.WithoutCancel(c.Request.Context())

	live := h.sup.Probe(ctx)
	res := run(ctx, live)
	h.record(c, op, res.Outcome.String(), res.Reason, live, began)

	switch res.Outcome {
	case supervisor.NothingToDo:
		say(c, http.StatusOK, texts.nothing)
	case supervisor.Stopped:
		say(c, http.StatusOK, texts.done)
	default:
		say(c, http.StatusInternalServerError, texts.failed)
	}
}

func (h *Handler) record(c *gin.Context, op, outcome, message string, live supervisor.LivenessState, began time.Time) {
	if err := h.recorder.RecordFromGin(c, op, outcome, message, live, time.Since(began)); err != nil {
		h.log.Ctx(c.Request.Context()).Warn("[Lifecycle] record operation failed",
			zap.String("operation", op), zap.Error(err))
	}
}
