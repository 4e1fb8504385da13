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

package model

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/runtimectl/m2ee-api/internal/apps/audit"
	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DownGuard refuses when the runtime is running.
type DownGuard interface {
	RequireDown(ctx context.Context) (supervisor.LivenessState, error)
}

// Handler provides HTTP handlers for model archives.
// Handler 提供模型包的 HTTP 处理器。
type Handler struct {
	service       *Service
	guard         DownGuard
	recorder      *audit.Recorder
	log           *otelzap.Logger
	maxUploadSize int64
}

// NewHandler creates a new Handler instance.
// maxUploadSize is in bytes; zero disables the limit.
// NewHandler 创建一个新的 Handler 实例。
func NewHandler(service *Service, guard DownGuard, recorder *audit.Recorder, log *otelzap.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		service:       service,
		guard:         guard,
		recorder:      recorder,
		log:           log,
		maxUploadSize: maxUploadSize,
	}
}

func say(c *gin.Context, status int, lines ...string) {
	c.String(status, strings.Join(lines, "\n")+"\n")
}

// Upload handles POST /upload/ - stores the multipart field "model" as the model archive.
// Upload 处理 POST /upload/ - 保存上传的模型包。
// @Summary 上传模型包 / Upload the model archive
// @Tags Model
// @Accept multipart/form-data
// @Produce plain
// @Param model formData file true "模型包 / model archive (.mda)"
// @Success 200 {string} string "File uploaded."
// @Failure 400 {string} string "No model file given."
// @Router /upload/ [post]
func (h *Handler) Upload(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	header, err := c.FormFile("model")
	if err != nil {
		h.log.Ctx(c.Request.Context()).Warn("[Model] no model file in upload", zap.Error(err))
		say(c, http.StatusBadRequest, "No model file given.")
		return
	}

	src, err := header.Open()
	if err != nil {
		say(c, http.StatusBadRequest, "No model file given.")
		return
	}
	defer src.Close()

	if err := h.service.SaveUpload(src); err != nil {
		h.log.Ctx(c.Request.Context()).Error("[Model] save upload failed", zap.Error(err))
		say(c, http.StatusInternalServerError, "Couldn't save uploaded file.")
		return
	}
	h.log.Ctx(c.Request.Context()).Info("[Model] archive uploaded",
		zap.String("filename", header.Filename), zap.Int64("size", header.Size))
	say(c, http.StatusOK, "File uploaded.")
}

// Unpack handles POST /unpack/.
// Unpack 处理 POST /unpack/ - 解压模型包，必要时下载运行时。
// @Summary 解压模型包 / Unpack the model archive
// @Tags Model
// @Produce plain
// @Success 200 {string} string "Model unpacked."
// @Failure 400 {string} string "no or invalid archive"
// @Failure 409 {string} string "The app is still running, refusing to unpack."
// @Failure 500 {string} string "unpack or runtime download failed"
// @Router /unpack/ [post]
func (h *Handler) Unpack(c *gin.Context) {
	began := time.Now()
	ctx := c.Request.Context()

	live, err := h.guard.RequireDown(ctx)
	if err != nil {
		msg := "The app is still running, refusing to unpack."
		h.record(c, "refused", msg, live, began)
		say(c, http.StatusConflict, msg)
		return
	}

	result, err := h.service.Unpack(ctx)
	if err != nil {
		h.log.Ctx(ctx).Error("[Model] unpack failed", zap.Error(err))
		h.record(c, "failed", err.Error(), live, began)
		switch {
		case errors.Is(err, ErrNoWritableRepo):
			say(c, http.StatusInternalServerError, "Runtime is not present and can't be saved anywhere.")
		case errors.Is(err, ErrArchiveMissing):
			say(c, http.StatusBadRequest, "No model archive uploaded.")
		case errors.Is(err, ErrArchiveInvalid):
			say(c, http.StatusBadRequest, "The uploaded model archive is not valid.")
		default:
			say(c, http.StatusInternalServerError, "Couldn't unpack model.")
		}
		return
	}

	if result.RuntimeDownloaded {
		h.record(c, "runtime_downloaded", result.RuntimeVersion, live, began)
		say(c, http.StatusOK, "Runtime downloaded and Model unpacked.")
		return
	}
	h.record(c, "unpacked", result.RuntimeVersion, live, began)
	say(c, http.StatusOK, "Model unpacked.")
}

func (h *Handler) record(c *gin.Context, outcome, message string, live supervisor.LivenessState, began time.Time) {
	if err := h.recorder.RecordFromGin(c, "unpack", outcome, message, live, time.Since(began)); err != nil {
		h.log.Ctx(c.Request.Context()).Warn("[Model] record operation failed", zap.Error(err))
	}
}
