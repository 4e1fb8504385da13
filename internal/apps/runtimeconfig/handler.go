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

package runtimeconfig

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Handler provides HTTP handlers for runtime configuration.
// Handler 提供运行时配置的 HTTP 处理器。
type Handler struct {
	service *Service
	log     *otelzap.Logger
}

// NewHandler creates a new Handler instance.
// NewHandler 创建一个新的 Handler 实例。
func NewHandler(service *Service, log *otelzap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// GetConfig handles GET /config/ and returns the allow-listed keys as JSON.
// GetConfig 处理 GET /config/，以 JSON 返回白名单配置项。
// @Summary 获取运行时配置 / Get runtime configuration
// @Tags Config
// @Produce json
// @Success 200 {object} map[string]string
// @Router /config/ [get]
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Get())
}

// SetConfig handles POST /config/ with allow-listed keys as form fields.
// SetConfig 处理 POST /config/，从表单读取白名单键。
// @Summary 设置运行时配置 / Set runtime configuration
// @Tags Config
// @Accept x-www-form-urlencoded
// @Produce plain
// @Param DatabaseHost formData string false "数据库地址 / database host"
// @Param DatabaseName formData string false "数据库名 / database name"
// @Param DatabaseUserName formData string false "数据库用户 / database user"
// @Param DatabasePassword formData string false "数据库密码 / database password"
// @Param DatabaseType formData string false "数据库类型 / database type"
// @Param MicroflowConstants formData string false "微流常量 (JSON) / microflow constants"
// @Success 200 {string} string "Config set."
// @Failure 400 {string} string "No configurable key given."
// @Router /config/ [post]
func (h *Handler) SetConfig(c *gin.Context) {
	values := make(map[string]string)
	for _, k := range AllowedKeys {
		if v, ok := c.GetPostForm(k); ok {
			values[k] = v
		}
	}
	stored, err := h.service.Set(values)
	if errors.Is(err, ErrNothingToSet) {
		c.String(http.StatusBadRequest, "No configurable key given.\n")
		return
	}
	if err != nil {
		h.log.Ctx(c.Request.Context()).Error("failed to store runtime configuration", zap.Error(err))
		c.String(http.StatusInternalServerError, "Couldn't set config.\n")
		return
	}

	h.log.Ctx(c.Request.Context()).Info("runtime configuration updated", zap.Strings("keys", stored))
	c.String(http.StatusOK, "Config set.\n")
}
