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
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP handlers for audit records.
// Handler 提供审计记录的 HTTP 处理器。
type Handler struct {
	repo *Repository
}

// NewHandler creates a new Handler instance.
// NewHandler 创建一个新的 Handler 实例。
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Response is the JSON envelope of audit endpoints.
// Response 是审计接口的 JSON 响应结构。
type Response struct {
	ErrorMsg string      `json:"error_msg"`
	Data     interface{} `json:"data"`
}

// ListRepairPlans handles GET /ddl/ - lists recent schema repair plans.
// ListRepairPlans 处理 GET /ddl/ - 获取最近的数据库结构修复计划。
// @Summary 修复计划列表 / List schema repair plans
// @Tags Audit
// @Produce json
// @Param limit query int false "条数 / max entries (1-100)"
// @Success 200 {object} Response{data=[]RepairPlanRecord}
// @Router /ddl/ [get]
func (h *Handler) ListRepairPlans(c *gin.Context) {
	limit := parseLimit(c)
	plans, err := h.repo.ListRepairPlans(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: plans})
}

// GetRepairPlan handles GET /ddl/:plan_id.
// GetRepairPlan 处理 GET /ddl/:plan_id。
// @Summary 修复计划详情 / Get one schema repair plan
// @Tags Audit
// @Produce json
// @Param plan_id path string true "计划ID / plan id"
// @Success 200 {object} Response{data=RepairPlanRecord}
// @Failure 404 {object} Response
// @Router /ddl/{plan_id} [get]
func (h *Handler) GetRepairPlan(c *gin.Context) {
	plan, err := h.repo.GetRepairPlan(c.Request.Context(), c.Param("plan_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrRepairPlanNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: plan})
}

// ListOperations handles GET /operations/ - lists recent lifecycle operations.
// ListOperations 处理 GET /operations/ - 获取最近的生命周期操作记录。
// @Summary 操作记录 / List lifecycle operations
// @Tags Audit
// @Produce json
// @Param operation query string false "操作名 / operation (start, stop, ...)"
// @Param limit query int false "条数 / max entries (1-100)"
// @Success 200 {object} Response{data=[]OperationLog}
// @Router /operations/ [get]
func (h *Handler) ListOperations(c *gin.Context) {
	ops, err := h.repo.ListOperations(c.Request.Context(), c.Query("operation"), parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{ErrorMsg: err.Error()})
		return
	}
	c.JSON(http.StatusOK, Response{Data: ops})
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultListLimit)))
	if err != nil || limit <= 0 {
		return DefaultListLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
