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
	"errors"

	"github.com/google/uuid"
	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"gorm.io/gorm"
)

// DefaultListLimit caps list queries that pass no limit.
const DefaultListLimit = 20

// Repository provides data access operations for audit records.
// Repository 提供审计记录的数据访问操作。
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository instance.
// NewRepository 创建一个新的 Repository 实例。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveRepairPlan stores a schema repair plan.
// SaveRepairPlan 保存数据库结构修复计划。
func (r *Repository) SaveRepairPlan(ctx context.Context, plan *supervisor.RepairPlan) error {
	if plan.ID == "" {
		return ErrPlanIDEmpty
	}
	record := &RepairPlanRecord{
		PlanID:         plan.ID,
		RuntimeVersion: plan.RuntimeVersion,
		Commands:       DDLCommands(plan.Commands),
		CommandCount:   len(plan.Commands),
		CreatedAt:      plan.CreatedAt,
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// GetRepairPlan retrieves a repair plan by its plan ID.
// GetRepairPlan 通过计划 ID 获取修复计划。
func (r *Repository) GetRepairPlan(ctx context.Context, planID string) (*RepairPlanRecord, error) {
	var record RepairPlanRecord
	if err := r.db.WithContext(ctx).Where("plan_id = ?", planID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRepairPlanNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListRepairPlans returns the most recent repair plans, newest first.
// ListRepairPlans 返回最近的修复计划，按时间倒序。
func (r *Repository) ListRepairPlans(ctx context.Context, limit int) ([]*RepairPlanRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var records []*RepairPlanRecord
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error
	return records, err
}

// RecordOperation stores a lifecycle operation; an empty OperationID is generated.
// RecordOperation 保存一次生命周期操作，OperationID 为空时自动生成。
func (r *Repository) RecordOperation(ctx context.Context, op *OperationLog) error {
	if op.Operation == "" {
		return ErrOperationEmpty
	}
	if op.OperationID == "" {
		op.OperationID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(op).Error
}

// ListOperations returns the most recent operations, newest first, optionally
// filtered by operation name.
// ListOperations 返回最近的操作记录，按时间倒序，可按操作名过滤。
func (r *Repository) ListOperations(ctx context.Context, operation string, limit int) ([]*OperationLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := r.db.WithContext(ctx).Model(&OperationLog{})
	if operation != "" {
		query = query.Where("operation = ?", operation)
	}
	var ops []*OperationLog
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&ops).Error
	return ops, err
}
