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

// Package audit records lifecycle operations and schema repair plans.
// audit 包记录生命周期操作以及数据库结构修复计划。
package audit

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// DDLCommands is an ordered list of DDL statements stored as JSON.
// DDLCommands 是以 JSON 存储的有序 DDL 语句列表。
type DDLCommands []string

// Value implements the driver.Valuer interface for database storage.
// Value 实现 driver.Valuer 接口用于数据库存储。
func (c DDLCommands) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(c))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the sql.Scanner interface for database retrieval.
// Scan 实现 sql.Scanner 接口用于数据库读取。
func (c *DDLCommands) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("audit: failed to scan DDLCommands - expected []byte or string")
	}
	return json.Unmarshal(data, c)
}

// RepairPlanRecord is a persisted schema repair plan.
// RepairPlanRecord 是已持久化的数据库结构修复计划。
type RepairPlanRecord struct {
	ID             uint        `json:"-" gorm:"primaryKey;autoIncrement"`
	PlanID         string      `json:"plan_id" gorm:"size:36;uniqueIndex;not null"`
	RuntimeVersion string      `json:"runtime_version" gorm:"size:50"`
	Commands       DDLCommands `json:"commands" gorm:"type:text"`
	CommandCount   int         `json:"command_count"`
	CreatedAt      time.Time   `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for RepairPlanRecord.
// TableName 指定 RepairPlanRecord 的表名。
func (RepairPlanRecord) TableName() string {
	return "repair_plans"
}

// OperationLog is one lifecycle operation handled by the control surface.
// OperationLog 是控制面处理的一次生命周期操作。
type OperationLog struct {
	ID            uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	OperationID   string    `json:"operation_id" gorm:"size:36;uniqueIndex;not null"`
	Operation     string    `json:"operation" gorm:"size:30;not null;index"`
	Outcome       string    `json:"outcome" gorm:"size:30;not null"`
	Message       string    `json:"message" gorm:"type:text"`
	ProcessAlive  bool      `json:"process_alive"`
	ProtocolAlive bool      `json:"protocol_alive"`
	DurationMs    int64     `json:"duration_ms"`
	ClientIP      string    `json:"client_ip" gorm:"size:64"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for OperationLog.
// TableName 指定 OperationLog 的表名。
func (OperationLog) TableName() string {
	return "operation_logs"
}
