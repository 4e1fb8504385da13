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

import "errors"

// Error definitions for audit operations.
// 审计操作的错误定义。
var (
	// ErrOperationEmpty indicates the operation name is empty.
	// ErrOperationEmpty 表示操作名称为空。
	ErrOperationEmpty = errors.New("audit: operation cannot be empty")
	// ErrPlanIDEmpty indicates the repair plan has no ID.
	// ErrPlanIDEmpty 表示修复计划 ID 为空。
	ErrPlanIDEmpty = errors.New("audit: repair plan ID cannot be empty")
	// ErrRepairPlanNotFound indicates the requested repair plan does not exist.
	// ErrRepairPlanNotFound 表示请求的修复计划不存在。
	ErrRepairPlanNotFound = errors.New("audit: repair plan not found")
)

// Error codes for audit operations.
// 审计操作的错误代码。
const (
	ErrCodeOperationEmpty     = 4001
	ErrCodePlanIDEmpty        = 4002
	ErrCodeRepairPlanNotFound = 4003
)
