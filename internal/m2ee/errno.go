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

package m2ee

import (
	"errors"
	"fmt"
)

// Result codes returned by the runtime admin protocol.
// 运行时管理协议返回的结果码。
const (
	ResultSuccess           = 0
	StartNoExistingDB       = 2
	StartInvalidDBStructure = 3
	StartMissingMFConstant  = 4
	StartAdmin1             = 5
)

// Errors
// 错误定义
var (
	ErrUnreachable  = errors.New("m2ee: admin protocol unreachable")
	ErrBadResponse  = errors.New("m2ee: malformed admin protocol response")
	ErrActionFailed = errors.New("m2ee: action failed")
)

// ActionError describes a reply whose result code was not success.
// ActionError 描述结果码非成功的响应。
type ActionError struct {
	Action  string
	Result  int
	Message string
	Cause   string
}

func (e *ActionError) Error() string {
	msg := fmt.Sprintf("m2ee: %s returned result %d", e.Action, e.Result)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != "" {
		msg += " (caused by: " + e.Cause + ")"
	}
	return msg
}

func (e *ActionError) Unwrap() error {
	return ErrActionFailed
}

// ResultOf extracts the result code from an *ActionError, or -1.
// ResultOf 从 *ActionError 中提取结果码，不是该类型时返回 -1。
func ResultOf(err error) int {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Result
	}
	return -1
}
