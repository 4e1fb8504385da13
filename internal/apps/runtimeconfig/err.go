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

import "errors"

// Error definitions for runtime configuration operations.
// 运行时配置操作的错误定义。
var (
	// ErrInvalidConstants indicates MicroflowConstants looks like JSON but does not parse.
	// ErrInvalidConstants 表示 MicroflowConstants 不是合法的 JSON 对象。
	ErrInvalidConstants = errors.New("runtimeconfig: MicroflowConstants is not a valid JSON object")
	// ErrNothingToSet indicates the request carried no allow-listed key.
	// ErrNothingToSet 表示请求中没有任何白名单键。
	ErrNothingToSet = errors.New("runtimeconfig: no settable key in request")
)
