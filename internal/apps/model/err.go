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

import "errors"

// Error codes for model archive operations
// 模型包操作错误码
const (
	ErrCodeArchiveMissing = 5001
	ErrCodeArchiveInvalid = 5002
	ErrCodeNoVersion      = 5003
	ErrCodeNoWritableRepo = 5004
	ErrCodeDownloadFailed = 5005
	ErrCodeExtractFailed  = 5006
)

// Errors
// 错误定义
var (
	ErrArchiveMissing   = errors.New("model: archive not found")
	ErrArchiveInvalid   = errors.New("model: archive is not a valid zip file")
	ErrNoRuntimeVersion = errors.New("model: runtime version unknown")
	ErrNoWritableRepo   = errors.New("model: no writable mxjar repository")
	ErrDownloadFailed   = errors.New("model: runtime download failed")
	ErrExtractionFailed = errors.New("model: extraction failed")
)
