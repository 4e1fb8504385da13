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

// Package runtimeconfig stores the runtime configuration document sent to the
// runtime at startup, and the operator overrides applied on top of it.
// runtimeconfig 包保存启动时下发给运行时的配置文档及运维覆盖项。
package runtimeconfig

// Runtime configuration keys that can be read and written over HTTP.
// 可以通过 HTTP 读写的运行时配置键。
const (
	KeyDatabaseHost       = "DatabaseHost"
	KeyDatabaseName       = "DatabaseName"
	KeyDatabaseUserName   = "DatabaseUserName"
	KeyDatabasePassword   = "DatabasePassword"
	KeyDatabaseType       = "DatabaseType"
	KeyMicroflowConstants = "MicroflowConstants"
)

// AllowedKeys is the allow-list of settable keys, in display order.
// AllowedKeys 是允许设置的键列表。
var AllowedKeys = []string{
	KeyDatabaseHost,
	KeyDatabaseName,
	KeyDatabaseUserName,
	KeyDatabasePassword,
	KeyDatabaseType,
	KeyMicroflowConstants,
}

// IsAllowed reports whether key is on the allow-list.
func IsAllowed(key string) bool {
	for _, k := range AllowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// DatabaseSettings are the runtime's database connection settings.
// DatabaseSettings 是运行时的数据库连接配置。
type DatabaseSettings struct {
	Type     string
	Host     string // host or host:port
	Name     string
	UserName string
	Password string
}

// overridesFile is the on-disk layout of the persisted overrides.
type overridesFile struct {
	MxRuntime map[string]string `yaml:"mxruntime"`
}
