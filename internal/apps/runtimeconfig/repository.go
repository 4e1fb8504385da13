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
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Repository persists runtime configuration overrides in a YAML file.
// Repository 将运行时配置覆盖项持久化到 YAML 文件。
type Repository struct {
	path string
}

// NewRepository creates a new Repository for the given file.
// NewRepository 创建新的 Repository 实例。
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// Load reads the overrides; a missing file yields an empty map.
// Load 读取覆盖项，文件不存在时返回空 map。
func (r *Repository) Load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runtimeconfig: read %s: %w", r.path, err)
	}

	var f overridesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("runtimeconfig: parse %s: %w", r.path, err)
	}
	if f.MxRuntime == nil {
		f.MxRuntime = map[string]string{}
	}
	return f.MxRuntime, nil
}

// Save replaces the overrides file atomically.
// Save 原子替换覆盖项文件（先写临时文件再重命名）。
func (r *Repository) Save(values map[string]string) error {
	data, err := yaml.Marshal(overridesFile{MxRuntime: values})
	if err != nil {
		return fmt.Errorf("runtimeconfig: encode overrides: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return fmt.Errorf("runtimeconfig: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("runtimeconfig: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("runtimeconfig: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("runtimeconfig: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("runtimeconfig: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("runtimeconfig: replace %s: %w", r.path, err)
	}
	return nil
}
