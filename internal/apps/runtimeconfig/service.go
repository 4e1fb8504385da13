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
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Service overlays persisted overrides on the configured runtime document.
// Service 在配置文件中的运行时文档上叠加已持久化的覆盖项。
type Service struct {
	repo *Repository
	base map[string]any

	mu        sync.RWMutex
	overrides map[string]string
}

// NewService creates a new Service and loads the persisted overrides.
// NewService 创建新的 Service 实例并加载已持久化的覆盖项。
func NewService(base map[string]any, repo *Repository) (*Service, error) {
	overrides, err := repo.Load()
	if err != nil {
		return nil, err
	}
	// only allow-listed keys are ever honoured from the overrides file
	for k := range overrides {
		if !IsAllowed(k) {
			delete(overrides, k)
		}
	}
	if base == nil {
		base = map[string]any{}
	}
	return &Service{repo: repo, base: base, overrides: overrides}, nil
}

// Get returns the allow-listed keys that currently have a value.
// Get 返回当前已设置值的白名单键。
func (s *Service) Get() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(AllowedKeys))
	for _, k := range AllowedKeys {
		if v, ok := s.overrides[k]; ok {
			out[k] = v
			continue
		}
		if v, ok := s.base[k]; ok && v != nil {
			out[k] = stringify(v)
		}
	}
	return out
}

// Set stores the allow-listed keys of values verbatim and ignores the rest.
// It returns the keys that were stored, or ErrNothingToSet.
// Set 原样保存 values 中的白名单键并忽略其他键，返回已保存的键。
func (s *Service) Set(values map[string]string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.overrides)+len(values))
	for k, v := range s.overrides {
		next[k] = v
	}
	var stored []string
	for _, k := range AllowedKeys {
		if v, ok := values[k]; ok {
			next[k] = v
			stored = append(stored, k)
		}
	}
	if len(stored) == 0 {
		return nil, ErrNothingToSet
	}

	if err := s.repo.Save(next); err != nil {
		return nil, err
	}
	s.overrides = next
	return stored, nil
}

// RuntimeDocument builds the configuration document for update_configuration.
// A MicroflowConstants value holding a JSON object is sent as that object.
// RuntimeDocument 构建 update_configuration 使用的配置文档。
func (s *Service) RuntimeDocument() (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := make(map[string]any, len(s.base)+len(s.overrides))
	for k, v := range s.base {
		doc[k] = v
	}
	for k, v := range s.overrides {
		doc[k] = v
	}

	if raw, ok := doc[KeyMicroflowConstants].(string); ok {
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "{") {
			var constants map[string]any
			if err := json.Unmarshal([]byte(trimmed), &constants); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidConstants, err)
			}
			doc[KeyMicroflowConstants] = constants
		}
	}
	return doc, nil
}

// Database returns the runtime's database settings.
// Database 返回运行时的数据库配置。
func (s *Service) Database() DatabaseSettings {
	values := s.Get()
	return DatabaseSettings{
		Type:     values[KeyDatabaseType],
		Host:     values[KeyDatabaseHost],
		Name:     values[KeyDatabaseName],
		UserName: values[KeyDatabaseUserName],
		Password: values[KeyDatabasePassword],
	}
}

// IsPostgreSQL reports whether the runtime uses PostgreSQL.
// IsPostgreSQL 判断运行时是否使用 PostgreSQL。
func (s *Service) IsPostgreSQL() bool {
	return strings.EqualFold(s.Database().Type, "PostgreSQL")
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	default:
		return fmt.Sprint(val)
	}
}
