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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"gopkg.in/yaml.v3"
)

// planFile is the on-disk form of one repair plan.
type planFile struct {
	PlanID         string    `yaml:"plan_id"`
	RuntimeVersion string    `yaml:"runtime_version,omitempty"`
	CreatedAt      time.Time `yaml:"created_at"`
	Commands       []string  `yaml:"commands"`
}

// PlanFileStore keeps repair plans as YAML files, one per plan.
// It is used when the audit database is disabled.
// PlanFileStore 以 YAML 文件保存修复计划（每个计划一个文件），在审计数据库关闭时使用。
type PlanFileStore struct {
	dir string
}

// NewPlanFileStore creates a store writing to dir.
// NewPlanFileStore 创建写入 dir 目录的存储。
func NewPlanFileStore(dir string) *PlanFileStore {
	return &PlanFileStore{dir: dir}
}

// Path returns the file a plan is written to.
func (s *PlanFileStore) Path(planID string) string {
	return filepath.Join(s.dir, planID+".yaml")
}

// SaveRepairPlan writes the plan atomically to <dir>/<plan_id>.yaml.
// SaveRepairPlan 原子写入 <dir>/<plan_id>.yaml。
func (s *PlanFileStore) SaveRepairPlan(ctx context.Context, plan *supervisor.RepairPlan) error {
	if plan == nil || plan.ID == "" {
		return ErrPlanIDEmpty
	}
	commands := plan.Commands
	if commands == nil {
		commands = []string{}
	}
	data, err := yaml.Marshal(planFile{
		PlanID:         plan.ID,
		RuntimeVersion: plan.RuntimeVersion,
		CreatedAt:      plan.CreatedAt,
		Commands:       commands,
	})
	if err != nil {
		return fmt.Errorf("audit: encode repair plan: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("audit: create plan directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, plan.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("audit: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("audit: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("audit: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("audit: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(plan.ID)); err != nil {
		return fmt.Errorf("audit: replace plan file: %w", err)
	}
	return nil
}
