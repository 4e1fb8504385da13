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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates a SQLite database in a temporary directory for testing
// setupTestDB 在临时目录中创建用于测试的 SQLite 数据库
func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	tempDir, err := os.MkdirTemp("", "audit_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tempDir, "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to open database: %v", err)
	}

	// Auto-migrate the models
	// 自动迁移模型
	if err := db.AutoMigrate(&OperationLog{}, &RepairPlanRecord{}); err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

// the repository is the supervisor's plan store
var _ supervisor.RepairPlanStore = (*Repository)(nil)

func TestRepository_SaveAndGetRepairPlan(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)
	ctx := context.Background()

	plan := &supervisor.RepairPlan{
		ID:             "4b1d0f3e-2f7e-4a55-9d7b-8d2c3f9b6a10",
		RuntimeVersion: "5.21.0",
		Commands:       []string{"CREATE TABLE a (id bigint);", "DROP INDEX idx_b;"},
		CreatedAt:      time.Now(),
	}
	require.NoError(t, repo.SaveRepairPlan(ctx, plan))

	got, err := repo.GetRepairPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, got.PlanID)
	assert.Equal(t, "5.21.0", got.RuntimeVersion)
	assert.Equal(t, DDLCommands(plan.Commands), got.Commands)
	assert.Equal(t, 2, got.CommandCount)
}

func TestRepository_SaveRepairPlanValidation(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	err := NewRepository(db).SaveRepairPlan(context.Background(), &supervisor.RepairPlan{})
	assert.ErrorIs(t, err, ErrPlanIDEmpty)
}

func TestRepository_SaveEmptyPlan(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	require.NoError(t, repo.SaveRepairPlan(context.Background(), &supervisor.RepairPlan{ID: "empty"}))
	got, err := repo.GetRepairPlan(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, got.Commands)
	assert.Zero(t, got.CommandCount)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRepository_GetRepairPlanNotFound(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewRepository(db).GetRepairPlan(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRepairPlanNotFound)
}

func TestRepository_ListRepairPlansNewestFirst(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, repo.SaveRepairPlan(ctx, &supervisor.RepairPlan{
			ID:        id,
			Commands:  []string{"SELECT 1;"},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	plans, err := repo.ListRepairPlans(ctx, 2)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "third", plans[0].PlanID)
	assert.Equal(t, "second", plans[1].PlanID)
}

func TestRepository_RecordAndListOperations(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RecordOperation(ctx, &OperationLog{Operation: "start", Outcome: "started"}))
	require.NoError(t, repo.RecordOperation(ctx, &OperationLog{Operation: "stop", Outcome: "nothing_to_do"}))
	require.NoError(t, repo.RecordOperation(ctx, &OperationLog{Operation: "stop", Outcome: "stopped", ProcessAlive: true}))

	all, err := repo.ListOperations(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	stops, err := repo.ListOperations(ctx, "stop", 10)
	require.NoError(t, err)
	require.Len(t, stops, 2)
	for _, op := range stops {
		assert.Equal(t, "stop", op.Operation)
		assert.NotEmpty(t, op.OperationID)
	}

	assert.ErrorIs(t, repo.RecordOperation(ctx, &OperationLog{}), ErrOperationEmpty)
}

// TestProperty_RepairPlanRoundTrip 对于任意 DDL 命令列表，保存后读取的命令顺序和内容保持一致
func TestProperty_RepairPlanRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(42) // 固定种子以确保可重复性

	properties := gopter.NewProperties(parameters)

	db, cleanup := setupTestDB(t)
	defer cleanup()
	repo := NewRepository(db)

	n := 0
	properties.Property("修复计划保存与读取一致", prop.ForAll(
		func(commands []string) bool {
			n++
			id := "plan-" + time.Now().Format("150405.000000000") + "-" + string(rune('a'+n%26))
			if err := repo.SaveRepairPlan(context.Background(), &supervisor.RepairPlan{ID: id, Commands: commands}); err != nil {
				t.Logf("保存失败: %v", err)
				return false
			}
			got, err := repo.GetRepairPlan(context.Background(), id)
			if err != nil {
				return false
			}
			if len(got.Commands) != len(commands) || got.CommandCount != len(commands) {
				return false
			}
			for i := range commands {
				if got.Commands[i] != commands[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
