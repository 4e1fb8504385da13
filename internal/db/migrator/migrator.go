/*
 * MIT License
 *
 * Copyright (c) 2025 linux.do
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package migrator

import (
	"context"
	"errors"

	"github.com/runtimectl/m2ee-api/internal/apps/audit"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates the audit store tables.
// A nil db means the audit store is disabled and nothing is migrated.
// Migrate 创建或更新审计存储表，db 为 nil 时表示审计存储未启用。
func Migrate(ctx context.Context, db *gorm.DB, log *otelzap.Logger) error {
	if db == nil {
		log.Ctx(ctx).Info("[Database] audit store disabled, skip migration")
		return nil
	}

	// 执行数据库表迁移
	// Execute database table migration
	if err := db.WithContext(ctx).AutoMigrate(
		&audit.OperationLog{},     // 生命周期操作表 / Lifecycle operation table
		&audit.RepairPlanRecord{}, // 结构修复计划表 / Schema repair plan table
	); err != nil {
		return errors.Join(errors.New("migrator: auto migrate failed"), err)
	}
	log.Ctx(ctx).Info("[Database] auto migrate success", zap.String("dialect", db.Dialector.Name()))
	return nil
}
