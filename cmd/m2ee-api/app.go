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

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/runtimectl/m2ee-api/internal/apps/audit"
	"github.com/runtimectl/m2ee-api/internal/apps/database"
	"github.com/runtimectl/m2ee-api/internal/apps/lifecycle"
	"github.com/runtimectl/m2ee-api/internal/apps/model"
	"github.com/runtimectl/m2ee-api/internal/apps/runtimeconfig"
	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/runtimectl/m2ee-api/internal/db"
	"github.com/runtimectl/m2ee-api/internal/db/migrator"
	"github.com/runtimectl/m2ee-api/internal/guard"
	"github.com/runtimectl/m2ee-api/internal/m2ee"
	"github.com/runtimectl/m2ee-api/internal/process"
	"github.com/runtimectl/m2ee-api/internal/router"
	"github.com/runtimectl/m2ee-api/internal/runtimestats"
	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the wired control plane.
// App 保存装配好的控制面组件。
type App struct {
	cfg     *config.Config
	log     *otelzap.Logger
	auditDB *gorm.DB
	engine  *gin.Engine
	server  *http.Server
}

// newApp wires every component from the configuration.
// newApp 根据配置装配所有组件。
func newApp(ctx context.Context, cfg *config.Config, log *otelzap.Logger) (*App, error) {
	app := &App{cfg: cfg, log: log}

	// 初始化审计存储（根据配置自动选择 SQLite、MySQL 或 PostgreSQL）
	// Initialize the audit store (SQLite, MySQL or PostgreSQL based on config)
	var (
		auditRepo    *audit.Repository
		auditHandler *audit.Handler
	)
	if cfg.Database.Enabled {
		gdb, err := db.Open(cfg.Database)
		if err != nil {
			return nil, err
		}
		app.auditDB = gdb
		if err := migrator.Migrate(ctx, gdb, log); err != nil {
			app.Close()
			return nil, err
		}
		auditRepo = audit.NewRepository(gdb)
		auditHandler = audit.NewHandler(auditRepo)
	} else {
		log.Info("[Database] audit store disabled")
	}
	recorder := audit.NewRecorder(auditRepo)

	rcService, err := runtimeconfig.NewService(cfg.MxRuntime, runtimeconfig.NewRepository(cfg.Runtime.ConfigFile))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to load runtime config overrides: %w", err)
	}

	adminClient := m2ee.NewClient(cfg.AdminURL(), cfg.Runtime.AdminPassword)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		runtimestats.NewCollector(adminClient, cfg.Runtime.ProbeTimeout, log),
	)

	sup := supervisor.New(
		process.NewRunner(cfg.Runtime, log),
		adminClient,
		repairPlanStore(cfg, auditRepo),
		rcService,
		supervisor.Options{
			StartTimeout:     cfg.Runtime.StartTimeout,
			StopTimeout:      cfg.Runtime.StopTimeout,
			ProbeTimeout:     cfg.Runtime.ProbeTimeout,
			ActivateTimeout:  cfg.Runtime.ActivateTimeout,
			AutoRepairSchema: cfg.Runtime.AutoRepairSchema,
			RuntimePort:      cfg.Runtime.RuntimePort,
			ListenAddresses:  cfg.Runtime.ListenAddresses,
		},
		log,
		supervisor.NewMetrics(registry),
	)
	lifecycleGuard := guard.New(sup)

	modelHandler := model.NewHandler(model.NewService(cfg.Runtime, log), lifecycleGuard, recorder, log,
		cfg.App.MaxUploadSize<<20)
	databaseHandler := database.NewHandler(database.NewService(rcService, log), lifecycleGuard, recorder, log)

	app.engine = router.New(cfg, router.Handlers{
		Lifecycle:     lifecycle.NewHandler(sup, recorder, log, Version),
		Model:         modelHandler,
		Database:      databaseHandler,
		RuntimeConfig: runtimeconfig.NewHandler(rcService, log),
		Audit:         auditHandler,
		Guard:         lifecycleGuard,
		Registry:      registry,
	}, log)
	app.server = router.NewServer(cfg.App, app.engine)
	return app, nil
}

// repairPlanStore keeps schema repair plans in the audit database, or in
// runtime.ddl_plan_dir when the database is disabled.
// repairPlanStore 选择修复计划的存储位置：审计数据库，或数据库关闭时的 runtime.ddl_plan_dir。
func repairPlanStore(cfg *config.Config, repo *audit.Repository) supervisor.RepairPlanStore {
	if repo != nil {
		return repo
	}
	return audit.NewPlanFileStore(cfg.Runtime.DDLPlanDir)
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	return router.Serve(ctx, a.server, a.log)
}

// Close releases the audit store.
func (a *App) Close() {
	if err := db.Close(a.auditDB); err != nil {
		a.log.Warn("[Database] close failed", zap.Error(err))
	}
}
