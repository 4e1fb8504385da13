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

// Package router 提供 HTTP 路由配置
// Package router wires the control surface routes and runs the HTTP server.
package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/runtimectl/m2ee-api/docs"
	"github.com/runtimectl/m2ee-api/internal/apps/audit"
	"github.com/runtimectl/m2ee-api/internal/apps/database"
	"github.com/runtimectl/m2ee-api/internal/apps/lifecycle"
	"github.com/runtimectl/m2ee-api/internal/apps/model"
	"github.com/runtimectl/m2ee-api/internal/apps/runtimeconfig"
	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/runtimectl/m2ee-api/internal/guard"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Handlers groups the control surface handlers. Audit and Registry may be nil.
// Handlers 汇总控制面处理器，Audit 和 Registry 可以为 nil。
type Handlers struct {
	Lifecycle     *lifecycle.Handler
	Model         *model.Handler
	Database      *database.Handler
	RuntimeConfig *runtimeconfig.Handler
	Audit         *audit.Handler
	Guard         *guard.Guard
	Registry      *prometheus.Registry
}

// New builds the gin engine with middleware and routes.
// New 构建带中间件和路由的 gin 引擎。
func New(cfg *config.Config, h Handlers, log *otelzap.Logger) *gin.Engine {
	// 运行模式
	// Set run mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.App.Name), loggerMiddleware(log))
	if auth := basicAuth(cfg.App.Auth); auth != nil {
		r.Use(auth)
	}
	r.MaxMultipartMemory = 32 << 20

	// Read-only routes 只读路由
	r.GET("/", h.Lifecycle.Index)
	r.GET("/about/", h.Lifecycle.About)
	r.GET("/status/", h.Lifecycle.Status)
	r.GET("/config/", h.RuntimeConfig.GetConfig)

	// Lifecycle-mutating routes 会改变生命周期的路由
	locked := r.Group("/", lifecycleLock(h.Guard, log))
	{
		locked.POST("/start/", h.Lifecycle.Start)
		locked.POST("/stop/", h.Lifecycle.Stop)
		locked.POST("/terminate/", h.Lifecycle.Terminate)
		locked.POST("/kill/", h.Lifecycle.Kill)
		locked.POST("/upload/", h.Model.Upload)
		locked.POST("/unpack/", h.Model.Unpack)
		locked.POST("/emptydb/", h.Database.EmptyDB)
		locked.POST("/config/", h.RuntimeConfig.SetConfig)
	}

	// Audit 审计记录
	if h.Audit != nil {
		r.GET("/ddl/", h.Audit.ListRepairPlans)
		r.GET("/ddl/:plan_id", h.Audit.GetRepairPlan)
		r.GET("/operations/", h.Audit.ListOperations)
	}

	// Metrics 指标
	if cfg.Metrics.Enabled && h.Registry != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(h.Registry, promhttp.HandlerOpts{Registry: h.Registry})))
	}

	// Swagger 文档（仅开发环境）
	// Swagger docs (development only)
	if cfg.App.Env == "development" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// NewServer creates the HTTP server for the control surface.
// NewServer 创建控制面 HTTP 服务。
func NewServer(cfg config.AppConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
// Serve 运行 HTTP 服务，ctx 结束后优雅关闭。
func Serve(ctx context.Context, srv *http.Server, log *otelzap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("[API] listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("[API] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
