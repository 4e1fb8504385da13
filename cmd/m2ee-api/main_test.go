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
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/runtimectl/m2ee-api/internal/apps/audit"
	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/runtimectl/m2ee-api/internal/logger"
	"github.com/runtimectl/m2ee-api/internal/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, auditEnabled bool) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		App: config.AppConfig{Name: "m2ee-api", Env: "test", Addr: "127.0.0.1:0", MaxUploadSize: 1},
		Runtime: config.RuntimeConfig{
			JavaBin:         "java",
			LauncherJar:     filepath.Join(dir, "runtimelauncher.jar"),
			AppBase:         filepath.Join(dir, "app"),
			ModelUploadPath: filepath.Join(dir, "upload"),
			MxjarRepos:      []string{filepath.Join(dir, "runtimes")},
			AdminHost:       "127.0.0.1",
			AdminPort:       1,
			AdminPassword:   "secret",
			RuntimePort:     8000,
			PidFile:         filepath.Join(dir, "m2ee.pid"),
			LogFile:         filepath.Join(dir, "runtime.log"),
			ConfigFile:      filepath.Join(dir, "runtime-config.yaml"),
			StartTimeout:    time.Second,
			StopTimeout:     time.Second,
			ProbeTimeout:    100 * time.Millisecond,
			ActivateTimeout: time.Second,
			DDLPlanDir:      filepath.Join(dir, "ddl"),
		},
		MxRuntime: map[string]any{"DatabaseType": "HSQLDB"},
		Database: config.DatabaseConfig{
			Enabled:    auditEnabled,
			Type:       "sqlite",
			SQLitePath: filepath.Join(dir, "audit.db"),
			LogLevel:   "silent",
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func get(app *App, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestNewApp_WiresRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := newApp(context.Background(), testConfig(t, true), logger.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, "M2EE REST API v0.1\n", get(app, "/").Body.String())
	assert.Equal(t, http.StatusOK, get(app, "/ddl/").Code)
	assert.Equal(t, http.StatusOK, get(app, "/operations/").Code)
	metrics := get(app, "/metrics")
	assert.Equal(t, http.StatusOK, metrics.Code)
	// nothing answers on the admin port
	assert.Contains(t, metrics.Body.String(), "m2ee_runtime_up 0")

	// nothing runs on the test host, so status reports down
	w := get(app, "/status/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "The application process is not running.\n", w.Body.String())
}

func TestNewApp_StopWhenDownIsRecorded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := newApp(context.Background(), testConfig(t, true), logger.NewNop())
	require.NoError(t, err)
	defer app.Close()

	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stop/", nil))
	assert.Equal(t, "Nothing to stop, the application is not running.\n", w.Body.String())

	ops := get(app, "/operations/?operation=stop")
	assert.Contains(t, ops.Body.String(), `"nothing_to_do"`)
}

func TestNewApp_AuditDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := newApp(context.Background(), testConfig(t, false), logger.NewNop())
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, http.StatusNotFound, get(app, "/ddl/").Code)
	assert.Equal(t, http.StatusOK, get(app, "/").Code)
}

func TestRepairPlanStore(t *testing.T) {
	cfg := testConfig(t, false)

	store := repairPlanStore(cfg, nil)
	require.IsType(t, &audit.PlanFileStore{}, store)

	plan := &supervisor.RepairPlan{ID: "plan-1", Commands: []string{"CREATE TABLE a (id bigint);"}, CreatedAt: time.Now()}
	require.NoError(t, store.SaveRepairPlan(context.Background(), plan))
	data, err := os.ReadFile(filepath.Join(cfg.Runtime.DDLPlanDir, "plan-1.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "CREATE TABLE a (id bigint);")

	repo := audit.NewRepository(nil)
	assert.Same(t, repo, repairPlanStore(cfg, repo))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "m2ee-api")
	assert.Contains(t, out.String(), "Version:    "+Version)
}
