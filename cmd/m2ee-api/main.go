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

// Package main is the entry point of the m2ee-api control plane.
// main 包是 m2ee-api 控制面的入口。
//
// m2ee-api supervises one runtime process on the local host:
// m2ee-api 监管本机上的一个运行时进程：
// - Starts it, including the schema repair retry / 启动运行时，包括数据库结构修复重试
// - Stops, terminates or kills it / 停止、终止或强制结束运行时
// - Serves the HTTP control surface / 提供 HTTP 控制面
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/runtimectl/m2ee-api/internal/logger"
	"github.com/runtimectl/m2ee-api/internal/otel_trace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information, set at build time
// 版本信息，在构建时设置
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// rootCmd runs the server when no subcommand is given.
// rootCmd 在未指定子命令时启动服务。
var rootCmd = &cobra.Command{
	Use:   "m2ee-api",
	Short: "m2ee-api - HTTP control plane for a supervised runtime process",
	Long: `m2ee-api supervises one runtime process on the local host.
m2ee-api 监管本机上的一个运行时进程。

It starts, stops and probes the runtime over its admin protocol and
exposes those operations over HTTP.
它通过管理协议启动、停止和探测运行时，并通过 HTTP 暴露这些操作。`,
	SilenceUsage: true,
	RunE:         runServe,
}

// serveCmd starts the HTTP control surface
// serveCmd 启动 HTTP 控制面
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control surface / 启动 HTTP 控制面",
	RunE:  runServe,
}

// versionCmd shows version information
// versionCmd 显示版本信息
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information / 打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "m2ee-api\n")
		fmt.Fprintf(out, "  Version:    %s\n", Version)
		fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
		fmt.Fprintf(out, "  Go Version: %s\n", runtime.Version())
		fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// configFile is the path to the configuration file
// configFile 是配置文件的路径
var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (default: $"+config.EnvConfigPath+" or ./config.yaml)")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

// runServe loads the configuration and serves until SIGINT or SIGTERM.
// The supervised runtime is left running on exit.
// runServe 加载配置并运行服务直到收到 SIGINT/SIGTERM，退出时不停止受管运行时。
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	// Initialize OpenTelemetry tracing (based on config)
	// 初始化 OpenTelemetry 追踪（根据配置）
	otel_trace.Init(cfg.Telemetry)
	defer otel_trace.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	log.Info("[API] m2ee-api starting",
		zap.String("version", Version),
		zap.String("addr", cfg.App.Addr),
		zap.String("admin_url", cfg.AdminURL()))
	return app.Run(ctx)
}

// @title M2EE REST API
// @version 0.1
// @description Supervises one runtime process and exposes its lifecycle over HTTP.
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath /
// @securityDefinitions.basic BasicAuth
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
