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

// Package config loads the control plane configuration.
// config 包负责加载控制面配置。
//
// Configuration loading priority (highest to lowest):
// 配置加载优先级（从高到低）：
// 1. Environment variables (M2EE_API_*) / 环境变量
// 2. Configuration file / 配置文件
// 3. Default values / 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default configuration values
// 默认配置值
const (
	DefaultConfigPath      = "config.yaml"
	DefaultAddr            = ":5000"
	DefaultAdminHost       = "127.0.0.1"
	DefaultAdminPort       = 9000
	DefaultRuntimePort     = 8000
	DefaultStartTimeout    = 60 * time.Second
	DefaultStopTimeout     = 30 * time.Second
	DefaultProbeTimeout    = 5 * time.Second
	DefaultActivateTimeout = 10 * time.Minute
	DefaultDownloadURL     = "https://cdn.mendix.com/runtime/mendix-%s.tar.gz"
	DefaultLogLevel        = "info"
	DefaultLogFile         = "./logs/m2ee-api.log"
	DefaultLogMaxSize      = 100 // MB
	DefaultLogMaxBackups   = 3
	DefaultLogMaxAge       = 7 // days
	DefaultSQLitePath      = "./data/m2ee-api.db"
	EnvPrefix              = "M2EE_API"
	EnvConfigPath          = "M2EE_API_CONFIG"
)

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults are used instead.
// Load 从文件和环境变量加载配置，配置文件不存在时使用默认值。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	v.SetConfigFile(configPath)

	// Enable environment variable override / 启用环境变量覆盖
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// File doesn't exist, use defaults / 文件不存在，使用默认值
		fileFound = false
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.MxRuntime = map[string]any{}
	if fileFound {
		mx, err := loadMxRuntime(configPath)
		if err != nil {
			return nil, err
		}
		cfg.MxRuntime = mx
	}

	return &cfg, nil
}

// loadMxRuntime reads the mxruntime section with its keys untouched.
// loadMxRuntime 读取 mxruntime 配置段并保持键名大小写不变。
func loadMxRuntime(configPath string) (map[string]any, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc struct {
		MxRuntime map[string]any `yaml:"mxruntime"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse mxruntime section: %w", err)
	}
	if doc.MxRuntime == nil {
		return map[string]any{}, nil
	}
	return doc.MxRuntime, nil
}

// setDefaults sets default configuration values
// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}

	// App defaults / 应用默认值
	v.SetDefault("app.name", "m2ee-api")
	v.SetDefault("app.env", "production")
	v.SetDefault("app.addr", DefaultAddr)
	v.SetDefault("app.read_timeout", 30*time.Second)
	v.SetDefault("app.write_timeout", 10*time.Minute)
	v.SetDefault("app.max_upload_size", 1024)
	v.SetDefault("app.auth.username", "admin")
	v.SetDefault("app.auth.password_hash", "")

	// Runtime defaults / 运行时默认值
	v.SetDefault("runtime.version", "")
	v.SetDefault("runtime.java_bin", "java")
	v.SetDefault("runtime.jvm_options", []string{})
	v.SetDefault("runtime.launcher_jar", "")
	v.SetDefault("runtime.classpath", []string{})
	v.SetDefault("runtime.app_base", home)
	v.SetDefault("runtime.model_upload_path", filepath.Join(home, "data", "model-upload"))
	v.SetDefault("runtime.mxjar_repos", []string{filepath.Join(home, "runtimes"), "/usr/share/java"})
	v.SetDefault("runtime.download_url", DefaultDownloadURL)
	v.SetDefault("runtime.admin_host", DefaultAdminHost)
	v.SetDefault("runtime.admin_port", DefaultAdminPort)
	v.SetDefault("runtime.admin_password", "")
	v.SetDefault("runtime.runtime_port", DefaultRuntimePort)
	v.SetDefault("runtime.listen_addresses", "*")
	v.SetDefault("runtime.pid_file", filepath.Join(home, ".m2ee", "m2ee.pid"))
	v.SetDefault("runtime.log_file", filepath.Join(home, ".m2ee", "runtime.log"))
	v.SetDefault("runtime.config_file", filepath.Join(home, ".m2ee", "runtime-config.yaml"))
	v.SetDefault("runtime.auto_repair_schema", true)
	v.SetDefault("runtime.ddl_plan_dir", filepath.Join(home, ".m2ee", "ddl"))
	v.SetDefault("runtime.start_timeout", DefaultStartTimeout)
	v.SetDefault("runtime.stop_timeout", DefaultStopTimeout)
	v.SetDefault("runtime.probe_timeout", DefaultProbeTimeout)
	v.SetDefault("runtime.activate_timeout", DefaultActivateTimeout)

	// Database defaults / 数据库默认值
	v.SetDefault("database.enabled", true)
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite_path", DefaultSQLitePath)
	v.SetDefault("database.log_level", "warn")

	// Log defaults / 日志默认值
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", DefaultLogFile)
	v.SetDefault("log.max_size", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age", DefaultLogMaxAge)
	v.SetDefault("log.compress", false)

	// Telemetry defaults / 遥测默认值
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "m2ee-api")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Metrics defaults / 指标默认值
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate validates the configuration
// Validate 验证配置
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	validOutputs := map[string]bool{"stdout": true, "file": true, "both": true}
	if !validOutputs[strings.ToLower(c.Log.Output)] {
		return fmt.Errorf("invalid log output: %s (must be stdout, file, or both)", c.Log.Output)
	}

	if c.Runtime.AdminPassword == "" {
		return errors.New("runtime.admin_password is required")
	}
	if c.Runtime.AdminPort <= 0 || c.Runtime.AdminPort > 65535 {
		return fmt.Errorf("invalid runtime.admin_port: %d", c.Runtime.AdminPort)
	}
	if c.Runtime.RuntimePort <= 0 || c.Runtime.RuntimePort > 65535 {
		return fmt.Errorf("invalid runtime.runtime_port: %d", c.Runtime.RuntimePort)
	}
	if c.Runtime.AdminPort == c.Runtime.RuntimePort {
		return errors.New("runtime.admin_port and runtime.runtime_port must differ")
	}
	if c.Runtime.LauncherJar == "" && len(c.Runtime.Classpath) == 0 {
		return errors.New("one of runtime.launcher_jar or runtime.classpath is required")
	}
	if c.Runtime.PidFile == "" {
		return errors.New("runtime.pid_file is required")
	}

	// Validate timeouts / 验证超时时间
	if c.Runtime.StartTimeout < time.Second {
		return errors.New("runtime.start_timeout must be at least 1 second")
	}
	if c.Runtime.StopTimeout < time.Second {
		return errors.New("runtime.stop_timeout must be at least 1 second")
	}
	if c.Runtime.ProbeTimeout <= 0 {
		return errors.New("runtime.probe_timeout must be positive")
	}
	if c.Runtime.ActivateTimeout < time.Second {
		return errors.New("runtime.activate_timeout must be at least 1 second")
	}
	if !c.Database.Enabled && c.Runtime.DDLPlanDir == "" {
		return errors.New("runtime.ddl_plan_dir is required when the audit database is disabled")
	}

	if c.Database.Enabled {
		switch c.Database.Type {
		case "sqlite", "mysql", "postgres":
		default:
			return fmt.Errorf("unsupported database type: %s (must be sqlite, mysql, or postgres)", c.Database.Type)
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return errors.New("telemetry.endpoint is required when telemetry is enabled")
	}

	return nil
}

// AdminURL returns the base URL of the runtime admin protocol.
// AdminURL 返回运行时管理协议的基础地址。
func (c *Config) AdminURL() string {
	return fmt.Sprintf("http://%s:%d/", c.Runtime.AdminHost, c.Runtime.AdminPort)
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
