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

package config

import "time"

// Config is the root configuration of the control plane.
// MxRuntime is read with yaml.v3 instead of viper because viper lowercases
// keys and the runtime expects them verbatim.
// Config 是控制面的根配置。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	MxRuntime map[string]any  `mapstructure:"-"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig HTTP 服务配置
type AppConfig struct {
	Name         string        `mapstructure:"name"`
	Env          string        `mapstructure:"env"`
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// MaxUploadSize limits the size of an uploaded model archive in MB.
	MaxUploadSize int64 `mapstructure:"max_upload_size"`

	Auth AuthConfig `mapstructure:"auth"`
}

// AuthConfig enables HTTP basic auth when PasswordHash is set.
// AuthConfig 在设置 PasswordHash 时启用 HTTP Basic 认证。
type AuthConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"` // bcrypt
}

// RuntimeConfig describes how the managed runtime is launched and reached.
// RuntimeConfig 描述托管运行时的启动方式和访问方式。
type RuntimeConfig struct {
	// Version overrides the version read from model/metadata.json.
	Version          string   `mapstructure:"version"`
	JavaBin          string   `mapstructure:"java_bin"`
	JVMOptions       []string `mapstructure:"jvm_options"`
	LauncherJar      string   `mapstructure:"launcher_jar"`
	Classpath        []string `mapstructure:"classpath"`
	AppBase          string   `mapstructure:"app_base"`
	ModelUploadPath  string   `mapstructure:"model_upload_path"`
	MxjarRepos       []string `mapstructure:"mxjar_repos"`
	DownloadURL      string   `mapstructure:"download_url"`
	AdminHost        string   `mapstructure:"admin_host"`
	AdminPort        int      `mapstructure:"admin_port"`
	AdminPassword    string   `mapstructure:"admin_password"`
	RuntimePort      int      `mapstructure:"runtime_port"`
	ListenAddresses  string   `mapstructure:"listen_addresses"`
	PidFile          string   `mapstructure:"pid_file"`
	LogFile          string   `mapstructure:"log_file"`
	ConfigFile       string   `mapstructure:"config_file"`
	AutoRepairSchema bool     `mapstructure:"auto_repair_schema"`
	// DDLPlanDir keeps schema repair plans when the audit database is disabled.
	DDLPlanDir string `mapstructure:"ddl_plan_dir"`

	// Environment is added to the runtime process environment.
	Environment map[string]string `mapstructure:"environment"`

	StartTimeout time.Duration `mapstructure:"start_timeout"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	// ActivateTimeout bounds the start and execute_ddl_commands calls.
	ActivateTimeout time.Duration `mapstructure:"activate_timeout"`
}

// DatabaseConfig is the control plane's own audit store.
// It is unrelated to the database used by the managed runtime.
// DatabaseConfig 是控制面自身的审计存储，与托管运行时使用的数据库无关。
type DatabaseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Type            string `mapstructure:"type"` // sqlite, mysql, postgres
	SQLitePath      string `mapstructure:"sqlite_path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConn     int    `mapstructure:"max_idle_conn"`
	MaxOpenConn     int    `mapstructure:"max_open_conn"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json, console
	Output     string `mapstructure:"output"` // stdout, file, both
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// TelemetryConfig 链路追踪配置
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
