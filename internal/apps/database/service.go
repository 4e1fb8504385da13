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

// Package database empties the managed runtime's own database.
// database 包负责清空托管运行时自身的数据库。
package database

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/runtimectl/m2ee-api/internal/apps/runtimeconfig"
	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/runtimectl/m2ee-api/internal/db"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	listTablesSQL    = `SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema()`
	listSequencesSQL = `SELECT sequence_name FROM information_schema.sequences WHERE sequence_schema = current_schema()`
)

// Settings provides the runtime's database settings.
type Settings interface {
	IsPostgreSQL() bool
	Database() runtimeconfig.DatabaseSettings
}

// EmptyResult counts the dropped objects.
type EmptyResult struct {
	Tables    int `json:"tables"`
	Sequences int `json:"sequences"`
}

// Service drops every table and sequence of the runtime database.
// Service 删除运行时数据库中的所有表和序列。
type Service struct {
	settings Settings
	open     func(config.DatabaseConfig) (*gorm.DB, error)
	log      *otelzap.Logger
}

// NewService creates a new Service instance.
// NewService 创建一个新的 Service 实例。
func NewService(settings Settings, log *otelzap.Logger) *Service {
	return &Service{settings: settings, open: db.Open, log: log}
}

// IsSupported reports whether the runtime database can be emptied.
func (s *Service) IsSupported() bool {
	return s.settings.IsPostgreSQL()
}

// ConnectionConfig converts the runtime settings into a connection
// configuration. DatabaseHost may carry a port as host:port.
// ConnectionConfig 将运行时数据库配置转换为连接配置。
func ConnectionConfig(st runtimeconfig.DatabaseSettings) (config.DatabaseConfig, error) {
	cfg := config.DatabaseConfig{
		Type:     db.DatabaseTypePostgres,
		Host:     st.Host,
		Username: st.UserName,
		Password: st.Password,
		Database: st.Name,
		LogLevel: "error",
	}
	if host, port, err := net.SplitHostPort(st.Host); err == nil {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return cfg, fmt.Errorf("%w: %q", ErrInvalidPort, port)
		}
		cfg.Host = host
		cfg.Port = p
	}
	return cfg, nil
}

// Empty drops all tables and sequences in the current schema in one transaction.
// Empty 在一个事务中删除当前 schema 下的所有表和序列。
func (s *Service) Empty(ctx context.Context) (*EmptyResult, error) {
	if !s.IsSupported() {
		return nil, ErrUnsupported
	}
	cfg, err := ConnectionConfig(s.settings.Database())
	if err != nil {
		return nil, err
	}

	gdb, err := s.open(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer db.Close(gdb)

	var tables, sequences []string
	if err := gdb.WithContext(ctx).Raw(listTablesSQL).Scan(&tables).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmpty, err)
	}
	if err := gdb.WithContext(ctx).Raw(listSequencesSQL).Scan(&sequences).Error; err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmpty, err)
	}

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range dropStatements(tables, sequences) {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmpty, err)
	}

	s.log.Ctx(ctx).Info("[Database] runtime database emptied",
		zap.String("database", cfg.Database),
		zap.Int("tables", len(tables)),
		zap.Int("sequences", len(sequences)))
	return &EmptyResult{Tables: len(tables), Sequences: len(sequences)}, nil
}

// dropStatements builds the DROP statements, tables first.
func dropStatements(tables, sequences []string) []string {
	stmts := make([]string, 0, len(tables)+len(sequences))
	for _, t := range tables {
		stmts = append(stmts, "DROP TABLE IF EXISTS "+quoteIdent(t)+" CASCADE")
	}
	for _, seq := range sequences {
		stmts = append(stmts, "DROP SEQUENCE IF EXISTS "+quoteIdent(seq)+" CASCADE")
	}
	return stmts
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
