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

package router

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/runtimectl/m2ee-api/internal/guard"
	"github.com/runtimectl/m2ee-api/internal/otel_trace"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 上下文键常量
const (
	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-Id"
)

// loggerMiddleware 访问日志中间件
// loggerMiddleware logs one line per request with a request id.
func loggerMiddleware(log *otelzap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		ctxLog := log.Ctx(c.Request.Context())
		if c.Writer.Status() >= http.StatusInternalServerError {
			ctxLog.Warn("[API] request", fields...)
			return
		}
		ctxLog.Info("[API] request", fields...)
	}
}

// basicAuth HTTP Basic 认证中间件，未配置密码哈希时不启用
// basicAuth checks the configured user and bcrypt hash. It returns nil when
// no hash is configured.
func basicAuth(auth config.AuthConfig) gin.HandlerFunc {
	if auth.PasswordHash == "" {
		return nil
	}
	hash := []byte(auth.PasswordHash)
	user := []byte(auth.Username)

	return func(c *gin.Context) {
		ctx, span := otel_trace.Start(c.Request.Context(), "BasicAuth")
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		name, password, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(name), user) != 1 ||
			bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
			c.Header("WWW-Authenticate", `Basic realm="m2ee-api"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// lifecycleLock 生命周期锁中间件，串行化会改变运行时状态的请求
// lifecycleLock serializes lifecycle-mutating requests. A client that goes
// away while waiting gives up its place.
func lifecycleLock(g *guard.Guard, log *otelzap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		release, err := g.Acquire(c.Request.Context())
		if err != nil {
			log.Ctx(c.Request.Context()).Info("[API] gave up waiting for lifecycle lock",
				zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		defer release()
		c.Next()
	}
}
