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

// Package process launches and tracks the managed runtime's OS process.
// process 包负责启动并跟踪受管运行时的操作系统进程。
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/runtimectl/m2ee-api/internal/config"
	"github.com/runtimectl/m2ee-api/internal/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// containerMainClass is used when the runtime is started from a classpath
// rather than a launcher jar.
const containerMainClass = "com.mendix.m2ee.server.HttpAdminAppContainer"

// Runtime log rotation limits / 运行时日志轮转参数
const (
	runtimeLogMaxSize    = 100 // MB
	runtimeLogMaxBackups = 5
	runtimeLogMaxAge     = 14 // days
)

var pollInterval = 250 * time.Millisecond

// Errors
// 错误定义
var (
	ErrLaunch     = errors.New("process: failed to launch runtime")
	ErrNotRunning = errors.New("process: runtime process is not running")
)

// Handle identifies the managed OS process.
// Handle 标识受管的操作系统进程。
type Handle struct {
	PID int
}

// child is a process started by this Runner and reaped by its goroutine.
type child struct {
	pid  int
	done chan struct{}
	err  error
}

func (c *child) exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Runner starts the runtime and answers questions about its process.
// A runtime started by a previous control plane instance is adopted
// through the pid file.
// Runner 启动运行时并查询其进程状态，通过 pid 文件接管之前启动的运行时。
type Runner struct {
	cfg config.RuntimeConfig
	log *otelzap.Logger

	mu    sync.Mutex
	child *child
}

// NewRunner creates a Runner for the given runtime configuration.
// NewRunner 根据运行时配置创建 Runner。
func NewRunner(cfg config.RuntimeConfig, log *otelzap.Logger) *Runner {
	return &Runner{cfg: cfg, log: log}
}

// Launch spawns the runtime in its own process group and records its pid.
// The process is not bound to ctx: it must outlive the request that started it.
// Launch 在独立进程组中启动运行时并记录 pid。
func (r *Runner) Launch(ctx context.Context) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cmd := r.buildCommand()

	out, err := logger.NewRotatingWriter(r.cfg.LogFile, runtimeLogMaxSize, runtimeLogMaxBackups, runtimeLogMaxAge, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	c := &child{pid: cmd.Process.Pid, done: make(chan struct{})}
	go func() {
		// Reap the child so an exited runtime is not reported alive as a zombie.
		// 回收子进程，避免僵尸进程被误判为存活。
		c.err = cmd.Wait()
		_ = out.Close()
		close(c.done)
	}()

	if err := writePidFile(r.cfg.PidFile, c.pid); err != nil {
		_ = signalGroup(c.pid, syscall.SIGKILL)
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	r.child = c
	r.log.Info("runtime process launched",
		zap.Int("pid", c.pid),
		zap.String("java_bin", r.cfg.JavaBin),
		zap.String("log_file", r.cfg.LogFile))

	return &Handle{PID: c.pid}, nil
}

// buildCommand assembles the java command line and environment.
// buildCommand 组装 java 命令行和环境变量。
func (r *Runner) buildCommand() *exec.Cmd {
	args := append([]string{}, r.cfg.JVMOptions...)
	if r.cfg.LauncherJar != "" {
		args = append(args, "-jar", r.cfg.LauncherJar, r.cfg.AppBase)
	} else {
		args = append(args, "-cp", strings.Join(r.cfg.Classpath, ":"), containerMainClass)
	}

	cmd := exec.Command(r.cfg.JavaBin, args...)
	// Own process group so the runtime survives a control plane restart
	// 独立进程组，使控制面重启不影响运行时
	setProcGroupAttr(cmd)
	cmd.Dir = r.cfg.AppBase

	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env,
		"M2EE_ADMIN_PORT="+strconv.Itoa(r.cfg.AdminPort),
		"M2EE_ADMIN_PASS="+r.cfg.AdminPassword,
	)
	for k, v := range r.cfg.Environment {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	return cmd
}

// Handle returns the live process handle, or nil when no runtime process exists.
// A pid from the pid file is only adopted when that process runs JavaBin.
// A stale pid file is removed.
// Handle 返回存活进程的句柄，不存在时返回 nil，并清理过期的 pid 文件。
func (r *Runner) Handle() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.child != nil {
		if !r.child.exited() {
			return &Handle{PID: r.child.pid}
		}
		r.log.Info("runtime process exited", zap.Int("pid", r.child.pid), zap.Error(r.child.err))
		r.child = nil
		_ = removePidFile(r.cfg.PidFile)
		return nil
	}

	pid, err := readPidFile(r.cfg.PidFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("unreadable pid file removed", zap.String("path", r.cfg.PidFile), zap.Error(err))
			_ = removePidFile(r.cfg.PidFile)
		}
		return nil
	}
	if IsAlive(pid) {
		if runsExecutable(pid, r.cfg.JavaBin) {
			return &Handle{PID: pid}
		}
		// pid reused by an unrelated program, e.g. after a reboot
		r.log.Warn("pid file points at another program, removed",
			zap.Int("pid", pid), zap.String("java_bin", r.cfg.JavaBin))
		_ = removePidFile(r.cfg.PidFile)
		return nil
	}

	r.log.Info("stale pid file removed", zap.Int("pid", pid))
	_ = removePidFile(r.cfg.PidFile)
	return nil
}

// Alive reports whether the process behind h still exists.
// Alive 判断句柄对应的进程是否仍然存在。
func (r *Runner) Alive(h *Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	c := r.child
	r.mu.Unlock()

	if c != nil && c.pid == h.PID {
		return !c.exited()
	}
	return IsAlive(h.PID)
}

// Signal delivers sig to the process group of h.
// Signal 向句柄所在进程组发送信号。
func (r *Runner) Signal(h *Handle, sig syscall.Signal) error {
	if h == nil || !r.Alive(h) {
		return ErrNotRunning
	}
	if err := signalGroup(h.PID, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return ErrNotRunning
		}
		return fmt.Errorf("process: signal %v to %d: %w", sig, h.PID, err)
	}
	r.log.Info("signal sent to runtime", zap.Int("pid", h.PID), zap.String("signal", sig.String()))
	return nil
}

// WaitExit waits up to timeout for the process to exit and reports whether it did.
// WaitExit 最多等待 timeout，返回进程是否已退出。
func (r *Runner) WaitExit(ctx context.Context, h *Handle, timeout time.Duration) bool {
	if h == nil {
		return true
	}

	r.mu.Lock()
	c := r.child
	r.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if c != nil && c.pid == h.PID {
		select {
		case <-c.done:
			return true
		case <-timer.C:
			return false
		case <-ctx.Done():
			return c.exited()
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if !IsAlive(h.PID) {
			return true
		}
		select {
		case <-ticker.C:
		case <-timer.C:
			return !IsAlive(h.PID)
		case <-ctx.Done():
			return !IsAlive(h.PID)
		}
	}
}

// Forget drops the record of an exited runtime and removes the pid file.
// Forget 清除已退出运行时的记录并删除 pid 文件。
func (r *Runner) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.child != nil && r.child.exited() {
		r.child = nil
	}
	if err := removePidFile(r.cfg.PidFile); err != nil {
		r.log.Warn("failed to remove pid file", zap.String("path", r.cfg.PidFile), zap.Error(err))
	}
}
